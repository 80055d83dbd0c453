package formatter

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aurabx/harmony-dsl/core/schema"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Description returns the formatter description.
func (f *YAMLFormatter) Description() string {
	return "YAML output format"
}

// FormatReports formats reports as a YAML sequence.
func (f *YAMLFormatter) FormatReports(w io.Writer, reports []FileReport, opts FormatOptions) error {
	return f.encode(w, viewsOf(reports))
}

// FormatSchemas formats a schema listing as YAML.
func (f *YAMLFormatter) FormatSchemas(w io.Writer, schemas []SchemaSummary, opts FormatOptions) error {
	if schemas == nil {
		schemas = []SchemaSummary{}
	}
	return f.encode(w, map[string]any{
		"count": len(schemas),
		"data":  schemas,
	})
}

// FormatChanges formats breaking changes as YAML.
func (f *YAMLFormatter) FormatChanges(w io.Writer, changes []schema.BreakingChange, opts FormatOptions) error {
	if changes == nil {
		changes = []schema.BreakingChange{}
	}
	return f.encode(w, map[string]any{
		"compatible": len(changes) == 0,
		"changes":    changes,
	})
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output)
}

// encode writes YAML to the writer.
func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}
