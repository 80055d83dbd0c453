package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aurabx/harmony-dsl/core/schema"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatReports writes a single report as an object and several as an
// array.
func (f *JSONFormatter) FormatReports(w io.Writer, reports []FileReport, opts FormatOptions) error {
	if len(reports) == 1 {
		return f.encode(w, viewOf(reports[0]), opts.Compact)
	}
	return f.encode(w, viewsOf(reports), opts.Compact)
}

// FormatSchemas formats a schema listing as JSON.
func (f *JSONFormatter) FormatSchemas(w io.Writer, schemas []SchemaSummary, opts FormatOptions) error {
	if schemas == nil {
		schemas = []SchemaSummary{}
	}
	return f.encode(w, map[string]any{
		"count": len(schemas),
		"data":  schemas,
	}, opts.Compact)
}

// FormatChanges formats breaking changes as JSON.
func (f *JSONFormatter) FormatChanges(w io.Writer, changes []schema.BreakingChange, opts FormatOptions) error {
	if changes == nil {
		changes = []schema.BreakingChange{}
	}
	return f.encode(w, map[string]any{
		"compatible": len(changes) == 0,
		"changes":    changes,
	}, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output, false)
}

// encode writes JSON to the writer.
func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
