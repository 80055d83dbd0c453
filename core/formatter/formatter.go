// Package formatter renders validation results for the command line.
// Formatters convert reports, schema listings and breaking-change lists to
// an output format (table, json, yaml).
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/validation"
)

// Formatter converts results to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatReports formats the reports of one or more files.
	FormatReports(w io.Writer, reports []FileReport, opts FormatOptions) error

	// FormatSchemas formats a schema listing.
	FormatSchemas(w io.Writer, schemas []SchemaSummary, opts FormatOptions) error

	// FormatChanges formats the breaking changes between two schemas.
	FormatChanges(w io.Writer, changes []schema.BreakingChange, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (for json).
	Compact bool

	// MaxWidth truncates long messages (0 = no limit).
	MaxWidth int
}

// FileReport is the report of one validated file.
type FileReport struct {
	File   string
	Report *validation.Report
}

// SchemaSummary describes one loaded schema.
type SchemaSummary struct {
	Domain      string `json:"domain" yaml:"domain"`
	Version     string `json:"version" yaml:"version"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Summarize returns the summary of doc.
func Summarize(doc *schema.Document) SchemaSummary {
	return SchemaSummary{
		Domain:      string(doc.Domain),
		Version:     doc.Version.String(),
		Fingerprint: doc.Fingerprint,
		Description: doc.Description,
	}
}

// reportView is the serialized form of a FileReport.
type reportView struct {
	File            string           `json:"file,omitempty" yaml:"file,omitempty"`
	Domain          string           `json:"domain" yaml:"domain"`
	SchemaVersion   string           `json:"schema_version" yaml:"schema_version"`
	DeclaredVersion string           `json:"declared_version,omitempty" yaml:"declared_version,omitempty"`
	Valid           bool             `json:"valid" yaml:"valid"`
	Diagnostics     []diagnosticView `json:"diagnostics" yaml:"diagnostics"`
}

type diagnosticView struct {
	Path    string `json:"path" yaml:"path"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
}

func viewOf(fr FileReport) reportView {
	rep := fr.Report
	v := reportView{
		File:            fr.File,
		Domain:          string(rep.Domain),
		SchemaVersion:   rep.SchemaVersion,
		DeclaredVersion: rep.DeclaredVersion,
		Valid:           rep.Valid(),
		Diagnostics:     make([]diagnosticView, 0, len(rep.Diagnostics)),
	}
	for _, d := range rep.Diagnostics {
		v.Diagnostics = append(v.Diagnostics, diagnosticView{
			Path:    d.Path,
			Kind:    string(d.Kind),
			Message: d.Message,
			Line:    d.Line,
		})
	}
	return v
}

func viewsOf(reports []FileReport) []reportView {
	views := make([]reportView, len(reports))
	for i, fr := range reports {
		views[i] = viewOf(fr)
	}
	return views
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.formatters[r.defaultFmt]
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}
