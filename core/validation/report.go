package validation

import (
	"encoding/json"
	"strings"

	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/value"
)

// Kind classifies a diagnostic. The names are stable and shared with every
// other implementation of the engine.
type Kind string

const (
	MissingRequiredField Kind = "MissingRequiredField"
	UnknownField         Kind = "UnknownField"
	TypeMismatch         Kind = "TypeMismatch"
	UnresolvedReference  Kind = "UnresolvedReference"
	VersionIncompatible  Kind = "VersionIncompatible"
)

// Kinds returns every diagnostic kind.
func Kinds() []Kind {
	return []Kind{MissingRequiredField, UnknownField, TypeMismatch, UnresolvedReference, VersionIncompatible}
}

// Diagnostic is one problem found in a document.
type Diagnostic struct {
	Path    string `json:"path"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	// Line is the source line of the offending value, or of the enclosing
	// table for missing keys. Zero when unknown.
	Line int `json:"line,omitempty"`
}

// Error returns "path: message".
func (d Diagnostic) Error() string {
	if d.Path == "" {
		return d.Message
	}
	return d.Path + ": " + d.Message
}

// AppliedDefault records a default the consumer view substitutes for an
// absent optional field.
type AppliedDefault struct {
	Path  string      `json:"path"`
	Value *value.Node `json:"value"`
}

// Report is the outcome of validating one document. It is complete when
// Validate returns and is not modified afterwards.
type Report struct {
	// ID is assigned by callers that persist reports.
	ID string `json:"id,omitempty"`

	Domain        schema.Domain `json:"domain"`
	SchemaVersion string        `json:"schema_version"`

	// DeclaredVersion is the version the document declared; empty when the
	// document declared none and the assumed version was used.
	DeclaredVersion string `json:"declared_version,omitempty"`

	// Diagnostics are in traversal order.
	Diagnostics []Diagnostic     `json:"diagnostics"`
	Defaults    []AppliedDefault `json:"defaults,omitempty"`
}

// Add appends a diagnostic.
func (r *Report) Add(path string, kind Kind, message string, line int) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Path:    path,
		Kind:    kind,
		Message: message,
		Line:    line,
	})
}

// Valid reports whether the document passed.
func (r *Report) Valid() bool {
	return len(r.Diagnostics) == 0
}

// Count returns the number of diagnostics of kind k.
func (r *Report) Count(k Kind) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// ByPath returns the diagnostics reported at path.
func (r *Report) ByPath(path string) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Path == path {
			out = append(out, d)
		}
	}
	return out
}

// Error returns a combined message, or "" for a valid report.
func (r *Report) Error() string {
	if r.Valid() {
		return ""
	}
	msgs := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		msgs[i] = d.Error()
	}
	return strings.Join(msgs, "; ")
}

// MarshalJSON adds the derived valid flag.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	diags := r.Diagnostics
	if diags == nil {
		diags = []Diagnostic{}
	}
	out := struct {
		*plain
		Valid       bool         `json:"valid"`
		Diagnostics []Diagnostic `json:"diagnostics"`
	}{
		plain:       (*plain)(r),
		Valid:       r.Valid(),
		Diagnostics: diags,
	}
	return json.Marshal(out)
}
