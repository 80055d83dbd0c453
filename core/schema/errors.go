package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformed matches load errors caused by a schema that breaks the
	// meta-schema's own rules.
	ErrMalformed = errors.New("malformed schema")

	// ErrVersionMissing matches load errors for a schema without a root
	// schema_version.
	ErrVersionMissing = errors.New("schema version missing")
)

// LoadErrorKind classifies a LoadError.
type LoadErrorKind int

const (
	Malformed LoadErrorKind = iota
	VersionMissing
)

func (k LoadErrorKind) String() string {
	if k == VersionMissing {
		return "VersionMissing"
	}
	return "Malformed"
}

// Problem is one violation found while loading a schema.
type Problem struct {
	// Path is the location in the schema text, e.g. "schema.proxy.id".
	Path    string
	Message string
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// LoadError is returned by Load. A schema that fails to load is a fault in
// the schema text itself.
type LoadError struct {
	Kind     LoadErrorKind
	Domain   Domain
	Problems []Problem
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("load schema")
	if e.Domain != "" {
		fmt.Fprintf(&b, " %q", string(e.Domain))
	}
	if e.Kind == VersionMissing {
		b.WriteString(": schema_version is not declared at the document root")
		return b.String()
	}
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	fmt.Fprintf(&b, ": malformed:\n  - %s", strings.Join(msgs, "\n  - "))
	return b.String()
}

// Is lets errors.Is match ErrMalformed and ErrVersionMissing.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrMalformed:
		return e.Kind == Malformed
	case ErrVersionMissing:
		return e.Kind == VersionMissing
	}
	return false
}

// Paths returns the schema paths of every problem.
func (e *LoadError) Paths() []string {
	paths := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		paths = append(paths, p.Path)
	}
	return paths
}
