package schema

import (
	"fmt"
	"strings"

	"github.com/aurabx/harmony-dsl/core/value"
	"github.com/aurabx/harmony-dsl/core/version"
)

// Domain is one of the independently versioned configuration subjects.
type Domain string

const (
	DomainGateway       Domain = "gateway"
	DomainPipeline      Domain = "pipeline"
	DomainMesh          Domain = "mesh"
	DomainRemoteIngress Domain = "remote-ingress"
)

// Domains returns every known domain in a stable order.
func Domains() []Domain {
	return []Domain{DomainGateway, DomainPipeline, DomainMesh, DomainRemoteIngress}
}

// ParseDomain converts a name to a Domain.
func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains() {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown domain %q", s)
}

// Cardinality says whether a table appears once or as an array of tables.
type Cardinality string

const (
	Single Cardinality = "single"
	Array  Cardinality = "array"
)

// Wildcard is the path segment that matches any key.
const Wildcard = "*"

// Document is a loaded schema. It is immutable once returned by Load and
// may be shared between goroutines.
type Document struct {
	Domain      Domain
	Version     version.Version
	Description string

	// Root describes the configuration document's top-level table.
	Root *Table

	// Definitions are named table shapes, in declaration order.
	Definitions []*Table

	// Fingerprint is the hex BLAKE2b-256 digest of the schema text.
	Fingerprint string

	// Source is the schema text the document was loaded from.
	Source string
}

// Definition returns the named table definition.
func (d *Document) Definition(name string) *Table {
	for _, t := range d.Definitions {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Table finds a table by its dotted path below the root. A "*" segment
// selects the wildcard table. The empty path is the root.
func (d *Document) Table(path string) *Table {
	t := d.Root
	if path == "" {
		return t
	}
	for _, seg := range value.SplitPath(path) {
		if t == nil {
			return nil
		}
		if seg == Wildcard {
			t = t.Wildcard
			continue
		}
		t = t.Child(seg)
	}
	return t
}

// Walk calls fn for every table in the document, depth first, starting with
// the root and then each definition.
func (d *Document) Walk(fn func(*Table)) {
	if d.Root != nil {
		d.Root.walk(fn)
	}
	for _, def := range d.Definitions {
		def.walk(fn)
	}
}

// Table describes a table or an array of tables.
type Table struct {
	// Name is the key the table is declared under; "*" for wildcards.
	Name string

	// Path is the dotted location of the table, with "*" for wildcard
	// segments. Definition tables live under "definitions".
	Path string

	Cardinality Cardinality
	Required    bool
	Description string

	// Provides names a reference target. Every key matched by the table
	// registers under it.
	Provides string

	// Fields and Tables are in declaration order.
	Fields []*Field
	Tables []*Table

	// Wildcard matches any key not declared above when it is a table;
	// WildcardField does the same for scalar entries. At most one is set.
	Wildcard      *Table
	WildcardField *Field
}

// Field returns the named field.
func (t *Table) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Child returns the named nested table.
func (t *Table) Child(name string) *Table {
	for _, c := range t.Tables {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Declares reports whether key is a declared field or child table.
func (t *Table) Declares(key string) bool {
	return t.Field(key) != nil || t.Child(key) != nil
}

func (t *Table) walk(fn func(*Table)) {
	fn(t)
	for _, c := range t.Tables {
		c.walk(fn)
	}
	if t.Wildcard != nil {
		t.Wildcard.walk(fn)
	}
}

// AllFields returns the declared fields followed by the wildcard field.
func (t *Table) AllFields() []*Field {
	if t.WildcardField == nil {
		return t.Fields
	}
	return append(append([]*Field(nil), t.Fields...), t.WildcardField)
}

func joinPath(parent, key string) string {
	if key == Wildcard {
		if parent == "" {
			return Wildcard
		}
		return parent + "." + Wildcard
	}
	return value.JoinPath(parent, key)
}

// headerPath renders a model path as a TOML table header below prefix.
func headerPath(prefix, path string) string {
	if path == "" {
		return prefix
	}
	segs := value.SplitPath(path)
	if prefix != "" {
		segs = append([]string{prefix}, segs...)
	}
	quoted := make([]string, len(segs))
	for i, s := range segs {
		quoted[i] = value.QuoteKey(s)
	}
	return strings.Join(quoted, ".")
}
