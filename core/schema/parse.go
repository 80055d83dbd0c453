package schema

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/aurabx/harmony-dsl/core/value"
	"github.com/aurabx/harmony-dsl/core/version"
)

const (
	keySchemaVersion = "schema_version"
	keyDomain        = "domain"
	keyDescription   = "description"
	keySchema        = "schema"
	keyDefinitions   = "definitions"
)

// LoadFile reads and loads a schema document from disk.
func LoadFile(path string, domain Domain) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return Load(data, domain)
}

// Load parses schema text into a Document. Every violation of the
// meta-schema is collected before returning, so a *LoadError lists all
// problems in declaration order.
//
// domain may be empty for ad-hoc schemas; the document then takes the
// domain it declares, if any.
func Load(text []byte, domain Domain) (*Document, error) {
	root, err := value.Decode(text)
	if err != nil {
		return nil, &LoadError{
			Kind:     Malformed,
			Domain:   domain,
			Problems: []Problem{decodeProblem(err)},
		}
	}

	if !root.Has(keySchemaVersion) {
		return nil, &LoadError{Kind: VersionMissing, Domain: domain}
	}

	sum := blake2b.Sum256(text)
	doc := &Document{
		Domain:      domain,
		Fingerprint: hex.EncodeToString(sum[:]),
		Source:      string(text),
	}
	l := &loader{defs: make(map[string]bool)}

	if defs, ok := root.Get(keyDefinitions); ok {
		for _, name := range defs.Keys() {
			l.defs[name] = true
		}
	}

	for _, e := range root.Entries() {
		switch e.Key {
		case keySchemaVersion:
			s, ok := e.Value.AsString()
			if !ok {
				l.addf(e.Key, "must be a string, got %s", e.Value.Kind)
				continue
			}
			v, err := version.Parse(s)
			if err != nil {
				l.addf(e.Key, "%v", err)
				continue
			}
			doc.Version = v

		case keyDomain:
			s, ok := e.Value.AsString()
			if !ok {
				l.addf(e.Key, "must be a string, got %s", e.Value.Kind)
				continue
			}
			d, err := ParseDomain(s)
			if err != nil {
				l.addf(e.Key, "%v", err)
				continue
			}
			if domain != "" && d != domain {
				l.addf(e.Key, "schema declares domain %q, loaded as %q", d, domain)
				continue
			}
			doc.Domain = d

		case keyDescription:
			doc.Description = l.str(e.Key, e.Value)

		case keySchema:
			if e.Value.Kind != value.KindTable {
				l.addf(e.Key, "must be a table, got %s", e.Value.Kind)
				continue
			}
			doc.Root = l.table(e.Value, "", "", keySchema, true)

		case keyDefinitions:
			if e.Value.Kind != value.KindTable {
				l.addf(e.Key, "must be a table, got %s", e.Value.Kind)
				continue
			}
			for _, d := range e.Value.Entries() {
				at := value.JoinPath(keyDefinitions, d.Key)
				if d.Key == "" || d.Key == Wildcard {
					l.addf(at, "invalid definition name %q", d.Key)
					continue
				}
				if d.Value.Kind != value.KindTable {
					l.addf(at, "definition must be a table, got %s", d.Value.Kind)
					continue
				}
				doc.Definitions = append(doc.Definitions, l.table(d.Value, d.Key, at, at, false))
			}

		default:
			l.addf(e.Key, "unknown top-level key")
		}
	}

	if !root.Has(keySchema) {
		l.addf("", "missing [schema] root table")
	}

	if len(l.problems) > 0 {
		return nil, &LoadError{Kind: Malformed, Domain: domain, Problems: l.problems}
	}
	return doc, nil
}

// tableAttributes are the scalar keys of a table definition. They share
// the key space with the table's fields and child tables.
var tableAttributes = map[string]bool{
	"description": true,
	"required":    true,
	"cardinality": true,
	"provides":    true,
}

// decodeProblem explains a TOML redefinition that stems from a table
// attribute and a child of the same name.
func decodeProblem(err error) Problem {
	var se *value.SyntaxError
	if !errors.As(err, &se) || se.Key == "" {
		return Problem{Message: err.Error()}
	}
	segs := value.SplitPath(se.Key)
	if len(segs) < 2 || (segs[0] != keySchema && segs[0] != keyDefinitions) {
		return Problem{Message: err.Error()}
	}
	name := segs[len(segs)-1]
	if !tableAttributes[name] {
		return Problem{Message: err.Error()}
	}
	return Problem{
		Path: se.Key,
		Message: fmt.Sprintf("line %d: child %q collides with the table attribute %q; "+
			"a table that declares a child named %q cannot set that attribute", se.Line, name, name, name),
	}
}

type loader struct {
	defs     map[string]bool
	problems []Problem
}

func (l *loader) addf(path, format string, args ...any) {
	l.problems = append(l.problems, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (l *loader) str(at string, n *value.Node) string {
	s, ok := n.AsString()
	if !ok {
		l.addf(at, "must be a string, got %s", n.Kind)
	}
	return s
}

func (l *loader) boolean(at string, n *value.Node) bool {
	b, ok := n.AsBool()
	if !ok {
		l.addf(at, "must be a boolean, got %s", n.Kind)
	}
	return b
}

// table interprets a table definition. loc is its location in the schema
// text, path its location in configuration documents.
func (l *loader) table(n *value.Node, name, path, loc string, root bool) *Table {
	t := &Table{Name: name, Path: path, Cardinality: Single}

	for _, e := range n.Entries() {
		at := value.JoinPath(loc, e.Key)

		if e.Value.Kind == value.KindTable {
			if e.Key == "" {
				l.addf(at, "empty field or table name")
				continue
			}
			childPath := joinPath(path, e.Key)
			if isFieldEntry(e.Value) {
				f := l.field(e.Value, e.Key, childPath, at)
				if e.Key == Wildcard {
					t.WildcardField = f
				} else {
					t.Fields = append(t.Fields, f)
				}
				continue
			}
			c := l.table(e.Value, e.Key, childPath, at, false)
			if e.Key == Wildcard {
				t.Wildcard = c
			} else {
				t.Tables = append(t.Tables, c)
			}
			continue
		}

		switch e.Key {
		case "description":
			t.Description = l.str(at, e.Value)
		case "provides":
			if t.Provides = l.str(at, e.Value); t.Provides == "" {
				l.addf(at, "must not be empty")
			}
		case "required":
			if root {
				l.addf(at, "not allowed on the root table")
				continue
			}
			t.Required = l.boolean(at, e.Value)
		case "cardinality":
			if root {
				l.addf(at, "not allowed on the root table")
				continue
			}
			s := l.str(at, e.Value)
			switch Cardinality(s) {
			case Single, Array:
				t.Cardinality = Cardinality(s)
			default:
				l.addf(at, "cardinality must be %q or %q, got %q", Single, Array, s)
			}
		default:
			l.addf(at, "unknown key %q in table definition", e.Key)
		}
	}
	return t
}

// isFieldEntry reports whether a table-valued entry declares a field. A
// nested table named "type" does not count.
func isFieldEntry(n *value.Node) bool {
	t, ok := n.Get("type")
	return ok && t.Kind != value.KindTable
}

func (l *loader) field(n *value.Node, name, path, loc string) *Field {
	f := &Field{Name: name, Path: path}

	var (
		typed     bool
		values    *value.Node
		tableName string
		hasTable  bool
	)
	for _, e := range n.Entries() {
		at := value.JoinPath(loc, e.Key)
		switch e.Key {
		case "type":
			s, ok := e.Value.AsString()
			if !ok {
				l.addf(at, "must be a string, got %s", e.Value.Kind)
				continue
			}
			vt, err := ParseType(s)
			if err != nil {
				l.addf(at, "%v", err)
				continue
			}
			f.Type = vt
			typed = true
		case "required":
			f.Required = l.boolean(at, e.Value)
		case "default":
			f.Default = e.Value
		case "ref":
			if f.Ref = l.str(at, e.Value); f.Ref == "" {
				l.addf(at, "must not be empty")
			}
		case "provides":
			if f.Provides = l.str(at, e.Value); f.Provides == "" {
				l.addf(at, "must not be empty")
			}
		case "values":
			values = e.Value
		case "table":
			tableName = l.str(at, e.Value)
			hasTable = true
		case "description":
			f.Description = l.str(at, e.Value)
		default:
			l.addf(at, "unknown key %q in field definition", e.Key)
		}
	}

	if !typed {
		return f
	}
	leaf := f.Type.Leaf()

	if values != nil {
		at := value.JoinPath(loc, "values")
		if leaf.Kind != TypeEnum {
			l.addf(at, "values is only allowed on enum types, field is %s", f.Type)
		} else {
			leaf.Values = l.enumValues(at, values)
		}
	}
	if leaf.Kind == TypeEnum && values == nil {
		l.addf(loc, "enum type requires values")
	}

	if hasTable {
		at := value.JoinPath(loc, "table")
		switch {
		case leaf.Kind != TypeTable:
			l.addf(at, "table is only allowed on table types, field is %s", f.Type)
		case !l.defs[tableName]:
			l.addf(at, "undefined table definition %q", tableName)
		default:
			leaf.Table = tableName
		}
	}

	if f.Ref != "" && !f.Type.IsStringLike() {
		l.addf(value.JoinPath(loc, "ref"), "ref requires type string or array<string>, field is %s", f.Type)
	}
	if f.Provides != "" && !f.Type.IsStringLike() {
		l.addf(value.JoinPath(loc, "provides"), "provides requires type string or array<string>, field is %s", f.Type)
	}

	if f.Default != nil {
		at := value.JoinPath(loc, "default")
		switch {
		case f.Required:
			l.addf(at, "default is not allowed on a required field")
		case !f.Type.Conforms(f.Default):
			l.addf(at, "default %s does not conform to type %s", value.FormatInline(f.Default), f.Type)
		}
	}
	return f
}

func (l *loader) enumValues(at string, n *value.Node) []string {
	if n.Kind != value.KindArray {
		l.addf(at, "must be an array of strings, got %s", n.Kind)
		return nil
	}
	if n.Len() == 0 {
		l.addf(at, "must not be empty")
		return nil
	}
	seen := make(map[string]bool, n.Len())
	out := make([]string, 0, n.Len())
	for i, item := range n.Items() {
		s, ok := item.AsString()
		if !ok {
			l.addf(value.IndexPath(at, i), "must be a string, got %s", item.Kind)
			continue
		}
		if seen[s] {
			l.addf(value.IndexPath(at, i), "duplicate enum value %q", s)
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
