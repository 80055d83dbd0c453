// Package validation walks a configuration document against a domain schema
// and reports every problem in one pass.
//
// Validate is a pure function of its inputs. Diagnostics follow a fixed
// traversal order so that independent implementations produce identical
// reports for identical input:
//
//  1. the table's fields, in schema declaration order
//  2. its child tables, in schema declaration order
//  3. remaining keys, in document order, against the wildcard entry or as
//     UnknownField when there is none
package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aurabx/harmony-dsl/core/linker"
	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/value"
	"github.com/aurabx/harmony-dsl/core/version"
)

// VersionKey is the reserved root key a document uses to declare the schema
// version it targets.
const VersionKey = "schema_version"

// Validate checks doc against sch. References resolve against names the
// document itself provides first, then against r, which may be nil.
func Validate(doc *value.Node, sch *schema.Document, r linker.Resolver) *Report {
	rep := &Report{
		Domain:        sch.Domain,
		SchemaVersion: sch.Version.String(),
		Diagnostics:   []Diagnostic{},
	}
	if doc == nil {
		doc = value.NewTable()
	}

	if !negotiate(doc, sch, rep) {
		return rep
	}

	w := &walker{
		sch: sch,
		res: linker.Chain(linker.Collect(doc, sch), r),
		rep: rep,
	}
	if doc.Kind != value.KindTable {
		w.mismatch("", "table", doc)
		return rep
	}
	if sch.Root != nil {
		w.table(sch.Root, doc, "", true)
	}
	return rep
}

// negotiate gates the walk on the declared version. It reports false when
// the walk must be skipped.
func negotiate(doc *value.Node, sch *schema.Document, rep *Report) bool {
	declared := version.Assumed(sch.Version)

	if n, ok := doc.Get(VersionKey); ok {
		s, ok := n.AsString()
		if !ok {
			rep.Add(VersionKey, VersionIncompatible,
				fmt.Sprintf("schema_version must be a string, found %s", n.Kind), n.Line)
			return false
		}
		v, err := version.Parse(s)
		if err != nil {
			rep.Add(VersionKey, VersionIncompatible, err.Error(), n.Line)
			return false
		}
		declared = v
		rep.DeclaredVersion = v.String()
	}

	if version.Negotiate(declared, sch.Version) == version.Incompatible {
		line := 0
		if n, ok := doc.Get(VersionKey); ok {
			line = n.Line
		}
		rep.Add(VersionKey, VersionIncompatible,
			fmt.Sprintf("document targets %s schema %s, which is incompatible with %s",
				sch.Domain, declared, sch.Version), line)
		return false
	}
	return true
}

type walker struct {
	sch *schema.Document
	res linker.Resolver
	rep *Report
}

func (w *walker) table(t *schema.Table, n *value.Node, path string, root bool) {
	for _, f := range t.Fields {
		fp := value.JoinPath(path, f.Name)
		v, ok := n.Get(f.Name)
		if !ok {
			w.absent(f, fp, n.Line)
			continue
		}
		w.field(f, v, fp)
	}

	for _, c := range t.Tables {
		cp := value.JoinPath(path, c.Name)
		v, ok := n.Get(c.Name)
		if !ok {
			if c.Required {
				w.rep.Add(cp, MissingRequiredField, fmt.Sprintf("required table %s is missing", cp), n.Line)
			}
			continue
		}
		w.member(c, v, cp)
	}

	for _, e := range n.Entries() {
		if t.Declares(e.Key) || (root && e.Key == VersionKey) {
			continue
		}
		kp := value.JoinPath(path, e.Key)
		switch {
		case t.Wildcard != nil:
			w.member(t.Wildcard, e.Value, kp)
		case t.WildcardField != nil:
			w.field(t.WildcardField, e.Value, kp)
		default:
			w.rep.Add(kp, UnknownField, fmt.Sprintf("unknown key %s is not defined in the schema", kp), e.Value.Line)
		}
	}
}

// member validates a value matched by a table definition, which may be a
// single table or an array of tables.
func (w *walker) member(t *schema.Table, v *value.Node, path string) {
	if t.Cardinality != schema.Array {
		if v.Kind != value.KindTable {
			w.mismatch(path, "table", v)
			return
		}
		w.table(t, v, path, false)
		return
	}

	if v.Kind != value.KindArray {
		w.mismatch(path, "array of tables", v)
		return
	}
	for i, item := range v.Items() {
		ip := value.IndexPath(path, i)
		if item.Kind != value.KindTable {
			w.mismatch(ip, "table", item)
			continue
		}
		w.table(t, item, ip, false)
	}
}

func (w *walker) absent(f *schema.Field, path string, line int) {
	if f.Required {
		w.rep.Add(path, MissingRequiredField, fmt.Sprintf("required field %s is missing", path), line)
		return
	}
	if f.Default != nil {
		w.rep.Defaults = append(w.rep.Defaults, AppliedDefault{Path: path, Value: f.Default})
	}
}

func (w *walker) field(f *schema.Field, v *value.Node, path string) {
	if !w.check(&f.Type, v, path) || f.Ref == "" {
		return
	}

	if s, ok := v.AsString(); ok {
		w.resolve(f.Ref, s, path, v.Line)
		return
	}
	for i, item := range v.Items() {
		if s, ok := item.AsString(); ok {
			w.resolve(f.Ref, s, value.IndexPath(path, i), item.Line)
		}
	}
}

// check type-checks v and reports whether it conforms.
func (w *walker) check(t *schema.ValueType, v *value.Node, path string) bool {
	if !t.Accepts(v.Kind) {
		w.mismatch(path, t.String(), v)
		return false
	}

	switch t.Kind {
	case schema.TypeEnum:
		s, _ := v.AsString()
		if !slices.Contains(t.Values, s) {
			w.rep.Add(path, TypeMismatch,
				fmt.Sprintf("expected one of [%s], found %q", strings.Join(t.Values, ", "), s), v.Line)
			return false
		}
	case schema.TypeArray:
		ok := true
		for i, item := range v.Items() {
			if !w.check(t.Elem, item, value.IndexPath(path, i)) {
				ok = false
			}
		}
		return ok
	case schema.TypeTable:
		if t.Table == "" {
			return true
		}
		before := len(w.rep.Diagnostics)
		if def := w.sch.Definition(t.Table); def != nil {
			w.table(def, v, path, false)
		}
		return len(w.rep.Diagnostics) == before
	}
	return true
}

func (w *walker) resolve(target, name, path string, line int) {
	if w.res.Resolve(target, name) {
		return
	}
	w.rep.Add(path, UnresolvedReference, fmt.Sprintf("%q does not name a known %s", name, target), line)
}

func (w *walker) mismatch(path, expected string, v *value.Node) {
	w.rep.Add(path, TypeMismatch, fmt.Sprintf("expected %s, found %s", expected, v.Kind), v.Line)
}
