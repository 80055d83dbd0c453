package schema

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/aurabx/harmony-dsl/core/value"
)

// Encode writes doc back out as canonical schema text. Loading the result
// yields a Document equal to doc apart from Source and Fingerprint.
//
// Within a table, fields are written before child tables, and the wildcard
// entry comes last.
func Encode(doc *Document) []byte {
	var buf bytes.Buffer
	w := &encoder{buf: &buf}

	w.kv(keySchemaVersion, value.QuoteString(doc.Version.String()))
	if doc.Domain != "" {
		w.kv(keyDomain, value.QuoteString(string(doc.Domain)))
	}
	if doc.Description != "" {
		w.kv(keyDescription, value.QuoteString(doc.Description))
	}

	if doc.Root != nil {
		w.table(doc.Root, headerPath(keySchema, doc.Root.Path))
	}
	for _, def := range doc.Definitions {
		w.table(def, headerPath("", def.Path))
	}
	return buf.Bytes()
}

type encoder struct {
	buf *bytes.Buffer
}

func (w *encoder) kv(key, literal string) {
	fmt.Fprintf(w.buf, "%s = %s\n", value.QuoteKey(key), literal)
}

func (w *encoder) header(h string) {
	fmt.Fprintf(w.buf, "\n[%s]\n", h)
}

func (w *encoder) table(t *Table, header string) {
	w.header(header)
	if t.Description != "" {
		w.kv("description", value.QuoteString(t.Description))
	}
	if t.Required {
		w.kv("required", "true")
	}
	if t.Cardinality == Array {
		w.kv("cardinality", value.QuoteString(string(Array)))
	}
	if t.Provides != "" {
		w.kv("provides", value.QuoteString(t.Provides))
	}

	for _, f := range t.Fields {
		w.field(f, childHeader(header, f.Name))
	}
	for _, c := range t.Tables {
		w.table(c, childHeader(header, c.Name))
	}
	if t.WildcardField != nil {
		w.field(t.WildcardField, childHeader(header, Wildcard))
	}
	if t.Wildcard != nil {
		w.table(t.Wildcard, childHeader(header, Wildcard))
	}
}

func (w *encoder) field(f *Field, header string) {
	w.header(header)
	w.kv("type", value.QuoteString(f.Type.String()))
	if f.Required {
		w.kv("required", "true")
	}
	if f.Default != nil {
		w.kv("default", value.FormatInline(f.Default))
	}
	leaf := f.Type.Leaf()
	if len(leaf.Values) > 0 {
		quoted := make([]string, len(leaf.Values))
		for i, v := range leaf.Values {
			quoted[i] = value.QuoteString(v)
		}
		w.kv("values", "["+strings.Join(quoted, ", ")+"]")
	}
	if leaf.Table != "" {
		w.kv("table", value.QuoteString(leaf.Table))
	}
	if f.Ref != "" {
		w.kv("ref", value.QuoteString(f.Ref))
	}
	if f.Provides != "" {
		w.kv("provides", value.QuoteString(f.Provides))
	}
	if f.Description != "" {
		w.kv("description", value.QuoteString(f.Description))
	}
}

func childHeader(header, key string) string {
	return header + "." + value.QuoteKey(key)
}
