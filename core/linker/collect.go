package linker

import (
	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/value"
)

// Collect harvests the names a document provides, as declared by its
// schema. A table with provides registers every key it matches; a field
// with provides registers its string value, or each string of an array.
//
// Collect does not validate. Values of the wrong shape are skipped.
func Collect(doc *value.Node, sch *schema.Document) *Registry {
	r := NewRegistry()
	if doc == nil || sch == nil || sch.Root == nil {
		return r
	}
	c := &collector{sch: sch, reg: r}
	c.table(sch.Root, doc)
	return r
}

type collector struct {
	sch *schema.Document
	reg *Registry
}

func (c *collector) table(t *schema.Table, n *value.Node) {
	if n.Kind != value.KindTable {
		return
	}
	for _, f := range t.Fields {
		if v, ok := n.Get(f.Name); ok {
			c.field(f, v)
		}
	}
	for _, child := range t.Tables {
		if v, ok := n.Get(child.Name); ok {
			c.member(child, child.Name, v)
		}
	}
	if t.Wildcard == nil && t.WildcardField == nil {
		return
	}
	for _, e := range n.Entries() {
		if t.Declares(e.Key) {
			continue
		}
		if t.Wildcard != nil {
			c.member(t.Wildcard, e.Key, e.Value)
		} else {
			c.field(t.WildcardField, e.Value)
		}
	}
}

func (c *collector) member(t *schema.Table, key string, v *value.Node) {
	if t.Provides != "" {
		c.reg.Add(t.Provides, key)
	}
	if t.Cardinality == schema.Array {
		for _, item := range v.Items() {
			c.table(t, item)
		}
		return
	}
	c.table(t, v)
}

func (c *collector) field(f *schema.Field, v *value.Node) {
	if f.Provides != "" {
		if s, ok := v.AsString(); ok {
			c.reg.Add(f.Provides, s)
		}
		for _, item := range v.Items() {
			if s, ok := item.AsString(); ok {
				c.reg.Add(f.Provides, s)
			}
		}
	}
	c.typed(&f.Type, v)
}

// typed descends into values shaped by named definitions.
func (c *collector) typed(t *schema.ValueType, v *value.Node) {
	switch t.Kind {
	case schema.TypeTable:
		if def := c.sch.Definition(t.Table); t.Table != "" && def != nil {
			c.table(def, v)
		}
	case schema.TypeArray:
		for _, item := range v.Items() {
			c.typed(t.Elem, item)
		}
	}
}
