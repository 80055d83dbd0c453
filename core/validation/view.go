package validation

import (
	"strconv"
	"strings"

	"github.com/aurabx/harmony-dsl/core/value"
)

// View reads a validated document with defaults filled in. The document is
// never modified.
type View struct {
	doc      *value.Node
	defaults map[string]*value.Node
}

// NewView layers the defaults recorded in rep over doc.
func NewView(doc *value.Node, rep *Report) *View {
	v := &View{doc: doc, defaults: make(map[string]*value.Node)}
	if rep != nil {
		for _, d := range rep.Defaults {
			v.defaults[d.Path] = d.Value
		}
	}
	return v
}

// Get returns the value at a diagnostic-style path such as
// "routes[0].backend".
func (v *View) Get(path string) (*value.Node, bool) {
	if n, ok := lookup(v.doc, path); ok {
		return n, true
	}
	n, ok := v.defaults[path]
	return n, ok
}

// IsDefault reports whether the value at path comes from a schema default.
func (v *View) IsDefault(path string) bool {
	if _, ok := lookup(v.doc, path); ok {
		return false
	}
	_, ok := v.defaults[path]
	return ok
}

func (v *View) String(path string) (string, bool) {
	n, ok := v.Get(path)
	if !ok {
		return "", false
	}
	return n.AsString()
}

func (v *View) Int(path string) (int64, bool) {
	n, ok := v.Get(path)
	if !ok {
		return 0, false
	}
	return n.AsInt()
}

func (v *View) Float(path string) (float64, bool) {
	n, ok := v.Get(path)
	if !ok {
		return 0, false
	}
	return n.AsFloat()
}

func (v *View) Bool(path string) (bool, bool) {
	n, ok := v.Get(path)
	if !ok {
		return false, false
	}
	return n.AsBool()
}

func lookup(doc *value.Node, path string) (*value.Node, bool) {
	if doc == nil {
		return nil, false
	}
	cur := doc
	for _, seg := range value.SplitPath(path) {
		if idx, ok := strings.CutPrefix(seg, "["); ok {
			i, err := strconv.Atoi(strings.TrimSuffix(idx, "]"))
			items := cur.Items()
			if err != nil || i < 0 || i >= len(items) {
				return nil, false
			}
			cur = items[i]
			continue
		}
		next, ok := cur.Get(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
