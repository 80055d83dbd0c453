// Package value is the format-neutral tree a configuration document is parsed
// into before any schema is applied.
//
// A Node is a tagged union of scalars (string, integer, float, boolean,
// datetime), tables and arrays. Tables keep their keys in insertion order so
// that diagnostics which follow document order are reproducible.
package value

import (
	"encoding/json"
	"math"
)

// Kind identifies the variant held by a Node.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindDatetime
	KindTable
	KindArray
)

// String returns the kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindDatetime:
		return "datetime"
	case KindTable:
		return "table"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// IsScalar reports whether the kind is a leaf value.
func (k Kind) IsScalar() bool {
	switch k {
	case KindString, KindInteger, KindFloat, KindBoolean, KindDatetime:
		return true
	default:
		return false
	}
}

// Entry is one key of a table, in insertion order.
type Entry struct {
	Key   string
	Value *Node
}

// Node is a single value in the tree.
type Node struct {
	Kind Kind

	// Line is the 1-based source line the value was defined on, or 0 when
	// the node was built in memory.
	Line int

	str   string // string, datetime
	num   int64
	fl    float64
	flag  bool
	items []*Node

	entries []Entry
	index   map[string]int
}

// String returns a string scalar.
func String(s string) *Node { return &Node{Kind: KindString, str: s} }

// Int returns an integer scalar.
func Int(i int64) *Node { return &Node{Kind: KindInteger, num: i} }

// Float returns a float scalar.
func Float(f float64) *Node { return &Node{Kind: KindFloat, fl: f} }

// Bool returns a boolean scalar.
func Bool(b bool) *Node { return &Node{Kind: KindBoolean, flag: b} }

// Datetime returns a datetime scalar holding its RFC 3339 text.
func Datetime(text string) *Node { return &Node{Kind: KindDatetime, str: text} }

// NewTable returns an empty table.
func NewTable() *Node {
	return &Node{Kind: KindTable, index: make(map[string]int)}
}

// NewArray returns an array holding items.
func NewArray(items ...*Node) *Node {
	return &Node{Kind: KindArray, items: append([]*Node(nil), items...)}
}

// AsString returns the string payload of a string node.
func (n *Node) AsString() (string, bool) {
	if n == nil || n.Kind != KindString {
		return "", false
	}
	return n.str, true
}

// AsInt returns the payload of an integer node.
func (n *Node) AsInt() (int64, bool) {
	if n == nil || n.Kind != KindInteger {
		return 0, false
	}
	return n.num, true
}

// AsFloat returns the payload of a float node. Integers widen to float.
func (n *Node) AsFloat() (float64, bool) {
	if n == nil {
		return 0, false
	}
	switch n.Kind {
	case KindFloat:
		return n.fl, true
	case KindInteger:
		return float64(n.num), true
	}
	return 0, false
}

// AsBool returns the payload of a boolean node.
func (n *Node) AsBool() (bool, bool) {
	if n == nil || n.Kind != KindBoolean {
		return false, false
	}
	return n.flag, true
}

// AsDatetime returns the raw text of a datetime node.
func (n *Node) AsDatetime() (string, bool) {
	if n == nil || n.Kind != KindDatetime {
		return "", false
	}
	return n.str, true
}

// Get returns the value stored under key in a table.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != KindTable {
		return nil, false
	}
	i, ok := n.index[key]
	if !ok {
		return nil, false
	}
	return n.entries[i].Value, true
}

// Has reports whether a table holds key.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Set stores v under key. A new key is appended; an existing key keeps its
// position and has its value replaced.
func (n *Node) Set(key string, v *Node) {
	if n.Kind != KindTable {
		panic("value: Set on " + n.Kind.String())
	}
	if n.index == nil {
		n.index = make(map[string]int)
	}
	if i, ok := n.index[key]; ok {
		n.entries[i].Value = v
		return
	}
	n.index[key] = len(n.entries)
	n.entries = append(n.entries, Entry{Key: key, Value: v})
}

// Keys returns the table keys in insertion order.
func (n *Node) Keys() []string {
	if n == nil || n.Kind != KindTable {
		return nil
	}
	keys := make([]string, len(n.entries))
	for i, e := range n.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns the table entries in insertion order.
func (n *Node) Entries() []Entry {
	if n == nil || n.Kind != KindTable {
		return nil
	}
	return append([]Entry(nil), n.entries...)
}

// Items returns the elements of an array.
func (n *Node) Items() []*Node {
	if n == nil || n.Kind != KindArray {
		return nil
	}
	return append([]*Node(nil), n.items...)
}

// Append adds an element to an array.
func (n *Node) Append(v *Node) {
	if n.Kind != KindArray {
		panic("value: Append on " + n.Kind.String())
	}
	n.items = append(n.items, v)
}

// Len returns the number of keys of a table or elements of an array.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case KindTable:
		return len(n.entries)
	case KindArray:
		return len(n.items)
	}
	return 0
}

// Lookup walks nested tables along path.
func (n *Node) Lookup(path ...string) (*Node, bool) {
	cur := n
	for _, key := range path {
		next, ok := cur.Get(key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// Interface converts the node to plain Go values: map[string]any, []any,
// string, int64, float64 or bool. Datetimes become their text.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindString, KindDatetime:
		return n.str
	case KindInteger:
		return n.num
	case KindFloat:
		return n.fl
	case KindBoolean:
		return n.flag
	case KindArray:
		out := make([]any, len(n.items))
		for i, item := range n.items {
			out[i] = item.Interface()
		}
		return out
	case KindTable:
		out := make(map[string]any, len(n.entries))
		for _, e := range n.entries {
			out[e.Key] = e.Value.Interface()
		}
		return out
	}
	return nil
}

// MarshalJSON encodes the node as its plain Go equivalent. Non-finite
// floats have no JSON form and are written as strings.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n != nil && n.Kind == KindFloat && (math.IsInf(n.fl, 0) || math.IsNaN(n.fl)) {
		return json.Marshal(formatFloat(n.fl))
	}
	return json.Marshal(n.Interface())
}

// Equal reports whether two trees hold the same values. Table key order is
// significant; source lines are not.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case KindString, KindDatetime:
		return n.str == o.str
	case KindInteger:
		return n.num == o.num
	case KindFloat:
		if math.IsNaN(n.fl) && math.IsNaN(o.fl) {
			return true
		}
		return n.fl == o.fl
	case KindBoolean:
		return n.flag == o.flag
	case KindArray:
		if len(n.items) != len(o.items) {
			return false
		}
		for i := range n.items {
			if !n.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindTable:
		if len(n.entries) != len(o.entries) {
			return false
		}
		for i := range n.entries {
			if n.entries[i].Key != o.entries[i].Key || !n.entries[i].Value.Equal(o.entries[i].Value) {
				return false
			}
		}
		return true
	}
	return true
}
