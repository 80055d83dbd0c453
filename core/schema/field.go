package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aurabx/harmony-dsl/core/value"
)

// Field describes a single configuration key.
type Field struct {
	Name string

	// Path is the dotted location of the field, with "*" for wildcard
	// segments.
	Path string

	Type     ValueType
	Required bool

	// Default is substituted into the consumer view when an optional field
	// is absent. Nil when the field has no default.
	Default *value.Node

	// Ref names the reference target the value must resolve against.
	Ref string

	// Provides registers the field's string value(s) under a reference
	// target.
	Provides string

	Description string
}

// TypeKind is the base of a value type.
type TypeKind string

const (
	TypeString   TypeKind = "string"
	TypeInteger  TypeKind = "integer"
	TypeFloat    TypeKind = "float"
	TypeBoolean  TypeKind = "boolean"
	TypeDatetime TypeKind = "datetime"
	TypeEnum     TypeKind = "enum"
	TypeTable    TypeKind = "table"
	TypeArray    TypeKind = "array"
)

// ValueType is a field's declared type.
type ValueType struct {
	Kind TypeKind

	// Values are the enum members, in declaration order.
	Values []string

	// Table names the definition a table value must match. Empty means
	// any table.
	Table string

	// Elem is the element type of an array.
	Elem *ValueType
}

// ParseType parses a type token such as "string" or "array<array<integer>>".
func ParseType(token string) (ValueType, error) {
	token = strings.TrimSpace(token)
	if inner, ok := strings.CutPrefix(token, "array<"); ok {
		inner, ok = strings.CutSuffix(inner, ">")
		if !ok {
			return ValueType{}, fmt.Errorf("unknown type %q", token)
		}
		elem, err := ParseType(inner)
		if err != nil {
			return ValueType{}, fmt.Errorf("unknown type %q", token)
		}
		return ValueType{Kind: TypeArray, Elem: &elem}, nil
	}

	switch k := TypeKind(token); k {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeDatetime, TypeEnum, TypeTable:
		return ValueType{Kind: k}, nil
	}
	return ValueType{}, fmt.Errorf("unknown type %q", token)
}

// String returns the type token.
func (t ValueType) String() string {
	if t.Kind == TypeArray && t.Elem != nil {
		return "array<" + t.Elem.String() + ">"
	}
	return string(t.Kind)
}

// Leaf returns the innermost element type of nested arrays.
func (t *ValueType) Leaf() *ValueType {
	cur := t
	for cur.Kind == TypeArray && cur.Elem != nil {
		cur = cur.Elem
	}
	return cur
}

// IsStringLike reports whether the type is string or array<string>, the
// only shapes that may carry a reference.
func (t ValueType) IsStringLike() bool {
	if t.Kind == TypeString {
		return true
	}
	return t.Kind == TypeArray && t.Elem != nil && t.Elem.Kind == TypeString
}

// ValueKind is the document kind that satisfies the type.
func (t ValueType) ValueKind() value.Kind {
	switch t.Kind {
	case TypeString, TypeEnum:
		return value.KindString
	case TypeInteger:
		return value.KindInteger
	case TypeFloat:
		return value.KindFloat
	case TypeBoolean:
		return value.KindBoolean
	case TypeDatetime:
		return value.KindDatetime
	case TypeTable:
		return value.KindTable
	case TypeArray:
		return value.KindArray
	}
	return value.KindInvalid
}

// Accepts reports whether a value of kind k is acceptable where t is
// expected, ignoring enum membership and element types. Integers are
// accepted for floats.
func (t ValueType) Accepts(k value.Kind) bool {
	want := t.ValueKind()
	if want == k {
		return true
	}
	return want == value.KindFloat && k == value.KindInteger
}

// Conforms reports whether n is a complete, valid value of type t. Table
// shapes are not checked.
func (t ValueType) Conforms(n *value.Node) bool {
	if n == nil || !t.Accepts(n.Kind) {
		return false
	}
	switch t.Kind {
	case TypeEnum:
		s, _ := n.AsString()
		return slices.Contains(t.Values, s)
	case TypeArray:
		for _, item := range n.Items() {
			if !t.Elem.Conforms(item) {
				return false
			}
		}
	}
	return true
}
