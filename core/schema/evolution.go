package schema

import (
	"fmt"
	"slices"

	"github.com/aurabx/harmony-dsl/core/value"
)

// Breaking change types reported by CheckEvolution.
const (
	ChangeFieldRemoved        = "field_removed"
	ChangeRequiredFieldAdded  = "required_field_added"
	ChangeFieldRetyped        = "field_retyped"
	ChangeFieldBecameRequired = "field_became_required"
	ChangeTableRemoved        = "table_removed"
	ChangeCardinalityChanged  = "cardinality_changed"
	ChangeEnumValueRemoved    = "enum_value_removed"
	ChangeVersionNotIncreased = "version_not_increased"
)

// BreakingChange describes one incompatible difference between two
// releases of a schema.
type BreakingChange struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Detail string `json:"detail"`
}

// CheckEvolution compares two releases of a domain schema. Within a major
// version a new release may only add optional fields and tables; across a
// major bump anything goes as long as the version increases.
func CheckEvolution(before, after *Document) []BreakingChange {
	var changes []BreakingChange

	if after.Version.Compare(before.Version) <= 0 {
		changes = append(changes, BreakingChange{
			Type:   ChangeVersionNotIncreased,
			Path:   keySchemaVersion,
			Detail: fmt.Sprintf("version %s does not increase on %s", after.Version, before.Version),
		})
	}
	if after.Version.Major != before.Version.Major {
		return changes
	}

	oldTables, oldFields := index(before)
	newTables, newFields := index(after)

	removed := make(map[string]bool)
	before.Walk(func(t *Table) {
		if t.Path != "" && removed[parentPath(t.Path)] {
			removed[t.Path] = true
			return
		}
		nt, ok := newTables[t.Path]
		if !ok {
			removed[t.Path] = true
			changes = append(changes, BreakingChange{
				Type:   ChangeTableRemoved,
				Path:   t.Path,
				Detail: fmt.Sprintf("table %s was removed", t.Path),
			})
			return
		}
		if nt.Cardinality != t.Cardinality {
			changes = append(changes, BreakingChange{
				Type:   ChangeCardinalityChanged,
				Path:   t.Path,
				Detail: fmt.Sprintf("cardinality changed from %s to %s", t.Cardinality, nt.Cardinality),
			})
		}
		if nt.Required && !t.Required {
			changes = append(changes, BreakingChange{
				Type:   ChangeFieldBecameRequired,
				Path:   t.Path,
				Detail: fmt.Sprintf("table %s became required", t.Path),
			})
		}

		for _, f := range t.AllFields() {
			changes = append(changes, compareField(f, newFields[f.Path])...)
		}
	})

	after.Walk(func(t *Table) {
		_, existed := oldTables[t.Path]
		if !existed {
			if _, ok := oldTables[parentPath(t.Path)]; ok && t.Required {
				changes = append(changes, BreakingChange{
					Type:   ChangeRequiredFieldAdded,
					Path:   t.Path,
					Detail: fmt.Sprintf("required table %s was added", t.Path),
				})
			}
			return
		}
		for _, f := range t.AllFields() {
			if _, ok := oldFields[f.Path]; !ok && f.Required {
				changes = append(changes, BreakingChange{
					Type:   ChangeRequiredFieldAdded,
					Path:   f.Path,
					Detail: fmt.Sprintf("required field %s was added", f.Path),
				})
			}
		}
	})

	return changes
}

func compareField(before, after *Field) []BreakingChange {
	if after == nil {
		return []BreakingChange{{
			Type:   ChangeFieldRemoved,
			Path:   before.Path,
			Detail: fmt.Sprintf("field %s was removed", before.Path),
		}}
	}

	var changes []BreakingChange
	if before.Type.String() != after.Type.String() || before.Type.Leaf().Table != after.Type.Leaf().Table {
		changes = append(changes, BreakingChange{
			Type:   ChangeFieldRetyped,
			Path:   before.Path,
			Detail: fmt.Sprintf("type changed from %s to %s", before.Type, after.Type),
		})
	} else {
		for _, v := range before.Type.Leaf().Values {
			if !slices.Contains(after.Type.Leaf().Values, v) {
				changes = append(changes, BreakingChange{
					Type:   ChangeEnumValueRemoved,
					Path:   before.Path,
					Detail: fmt.Sprintf("enum value %q was removed", v),
				})
			}
		}
	}
	if after.Required && !before.Required {
		changes = append(changes, BreakingChange{
			Type:   ChangeFieldBecameRequired,
			Path:   before.Path,
			Detail: fmt.Sprintf("field %s became required", before.Path),
		})
	}
	return changes
}

func index(doc *Document) (map[string]*Table, map[string]*Field) {
	tables := make(map[string]*Table)
	fields := make(map[string]*Field)
	doc.Walk(func(t *Table) {
		tables[t.Path] = t
		for _, f := range t.AllFields() {
			fields[f.Path] = f
		}
	})
	return tables, fields
}

func parentPath(path string) string {
	segs := value.SplitPath(path)
	parent := ""
	for _, s := range segs[:max(len(segs)-1, 0)] {
		parent = joinPath(parent, s)
	}
	return parent
}
