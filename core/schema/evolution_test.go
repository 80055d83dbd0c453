package schema

import (
	"testing"
)

const baseSchema = `
schema_version = "1.3.0"

[schema.proxy]
required = true

[schema.proxy.id]
type = "string"
required = true

[schema.proxy.mode]
type = "enum"
values = ["edge", "relay"]

[schema.routes]
cardinality = "array"

[schema.routes.path]
type = "string"
`

func mustLoad(t *testing.T, text string) *Document {
	t.Helper()
	doc, err := Load([]byte(text), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return doc
}

func TestCheckEvolution(t *testing.T) {
	tests := []struct {
		name  string
		next  string
		types []string
	}{
		{
			name: "optional field added",
			next: `
schema_version = "1.4.0"
[schema.proxy]
required = true
[schema.proxy.id]
type = "string"
required = true
[schema.proxy.mode]
type = "enum"
values = ["edge", "relay", "mesh"]
[schema.proxy.log_level]
type = "integer"
default = 1
[schema.routes]
cardinality = "array"
[schema.routes.path]
type = "string"
`,
		},
		{
			name: "field removed and retyped",
			next: `
schema_version = "1.4.0"
[schema.proxy]
required = true
[schema.proxy.id]
type = "integer"
required = true
[schema.routes]
cardinality = "array"
[schema.routes.path]
type = "string"
`,
			types: []string{ChangeFieldRetyped, ChangeFieldRemoved},
		},
		{
			name: "required added and enum narrowed",
			next: `
schema_version = "1.4.0"
[schema.proxy]
required = true
[schema.proxy.id]
type = "string"
required = true
[schema.proxy.mode]
type = "enum"
values = ["edge"]
[schema.proxy.region]
type = "string"
required = true
[schema.routes]
cardinality = "array"
[schema.routes.path]
type = "string"
required = true
`,
			types: []string{ChangeEnumValueRemoved, ChangeFieldBecameRequired, ChangeRequiredFieldAdded},
		},
		{
			name: "table removed and version not increased",
			next: `
schema_version = "1.3.0"
[schema.proxy]
required = true
[schema.proxy.id]
type = "string"
required = true
[schema.proxy.mode]
type = "enum"
values = ["edge", "relay"]
`,
			types: []string{ChangeVersionNotIncreased, ChangeTableRemoved},
		},
		{
			name: "major bump allows removal",
			next: `
schema_version = "2.0.0"
[schema.proxy.id]
type = "integer"
required = true
`,
		},
		{
			name: "cardinality changed",
			next: `
schema_version = "1.3.1"
[schema.proxy]
required = true
[schema.proxy.id]
type = "string"
required = true
[schema.proxy.mode]
type = "enum"
values = ["edge", "relay"]
[schema.routes.path]
type = "string"
`,
			types: []string{ChangeCardinalityChanged},
		},
	}

	before := mustLoad(t, baseSchema)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := CheckEvolution(before, mustLoad(t, tt.next))
			var got []string
			for _, c := range changes {
				got = append(got, c.Type)
			}
			if len(got) != len(tt.types) {
				t.Fatalf("CheckEvolution() = %+v, want types %v", changes, tt.types)
			}
			for i := range got {
				if got[i] != tt.types[i] {
					t.Errorf("change[%d].Type = %q, want %q", i, got[i], tt.types[i])
				}
			}
		})
	}
}
