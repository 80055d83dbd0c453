package validation

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/aurabx/harmony-dsl/core/linker"
	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/value"
)

const proxySchema = `
schema_version = "1.3.0"
domain = "gateway"

[schema.proxy]
required = true

[schema.proxy.id]
type = "string"
required = true

[schema.proxy.log_level]
type = "integer"
default = 1
`

const pipelineSchema = `
schema_version = "1.8.0"
domain = "pipeline"

[schema.pipelines."*"]
provides = "pipeline"

[schema.pipelines."*".backends]
type = "array<string>"
required = true
ref = "backend"

[schema.pipelines."*".middleware]
type = "array<string>"
ref = "middleware"

[schema.backends."*"]
provides = "backend"

[schema.backends."*".service]
type = "string"
required = true
ref = "service_type"

[schema.backends."*".weight]
type = "float"
default = 1.0

[schema.backends."*".mode]
type = "enum"
values = ["sync", "async"]

[schema.routes]
cardinality = "array"

[schema.routes.path]
type = "string"
required = true

[schema.routes.tls]
type = "table"
table = "tls"

[schema.provider."*"]
type = "string"

[definitions.tls]
[definitions.tls.cert_path]
type = "string"
required = true
`

func load(t *testing.T, text string) *schema.Document {
	t.Helper()
	doc, err := schema.Load([]byte(text), "")
	if err != nil {
		t.Fatalf("schema.Load failed: %v", err)
	}
	return doc
}

func decode(t *testing.T, text string) *value.Node {
	t.Helper()
	doc, err := value.Decode([]byte(text))
	if err != nil {
		t.Fatalf("value.Decode failed: %v", err)
	}
	return doc
}

func kinds(rep *Report) string {
	var parts []string
	for _, d := range rep.Diagnostics {
		parts = append(parts, string(d.Kind)+"@"+d.Path)
	}
	return strings.Join(parts, " ")
}

func TestValidateProxyScenarios(t *testing.T) {
	sch := load(t, proxySchema)

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "exact match",
			doc:  "[proxy]\nid = \"edge-1\"\n",
			want: "",
		},
		{
			name: "missing id",
			doc:  "[proxy]\n",
			want: "MissingRequiredField@proxy.id",
		},
		{
			name: "unknown key",
			doc:  "[proxy]\nid = \"edge-1\"\nbogus = true\n",
			want: "UnknownField@proxy.bogus",
		},
		{
			name: "missing proxy table",
			doc:  "",
			want: "MissingRequiredField@proxy",
		},
		{
			name: "wrong types",
			doc:  "[proxy]\nid = 7\nlog_level = \"debug\"\n",
			want: "TypeMismatch@proxy.id TypeMismatch@proxy.log_level",
		},
		{
			name: "proxy not a table",
			doc:  "proxy = \"edge\"\n",
			want: "TypeMismatch@proxy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Validate(decode(t, tt.doc), sch, nil)
			if got := kinds(rep); got != tt.want {
				t.Errorf("Validate() = %q, want %q", got, tt.want)
			}
			if rep.Valid() != (tt.want == "") {
				t.Errorf("Valid() = %v, want %v", rep.Valid(), tt.want == "")
			}
		})
	}
}

func TestValidateAppliesDefaultsToView(t *testing.T) {
	sch := load(t, proxySchema)
	doc := decode(t, "[proxy]\nid = \"edge-1\"\n")

	rep := Validate(doc, sch, nil)
	if !rep.Valid() {
		t.Fatalf("Validate() = %s, want valid", rep.Error())
	}
	if len(rep.Defaults) != 1 || rep.Defaults[0].Path != "proxy.log_level" {
		t.Fatalf("Defaults = %+v, want proxy.log_level", rep.Defaults)
	}

	view := NewView(doc, rep)
	if lvl, ok := view.Int("proxy.log_level"); !ok || lvl != 1 {
		t.Errorf("view.Int(proxy.log_level) = %d, %v, want 1, true", lvl, ok)
	}
	if !view.IsDefault("proxy.log_level") {
		t.Error("IsDefault(proxy.log_level) = false, want true")
	}
	if id, _ := view.String("proxy.id"); id != "edge-1" {
		t.Errorf("view.String(proxy.id) = %q, want edge-1", id)
	}
	if view.IsDefault("proxy.id") {
		t.Error("IsDefault(proxy.id) = true, want false")
	}

	proxy, _ := doc.Get("proxy")
	if proxy.Has("log_level") {
		t.Error("Validate mutated the document")
	}
}

func TestValidateMessagesNameBothKinds(t *testing.T) {
	sch := load(t, proxySchema)
	rep := Validate(decode(t, "[proxy]\nid = true\n"), sch, nil)
	if len(rep.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %+v, want 1", rep.Diagnostics)
	}
	msg := rep.Diagnostics[0].Message
	if !strings.Contains(msg, "string") || !strings.Contains(msg, "boolean") {
		t.Errorf("Message = %q, want expected and actual kinds", msg)
	}
	if rep.Diagnostics[0].Line != 2 {
		t.Errorf("Line = %d, want 2", rep.Diagnostics[0].Line)
	}
}

func TestValidateReferences(t *testing.T) {
	sch := load(t, pipelineSchema)
	gateway := linker.FromMap(map[string][]string{
		"service_type": {"http"},
		"middleware":   {"auth"},
	})

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "resolves through gateway and local backends",
			doc: `
[pipelines.main]
backends = ["primary"]
middleware = ["auth"]

[backends.primary]
service = "http"
`,
			want: "",
		},
		{
			name: "unknown service type",
			doc: `
[pipelines.main]
backends = ["primary"]

[backends.primary]
service = "grpc"
`,
			want: "UnresolvedReference@backends.primary.service",
		},
		{
			name: "unknown backend and middleware",
			doc: `
[pipelines.main]
backends = ["primary", "missing"]
middleware = ["auth", "rate"]

[backends.primary]
service = "http"
`,
			want: "UnresolvedReference@pipelines.main.backends[1] UnresolvedReference@pipelines.main.middleware[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Validate(decode(t, tt.doc), sch, gateway)
			if got := kinds(rep); got != tt.want {
				t.Errorf("Validate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateConcurrentSharedSchema(t *testing.T) {
	sch := load(t, pipelineSchema)
	gateway := linker.FromMap(map[string][]string{"service_type": {"http"}})
	text := `
[pipelines.main]
backends = ["primary", "missing"]
middleware = ["auth"]

[backends.primary]
service = "grpc"
weight = "heavy"

[[routes]]
path = "/a"

[[routes]]
tls = { cert_path = 3 }
`
	want, err := json.Marshal(Validate(decode(t, text), sch, gateway))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	const workers = 32
	docs := make([]*value.Node, workers)
	for i := range docs {
		docs[i] = decode(t, text)
	}
	got := make([][]byte, workers)

	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = json.Marshal(Validate(docs[i], sch, gateway))
		}(i)
	}
	wg.Wait()

	for i := range got {
		if string(got[i]) != string(want) {
			t.Errorf("worker %d report = %s, want %s", i, got[i], want)
		}
	}
	if !strings.Contains(string(want), "UnresolvedReference") || !strings.Contains(string(want), "MissingRequiredField") {
		t.Errorf("reference report = %s, want reference and required-field problems", want)
	}
}

func TestValidateNilResolverResolvesOnlyLocalNames(t *testing.T) {
	sch := load(t, pipelineSchema)
	doc := decode(t, `
[pipelines.main]
backends = ["primary"]

[backends.primary]
service = "http"
`)
	rep := Validate(doc, sch, nil)
	if got := kinds(rep); got != "UnresolvedReference@backends.primary.service" {
		t.Errorf("Validate() = %q", got)
	}
}

func TestValidateWildcardsNeverUnknown(t *testing.T) {
	sch := load(t, pipelineSchema)
	doc := decode(t, `
[provider]
custom_x = "a"
"odd.name" = "b"
bad = 3
`)
	rep := Validate(doc, sch, nil)
	if rep.Count(UnknownField) != 0 {
		t.Errorf("wildcard keys reported as unknown: %s", kinds(rep))
	}
	if got := kinds(rep); got != "TypeMismatch@provider.bad" {
		t.Errorf("Validate() = %q, want TypeMismatch@provider.bad", got)
	}
}

func TestValidateArraysOfTables(t *testing.T) {
	sch := load(t, pipelineSchema)
	doc := decode(t, `
[[routes]]
path = "/a"

[[routes]]
tls = { cert_path = 5 }

[[routes]]
path = "/c"
extra = true
`)
	rep := Validate(doc, sch, nil)
	want := "MissingRequiredField@routes[1].path TypeMismatch@routes[1].tls.cert_path UnknownField@routes[2].extra"
	if got := kinds(rep); got != want {
		t.Errorf("Validate() = %q, want %q", got, want)
	}

	rep = Validate(decode(t, "routes = { path = \"/a\" }\n"), sch, nil)
	if got := kinds(rep); got != "TypeMismatch@routes" {
		t.Errorf("single table for array cardinality = %q, want TypeMismatch@routes", got)
	}
}

func TestValidateTypeAcceptance(t *testing.T) {
	sch := load(t, pipelineSchema)
	doc := decode(t, `
[pipelines.main]
backends = ["b", 4]

[backends.b]
service = "http"
weight = 2
mode = "batch"
`)
	rep := Validate(doc, sch, linker.FromMap(map[string][]string{"service_type": {"http"}}))
	want := "TypeMismatch@pipelines.main.backends[1] TypeMismatch@backends.b.mode"
	if got := kinds(rep); got != want {
		t.Errorf("Validate() = %q, want %q", got, want)
	}
}

func TestValidateDiagnosticOrder(t *testing.T) {
	sch := load(t, `
schema_version = "1.0.0"

[schema.b]
type = "string"
required = true

[schema.a]
type = "string"
required = true

[schema.t]
required = true
`)
	doc := decode(t, "z = 1\ny = 2\n")
	rep := Validate(doc, sch, nil)
	want := "MissingRequiredField@b MissingRequiredField@a MissingRequiredField@t UnknownField@z UnknownField@y"
	if got := kinds(rep); got != want {
		t.Errorf("Validate() = %q, want %q", got, want)
	}
}

func TestValidateVersionGate(t *testing.T) {
	sch := load(t, proxySchema)

	tests := []struct {
		name         string
		doc          string
		want         string
		wantDeclared string
	}{
		{
			name:         "older minor",
			doc:          "schema_version = \"1.2\"\n[proxy]\nid = \"a\"\n",
			wantDeclared: "1.2.0",
		},
		{
			name:         "newer minor",
			doc:          "schema_version = \"1.4\"\n[proxy]\n",
			want:         "VersionIncompatible@schema_version",
			wantDeclared: "1.4.0",
		},
		{
			name:         "other major",
			doc:          "schema_version = \"2.0\"\n",
			want:         "VersionIncompatible@schema_version",
			wantDeclared: "2.0.0",
		},
		{
			name: "not a version",
			doc:  "schema_version = \"latest\"\n",
			want: "VersionIncompatible@schema_version",
		},
		{
			name: "not a string",
			doc:  "schema_version = 1\n",
			want: "VersionIncompatible@schema_version",
		},
		{
			name: "undeclared",
			doc:  "[proxy]\nid = \"a\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Validate(decode(t, tt.doc), sch, nil)
			if got := kinds(rep); got != tt.want {
				t.Errorf("Validate() = %q, want %q", got, tt.want)
			}
			if rep.DeclaredVersion != tt.wantDeclared {
				t.Errorf("DeclaredVersion = %q, want %q", rep.DeclaredVersion, tt.wantDeclared)
			}
		})
	}
}

func TestReportJSON(t *testing.T) {
	sch := load(t, proxySchema)
	rep := Validate(decode(t, "[proxy]\nid = \"edge-1\"\n"), sch, nil)

	data, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out["valid"] != true {
		t.Errorf("valid = %v, want true", out["valid"])
	}
	if diags, ok := out["diagnostics"].([]any); !ok || len(diags) != 0 {
		t.Errorf("diagnostics = %v, want empty array", out["diagnostics"])
	}
	if out["schema_version"] != "1.3.0" {
		t.Errorf("schema_version = %v, want 1.3.0", out["schema_version"])
	}
}

func TestReportError(t *testing.T) {
	rep := &Report{}
	if got := rep.Error(); got != "" {
		t.Errorf("Error() = %q, want empty", got)
	}
	rep.Add("proxy.id", MissingRequiredField, "required field proxy.id is missing", 0)
	rep.Add("proxy.bogus", UnknownField, "unknown", 0)
	want := "proxy.id: required field proxy.id is missing; proxy.bogus: unknown"
	if got := rep.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if rep.Count(UnknownField) != 1 || len(rep.ByPath("proxy.id")) != 1 {
		t.Error("Count/ByPath mismatch")
	}
}
