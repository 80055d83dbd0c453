package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aurabx/harmony-dsl/core/linker"
	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/validation"
)

func TestBundledSchemasLoad(t *testing.T) {
	want := map[schema.Domain]string{
		schema.DomainGateway:       "1.8.0",
		schema.DomainPipeline:      "1.8.0",
		schema.DomainMesh:          "1.0.0",
		schema.DomainRemoteIngress: "1.0.0",
	}

	c := New()
	for domain, version := range want {
		doc, err := c.Schema(domain)
		if err != nil {
			t.Fatalf("Schema(%s) failed: %v", domain, err)
		}
		if got := doc.Version.String(); got != version {
			t.Errorf("Schema(%s).Version = %s, want %s", domain, got, version)
		}
		if doc.Domain != domain {
			t.Errorf("Schema(%s).Domain = %s", domain, doc.Domain)
		}
	}
	if err := c.LoadAll(); err != nil {
		t.Errorf("LoadAll() error = %v", err)
	}
}

func TestBundledSchemasRoundTrip(t *testing.T) {
	c := New()
	for _, domain := range c.Domains() {
		doc, err := c.Schema(domain)
		if err != nil {
			t.Fatalf("Schema(%s) failed: %v", domain, err)
		}
		if _, err := schema.Load(schema.Encode(doc), domain); err != nil {
			t.Errorf("Load(Encode(%s)) failed: %v", domain, err)
		}
	}
}

func TestSchemaLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	c := New(WithLoadHook(func(schema.Domain, error) { loads.Add(1) }))

	var wg sync.WaitGroup
	docs := make([]*schema.Document, 16)
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			docs[i], _ = c.Schema(schema.DomainGateway)
		}(i)
	}
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("loads = %d, want 1", got)
	}
	for i := range docs {
		if docs[i] != docs[0] {
			t.Fatal("concurrent callers received different documents")
		}
	}
}

func TestUnknownDomain(t *testing.T) {
	c := New()
	if _, err := c.Schema("proxy"); !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("Schema(proxy) error = %v, want ErrUnknownDomain", err)
	}
	if _, err := c.Text("proxy"); !errors.Is(err, ErrUnknownDomain) {
		t.Errorf("Text(proxy) error = %v, want ErrUnknownDomain", err)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := "schema_version = \"1.9.0\"\ndomain = \"mesh\"\n[schema.name]\ntype = \"string\"\n"
	if err := os.WriteFile(filepath.Join(dir, "mesh.toml"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}
	broken := "domain = \"gateway\"\n[schema]\n"
	if err := os.WriteFile(filepath.Join(dir, "gateway.toml"), []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}

	var failed []schema.Domain
	c := New(WithOverrideDir(dir), WithLoadHook(func(d schema.Domain, err error) {
		if err != nil {
			failed = append(failed, d)
		}
	}))

	mesh, err := c.Schema(schema.DomainMesh)
	if err != nil {
		t.Fatalf("Schema(mesh) failed: %v", err)
	}
	if mesh.Version.String() != "1.9.0" {
		t.Errorf("mesh version = %s, want override 1.9.0", mesh.Version)
	}

	pipeline, err := c.Schema(schema.DomainPipeline)
	if err != nil || pipeline.Version.String() != "1.8.0" {
		t.Errorf("pipeline should fall back to the bundled schema: %v", err)
	}

	_, err = c.Schema(schema.DomainGateway)
	if !errors.Is(err, schema.ErrVersionMissing) {
		t.Errorf("Schema(gateway) error = %v, want ErrVersionMissing", err)
	}
	if _, again := c.Schema(schema.DomainGateway); again != err {
		t.Error("failed load should be cached")
	}
	if len(failed) != 1 || failed[0] != schema.DomainGateway {
		t.Errorf("failed hooks = %v, want [gateway]", failed)
	}
	if err := c.LoadAll(); err == nil {
		t.Error("LoadAll() should report the broken gateway schema")
	}
}

const gatewayConfig = `
[proxy]
id = "edge-1"
log_level = "debug"

[network.default]
enable_wireguard = false

[network.default.http]
bind_port = 8080

[management]
enabled = true
network = "default"

[services.http]
module = ""

[services.fhir]
module = "fhir"

[middleware_types.transform]
[middleware_types.passthru]
`

const pipelineConfig = `
[pipelines.fhir]
description = "FHIR passthrough"
networks = ["default"]
endpoints = ["fhir_in"]
backends = ["fhir_out"]
middleware = ["auth"]

[endpoints.fhir_in]
service = "fhir"

[backends.fhir_out]
service = "http"
target_ref = "upstream"

[middleware.auth]
type = "transform"

[[routes]]
path = "/fhir"
methods = ["GET", "POST"]
pipeline = "fhir"
`

func TestValidateAcrossDomains(t *testing.T) {
	c := New()

	rep, err := c.Validate(schema.DomainGateway, []byte(gatewayConfig), nil)
	if err != nil {
		t.Fatalf("Validate(gateway) failed: %v", err)
	}
	if !rep.Valid() {
		t.Fatalf("gateway config invalid: %s", rep.Error())
	}

	registry, err := c.Collect(schema.DomainGateway, []byte(gatewayConfig))
	if err != nil {
		t.Fatalf("Collect(gateway) failed: %v", err)
	}
	if !registry.Resolve("service_type", "fhir") || !registry.Resolve("network", "default") {
		t.Errorf("gateway registry = %v", registry.Map())
	}

	rep, err = c.Validate(schema.DomainPipeline, []byte(pipelineConfig), registry)
	if err != nil {
		t.Fatalf("Validate(pipeline) failed: %v", err)
	}
	if !rep.Valid() {
		t.Errorf("pipeline config invalid: %s", rep.Error())
	}

	rep, err = c.Validate(schema.DomainPipeline, []byte(pipelineConfig), linker.None)
	if err != nil {
		t.Fatalf("Validate(pipeline) failed: %v", err)
	}
	if got := rep.Count(validation.UnresolvedReference); got != 4 {
		t.Errorf("UnresolvedReference count without gateway = %d, want 4: %s", got, rep.Error())
	}
}

func TestValidateSyntaxError(t *testing.T) {
	_, err := New().Validate(schema.DomainGateway, []byte("[proxy\n"), nil)
	if err == nil {
		t.Fatal("Validate() error = nil, want decode error")
	}
}
