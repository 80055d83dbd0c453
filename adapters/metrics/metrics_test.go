package metrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aurabx/harmony-dsl/adapters/metrics"
	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/validation"
)

func TestNew(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	if m.ValidationsTotal == nil || m.DiagnosticsTotal == nil || m.ValidationDuration == nil {
		t.Fatal("validation metrics not initialized")
	}
	if m.SchemaLoads == nil {
		t.Error("SchemaLoads is nil")
	}
	if m.RequestsTotal == nil || m.RequestDuration == nil || m.RequestsInFlight == nil {
		t.Error("HTTP metrics not initialized")
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Two collectors on separate registries must not conflict.
	metrics.New(prometheus.NewRegistry())
	metrics.New(prometheus.NewRegistry())
}

func TestObserveReport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	valid := &validation.Report{Domain: schema.DomainGateway}
	invalid := &validation.Report{Domain: schema.DomainPipeline}
	invalid.Add("pipelines.p.endpoints", validation.MissingRequiredField, "required field is missing", 3)
	invalid.Add("pipelines.p.x", validation.UnknownField, "unknown field", 4)
	invalid.Add("pipelines.p.y", validation.UnknownField, "unknown field", 5)

	m.ObserveReport(valid, time.Millisecond)
	m.ObserveReport(invalid, 2*time.Millisecond)
	m.ObserveReport(invalid, 2*time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"gateway valid", testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("gateway", "valid")), 1},
		{"pipeline invalid", testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("pipeline", "invalid")), 2},
		{"unknown fields", testutil.ToFloat64(m.DiagnosticsTotal.WithLabelValues("pipeline", "UnknownField")), 4},
		{"missing fields", testutil.ToFloat64(m.DiagnosticsTotal.WithLabelValues("pipeline", "MissingRequiredField")), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(m.ValidationDuration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestObserveSchemaLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveSchemaLoad(schema.DomainMesh, nil)
	m.ObserveSchemaLoad(schema.DomainGateway, errors.New("malformed"))

	expected := `
# HELP harmony_schema_loads_total Total number of schema loads by outcome
# TYPE harmony_schema_loads_total counter
harmony_schema_loads_total{domain="gateway",result="error"} 1
harmony_schema_loads_total{domain="mesh",result="success"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "harmony_schema_loads_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveRequest("POST", "/v1/validate/{domain}", 200, 5*time.Millisecond)
	m.ObserveRequest("POST", "/v1/validate/{domain}", 413, time.Millisecond)
	m.ObserveRequest("POST", "/v1/validate/{domain}", 404, time.Millisecond)

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/v1/validate/{domain}", "4xx")); got != 2 {
		t.Errorf("4xx requests = %v, want 2", got)
	}
}

func TestStatusClass(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{413, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		if got := metrics.StatusClass(tt.status); got != tt.want {
			t.Errorf("StatusClass(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestResult(t *testing.T) {
	if metrics.Result(true) != "valid" || metrics.Result(false) != "invalid" {
		t.Error("Result() labels changed")
	}
}
