// Package metrics provides Prometheus metrics for the validation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/validation"
)

const namespace = "harmony"

// Collector holds all Prometheus metrics of the service.
type Collector struct {
	// Validation metrics
	ValidationsTotal   *prometheus.CounterVec
	DiagnosticsTotal   *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec

	// Schema metrics
	SchemaLoads *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Watch metrics
	WatchRevalidations *prometheus.CounterVec
}

// New creates a collector with every metric registered on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of documents validated",
			},
			[]string{"domain", "result"},
		),
		DiagnosticsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Total number of diagnostics reported",
			},
			[]string{"domain", "kind"},
		),
		ValidationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Time spent validating one document",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"domain"},
		),
		SchemaLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_loads_total",
				Help:      "Total number of schema loads by outcome",
			},
			[]string{"domain", "result"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		WatchRevalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_revalidations_total",
				Help:      "Total number of re-validations triggered by file changes",
			},
			[]string{"domain", "result"},
		),
	}
}

// ObserveReport records the outcome of one validation.
func (c *Collector) ObserveReport(rep *validation.Report, d time.Duration) {
	domain := string(rep.Domain)
	c.ValidationsTotal.WithLabelValues(domain, Result(rep.Valid())).Inc()
	c.ValidationDuration.WithLabelValues(domain).Observe(d.Seconds())
	for _, diag := range rep.Diagnostics {
		c.DiagnosticsTotal.WithLabelValues(domain, string(diag.Kind)).Inc()
	}
}

// ObserveSchemaLoad records a schema load. Its signature matches the
// catalog load hook.
func (c *Collector) ObserveSchemaLoad(domain schema.Domain, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.SchemaLoads.WithLabelValues(string(domain), result).Inc()
}

// ObserveRequest records a finished HTTP request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, StatusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Result maps a validity flag to the result label.
func Result(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}

// StatusClass reduces a status code to 2xx, 4xx, etc.
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
