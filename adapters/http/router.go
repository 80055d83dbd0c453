package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aurabx/harmony-dsl/adapters/idgen"
	"github.com/aurabx/harmony-dsl/adapters/metrics"
	"github.com/aurabx/harmony-dsl/pkg/jsonapi"
	"github.com/aurabx/harmony-dsl/ports"
)

// RouterConfig holds optional router settings.
type RouterConfig struct {
	// Metrics enables request metrics. The metrics endpoint is served only
	// when MetricsHandler is also set.
	Metrics        *metrics.Collector
	MetricsHandler http.Handler
	MetricsPath    string

	// IDs generates request IDs. Defaults to UUIDs.
	IDs ports.IDGenerator

	// Timeout bounds each request. Zero means 30s.
	Timeout time.Duration
}

// NewRouter creates the HTTP router of the validation service.
func NewRouter(h *Handler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.IDs == nil {
		cfg.IDs = idgen.UUID{}
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(RequestID(cfg.IDs))
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger, cfg.MetricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics, cfg.MetricsPath))
	}

	r.Get("/health", h.Liveness)
	r.Get("/health/live", h.Liveness)
	r.Get("/health/ready", h.Readiness)

	if cfg.MetricsHandler != nil {
		r.Handle(cfg.MetricsPath, cfg.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate/{domain}", h.Validate)
		r.Get("/schemas", h.ListSchemas)
		r.Get("/schemas/{domain}", h.GetSchema)
		r.Get("/reports", h.ListReports)
		r.Get("/reports/{id}", h.GetReport)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, jsonapi.ErrNotFound("resource"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, jsonapi.NewError(405, "method_not_allowed", "Method Not Allowed").
			Detailf("The %s method is not allowed for this resource", req.Method).
			Build())
	})

	return r
}

// MetricsHandler returns the Prometheus scrape handler for g.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
