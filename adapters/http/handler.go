// Package http exposes the validator over HTTP so that a management API
// can check configuration before applying it.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/aurabx/harmony-dsl/adapters/clock"
	"github.com/aurabx/harmony-dsl/adapters/idgen"
	"github.com/aurabx/harmony-dsl/adapters/metrics"
	"github.com/aurabx/harmony-dsl/core/catalog"
	"github.com/aurabx/harmony-dsl/core/linker"
	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/value"
	"github.com/aurabx/harmony-dsl/pkg/jsonapi"
	"github.com/aurabx/harmony-dsl/ports"
)

// DefaultMaxBodyBytes bounds request bodies when the deps leave it unset.
const DefaultMaxBodyBytes = 1 << 20

// ValidateRequest is the JSON form of a validation request.
type ValidateRequest struct {
	// Document is the TOML text to validate.
	Document string `json:"document"`

	// Gateway is an optional gateway config whose provided names become
	// resolvable references, e.g. service types for a pipeline.
	Gateway string `json:"gateway,omitempty"`
}

// HandlerDeps holds the dependencies of a Handler.
type HandlerDeps struct {
	Catalog *catalog.Catalog
	Logger  zerolog.Logger

	// Optional
	Store        ports.ReportStore
	Metrics      *metrics.Collector
	IDs          ports.IDGenerator
	Clock        ports.Clock
	Registry     *linker.Registry
	MaxBodyBytes int64
}

// Handler serves the validation API.
type Handler struct {
	catalog *catalog.Catalog
	store   ports.ReportStore
	metrics *metrics.Collector
	ids     ports.IDGenerator
	clock   ports.Clock
	logger  zerolog.Logger

	// Replaced on config reload.
	registry atomic.Pointer[linker.Registry]
	maxBody  atomic.Int64
}

// NewHandler creates a handler.
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		catalog: deps.Catalog,
		store:   deps.Store,
		metrics: deps.Metrics,
		ids:     deps.IDs,
		clock:   deps.Clock,
		logger:  deps.Logger,
	}
	if h.catalog == nil {
		h.catalog = catalog.Default()
	}
	if h.ids == nil {
		h.ids = idgen.UUID{}
	}
	if h.clock == nil {
		h.clock = clock.Real{}
	}
	h.SetRegistry(deps.Registry)
	h.SetMaxBodyBytes(deps.MaxBodyBytes)
	return h
}

// SetRegistry replaces the static reference names.
func (h *Handler) SetRegistry(r *linker.Registry) {
	if r == nil {
		r = linker.NewRegistry()
	}
	h.registry.Store(r)
}

// SetMaxBodyBytes replaces the request body limit. Non-positive values
// select DefaultMaxBodyBytes.
func (h *Handler) SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = DefaultMaxBodyBytes
	}
	h.maxBody.Store(n)
}

// Validate handles POST /v1/validate/{domain}.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	domain, err := schema.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, r, jsonapi.ErrUnknownDomain(chi.URLParam(r, "domain")))
		return
	}

	limit := h.maxBody.Load()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, jsonapi.ErrPayloadTooLarge(limit))
			return
		}
		writeError(w, r, jsonapi.ErrBadRequest("failed to read request body"))
		return
	}

	req := ValidateRequest{Document: string(body)}
	if isJSON(r) {
		req = ValidateRequest{}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, r, jsonapi.ErrBadRequest("invalid JSON request: "+err.Error()))
			return
		}
	}

	resolvers := []linker.Resolver{h.registry.Load()}
	if req.Gateway != "" {
		gateway, err := h.catalog.Collect(schema.DomainGateway, []byte(req.Gateway))
		if err != nil {
			h.writeDocumentError(w, r, err, "/gateway")
			return
		}
		resolvers = append(resolvers, gateway)
	}

	start := time.Now()
	rep, err := h.catalog.Validate(domain, []byte(req.Document), linker.Chain(resolvers...))
	if err != nil {
		h.writeDocumentError(w, r, err, "/document")
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveReport(rep, time.Since(start))
	}

	if h.store != nil {
		rep.ID = h.ids.New()
		stored := ports.NewStoredReport(rep, "http", h.clock.Now())
		if err := h.store.Save(r.Context(), stored); err != nil {
			h.logger.Error().Err(err).Str("report_id", rep.ID).Msg("failed to persist report")
			writeError(w, r, jsonapi.ErrInternal("failed to persist report"))
			return
		}
	}

	h.logger.Debug().
		Str("domain", string(domain)).
		Bool("valid", rep.Valid()).
		Int("diagnostics", len(rep.Diagnostics)).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("document validated")

	writeJSON(w, http.StatusOK, rep)
}

// writeDocumentError maps a decode or schema failure to a response.
func (h *Handler) writeDocumentError(w http.ResponseWriter, r *http.Request, err error, pointer string) {
	var syntax *value.SyntaxError
	if errors.As(err, &syntax) {
		e := jsonapi.ErrSyntax(syntax.Msg, syntax.Line, syntax.Column)
		e.Source.Pointer = pointer
		writeError(w, r, e)
		return
	}
	h.logger.Error().Err(err).Msg("schema unavailable")
	writeError(w, r, jsonapi.ErrInternal("schema unavailable"))
}

// ListSchemas handles GET /v1/schemas.
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	var resources []jsonapi.Resource
	for _, d := range h.catalog.Domains() {
		doc, err := h.catalog.Schema(d)
		if err != nil {
			h.logger.Error().Err(err).Str("domain", string(d)).Msg("schema unavailable")
			writeError(w, r, jsonapi.ErrInternal("schema for domain "+string(d)+" is unavailable"))
			return
		}
		resources = append(resources, schemaResource(doc))
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources)
}

func schemaResource(doc *schema.Document) jsonapi.Resource {
	return jsonapi.Resource{
		Type: "schemas",
		ID:   string(doc.Domain),
		Attributes: map[string]any{
			"domain":      string(doc.Domain),
			"version":     doc.Version.String(),
			"fingerprint": doc.Fingerprint,
			"description": doc.Description,
		},
	}
}

// GetSchema handles GET /v1/schemas/{domain}. It returns the schema text
// with its fingerprint as the ETag.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	domain, err := schema.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, r, jsonapi.ErrUnknownDomain(chi.URLParam(r, "domain")))
		return
	}
	doc, err := h.catalog.Schema(domain)
	if err != nil {
		h.logger.Error().Err(err).Str("domain", string(domain)).Msg("schema unavailable")
		writeError(w, r, jsonapi.ErrInternal("schema unavailable"))
		return
	}

	etag := strconv.Quote(doc.Fingerprint)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/toml")
	w.Header().Set("X-Schema-Version", doc.Version.String())
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, doc.Source)
}

// GetReport handles GET /v1/reports/{id}.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.store == nil {
		writeError(w, r, jsonapi.ErrNotFoundWithID("report", id))
		return
	}

	rep, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, r, jsonapi.ErrNotFoundWithID("report", id))
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("report_id", id).Msg("failed to load report")
		writeError(w, r, jsonapi.ErrInternal(""))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ListReports handles GET /v1/reports?domain=&limit=.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, []ports.StoredReport{})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, jsonapi.ErrInvalidParameter("limit", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	reports, err := h.store.List(r.Context(), r.URL.Query().Get("domain"), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list reports")
		writeError(w, r, jsonapi.ErrInternal(""))
		return
	}
	if reports == nil {
		reports = []ports.StoredReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// Liveness handles GET /health.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness handles GET /health/ready. The service is ready once every
// domain schema loads.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.LoadAll(); err != nil {
		writeError(w, r, jsonapi.ErrServiceUnavailable(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, e jsonapi.Error) {
	e.ID = middleware.GetReqID(r.Context())
	jsonapi.WriteError(w, e)
}
