// Package api implements the Sprintpulse REST API.
// It serves the analytic reports and the batch import endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sprintpulse/sprintpulse/internal/ingestion"
	"github.com/sprintpulse/sprintpulse/internal/report"
	"github.com/sprintpulse/sprintpulse/internal/telemetry"
)

// DefaultRequestTimeout bounds a request when Options leaves it unset.
const DefaultRequestTimeout = 30 * time.Second

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds the optional parts of a Handler.
type Options struct {
	APIKey         string // protects the batch endpoints; empty disables auth
	RequestTimeout time.Duration
	Metrics        *telemetry.Metrics
	Health         Pinger
}

// Handler is the top-level API handler for the Sprintpulse service.
type Handler struct {
	reports *report.Service
	batches *ingestion.Service
	log     zerolog.Logger
	opts    Options
}

// NewHandler creates a new API handler.
func NewHandler(reports *report.Service, batches *ingestion.Service, log zerolog.Logger, opts Options) *Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	return &Handler{
		reports: reports,
		batches: batches,
		log:     log,
		opts:    opts,
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(h.instrument)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Get("/healthz", h.handleHealth)
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(h.opts.RequestTimeout))

		// Read endpoints
		r.Get("/project/{projectId}/sprint-velocity", h.handleVelocity)
		r.Get("/project/{projectId}/burndown", h.handleBurndown)
		r.Get("/project/{projectId}/quality-metrics", h.handleQuality)
		r.Get("/project/{projectId}/issues", h.handleIssues)

		// Batch endpoints (auth-protected)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(h.opts.APIKey))
			r.Post("/projects/{projectId}/batches", h.handleImport)
			r.Get("/projects/{projectId}/batches", h.handleListBatches)
			r.Get("/batches/{batchId}/export", h.handleExport)
			r.Delete("/batches/{batchId}", h.handleDeleteBatch)
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.opts.Health != nil {
		if err := h.opts.Health.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// envelope is the response body of every API endpoint.
type envelope struct {
	Success      bool   `json:"success"`
	Data         any    `json:"data"`
	Total        *int   `json:"total,omitempty"`
	ReportsCount *int   `json:"reportsCount,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

func intPtr(n int) *int { return &n }

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	env := envelope{Message: msg}
	if err != nil {
		env.Error = err.Error()
	}
	writeJSON(w, status, env)
}
