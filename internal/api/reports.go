package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sprintpulse/sprintpulse/internal/report"
	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

// reportQuery reads the project and the optional startDate/endDate window.
// Dates that fail to parse leave that side of the window open.
func reportQuery(r *http.Request) report.Query {
	q := r.URL.Query()
	return report.Query{
		ProjectID: chi.URLParam(r, "projectId"),
		Window:    sprint.ParseWindow(q.Get("startDate"), q.Get("endDate")),
	}
}

func (h *Handler) handleVelocity(w http.ResponseWriter, r *http.Request) {
	records, meta, err := h.reports.Velocity(r.Context(), reportQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute sprint velocity", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    records,
		Total:   intPtr(meta.Total),
		Message: meta.Message,
	})
}

func (h *Handler) handleBurndown(w http.ResponseWriter, r *http.Request) {
	bd, meta, err := h.reports.Burndown(r.Context(), reportQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute burndown", err)
		return
	}
	env := envelope{Success: true, Message: meta.Message}
	if bd != nil {
		env.Data = bd
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) handleQuality(w http.ResponseWriter, r *http.Request) {
	qr, meta, err := h.reports.Quality(r.Context(), reportQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute quality metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    qr,
		Message: meta.Message,
	})
}

func (h *Handler) handleIssues(w http.ResponseWriter, r *http.Request) {
	issues, meta, err := h.reports.Issues(r.Context(), reportQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list issues", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:      true,
		Data:         issues,
		Total:        intPtr(meta.Total),
		ReportsCount: intPtr(meta.ReportsCount),
		Message:      meta.Message,
	})
}
