package api

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sprintpulse/sprintpulse/internal/ingestion"
	"github.com/sprintpulse/sprintpulse/internal/store"
	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

// maxImportBytes caps a decoded import body.
const maxImportBytes = 64 << 20

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ingestion.ErrInvalidBatch):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ingestion.ErrExportNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// handleImport handles POST /api/v1/projects/{projectId}/batches.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	// Support gzip-compressed request bodies
	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid gzip body", err)
			return
		}
		defer gz.Close()
		body = gz
	}
	body = io.LimitReader(body, maxImportBytes)

	var req ingestion.ImportRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.ProjectID = chi.URLParam(r, "projectId")

	row, err := h.batches.Import(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), "failed to import batch", err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Data:    row,
		Message: "batch imported",
	})
}

// handleListBatches lists a project's batches whose start date falls in the
// optional startDate/endDate window, newest import first.
func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	rows, err := h.batches.List(r.Context(), chi.URLParam(r, "projectId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list batches", err)
		return
	}

	win := sprint.ParseWindow(r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"))
	out := make([]store.BatchRow, 0, len(rows))
	for _, b := range rows {
		if win.Contains(b.StartDate) {
			out = append(out, b)
		}
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    out,
		Total:   intPtr(len(out)),
	})
}

// handleExport returns the archived raw export of a batch.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.batches.Export(r.Context(), chi.URLParam(r, "batchId"))
	if err != nil {
		writeError(w, statusFor(err), "failed to read export", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.batches.Delete(r.Context(), chi.URLParam(r, "batchId")); err != nil {
		writeError(w, statusFor(err), "failed to delete batch", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "batch deleted"})
}
