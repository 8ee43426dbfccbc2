// Package handler exposes the audit service's direct HTTP ingress: the
// synchronous "log this now" path for services colocated with the audit
// store, as opposed to the fire-and-forget topic path.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventflow/internal/audit"
)

// Recorder is the slice of the audit recorder the ingress needs.
type Recorder interface {
	Record(ctx context.Context, eventType string, data json.RawMessage) (audit.Record, error)
}

// Handler handles the audit ingress endpoints.
type Handler struct {
	recorder Recorder
	logger   *slog.Logger
}

func New(recorder Recorder, logger *slog.Logger) *Handler {
	return &Handler{recorder: recorder, logger: logger}
}

// Register mounts the audit routes on the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/audit", h.handleLogAudit)
}

type logAuditRequest struct {
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

type logAuditResponse struct {
	Message string       `json:"message"`
	Log     audit.Record `json:"log"`
}

func (h *Handler) handleLogAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req logAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid audit request body", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.EventType == "" || emptyJSON(req.Data) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing eventType or data"})
		return
	}

	rec, err := h.recorder.Record(ctx, req.EventType, req.Data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to process audit log",
			"event_type", req.EventType,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process audit log"})
		return
	}

	writeJSON(w, http.StatusCreated, logAuditResponse{Message: "audit log created", Log: rec})
}

func emptyJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
