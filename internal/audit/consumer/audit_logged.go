package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"eventflow/internal/audit"
	"eventflow/internal/event"
	"eventflow/internal/event/consumer"
)

// AuditLoggedHandler persists completion notices arriving on the
// audit.logged topic (group audit-audit-logged). These come from services
// that fire-and-forget their own audit notices instead of calling the HTTP
// ingress. It replicates through the recorder's non-republishing path, and
// skips SYSTEM_STARTUP markers: the audit service already wrote that row
// directly at boot, and its own fan-out would otherwise record it twice.
type AuditLoggedHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

func NewAuditLogged(rec Recorder, logger *slog.Logger) *AuditLoggedHandler {
	return &AuditLoggedHandler{recorder: rec, logger: logger}
}

func (h *AuditLoggedHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var notice event.AuditLogged
	if err := json.Unmarshal(msg.Value, &notice); err != nil {
		return fmt.Errorf("%w: %v", event.ErrMalformed, err)
	}
	if notice.EventType == "" {
		return fmt.Errorf("%w: eventType", event.ErrMissingFields)
	}

	if notice.EventType == audit.TypeSystemStartup {
		h.logger.Info("skipped replayed startup marker")
		return nil
	}

	if _, err := h.recorder.Replicate(ctx, notice.EventType, notice.Data); err != nil {
		return fmt.Errorf("replicate audit record: %w", err)
	}
	h.logger.Debug("audit log saved", "event_type", notice.EventType)
	return nil
}
