package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"eventflow/internal/event"
	"eventflow/internal/event/consumer"
)

// Publisher is the slice of the event publisher the handler needs.
type Publisher interface {
	Publish(ctx context.Context, payload event.Payload) error
}

// Handler reacts to registration.created (group event-group): count the
// registration and republish the new total as event.updated.
type Handler struct {
	store     Store
	publisher Publisher
	updatedBy string
	logger    *slog.Logger
	now       func() time.Time
}

func NewHandler(store Store, publisher Publisher, updatedBy string, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		publisher: publisher,
		updatedBy: updatedBy,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	var p event.RegistrationCreated
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		return fmt.Errorf("%w: %v", event.ErrMalformed, err)
	}
	if p.EventID == "" || p.UserID == 0 {
		return fmt.Errorf("%w: eventId, userId", event.ErrMissingFields)
	}

	applied, total, err := h.store.Apply(ctx, p.EventID, strconv.FormatInt(p.UserID, 10))
	if err != nil {
		return fmt.Errorf("apply registration count: %w", err)
	}
	if !applied {
		h.logger.Debug("duplicate registration delivery ignored",
			"event_id", p.EventID,
			"user_id", p.UserID,
		)
		return nil
	}
	h.logger.Info("registered count incremented", "event_id", p.EventID, "registered", total)

	updated := event.EventUpdated{
		EventID:       p.EventID,
		UpdatedFields: map[string]any{"registered": total},
		UpdatedBy:     h.updatedBy,
		Timestamp:     h.now().UTC(),
	}
	if err := h.publisher.Publish(ctx, updated); err != nil {
		return fmt.Errorf("publish event.updated: %w", err)
	}
	return nil
}
