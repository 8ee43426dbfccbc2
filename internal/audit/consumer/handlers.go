// Package consumer holds the audit service's topic handlers: one per
// audit-worthy domain topic, plus the audit.logged replication handler.
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

// Recorder is the slice of the audit recorder the handlers need.
type Recorder interface {
	Record(ctx context.Context, eventType string, data json.RawMessage) (audit.Record, error)
	Replicate(ctx context.Context, eventType string, data json.RawMessage) (audit.Record, error)
}

// decodeFunc validates a raw message value and returns the canonical audit
// data for it. Decode failures wrap event.ErrMalformed; a present-but-
// incomplete payload wraps event.ErrMissingFields. Both make the runner
// drop the message before any side effect happens.
type decodeFunc func(value []byte) (json.RawMessage, error)

// DomainHandler records one domain topic's events. The typed decode step is
// the only per-topic difference; persistence and fan-out are the recorder's.
type DomainHandler struct {
	topic    event.Topic
	decode   decodeFunc
	recorder Recorder
	logger   *slog.Logger
}

func (h *DomainHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	data, err := h.decode(msg.Value)
	if err != nil {
		return err
	}
	if _, err := h.recorder.Record(ctx, string(h.topic), data); err != nil {
		return fmt.Errorf("record %s audit: %w", h.topic, err)
	}
	h.logger.Debug("audit log created", "event_type", h.topic)
	return nil
}

// NewUserCreated audits user.created events (group audit-user-created).
func NewUserCreated(rec Recorder, logger *slog.Logger) *DomainHandler {
	return &DomainHandler{
		topic:    event.TopicUserCreated,
		recorder: rec,
		logger:   logger,
		decode: func(value []byte) (json.RawMessage, error) {
			var p event.UserCreated
			if err := json.Unmarshal(value, &p); err != nil {
				return nil, fmt.Errorf("%w: %v", event.ErrMalformed, err)
			}
			if p.UserID == 0 {
				return nil, fmt.Errorf("%w: userId", event.ErrMissingFields)
			}
			return json.Marshal(p)
		},
	}
}

// NewUserLoggedIn audits user.logged_in events (group audit-user-logged).
func NewUserLoggedIn(rec Recorder, logger *slog.Logger) *DomainHandler {
	return &DomainHandler{
		topic:    event.TopicUserLoggedIn,
		recorder: rec,
		logger:   logger,
		decode: func(value []byte) (json.RawMessage, error) {
			var p event.UserLoggedIn
			if err := json.Unmarshal(value, &p); err != nil {
				return nil, fmt.Errorf("%w: %v", event.ErrMalformed, err)
			}
			if p.UserID == 0 {
				return nil, fmt.Errorf("%w: userId", event.ErrMissingFields)
			}
			return json.Marshal(p)
		},
	}
}

// NewRegistrationCreated audits registration.created events
// (group audit-registration-created).
func NewRegistrationCreated(rec Recorder, logger *slog.Logger) *DomainHandler {
	return &DomainHandler{
		topic:    event.TopicRegistrationCreated,
		recorder: rec,
		logger:   logger,
		decode: func(value []byte) (json.RawMessage, error) {
			var p event.RegistrationCreated
			if err := json.Unmarshal(value, &p); err != nil {
				return nil, fmt.Errorf("%w: %v", event.ErrMalformed, err)
			}
			if p.EventID == "" || p.UserID == 0 {
				return nil, fmt.Errorf("%w: eventId, userId", event.ErrMissingFields)
			}
			// The audit trail keeps the registration core, not the
			// contact-channel fields.
			return json.Marshal(event.RegistrationCreated{
				EventID:   p.EventID,
				UserID:    p.UserID,
				Timestamp: p.Timestamp,
			})
		},
	}
}

// NewEventUpdated audits event.updated events (group audit-event-updated).
func NewEventUpdated(rec Recorder, logger *slog.Logger) *DomainHandler {
	return &DomainHandler{
		topic:    event.TopicEventUpdated,
		recorder: rec,
		logger:   logger,
		decode: func(value []byte) (json.RawMessage, error) {
			var p event.EventUpdated
			if err := json.Unmarshal(value, &p); err != nil {
				return nil, fmt.Errorf("%w: %v", event.ErrMalformed, err)
			}
			if p.EventID == "" {
				return nil, fmt.Errorf("%w: eventId", event.ErrMissingFields)
			}
			return json.Marshal(p)
		},
	}
}

// NewNotificationSent audits notification.sent events (group audit-email-sent).
func NewNotificationSent(rec Recorder, logger *slog.Logger) *DomainHandler {
	return &DomainHandler{
		topic:    event.TopicNotificationSent,
		recorder: rec,
		logger:   logger,
		decode: func(value []byte) (json.RawMessage, error) {
			var p event.NotificationSent
			if err := json.Unmarshal(value, &p); err != nil {
				return nil, fmt.Errorf("%w: %v", event.ErrMalformed, err)
			}
			if p.UserID == 0 || p.Email == "" {
				return nil, fmt.Errorf("%w: userId, email", event.ErrMissingFields)
			}
			return json.Marshal(p)
		},
	}
}
