package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"eventflow/internal/event"
	"eventflow/internal/event/consumer"
	"eventflow/internal/platform/metrics"
)

const confirmationSubject = "Event Registration Confirmation"

// Publisher is the slice of the event publisher the handlers need.
type Publisher interface {
	Publish(ctx context.Context, payload event.Payload) error
}

// RegistrationHandler reacts to registration.created (group
// notification-group): send the confirmation email, then publish
// notification.sent. The email and the publish are not atomic; a crash in
// between re-sends the email on redelivery, which the at-least-once
// contract allows.
type RegistrationHandler struct {
	mailer           Mailer
	publisher        Publisher
	defaultRecipient string
	logger           *slog.Logger
	metrics          *metrics.Metrics
	now              func() time.Time
}

// HandlerOption configures the notification handlers.
type HandlerOption func(*RegistrationHandler)

// WithMetrics wires the email counters.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *RegistrationHandler) { h.metrics = m }
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *RegistrationHandler) { h.now = now }
}

func NewRegistrationHandler(mailer Mailer, publisher Publisher, defaultRecipient string, logger *slog.Logger, opts ...HandlerOption) *RegistrationHandler {
	h := &RegistrationHandler{
		mailer:           mailer,
		publisher:        publisher,
		defaultRecipient: defaultRecipient,
		logger:           logger,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *RegistrationHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var p event.RegistrationCreated
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		return fmt.Errorf("%w: %v", event.ErrMalformed, err)
	}

	to := p.UserEmail
	if to == "" {
		to = h.defaultRecipient
	}
	if p.EventID == "" || p.UserID == 0 || to == "" {
		return fmt.Errorf("%w: eventId, userId, userEmail", event.ErrMissingFields)
	}

	body := fmt.Sprintf("You have successfully registered for event %s!", p.EventID)
	if err := h.mailer.Send(ctx, to, confirmationSubject, body); err != nil {
		if h.metrics != nil {
			h.metrics.EmailsFailed.Inc()
		}
		h.notifyFailure(ctx, p, to, err)
		return fmt.Errorf("send confirmation email to %s: %w", to, err)
	}
	if h.metrics != nil {
		h.metrics.EmailsSent.Inc()
	}
	h.logger.Info("confirmation email sent", "to", to, "event_id", p.EventID)

	sent := event.NotificationSent{
		UserID:    p.UserID,
		Email:     to,
		Subject:   confirmationSubject,
		Timestamp: h.now().UTC(),
	}
	if err := h.publisher.Publish(ctx, sent); err != nil {
		return fmt.Errorf("publish notification.sent: %w", err)
	}
	return nil
}

// notifyFailure publishes notification.failed best-effort. Its own publish
// failure is logged only; the mailer error is the one the caller reports.
func (h *RegistrationHandler) notifyFailure(ctx context.Context, p event.RegistrationCreated, to string, cause error) {
	failed := event.NotificationFailed{
		UserID:    p.UserID,
		Email:     to,
		EventID:   p.EventID,
		Error:     cause.Error(),
		Timestamp: h.now().UTC(),
	}
	if err := h.publisher.Publish(ctx, failed); err != nil {
		h.logger.Error("failed to publish notification.failed",
			"user_id", p.UserID,
			"cause", cause,
			"error", err,
		)
	}
}
