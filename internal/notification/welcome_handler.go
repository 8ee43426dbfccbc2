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

const welcomeSubject = "Welcome to Our Platform!"

// WelcomeHandler reacts to user.created (group user-group): send the
// welcome email when an address is present, then fire-and-forget an
// audit.logged notice for the audit service to persist. The email is
// optional; the audit notice is not.
type WelcomeHandler struct {
	mailer    Mailer
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewWelcomeHandler(mailer Mailer, publisher Publisher, logger *slog.Logger, m *metrics.Metrics) *WelcomeHandler {
	return &WelcomeHandler{
		mailer:    mailer,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

func (h *WelcomeHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var p event.UserCreated
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		return fmt.Errorf("%w: %v", event.ErrMalformed, err)
	}
	if p.UserID == 0 {
		return fmt.Errorf("%w: userId", event.ErrMissingFields)
	}

	if p.UserEmail != "" {
		name := p.Username
		if name == "" {
			name = "User"
		}
		body := fmt.Sprintf("Hello %s, your account has been created successfully!", name)
		if err := h.mailer.Send(ctx, p.UserEmail, welcomeSubject, body); err != nil {
			if h.metrics != nil {
				h.metrics.EmailsFailed.Inc()
			}
			return fmt.Errorf("send welcome email to %s: %w", p.UserEmail, err)
		}
		if h.metrics != nil {
			h.metrics.EmailsSent.Inc()
		}
		h.logger.Info("welcome email sent", "to", p.UserEmail)
	}

	data, err := json.Marshal(map[string]any{
		"userId":    p.UserID,
		"username":  p.Username,
		"email":     p.UserEmail,
		"timestamp": h.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal audit notice: %w", err)
	}
	notice := event.AuditLogged{
		EventType: string(event.TopicUserCreated),
		Data:      data,
	}
	if err := h.publisher.Publish(ctx, notice); err != nil {
		return fmt.Errorf("publish audit notice: %w", err)
	}
	return nil
}
