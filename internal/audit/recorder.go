package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventflow/internal/event"
	"eventflow/internal/platform/metrics"
)

// Publisher is the slice of the event publisher the recorder needs.
type Publisher interface {
	Publish(ctx context.Context, payload event.Payload) error
}

// Recorder is the system-of-record for audit-worthy events. Two entry
// points converge on the same persistence step: Record (the synchronous
// path behind the HTTP ingress and the domain-topic consumers) and
// Replicate (the audit.logged topic consumer). Both share the
// failure-compensation publish; only Record fans out.
type Recorder struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithMetrics wires the audit record/failure counters.
func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// WithClock overrides time.Now; tests pin record timestamps with it.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(store Store, publisher Publisher, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record persists an audit record and publishes an audit.logged completion
// notice carrying it. Invariants:
//
//   - Persistence failure: one best-effort audit.failed compensation event
//     is published, then the persistence error is returned. The
//     compensation's own publish failure is logged and swallowed so it never
//     masks the primary error.
//   - eventType == audit.logged: persist and stop. An audit-completion
//     notice is never republished, which is what keeps the recorder from
//     feeding itself forever.
//   - Fan-out publish failure: the record is already durable; compensation
//     is published best-effort and the publish error is returned alongside
//     the record.
func (r *Recorder) Record(ctx context.Context, eventType string, data json.RawMessage) (Record, error) {
	rec, err := r.persist(ctx, eventType, data)
	if err != nil {
		return Record{}, err
	}

	if eventType == string(event.TopicAuditLogged) {
		r.logger.Debug("skipping audit.logged republish to prevent loop", "record_id", rec.ID)
		return rec, nil
	}

	notice := event.AuditLogged{
		ID:        rec.ID.String(),
		EventType: rec.EventType,
		Data:      rec.Data,
		CreatedAt: rec.CreatedAt,
	}
	if err := r.publisher.Publish(ctx, notice); err != nil {
		r.compensate(ctx, eventType, data, err)
		return rec, fmt.Errorf("publish audit completion: %w", err)
	}
	return rec, nil
}

// Replicate persists an audit-completion notice delivered over the
// audit.logged topic. Same persistence and compensation as Record, but it
// never publishes a follow-on event: that is the other half of the loop
// prevention.
func (r *Recorder) Replicate(ctx context.Context, eventType string, data json.RawMessage) (Record, error) {
	return r.persist(ctx, eventType, data)
}

func (r *Recorder) persist(ctx context.Context, eventType string, data json.RawMessage) (Record, error) {
	rec := Record{
		ID:        uuid.New(),
		EventType: eventType,
		Data:      data,
		CreatedAt: r.now().UTC(),
	}
	if err := r.store.Append(ctx, rec); err != nil {
		if r.metrics != nil {
			r.metrics.AuditFailures.Inc()
		}
		r.compensate(ctx, eventType, data, err)
		return Record{}, fmt.Errorf("persist audit record: %w", err)
	}

	if r.metrics != nil {
		r.metrics.AuditRecords.Inc()
	}
	r.logger.Debug("audit record created", "record_id", rec.ID, "event_type", eventType)
	return rec, nil
}

func (r *Recorder) compensate(ctx context.Context, eventType string, data json.RawMessage, cause error) {
	failed := event.AuditFailed{
		EventType: eventType,
		Data:      data,
		Error:     cause.Error(),
		Timestamp: r.now().UTC(),
	}
	if err := r.publisher.Publish(ctx, failed); err != nil {
		// Best effort only; the caller still sees the original failure.
		r.logger.Error("audit compensation publish failed",
			"event_type", eventType,
			"cause", cause,
			"error", err,
		)
	}
}
