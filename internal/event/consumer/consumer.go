// Package consumer runs the poll/handle loops behind every subscription in
// the system. One Runner per (group, topic); handlers run sequentially
// within a loop, loops run concurrently with each other.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eventflow/internal/event"
	"eventflow/internal/platform/metrics"
)

// ErrSourceClosed signals that the underlying client was closed; the runner
// exits cleanly.
var ErrSourceClosed = errors.New("consumer source closed")

// Message is one delivered record. Handlers treat it as read-only.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
}

// Handler processes one message. Returning an error wrapping
// event.ErrMalformed or event.ErrMissingFields asks the runner to drop the
// message with a warning; any other error is logged and the loop continues.
// Either way the message is committed: there is no retry and no dead-letter
// queue at this layer, so handlers with side effects must tolerate broker
// redelivery (at-least-once).
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Source is the broker side of a loop: poll for messages, commit what was
// handled. Implemented by kafka.GroupClient; faked in tests.
type Source interface {
	Poll(ctx context.Context) ([]*Message, error)
	Commit(ctx context.Context, msgs []*Message) error
	Close()
}

// Runner drives one consumer group loop. Poll failures no longer kill the
// loop: the runner backs off exponentially and resumes, so a broker blip
// does not leave a dead consumer behind. It stops only when the context is
// cancelled or the source is closed.
type Runner struct {
	group      string
	source     Source
	handler    Handler
	logger     *slog.Logger
	metrics    *metrics.Metrics
	minBackoff time.Duration
	maxBackoff time.Duration
	tracer     trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics wires the consumed/dropped/failure counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithBackoff overrides the supervision backoff window.
func WithBackoff(minDelay, maxDelay time.Duration) Option {
	return func(r *Runner) {
		r.minBackoff = minDelay
		r.maxBackoff = maxDelay
	}
}

func NewRunner(group string, source Source, handler Handler, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		group:      group,
		source:     source,
		handler:    handler,
		logger:     logger,
		minBackoff: 250 * time.Millisecond,
		maxBackoff: 30 * time.Second,
		tracer:     otel.Tracer("eventflow/consumer"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls and handles until ctx is cancelled or the source closes.
func (r *Runner) Run(ctx context.Context) error {
	backoff := r.minBackoff
	for {
		msgs, err := r.source.Poll(ctx)

		for _, msg := range msgs {
			r.handle(ctx, msg)
		}
		if len(msgs) > 0 {
			if err := r.source.Commit(ctx, msgs); err != nil {
				// Redelivery of already-handled messages; handlers tolerate it.
				r.logger.Error("offset commit failed", "group", r.group, "error", err)
			}
		}

		switch {
		case err == nil:
			backoff = r.minBackoff
		case errors.Is(err, ErrSourceClosed):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			r.logger.Error("poll failed, backing off",
				"group", r.group,
				"backoff", backoff.String(),
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, r.maxBackoff)
		}
	}
}

func (r *Runner) handle(ctx context.Context, msg *Message) {
	ctx, span := r.tracer.Start(ctx, "consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.String("messaging.consumer.group.name", r.group),
		),
	)
	defer span.End()

	err := r.handler.Handle(ctx, msg)
	switch {
	case err == nil:
		if r.metrics != nil {
			r.metrics.EventsConsumed.WithLabelValues(r.group, msg.Topic).Inc()
		}
	case errors.Is(err, event.ErrMalformed), errors.Is(err, event.ErrMissingFields):
		// Drop and move on. Liveness over completeness: the metric and the
		// warning are the only trace this message leaves.
		r.logger.Warn("dropping message",
			"group", r.group,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.MessagesDropped.WithLabelValues(r.group, dropReason(err)).Inc()
		}
	default:
		span.RecordError(err)
		r.logger.Error("handler failed, continuing",
			"group", r.group,
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.HandlerFailures.WithLabelValues(r.group).Inc()
		}
	}
}

func dropReason(err error) string {
	if errors.Is(err, event.ErrMissingFields) {
		return "missing_fields"
	}
	return "malformed"
}
