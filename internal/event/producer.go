package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eventflow/internal/platform/metrics"
)

// Broker is the publish side of the connection manager. Implemented by
// kafka.Broker; faked in tests.
type Broker interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// Publisher turns typed payloads into broker messages. One Publisher per
// process, sharing the broker's publish client; safe for concurrent use by
// every loop in the process.
//
// A nil publish error means the broker acked the write (at-least-once from
// there). There is no atomicity with the caller's own persistence step and
// no retry here: callers that log-and-continue accept the loss window.
type Publisher struct {
	broker  Broker
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithMetrics wires the published/failed counters.
func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

func NewPublisher(broker Broker, logger *slog.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		broker: broker,
		logger: logger,
		tracer: otel.Tracer("eventflow/producer"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish marshals the payload and produces it to the payload's topic.
func (p *Publisher) Publish(ctx context.Context, payload Payload) error {
	topic := payload.EventTopic()

	ctx, span := p.tracer.Start(ctx, "publish "+string(topic),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("messaging.destination.name", string(topic))),
	)
	defer span.End()

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	if err := p.broker.Produce(ctx, string(topic), nil, value); err != nil {
		span.RecordError(err)
		if p.metrics != nil {
			p.metrics.PublishFailures.WithLabelValues(string(topic)).Inc()
		}
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(string(topic)).Inc()
	}
	p.logger.Debug("event published", "topic", topic)
	return nil
}
