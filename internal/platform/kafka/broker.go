package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"eventflow/internal/event/consumer"
)

// ErrNotConnected is returned by Produce before EnsurePublisher succeeded.
var ErrNotConnected = errors.New("kafka publisher not connected")

// Config carries the broker addresses shared by every client in a process.
type Config struct {
	Brokers  []string
	ClientID string
}

// Broker owns the process's broker connections: a single shared publish
// client, reused by every producer, and one consumer client per group opened
// through OpenConsumerGroup. It is constructed in main and passed by
// reference; lifecycle is explicit (EnsurePublisher/Close), never
// implicit-on-first-use.
type Broker struct {
	cfg    Config
	logger *slog.Logger

	mu  sync.Mutex
	pub *kgo.Client
}

func NewBroker(cfg Config, logger *slog.Logger) *Broker {
	return &Broker{cfg: cfg, logger: logger}
}

// EnsurePublisher establishes the shared publish client. Idempotent: the
// first successful call connects, later calls no-op. A connection failure is
// returned to the caller untouched; there is no retry at this layer.
func (b *Broker) EnsurePublisher(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pub != nil {
		return nil
	}

	cl, err := kgo.NewClient(
		kgo.SeedBrokers(b.cfg.Brokers...),
		kgo.ClientID(b.cfg.ClientID),
	)
	if err != nil {
		return fmt.Errorf("create kafka client: %w", err)
	}
	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return fmt.Errorf("connect kafka broker: %w", err)
	}

	b.pub = cl
	b.logger.Info("kafka producer connected", "brokers", b.cfg.Brokers)
	return nil
}

// Produce writes one record and waits for the broker ack. Delivery is
// at-least-once once this returns nil; ordering holds per partition only.
func (b *Broker) Produce(ctx context.Context, topic string, key, value []byte) error {
	b.mu.Lock()
	cl := b.pub
	b.mu.Unlock()
	if cl == nil {
		return ErrNotConnected
	}

	res := cl.ProduceSync(ctx, &kgo.Record{Topic: topic, Key: key, Value: value})
	if err := res.FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// OpenConsumerGroup connects a fresh consumer client for the given durable
// group. Every call yields a new client, even for a group name seen before;
// callers own exactly one logical consumer per group and must Close it.
// Offsets are committed manually by the runner after handling.
func (b *Broker) OpenConsumerGroup(ctx context.Context, group string, topics ...string) (*GroupClient, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(b.cfg.Brokers...),
		kgo.ClientID(b.cfg.ClientID),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer client: %w", err)
	}
	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("connect kafka consumer %q: %w", group, err)
	}

	b.logger.Info("kafka consumer connected", "group", group, "topics", topics)
	return &GroupClient{cl: cl}, nil
}

// Close tears down the shared publish client. Consumer clients are closed by
// their owners.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pub != nil {
		b.pub.Close()
		b.pub = nil
	}
}

// GroupClient adapts a group-scoped kgo client to the consumer.Source the
// runner polls.
type GroupClient struct {
	cl *kgo.Client
}

// Poll blocks for the next batch of records. Fetch-level errors are returned
// alongside any records already fetched so the runner can process what it
// has before backing off.
func (g *GroupClient) Poll(ctx context.Context) ([]*consumer.Message, error) {
	fetches := g.cl.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, consumer.ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var msgs []*consumer.Message
	fetches.EachRecord(func(rec *kgo.Record) {
		msgs = append(msgs, &consumer.Message{
			Topic:     rec.Topic,
			Partition: rec.Partition,
			Offset:    rec.Offset,
			Key:       rec.Key,
			Value:     rec.Value,
		})
	})

	var errs []error
	fetches.EachError(func(topic string, partition int32, err error) {
		errs = append(errs, fmt.Errorf("fetch %s/%d: %w", topic, partition, err))
	})
	return msgs, errors.Join(errs...)
}

// Commit acknowledges the given messages' offsets with the group.
func (g *GroupClient) Commit(ctx context.Context, msgs []*consumer.Message) error {
	recs := make([]*kgo.Record, len(msgs))
	for i, m := range msgs {
		recs[i] = &kgo.Record{Topic: m.Topic, Partition: m.Partition, Offset: m.Offset}
	}
	if err := g.cl.CommitRecords(ctx, recs...); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}
	return nil
}

func (g *GroupClient) Close() {
	g.cl.Close()
}
