package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
)

// TopicAdmin is the slice of the broker admin API the provisioner needs.
// *kadm.Client satisfies it.
type TopicAdmin interface {
	ListTopics(ctx context.Context, topics ...string) (kadm.TopicDetails, error)
	CreateTopics(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topics ...string) (kadm.CreateTopicResponses, error)
}

// EnsureTopics diffs the registry against the broker and batch-creates
// whatever is missing, with 1 partition and replication factor 1 (this
// system targets a single-broker deployment). Safe to race across service
// startups: a topic created by a concurrent caller counts as success. Must
// complete before the process publishes or subscribes.
func EnsureTopics(ctx context.Context, adm TopicAdmin, logger *slog.Logger, topics []string) error {
	existing, err := adm.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}

	var missing []string
	for _, t := range topics {
		if !existing.Has(t) {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		logger.Info("all kafka topics already exist")
		return nil
	}

	resps, err := adm.CreateTopics(ctx, 1, 1, nil, missing...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}

	var created []string
	for _, resp := range resps {
		if resp.Err != nil {
			// Another service won the race on this topic; fine.
			if errors.Is(resp.Err, kerr.TopicAlreadyExists) {
				continue
			}
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
		created = append(created, resp.Topic)
	}
	if len(created) > 0 {
		logger.Info("created kafka topics", "topics", created)
	}
	return nil
}

// EnsureTopics provisions the registry using the broker's shared client.
// EnsurePublisher must have succeeded first.
func (b *Broker) EnsureTopics(ctx context.Context, topics []string) error {
	b.mu.Lock()
	cl := b.pub
	b.mu.Unlock()
	if cl == nil {
		return ErrNotConnected
	}
	return EnsureTopics(ctx, kadm.NewClient(cl), b.logger, topics)
}
