package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps counts in Redis so competing eventd replicas share one
// view. The dedup set is written before the counter moves, which is what
// makes Apply idempotent under redelivery.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func seenKey(eventID string) string  { return "attendance:" + eventID + ":seen" }
func countKey(eventID string) string { return "attendance:" + eventID + ":registered" }

func (s *RedisStore) Apply(ctx context.Context, eventID, registrationKey string) (bool, int64, error) {
	added, err := s.client.SAdd(ctx, seenKey(eventID), registrationKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("record registration key: %w", err)
	}
	if added == 0 {
		total, err := s.Count(ctx, eventID)
		return false, total, err
	}

	total, err := s.client.Incr(ctx, countKey(eventID)).Result()
	if err != nil {
		return false, 0, fmt.Errorf("increment registered count: %w", err)
	}
	return true, total, nil
}

func (s *RedisStore) Count(ctx context.Context, eventID string) (int64, error) {
	total, err := s.client.Get(ctx, countKey(eventID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read registered count: %w", err)
	}
	return total, nil
}
