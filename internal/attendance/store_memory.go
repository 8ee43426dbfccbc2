package attendance

import (
	"context"
	"sync"
)

// MemoryStore keeps counts in memory. Tests and single-process deployments
// without Redis use it.
type MemoryStore struct {
	mu     sync.Mutex
	seen   map[string]map[string]struct{}
	counts map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seen:   make(map[string]map[string]struct{}),
		counts: make(map[string]int64),
	}
}

func (s *MemoryStore) Apply(_ context.Context, eventID, registrationKey string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, ok := s.seen[eventID]
	if !ok {
		keys = make(map[string]struct{})
		s.seen[eventID] = keys
	}
	if _, dup := keys[registrationKey]; dup {
		return false, s.counts[eventID], nil
	}
	keys[registrationKey] = struct{}{}
	s.counts[eventID]++
	return true, s.counts[eventID], nil
}

func (s *MemoryStore) Count(_ context.Context, eventID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[eventID], nil
}
