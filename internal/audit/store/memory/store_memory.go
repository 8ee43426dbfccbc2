package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"eventflow/internal/audit"
)

// Store keeps audit records in memory with the same idempotency contract as
// the Postgres store. Used by tests and by auditd when no DSN is configured.
type Store struct {
	mu      sync.RWMutex
	records []audit.Record
	byID    map[uuid.UUID]struct{}

	// FailAppend forces Append errors; tests use it to exercise the
	// compensation path.
	FailAppend error
}

func New() *Store {
	return &Store{byID: make(map[uuid.UUID]struct{})}
}

func (s *Store) Append(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		return s.FailAppend
	}
	if _, ok := s.byID[rec.ID]; ok {
		return nil
	}
	s.byID[rec.ID] = struct{}{}
	s.records = append(s.records, rec)
	return nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(limit, len(s.records))
	out := make([]audit.Record, 0, n)
	for i := len(s.records) - 1; len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// All returns every record in append order.
func (s *Store) All() []audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Record{}, s.records...)
}
