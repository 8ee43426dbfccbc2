// Package attendance maintains the per-event registered counter fed by
// registration.created events.
package attendance

import "context"

// Store tracks per-event registration counts with duplicate suppression.
// Apply must be idempotent on (eventID, registrationKey): delivery is
// at-least-once and a bare increment would drift upward on every
// redelivery, so the key is recorded before the count is touched.
type Store interface {
	// Apply counts the registration exactly once. applied is false when the
	// key was already seen; total is the count after the call either way.
	Apply(ctx context.Context, eventID, registrationKey string) (applied bool, total int64, err error)

	// Count returns the current registered count for the event.
	Count(ctx context.Context, eventID string) (int64, error)
}
