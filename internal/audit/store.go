package audit

import "context"

// Store persists audit records. Append must be idempotent on Record.ID so a
// redelivered message cannot duplicate a row, and must tolerate concurrent
// writers: the HTTP ingress and every consumer loop write through it at
// once.
type Store interface {
	Append(ctx context.Context, rec Record) error
	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
