package storage

import (
	"context"
	"time"
)

// DedupStore records which event IDs have already produced a send, with a
// per-key time-to-live. A key written with TTL t must stay visible to Exists
// for at least t and become invisible eventually after t elapses; no stronger
// consistency is assumed by the dispatcher. Implementations must be safe for
// concurrent use.
type DedupStore interface {
	// Exists reports whether a live (non-expired) record exists for key.
	Exists(ctx context.Context, key string) (bool, error)
	// Put writes a dedup record for key that expires after ttl.
	Put(ctx context.Context, key string, ttl time.Duration) error
}

// ExpiringDedupStore is implemented by dedup stores that cannot expire keys
// natively and need periodic cleanup of expired rows.
type ExpiringDedupStore interface {
	DedupStore
	// DeleteExpired removes records whose TTL has elapsed and returns the
	// number of records removed.
	DeleteExpired(ctx context.Context) (int64, error)
}

// DeadLetterStore is an append-only record of failed delivery attempts.
// Records never expire on their own; they sit until listed or drained by
// operational tooling. Implementations must be safe for concurrent use.
type DeadLetterStore interface {
	// Push appends a record. It is fire-and-forget from the dispatcher's
	// point of view and must not block indefinitely.
	Push(ctx context.Context, record DeadLetterRecord) error
	// List returns up to limit records in insertion order without removing
	// them.
	List(ctx context.Context, limit int) ([]DeadLetterRecord, error)
	// Drain removes and returns up to limit records in insertion order.
	Drain(ctx context.Context, limit int) ([]DeadLetterRecord, error)
	// Count returns the current backlog size.
	Count(ctx context.Context) (int64, error)
}

// DeadLetterRecord is a failed notification attempt set aside for inspection
// or replay.
type DeadLetterRecord struct {
	ID           int64     `json:"id,omitempty"`
	EventID      string    `json:"event_id"`
	Recipient    string    `json:"recipient"`
	Payload      []byte    `json:"payload"`
	AttemptCount int       `json:"attempt_count"`
	LastError    string    `json:"last_error"`
	FailedAt     time.Time `json:"failed_at"`
}
