// Package memstore provides in-process implementations of the storage
// interfaces. They are the default backend for embedded use and tests;
// production deployments typically use redisstore or sqlstore instead.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/overtonx/notifier/storage"
)

// DedupStore is an in-memory dedup store with per-key expiry. Expired keys
// are removed lazily on lookup and eagerly by DeleteExpired.
type DedupStore struct {
	mu      sync.RWMutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewDedupStore creates an empty in-memory dedup store.
func NewDedupStore() *DedupStore {
	return &DedupStore{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Exists reports whether a live record exists for key. An expired record is
// deleted on the way out.
func (s *DedupStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	deadline, ok := s.expires[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if s.now().Before(deadline) {
		return true, nil
	}

	s.mu.Lock()
	// Re-check under the write lock; Put may have refreshed the key.
	if deadline, ok := s.expires[key]; ok && !s.now().Before(deadline) {
		delete(s.expires, key)
	}
	s.mu.Unlock()
	return false, nil
}

// Put records key with the given ttl, overwriting any previous deadline.
func (s *DedupStore) Put(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.expires[key] = s.now().Add(ttl)
	s.mu.Unlock()
	return nil
}

// DeleteExpired removes all expired records and returns how many were removed.
func (s *DedupStore) DeleteExpired(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := s.now()
	var removed int64

	s.mu.Lock()
	for key, deadline := range s.expires {
		if !now.Before(deadline) {
			delete(s.expires, key)
			removed++
		}
	}
	s.mu.Unlock()
	return removed, nil
}

// DeadLetterStore is an in-memory append-only dead-letter queue.
type DeadLetterStore struct {
	mu      sync.Mutex
	nextID  int64
	records []storage.DeadLetterRecord
}

// NewDeadLetterStore creates an empty in-memory dead-letter store.
func NewDeadLetterStore() *DeadLetterStore {
	return &DeadLetterStore{nextID: 1}
}

// Push appends a record, assigning it the next sequential ID.
func (s *DeadLetterStore) Push(ctx context.Context, record storage.DeadLetterRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	record.ID = s.nextID
	s.nextID++
	s.records = append(s.records, record)
	s.mu.Unlock()
	return nil
}

// List returns up to limit records in insertion order without removing them.
// A non-positive limit returns everything.
func (s *DeadLetterStore) List(ctx context.Context, limit int) ([]storage.DeadLetterRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]storage.DeadLetterRecord, n)
	copy(out, s.records[:n])
	return out, nil
}

// Drain removes and returns up to limit records in insertion order.
// A non-positive limit drains everything.
func (s *DeadLetterStore) Drain(ctx context.Context, limit int) ([]storage.DeadLetterRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]storage.DeadLetterRecord, n)
	copy(out, s.records[:n])
	s.records = append(s.records[:0:0], s.records[n:]...)
	return out, nil
}

// Count returns the current backlog size.
func (s *DeadLetterStore) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}
