// Package redisstore implements the storage interfaces on Redis.
//
// Dedup records are plain keys written with a native TTL, so expiry is
// handled by Redis itself and needs no cleanup job. The dead-letter queue is
// a Redis list of JSON-encoded records.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/overtonx/notifier/storage"
)

const (
	defaultDedupPrefix   = "notifier:dedup:"
	defaultDeadLetterKey = "notifier:deadletters"
)

// DedupStore is a Redis-backed dedup store.
type DedupStore struct {
	client redis.UniversalClient
	prefix string
}

// DedupStoreOption configures a DedupStore.
type DedupStoreOption func(*DedupStore)

// WithDedupKeyPrefix overrides the key prefix used for dedup records.
func WithDedupKeyPrefix(prefix string) DedupStoreOption {
	return func(s *DedupStore) {
		s.prefix = prefix
	}
}

// NewDedupStore creates a dedup store on top of an existing Redis client.
func NewDedupStore(client redis.UniversalClient, opts ...DedupStoreOption) *DedupStore {
	s := &DedupStore{
		client: client,
		prefix: defaultDedupPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exists reports whether a live record exists for key.
func (s *DedupStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return n > 0, nil
}

// Put writes a dedup record for key. Redis expires it after ttl.
func (s *DedupStore) Put(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to write dedup key: %w", err)
	}
	return nil
}

// DeadLetterStore is a Redis-backed dead-letter queue.
type DeadLetterStore struct {
	client redis.UniversalClient
	key    string
}

// DeadLetterStoreOption configures a DeadLetterStore.
type DeadLetterStoreOption func(*DeadLetterStore)

// WithDeadLetterKey overrides the list key holding dead-letter records.
func WithDeadLetterKey(key string) DeadLetterStoreOption {
	return func(s *DeadLetterStore) {
		s.key = key
	}
}

// NewDeadLetterStore creates a dead-letter store on top of an existing Redis client.
func NewDeadLetterStore(client redis.UniversalClient, opts ...DeadLetterStoreOption) *DeadLetterStore {
	s := &DeadLetterStore{
		client: client,
		key:    defaultDeadLetterKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push appends a record to the tail of the list.
func (s *DeadLetterStore) Push(ctx context.Context, record storage.DeadLetterRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter record: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push dead-letter record: %w", err)
	}
	return nil
}

// List returns up to limit records from the head of the list without
// removing them. A non-positive limit returns everything.
func (s *DeadLetterStore) List(ctx context.Context, limit int) ([]storage.DeadLetterRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead-letter records: %w", err)
	}
	return decodeRecords(items)
}

// Drain removes and returns up to limit records from the head of the list.
// A non-positive limit drains everything.
func (s *DeadLetterStore) Drain(ctx context.Context, limit int) ([]storage.DeadLetterRecord, error) {
	count := limit
	if count <= 0 {
		n, err := s.client.LLen(ctx, s.key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to size dead-letter queue: %w", err)
		}
		if n == 0 {
			return nil, nil
		}
		count = int(n)
	}

	items, err := s.client.LPopCount(ctx, s.key, count).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to drain dead-letter records: %w", err)
	}
	return decodeRecords(items)
}

// Count returns the current backlog size.
func (s *DeadLetterStore) Count(ctx context.Context) (int64, error) {
	n, err := s.client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count dead-letter records: %w", err)
	}
	return n, nil
}

func decodeRecords(items []string) ([]storage.DeadLetterRecord, error) {
	records := make([]storage.DeadLetterRecord, 0, len(items))
	for _, item := range items {
		var record storage.DeadLetterRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dead-letter record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}
