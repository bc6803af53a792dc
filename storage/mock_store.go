package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockDedupStore is a mock implementation of the DedupStore interface for testing.
type MockDedupStore struct {
	mock.Mock
}

func (m *MockDedupStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockDedupStore) Put(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

// MockDeadLetterStore is a mock implementation of the DeadLetterStore interface for testing.
type MockDeadLetterStore struct {
	mock.Mock
}

func (m *MockDeadLetterStore) Push(ctx context.Context, record DeadLetterRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDeadLetterStore) List(ctx context.Context, limit int) ([]DeadLetterRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]DeadLetterRecord), args.Error(1)
}

func (m *MockDeadLetterStore) Drain(ctx context.Context, limit int) ([]DeadLetterRecord, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]DeadLetterRecord), args.Error(1)
}

func (m *MockDeadLetterStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
