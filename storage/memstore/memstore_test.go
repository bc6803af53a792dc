package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overtonx/notifier/storage"
)

func TestDedupStore_PutAndExists(t *testing.T) {
	ctx := context.Background()
	store := NewDedupStore()

	seen, err := store.Exists(ctx, "order-42")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Put(ctx, "order-42", time.Hour))

	seen, err = store.Exists(ctx, "order-42")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDedupStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewDedupStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "order-42", time.Minute))

	seen, err := store.Exists(ctx, "order-42")
	require.NoError(t, err)
	assert.True(t, seen)

	now = now.Add(2 * time.Minute)

	seen, err = store.Exists(ctx, "order-42")
	require.NoError(t, err)
	assert.False(t, seen, "an expired key reads as absent")

	// Putting again after expiry starts a fresh window.
	require.NoError(t, store.Put(ctx, "order-42", time.Minute))
	seen, err = store.Exists(ctx, "order-42")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDedupStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewDedupStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "old-1", time.Minute))
	require.NoError(t, store.Put(ctx, "old-2", time.Minute))
	require.NoError(t, store.Put(ctx, "fresh", time.Hour))

	now = now.Add(5 * time.Minute)

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	seen, err := store.Exists(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDedupStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewDedupStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("order-%d", i%3)
			_ = store.Put(ctx, key, time.Hour)
			_, _ = store.Exists(ctx, key)
			_, _ = store.DeleteExpired(ctx)
		}(i)
	}
	wg.Wait()
}

func TestDedupStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewDedupStore()

	_, err := store.Exists(ctx, "order-42")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Put(ctx, "order-42", time.Hour), context.Canceled)
}

func record(eventID string) storage.DeadLetterRecord {
	return storage.DeadLetterRecord{
		EventID:      eventID,
		Recipient:    "customer@example.com",
		Payload:      []byte(`{}`),
		AttemptCount: 1,
		LastError:    "smtp timeout",
		FailedAt:     time.Now().UTC(),
	}
}

func TestDeadLetterStore_PushAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	store := NewDeadLetterStore()

	require.NoError(t, store.Push(ctx, record("order-1")))
	require.NoError(t, store.Push(ctx, record("order-2")))

	records, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.EqualValues(t, 1, records[0].ID)
	assert.EqualValues(t, 2, records[1].ID)
	assert.Equal(t, "order-1", records[0].EventID)
}

func TestDeadLetterStore_ListDoesNotRemove(t *testing.T) {
	ctx := context.Background()
	store := NewDeadLetterStore()
	require.NoError(t, store.Push(ctx, record("order-1")))

	_, err := store.List(ctx, 0)
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestDeadLetterStore_DrainRemovesInOrder(t *testing.T) {
	ctx := context.Background()
	store := NewDeadLetterStore()
	require.NoError(t, store.Push(ctx, record("order-1")))
	require.NoError(t, store.Push(ctx, record("order-2")))
	require.NoError(t, store.Push(ctx, record("order-3")))

	drained, err := store.Drain(ctx, 2)
	require.NoError(t, err)
	require.Len(t, drained, 2)
	assert.Equal(t, "order-1", drained[0].EventID)
	assert.Equal(t, "order-2", drained[1].EventID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	rest, err := store.Drain(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "order-3", rest[0].EventID)
}

func TestDeadLetterStore_LimitLargerThanBacklog(t *testing.T) {
	ctx := context.Background()
	store := NewDeadLetterStore()
	require.NoError(t, store.Push(ctx, record("order-1")))

	records, err := store.List(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDeadLetterStore_EmptyDrain(t *testing.T) {
	ctx := context.Background()
	store := NewDeadLetterStore()

	records, err := store.Drain(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
