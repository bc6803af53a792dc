package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overtonx/notifier/storage"
	"github.com/overtonx/notifier/storage/memstore"
)

func TestCleanupDedupRecords(t *testing.T) {
	ctx := context.Background()
	dedup := memstore.NewDedupStore()
	require.NoError(t, dedup.Put(ctx, "expired", time.Millisecond))
	require.NoError(t, dedup.Put(ctx, "live", time.Hour))

	time.Sleep(10 * time.Millisecond)

	carrier, err := NewCarrier(dedup, memstore.NewDeadLetterStore(), NewNopTransport())
	require.NoError(t, err)

	require.NoError(t, carrier.CleanupDedupRecords(ctx))

	seen, err := dedup.Exists(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = dedup.Exists(ctx, "live")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestCleanupDedupRecords_NonExpiringStore(t *testing.T) {
	// A store without DeleteExpired (native TTLs, like Redis) makes cleanup a
	// no-op. The mock does not implement ExpiringDedupStore, so no calls are
	// expected on it.
	dedup := new(storage.MockDedupStore)

	carrier, err := NewCarrier(dedup, memstore.NewDeadLetterStore(), NewNopTransport())
	require.NoError(t, err)

	assert.NoError(t, carrier.CleanupDedupRecords(context.Background()))
	dedup.AssertExpectations(t)
}
