package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/overtonx/notifier/storage"
)

// CleanupDedupRecords removes expired dedup rows for stores that cannot
// expire keys natively (the SQL backend). Stores with native TTL support
// (Redis, in-memory) make this a no-op.
func (c *Carrier) CleanupDedupRecords(ctx context.Context) error {
	store, ok := c.dedup.(storage.ExpiringDedupStore)
	if !ok {
		return nil
	}

	start := time.Now()
	defer func() {
		c.metrics.RecordDuration("cleanup.duration", time.Since(start), nil)
	}()

	removed, err := store.DeleteExpired(ctx)
	if err != nil {
		c.logger.Error("Failed to clean up expired dedup records", zap.Error(err))
		c.metrics.IncrementCounter("cleanup.failed", nil)
		// The cleanup worker keeps running; a failed sweep is retried on the
		// next tick.
		return nil
	}

	if removed > 0 {
		c.logger.Info("Cleaned up expired dedup records", zap.Int64("count", removed))
		c.metrics.RecordGauge("cleanup.removed", float64(removed), nil)
	}
	c.metrics.IncrementCounter("cleanup.executed", nil)
	return nil
}
