package notifier

import (
	"context"
	"fmt"
	"time"
)

// RefreshBacklog polls the dead-letter store size into the registry gauge.
// Backlog reporting is pull-based: the dispatcher never pushes a size, this
// job is scheduled externally (typically via a BaseWorker).
func (c *Carrier) RefreshBacklog(ctx context.Context) error {
	start := time.Now()
	defer func() {
		c.metrics.RecordDuration("backlog.poll.duration", time.Since(start), nil)
	}()

	count, err := c.deadLetters.Count(ctx)
	if err != nil {
		c.metrics.IncrementCounter("backlog.poll.failed", nil)
		return fmt.Errorf("failed to count dead-letter backlog: %w", err)
	}

	c.registry.SetBacklog(count)
	c.metrics.RecordGauge("deadletter.backlog", float64(count), nil)
	return nil
}
