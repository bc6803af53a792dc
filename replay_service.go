package notifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/overtonx/notifier/storage"
)

// ReplayDeadLetters drains a batch of dead-letter records and resubmits each
// one as a fresh event through the given handler. Replay lives outside the
// dispatcher's own control flow: the dispatcher never retries, this job is
// scheduled externally (typically via a BaseWorker).
//
// A record that fails delivery again is dead-lettered again by the handler
// with an incremented attempt count. A record the handler could not process
// at all (store unreachable) is pushed back verbatim and the batch is
// aborted. A record the handler rejects as malformed is discarded with an
// error log; replaying it can never succeed.
func (c *Carrier) ReplayDeadLetters(ctx context.Context, handler Handler, opts ...ReplayOption) error {
	options := &replayOptions{
		batchSize: defaultReplayBatchSize,
	}
	for _, opt := range opts {
		opt(options)
	}

	start := time.Now()
	defer func() {
		c.metrics.RecordDuration("replay.duration", time.Since(start), nil)
	}()

	records, err := c.deadLetters.Drain(ctx, options.batchSize)
	if err != nil {
		return fmt.Errorf("failed to drain dead-letter queue: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	c.logger.Info("Replaying dead-letter records", zap.Int("count", len(records)))
	c.metrics.RecordGauge("replay.batch_size", float64(len(records)), nil)

	var delivered, deadLetteredAgain int
	for i, record := range records {
		select {
		case <-ctx.Done():
			c.requeue(records[i:])
			return ctx.Err()
		default:
		}

		event := Event{
			EventID:   record.EventID,
			Recipient: record.Recipient,
			Payload:   record.Payload,
			Attempt:   record.AttemptCount,
		}

		outcome, err := handler.Handle(ctx, event)
		switch {
		case outcome == OutcomeRejected:
			c.logger.Error("Discarding unreplayable dead-letter record",
				zap.String("event_id", record.EventID),
				zap.Error(err),
			)
			c.metrics.IncrementCounter("replay.discarded", nil)
		case err != nil:
			c.logger.Warn("Replay interrupted, requeueing remaining records",
				zap.String("event_id", record.EventID),
				zap.Error(err),
			)
			c.requeue(records[i:])
			return fmt.Errorf("replay of event %s: %w", record.EventID, err)
		case outcome == OutcomeDeadLettered:
			deadLetteredAgain++
			c.metrics.IncrementCounter("replay.failed_again", nil)
		default: // Sent or Deduplicated
			delivered++
			c.metrics.IncrementCounter("replay.delivered", nil)
		}
	}

	c.logger.Info("Replay batch completed",
		zap.Int("delivered", delivered),
		zap.Int("dead_lettered_again", deadLetteredAgain),
	)
	return nil
}

// requeue puts drained records back so an aborted batch loses nothing. It
// uses a fresh context because the batch context may already be cancelled.
func (c *Carrier) requeue(records []storage.DeadLetterRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCallTimeout)
	defer cancel()

	for _, record := range records {
		if err := c.deadLetters.Push(ctx, record); err != nil {
			c.logger.Error("Failed to requeue dead-letter record, record is lost",
				zap.String("event_id", record.EventID),
				zap.Error(err),
			)
			c.metrics.IncrementCounter("replay.requeue_failed", nil)
		}
	}
}
