package notifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/overtonx/notifier/storage"
)

// Handler handles one notification event to a terminal outcome.
type Handler interface {
	Handle(ctx context.Context, event Event) (Outcome, error)
}

// Dispatcher turns an inbound order event into an at-most-once-effective
// outbound notification. Per event it checks the dedup store, attempts
// delivery through the injected transport, and records the outcome: a dedup
// record on success, a dead-letter record on failure, counters always.
//
// The dispatcher holds no internal locks and no mutable state beyond
// collaborator handles; Handle may be called from any number of goroutines
// concurrently. The collaborators must be internally synchronized.
type Dispatcher struct {
	dedup       storage.DedupStore
	deadLetters storage.DeadLetterStore
	transport   Transport
	renderer    Renderer
	registry    *Registry
	metrics     MetricsCollector
	logger      *zap.Logger
	dedupTTL    time.Duration
	callTimeout time.Duration
}

// NewDispatcher creates a dispatcher over the three collaborators.
func NewDispatcher(
	dedup storage.DedupStore,
	deadLetters storage.DeadLetterStore,
	transport Transport,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		dedup:       dedup,
		deadLetters: deadLetters,
		transport:   transport,
		renderer:    NewDefaultRenderer(),
		registry:    NewRegistry(),
		metrics:     NewNopMetricsCollector(),
		logger:      zap.NewNop(),
		dedupTTL:    defaultDedupTTL,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the counter registry the dispatcher reports into.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Handle processes a single event to one of the terminal outcomes.
//
// The returned error is non-nil in exactly two cases: the event is malformed
// (OutcomeRejected, ErrInvalidEvent) or a store was unreachable
// (OutcomeUnknown). An OutcomeUnknown event was neither sent, deduplicated
// nor dead-lettered; the caller must withhold its offset commit so the event
// is redelivered.
//
// The dedup check and the dedup write are deliberately not atomic: two
// concurrent Handle calls for the same ID may both pass the check and both
// send. That doubles at worst, is bounded by the upstream redelivery rate,
// and is the accepted price for not serializing all sends per ID.
func (d *Dispatcher) Handle(ctx context.Context, event Event) (Outcome, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordDuration("dispatcher.handle.duration", time.Since(start), nil)
	}()

	if err := validateEvent(event); err != nil {
		d.logger.Warn("Rejected malformed event", zap.Error(err))
		d.metrics.IncrementCounter("dispatcher.rejected", nil)
		return OutcomeRejected, err
	}

	eventFields := []zap.Field{
		zap.String("event_id", event.EventID),
		zap.String("recipient", event.Recipient),
	}

	seen, err := d.checkDedup(ctx, event.EventID)
	if err != nil {
		d.metrics.IncrementCounter("dispatcher.dedup_check_failed", nil)
		d.logger.Error("Dedup store unreachable", append(eventFields, zap.Error(err))...)
		return OutcomeUnknown, fmt.Errorf("dedup lookup for event %s: %w", event.EventID, err)
	}
	if seen {
		d.registry.IncDeduplicated()
		d.metrics.IncrementCounter("dispatcher.deduplicated", nil)
		d.logger.Info("Suppressed duplicate event", eventFields...)
		return OutcomeDeduplicated, nil
	}

	message, err := d.renderer.Render(event)
	if err != nil {
		d.logger.Warn("Failed to render event", append(eventFields, zap.Error(err))...)
		d.metrics.IncrementCounter("dispatcher.rejected", nil)
		return OutcomeRejected, fmt.Errorf("render event %s: %w", event.EventID, err)
	}

	messageID, sendErr := d.send(ctx, message)
	if sendErr != nil {
		d.registry.IncFailed()
		d.metrics.IncrementCounter("dispatcher.failed", nil)
		d.logger.Error("Delivery failed, dead-lettering event", append(eventFields, zap.Error(sendErr))...)

		if err := d.pushDeadLetter(ctx, event, sendErr); err != nil {
			d.metrics.IncrementCounter("dispatcher.deadletter_push_failed", nil)
			d.logger.Error("Dead-letter store unreachable", append(eventFields, zap.Error(err))...)
			return OutcomeUnknown, fmt.Errorf("dead-letter push for event %s: %w", event.EventID, err)
		}
		return OutcomeDeadLettered, nil
	}

	// The mail is out; a failed dedup write must not fail the event. It only
	// widens the window in which a redelivery would send twice.
	if err := d.putDedup(ctx, event.EventID); err != nil {
		d.metrics.IncrementCounter("dispatcher.dedup_write_failed", nil)
		d.logger.Warn("Failed to write dedup record after send", append(eventFields, zap.Error(err))...)
	}

	d.registry.IncSent()
	d.metrics.IncrementCounter("dispatcher.sent", nil)
	d.logger.Info("Event delivered", append(eventFields, zap.String("message_id", messageID))...)
	return OutcomeSent, nil
}

func (d *Dispatcher) checkDedup(ctx context.Context, key string) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	return d.dedup.Exists(cctx, key)
}

func (d *Dispatcher) putDedup(ctx context.Context, key string) error {
	cctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	return d.dedup.Put(cctx, key, d.dedupTTL)
}

func (d *Dispatcher) send(ctx context.Context, message Message) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	return d.transport.Send(cctx, message)
}

func (d *Dispatcher) pushDeadLetter(ctx context.Context, event Event, cause error) error {
	record := storage.DeadLetterRecord{
		EventID:      event.EventID,
		Recipient:    event.Recipient,
		Payload:      append([]byte(nil), event.Payload...),
		AttemptCount: event.Attempt + 1,
		LastError:    cause.Error(),
		FailedAt:     time.Now().UTC(),
	}

	cctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	return d.deadLetters.Push(cctx, record)
}
