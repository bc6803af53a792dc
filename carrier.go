package notifier

import (
	"go.uber.org/zap"

	"github.com/overtonx/notifier/storage"
)

// Carrier holds the shared collaborators of the notification pipeline.
// It acts as a dependency injection container for the dispatcher and the
// operational services (replay, backlog polling, dedup cleanup).
type Carrier struct {
	dedup       storage.DedupStore
	deadLetters storage.DeadLetterStore
	transport   Transport
	renderer    Renderer
	registry    *Registry
	metrics     MetricsCollector
	logger      *zap.Logger
}

// NewCarrier creates a new Carrier with the given options. The carrier is
// responsible for holding shared resources: the dedup store, the dead-letter
// store, the transport, logger, and metrics.
func NewCarrier(
	dedup storage.DedupStore,
	deadLetters storage.DeadLetterStore,
	transport Transport,
	opts ...CarrierOption,
) (*Carrier, error) {
	c := &Carrier{
		dedup:       dedup,
		deadLetters: deadLetters,
		transport:   transport,
		renderer:    NewDefaultRenderer(),
		registry:    NewRegistry(),
		metrics:     NewNopMetricsCollector(),
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Dispatcher builds a dispatcher wired to the carrier's collaborators.
// Options are applied on top of the carrier defaults.
func (c *Carrier) Dispatcher(opts ...DispatcherOption) *Dispatcher {
	base := []DispatcherOption{
		WithDispatcherLogger(c.logger),
		WithDispatcherMetrics(c.metrics),
		WithDispatcherRegistry(c.registry),
		WithDispatcherRenderer(c.renderer),
	}
	return NewDispatcher(c.dedup, c.deadLetters, c.transport, append(base, opts...)...)
}

// Registry returns the counter registry shared by everything the carrier builds.
func (c *Carrier) Registry() *Registry {
	return c.registry
}
