package notifier

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Supervisor manages the lifecycle of a collection of workers: the event
// source, the backlog poller, the replay job. It is responsible for starting
// and stopping them gracefully.
type Supervisor struct {
	logger *zap.Logger
	wg     sync.WaitGroup

	mu       sync.RWMutex
	workers  []Worker
	stopOnce sync.Once
	stopChan chan struct{}
	started  bool
}

// NewSupervisor creates a new supervisor to manage the given workers.
func NewSupervisor(logger *zap.Logger, workers ...Worker) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		logger:   logger,
		workers:  workers,
		stopChan: make(chan struct{}),
	}
}

// Start runs all the workers and blocks until the context is cancelled or Stop() is called.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.Warn("Supervisor already started")
		return
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("Starting supervisor with workers", zap.Int("worker_count", len(s.workers)))

	for _, w := range s.workers {
		s.wg.Add(1)
		go func(worker Worker) {
			defer s.wg.Done()
			s.logger.Info("Starting worker", zap.String("worker_name", worker.Name()))
			worker.Start(ctx)
			s.logger.Info("Worker stopped", zap.String("worker_name", worker.Name()))
		}(w)
	}

	// Wait for context cancellation or an explicit stop signal.
	select {
	case <-ctx.Done():
		s.logger.Info("Context cancelled, stopping supervisor")
		s.Stop() // Ensure stop logic is triggered
	case <-s.stopChan:
		s.logger.Info("Stop signal received, stopping supervisor")
	}

	// Wait for all workers to finish their shutdown.
	s.wg.Wait()
	s.logger.Info("All workers have been stopped. Supervisor shutdown complete.")

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
}

// Stop gracefully shuts down the supervisor and all its workers.
// It is safe to call Stop multiple times.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if !s.started {
			s.logger.Warn("Attempted to stop a supervisor that was not started")
			return
		}
		s.logger.Info("Stopping supervisor...")
		close(s.stopChan)

		// Also stop individual workers. This is important for the worker's own graceful shutdown.
		for _, worker := range s.workers {
			worker.Stop()
		}
	})
}

// IsStarted returns true if the supervisor is currently running.
func (s *Supervisor) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
