package notifier

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// mockWorker is a controllable worker for supervisor tests.
type mockWorker struct {
	name     string
	started  atomic.Bool
	stopped  atomic.Bool
	stopChan chan struct{}
}

func newMockWorker(name string) *mockWorker {
	return &mockWorker{
		name:     name,
		stopChan: make(chan struct{}),
	}
}

func (w *mockWorker) Start(ctx context.Context) {
	w.started.Store(true)
	select {
	case <-ctx.Done():
	case <-w.stopChan:
	}
}

func (w *mockWorker) Stop() {
	if w.stopped.CompareAndSwap(false, true) {
		close(w.stopChan)
	}
}

func (w *mockWorker) Name() string {
	return w.name
}

func TestSupervisor_StartAndStop(t *testing.T) {
	source := newMockWorker("source")
	poller := newMockWorker("backlog_poller")
	supervisor := NewSupervisor(zap.NewNop(), source, poller)

	done := make(chan struct{})
	go func() {
		supervisor.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return source.started.Load() && poller.started.Load()
	}, time.Second, 10*time.Millisecond, "all workers should start")
	assert.True(t, supervisor.IsStarted())

	supervisor.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not shut down in time")
	}

	assert.True(t, source.stopped.Load())
	assert.True(t, poller.stopped.Load())
	assert.False(t, supervisor.IsStarted())
}

func TestSupervisor_StopsOnContextCancel(t *testing.T) {
	worker := newMockWorker("source")
	supervisor := NewSupervisor(zap.NewNop(), worker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		supervisor.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return worker.started.Load() }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not react to context cancellation")
	}
	assert.True(t, worker.stopped.Load())
}

func TestSupervisor_StopIsIdempotent(t *testing.T) {
	worker := newMockWorker("source")
	supervisor := NewSupervisor(zap.NewNop(), worker)

	done := make(chan struct{})
	go func() {
		supervisor.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return worker.started.Load() }, time.Second, 10*time.Millisecond)
	supervisor.Stop()
	supervisor.Stop()
	<-done
}

func TestSupervisor_StopBeforeStart(t *testing.T) {
	supervisor := NewSupervisor(zap.NewNop(), newMockWorker("source"))
	supervisor.Stop()
	assert.False(t, supervisor.IsStarted())
}
