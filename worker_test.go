package notifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBaseWorker_RunsWorkFuncOnTicks(t *testing.T) {
	var calls atomic.Int64
	worker := NewBaseWorker("ticker", 20*time.Millisecond, zap.NewNop(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	done := make(chan struct{})
	go func() {
		worker.Start(context.Background())
		close(done)
	}()

	time.Sleep(110 * time.Millisecond)
	worker.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop in time")
	}

	assert.GreaterOrEqual(t, calls.Load(), int64(3), "work func should have run on several ticks")
}

func TestBaseWorker_StopsOnContextCancel(t *testing.T) {
	worker := NewBaseWorker("ctx", 10*time.Millisecond, zap.NewNop(), func(ctx context.Context) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not react to context cancellation")
	}
}

func TestBaseWorker_KeepsRunningAfterWorkFuncError(t *testing.T) {
	var calls atomic.Int64
	worker := NewBaseWorker("flaky", 15*time.Millisecond, zap.NewNop(), func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("transient failure")
	})

	done := make(chan struct{})
	go func() {
		worker.Start(context.Background())
		close(done)
	}()

	time.Sleep(80 * time.Millisecond)
	worker.Stop()
	<-done

	assert.GreaterOrEqual(t, calls.Load(), int64(2), "a failing work func must not kill the worker")
}

func TestBaseWorker_StopIsIdempotent(t *testing.T) {
	worker := NewBaseWorker("idem", 10*time.Millisecond, zap.NewNop(), func(ctx context.Context) error {
		return nil
	})

	done := make(chan struct{})
	go func() {
		worker.Start(context.Background())
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	worker.Stop()
	worker.Stop()
	<-done
}

func TestBaseWorker_StopBeforeStartIsNoop(t *testing.T) {
	worker := NewBaseWorker("unstarted", 10*time.Millisecond, zap.NewNop(), func(ctx context.Context) error {
		return nil
	})
	worker.Stop()
}

func TestBaseWorker_Name(t *testing.T) {
	worker := NewBaseWorker("backlog_poller", time.Second, nil, nil)
	assert.Equal(t, "backlog_poller", worker.Name())
}
