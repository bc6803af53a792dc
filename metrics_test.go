package notifier

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Snapshot(t *testing.T) {
	registry := NewRegistry()

	registry.IncSent()
	registry.IncSent()
	registry.IncFailed()
	registry.IncDeduplicated()
	registry.SetBacklog(7)

	snapshot := registry.Snapshot()
	assert.EqualValues(t, 2, snapshot.Sent)
	assert.EqualValues(t, 1, snapshot.Failed)
	assert.EqualValues(t, 1, snapshot.Deduplicated)
	assert.EqualValues(t, 7, snapshot.DeadLetterBacklog)
}

func TestRegistry_BacklogIsAGauge(t *testing.T) {
	registry := NewRegistry()

	registry.SetBacklog(10)
	registry.SetBacklog(3)

	assert.EqualValues(t, 3, registry.Snapshot().DeadLetterBacklog, "SetBacklog overwrites, it does not accumulate")
}

func TestRegistry_ConcurrentIncrements(t *testing.T) {
	registry := NewRegistry()
	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				registry.IncSent()
				registry.IncFailed()
				registry.IncDeduplicated()
			}
		}()
	}
	wg.Wait()

	snapshot := registry.Snapshot()
	assert.EqualValues(t, goroutines*perGoroutine, snapshot.Sent)
	assert.EqualValues(t, goroutines*perGoroutine, snapshot.Failed)
	assert.EqualValues(t, goroutines*perGoroutine, snapshot.Deduplicated)
}

func TestNopMetricsCollector(t *testing.T) {
	collector := NewNopMetricsCollector()

	assert.NotPanics(t, func() {
		collector.IncrementCounter("test", map[string]string{"k": "v"})
		collector.RecordDuration("test", time.Second, nil)
		collector.RecordGauge("test", 1.5, nil)
	})
}

func TestOpenTelemetryMetricsCollector(t *testing.T) {
	collector := NewOpenTelemetryMetricsCollector()

	// The global meter provider defaults to a no-op; the collector must still
	// cache instruments and record without panicking.
	assert.NotPanics(t, func() {
		collector.IncrementCounter("dispatcher.sent", nil)
		collector.IncrementCounter("dispatcher.sent", map[string]string{"topic": "order-events"})
		collector.RecordDuration("dispatcher.handle.duration", 12*time.Millisecond, nil)
		collector.RecordGauge("deadletter.backlog", 4, nil)
	})
}
