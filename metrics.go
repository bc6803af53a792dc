package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counters is a point-in-time snapshot of the registry, suitable for a
// pull-based scrape endpoint.
type Counters struct {
	Sent              int64 `json:"sent"`
	Failed            int64 `json:"failed"`
	Deduplicated      int64 `json:"deduplicated"`
	DeadLetterBacklog int64 `json:"dead_letter_backlog_size"`
}

// Registry holds the process-wide dispatch counters: three monotonic
// counters and the dead-letter backlog gauge. Counters reset only on process
// restart. All methods are safe for concurrent use. Construct one Registry at
// process start and hand it to the dispatcher; do not rely on package-level
// state.
type Registry struct {
	sent         atomic.Int64
	failed       atomic.Int64
	deduplicated atomic.Int64
	backlog      atomic.Int64
}

// NewRegistry creates a zeroed registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// IncSent increments the sent counter.
func (r *Registry) IncSent() { r.sent.Add(1) }

// IncFailed increments the failed counter.
func (r *Registry) IncFailed() { r.failed.Add(1) }

// IncDeduplicated increments the deduplicated counter.
func (r *Registry) IncDeduplicated() { r.deduplicated.Add(1) }

// SetBacklog sets the dead-letter backlog gauge.
func (r *Registry) SetBacklog(n int64) { r.backlog.Store(n) }

// Snapshot returns the current counter values.
func (r *Registry) Snapshot() Counters {
	return Counters{
		Sent:              r.sent.Load(),
		Failed:            r.failed.Load(),
		Deduplicated:      r.deduplicated.Load(),
		DeadLetterBacklog: r.backlog.Load(),
	}
}

// MetricsCollector receives operational metrics (durations, per-outcome
// counters) beyond the four contract counters in Registry. Implementations
// must be safe for concurrent use.
type MetricsCollector interface {
	IncrementCounter(name string, tags map[string]string)
	RecordDuration(name string, duration time.Duration, tags map[string]string)
	RecordGauge(name string, value float64, tags map[string]string)
}

// NopMetricsCollector is a metrics collector that does nothing.
// It is used as a default when no other collector is provided.
type NopMetricsCollector struct{}

// NewNopMetricsCollector creates a new NopMetricsCollector.
func NewNopMetricsCollector() *NopMetricsCollector {
	return &NopMetricsCollector{}
}

// IncrementCounter implements the MetricsCollector interface.
func (m *NopMetricsCollector) IncrementCounter(name string, tags map[string]string) {}

// RecordDuration implements the MetricsCollector interface.
func (m *NopMetricsCollector) RecordDuration(name string, duration time.Duration, tags map[string]string) {
}

// RecordGauge implements the MetricsCollector interface.
func (m *NopMetricsCollector) RecordGauge(name string, value float64, tags map[string]string) {}

// OpenTelemetryMetricsCollector is a metrics collector that uses the
// OpenTelemetry SDK.
type OpenTelemetryMetricsCollector struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64UpDownCounter
}

// NewOpenTelemetryMetricsCollector creates a collector with the default meter.
func NewOpenTelemetryMetricsCollector() *OpenTelemetryMetricsCollector {
	return NewOpenTelemetryMetricsCollectorWithMeter(otel.Meter("notifier"))
}

// NewOpenTelemetryMetricsCollectorWithMeter creates a collector with a specific meter.
func NewOpenTelemetryMetricsCollectorWithMeter(meter metric.Meter) *OpenTelemetryMetricsCollector {
	return &OpenTelemetryMetricsCollector{
		meter:      meter,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64UpDownCounter),
	}
}

// IncrementCounter implements the MetricsCollector interface using OpenTelemetry.
func (m *OpenTelemetryMetricsCollector) IncrementCounter(name string, tags map[string]string) {
	counter, err := m.getOrCreateCounter(name)
	if err != nil {
		return // Ignore errors for simplicity
	}
	attrs := m.convertTagsToAttributes(tags)
	counter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordDuration implements the MetricsCollector interface using OpenTelemetry.
func (m *OpenTelemetryMetricsCollector) RecordDuration(name string, duration time.Duration, tags map[string]string) {
	histogram, err := m.getOrCreateHistogram(name)
	if err != nil {
		return // Ignore errors for simplicity
	}
	attrs := m.convertTagsToAttributes(tags)
	histogram.Record(context.Background(), duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGauge implements the MetricsCollector interface using OpenTelemetry.
func (m *OpenTelemetryMetricsCollector) RecordGauge(name string, value float64, tags map[string]string) {
	// Note: OpenTelemetry gauges are tricky. An UpDownCounter is more like a delta.
	// For a true gauge, you would use an async gauge, which is more complex.
	// This implementation is a simplification.
	gauge, err := m.getOrCreateGauge(name)
	if err != nil {
		return // Ignore errors for simplicity
	}
	attrs := m.convertTagsToAttributes(tags)
	gauge.Add(context.Background(), value, metric.WithAttributes(attrs...))
}

func (m *OpenTelemetryMetricsCollector) getOrCreateCounter(name string) (metric.Int64Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if counter, exists := m.counters[name]; exists {
		return counter, nil
	}
	counter, err := m.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	m.counters[name] = counter
	return counter, nil
}

func (m *OpenTelemetryMetricsCollector) getOrCreateHistogram(name string) (metric.Float64Histogram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if histogram, exists := m.histograms[name]; exists {
		return histogram, nil
	}
	histogram, err := m.meter.Float64Histogram(name, metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	m.histograms[name] = histogram
	return histogram, nil
}

func (m *OpenTelemetryMetricsCollector) getOrCreateGauge(name string) (metric.Float64UpDownCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gauge, exists := m.gauges[name]; exists {
		return gauge, nil
	}
	gauge, err := m.meter.Float64UpDownCounter(name)
	if err != nil {
		return nil, err
	}
	m.gauges[name] = gauge
	return gauge, nil
}

func (m *OpenTelemetryMetricsCollector) convertTagsToAttributes(tags map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags))
	for key, value := range tags {
		attrs = append(attrs, attribute.String(key, value))
	}
	return attrs
}
