package notifier

import (
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

const (
	defaultDedupTTL        = 1 * time.Hour
	defaultCallTimeout     = 5 * time.Second
	defaultReplayBatchSize = 100
	defaultPollTimeout     = 500 * time.Millisecond
)

//
// Carrier Options
//

type CarrierOption func(*Carrier)

func WithLogger(logger *zap.Logger) CarrierOption {
	return func(c *Carrier) {
		c.logger = logger
	}
}

func WithMetrics(metrics MetricsCollector) CarrierOption {
	return func(c *Carrier) {
		c.metrics = metrics
	}
}

func WithRegistry(registry *Registry) CarrierOption {
	return func(c *Carrier) {
		c.registry = registry
	}
}

func WithRenderer(renderer Renderer) CarrierOption {
	return func(c *Carrier) {
		c.renderer = renderer
	}
}

//
// Dispatcher Options
//

type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithDispatcherMetrics(metrics MetricsCollector) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

func WithDispatcherRegistry(registry *Registry) DispatcherOption {
	return func(d *Dispatcher) {
		d.registry = registry
	}
}

func WithDispatcherRenderer(renderer Renderer) DispatcherOption {
	return func(d *Dispatcher) {
		d.renderer = renderer
	}
}

// WithDedupTTL sets the dedup window: how long a delivered event ID
// suppresses re-sending.
func WithDedupTTL(ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.dedupTTL = ttl
	}
}

// WithCallTimeout bounds each collaborator call (dedup lookup, transport
// send, dead-letter push) so one slow delivery cannot stall the pipeline.
func WithCallTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.callTimeout = timeout
	}
}

//
// Replay Options
//

type ReplayOption func(*replayOptions)

type replayOptions struct {
	batchSize int
}

func WithReplayBatchSize(size int) ReplayOption {
	return func(o *replayOptions) {
		o.batchSize = size
	}
}

//
// KafkaSource Options
//

type KafkaSourceOption func(*KafkaSource)

func WithKafkaConsumerProps(props kafka.ConfigMap) KafkaSourceOption {
	return func(s *KafkaSource) {
		for k, v := range props {
			s.consumerProps[k] = v
		}
	}
}

func WithKafkaTopics(topics ...string) KafkaSourceOption {
	return func(s *KafkaSource) {
		s.topics = topics
	}
}

func WithKafkaPollTimeout(timeout time.Duration) KafkaSourceOption {
	return func(s *KafkaSource) {
		s.pollTimeout = timeout
	}
}
