package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// KafkaSource consumes order events from Kafka and feeds them to a Handler
// one at a time. It implements the Worker interface so it can be run under a
// Supervisor.
//
// Delivery is at-least-once: the offset of a message is stored only after
// Handle returns a terminal outcome. An OutcomeUnknown result (a store was
// unreachable) leaves the offset unstored so the broker redelivers the
// event. Malformed messages are logged and committed; redelivery cannot fix
// them.
type KafkaSource struct {
	logger        *zap.Logger
	handler       Handler
	consumer      *kafka.Consumer
	consumerProps kafka.ConfigMap
	topics        []string
	pollTimeout   time.Duration
	metrics       MetricsCollector

	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopOnce sync.Once
	stopChan chan struct{}
	started  bool
}

// NewKafkaSource creates a consumer with functional options. Offset storage
// is always manual ("enable.auto.offset.store" is forced off); the periodic
// auto-commit then only ever commits offsets of handled events.
func NewKafkaSource(logger *zap.Logger, handler Handler, opts ...KafkaSourceOption) (*KafkaSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &KafkaSource{
		logger:  logger,
		handler: handler,
		consumerProps: kafka.ConfigMap{
			// Default consumer properties
			"bootstrap.servers":  "localhost:9092",
			"group.id":           "notifier",
			"auto.offset.reset":  "earliest",
			"enable.auto.commit": true,
		},
		topics:      []string{"order-events"},
		pollTimeout: defaultPollTimeout,
		metrics:     NewNopMetricsCollector(),
		stopChan:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}
	s.consumerProps["enable.auto.offset.store"] = false

	consumer, err := kafka.NewConsumer(&s.consumerProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	s.consumer = consumer

	return s, nil
}

// Start subscribes and runs the poll loop. It blocks until the context is
// cancelled or Stop() is called.
func (s *KafkaSource) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.Warn("Kafka source already started")
		return
	}
	s.started = true
	s.mu.Unlock()

	s.logger.Info("Kafka source starting", zap.Strings("topics", s.topics))
	defer s.logger.Info("Kafka source finished")

	if err := s.consumer.SubscribeTopics(s.topics, nil); err != nil {
		s.logger.Error("Failed to subscribe to topics", zap.Error(err))
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Context cancelled, kafka source stopping")
			return
		case <-s.stopChan:
			s.logger.Info("Stop signal received, kafka source stopping")
			return
		default:
		}

		ev := s.consumer.Poll(int(s.pollTimeout.Milliseconds()))
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			s.handleMessage(ctx, e)
		case kafka.Error:
			s.logger.Error("Kafka error", zap.Error(e))
			s.metrics.IncrementCounter("source.kafka_error", nil)
		}
	}
}

// Stop gracefully shuts down the source: it exits the poll loop, waits for
// the in-flight message and closes the consumer. Safe to call multiple times.
func (s *KafkaSource) Stop() {
	s.stopOnce.Do(func() {
		s.mu.RLock()
		started := s.started
		s.mu.RUnlock()
		if !started {
			return
		}

		close(s.stopChan)
		s.wg.Wait()

		if err := s.consumer.Close(); err != nil {
			s.logger.Error("Failed to close kafka consumer", zap.Error(err))
		}
	})
}

// Name returns the name of the worker.
func (s *KafkaSource) Name() string {
	return "kafka_source"
}

func (s *KafkaSource) handleMessage(ctx context.Context, message *kafka.Message) {
	event, err := decodeEvent(message.Value)
	if err != nil {
		s.logger.Error("Dropping undecodable message",
			zap.String("topic", *message.TopicPartition.Topic),
			zap.Int64("offset", int64(message.TopicPartition.Offset)),
			zap.Error(err),
		)
		s.metrics.IncrementCounter("source.malformed", nil)
		s.storeOffset(message)
		return
	}

	outcome, err := s.handler.Handle(ctx, event)
	if err != nil {
		s.logger.Warn("Event not handled to a terminal outcome",
			zap.String("event_id", event.EventID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}

	if !shouldCommit(outcome) {
		// Offset stays unstored; the broker will redeliver the event.
		s.metrics.IncrementCounter("source.redelivery_pending", nil)
		return
	}
	s.storeOffset(message)
}

func (s *KafkaSource) storeOffset(message *kafka.Message) {
	if _, err := s.consumer.StoreMessage(message); err != nil {
		s.logger.Error("Failed to store offset",
			zap.String("topic", *message.TopicPartition.Topic),
			zap.Int64("offset", int64(message.TopicPartition.Offset)),
			zap.Error(err),
		)
	}
}

// decodeEvent parses the wire form of an order event.
func decodeEvent(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return event, nil
}

// shouldCommit reports whether an outcome is terminal for offset purposes.
// Only OutcomeUnknown withholds the commit: the event was neither sent,
// deduplicated, dead-lettered nor rejected, and must be redelivered.
func shouldCommit(outcome Outcome) bool {
	return outcome != OutcomeUnknown
}
