package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/overtonx/notifier"
	"github.com/overtonx/notifier/storage/sqlstore"
)

const (
	dbDSN       = "root:password@tcp(localhost:3306)/notifier_db?parseTime=true"
	kafkaBroker = "localhost:9092"
	topic       = "order-events"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := sqlstore.Open(dbDSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	// Setup: ensure tables exist for the example.
	// In a real application, this would be handled by a proper migration tool.
	store := sqlstore.NewSQLStore(db, logger)
	if err := store.EnsureTables(context.Background()); err != nil {
		logger.Fatal("Failed to ensure tables", zap.Error(err))
	}

	// 1. Create the Transport.
	transport := notifier.NewSMTPTransport(logger,
		notifier.WithSMTPAddr("localhost:1025"), // e.g. a local MailHog instance
		notifier.WithSMTPFrom("orders@example.com"),
	)
	defer transport.Close()

	// 2. Create the Carrier with shared dependencies.
	carrier, err := notifier.NewCarrier(store, store, transport,
		notifier.WithLogger(logger),
		// notifier.WithMetrics(notifier.NewOpenTelemetryMetricsCollector()),
	)
	if err != nil {
		logger.Fatal("Failed to create carrier", zap.Error(err))
	}

	// 3. Create the Dispatcher. Handle() is what the Kafka source and the
	// replay worker drive.
	dispatcher := carrier.Dispatcher(
		notifier.WithDedupTTL(1*time.Hour),
		notifier.WithCallTimeout(5*time.Second),
	)

	// 4. Create the workers: the event source plus the operational jobs
	// wrapping the Carrier's methods.
	source, err := notifier.NewKafkaSource(logger, dispatcher,
		notifier.WithKafkaTopics(topic),
		notifier.WithKafkaConsumerProps(kafka.ConfigMap{
			"bootstrap.servers": kafkaBroker,
			"group.id":          "notifier-example",
		}),
	)
	if err != nil {
		logger.Fatal("Failed to create Kafka source", zap.Error(err))
	}

	workers := []notifier.Worker{
		source,
		notifier.NewBaseWorker("backlog_poller", 15*time.Second, logger, func(ctx context.Context) error {
			return carrier.RefreshBacklog(ctx)
		}),
		notifier.NewBaseWorker("deadletter_replayer", 1*time.Minute, logger, func(ctx context.Context) error {
			return carrier.ReplayDeadLetters(ctx, dispatcher,
				notifier.WithReplayBatchSize(10),
			)
		}),
		notifier.NewBaseWorker("dedup_cleanup", 5*time.Minute, logger, func(ctx context.Context) error {
			return carrier.CleanupDedupRecords(ctx)
		}),
	}

	// 5. Create the Supervisor with the workers.
	supervisor := notifier.NewSupervisor(logger, workers...)

	// Start the supervisor and handle graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go supervisor.Start(ctx)

	// Give the consumer a moment to start up before producing events.
	time.Sleep(1 * time.Second)
	logger.Info("Supervisor started, producing sample order events...")
	go produceSampleEvents(context.Background(), logger)

	// Wait for the shutdown signal.
	<-ctx.Done()

	logger.Info("Shutdown signal received. Stopping supervisor...")
	supervisor.Stop() // This will block until all workers are stopped.
	logger.Info("Supervisor stopped gracefully.")

	snapshot := carrier.Registry().Snapshot()
	logger.Info("Final counters",
		zap.Int64("sent", snapshot.Sent),
		zap.Int64("failed", snapshot.Failed),
		zap.Int64("deduplicated", snapshot.Deduplicated),
		zap.Int64("dead_letter_backlog", snapshot.DeadLetterBacklog),
	)
}

func produceSampleEvents(ctx context.Context, logger *zap.Logger) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
	})
	if err != nil {
		logger.Error("Failed to create Kafka producer", zap.Error(err))
		return
	}
	defer producer.Close()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			event := notifier.Event{
				EventID:   uuid.New().String(),
				Recipient: "customer@example.com",
				Payload: json.RawMessage(fmt.Sprintf(
					`{"order_id":"order-%d","item":"Widget","quantity":3}`, time.Now().Unix(),
				)),
			}

			value, err := json.Marshal(event)
			if err != nil {
				logger.Error("Failed to marshal event", zap.Error(err))
				continue
			}

			err = producer.Produce(&kafka.Message{
				TopicPartition: kafka.TopicPartition{Topic: strPtr(topic), Partition: kafka.PartitionAny},
				Key:            []byte(event.EventID),
				Value:          value,
			}, nil)
			if err != nil {
				logger.Error("Failed to produce event", zap.Error(err))
				continue
			}

			logger.Info("Produced a sample order event", zap.String("event_id", event.EventID))
		}
	}
}

func strPtr(s string) *string {
	return &s
}
