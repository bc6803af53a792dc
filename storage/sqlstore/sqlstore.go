// Package sqlstore implements the storage interfaces on MySQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/overtonx/notifier/storage"
)

const (
	tableDedup       = "notifier_dedup"
	tableDeadletters = "notifier_deadletters"
)

// SQL queries
const (
	dedupExistsQuery = `SELECT 1 FROM %s WHERE dedup_key = ? AND expires_at > ?`

	dedupPutQuery = `
		INSERT INTO %s (dedup_key, expires_at)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE expires_at = VALUES(expires_at)`

	dedupDeleteExpiredQuery = `DELETE FROM %s WHERE expires_at <= ?`

	deadLetterPushQuery = `
		INSERT INTO %s (event_id, recipient, payload, attempt_count, last_error, failed_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	deadLetterListQuery = `
		SELECT id, event_id, recipient, payload, attempt_count, last_error, failed_at
		FROM %s
		ORDER BY id
		LIMIT ?`

	deadLetterDrainQuery = `
		SELECT id, event_id, recipient, payload, attempt_count, last_error, failed_at
		FROM %s
		ORDER BY id
		LIMIT ?
		FOR UPDATE SKIP LOCKED`

	deadLetterDeleteQuery = `DELETE FROM %s WHERE id IN (%s)`

	deadLetterCountQuery = `SELECT COUNT(*) FROM %s`
)

const unboundedLimit = 1<<31 - 1

// Open opens a MySQL connection pool for use with NewSQLStore.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	return db, nil
}

// SQLStore implements storage.ExpiringDedupStore and storage.DeadLetterStore
// on MySQL. Dedup rows carry an explicit expires_at column; expired rows are
// invisible to Exists immediately and physically removed by DeleteExpired.
type SQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLStore creates a store on top of an existing connection pool.
func NewSQLStore(db *sql.DB, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:     db,
		logger: logger,
	}
}

// Exists reports whether a live dedup record exists for key.
func (s *SQLStore) Exists(ctx context.Context, key string) (bool, error) {
	query := fmt.Sprintf(dedupExistsQuery, tableDedup)
	var one int
	err := s.db.QueryRowContext(ctx, query, key, time.Now().UTC()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query dedup record: %w", err)
	}
	return true, nil
}

// Put writes or refreshes the dedup record for key.
func (s *SQLStore) Put(ctx context.Context, key string, ttl time.Duration) error {
	query := fmt.Sprintf(dedupPutQuery, tableDedup)
	_, err := s.db.ExecContext(ctx, query, key, time.Now().UTC().Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to write dedup record: %w", err)
	}
	return nil
}

// DeleteExpired removes dedup rows whose TTL has elapsed.
func (s *SQLStore) DeleteExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(dedupDeleteExpiredQuery, tableDedup)
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired dedup records: %w", err)
	}
	return res.RowsAffected()
}

// Push appends a dead-letter record.
func (s *SQLStore) Push(ctx context.Context, record storage.DeadLetterRecord) error {
	query := fmt.Sprintf(deadLetterPushQuery, tableDeadletters)
	_, err := s.db.ExecContext(ctx, query,
		record.EventID,
		record.Recipient,
		record.Payload,
		record.AttemptCount,
		record.LastError,
		record.FailedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to push dead-letter record: %w", err)
	}
	return nil
}

// List returns up to limit records in insertion order without removing them.
// A non-positive limit returns everything.
func (s *SQLStore) List(ctx context.Context, limit int) ([]storage.DeadLetterRecord, error) {
	if limit <= 0 {
		limit = unboundedLimit
	}
	query := fmt.Sprintf(deadLetterListQuery, tableDeadletters)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead-letter records: %w", err)
	}
	defer rows.Close()

	return s.scanRecords(rows)
}

// Drain removes and returns up to limit records in insertion order. The
// select and delete run in one transaction so concurrent drainers do not
// hand out the same record twice. A non-positive limit drains everything.
func (s *SQLStore) Drain(ctx context.Context, limit int) ([]storage.DeadLetterRecord, error) {
	if limit <= 0 {
		limit = unboundedLimit
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(deadLetterDrainQuery, tableDeadletters)
	rows, err := tx.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query dead-letter records: %w", err)
	}
	records, err := s.scanRecords(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, tx.Commit()
	}

	placeholders := strings.Repeat("?,", len(records)-1) + "?"
	args := make([]interface{}, len(records))
	for i, record := range records {
		args[i] = record.ID
	}
	deleteQuery := fmt.Sprintf(deadLetterDeleteQuery, tableDeadletters, placeholders)
	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to delete drained records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit drain transaction: %w", err)
	}
	return records, nil
}

// Count returns the current backlog size.
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(deadLetterCountQuery, tableDeadletters)
	var count int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count dead-letter records: %w", err)
	}
	return count, nil
}

func (s *SQLStore) scanRecords(rows *sql.Rows) ([]storage.DeadLetterRecord, error) {
	var records []storage.DeadLetterRecord
	for rows.Next() {
		var record storage.DeadLetterRecord
		if err := rows.Scan(
			&record.ID,
			&record.EventID,
			&record.Recipient,
			&record.Payload,
			&record.AttemptCount,
			&record.LastError,
			&record.FailedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dead-letter row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading dead-letter rows: %w", err)
	}
	return records, nil
}

// EnsureTables creates the dedup and dead-letter tables if they do not exist.
func (s *SQLStore) EnsureTables(ctx context.Context) error {
	if err := s.createDedupTable(ctx); err != nil {
		return err
	}
	if err := s.createDeadlettersTable(ctx); err != nil {
		return err
	}
	return nil
}

func (s *SQLStore) createDedupTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS notifier_dedup (
			dedup_key  VARCHAR(255) NOT NULL PRIMARY KEY,
			expires_at TIMESTAMP(6) NOT NULL,
			INDEX idx_expires_at (expires_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create notifier_dedup table: %w", err)
	}
	return nil
}

func (s *SQLStore) createDeadlettersTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS notifier_deadletters (
			id            BIGINT AUTO_INCREMENT PRIMARY KEY,
			event_id      VARCHAR(255)  NOT NULL,
			recipient     VARCHAR(255)  NOT NULL,
			payload       JSON          NOT NULL,
			attempt_count INT           NOT NULL DEFAULT 0,
			last_error    VARCHAR(2000) NULL,
			failed_at     TIMESTAMP(6)  NOT NULL,
			INDEX idx_event_id (event_id),
			INDEX idx_failed_at (failed_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create notifier_deadletters table: %w", err)
	}
	return nil
}
