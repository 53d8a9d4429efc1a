// Package store persists usage telemetry in PostgreSQL: how many events each
// extraction produced and how much time the extension reports saving.
// Inserts are best-effort; staged events themselves are never persisted.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store uses. Tests supply a
// lightweight fake.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store records telemetry rows.
type Store struct {
	pool PgxPool
}

func New(pool PgxPool) *Store {
	return &Store{pool: pool}
}

// HealthCheck verifies that the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB("db.healthcheck")()
	return s.pool.Ping(ctx)
}

// RecordProcessing logs one extraction request and the number of candidate
// events it produced.
func (s *Store) RecordProcessing(ctx context.Context, eventCount int) error {
	defer observeDB("db.record_processing")()
	const q = `INSERT INTO event_processing_logs (event_count) VALUES ($1)`
	if _, err := s.pool.Exec(ctx, q, eventCount); err != nil {
		return fmt.Errorf("insert processing log: %w", err)
	}
	return nil
}

// RecordSavedTime logs the request round-trip duration the extension
// reports for a processed screenshot.
func (s *Store) RecordSavedTime(ctx context.Context, d time.Duration) error {
	defer observeDB("db.record_saved_time")()
	const q = `INSERT INTO event_saved_times (duration_ms) VALUES ($1)`
	if _, err := s.pool.Exec(ctx, q, d.Milliseconds()); err != nil {
		return fmt.Errorf("insert saved time: %w", err)
	}
	return nil
}
