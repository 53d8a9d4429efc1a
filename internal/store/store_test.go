package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakePool records executed SQL and serves canned query results.
type fakePool struct {
	execs    []execCall
	rowValue func(sql string) (any, error)
	txs      []*fakeTx
	pingErr  error
}

type execCall struct {
	sql  string
	args []any
}

type fakeRow struct {
	value any
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 1 {
		if b, ok := dest[0].(*bool); ok {
			*b = r.value.(bool)
		}
	}
	return nil
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, nil
}

func (p *fakePool) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if p.rowValue == nil {
		return fakeRow{err: errors.New("unexpected query")}
	}
	v, err := p.rowValue(sql)
	return fakeRow{value: v, err: err}
}

func (p *fakePool) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	tx := &fakeTx{}
	p.txs = append(p.txs, tx)
	return tx, nil
}

func (p *fakePool) Ping(_ context.Context) error { return p.pingErr }

// fakeTx implements the pgx.Tx methods the migration runner touches; the
// rest panic if reached.
type fakeTx struct {
	pgx.Tx
	execs      []execCall
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Commit(_ context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(_ context.Context) error { t.rolledBack = true; return nil }

func TestRecordProcessing(t *testing.T) {
	pool := &fakePool{}
	s := New(pool)

	if err := s.RecordProcessing(context.Background(), 3); err != nil {
		t.Fatalf("RecordProcessing: %v", err)
	}

	if len(pool.execs) != 1 {
		t.Fatalf("execs = %d, want 1", len(pool.execs))
	}
	if !strings.Contains(pool.execs[0].sql, "event_processing_logs") {
		t.Errorf("sql = %q", pool.execs[0].sql)
	}
	if len(pool.execs[0].args) != 1 || pool.execs[0].args[0] != 3 {
		t.Errorf("args = %v", pool.execs[0].args)
	}
}

func TestRecordSavedTime(t *testing.T) {
	pool := &fakePool{}
	s := New(pool)

	if err := s.RecordSavedTime(context.Background(), 1500*time.Millisecond); err != nil {
		t.Fatalf("RecordSavedTime: %v", err)
	}

	if len(pool.execs) != 1 {
		t.Fatalf("execs = %d, want 1", len(pool.execs))
	}
	if !strings.Contains(pool.execs[0].sql, "event_saved_times") {
		t.Errorf("sql = %q", pool.execs[0].sql)
	}
	if pool.execs[0].args[0] != int64(1500) {
		t.Errorf("duration_ms = %v, want 1500", pool.execs[0].args[0])
	}
}

func TestApplyMigrationsFreshDatabase(t *testing.T) {
	applied := regexp.MustCompile(`WHERE version=\$1`)
	pool := &fakePool{
		rowValue: func(sql string) (any, error) {
			if applied.MatchString(sql) {
				return false, nil
			}
			return nil, errors.New("unexpected query: " + sql)
		},
	}

	if err := ApplyMigrations(context.Background(), pool); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}

	// schema_migrations table is created outside a transaction.
	if len(pool.execs) != 1 || !strings.Contains(pool.execs[0].sql, "CREATE TABLE IF NOT EXISTS schema_migrations") {
		t.Fatalf("pool execs = %+v", pool.execs)
	}

	// One transaction per embedded migration, each recording its version.
	if len(pool.txs) != 1 {
		t.Fatalf("txs = %d, want 1", len(pool.txs))
	}
	tx := pool.txs[0]
	if !tx.committed || tx.rolledBack {
		t.Errorf("tx committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
	if len(tx.execs) != 2 {
		t.Fatalf("tx execs = %d, want migration + record", len(tx.execs))
	}
	if !strings.Contains(tx.execs[0].sql, "event_processing_logs") {
		t.Errorf("migration sql = %q", tx.execs[0].sql)
	}
	if tx.execs[1].args[0] != "001_init.sql" {
		t.Errorf("recorded version = %v", tx.execs[1].args)
	}
}

func TestApplyMigrationsAlreadyApplied(t *testing.T) {
	pool := &fakePool{
		rowValue: func(string) (any, error) { return true, nil },
	}

	if err := ApplyMigrations(context.Background(), pool); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}
	if len(pool.txs) != 0 {
		t.Errorf("migrations replayed: %d txs", len(pool.txs))
	}
}
