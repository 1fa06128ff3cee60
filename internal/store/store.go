// Package store implements ACARS Hub's embedded relational store: schema
// migrations, the FTS5 shadow index and its integrity guard, WAL
// checkpointing, and the message/alert/time-series CRUD surface that the
// rest of the data plane is built on.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"acarshub/internal/logger"
)

// DB wraps the single embedded SQLite connection. The handle is
// single-threaded by convention: all writes are expected to come
// from the main event loop, serialized by the caller.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if necessary) the database file at path, enables
// WAL + synchronous=NORMAL, runs the migration chain, and performs the FTS
// integrity guard unconditionally.
func Open(ctx context.Context, path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The embedded store is accessed by one logical writer; a single
	// connection avoids SQLite's writer-starvation under modernc's driver.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, `PRAGMA synchronous=NORMAL`); err != nil {
		return nil, fmt.Errorf("set synchronous: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, `PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{sql: sqlDB}

	if err := db.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if err := db.EnsureFTSIntegrity(ctx); err != nil {
		return nil, fmt.Errorf("fts integrity guard: %w", err)
	}

	if err := db.CheckpointTruncate(ctx); err != nil {
		logger.Warnf("store: startup WAL checkpoint failed (non-fatal): %v", err)
	}

	return db, nil
}

// Close closes the underlying connection. Idempotent.
func (d *DB) Close() error {
	if d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Conn exposes the raw *sql.DB for packages that need to build their own
// queries (alert, timeseries). Kept internal to this module's own
// sub-packages by convention, not by compiler enforcement.
func (d *DB) Conn() *sql.DB { return d.sql }

// CheckpointTruncate issues a WAL TRUNCATE checkpoint.
func (d *DB) CheckpointTruncate(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	return err
}

// Stats is the subset of database health surfaced on GET /health.
type Stats struct {
	Connected    bool
	MessageCount int64
	SizeBytes    int64
}

// HealthStats reports connectivity and size for the health endpoint.
func (d *DB) HealthStats(ctx context.Context) Stats {
	stats := Stats{}
	if err := d.sql.PingContext(ctx); err != nil {
		return stats
	}
	stats.Connected = true
	_ = d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&stats.MessageCount)
	_ = d.sql.QueryRowContext(ctx, `SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`).Scan(&stats.SizeBytes)
	return stats
}

// now is overridable in tests; production code always uses wall-clock time.
var now = time.Now
