package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"acarshub/internal/logger"
)

// minMergePages is the floor on bounded-merge work: values at or below this
// cannot keep pace with tombstones on a busy index and let segments grow
// without bound.
const minMergePages = 16

// defaultMergePages is the default bounded-merge size (~2MB at typical page
// sizes); the scheduler's periodic maintenance step passes this same budget.
const defaultMergePages = 500

// EnsureFTSIntegrity runs unconditionally after migrations on every startup.
// It inspects the messages_fts definition and all three triggers for the
// sentinel column message_type; if any are missing or stale, it drops and
// recreates both from the canonical definitions and reissues a full
// rebuild. This is the only mechanism that repairs upgrades from
// installations predating the typed FTS schema.
func (d *DB) EnsureFTSIntegrity(ctx context.Context) error {
	ok, err := d.ftsSchemaIsCurrent(ctx)
	if err != nil {
		return fmt.Errorf("inspect fts schema: %w", err)
	}
	if ok {
		return nil
	}

	logger.Warnf("store: legacy or stale messages_fts schema detected, rebuilding")

	for _, trig := range []string{"messages_ai", "messages_ad", "messages_au"} {
		if _, err := d.sql.ExecContext(ctx, fmt.Sprintf(`DROP TRIGGER IF EXISTS %s`, trig)); err != nil {
			return fmt.Errorf("drop trigger %s: %w", trig, err)
		}
	}
	// Dropping the virtual table also clears its shadow index, eliminating
	// any ghost entries left by a half-repaired prior attempt.
	if _, err := d.sql.ExecContext(ctx, `DROP TABLE IF EXISTS messages_fts`); err != nil {
		return fmt.Errorf("drop messages_fts: %w", err)
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createFTSTableAndTriggers(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if _, err := d.sql.ExecContext(ctx, `INSERT INTO messages_fts(messages_fts) VALUES ('rebuild')`); err != nil {
		return fmt.Errorf("rebuild fts: %w", err)
	}
	return nil
}

// ftsSchemaIsCurrent checks for the sentinel column in the virtual table's
// declared columns and in the body of all three triggers.
func (d *DB) ftsSchemaIsCurrent(ctx context.Context) (bool, error) {
	exists, err := d.tableExists(ctx, "messages_fts")
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	var ftsSQL string
	err = d.sql.QueryRowContext(ctx, `SELECT sql FROM sqlite_master WHERE type='table' AND name='messages_fts'`).Scan(&ftsSQL)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if !strings.Contains(ftsSQL, "message_type") {
		return false, nil
	}

	for _, trig := range []string{"messages_ai", "messages_ad", "messages_au"} {
		var trigSQL string
		err := d.sql.QueryRowContext(ctx, `SELECT sql FROM sqlite_master WHERE type='trigger' AND name=?`, trig).Scan(&trigSQL)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !strings.Contains(trigSQL, "message_type") {
			return false, nil
		}
	}
	return true, nil
}

// OptimizeFTS runs the closed-loop optimize: repeated 'merge' steps until
// the b-tree is fully consolidated. Document count is unchanged and segment
// count never increases.
func (d *DB) OptimizeFTS(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO messages_fts(messages_fts) VALUES ('optimize')`)
	return err
}

// MergeFTS does at most pages units of incremental merge work. Used as a
// bounded maintenance step; pages must exceed minMergePages.
func (d *DB) MergeFTS(ctx context.Context, pages int) error {
	if pages <= minMergePages {
		return fmt.Errorf("fts merge page budget %d is at or below the minimum of %d", pages, minMergePages)
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO messages_fts(messages_fts, rank) VALUES ('merge', ?)`, pages)
	return err
}
