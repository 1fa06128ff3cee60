package store

import (
	"context"
	"database/sql"
	"fmt"

	"acarshub/internal/timeseries"
)

// InsertRow writes one timeseries_stats row, ignoring the insert if a row
// already exists at (resolution, ts) so rollups and replays are idempotent.
func (d *DB) InsertRow(ctx context.Context, resolution timeseries.Resolution, ts int64, c timeseries.Counts) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT OR IGNORE INTO timeseries_stats
			(resolution, ts, acars, vdlm, hfdl, imsl, irdm, total, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		string(resolution), ts, c.ACARS, c.VDLM, c.HFDL, c.IMSL, c.IRDM, c.Total, c.Error)
	if err != nil {
		return fmt.Errorf("insert timeseries row: %w", err)
	}
	return nil
}

// SumWindow sums every resolution row in [from, to) for a rollup step.
func (d *DB) SumWindow(ctx context.Context, resolution timeseries.Resolution, from, to int64) (timeseries.Counts, error) {
	var c timeseries.Counts
	row := d.sql.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(acars),0), COALESCE(SUM(vdlm),0), COALESCE(SUM(hfdl),0),
			COALESCE(SUM(imsl),0), COALESCE(SUM(irdm),0),
			COALESCE(SUM(total),0), COALESCE(SUM(error),0)
		FROM timeseries_stats
		WHERE resolution = ? AND ts >= ? AND ts < ?`,
		string(resolution), from, to)
	err := row.Scan(&c.ACARS, &c.VDLM, &c.HFDL, &c.IMSL, &c.IRDM, &c.Total, &c.Error)
	if err != nil {
		return timeseries.Counts{}, fmt.Errorf("sum timeseries window: %w", err)
	}
	return c, nil
}

// ListRows returns every row of resolution in [from, to], ordered oldest
// first, with timestamps converted to wire milliseconds.
func (d *DB) ListRows(ctx context.Context, resolution timeseries.Resolution, from, to int64) ([]timeseries.Point, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT ts, acars, vdlm, hfdl, imsl, irdm, total, error
		FROM timeseries_stats
		WHERE resolution = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC`, string(resolution), from, to)
	if err != nil {
		return nil, fmt.Errorf("list timeseries rows: %w", err)
	}
	defer rows.Close()

	var out []timeseries.Point
	for rows.Next() {
		var ts int64
		var c timeseries.Counts
		if err := rows.Scan(&ts, &c.ACARS, &c.VDLM, &c.HFDL, &c.IMSL, &c.IRDM, &c.Total, &c.Error); err != nil {
			return nil, err
		}
		out = append(out, timeseries.Point{TimestampMS: ts * 1000, Counts: c})
	}
	return out, rows.Err()
}

// ListTimestamps returns the ts column only, for callers that need to
// check bucket coverage without pulling full counts.
func (d *DB) ListTimestamps(ctx context.Context, resolution timeseries.Resolution, from, to, step int64) ([]int64, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT ts FROM timeseries_stats
		WHERE resolution = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC`, string(resolution), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// PruneResolution deletes rows of resolution older than cutoff (a Unix
// second timestamp).
func (d *DB) PruneResolution(ctx context.Context, resolution timeseries.Resolution, cutoff int64) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM timeseries_stats WHERE resolution = ? AND ts < ?`, string(resolution), cutoff)
	return err
}

// HashImported reports whether sha256 hash is already present in the
// legacy-RRD-import dedup registry.
func (d *DB) HashImported(ctx context.Context, hash string) (bool, error) {
	var exists int
	err := d.sql.QueryRowContext(ctx, `SELECT 1 FROM rrd_import_registry WHERE sha256 = ?`, hash).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RegisterImportedHash records hash as imported, at the current time.
func (d *DB) RegisterImportedHash(ctx context.Context, hash string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT OR IGNORE INTO rrd_import_registry (sha256, imported_at) VALUES (?, ?)`, hash, now().Unix())
	return err
}

// BulkInsertRows inserts every row of resolution in one transaction,
// relying on the (resolution, ts) primary key for dedup.
func (d *DB) BulkInsertRows(ctx context.Context, resolution timeseries.Resolution, rows []timeseries.Point) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO timeseries_stats
			(resolution, ts, acars, vdlm, hfdl, imsl, irdm, total, error)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range rows {
		ts := p.TimestampMS / 1000
		if _, err := stmt.ExecContext(ctx, string(resolution), ts, p.ACARS, p.VDLM, p.HFDL, p.IMSL, p.IRDM, p.Total, p.Error); err != nil {
			return err
		}
	}
	return tx.Commit()
}
