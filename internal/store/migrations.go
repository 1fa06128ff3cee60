package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"acarshub/internal/logger"
)

// currentSchemaRevision is the last step of the migration chain.
const currentSchemaRevision = 9

type migrationStep struct {
	revision int
	name     string
	apply    func(ctx context.Context, tx *sql.Tx) error
}

// migrate resumes from the stored schema_revision (creating the tracking
// table and detecting a legacy revision-1 shape if absent) and applies every
// remaining step in one transaction each. A failure here is fatal:
// the process should exit non-zero so supervision restarts it after operator
// intervention, rather than limping along on a half-migrated schema.
func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.sql.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_revision (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			revision INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_revision: %w", err)
	}

	rev, err := d.detectRevision(ctx)
	if err != nil {
		logger.Fatalf("store: could not determine starting schema revision: %v", err)
	}

	steps := migrationSteps()
	ranFinalStep := false
	for _, step := range steps {
		if step.revision <= rev {
			continue
		}
		logger.Infof("store: applying migration %d (%s)", step.revision, step.name)
		tx, err := d.sql.BeginTx(ctx, nil)
		if err != nil {
			logger.Fatalf("store: begin migration %d: %v", step.revision, err)
		}
		if err := step.apply(ctx, tx); err != nil {
			_ = tx.Rollback()
			logger.Fatalf("store: migration %d (%s) failed: %v", step.revision, step.name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schema_revision (id, revision) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET revision = excluded.revision`, step.revision); err != nil {
			_ = tx.Rollback()
			logger.Fatalf("store: stamp revision %d: %v", step.revision, err)
		}
		if err := tx.Commit(); err != nil {
			logger.Fatalf("store: commit migration %d: %v", step.revision, err)
		}
		rev = step.revision
		if step.revision == currentSchemaRevision {
			ranFinalStep = true
		}
	}

	// VACUUM/ANALYZE cannot run inside a transaction; do it once, right
	// after the final step lands for the first time on this database.
	if ranFinalStep {
		if _, err := d.sql.ExecContext(ctx, `VACUUM`); err != nil {
			logger.Warnf("store: post-migration VACUUM failed (non-fatal): %v", err)
		}
		if _, err := d.sql.ExecContext(ctx, `ANALYZE`); err != nil {
			logger.Warnf("store: post-migration ANALYZE failed (non-fatal): %v", err)
		}
	}
	return nil
}

// detectRevision resumes from the stored marker, or stamps revision 1 if the
// base tables already match the migration-01 shape exactly (unified
// freqs/level tables, no uid/aircraft_id column). Anything else with no
// marker is an unrecognized shape: fail loudly rather than guess.
func (d *DB) detectRevision(ctx context.Context) (int, error) {
	var rev int
	err := d.sql.QueryRowContext(ctx, `SELECT revision FROM schema_revision WHERE id = 1`).Scan(&rev)
	if err == nil {
		return rev, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	exists, err := d.tableExists(ctx, "messages")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil // fresh database, migrate from scratch.
	}

	hasUID, err := d.columnExists(ctx, "messages", "uid")
	if err != nil {
		return 0, err
	}
	unifiedFreq, err := d.tableExists(ctx, "freqs")
	if err != nil {
		return 0, err
	}
	if !hasUID && unifiedFreq {
		logger.Warnf("store: pre-revision database detected with no schema_revision marker, stamping revision 1")
		return 1, nil
	}

	return 0, fmt.Errorf("unrecognized pre-existing schema shape: cannot safely determine starting revision")
}

func (d *DB) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	return n > 0, err
}

func (d *DB) columnExists(ctx context.Context, table, column string) (bool, error) {
	rows, err := d.sql.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, rows.Err()
}

func migrationSteps() []migrationStep {
	return []migrationStep{
		{1, "initial base tables", migration01},
		{2, "split signal-level table per decoder", migration02},
		{3, "split frequency table per decoder", migration03},
		{4, "create FTS5 virtual table and triggers", migration04},
		{5, "convert legacy decimal icao to uppercase hex", migration05},
		{6, "add globally unique uid", migration06},
		{7, "create alert_matches, drop messages_saved", migration07},
		{8, "add aircraft_id and composite indexes, vacuum/analyze", migration08},
		{9, "create timeseries_stats and rrd_import_registry", migration09},
	}
}

// migration01 creates the original base tables.
func migration01(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_type TEXT NOT NULL,
			msg_time INTEGER NOT NULL,
			station_id TEXT,
			toaddr INTEGER,
			fromaddr INTEGER,
			depa TEXT,
			dsta TEXT,
			eta TEXT,
			gtout TEXT,
			gtin TEXT,
			wloff TEXT,
			wlin TEXT,
			lat REAL,
			lon REAL,
			alt REAL,
			msg_text TEXT,
			libacars TEXT,
			tail TEXT,
			flight TEXT,
			icao TEXT,
			freq TEXT,
			mode TEXT,
			label TEXT,
			block_id TEXT,
			msgno TEXT,
			ack TEXT,
			is_response INTEGER,
			is_onground INTEGER,
			error INTEGER,
			level INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_messages_time ON messages(msg_time);

		CREATE TABLE IF NOT EXISTS count (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			total INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL DEFAULT 0,
			good INTEGER NOT NULL DEFAULT 0
		);
		INSERT OR IGNORE INTO count (id, total, errors, good) VALUES (1, 0, 0, 0);

		CREATE TABLE IF NOT EXISTS nonlogged_count (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			nonlogged_errors INTEGER NOT NULL DEFAULT 0,
			nonlogged_good INTEGER NOT NULL DEFAULT 0
		);
		INSERT OR IGNORE INTO nonlogged_count (id, nonlogged_errors, nonlogged_good) VALUES (1, 0, 0);

		CREATE TABLE IF NOT EXISTS alert_stats (
			term TEXT PRIMARY KEY,
			ignore_term INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS ignore_alert_terms (
			term TEXT PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS freqs (
			message_type TEXT NOT NULL,
			freq TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (message_type, freq)
		);

		CREATE TABLE IF NOT EXISTS levels (
			message_type TEXT NOT NULL,
			level INTEGER NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (message_type, level)
		);
	`)
	return err
}

// perDecoderSuffix returns the per-decoder table name suffix used by
// migrations 2 and 3, which split the unified freqs/levels tables into one
// table per decoder type instead of keeping a discriminator column.
func perDecoderSuffix(messageType string) string {
	switch strings.ToUpper(strings.ReplaceAll(messageType, "-", "")) {
	case "ACARS":
		return "acars"
	case "VDLM2":
		return "vdlm2"
	case "HFDL":
		return "hfdl"
	case "IMSL":
		return "imsl"
	case "IRDM":
		return "irdm"
	default:
		return strings.ToLower(strings.ReplaceAll(messageType, "-", ""))
	}
}

// migration02 splits the unified level table into one per decoder, rebuilding
// rows by grouping existing messages by (message_type, level).
func migration02(ctx context.Context, tx *sql.Tx) error {
	for _, d := range decoderTypes {
		table := "level_" + perDecoderSuffix(d)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				level INTEGER PRIMARY KEY,
				count INTEGER NOT NULL DEFAULT 0
			)`, table)); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT level, COUNT(*) FROM messages
			WHERE message_type = ? AND level IS NOT NULL
			GROUP BY level`, d)
		if err != nil {
			return err
		}
		type lc struct {
			level int64
			count int64
		}
		var counts []lc
		for rows.Next() {
			var c lc
			if err := rows.Scan(&c.level, &c.count); err != nil {
				_ = rows.Close()
				return err
			}
			counts = append(counts, c)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()
		for _, c := range counts {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
				INSERT INTO %s (level, count) VALUES (?, ?)
				ON CONFLICT(level) DO UPDATE SET count = excluded.count`, table), c.level, c.count); err != nil {
				return err
			}
		}
	}
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS levels`)
	return err
}

// decoderTypes is the canonical message_type spelling stored in the
// messages table (the wire/legacy spellings are normalized by the
// formatter router before insertion).
var decoderTypes = []string{"ACARS", "VDL-M2", "HFDL", "IMS-L", "IRDM"}

// migration03 splits the unified frequency table into one per decoder,
// remapping case-insensitively by decoder.
func migration03(ctx context.Context, tx *sql.Tx) error {
	for _, d := range decoderTypes {
		table := "freq_" + perDecoderSuffix(d)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				freq TEXT PRIMARY KEY,
				count INTEGER NOT NULL DEFAULT 0
			)`, table)); err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
			SELECT freq, COUNT(*) FROM messages
			WHERE UPPER(message_type) = UPPER(?) AND freq IS NOT NULL AND freq != ''
			GROUP BY freq`, d)
		if err != nil {
			return err
		}
		type fc struct {
			freq  string
			count int64
		}
		var counts []fc
		for rows.Next() {
			var c fc
			if err := rows.Scan(&c.freq, &c.count); err != nil {
				_ = rows.Close()
				return err
			}
			counts = append(counts, c)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()
		for _, c := range counts {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
				INSERT INTO %s (freq, count) VALUES (?, ?)
				ON CONFLICT(freq) DO UPDATE SET count = excluded.count`, table), c.freq, c.count); err != nil {
				return err
			}
		}
	}
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS freqs`)
	return err
}

// ftsAllColumns is the exact column set mirrored by the FTS5 shadow table:
// all of messages' columns, with msg_time/depa/dsta/msg_text/
// tail/flight/icao/freq/label indexed and everything else UNINDEXED. The
// sentinel column message_type marks the table as the typed (non-legacy)
// schema.
var ftsAllColumns = []string{
	"message_type", "msg_time", "station_id", "toaddr", "fromaddr", "depa", "dsta",
	"eta", "gtout", "gtin", "wloff", "wlin", "lat", "lon", "alt", "msg_text",
	"libacars", "tail", "flight", "icao", "freq", "mode", "label", "block_id",
	"msgno", "ack", "is_response", "is_onground", "error", "level", "uid", "aircraft_id",
}

var ftsIndexedColumns = map[string]bool{
	"msg_time": true, "depa": true, "dsta": true, "msg_text": true,
	"tail": true, "flight": true, "icao": true, "freq": true, "label": true,
}

// migration04 creates the FTS5 virtual table with content-linked triggers
// and rebuilds it from the base table.
func migration04(ctx context.Context, tx *sql.Tx) error {
	if err := createFTSTableAndTriggers(ctx, tx); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO messages_fts(messages_fts) VALUES ('rebuild')`)
	return err
}

func createFTSTableAndTriggers(ctx context.Context, tx *sql.Tx) error {
	var cols []string
	for _, c := range ftsAllColumns {
		if ftsIndexedColumns[c] {
			cols = append(cols, c)
		} else {
			cols = append(cols, c+" UNINDEXED")
		}
	}
	stmt := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
			%s,
			content='messages', content_rowid='id'
		)`, strings.Join(cols, ",\n\t\t\t"))
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create messages_fts: %w", err)
	}

	colList := strings.Join(ftsAllColumns, ", ")
	newList := prefixColumns("new", ftsAllColumns)
	oldList := prefixColumns("old", ftsAllColumns)

	triggers := []string{
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
			INSERT INTO messages_fts(rowid, %s) VALUES (new.id, %s);
		END`, colList, newList),
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
			INSERT INTO messages_fts(messages_fts, rowid, %s) VALUES ('delete', old.id, %s);
		END`, colList, oldList),
		// Replays as delete-then-insert so an update is idempotent under retry.
		fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
			INSERT INTO messages_fts(messages_fts, rowid, %s) VALUES ('delete', old.id, %s);
			INSERT INTO messages_fts(rowid, %s) VALUES (new.id, %s);
		END`, colList, oldList, colList, newList),
	}
	for _, t := range triggers {
		if _, err := tx.ExecContext(ctx, t); err != nil {
			return fmt.Errorf("create fts trigger: %w", err)
		}
	}
	return nil
}

func prefixColumns(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + "." + c
	}
	return strings.Join(out, ", ")
}

// migration05 converts legacy decimal icao values to uppercase six-hex,
// skipping rows that are already hex.
func migration05(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, icao FROM messages WHERE icao IS NOT NULL AND icao != ''`)
	if err != nil {
		return err
	}
	type row struct {
		id   int64
		icao string
	}
	var toFix []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.icao); err != nil {
			_ = rows.Close()
			return err
		}
		if !isHex6(r.icao) {
			toFix = append(toFix, r)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, r := range toFix {
		n, err := strconv.ParseInt(r.icao, 10, 64)
		if err != nil {
			logger.Warnf("store: migration05 could not parse icao %q for message %d, leaving as-is", r.icao, r.id)
			continue
		}
		hex := fmt.Sprintf("%06X", n)
		if _, err := tx.ExecContext(ctx, `UPDATE messages SET icao = ? WHERE id = ?`, hex, r.id); err != nil {
			return err
		}
	}
	return nil
}

func isHex6(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// migration06 adds a globally unique uid string, backfilled in one
// transaction, with a unique index.
func migration06(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `ALTER TABLE messages ADD COLUMN uid TEXT`); err != nil && !isDuplicateColumn(err) {
		return err
	}
	rows, err := tx.QueryContext(ctx, `SELECT id FROM messages WHERE uid IS NULL OR uid = ''`)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE messages SET uid = ? WHERE id = ?`, NewUID(), id); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_uid ON messages(uid)`)
	return err
}

// migration07 creates alert_matches and drops any obsolete messages_saved
// table left behind by very old installations.
func migration07(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS alert_matches (
			message_uid TEXT NOT NULL,
			term TEXT NOT NULL,
			match_type TEXT NOT NULL,
			matched_at INTEGER NOT NULL,
			PRIMARY KEY (message_uid, term)
		)`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS messages_saved`)
	return err
}

// migration08 adds the nullable aircraft_id column and the six composite
// indexes, then VACUUMs and ANALYZEs. VACUUM cannot run inside a
// transaction, so it happens after the migration transaction commits (the
// caller's per-step transaction only covers the ALTER/CREATE INDEX calls;
// see Open, which runs the migration worker in-process here since there is
// no separate process boundary to cross for a step this size).
func migration08(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `ALTER TABLE messages ADD COLUMN aircraft_id TEXT`); err != nil && !isDuplicateColumn(err) {
		return err
	}
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_messages_time_icao ON messages(msg_time, icao)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_tail_flight ON messages(tail, flight)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_depa_dsta ON messages(depa, dsta)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_type_time ON messages(message_type, msg_time)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_matches_term_time ON alert_matches(term, matched_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_matches_uid_term ON alert_matches(message_uid, term)`,
	}
	for _, stmt := range indexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// migration09 creates the time-series rollup table (one row per
// (resolution, timestamp) pair, with one count column per decoder) and the
// legacy RRD import dedup registry.
func migration09(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS timeseries_stats (
			resolution TEXT NOT NULL,
			ts INTEGER NOT NULL,
			acars INTEGER NOT NULL DEFAULT 0,
			vdlm INTEGER NOT NULL DEFAULT 0,
			hfdl INTEGER NOT NULL DEFAULT 0,
			imsl INTEGER NOT NULL DEFAULT 0,
			irdm INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT 0,
			error INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (resolution, ts)
		);
		CREATE INDEX IF NOT EXISTS idx_timeseries_resolution_ts ON timeseries_stats(resolution, ts);

		CREATE TABLE IF NOT EXISTS rrd_import_registry (
			sha256 TEXT PRIMARY KEY,
			imported_at INTEGER NOT NULL
		);
	`)
	return err
}

func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}
