package store

import (
	"context"
	"database/sql"
	"fmt"

	"acarshub/internal/alert"
)

// LoadAlertTerms reads the persisted term and ignore-term tables, in
// insertion (rowid) order, to seed the in-memory cache at startup.
func (d *DB) LoadAlertTerms(ctx context.Context) ([]string, []string, error) {
	terms, err := d.queryTerms(ctx, `SELECT term FROM alert_stats WHERE ignore_term = 0 ORDER BY rowid`)
	if err != nil {
		return nil, nil, fmt.Errorf("load alert terms: %w", err)
	}
	ignore, err := d.queryTerms(ctx, `SELECT term FROM ignore_alert_terms ORDER BY rowid`)
	if err != nil {
		return nil, nil, fmt.Errorf("load ignore terms: %w", err)
	}
	return terms, ignore, nil
}

func (d *DB) queryTerms(ctx context.Context, query string) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, err
		}
		out = append(out, term)
	}
	return out, rows.Err()
}

// SaveAlertTerms replaces the persisted term and ignore-term tables with
// the cache's current contents, transactionally.
func (d *DB) SaveAlertTerms(ctx context.Context, terms []string, ignore []string) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM alert_stats`); err != nil {
		return err
	}
	for _, t := range terms {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO alert_stats (term, ignore_term) VALUES (?, 0)`, t); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ignore_alert_terms`); err != nil {
		return err
	}
	for _, t := range ignore {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO ignore_alert_terms (term) VALUES (?)`, t); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// InsertMatches writes alert_matches rows, one statement per row, relying
// on the (message_uid, term) primary key's INSERT-OR-IGNORE discipline so
// replays are idempotent.
func (d *DB) InsertMatches(ctx context.Context, matches []alert.Match) error {
	if len(matches) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO alert_matches (message_uid, term, match_type, matched_at)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx, m.MessageUID, m.Term, m.MatchType, m.MatchedAt.UnixMilli()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearMatches wipes alert_matches entirely, as the first step of a
// regeneration run.
func (d *DB) ClearMatches(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM alert_matches`)
	return err
}

// AlertMatch is one persisted alert hit joined back to its message's
// searchable fields, for the recent-alerts feed and term-scoped queries.
type AlertMatch struct {
	MessageUID string
	Term       string
	MatchType  string
	MatchedAt  int64
	Text       string
	ICAO       string
	Tail       string
	Flight     string
}

func scanAlertMatchRows(rows *sql.Rows) ([]AlertMatch, error) {
	var out []AlertMatch
	for rows.Next() {
		var (
			am                       AlertMatch
			text, icao, tail, flight sql.NullString
		)
		if err := rows.Scan(&am.MessageUID, &am.Term, &am.MatchType, &am.MatchedAt, &text, &icao, &tail, &flight); err != nil {
			return nil, err
		}
		am.Text, am.ICAO, am.Tail, am.Flight = text.String, icao.String, tail.String, flight.String
		out = append(out, am)
	}
	return out, rows.Err()
}

// ListRecentMatches returns the most recent alert_matches rows, newest
// first, joined to their message's text/icao/tail/flight.
func (d *DB) ListRecentMatches(ctx context.Context, limit int) ([]AlertMatch, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := d.sql.QueryContext(ctx, `
		SELECT am.message_uid, am.term, am.match_type, am.matched_at,
			m.msg_text, m.icao, m.tail, m.flight
		FROM alert_matches am
		JOIN messages m ON m.uid = am.message_uid
		ORDER BY am.matched_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent matches: %w", err)
	}
	defer rows.Close()
	return scanAlertMatchRows(rows)
}

// ListMatchesByTerm paginates alert_matches for one term, newest first,
// reporting the term's total match count alongside the page.
func (d *DB) ListMatchesByTerm(ctx context.Context, term string, page, pageSize int) ([]AlertMatch, int, error) {
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	if page < 0 {
		page = 0
	}

	var total int
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM alert_matches WHERE term = ?`, term).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count matches for term: %w", err)
	}

	rows, err := d.sql.QueryContext(ctx, `
		SELECT am.message_uid, am.term, am.match_type, am.matched_at,
			m.msg_text, m.icao, m.tail, m.flight
		FROM alert_matches am
		JOIN messages m ON m.uid = am.message_uid
		WHERE am.term = ?
		ORDER BY am.matched_at DESC
		LIMIT ? OFFSET ?`, term, pageSize, page*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list matches by term: %w", err)
	}
	defer rows.Close()

	out, err := scanAlertMatchRows(rows)
	return out, total, err
}

// IterateMessages streams every stored message, oldest first, in batches
// of batchSize rows, invoking fn with each row's enriched-shape map. Used
// by alert regeneration to rescan message history against the current
// term set without loading the whole table into memory at once.
func (d *DB) IterateMessages(ctx context.Context, batchSize int, fn func(row map[string]any) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}

	var lastID int64
	for {
		rows, err := d.sql.QueryContext(ctx, `
			SELECT id, uid, msg_text, icao, tail, flight, msg_time
			FROM messages
			WHERE id > ?
			ORDER BY id
			LIMIT ?`, lastID, batchSize)
		if err != nil {
			return err
		}

		n := 0
		var scanErr error
		for rows.Next() {
			var (
				id       int64
				uid      sql.NullString
				msgText  sql.NullString
				icao     sql.NullString
				tail     sql.NullString
				flight   sql.NullString
				msgTime  sql.NullInt64
			)
			if scanErr = rows.Scan(&id, &uid, &msgText, &icao, &tail, &flight, &msgTime); scanErr != nil {
				break
			}
			lastID = id
			n++

			row := map[string]any{
				"uid":       uid.String,
				"text":      msgText.String,
				"icao":      icao.String,
				"tail":      tail.String,
				"flight":    flight.String,
				"timestamp": msgTime.Int64,
			}
			if scanErr = fn(row); scanErr != nil {
				break
			}
		}
		if scanErr == nil {
			scanErr = rows.Err()
		}
		rows.Close()
		if scanErr != nil {
			return scanErr
		}
		if n < batchSize {
			return nil
		}
	}
}
