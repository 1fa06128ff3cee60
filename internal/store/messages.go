package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"acarshub/internal/format"
)

// InsertMessage writes one normalized record, assigning it a fresh uid,
// and returns that uid. The row is written exactly as produced by the
// format package; enrichment happens on read, never on write.
func (d *DB) InsertMessage(ctx context.Context, rec *format.Record) (string, error) {
	uid := NewUID()

	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO messages (
			message_type, msg_time, station_id, toaddr, fromaddr,
			depa, dsta, eta, gtout, gtin, wloff, wlin,
			lat, lon, alt, msg_text, libacars, tail, flight, icao,
			freq, mode, label, block_id, msgno, ack,
			is_response, is_onground, error, level, uid
		) VALUES (?,?,?,?,?, ?,?,?,?,?,?,?, ?,?,?,?,?,?,?,?, ?,?,?,?,?,?, ?,?,?,?,?)`,
		rec.MessageType, rec.MsgTime, rec.StationID, parseAddr(rec.ToAddr), parseAddr(rec.FromAddr),
		rec.Depa, rec.Dsta, rec.Eta, rec.GtOut, rec.GtIn, rec.WlOff, rec.WlIn,
		rec.Lat, rec.Lon, rec.Alt, rec.MsgText, rec.Libacars, rec.Tail, rec.Flight, rec.ICAO,
		formatFreq(rec.Freq), rec.Mode, rec.Label, rec.BlockID, rec.Msgno, rec.Ack,
		boolToInt(rec.IsResponse), rec.IsOnGround, rec.Error, rec.Level, uid,
	)
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	return uid, nil
}

// parseAddr converts a routing address (arriving as a decimal or hex string
// from the decoder JSON) to the integer form the messages table stores it
// in. An unparseable or empty address is stored as NULL.
func parseAddr(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if n, err := strconv.ParseInt(s, 16, 64); err == nil {
		return n
	}
	return nil
}

func formatFreq(f float64) string {
	if f == 0 {
		return ""
	}
	return fmt.Sprintf("%g", f)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// messageColumns is the exact column list scanMessageRow expects, in
// SELECT order. The keys are the snake_case column names; the enrich
// package renames msg_text and msg_time to their wire names on the way out.
var messageColumns = []string{
	"uid", "message_type", "msg_time", "station_id", "toaddr", "fromaddr",
	"depa", "dsta", "eta", "gtout", "gtin", "wloff", "wlin",
	"lat", "lon", "alt", "msg_text", "libacars", "tail", "flight", "icao",
	"freq", "mode", "label", "block_id", "msgno", "ack",
	"is_response", "is_onground", "error", "level", "aircraft_id",
}

// GetMessageByUID fetches one message row as a plain map, ready to be
// passed through enrich.Enrich. Returns nil, nil if no row matches.
func (d *DB) GetMessageByUID(ctx context.Context, uid string) (map[string]any, error) {
	row := d.sql.QueryRowContext(ctx, `
		SELECT uid, message_type, msg_time, station_id, toaddr, fromaddr,
			depa, dsta, eta, gtout, gtin, wloff, wlin,
			lat, lon, alt, msg_text, libacars, tail, flight, icao,
			freq, mode, label, block_id, msgno, ack,
			is_response, is_onground, error, level, aircraft_id
		FROM messages WHERE uid = ?`, uid)
	m, err := scanMessageRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func scanMessageRow(row *sql.Row) (map[string]any, error) {
	vals := make([]any, len(messageColumns))
	ptrs := make([]any, len(messageColumns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(messageColumns))
	for i, col := range messageColumns {
		out[col] = vals[i]
	}
	return out, nil
}

// ListRecentMessages returns the most recently stored uids, newest first.
func (d *DB) ListRecentMessages(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT uid FROM messages ORDER BY msg_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

// SearchMessages runs a full-text query against messages_fts, returning
// matching message uids ordered by relevance (best match first), newest
// first on a tie. An empty query matches nothing; use ListRecentMessages
// instead.
func (d *DB) SearchMessages(ctx context.Context, query string, limit int) ([]string, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	rows, err := d.sql.QueryContext(ctx, `
		SELECT m.uid
		FROM messages_fts f
		JOIN messages m ON m.id = f.rowid
		WHERE messages_fts MATCH ?
		ORDER BY rank, m.msg_time DESC
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

// PruneOldMessages deletes messages older than saveDays (0 disables
// pruning for SaveAll installs) and alert_matches older than
// alertSaveDays, each in its own statement so a failure on one does not
// block the other.
func (d *DB) PruneOldMessages(ctx context.Context, saveDays int, alertSaveDays int) error {
	if saveDays > 0 {
		cutoff := now().AddDate(0, 0, -saveDays).Unix()
		if _, err := d.sql.ExecContext(ctx, `DELETE FROM messages WHERE msg_time < ?`, cutoff); err != nil {
			return fmt.Errorf("prune messages: %w", err)
		}
	}
	if alertSaveDays > 0 {
		cutoff := now().AddDate(0, 0, -alertSaveDays).UnixMilli()
		if _, err := d.sql.ExecContext(ctx, `DELETE FROM alert_matches WHERE matched_at < ?`, cutoff); err != nil {
			return fmt.Errorf("prune alert matches: %w", err)
		}
	}
	return nil
}
