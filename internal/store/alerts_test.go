package store

import (
	"context"
	"testing"

	"acarshub/internal/alert"
	"acarshub/internal/format"
)

func TestSaveAndLoadAlertTerms(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.SaveAlertTerms(ctx, []string{"WN4899", "N8560Z"}, []string{"TESTALERT"}); err != nil {
		t.Fatalf("SaveAlertTerms: %v", err)
	}

	terms, ignore, err := db.LoadAlertTerms(ctx)
	if err != nil {
		t.Fatalf("LoadAlertTerms: %v", err)
	}
	if len(terms) != 2 || len(ignore) != 1 {
		t.Fatalf("expected 2 terms and 1 ignore term, got terms=%v ignore=%v", terms, ignore)
	}
}

func TestInsertMatchesIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	matches := []alert.Match{
		{MessageUID: "uid-1", Term: "ALPHA", MatchType: "text"},
	}
	if err := db.InsertMatches(ctx, matches); err != nil {
		t.Fatalf("InsertMatches: %v", err)
	}
	// Replay the same (message_uid, term) pair; INSERT OR IGNORE must not error.
	if err := db.InsertMatches(ctx, matches); err != nil {
		t.Fatalf("InsertMatches replay: %v", err)
	}

	var count int
	if err := db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM alert_matches`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row after replay, got %d", count)
	}
}

func TestIterateMessagesVisitsEveryRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := db.InsertMessage(ctx, &format.Record{MessageType: "ACARS", MsgTime: int64(1700000000 + i)}); err != nil {
			t.Fatalf("InsertMessage: %v", err)
		}
	}

	var seen int
	err := db.IterateMessages(ctx, 1, func(row map[string]any) error {
		seen++
		return nil
	})
	if err != nil {
		t.Fatalf("IterateMessages: %v", err)
	}
	if seen != 3 {
		t.Fatalf("expected to visit 3 rows, got %d", seen)
	}
}

func TestClearMatches(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.InsertMatches(ctx, []alert.Match{{MessageUID: "uid-1", Term: "ALPHA", MatchType: "text"}}); err != nil {
		t.Fatalf("InsertMatches: %v", err)
	}
	if err := db.ClearMatches(ctx); err != nil {
		t.Fatalf("ClearMatches: %v", err)
	}
	var count int
	if err := db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM alert_matches`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows after ClearMatches, got %d", count)
	}
}
