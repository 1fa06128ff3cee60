package store

import (
	"context"
	"path/filepath"
	"testing"

	"acarshub/internal/format"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acarshub.db")
	db, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertAndGetMessage(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := &format.Record{
		MessageType: "ACARS",
		MsgTime:     1700000000,
		Tail:        "N8560Z",
		Flight:      "WN4899",
		ICAO:        "A1B2C3",
		MsgText:     "TEST MESSAGE CONTENT",
		Label:       "5Z",
	}

	uid, err := db.InsertMessage(ctx, rec)
	if err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	if uid == "" {
		t.Fatalf("expected a non-empty uid")
	}

	row, err := db.GetMessageByUID(ctx, uid)
	if err != nil {
		t.Fatalf("GetMessageByUID: %v", err)
	}
	if row == nil {
		t.Fatalf("expected a row for uid %s", uid)
	}
	if row["tail"] != "N8560Z" {
		t.Fatalf("expected tail N8560Z, got %v", row["tail"])
	}
	if row["msg_text"] != "TEST MESSAGE CONTENT" {
		t.Fatalf("expected msg_text to round-trip, got %v", row["msg_text"])
	}
}

func TestGetMessageByUIDMissing(t *testing.T) {
	db := openTestDB(t)
	row, err := db.GetMessageByUID(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("GetMessageByUID: %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil row for missing uid, got %+v", row)
	}
}

func TestSearchMessagesFindsInsertedText(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	uid, err := db.InsertMessage(ctx, &format.Record{
		MessageType: "ACARS",
		MsgTime:     1700000000,
		MsgText:     "ENGINE FAILURE REPORTED",
	})
	if err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}

	uids, err := db.SearchMessages(ctx, "FAILURE", 10)
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	found := false
	for _, u := range uids {
		if u == uid {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected search to find inserted message, got %v", uids)
	}
}

func TestSearchMessagesEmptyQuery(t *testing.T) {
	db := openTestDB(t)
	uids, err := db.SearchMessages(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(uids) != 0 {
		t.Fatalf("expected no results for an empty query, got %v", uids)
	}
}
