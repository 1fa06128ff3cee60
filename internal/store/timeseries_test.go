package store

import (
	"context"
	"testing"

	"acarshub/internal/timeseries"
)

func TestInsertRowIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.InsertRow(ctx, timeseries.Res1Min, 1700000000, timeseries.Counts{ACARS: 5, Total: 5})
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	// Replay with different counts; the first write must win (INSERT OR IGNORE).
	err = db.InsertRow(ctx, timeseries.Res1Min, 1700000000, timeseries.Counts{ACARS: 99, Total: 99})
	if err != nil {
		t.Fatalf("InsertRow replay: %v", err)
	}

	rows, err := db.ListRows(ctx, timeseries.Res1Min, 1699999999, 1700000001)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(rows) != 1 || rows[0].ACARS != 5 {
		t.Fatalf("expected the original row (ACARS=5) to survive the replay, got %+v", rows)
	}
}

func TestSumWindowAggregatesRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := int64(0); i < 3; i++ {
		if err := db.InsertRow(ctx, timeseries.Res1Min, 1700000000+i*60, timeseries.Counts{Total: 1}); err != nil {
			t.Fatalf("InsertRow: %v", err)
		}
	}

	sum, err := db.SumWindow(ctx, timeseries.Res1Min, 1700000000, 1700000000+180)
	if err != nil {
		t.Fatalf("SumWindow: %v", err)
	}
	if sum.Total != 3 {
		t.Fatalf("expected summed total of 3, got %d", sum.Total)
	}
}

func TestPruneResolutionDeletesOldRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.InsertRow(ctx, timeseries.Res1Min, 1000, timeseries.Counts{Total: 1}); err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	if err := db.InsertRow(ctx, timeseries.Res1Min, 2000, timeseries.Counts{Total: 1}); err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	if err := db.PruneResolution(ctx, timeseries.Res1Min, 1500); err != nil {
		t.Fatalf("PruneResolution: %v", err)
	}

	rows, err := db.ListRows(ctx, timeseries.Res1Min, 0, 3000)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(rows) != 1 || rows[0].TimestampMS != 2_000_000 {
		t.Fatalf("expected only the row at ts=2000 to survive, got %+v", rows)
	}
}

func TestImportRegistryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	imported, err := db.HashImported(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("HashImported: %v", err)
	}
	if imported {
		t.Fatalf("expected an unregistered hash to report false")
	}

	if err := db.RegisterImportedHash(ctx, "deadbeef"); err != nil {
		t.Fatalf("RegisterImportedHash: %v", err)
	}
	imported, err = db.HashImported(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("HashImported: %v", err)
	}
	if !imported {
		t.Fatalf("expected the registered hash to report true")
	}
}

func TestBulkInsertRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rows := []timeseries.Point{
		{TimestampMS: 1_700_000_000_000, Counts: timeseries.Counts{ACARS: 1, Total: 1}},
		{TimestampMS: 1_700_000_060_000, Counts: timeseries.Counts{ACARS: 2, Total: 2}},
	}
	if err := db.BulkInsertRows(ctx, timeseries.Res1Day, rows); err != nil {
		t.Fatalf("BulkInsertRows: %v", err)
	}

	got, err := db.ListRows(ctx, timeseries.Res1Day, 1_700_000_000, 1_700_000_060)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bulk-inserted rows, got %d", len(got))
	}
}
