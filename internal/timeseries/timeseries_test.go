package timeseries

import (
	"context"
	"testing"
	"time"
)

type fakeStore struct {
	rows map[Resolution][]Point
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[Resolution][]Point)}
}

func (f *fakeStore) InsertRow(ctx context.Context, resolution Resolution, ts int64, c Counts) error {
	for _, p := range f.rows[resolution] {
		if p.TimestampMS == ts*1000 {
			return nil // INSERT OR IGNORE semantics
		}
	}
	f.rows[resolution] = append(f.rows[resolution], Point{TimestampMS: ts * 1000, Counts: c})
	return nil
}

func (f *fakeStore) SumWindow(ctx context.Context, resolution Resolution, from, to int64) (Counts, error) {
	var total Counts
	for _, p := range f.rows[resolution] {
		ts := p.TimestampMS / 1000
		if ts >= from && ts < to {
			total.Add(p.Counts)
		}
	}
	return total, nil
}

func (f *fakeStore) ListRows(ctx context.Context, resolution Resolution, from, to int64) ([]Point, error) {
	var out []Point
	for _, p := range f.rows[resolution] {
		ts := p.TimestampMS / 1000
		if ts >= from && ts <= to {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTimestamps(ctx context.Context, resolution Resolution, from, to, step int64) ([]int64, error) {
	var out []int64
	for _, p := range f.rows[resolution] {
		out = append(out, p.TimestampMS/1000)
	}
	return out, nil
}

func (f *fakeStore) PruneResolution(ctx context.Context, resolution Resolution, cutoff int64) error {
	var kept []Point
	for _, p := range f.rows[resolution] {
		if p.TimestampMS/1000 >= cutoff {
			kept = append(kept, p)
		}
	}
	f.rows[resolution] = kept
	return nil
}

func TestRollupSumsFinerResolutionIntoCoarser(t *testing.T) {
	store := newFakeStore()
	now := time.Unix(1_700_000_000, 0).Truncate(time.Hour)

	windowStart := now.Unix()/300*300 - 300
	for i := int64(0); i < 5; i++ {
		store.rows[Res1Min] = append(store.rows[Res1Min], Point{
			TimestampMS: (windowStart + i*60) * 1000,
			Counts:      Counts{ACARS: 1, Total: 1},
		})
	}

	if err := Rollup(context.Background(), store, now); err != nil {
		t.Fatalf("Rollup: %v", err)
	}

	rows := store.rows[Res5Min]
	if len(rows) != 1 {
		t.Fatalf("expected 1 rolled-up 5min row, got %d", len(rows))
	}
	if rows[0].ACARS != 5 || rows[0].Total != 5 {
		t.Fatalf("expected summed counts of 5, got %+v", rows[0].Counts)
	}
}

func TestPruneRemovesRowsOlderThanRetention(t *testing.T) {
	store := newFakeStore()
	now := time.Unix(1_700_000_000, 0)

	store.rows[Res1Min] = []Point{
		{TimestampMS: (now.Unix() - 2*86400) * 1000, Counts: Counts{Total: 1}}, // 2 days old, should be pruned
		{TimestampMS: now.Unix() * 1000, Counts: Counts{Total: 1}},             // fresh, should survive
	}

	if err := Prune(context.Background(), store, now); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(store.rows[Res1Min]) != 1 {
		t.Fatalf("expected 1 surviving 1min row, got %d", len(store.rows[Res1Min]))
	}
}

func TestPruneNeverRemoves1DayRows(t *testing.T) {
	store := newFakeStore()
	now := time.Unix(1_700_000_000, 0)
	store.rows[Res1Day] = []Point{
		{TimestampMS: 0, Counts: Counts{Total: 1}}, // epoch, ancient
	}
	if err := Prune(context.Background(), store, now); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(store.rows[Res1Day]) != 1 {
		t.Fatalf("expected 1day rows to be kept indefinitely, got %d rows", len(store.rows[Res1Day]))
	}
}

func TestPickResolutionStaysUnderPointCap(t *testing.T) {
	cases := []struct {
		window time.Duration
		want   Resolution
	}{
		{time.Hour, Res1Min},
		{30 * 24 * time.Hour, Res1Day},
		{365 * 24 * time.Hour, Res1Day},
	}
	for _, c := range cases {
		got := pickResolution(c.window)
		if got != c.want {
			t.Errorf("pickResolution(%s) = %s, want %s", c.window, got, c.want)
		}
	}
}

func TestCacheRefreshPushesPoints(t *testing.T) {
	store := newFakeStore()
	now := time.Unix(1_700_000_000, 0)
	store.rows[Res1Min] = []Point{
		{TimestampMS: now.Unix() * 1000, Counts: Counts{Total: 3}},
	}

	var pushed []Point
	var pushedRange string
	cache := NewCache(store, func(rangeName string, points []Point) {
		pushedRange = rangeName
		pushed = points
	})

	if err := cache.Refresh(context.Background(), "1hr", now); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pushedRange != "1hr" {
		t.Fatalf("expected push for range 1hr, got %s", pushedRange)
	}
	if len(pushed) != 1 || pushed[0].Total != 3 {
		t.Fatalf("expected pushed points to include the fresh row, got %+v", pushed)
	}

	got := cache.Get("1hr")
	if len(got) != 1 {
		t.Fatalf("expected Get to return the cached points, got %+v", got)
	}
}

func TestCacheRefreshUnknownRange(t *testing.T) {
	store := newFakeStore()
	cache := NewCache(store, nil)
	if err := cache.Refresh(context.Background(), "nonexistent", time.Now()); err == nil {
		t.Fatalf("expected an error for an unknown range name")
	}
}
