// Package timeseries owns the minute-aligned counter flush, the
// multi-resolution rollup chain, retention pruning, and the wall-clock
// range cache that backs the front end's history charts.
package timeseries

import (
	"context"
	"fmt"
	"sync"
	"time"

	"acarshub/internal/logger"
)

// Resolution is one of the four row granularities stored in
// timeseries_stats.
type Resolution string

const (
	Res1Min Resolution = "1min"
	Res5Min Resolution = "5min"
	Res1Hr  Resolution = "1hr"
	Res1Day Resolution = "1day"
)

// Counts is one row's per-decoder message tally. JSON tags match the wire
// shape of GET /data/stats.json and the rrd_timeseries_data event payload.
type Counts struct {
	ACARS int64 `json:"acars"`
	VDLM  int64 `json:"vdlm2"`
	HFDL  int64 `json:"hfdl"`
	IMSL  int64 `json:"imsl"`
	IRDM  int64 `json:"irdm"`
	Total int64 `json:"total"`
	Error int64 `json:"error"`
}

func (c *Counts) Add(o Counts) {
	c.ACARS += o.ACARS
	c.VDLM += o.VDLM
	c.HFDL += o.HFDL
	c.IMSL += o.IMSL
	c.IRDM += o.IRDM
	c.Total += o.Total
	c.Error += o.Error
}

// Point is one row on the wire: milliseconds since epoch plus its counts.
type Point struct {
	TimestampMS int64
	Counts
}

// Store is the persistence surface the writer, rollup, and range query
// logic write through to and read from.
type Store interface {
	InsertRow(ctx context.Context, resolution Resolution, ts int64, counts Counts) error
	SumWindow(ctx context.Context, resolution Resolution, from, to int64) (Counts, error)
	ListRows(ctx context.Context, resolution Resolution, from, to int64) ([]Point, error)
	ListTimestamps(ctx context.Context, resolution Resolution, from, to, step int64) ([]int64, error)
	PruneResolution(ctx context.Context, resolution Resolution, cutoff int64) error
}

// CounterSnapshot is supplied by the caller (the message queue consumer) at
// each minute boundary; the writer does not track counters itself.
type CounterSnapshot func() Counts

// Writer owns the minute boundary: once per wall-clock minute it snapshots
// the live per-decoder counters (resetting their deltas is the snapshot
// function's responsibility) and writes one 1min row.
type Writer struct {
	store    Store
	snapshot CounterSnapshot
}

func NewWriter(store Store, snapshot CounterSnapshot) *Writer {
	return &Writer{store: store, snapshot: snapshot}
}

// Run blocks, writing one row at each minute boundary, until ctx is
// cancelled.
func (w *Writer) Run(ctx context.Context) {
	for {
		wait := time.Until(nextMinuteBoundary(time.Now()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case t := <-timer.C:
			w.flush(ctx, t)
		}
	}
}

func (w *Writer) flush(ctx context.Context, at time.Time) {
	counts := w.snapshot()
	ts := at.Truncate(time.Minute).Unix()
	if err := w.store.InsertRow(ctx, Res1Min, ts, counts); err != nil {
		logger.Warnf("timeseries: writing 1min row failed: %v", err)
	}
}

func nextMinuteBoundary(from time.Time) time.Time {
	return from.Truncate(time.Minute).Add(time.Minute)
}

// rollupChain lists the steps of the rollup chain: src rows are summed
// into windowSeconds-wide buckets and written at dst resolution.
var rollupChain = []struct {
	src, dst      Resolution
	windowSeconds int64
}{
	{Res1Min, Res5Min, 5 * 60},
	{Res5Min, Res1Hr, 60 * 60},
	{Res1Hr, Res1Day, 24 * 60 * 60},
}

// Rollup sums each finer resolution's rows into the next-coarser
// resolution's windows ending at "now", one bucket per step. Every write
// uses INSERT OR IGNORE at the store layer, so replaying the same window
// twice is harmless.
func Rollup(ctx context.Context, store Store, now time.Time) error {
	for _, step := range rollupChain {
		windowEnd := now.Unix() / step.windowSeconds * step.windowSeconds
		windowStart := windowEnd - step.windowSeconds

		counts, err := store.SumWindow(ctx, step.src, windowStart, windowEnd)
		if err != nil {
			return fmt.Errorf("timeseries: sum %s window: %w", step.src, err)
		}
		if err := store.InsertRow(ctx, step.dst, windowStart, counts); err != nil {
			return fmt.Errorf("timeseries: write %s rollup: %w", step.dst, err)
		}
	}
	return nil
}

// retentionFor is how long each resolution's rows are kept before pruning;
// 1day rows are kept indefinitely (retentionFor returns false).
func retentionFor(r Resolution) (time.Duration, bool) {
	switch r {
	case Res1Min:
		return 24 * time.Hour, true
	case Res5Min:
		return 7 * 24 * time.Hour, true
	case Res1Hr:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Prune removes rows older than each resolution's retention window.
func Prune(ctx context.Context, store Store, now time.Time) error {
	for _, r := range []Resolution{Res1Min, Res5Min, Res1Hr, Res1Day} {
		window, bounded := retentionFor(r)
		if !bounded {
			continue
		}
		cutoff := now.Add(-window).Unix()
		if err := store.PruneResolution(ctx, r, cutoff); err != nil {
			return fmt.Errorf("timeseries: prune %s: %w", r, err)
		}
	}
	return nil
}

// Range is one of the eight canonical chart windows.
type Range struct {
	Name    string
	Window  time.Duration
	Refresh time.Duration
}

// CanonicalRanges are the eight ranges the cache keeps warm.
var CanonicalRanges = []Range{
	{"1hr", time.Hour, time.Minute},
	{"6hr", 6 * time.Hour, time.Minute},
	{"12hr", 12 * time.Hour, 5 * time.Minute},
	{"24hr", 24 * time.Hour, 5 * time.Minute},
	{"1wk", 7 * 24 * time.Hour, time.Hour},
	{"30day", 30 * 24 * time.Hour, time.Hour},
	{"6mon", 182 * 24 * time.Hour, 6 * time.Hour},
	{"1yr", 365 * 24 * time.Hour, time.Hour},
}

const maxRangePoints = 500

// resolutionsByCoarseness is ordered finest-first; pickResolution returns
// the first (finest) one that covers the window in at most maxRangePoints
// points, falling back to 1day.
var resolutionsByCoarseness = []struct {
	res     Resolution
	seconds int64
}{
	{Res1Min, 60},
	{Res5Min, 5 * 60},
	{Res1Hr, 60 * 60},
	{Res1Day, 24 * 60 * 60},
}

func pickResolution(window time.Duration) Resolution {
	for _, r := range resolutionsByCoarseness {
		points := int64(window.Seconds()) / r.seconds
		if points <= maxRangePoints {
			return r.res
		}
	}
	return Res1Day
}

// Cache warms the eight canonical ranges on their own refresh cadences and
// serves the latest snapshot without hitting the store on every request.
type Cache struct {
	mu   sync.RWMutex
	data map[string][]Point

	store  Store
	onPush func(rangeName string, points []Point)
}

// NewCache builds an empty Cache; onPush, if non-nil, is invoked after
// every refresh with the range name and its fresh points, for the event
// layer's rrd_timeseries_data broadcast.
func NewCache(store Store, onPush func(rangeName string, points []Point)) *Cache {
	return &Cache{store: store, data: make(map[string][]Point), onPush: onPush}
}

// Refresh recomputes one named range's points from the store and pushes
// the update.
func (c *Cache) Refresh(ctx context.Context, rangeName string, now time.Time) error {
	var rng *Range
	for i := range CanonicalRanges {
		if CanonicalRanges[i].Name == rangeName {
			rng = &CanonicalRanges[i]
			break
		}
	}
	if rng == nil {
		return fmt.Errorf("timeseries: unknown range %q", rangeName)
	}

	res := pickResolution(rng.Window)
	from := now.Add(-rng.Window).Unix()
	to := now.Unix()

	rows, err := c.store.ListRows(ctx, res, from, to)
	if err != nil {
		return fmt.Errorf("timeseries: refresh %s: %w", rangeName, err)
	}

	points := make([]Point, len(rows))
	for i, r := range rows {
		points[i] = Point{TimestampMS: r.TimestampMS, Counts: r.Counts}
	}

	c.mu.Lock()
	c.data[rangeName] = points
	c.mu.Unlock()

	if c.onPush != nil {
		c.onPush(rangeName, points)
	}
	return nil
}

// Get returns the cached points for a range, or nil if it has not been
// refreshed yet.
func (c *Cache) Get(rangeName string) []Point {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data[rangeName]
}
