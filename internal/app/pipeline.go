package app

import (
	"context"
	"sync"
	"time"

	"acarshub/internal/format"
	"acarshub/internal/logger"
	"acarshub/internal/queue"
	"acarshub/internal/timeseries"
)

// counterAccumulator tallies per-decoder message counts between minute
// boundaries; the timeseries writer calls snapshotAndReset once per
// minute and owns resetting the delta.
type counterAccumulator struct {
	mu     sync.Mutex
	counts timeseries.Counts
}

func (c *counterAccumulator) add(decoder string, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch decoder {
	case "ACARS":
		c.counts.ACARS++
	case "VDL-M2":
		c.counts.VDLM++
	case "HFDL":
		c.counts.HFDL++
	case "IMS-L":
		c.counts.IMSL++
	case "IRDM":
		c.counts.IRDM++
	}
	c.counts.Total++
	if isError {
		c.counts.Error++
	}
}

func (c *counterAccumulator) snapshotAndReset() timeseries.Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.counts
	c.counts = timeseries.Counts{}
	return snap
}

// pump drains the queue: normalize -> multipart-combine -> persist ->
// enrich -> alert-match -> broadcast. One goroutine, so ordering into the
// database and onto the wire matches arrival order.
func (a *App) pump(ctx context.Context) {
	defer close(a.pumpDone)
	for {
		item, ok := a.Queue.Pop(ctx)
		if !ok {
			return
		}
		a.handleItem(ctx, item)
	}
}

func (a *App) handleItem(ctx context.Context, item queue.Item) {
	rec, err := format.Normalize(item.Raw)
	if err != nil {
		a.counters.add(item.Decoder, true)
		if !a.cfg.QuietMessages {
			logger.Warnf("app: %s: normalize failed: %v", item.Decoder, err)
		}
		return
	}
	if rec == nil {
		// Recognized but intentionally dropped (e.g. a non-ACARS SatDump
		// frame).
		return
	}

	out, ready := a.combiner.Combine(rec, time.Now())
	a.counters.add(item.Decoder, rec.Error != 0)
	if !ready {
		return
	}

	uid, err := a.DB.InsertMessage(ctx, out)
	if err != nil {
		logger.Warnf("app: %s: insert failed: %v", item.Decoder, err)
		return
	}

	row, err := a.DB.GetMessageByUID(ctx, uid)
	if err != nil || row == nil {
		logger.Warnf("app: %s: reload %s failed: %v", item.Decoder, uid, err)
		return
	}
	enriched := a.Enricher.Enrich(row)

	result := a.Alerts.MatchMessage(enriched, uid, time.Now())
	if result.Matched {
		enriched["matched"] = true
		enriched["matched_text"] = result.MatchedText
		enriched["matched_icao"] = result.MatchedICAO
		enriched["matched_tail"] = result.MatchedTail
		enriched["matched_flight"] = result.MatchedFlight
		if err := a.DB.InsertMatches(ctx, result.Rows); err != nil {
			logger.Warnf("app: persisting alert matches for %s: %v", uid, err)
		}
		a.Events.Broadcast("alert_message", enriched)
	}

	a.Events.Broadcast("acars_msg", enriched)
}
