package app

import (
	"context"
	"time"

	"acarshub/internal/events"
	"acarshub/internal/queue"
	"acarshub/internal/scheduler"
	"acarshub/internal/timeseries"
)

const connectBatchSize = 50

// taskTable builds the scheduler's default task wiring from this app's
// live components.
func (a *App) taskTable() scheduler.Tasks {
	return scheduler.Tasks{
		EmitStatus: func(ctx context.Context) error {
			a.Events.Broadcast("system_status", a.statusSnapshot(ctx))
			return nil
		},
		PruneOldData: func(ctx context.Context) error {
			saveDays := a.cfg.SaveDays
			if a.cfg.SaveAll {
				saveDays = 0
			}
			return a.DB.PruneOldMessages(ctx, saveDays, a.cfg.AlertSaveDays)
		},
		MergeFTS: func(ctx context.Context) error {
			return a.DB.MergeFTS(ctx, 500)
		},
		CheckpointWAL: func(ctx context.Context) error {
			return a.DB.CheckpointTruncate(ctx)
		},
		OptimizeFTSAndVacuum: func(ctx context.Context) error {
			return a.DB.OptimizeFTS(ctx)
		},
		ProbeDecoderHealth: func(ctx context.Context) error {
			for decoder, statuses := range a.Listen.Statuses() {
				for _, st := range statuses {
					if st.ConsecutiveFailures >= 3 {
						a.Events.Broadcast("decoder_health", map[string]any{
							"decoder":              decoder,
							"connected":            st.Connected,
							"consecutive_failures": st.ConsecutiveFailures,
						})
					}
				}
			}
			return nil
		},
		RollupTimeseries: func(ctx context.Context) error {
			return timeseries.Rollup(ctx, a.DB, time.Now())
		},
		PruneTimeseries: func(ctx context.Context) error {
			return timeseries.Prune(ctx, a.DB, time.Now())
		},
		RefreshRange: func(rangeName string) scheduler.TaskFunc {
			return func(ctx context.Context) error {
				return a.TS.Refresh(ctx, rangeName, time.Now())
			}
		},
	}
}

// statusSnapshot builds the system_status/request_status payload from the
// queue counters, listener health, and database stats.
func (a *App) statusSnapshot(ctx context.Context) map[string]any {
	return map[string]any{
		"queue":     a.Queue.Snapshot(),
		"listeners": a.Listen.Statuses(),
		"database":  a.DB.HealthStats(ctx),
	}
}

// LastHourCounts sums per-decoder message counts over the trailing hour
// for GET /data/stats.json. During the service's first minute the 1-minute
// rollup has nothing to sum yet, so it falls back to the live queue
// counters instead.
func (a *App) LastHourCounts(ctx context.Context) timeseries.Counts {
	if time.Since(a.startedAt) < time.Minute {
		return countsFromQueueStats(a.Queue.Snapshot())
	}
	to := time.Now().Unix()
	from := to - int64(time.Hour/time.Second)
	counts, err := a.DB.SumWindow(ctx, timeseries.Res1Min, from, to)
	if err != nil {
		return countsFromQueueStats(a.Queue.Snapshot())
	}
	return counts
}

func countsFromQueueStats(s queue.Stats) timeseries.Counts {
	return timeseries.Counts{
		ACARS: s.PerDecoder["ACARS"],
		VDLM:  s.PerDecoder["VDL-M2"],
		HFDL:  s.PerDecoder["HFDL"],
		IMSL:  s.PerDecoder["IMS-L"],
		IRDM:  s.PerDecoder["IRDM"],
		Total: s.Total,
	}
}

// connectSequence builds the events.ConnectSequence this app runs for
// every socket once it clears the migration gate.
func (a *App) connectSequence(s *events.Socket) {
	cs := events.ConnectSequence{
		FeaturesEnabled: func() map[string]bool {
			return map[string]bool{
				"adsb":            a.cfg.EnableADSB,
				"range_rings":     !a.cfg.DisableRangeRings,
				"flight_tracking": a.cfg.FlightTrackingURL != "",
				"heywhatsthat":    a.cfg.HeyWhatsThatSiteID != "",
			}
		},
		Terms:      a.Alerts.Terms,
		AlertTerms: a.Alerts.Terms,
		Labels: func() map[string]string {
			return map[string]string{}
		},
		Database: func() map[string]any {
			stats := a.DB.HealthStats(context.Background())
			return map[string]any{"connected": stats.Connected, "message_count": stats.MessageCount}
		},
		Signal: func() map[string]any {
			return map[string]any{}
		},
		Version: Version,
		RecentMessages: func(yield func(batch any, loading bool, done bool)) {
			uids, err := a.DB.ListRecentMessages(context.Background(), 200)
			if err != nil {
				yield([]any{}, true, true)
				return
			}
			a.streamMessageBatches(uids, yield)
		},
		RecentAlertMatches: func(yield func(batch any, loading bool, done bool)) {
			matches, err := a.DB.ListRecentMatches(context.Background(), 200)
			if err != nil {
				yield([]any{}, true, true)
				return
			}
			yield(matches, true, true)
		},
	}
	cs.Run(s)
}

// streamMessageBatches re-enriches each uid and yields it to the connect
// sequence in fixed-size chunks, matching the batched acars_msg_batch wire
// shape instead of sending every backlog row as one message.
func (a *App) streamMessageBatches(uids []string, yield func(batch any, loading bool, done bool)) {
	if len(uids) == 0 {
		yield([]any{}, true, true)
		return
	}
	ctx := context.Background()
	for i := 0; i < len(uids); i += connectBatchSize {
		end := i + connectBatchSize
		if end > len(uids) {
			end = len(uids)
		}
		batch := make([]any, 0, end-i)
		for _, uid := range uids[i:end] {
			row, err := a.DB.GetMessageByUID(ctx, uid)
			if err != nil || row == nil {
				continue
			}
			batch = append(batch, a.Enricher.Enrich(row))
		}
		yield(batch, true, end == len(uids))
	}
}

// eventHandlerDeps builds the client->server handler table backed by this
// app's store, alert cache, and timeseries cache.
func (a *App) eventHandlerDeps() events.HandlerDeps {
	return events.HandlerDeps{
		Search: func(q events.SearchQuery, resultsAfter int, showAll bool) (any, int) {
			term := searchTermFromQuery(q)
			uids, err := a.DB.SearchMessages(context.Background(), term, 200)
			if err != nil {
				return []any{}, 0
			}
			results := make([]any, 0, len(uids))
			for _, uid := range uids {
				row, err := a.DB.GetMessageByUID(context.Background(), uid)
				if err != nil || row == nil {
					continue
				}
				results = append(results, a.Enricher.Enrich(row))
			}
			return results, len(results)
		},
		UpdateAlerts: func(terms, ignore []string) error {
			return a.reconcileAlertTerms(context.Background(), terms, ignore)
		},
		SignalFreqs: func() any { return map[string]any{} },
		SignalCount: func() any { return map[string]any{} },
		SignalGraphs: func() any {
			return map[string]any{"ranges": a.TS.Get("1hr")}
		},
		RequestStatus: func() any { return a.statusSnapshot(context.Background()) },
		AlertTermQuery: func(icao, flight, tail string) any {
			term := icao
			if term == "" {
				term = flight
			}
			if term == "" {
				term = tail
			}
			matches, _, _ := a.DB.ListMatchesByTerm(context.Background(), term, 0, 50)
			return matches
		},
		QueryAlertsByTerm: func(term string, page int) (any, int) {
			matches, total, err := a.DB.ListMatchesByTerm(context.Background(), term, page, 50)
			if err != nil {
				return []any{}, 0
			}
			return matches, total
		},
		RequestRecentAlerts: func() any {
			matches, _ := a.DB.ListRecentMatches(context.Background(), 200)
			return matches
		},
		RRDTimeseries: func(period string) (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.TS.Refresh(ctx, period, time.Now()); err != nil {
				return nil, err
			}
			return a.TS.Get(period), nil
		},
		RegenerateMatches: func(progress func(scanned int, done bool)) error {
			return a.Alerts.Regenerate(context.Background(), alertProgressAdapter(progress))
		},
	}
}

func searchTermFromQuery(q events.SearchQuery) string {
	for _, v := range []string{q.MsgText, q.Flight, q.Tail, q.ICAO, q.Label, q.Msgno} {
		if v != "" {
			return v
		}
	}
	return ""
}

// reconcileAlertTerms diffs the requested term/ignore sets against the
// cache's current contents and issues the matching Add/Remove calls, since
// Cache only exposes incremental mutation, not bulk replace.
func (a *App) reconcileAlertTerms(ctx context.Context, terms, ignore []string) error {
	if err := reconcileSet(a.Alerts.Terms(), terms, func(t string) (bool, error) { return a.Alerts.AddTerm(ctx, t) }, func(t string) (bool, error) { return a.Alerts.RemoveTerm(ctx, t) }); err != nil {
		return err
	}
	return reconcileSet(a.Alerts.IgnoreTerms(), ignore, func(t string) (bool, error) { return a.Alerts.AddIgnoreTerm(ctx, t) }, func(t string) (bool, error) { return a.Alerts.RemoveIgnoreTerm(ctx, t) })
}

func reconcileSet(current, desired []string, add, remove func(string) (bool, error)) error {
	want := make(map[string]bool, len(desired))
	for _, t := range desired {
		want[t] = true
	}
	have := make(map[string]bool, len(current))
	for _, t := range current {
		have[t] = true
	}
	for t := range have {
		if !want[t] {
			if _, err := remove(t); err != nil {
				return err
			}
		}
	}
	for t := range want {
		if !have[t] {
			if _, err := add(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func alertProgressAdapter(progress func(scanned int, done bool)) func(scanned int, done bool) {
	if progress == nil {
		return func(int, bool) {}
	}
	return progress
}
