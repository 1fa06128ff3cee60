package scheduler

import "context"

// Tasks bundles the callbacks the default wiring table invokes; app wires
// up the concrete closures from store, alert, and timeseries.
type Tasks struct {
	EmitStatus           func(ctx context.Context) error
	PruneOldData         func(ctx context.Context) error
	MergeFTS             func(ctx context.Context) error
	CheckpointWAL        func(ctx context.Context) error
	OptimizeFTSAndVacuum func(ctx context.Context) error
	ProbeDecoderHealth   func(ctx context.Context) error
	RollupTimeseries     func(ctx context.Context) error
	PruneTimeseries      func(ctx context.Context) error
	RefreshRange         func(rangeName string) TaskFunc
}

// rangeCadence lists the eight canonical timeseries ranges, each refreshed on
// its own cadence aligned to its own resolution.
var rangeCadence = []struct {
	name  string
	count int
	unit  Unit
}{
	{"1hr", 1, Minutes},
	{"6hr", 1, Minutes},
	{"12hr", 5, Minutes},
	{"24hr", 5, Minutes},
	{"1wk", 1, Hours},
	{"30day", 1, Hours},
	{"6mon", 6, Hours},
	{"1yr", 1, Hours},
}

// RegisterDefaults wires the scheduler's default task table: status
// emission every 30s, pruning every minute, bounded FTS merge and WAL
// checkpoint every 5 minutes, a closed-loop FTS optimize/VACUUM every 6
// hours, a decoder health probe every minute, the timeseries rollup chain
// every minute with its own retention prune every hour, and one timeseries
// cache refresh task per canonical range.
func RegisterDefaults(s *Scheduler, t Tasks) error {
	registrations := []struct {
		name  string
		count int
		unit  Unit
		at    string
		fn    TaskFunc
	}{
		{"emit_system_status", 30, Seconds, "", t.EmitStatus},
		{"prune_old_data", 1, Minutes, "", t.PruneOldData},
		{"fts_bounded_merge", 5, Minutes, "", t.MergeFTS},
		{"wal_checkpoint", 5, Minutes, "", t.CheckpointWAL},
		{"fts_optimize_vacuum", 6, Hours, "", t.OptimizeFTSAndVacuum},
		{"decoder_health_probe", 1, Minutes, "", t.ProbeDecoderHealth},
		{"timeseries_rollup", 1, Minutes, "", t.RollupTimeseries},
		{"timeseries_prune", 1, Hours, "", t.PruneTimeseries},
	}

	for _, r := range registrations {
		if r.fn == nil {
			continue
		}
		if err := s.Register(r.name, r.count, r.unit, r.at, r.fn); err != nil {
			return err
		}
	}

	if t.RefreshRange != nil {
		for _, rc := range rangeCadence {
			name := "timeseries_refresh_" + rc.name
			if err := s.Register(name, rc.count, rc.unit, "", t.RefreshRange(rc.name)); err != nil {
				return err
			}
		}
	}

	return nil
}
