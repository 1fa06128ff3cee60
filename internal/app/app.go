// Package app wires every other package into the running service: the
// hard-ordered startup sequence, the queue-draining ingest pipeline, and
// the bounded shutdown sequence.
package app

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"acarshub/internal/alert"
	"acarshub/internal/config"
	"acarshub/internal/enrich"
	"acarshub/internal/events"
	"acarshub/internal/format"
	"acarshub/internal/geocache"
	"acarshub/internal/listen"
	"acarshub/internal/logger"
	"acarshub/internal/queue"
	"acarshub/internal/scheduler"
	"acarshub/internal/store"
	"acarshub/internal/timeseries"
)

// Version is the service version reported on the health endpoint and the
// real-time connect sequence.
const Version = "1.0.0"

// App owns every long-lived component for one running instance.
type App struct {
	cfg config.Config

	listener net.Listener
	Events   *events.Server
	DB       *store.DB
	Queue    *queue.Queue
	Listen   *listen.Manager
	Enricher *enrich.Enricher
	Alerts   *alert.Cache
	TS       *timeseries.Cache
	TSWriter *timeseries.Writer
	Geo      *geocache.Cache
	Sched    *scheduler.Scheduler

	combiner  *format.Combiner
	startedAt time.Time

	counters   counterAccumulator
	cancelPump context.CancelFunc
	pumpDone   chan struct{}
}

// Start runs the hard-ordered startup sequence described for the service's
// boot phase:
//
//  1. open the HTTP listener and attach the event server with
//     migration_running held true before any connection is accepted;
//  2. load the reference tables and open the database in parallel;
//  3. import any legacy RRD archives found under cfg.RRDPath;
//  4. build the alert cache, timeseries cache, and geocache;
//  5. start the scheduler and the timeseries writer;
//  6. clear the migration flag, draining every socket parked on it.
func Start(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{cfg: cfg, Geo: geocache.New(), combiner: format.NewCombiner(), startedAt: time.Now()}

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, err
	}
	a.listener = ln

	a.Queue = queue.New(4096)
	a.Events = events.New(a.connectSequence, func() bool { return cfg.AllowRemote })

	var (
		rt    *config.ReferenceTables
		rtErr error
		db    *store.DB
		dbErr error
		wg    sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		rt, rtErr = config.LoadReferenceTables(
			strEnvDefault("AIRLINES_FILE", "/usr/share/acarshub/airlines.json"),
			strEnvDefault("GROUND_STATIONS_FILE", "/usr/share/acarshub/ground-stations.json"),
			strEnvDefault("LABELS_FILE", "/usr/share/acarshub/labels.json"),
		)
	}()
	go func() {
		defer wg.Done()
		db, dbErr = store.Open(ctx, cfg.DBPath)
	}()
	wg.Wait()
	if rtErr != nil {
		ln.Close()
		return nil, rtErr
	}
	if dbErr != nil {
		ln.Close()
		return nil, dbErr
	}
	a.DB = db

	a.Enricher = enrich.New(rt, cfg.IATAOverrides, 512)

	if cfg.RRDPath != "" {
		importLegacyArchives(ctx, cfg.RRDPath, a.DB)
	}

	alertCache, err := alert.Load(ctx, a.DB)
	if err != nil {
		a.shutdownPartial()
		return nil, err
	}
	a.Alerts = alertCache

	a.TS = timeseries.NewCache(a.DB, func(rangeName string, points []timeseries.Point) {
		a.Events.Broadcast("rrd_timeseries_data", map[string]any{"time_period": rangeName, "data": points})
	})
	a.TSWriter = timeseries.NewWriter(a.DB, a.counters.snapshotAndReset)

	sched, err := scheduler.New()
	if err != nil {
		a.shutdownPartial()
		return nil, err
	}
	a.Sched = sched
	sched.OnEvent(func(ev scheduler.Event) {
		if ev.Type == scheduler.EventError {
			logger.Warnf("app: scheduled task %s failed: %v", ev.Task, ev.Err)
		}
	})
	if err := scheduler.RegisterDefaults(sched, a.taskTable()); err != nil {
		a.shutdownPartial()
		return nil, err
	}

	a.Listen = listen.Start(cfg, a.Queue)

	pumpCtx, cancel := context.WithCancel(context.Background())
	a.cancelPump = cancel
	a.pumpDone = make(chan struct{})
	go a.pump(pumpCtx)

	go a.TSWriter.Run(pumpCtx)
	sched.Start()

	events.Register(a.Events, a.eventHandlerDeps())

	a.Events.SetMigrationRunning(false)

	logger.Infof("app: started, listening on %s", ln.Addr())
	return a, nil
}

// Listener exposes the already-bound HTTP listener for the caller's
// http.Serve loop.
func (a *App) Listener() net.Listener { return a.listener }

// Shutdown stops every component in this order: ingest pump and
// timeseries writer (they share one context), scheduler, decoder
// listeners, event layer, HTTP listener, database.
func (a *App) Shutdown(ctx context.Context) {
	if a.cancelPump != nil {
		a.cancelPump()
		<-a.pumpDone
	}
	if a.Sched != nil {
		if err := a.Sched.Shutdown(); err != nil {
			logger.Warnf("app: scheduler shutdown: %v", err)
		}
	}
	if a.Listen != nil {
		a.Listen.Stop()
	}
	if a.Events != nil {
		a.Events.Shutdown()
	}
	if a.listener != nil {
		_ = a.listener.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.Warnf("app: database close: %v", err)
		}
	}
}

// shutdownPartial tears down whatever was already brought up when Start
// fails midway, so a returned error never leaks a bound port or open DB.
func (a *App) shutdownPartial() {
	if a.listener != nil {
		_ = a.listener.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func importLegacyArchives(ctx context.Context, dir string, db *store.DB) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("app: reading RRD directory %s: %v", dir, err)
		}
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rrd") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := timeseries.ImportLegacyRRD(ctx, path, db); err != nil {
			logger.Warnf("app: importing %s: %v", path, err)
		}
	}
}

func strEnvDefault(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

