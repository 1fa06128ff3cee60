// Command acarshub is the ACARS Hub service entry point: it loads
// configuration, runs the startup sequence, serves the HTTP and websocket
// surface, and shuts down cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"acarshub/internal/app"
	"acarshub/internal/config"
	"acarshub/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.SetMinLevel(cfg.MinLogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := app.Start(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatalf("acarshub: startup failed: %v", err)
	}

	srv := &http.Server{Handler: router(a)}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(a.Listener())
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Infof("acarshub: received %s, shutting down", sig)
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("acarshub: http server stopped: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	a.Shutdown(shutdownCtx)

	logger.Infof("acarshub: shutdown complete")
}

// healthResponse is the wire shape of GET /health.
type healthResponse struct {
	Status   string `json:"status"`
	Database struct {
		Connected bool  `json:"connected"`
		Messages  int64 `json:"messages"`
		Size      int64 `json:"size"`
	} `json:"database"`
	Version string `json:"version"`
}

// router assembles the HTTP surface: the health check, the real-time
// websocket channel, the cached geocache feed, the prometheus scrape
// endpoint, and the timeseries snapshot used by the stats page. Every
// route except /health responds 503 with Retry-After while a migration is
// in progress.
func router(a *app.App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		stats := a.DB.HealthStats(req.Context())
		resp := healthResponse{Status: "ok", Version: app.Version}
		resp.Database.Connected = stats.Connected
		resp.Database.Messages = stats.MessageCount
		resp.Database.Size = stats.SizeBytes
		if !stats.Connected {
			resp.Status = "error"
		}
		w.Header().Set("Content-Type", "application/json")
		if !stats.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	r.Group(func(r chi.Router) {
		r.Use(migrationGate(a))

		r.Get("/metrics", promhttp.Handler().ServeHTTP)

		r.Get("/main", a.Events.ServeHTTP)

		r.Get("/data/heywhatsthat.geojson", a.Geo.Handler())

		r.Get("/data/stats.json", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(a.LastHourCounts(req.Context()))
		})
	})

	return r
}

// migrationGate rejects every gated route with 503 Retry-After: 5 while
// the startup migration flag is still held, matching the same gate the
// websocket connect sequence applies to new sockets.
func migrationGate(a *app.App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if a.Events.MigrationRunning() {
				w.Header().Set("Retry-After", "5")
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
