// jobtrackd is the JobTrack daemon.
//
// Aggregates job listings from every configured source on a schedule,
// stores new finds in the listing feed, and serves the HTTP API used by
// clients:
//   - POST /api/search: one-off aggregated search
//   - /api/profiles: saved searches the scheduler runs
//   - /api/applications: application tracking and timeline
//
// Publishes EVENT_APPLICATION_TRACKED, EVENT_APPLICATION_STATUS and
// EVENT_NEW_LISTINGS to Redis for downstream consumers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/Irehund/jobtrack/internal/config"
	"github.com/Irehund/jobtrack/internal/db"
	"github.com/Irehund/jobtrack/internal/scheduler"
	"github.com/Irehund/jobtrack/internal/server"
	"github.com/Irehund/jobtrack/internal/settings"
	"github.com/Irehund/jobtrack/internal/source"
	"github.com/Irehund/jobtrack/internal/store"
	"github.com/Irehund/jobtrack/internal/tracker"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.DateTime,
	})))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[jobtrackd] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[jobtrackd] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[jobtrackd] PostgreSQL: %v", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("[jobtrackd] Schema: %v", err)
	}
	log.Println("[jobtrackd] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[jobtrackd] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[jobtrackd] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[jobtrackd] Redis connected ✓")

	// ── Services ─────────────────────────────────────────────────────────────
	registry := source.NewRegistry(cfg.Credentials(), cfg.Country)
	profiles := settings.NewStore(pool)
	feed := store.NewFeed(pool)
	trk := tracker.NewService(pool, rdb)

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(profiles, feed, rdb, registry, cfg.SearchIntervalHours)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[jobtrackd] Scheduler: %v", err)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := server.NewHandler(registry, trk, profiles, feed)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // /api/search waits on live sources
	}

	go func() {
		log.Printf("[jobtrackd] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[jobtrackd] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[jobtrackd] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[jobtrackd] Shutdown error: %v", err)
	}
	log.Println("[jobtrackd] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "jobtrackd",
		"version": version,
	})
}
