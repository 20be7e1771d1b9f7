package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/config"
	"github.com/hoosierprep/sessiond/internal/database"
	"github.com/hoosierprep/sessiond/internal/examapi"
	"github.com/hoosierprep/sessiond/internal/handler"
	"github.com/hoosierprep/sessiond/internal/logger"
	"github.com/hoosierprep/sessiond/internal/router"
	"github.com/hoosierprep/sessiond/internal/session"
	"github.com/hoosierprep/sessiond/internal/validator"
	"github.com/hoosierprep/sessiond/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ListenPort).
		Str("mode", cfg.GinMode).
		Str("upstream", cfg.UpstreamBaseURL).
		Msg("Starting sessiond")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	// The exam-payload cache is a convenience, not a requirement: with no
	// REDIS_URL the daemon fetches every payload from upstream.
	var cache *examapi.ExamCache
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, exam cache disabled")
		} else {
			defer rdb.Close()
			cache = examapi.NewExamCache(rdb, cfg.ExamCacheTTL, log)
		}
	}

	// ─── Initialize Upstream Client ────────────────────────────────────
	api := examapi.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, cache, log)

	// ─── Initialize Session Engine ─────────────────────────────────────
	store := session.NewStore()
	coordinator := session.NewCoordinator(store, api, log)
	submitter := session.NewSubmitter(store, api, cfg.AutoSubmitGrace, log)
	guard := session.NewGuard(store, coordinator, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(store, coordinator, submitter, guard),
		WS:      handler.NewWSHandler(store, coordinator, submitter, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(store, coordinator, cfg.AutosaveInterval, log)
	go autosaveWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	// Loopback only: the daemon serves the local rendering layer, never
	// the network.
	srv := &http.Server{
		Addr:    "127.0.0.1:" + cfg.ListenPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the autosave worker; it performs a final flush on cancel.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
