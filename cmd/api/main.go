// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the catalogue sync service.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration and the provider table.
//  3. Connect to PostgreSQL (pgxpool) and run migrations.
//  4. Connect to Redis when configured (run reports).
//  5. Wire fetcher, adapters, merge engine and orchestrator.
//  6. Start the daily scheduler and the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/ikusare/internal/api"
	"github.com/taibuivan/ikusare/internal/catalog"
	"github.com/taibuivan/ikusare/internal/catalogsync"
	"github.com/taibuivan/ikusare/internal/fetch"
	"github.com/taibuivan/ikusare/internal/platform/config"
	"github.com/taibuivan/ikusare/internal/platform/constants"
	"github.com/taibuivan/ikusare/internal/platform/middleware"
	"github.com/taibuivan/ikusare/internal/platform/migration"
	pgstore "github.com/taibuivan/ikusare/internal/platform/postgres"
	redisstore "github.com/taibuivan/ikusare/internal/platform/redis"
	"github.com/taibuivan/ikusare/internal/platform/sec"
	"github.com/taibuivan/ikusare/internal/provider"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Int("providers", len(cfg.Providers())),
	)
	if cfg.TMDB.APIKey == "" {
		log.Warn("tmdb_api_key_missing")
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 4. Redis (optional) ───────────────────────────────────────────────
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_error", slog.Any("error", cerr))
			}
		}()
	}

	// ── 5. Sync Wiring ────────────────────────────────────────────────────
	fetcher := fetch.NewClient(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithBackoff(cfg.Fetch.RetryBaseDelay),
		fetch.WithLogger(log),
	)

	registry, err := provider.NewRegistry(cfg, fetcher, log)
	must(log, err, "build provider adapters")

	engine := catalog.NewEngine(catalog.NewPostgresRepository(pool), catalog.WithLogger(log))

	options := []catalogsync.Option{catalogsync.WithLogger(log)}
	if rdb != nil {
		options = append(options, catalogsync.WithReports(catalogsync.NewRedisReportRepository(rdb)))
	}
	orchestrator := catalogsync.NewOrchestrator(cfg.Providers(), registry, engine,
		catalogsync.NewPostgresMetaRepository(pool), options...)

	// ── 6. Operator Tokens ────────────────────────────────────────────────
	var verifier middleware.TokenVerifier
	if cfg.JWTPubKeyPath != "" {
		tokens, err := sec.LoadTokenService("", cfg.JWTPubKeyPath, constants.AuthIssuer)
		must(log, err, "load operator token key")
		verifier = tokens
	}

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	health := api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
	}
	if rdb != nil {
		health.CheckCache = func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }
	}
	liveness, readiness := api.NewHealthHandlers(health, log)

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	server := api.NewServer(appCtx, cfg, log, verifier, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Catalog:   catalog.NewHandler(engine),
		Sync:      catalogsync.NewHandler(orchestrator, cfg.Sync.RunTimeout),
	})

	// ── 8. Scheduler ──────────────────────────────────────────────────────
	scheduler := catalogsync.NewScheduler(orchestrator, cfg.Sync.Interval, cfg.Sync.RunTimeout, log)
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Start(appCtx)
	}()

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Stop scheduling; a run in flight is cancelled and records nothing.
	appCancel()

	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
	}
	<-schedulerDone

	log.Info("server_stopped_cleanly")
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
