// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/ikusare/internal/catalog"
	"github.com/taibuivan/ikusare/internal/catalogsync"
	"github.com/taibuivan/ikusare/internal/platform/config"
	pgstore "github.com/taibuivan/ikusare/internal/platform/postgres"
	redisstore "github.com/taibuivan/ikusare/internal/platform/redis"
)

var errNoDatabase = errors.New("DATABASE_URL is not set (use --dry-run for an in-memory run)")

type commandContext struct {
	environ       func() []string
	providersFlag *string
	debugFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(environ func() []string, providersFlag *string, debugFlag *bool) *commandContext {
	return &commandContext{
		environ:       environ,
		providersFlag: providersFlag,
		debugFlag:     debugFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		vars := make(map[string]string)
		for _, pair := range c.environ() {
			if key, value, ok := strings.Cut(pair, "="); ok {
				vars[key] = value
			}
		}
		if c.providersFlag != nil && strings.TrimSpace(*c.providersFlag) != "" {
			vars["PROVIDERS_FILE"] = strings.TrimSpace(*c.providersFlag)
		}
		c.config, c.configErr = config.LoadFromMap(vars)
	})
	return c.config, c.configErr
}

// logger writes JSON logs to w, which is stderr so tables and JSON on stdout
// stay clean.
func (c *commandContext) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.debugFlag != nil && *c.debugFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// stores groups the persistence used by a command.
type stores struct {
	catalog catalog.Repository
	meta    catalogsync.MetaRepository
	reports catalogsync.ReportRepository
	close   func()
}

// openStores connects to PostgreSQL, and to Redis when configured. A dry run
// uses process-local stores and touches nothing.
func (c *commandContext) openStores(ctx context.Context, dryRun bool, logger *slog.Logger) (*stores, error) {
	if dryRun {
		return &stores{
			catalog: catalog.NewMemoryRepository(),
			meta:    catalogsync.NewMemoryMetaRepository(nil),
			reports: catalogsync.NewMemoryReportRepository(),
			close:   func() {},
		}, nil
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errNoDatabase
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	opened := &stores{
		catalog: catalog.NewPostgresRepository(pool),
		meta:    catalogsync.NewPostgresMetaRepository(pool),
		close:   pool.Close,
	}

	if cfg.RedisURL != "" {
		var rdb *goredis.Client
		rdb, err = redisstore.NewClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		opened.reports = catalogsync.NewRedisReportRepository(rdb)
		opened.close = func() {
			_ = rdb.Close()
			pool.Close()
		}
	}

	return opened, nil
}
