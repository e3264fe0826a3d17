// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, then resolves the static provider table (defaults, optionally replaced
by a YAML file) that drives catalogue synchronization.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to the orchestrator and adapters via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the catalogue sync service.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis). Run reports are disabled when empty.
	RedisURL string `env:"REDIS_URL"`

	// JWTPubKeyPath enables operator-only sync triggers when set.
	JWTPubKeyPath string `env:"JWT_PUBLIC_KEY_PATH"`

	// JWTPrivKeyPath is only read by the CLI when minting operator tokens.
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`

	// CORSOriginSuffix is the allowed browser origin outside development.
	CORSOriginSuffix string `env:"CORS_ORIGIN_SUFFIX" envDefault:"ikusare.eus"`

	// Structured metadata source (TMDB)
	TMDB TMDBConfig `envPrefix:"TMDB_"`

	// Languages swept for localized title/synopsis pairs.
	Languages []string `env:"CATALOG_LANGUAGES" envSeparator:"," envDefault:"eu,es,en,ca"`

	// Scraped sources
	MakusiBaseURL   string `env:"MAKUSI_BASE_URL"   envDefault:"https://makusi.eus"`
	PrimeranBaseURL string `env:"PRIMERAN_BASE_URL" envDefault:"https://primeran.eus"`

	// ProvidersFile optionally replaces the built-in provider table.
	ProvidersFile string `env:"PROVIDERS_FILE"`

	Sync  SyncConfig  `envPrefix:"SYNC_"`
	Fetch FetchConfig `envPrefix:"FETCH_"`

	// providers is resolved after parsing, never read from a single env var.
	providers []Provider
}

// TMDBConfig groups the structured-metadata API settings.
type TMDBConfig struct {
	APIKey           string `env:"API_KEY"`
	BaseURL          string `env:"BASE_URL"           envDefault:"https://api.themoviedb.org/3"`
	ImageBaseURL     string `env:"IMAGE_BASE_URL"     envDefault:"https://image.tmdb.org/t/p/w500"`
	WatchRegion      string `env:"WATCH_REGION"       envDefault:"ES"`
	DiscoverLanguage string `env:"DISCOVER_LANGUAGE"  envDefault:"es-ES"`
}

// SyncConfig controls the trigger surface.
type SyncConfig struct {
	// Interval is the cadence of the recurring "all providers" trigger.
	Interval time.Duration `env:"INTERVAL"    envDefault:"24h"`
	// RunTimeout is the hard wall-clock budget of one trigger invocation.
	RunTimeout time.Duration `env:"RUN_TIMEOUT" envDefault:"5m"`
}

// FetchConfig controls the resilient fetcher and the courtesy throttles.
type FetchConfig struct {
	Timeout        time.Duration `env:"TIMEOUT"          envDefault:"15s"`
	MaxRetries     int           `env:"MAX_RETRIES"      envDefault:"5"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	PageDelay      time.Duration `env:"PAGE_DELAY"       envDefault:"500ms"`
	ItemDelay      time.Duration `env:"ITEM_DELAY"       envDefault:"100ms"`
	LanguageDelay  time.Duration `env:"LANGUAGE_DELAY"   envDefault:"200ms"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and resolves the
// provider table.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return resolve(cfg)
}

// LoadFromMap parses configuration from an explicit variable set instead of the
// process environment.
func LoadFromMap(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	return resolve(cfg)
}

func resolve(cfg *Config) (*Config, error) {
	if cfg.ProvidersFile != "" {
		providers, err := LoadProvidersFile(cfg.ProvidersFile)
		if err != nil {
			return nil, err
		}
		cfg.providers = providers
	} else {
		cfg.providers = DefaultProviders(cfg)
	}

	if err := ValidateProviders(cfg.providers); err != nil {
		return nil, fmt.Errorf("config: invalid provider table: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOriginSuffix is the browser origin suffix accepted outside development.
func (c *Config) AllowedOriginSuffix() string {
	return c.CORSOriginSuffix
}

// Providers returns the resolved provider table in configuration order.
func (c *Config) Providers() []Provider {
	return c.providers
}

// Provider returns the provider row with the given name.
func (c *Config) Provider(name string) (Provider, bool) {
	for _, p := range c.providers {
		if p.Name == name {
			return p, true
		}
	}
	return Provider{}, false
}
