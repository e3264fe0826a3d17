// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/ikusare/internal/platform/apperr"
)

// # Service Layer

// Engine is the single writer of catalogue records.
//
// Upserts are read-modify-write without a transaction. Concurrent writers on the
// same key are last-writer-wins, so callers serialize sync runs.
type Engine struct {
	repo   Repository
	clock  func() time.Time
	logger *slog.Logger
}

// EngineOption customises an [Engine].
type EngineOption func(*Engine)

// WithClock overrides the time source used for UpdatedAt.
func WithClock(clock func() time.Time) EngineOption {
	return func(engine *Engine) { engine.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(engine *Engine) { engine.logger = logger }
}

// NewEngine constructs an [Engine] over repo.
func NewEngine(repo Repository, opts ...EngineOption) *Engine {
	engine := &Engine{
		repo:   repo,
		clock:  func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

/*
Upsert merges one normalized sighting into the store.

Description: Reads the stored record (if any), applies [Merge] and writes the
full result back. Provider flags are only ever turned on; the manual Basque
flag is carried over from the stored record untouched.

Parameters:
  - context: context.Context
  - incoming: Incoming (normalized item; Key and Provider are required)

Returns:
  - error: Validation or repository level errors
*/
func (engine *Engine) Upsert(context context.Context, incoming Incoming) error {
	if incoming.Key == "" || incoming.Provider == "" {
		return apperr.ValidationError("incoming item needs a key and a provider")
	}

	existing, err := engine.repo.Get(context, incoming.Key)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", incoming.Key, err)
	}

	merged := Merge(existing, incoming, engine.clock())
	if err := engine.repo.Put(context, merged); err != nil {
		return fmt.Errorf("catalog: write %s: %w", incoming.Key, err)
	}

	engine.logger.DebugContext(context, "catalog_record_upserted",
		slog.String("key", incoming.Key),
		slog.String("provider", incoming.Provider),
		slog.Bool("created", existing == nil),
	)
	return nil
}

// # Catalogue Lookups

// List returns a page of records, optionally narrowed to one provider.
func (engine *Engine) List(context context.Context, filter Filter, limit, offset int) ([]*Record, int, error) {
	return engine.repo.List(context, filter, limit, offset)
}

// Get returns one record by key, or a NotFound error.
func (engine *Engine) Get(context context.Context, key string) (*Record, error) {
	record, err := engine.repo.Get(context, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperr.NotFound("Catalog record")
	}
	return record, nil
}
