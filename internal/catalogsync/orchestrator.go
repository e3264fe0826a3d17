// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalogsync drives provider runs against the catalogue.

# State Machine

Each provider moves through PENDING -> SKIPPED, or PENDING -> RUNNING ->
COMPLETED | FAILED, within one run:

  - PENDING consults the rate gate.
  - SKIPPED is terminal; the reason is logged.
  - RUNNING enumerates, normalizes and upserts item by item. An item that fails
    to normalize is logged and skipped.
  - COMPLETED records the provider's last-run date.
  - FAILED (adapter error, store failure, cancellation) leaves the last-run date
    untouched, so the next run retries the provider from scratch.

Providers run sequentially. Runs inside one process are serialized: a run
waits for the one in flight only as long as its own context allows. Separate
processes are not coordinated and rely on the OR-merge of availability flags.
*/
package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/taibuivan/ikusare/internal/catalog"
	"github.com/taibuivan/ikusare/internal/platform/apperr"
	"github.com/taibuivan/ikusare/internal/platform/config"
	"github.com/taibuivan/ikusare/internal/provider"
	"github.com/taibuivan/ikusare/pkg/uuidv7"
)

// # Errors

var (
	// ErrUnknownProvider is returned for a provider name missing from the table.
	ErrUnknownProvider = errors.New("catalogsync: unknown provider")

	// ErrRunMetaUnavailable is returned when last-run dates cannot be read.
	ErrRunMetaUnavailable = errors.New("catalogsync: run metadata unavailable")

	// ErrRunInProgress is returned when the caller's context ends while another
	// run still holds the process-wide run slot.
	ErrRunInProgress = errors.New("catalogsync: another run is in progress")
)

// Trigger names recorded on reports.
const (
	TriggerSchedule = "schedule"
	TriggerHTTP     = "http"
	TriggerCLI      = "cli"
)

// # Collaborators

// Upserter merges one normalized item into the catalogue.
type Upserter interface {
	Upsert(context context.Context, incoming catalog.Incoming) error
}

// Adapters resolves a provider name to its adapter.
type Adapters interface {
	Get(name string) (provider.Adapter, bool)
}

// # Orchestrator

// Orchestrator runs providers through the gate, their adapter and the engine.
type Orchestrator struct {
	providers []config.Provider
	adapters  Adapters
	engine    Upserter
	meta      MetaRepository
	reports   ReportRepository

	clock  func() time.Time
	logger *slog.Logger

	// running is a one-slot semaphore serializing runs within the process.
	running *semaphore.Weighted
}

// Option customises an [Orchestrator].
type Option func(*Orchestrator)

// WithClock overrides the time source used for gating and last-run dates.
func WithClock(clock func() time.Time) Option {
	return func(orchestrator *Orchestrator) { orchestrator.clock = clock }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(orchestrator *Orchestrator) { orchestrator.logger = logger }
}

// WithReports keeps every run report in repository.
func WithReports(repository ReportRepository) Option {
	return func(orchestrator *Orchestrator) { orchestrator.reports = repository }
}

// NewOrchestrator constructs an [Orchestrator] over the provider table.
func NewOrchestrator(providers []config.Provider, adapters Adapters, engine Upserter, meta MetaRepository, opts ...Option) *Orchestrator {
	orchestrator := &Orchestrator{
		providers: providers,
		adapters:  adapters,
		engine:    engine,
		meta:      meta,
		clock:     time.Now,
		logger:    slog.Default(),
		running:   semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(orchestrator)
	}
	return orchestrator
}

/*
RunAll runs every configured provider in table order.

Description: Each provider is gated on its minimum interval. A failing provider
does not stop its siblings. The returned report lists one result per provider.

Returns:
  - *Report: Per-provider outcome
  - error: ErrRunInProgress, or ErrRunMetaUnavailable when the gate has nothing to read from
*/
func (orchestrator *Orchestrator) RunAll(ctx context.Context, trigger string) (*Report, error) {
	if err := orchestrator.acquire(ctx); err != nil {
		return nil, err
	}
	defer orchestrator.running.Release(1)

	meta, err := orchestrator.meta.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRunMetaUnavailable, err)
	}

	report := orchestrator.newReport(trigger)
	today := orchestrator.clock().UTC()

	for _, row := range orchestrator.providers {
		result := orchestrator.runProvider(ctx, row, meta, today, false)
		report.Results = append(report.Results, result)
	}

	orchestrator.finish(ctx, report)
	return report, nil
}

/*
RunProvider runs a single named provider.

Description: With force the rate gate is bypassed (on-demand triggers). The
last-run date is still recorded when the run completes.

Returns:
  - *Report: One provider result
  - error: ErrUnknownProvider, ErrRunInProgress, or ErrRunMetaUnavailable when gating
*/
func (orchestrator *Orchestrator) RunProvider(ctx context.Context, name string, force bool, trigger string) (*Report, error) {
	row, ok := orchestrator.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	if err := orchestrator.acquire(ctx); err != nil {
		return nil, err
	}
	defer orchestrator.running.Release(1)

	var meta RunMeta
	if !force {
		loaded, err := orchestrator.meta.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRunMetaUnavailable, err)
		}
		meta = loaded
	}

	report := orchestrator.newReport(trigger)
	report.Results = append(report.Results, orchestrator.runProvider(ctx, row, meta, orchestrator.clock().UTC(), force))

	orchestrator.finish(ctx, report)
	return report, nil
}

// acquire takes the run slot, waiting for a run in flight until ctx ends. A free
// slot is taken even when ctx is already done, so the run records its providers
// as FAILED instead of reporting contention.
func (orchestrator *Orchestrator) acquire(ctx context.Context) error {
	if orchestrator.running.TryAcquire(1) {
		return nil
	}
	if err := orchestrator.running.Acquire(ctx, 1); err != nil {
		orchestrator.logger.Warn("sync_run_busy", slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrRunInProgress, err)
	}
	return nil
}

// runProvider walks one provider through its state machine.
func (orchestrator *Orchestrator) runProvider(ctx context.Context, row config.Provider, meta RunMeta, today time.Time, force bool) ProviderResult {
	logger := orchestrator.logger.With(slog.String("provider", row.Name))
	result := ProviderResult{Provider: row.Name, State: StatePending, StartedAt: orchestrator.clock()}

	// PENDING
	if !force && !ShouldRun(row.Name, meta, row.MinIntervalDays, today) {
		result.State = StateSkipped
		result.Reason = fmt.Sprintf("interval of %d days not elapsed since %s", row.MinIntervalDays, meta[row.Name])
		result.FinishedAt = orchestrator.clock()
		logger.Info("provider_skipped",
			slog.String("last_run", meta[row.Name]),
			slog.Int("min_interval_days", row.MinIntervalDays),
		)
		return result
	}

	// RUNNING
	result.State = StateRunning
	logger.Info("provider_started", slog.Bool("forced", force), slog.String("kind", string(row.Kind)))

	if err := orchestrator.pipeline(ctx, row, &result, logger); err != nil {
		return orchestrator.fail(result, err, logger)
	}

	// A run cut off by its budget never records a last-run date.
	if err := ctx.Err(); err != nil {
		return orchestrator.fail(result, err, logger)
	}
	if err := orchestrator.meta.SaveLastRun(ctx, row.Name, Today(today)); err != nil {
		return orchestrator.fail(result, fmt.Errorf("record last run: %w", err), logger)
	}

	// COMPLETED
	result.State = StateCompleted
	result.FinishedAt = orchestrator.clock()
	logger.Info("provider_completed",
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
	)
	return result
}

// pipeline enumerates, normalizes and upserts one provider's items.
func (orchestrator *Orchestrator) pipeline(ctx context.Context, row config.Provider, result *ProviderResult, logger *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	adapter, ok := orchestrator.adapters.Get(row.Name)
	if !ok {
		return fmt.Errorf("%w: no adapter for %q", ErrUnknownProvider, row.Name)
	}

	items, err := adapter.ListItems(ctx)
	if err != nil {
		return err
	}
	logger.Info("provider_items_listed", slog.Int("items", len(items)))

	for _, item := range items {
		incoming, err := adapter.Normalize(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.Skipped++
			logger.Warn("item_skipped", slog.String("item", item.Ref()), slog.Any("error", err))
			continue
		}

		if err := orchestrator.engine.Upsert(ctx, incoming); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if appError := apperr.As(err); appError != nil && appError.HTTPStatus < 500 {
				result.Skipped++
				logger.Warn("item_skipped", slog.String("item", item.Ref()), slog.Any("error", err))
				continue
			}
			return fmt.Errorf("upsert %s: %w", incoming.Key, err)
		}
		result.Imported++
	}

	return nil
}

func (orchestrator *Orchestrator) fail(result ProviderResult, err error, logger *slog.Logger) ProviderResult {
	result.State = StateFailed
	result.Err = err
	result.Reason = err.Error()
	result.FinishedAt = orchestrator.clock()
	logger.Error("provider_failed",
		slog.Int("imported", result.Imported),
		slog.Any("error", err),
	)
	return result
}

func (orchestrator *Orchestrator) newReport(trigger string) *Report {
	return &Report{
		RunID:     uuidv7.New(),
		Trigger:   trigger,
		StartedAt: orchestrator.clock(),
	}
}

// finish stamps the report and stores it. A report store failure is logged,
// never surfaced.
func (orchestrator *Orchestrator) finish(ctx context.Context, report *Report) {
	report.FinishedAt = orchestrator.clock()

	orchestrator.logger.Info("sync_run_finished",
		slog.String("run_id", report.RunID),
		slog.String("trigger", report.Trigger),
		slog.Int("completed", report.Count(StateCompleted)),
		slog.Int("skipped", report.Count(StateSkipped)),
		slog.Int("failed", report.Count(StateFailed)),
		slog.Int("imported", report.Imported()),
	)

	if orchestrator.reports == nil {
		return
	}
	// The run budget may already be spent.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := orchestrator.reports.Save(saveCtx, report); err != nil {
		orchestrator.logger.Warn("sync_report_not_saved", slog.String("run_id", report.RunID), slog.Any("error", err))
	}
}

// # Status

// ProviderStatus describes one provider's schedule.
type ProviderStatus struct {
	Provider        string `json:"provider"`
	Kind            string `json:"kind"`
	MinIntervalDays int    `json:"min_interval_days"`
	LastRun         string `json:"last_run,omitempty"`
	Due             bool   `json:"due"`
}

// Status reports every provider's last run and whether it is due today.
func (orchestrator *Orchestrator) Status(ctx context.Context) ([]ProviderStatus, error) {
	meta, err := orchestrator.meta.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRunMetaUnavailable, err)
	}

	today := orchestrator.clock().UTC()
	statuses := make([]ProviderStatus, 0, len(orchestrator.providers))
	for _, row := range orchestrator.providers {
		statuses = append(statuses, ProviderStatus{
			Provider:        row.Name,
			Kind:            string(row.Kind),
			MinIntervalDays: row.MinIntervalDays,
			LastRun:         meta[row.Name],
			Due:             ShouldRun(row.Name, meta, row.MinIntervalDays, today),
		})
	}
	return statuses, nil
}

// LatestReport returns the most recent stored report, if a report store is set.
func (orchestrator *Orchestrator) LatestReport(ctx context.Context) (*Report, error) {
	if orchestrator.reports == nil {
		return nil, nil
	}
	return orchestrator.reports.Latest(ctx)
}

func (orchestrator *Orchestrator) lookup(name string) (config.Provider, bool) {
	for _, row := range orchestrator.providers {
		if row.Name == name {
			return row, true
		}
	}
	return config.Provider{}, false
}
