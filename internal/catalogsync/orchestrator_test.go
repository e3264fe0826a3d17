// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalogsync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ikusare/internal/catalog"
	"github.com/taibuivan/ikusare/internal/catalogsync"
	"github.com/taibuivan/ikusare/internal/platform/apperr"
	"github.com/taibuivan/ikusare/internal/platform/config"
	"github.com/taibuivan/ikusare/internal/provider"
)

// # Fakes

type fakeItem struct {
	key string
	bad bool
}

func (item fakeItem) Variant() provider.Variant { return provider.VariantStructured }
func (item fakeItem) Ref() string               { return item.key }

type fakeAdapter struct {
	name    string
	items   []fakeItem
	listErr error
	listed  int
}

func (adapter *fakeAdapter) Name() string { return adapter.name }

func (adapter *fakeAdapter) ListItems(ctx context.Context) ([]provider.RawItem, error) {
	adapter.listed++
	if adapter.listErr != nil {
		return nil, adapter.listErr
	}
	items := make([]provider.RawItem, 0, len(adapter.items))
	for _, item := range adapter.items {
		items = append(items, item)
	}
	return items, ctx.Err()
}

func (adapter *fakeAdapter) Normalize(_ context.Context, raw provider.RawItem) (catalog.Incoming, error) {
	item := raw.(fakeItem)
	if item.bad {
		return catalog.Incoming{}, provider.ErrNoIdentity
	}
	return catalog.Incoming{Key: item.key, Provider: adapter.name, Title: "Title " + item.key}, nil
}

// blockingAdapter holds its run until release is closed.
type blockingAdapter struct {
	name    string
	started chan struct{}
	release chan struct{}
}

func newBlockingAdapter(name string) *blockingAdapter {
	return &blockingAdapter{name: name, started: make(chan struct{}), release: make(chan struct{})}
}

func (adapter *blockingAdapter) Name() string { return adapter.name }

func (adapter *blockingAdapter) ListItems(ctx context.Context) ([]provider.RawItem, error) {
	close(adapter.started)
	select {
	case <-adapter.release:
		return []provider.RawItem{fakeItem{key: "1"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (adapter *blockingAdapter) Normalize(_ context.Context, raw provider.RawItem) (catalog.Incoming, error) {
	return catalog.Incoming{Key: raw.Ref(), Provider: adapter.name, Title: "Title " + raw.Ref()}, nil
}

// holdRunSlot starts a run that blocks inside adapter and returns a channel
// delivering its outcome once adapter is released.
func holdRunSlot(t *testing.T, f *fixture, adapter *blockingAdapter) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := f.orchestrator.RunAll(context.Background(), catalogsync.TriggerSchedule)
		done <- err
	}()
	select {
	case <-adapter.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never started")
	}
	return done
}

type failingMeta struct{}

func (failingMeta) Load(context.Context) (catalogsync.RunMeta, error) {
	return nil, errors.New("store offline")
}

func (failingMeta) SaveLastRun(context.Context, string, string) error {
	return errors.New("store offline")
}

type failingUpserter struct{}

func (failingUpserter) Upsert(context.Context, catalog.Incoming) error {
	return apperr.Internal(errors.New("store offline"))
}

// # Fixture

type fixture struct {
	now          time.Time
	repo         *catalog.MemoryRepository
	meta         *catalogsync.MemoryMetaRepository
	reports      *catalogsync.MemoryReportRepository
	registry     *provider.Registry
	orchestrator *catalogsync.Orchestrator
}

func newFixture(rows []config.Provider, adapters ...provider.Adapter) *fixture {
	f := &fixture{
		now:      date("2026-03-01"),
		repo:     catalog.NewMemoryRepository(),
		meta:     catalogsync.NewMemoryMetaRepository(nil),
		reports:  catalogsync.NewMemoryReportRepository(),
		registry: &provider.Registry{},
	}
	for _, adapter := range adapters {
		f.registry.Add(adapter)
	}

	clock := func() time.Time { return f.now }
	engine := catalog.NewEngine(f.repo, catalog.WithClock(clock))
	f.orchestrator = catalogsync.NewOrchestrator(rows, f.registry, engine, f.meta,
		catalogsync.WithClock(clock),
		catalogsync.WithReports(f.reports),
	)
	return f
}

func row(name string, days int) config.Provider {
	return config.Provider{Name: name, Kind: config.KindStructured, MinIntervalDays: days, PageCap: 1}
}

func resultFor(t *testing.T, report *catalogsync.Report, name string) catalogsync.ProviderResult {
	t.Helper()
	for _, result := range report.Results {
		if result.Provider == name {
			return result
		}
	}
	t.Fatalf("no result for %s", name)
	return catalogsync.ProviderResult{}
}

// # Tests

/*
TestRunAll_IntervalGate runs a 3-day provider, re-runs it the next day (skipped)
and again three days after the first run (runs).
*/
func TestRunAll_IntervalGate(t *testing.T) {
	adapter := &fakeAdapter{name: "netflix", items: []fakeItem{{key: "42"}}}
	f := newFixture([]config.Provider{row("netflix", 3)}, adapter)
	ctx := context.Background()

	report, err := f.orchestrator.RunAll(ctx, catalogsync.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, catalogsync.StateCompleted, resultFor(t, report, "netflix").State)
	meta, _ := f.meta.Load(ctx)
	assert.Equal(t, "2026-03-01", meta["netflix"])

	f.now = date("2026-03-02")
	report, err = f.orchestrator.RunAll(ctx, catalogsync.TriggerSchedule)
	require.NoError(t, err)
	skipped := resultFor(t, report, "netflix")
	assert.Equal(t, catalogsync.StateSkipped, skipped.State)
	assert.NotEmpty(t, skipped.Reason)
	assert.Equal(t, 1, adapter.listed)
	assert.True(t, report.OK())

	f.now = date("2026-03-04")
	report, err = f.orchestrator.RunAll(ctx, catalogsync.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, catalogsync.StateCompleted, resultFor(t, report, "netflix").State)
	assert.Equal(t, 2, adapter.listed)
	meta, _ = f.meta.Load(ctx)
	assert.Equal(t, "2026-03-04", meta["netflix"])
}

/*
TestRunAll_FailureIsolated verifies that a failing provider keeps its stale
run date while its siblings complete.
*/
func TestRunAll_FailureIsolated(t *testing.T) {
	broken := &fakeAdapter{name: "max", listErr: errors.New("adapter exploded")}
	healthy := &fakeAdapter{name: "prime", items: []fakeItem{{key: "1"}, {key: "2"}}}
	f := newFixture([]config.Provider{row("max", 3), row("prime", 3)}, broken, healthy)
	ctx := context.Background()

	report, err := f.orchestrator.RunAll(ctx, catalogsync.TriggerHTTP)
	require.NoError(t, err)

	assert.False(t, report.OK())
	failed := resultFor(t, report, "max")
	assert.Equal(t, catalogsync.StateFailed, failed.State)
	assert.EqualError(t, failed.Err, "adapter exploded")
	assert.Equal(t, catalogsync.StateCompleted, resultFor(t, report, "prime").State)
	assert.Equal(t, 2, report.Imported())

	meta, _ := f.meta.Load(ctx)
	assert.NotContains(t, meta, "max")
	assert.Equal(t, "2026-03-01", meta["prime"])

	latest, err := f.reports.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, latest.RunID)
}

/*
TestRunAll_SkipsBadItems verifies that a per-item failure does not abort the batch.
*/
func TestRunAll_SkipsBadItems(t *testing.T) {
	adapter := &fakeAdapter{name: "netflix", items: []fakeItem{{key: "1"}, {key: "x", bad: true}, {key: "3"}}}
	f := newFixture([]config.Provider{row("netflix", 3)}, adapter)

	report, err := f.orchestrator.RunAll(context.Background(), catalogsync.TriggerCLI)
	require.NoError(t, err)

	result := resultFor(t, report, "netflix")
	assert.Equal(t, catalogsync.StateCompleted, result.State)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 2, f.repo.Len())
}

/*
TestRunAll_StoreFailureFailsProvider verifies that an unreachable store aborts
the provider without recording its run.
*/
func TestRunAll_StoreFailureFailsProvider(t *testing.T) {
	meta := catalogsync.NewMemoryMetaRepository(nil)
	registry := &provider.Registry{}
	registry.Add(&fakeAdapter{name: "netflix", items: []fakeItem{{key: "1"}}})
	orchestrator := catalogsync.NewOrchestrator([]config.Provider{row("netflix", 3)}, registry, failingUpserter{}, meta)

	report, err := orchestrator.RunAll(context.Background(), catalogsync.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, catalogsync.StateFailed, resultFor(t, report, "netflix").State)

	loaded, _ := meta.Load(context.Background())
	assert.Empty(t, loaded)
}

/*
TestRunAll_CancelledRunRecordsNothing verifies that a run cut off by its
budget leaves the provider due.
*/
func TestRunAll_CancelledRunRecordsNothing(t *testing.T) {
	adapter := &fakeAdapter{name: "netflix", items: []fakeItem{{key: "1"}}}
	f := newFixture([]config.Provider{row("netflix", 3)}, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.orchestrator.RunAll(ctx, catalogsync.TriggerHTTP)
	require.NoError(t, err)

	result := resultFor(t, report, "netflix")
	assert.Equal(t, catalogsync.StateFailed, result.State)
	assert.ErrorIs(t, result.Err, context.Canceled)

	meta, _ := f.meta.Load(context.Background())
	assert.Empty(t, meta)
}

/*
TestRunAll_BusyGivesUpWithItsBudget verifies that a run waiting behind another
one stops waiting when its own context ends, and that the slot frees up once
the first run finishes.
*/
func TestRunAll_BusyGivesUpWithItsBudget(t *testing.T) {
	adapter := newBlockingAdapter("netflix")
	f := newFixture([]config.Provider{row("netflix", 3)}, adapter)
	done := holdRunSlot(t, f, adapter)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.orchestrator.RunProvider(ctx, "netflix", true, catalogsync.TriggerHTTP)
	assert.ErrorIs(t, err, catalogsync.ErrRunInProgress)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = f.orchestrator.RunAll(ctx, catalogsync.TriggerHTTP)
	assert.ErrorIs(t, err, catalogsync.ErrRunInProgress)

	close(adapter.release)
	require.NoError(t, <-done)

	// The first run completed and recorded its date; the slot is free again.
	report, err := f.orchestrator.RunAll(context.Background(), catalogsync.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, catalogsync.StateSkipped, resultFor(t, report, "netflix").State)
	assert.Equal(t, 1, f.repo.Len())
}

/*
TestRunAll_MetaUnavailable verifies that an unreadable gate aborts the run.
*/
func TestRunAll_MetaUnavailable(t *testing.T) {
	orchestrator := catalogsync.NewOrchestrator([]config.Provider{row("netflix", 3)}, &provider.Registry{}, failingUpserter{}, failingMeta{})

	_, err := orchestrator.RunAll(context.Background(), catalogsync.TriggerHTTP)
	assert.ErrorIs(t, err, catalogsync.ErrRunMetaUnavailable)
}

/*
TestRunProvider_ForceBypassesGate verifies the on-demand path.
*/
func TestRunProvider_ForceBypassesGate(t *testing.T) {
	adapter := &fakeAdapter{name: "netflix", items: []fakeItem{{key: "42"}}}
	f := newFixture([]config.Provider{row("netflix", 3)}, adapter)
	ctx := context.Background()
	require.NoError(t, f.meta.SaveLastRun(ctx, "netflix", "2026-03-01"))

	report, err := f.orchestrator.RunProvider(ctx, "netflix", false, catalogsync.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, catalogsync.StateSkipped, report.Results[0].State)

	f.now = date("2026-03-02")
	report, err = f.orchestrator.RunProvider(ctx, "netflix", true, catalogsync.TriggerHTTP)
	require.NoError(t, err)
	assert.Equal(t, catalogsync.StateCompleted, report.Results[0].State)
	assert.Equal(t, 1, report.Imported())

	meta, _ := f.meta.Load(ctx)
	assert.Equal(t, "2026-03-02", meta["netflix"])

	_, err = f.orchestrator.RunProvider(ctx, "nope", true, catalogsync.TriggerHTTP)
	assert.ErrorIs(t, err, catalogsync.ErrUnknownProvider)
}

/*
TestRunAll_PreservesManualFlag verifies that a reviewer's flag survives a sync.
*/
func TestRunAll_PreservesManualFlag(t *testing.T) {
	adapter := &fakeAdapter{name: "netflix", items: []fakeItem{{key: "42"}}}
	f := newFixture([]config.Provider{row("netflix", 3)}, adapter)
	ctx := context.Background()

	reviewed := catalog.Merge(nil, catalog.Incoming{Key: "42", Provider: "filmin", Title: "Loreak"}, f.now)
	reviewed.BasqueManual = true
	require.NoError(t, f.repo.Put(ctx, reviewed))

	_, err := f.orchestrator.RunAll(ctx, catalogsync.TriggerSchedule)
	require.NoError(t, err)

	stored, err := f.repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.True(t, stored.BasqueManual)
	assert.Equal(t, map[string]bool{"filmin": true, "netflix": true}, stored.Providers)
}

/*
TestStatus reports due flags from the stored run dates.
*/
func TestStatus(t *testing.T) {
	f := newFixture([]config.Provider{row("netflix", 3), row("rakuten", 5)})
	ctx := context.Background()
	// February 2026 has 28 days: netflix ran 3 days ago, rakuten 2 days ago.
	require.NoError(t, f.meta.SaveLastRun(ctx, "netflix", "2026-02-26"))
	require.NoError(t, f.meta.SaveLastRun(ctx, "rakuten", "2026-02-27"))

	statuses, err := f.orchestrator.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.Equal(t, "netflix", statuses[0].Provider)
	assert.True(t, statuses[0].Due)
	assert.Equal(t, "2026-02-26", statuses[0].LastRun)
	assert.Equal(t, "rakuten", statuses[1].Provider)
	assert.False(t, statuses[1].Due)
	assert.Equal(t, "2026-02-27", statuses[1].LastRun)
}
