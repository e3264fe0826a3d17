// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalogsync

import (
	"context"
	"maps"
	"sync"
)

// # Repository Interfaces

// MetaRepository persists one last-run date per provider.
//
// Only the [Orchestrator] writes it, and only after a provider COMPLETED.
type MetaRepository interface {
	// Load returns every recorded last-run date.
	Load(context context.Context) (RunMeta, error)

	// SaveLastRun records date as provider's last successful run.
	SaveLastRun(context context.Context, provider, date string) error
}

// ReportRepository keeps the outcome of recent sync runs.
type ReportRepository interface {
	Save(context context.Context, report *Report) error

	// Latest returns the most recent report, or (nil, nil) when none is kept.
	Latest(context context.Context) (*Report, error)
}

// # In-Memory Implementations

// MemoryMetaRepository is a process-local [MetaRepository] for dry runs and tests.
type MemoryMetaRepository struct {
	mu   sync.Mutex
	meta RunMeta
}

// NewMemoryMetaRepository returns a store seeded with a copy of initial.
func NewMemoryMetaRepository(initial RunMeta) *MemoryMetaRepository {
	meta := maps.Clone(initial)
	if meta == nil {
		meta = RunMeta{}
	}
	return &MemoryMetaRepository{meta: meta}
}

// Load implements [MetaRepository].
func (repository *MemoryMetaRepository) Load(_ context.Context) (RunMeta, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return maps.Clone(repository.meta), nil
}

// SaveLastRun implements [MetaRepository].
func (repository *MemoryMetaRepository) SaveLastRun(_ context.Context, provider, date string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.meta[provider] = date
	return nil
}

// MemoryReportRepository keeps only the latest report in memory.
type MemoryReportRepository struct {
	mu     sync.Mutex
	latest *Report
}

// NewMemoryReportRepository returns an empty report store.
func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{}
}

// Save implements [ReportRepository].
func (repository *MemoryReportRepository) Save(_ context.Context, report *Report) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	repository.latest = report
	return nil
}

// Latest implements [ReportRepository].
func (repository *MemoryReportRepository) Latest(_ context.Context) (*Report, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	return repository.latest, nil
}
