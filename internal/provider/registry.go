// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package provider

import (
	"fmt"
	"log/slog"

	"github.com/taibuivan/ikusare/internal/platform/config"
)

// Fetcher is the full resilient fetcher surface used by the registry.
type Fetcher interface {
	JSONFetcher
	HTMLFetcher
}

// Registry binds every configured provider row to its adapter.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry builds one adapter per provider in cfg, in table order.
func NewRegistry(cfg *config.Config, fetcher Fetcher, logger *slog.Logger) (*Registry, error) {
	registry := &Registry{adapters: make(map[string]Adapter, len(cfg.Providers()))}

	for _, row := range cfg.Providers() {
		adapter, err := build(cfg, row, fetcher, logger)
		if err != nil {
			return nil, err
		}
		registry.Add(adapter)
	}

	return registry, nil
}

// Add registers adapter under its name, replacing any previous one.
func (registry *Registry) Add(adapter Adapter) {
	if registry.adapters == nil {
		registry.adapters = make(map[string]Adapter)
	}
	if _, exists := registry.adapters[adapter.Name()]; !exists {
		registry.order = append(registry.order, adapter.Name())
	}
	registry.adapters[adapter.Name()] = adapter
}

// Get returns the adapter for name.
func (registry *Registry) Get(name string) (Adapter, bool) {
	adapter, ok := registry.adapters[name]
	return adapter, ok
}

// Names returns the registered provider names in table order.
func (registry *Registry) Names() []string {
	return append([]string(nil), registry.order...)
}

func build(cfg *config.Config, row config.Provider, fetcher Fetcher, logger *slog.Logger) (Adapter, error) {
	structured := StructuredConfig{
		Provider:      row,
		TMDB:          cfg.TMDB,
		Languages:     cfg.Languages,
		MaxRetries:    cfg.Fetch.MaxRetries,
		PageDelay:     cfg.Fetch.PageDelay,
		ItemDelay:     cfg.Fetch.ItemDelay,
		LanguageDelay: cfg.Fetch.LanguageDelay,
	}

	switch row.Kind {
	case config.KindStructured:
		return NewStructured(structured, fetcher, logger), nil
	case config.KindBroadcaster:
		return NewBroadcaster(structured, fetcher, logger), nil
	case config.KindScrape:
		return NewScraper(ScrapeConfig{
			Provider:  row,
			Timeout:   cfg.Fetch.Timeout,
			PageDelay: cfg.Fetch.PageDelay,
		}, fetcher, logger)
	default:
		return nil, fmt.Errorf("provider: %s has unknown kind %q", row.Name, row.Kind)
	}
}
