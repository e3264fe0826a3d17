// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taibuivan/ikusare/internal/platform/validate"
)

// # Provider Table

// Kind selects the adapter family that serves a provider.
type Kind string

const (
	// KindStructured is served by the structured-metadata (TMDB) adapter.
	KindStructured Kind = "structured"

	// KindScrape is served by the HTML scraping adapter.
	KindScrape Kind = "scrape"

	// KindBroadcaster is the single-provider specialization of the structured adapter.
	KindBroadcaster Kind = "broadcaster"
)

// Provider is one static row of the provider table.
type Provider struct {
	// Name is the source identifier and the availability flag name.
	Name string `yaml:"name"`

	Kind Kind `yaml:"kind"`

	// UpstreamID is the watch-provider id on the structured source (0 for scraped sites).
	UpstreamID int `yaml:"upstream_id"`

	// MinIntervalDays is the minimum number of calendar days between runs.
	MinIntervalDays int `yaml:"min_interval_days"`

	// PageCap bounds paginated enumeration.
	PageCap int `yaml:"page_cap"`

	// Scrape holds site details for [KindScrape] providers.
	Scrape *ScrapeSite `yaml:"scrape,omitempty"`
}

// ScrapeSite describes how to read the list pages of a scraped site.
type ScrapeSite struct {
	BaseURL   string   `yaml:"base_url"`
	KeyPrefix string   `yaml:"key_prefix"`
	ListPaths []string `yaml:"list_paths"`

	ItemSelector  string `yaml:"item_selector"`
	TitleSelector string `yaml:"title_selector"`
	LinkSelector  string `yaml:"link_selector"`
	ImageSelector string `yaml:"image_selector"`

	// IDAttribute names an item attribute that carries a site-native id.
	IDAttribute string `yaml:"id_attribute,omitempty"`
}

const (
	structuredPageCap  = 3
	broadcasterPageCap = 10

	// maxPageCap bounds a single provider run.
	maxPageCap = 100
)

// DefaultProviders returns the built-in provider table.
func DefaultProviders(cfg *Config) []Provider {
	structured := func(name string, id, days int) Provider {
		return Provider{Name: name, Kind: KindStructured, UpstreamID: id, MinIntervalDays: days, PageCap: structuredPageCap}
	}

	return []Provider{
		structured("netflix", 8, 3),
		structured("max", 384, 3),
		structured("disney", 337, 3),
		structured("prime", 119, 3),
		structured("movistar", 149, 3),
		structured("filmin", 63, 3),
		structured("apple", 350, 3),
		structured("rakuten", 333, 5),
		structured("viaplay", 371, 5),
		structured("mitele", 527, 5),
		structured("rtve", 447, 5),
		structured("cine", 241, 7),
		{Name: "etb", Kind: KindBroadcaster, UpstreamID: 309, MinIntervalDays: 1, PageCap: broadcasterPageCap},
		{
			Name:            "makusi",
			Kind:            KindScrape,
			MinIntervalDays: 1,
			PageCap:         2,
			Scrape: &ScrapeSite{
				BaseURL:       cfg.MakusiBaseURL,
				KeyPrefix:     "makusi",
				ListPaths:     []string{"/ikusi/c/film-berriak-makusi", "/ikusi/filmak-makusi-8"},
				ItemSelector:  ".portfolio-item",
				TitleSelector: ".head_title",
				LinkSelector:  "a",
				ImageSelector: "img",
			},
		},
		{
			Name:            "primeran",
			Kind:            KindScrape,
			MinIntervalDays: 1,
			PageCap:         2,
			Scrape: &ScrapeSite{
				BaseURL:       cfg.PrimeranBaseURL,
				KeyPrefix:     "primeran",
				ListPaths:     []string{"/filmak", "/telesailak"},
				ItemSelector:  "article.card",
				TitleSelector: ".card__title",
				LinkSelector:  "a",
				ImageSelector: "img",
				IDAttribute:   "data-id",
			},
		},
	}
}

type providersFile struct {
	Providers []Provider `yaml:"providers"`
}

// LoadProvidersFile reads a provider table from a YAML document.
func LoadProvidersFile(path string) ([]Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read providers file %s: %w", path, err)
	}

	var file providersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: failed to parse providers file %s: %w", path, err)
	}

	return file.Providers, nil
}

// ValidateProviders checks the provider table for structural mistakes.
func ValidateProviders(providers []Provider) error {
	v := &validate.Validator{}
	v.Custom("providers", len(providers) == 0, "At least one provider is required")

	seen := make(map[string]bool, len(providers))
	for i, p := range providers {
		field := fmt.Sprintf("providers[%d]", i)

		v.Required(field+".name", p.Name).
			OneOf(field+".kind", string(p.Kind), string(KindStructured), string(KindScrape), string(KindBroadcaster)).
			Custom(field+".min_interval_days", p.MinIntervalDays < 0, "Must not be negative").
			Range(field+".page_cap", p.PageCap, 1, maxPageCap).
			Custom(field+".name", seen[p.Name], "Duplicate provider name")
		seen[p.Name] = true

		if p.Kind == KindScrape {
			if p.Scrape == nil {
				v.Custom(field+".scrape", true, "Scrape providers need site details")
				continue
			}
			v.Required(field+".scrape.base_url", p.Scrape.BaseURL).
				Required(field+".scrape.key_prefix", p.Scrape.KeyPrefix).
				Required(field+".scrape.item_selector", p.Scrape.ItemSelector).
				Custom(field+".scrape.list_paths", len(p.Scrape.ListPaths) == 0, "At least one list path is required")
		}
	}

	return v.Err()
}
