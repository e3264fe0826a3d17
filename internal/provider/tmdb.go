// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/taibuivan/ikusare/internal/catalog"
	"github.com/taibuivan/ikusare/internal/fetch"
	"github.com/taibuivan/ikusare/internal/platform/config"
	"github.com/taibuivan/ikusare/pkg/convert"
	"github.com/taibuivan/ikusare/pkg/pointer"
)

// # Structured Variant

// StructuredItem is one discover result of the structured metadata API.
type StructuredItem struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	PosterPath       string  `json:"poster_path"`
	VoteAverage      float64 `json:"vote_average"`
	OriginalLanguage string  `json:"original_language"`

	// Kind is set from the discover endpoint that returned the item.
	Kind catalog.Kind `json:"-"`
}

// Variant implements [RawItem].
func (item StructuredItem) Variant() Variant { return VariantStructured }

// Ref implements [RawItem].
func (item StructuredItem) Ref() string { return fmt.Sprintf("%s/%d", item.Kind, item.ID) }

type discoverResponse struct {
	Results []StructuredItem `json:"results"`
}

type localizedDetail struct {
	Title    string `json:"title"`
	Name     string `json:"name"`
	Overview string `json:"overview"`
}

// # Structured Adapter

// StructuredConfig carries everything a structured adapter needs for one provider.
type StructuredConfig struct {
	Provider  config.Provider
	TMDB      config.TMDBConfig
	Languages []string

	MaxRetries    int
	PageDelay     time.Duration
	ItemDelay     time.Duration
	LanguageDelay time.Duration
}

// Structured enumerates a watch provider through the discover API and sweeps
// localized titles for every item.
type Structured struct {
	provider   config.Provider
	tmdb       config.TMDBConfig
	languages  []string
	maxRetries int

	fetcher JSONFetcher
	logger  *slog.Logger

	pages *fetch.Throttle
	items *fetch.Throttle
	langs *fetch.Throttle
}

// NewStructured constructs a structured adapter.
func NewStructured(cfg StructuredConfig, fetcher JSONFetcher, logger *slog.Logger) *Structured {
	if logger == nil {
		logger = slog.Default()
	}
	return &Structured{
		provider:   cfg.Provider,
		tmdb:       cfg.TMDB,
		languages:  cfg.Languages,
		maxRetries: cfg.MaxRetries,
		fetcher:    fetcher,
		logger:     logger.With(slog.String("provider", cfg.Provider.Name)),
		pages:      fetch.NewThrottle(cfg.PageDelay),
		items:      fetch.NewThrottle(cfg.ItemDelay),
		langs:      fetch.NewThrottle(cfg.LanguageDelay),
	}
}

// Name implements [Adapter].
func (adapter *Structured) Name() string { return adapter.provider.Name }

// ListItems implements [Adapter].
func (adapter *Structured) ListItems(ctx context.Context) ([]RawItem, error) {
	found, err := adapter.discover(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]RawItem, 0, len(found))
	for _, item := range found {
		items = append(items, item)
	}
	return items, nil
}

// Normalize implements [Adapter].
func (adapter *Structured) Normalize(ctx context.Context, raw RawItem) (catalog.Incoming, error) {
	item, ok := raw.(StructuredItem)
	if !ok {
		return catalog.Incoming{}, fmt.Errorf("%w: %s cannot normalize %s", ErrWrongVariant, adapter.Name(), raw.Variant())
	}

	if err := adapter.items.Wait(ctx); err != nil {
		return catalog.Incoming{}, err
	}

	incoming, err := adapter.incoming(item)
	if err != nil {
		return catalog.Incoming{}, err
	}

	languages, err := adapter.sweepLanguages(ctx, item)
	if err != nil {
		return catalog.Incoming{}, err
	}
	incoming.Languages = languages

	return incoming, nil
}

/*
discover walks the discover endpoints page by page.

Each page reads films then series. Enumeration ends at the page cap, when a
page is empty (or unreadable) on both endpoints, or when a page adds nothing new.
*/
func (adapter *Structured) discover(ctx context.Context) ([]StructuredItem, error) {
	if adapter.tmdb.APIKey == "" {
		return nil, fmt.Errorf("%w: TMDB_API_KEY is not set for %s", ErrMissingCredential, adapter.Name())
	}

	seen := make(map[string]bool)
	var found []StructuredItem

	for page := 1; page <= adapter.provider.PageCap; page++ {
		if err := adapter.pages.Wait(ctx); err != nil {
			return nil, err
		}

		movies, moviesOK := adapter.discoverPage(ctx, "movie", page)
		series, seriesOK := adapter.discoverPage(ctx, "tv", page)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !moviesOK && !seriesOK {
			adapter.logger.Warn("discover_page_unavailable", slog.Int("page", page))
			break
		}
		if len(movies) == 0 && len(series) == 0 {
			adapter.logger.Info("discover_exhausted", slog.Int("page", page))
			break
		}

		fresh := 0
		for _, batch := range []struct {
			kind  catalog.Kind
			items []StructuredItem
		}{{catalog.KindMovie, movies}, {catalog.KindSeries, series}} {
			for _, item := range batch.items {
				item.Kind = batch.kind
				if seen[item.Ref()] {
					continue
				}
				seen[item.Ref()] = true
				found = append(found, item)
				fresh++
			}
		}

		adapter.logger.Debug("discover_page_read", slog.Int("page", page), slog.Int("new_items", fresh))
		if fresh == 0 {
			break
		}
	}

	return found, nil
}

func (adapter *Structured) discoverPage(ctx context.Context, endpoint string, page int) ([]StructuredItem, bool) {
	params := url.Values{}
	params.Set("watch_region", adapter.tmdb.WatchRegion)
	params.Set("with_watch_providers", strconv.Itoa(adapter.provider.UpstreamID))
	params.Set("language", adapter.tmdb.DiscoverLanguage)
	params.Set("page", strconv.Itoa(page))

	var response discoverResponse
	if !adapter.fetcher.FetchJSON(ctx, adapter.url("/discover/"+endpoint, params), adapter.maxRetries, &response) {
		return nil, false
	}
	return response.Results, true
}

// sweepLanguages fetches the localized title/synopsis pair for every configured
// language. A language whose fetch fails, or whose payload is blank, is omitted.
func (adapter *Structured) sweepLanguages(ctx context.Context, item StructuredItem) (map[string]catalog.Localized, error) {
	endpoint := "/movie/"
	if item.Kind == catalog.KindSeries {
		endpoint = "/tv/"
	}

	localized := make(map[string]catalog.Localized, len(adapter.languages))
	for _, language := range adapter.languages {
		if err := adapter.langs.Wait(ctx); err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("language", language)

		var detail localizedDetail
		if !adapter.fetcher.FetchJSON(ctx, adapter.url(endpoint+strconv.Itoa(item.ID), params), adapter.maxRetries, &detail) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}

		title := firstNonEmpty(detail.Title, detail.Name)
		if title == "" && detail.Overview == "" {
			continue
		}
		localized[language] = catalog.Localized{Title: title, Synopsis: detail.Overview}
	}

	if len(localized) == 0 {
		return nil, nil
	}
	return localized, nil
}

// incoming maps the discover payload to the canonical shape.
func (adapter *Structured) incoming(item StructuredItem) (catalog.Incoming, error) {
	if item.ID <= 0 {
		return catalog.Incoming{}, fmt.Errorf("%w: %s returned item without id", ErrNoIdentity, adapter.Name())
	}

	incoming := catalog.Incoming{
		Key:              strconv.Itoa(item.ID),
		Provider:         adapter.provider.Name,
		TMDBID:           pointer.To(item.ID),
		Kind:             item.Kind,
		Title:            firstNonEmpty(item.Title, item.Name),
		Synopsis:         item.Overview,
		Rating:           pointer.NonZero(convert.RoundTo(item.VoteAverage, 1)),
		OriginalLanguage: item.OriginalLanguage,
	}

	if year, ok := convert.LeadingYear(firstNonEmpty(item.ReleaseDate, item.FirstAirDate)); ok {
		incoming.Year = pointer.To(year)
	}
	if item.PosterPath != "" {
		incoming.Poster = pointer.To(adapter.tmdb.ImageBaseURL + item.PosterPath)
	}

	return incoming, nil
}

func (adapter *Structured) url(path string, params url.Values) string {
	params.Set("api_key", adapter.tmdb.APIKey)
	return strings.TrimRight(adapter.tmdb.BaseURL, "/") + path + "?" + params.Encode()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
