// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ikusare/internal/catalog"
	"github.com/taibuivan/ikusare/internal/fetch"
	"github.com/taibuivan/ikusare/internal/platform/config"
	"github.com/taibuivan/ikusare/internal/provider"
)

// fakeTMDB serves a one-page discover catalogue and per-language details.
type fakeTMDB struct {
	mu   sync.Mutex
	hits map[string]int
}

func (f *fakeTMDB) hit(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[path]++
}

func (f *fakeTMDB) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newFakeTMDB(t *testing.T) (*fakeTMDB, *httptest.Server) {
	t.Helper()
	fake := &fakeTMDB{hits: make(map[string]int)}

	write := func(w http.ResponseWriter, payload any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}
	results := func(items ...map[string]any) map[string]any {
		if items == nil {
			items = []map[string]any{}
		}
		return map[string]any{"results": items}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/discover/movie", func(w http.ResponseWriter, r *http.Request) {
		fake.hit(r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "8", r.URL.Query().Get("with_watch_providers"))
		assert.Equal(t, "ES", r.URL.Query().Get("watch_region"))
		if r.URL.Query().Get("page") != "1" {
			write(w, results())
			return
		}
		write(w, results(map[string]any{
			"id":                42,
			"title":             "Flores",
			"overview":          "Un ramo de flores.",
			"release_date":      "2014-09-19",
			"poster_path":       "/loreak.jpg",
			"vote_average":      6.84,
			"original_language": "eu",
		}))
	})
	mux.HandleFunc("/discover/tv", func(w http.ResponseWriter, r *http.Request) {
		fake.hit(r.URL.Path)
		if r.URL.Query().Get("page") != "1" {
			write(w, results())
			return
		}
		write(w, results(map[string]any{
			"id":                7,
			"name":              "Goenkale",
			"first_air_date":    "1994-01-10",
			"original_language": "eu",
		}))
	})
	mux.HandleFunc("/movie/42", func(w http.ResponseWriter, r *http.Request) {
		fake.hit(r.URL.Path)
		switch r.URL.Query().Get("language") {
		case "eu":
			write(w, map[string]any{"title": "Loreak", "overview": "Lore sorta bat."})
		case "es":
			write(w, map[string]any{"title": "Flores", "overview": "Un ramo de flores."})
		case "en":
			http.Error(w, "upstream down", http.StatusBadGateway)
		default:
			write(w, map[string]any{"title": "", "overview": ""})
		}
	})
	mux.HandleFunc("/tv/7", func(w http.ResponseWriter, r *http.Request) {
		fake.hit(r.URL.Path)
		write(w, map[string]any{"name": "Goenkale", "overview": ""})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return fake, server
}

func structuredConfig(baseURL, apiKey string) provider.StructuredConfig {
	return provider.StructuredConfig{
		Provider: config.Provider{Name: "netflix", Kind: config.KindStructured, UpstreamID: 8, MinIntervalDays: 3, PageCap: 3},
		TMDB: config.TMDBConfig{
			APIKey:           apiKey,
			BaseURL:          baseURL,
			ImageBaseURL:     "https://image.tmdb.org/t/p/w500",
			WatchRegion:      "ES",
			DiscoverLanguage: "es-ES",
		},
		Languages:  []string{"eu", "es", "en", "ca"},
		MaxRetries: 2,
	}
}

func testClient() *fetch.Client {
	return fetch.NewClient(fetch.WithBackoff(0))
}

/*
TestStructured_ListAndNormalize enumerates one discover page of each kind and
normalizes the film with its language sweep.
*/
func TestStructured_ListAndNormalize(t *testing.T) {
	fake, server := newFakeTMDB(t)
	adapter := provider.NewStructured(structuredConfig(server.URL, "secret"), testClient(), nil)
	ctx := context.Background()

	items, err := adapter.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Page 2 is empty on both endpoints, which ends enumeration before the cap.
	assert.Equal(t, 2, fake.count("/discover/movie"))
	assert.Equal(t, 2, fake.count("/discover/tv"))

	film, err := adapter.Normalize(ctx, items[0])
	require.NoError(t, err)

	assert.Equal(t, "42", film.Key)
	assert.Equal(t, "netflix", film.Provider)
	assert.Equal(t, catalog.KindMovie, film.Kind)
	assert.Equal(t, "Flores", film.Title)
	require.NotNil(t, film.Year)
	assert.Equal(t, 2014, *film.Year)
	require.NotNil(t, film.Rating)
	assert.Equal(t, 6.8, *film.Rating)
	require.NotNil(t, film.Poster)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/loreak.jpg", *film.Poster)

	// "en" failed every attempt and "ca" was blank, so only two languages remain.
	assert.Equal(t, map[string]catalog.Localized{
		"eu": {Title: "Loreak", Synopsis: "Lore sorta bat."},
		"es": {Title: "Flores", Synopsis: "Un ramo de flores."},
	}, film.Languages)
	assert.Equal(t, 5, fake.count("/movie/42"))

	series, err := adapter.Normalize(ctx, items[1])
	require.NoError(t, err)
	assert.Equal(t, "7", series.Key)
	assert.Equal(t, catalog.KindSeries, series.Kind)
	assert.Equal(t, "Goenkale", series.Title)
	assert.Nil(t, series.Rating)
	assert.Nil(t, series.Poster)
	require.NotNil(t, series.Year)
	assert.Equal(t, 1994, *series.Year)
}

/*
TestStructured_MissingCredential verifies the configuration error fails fast
without touching the upstream.
*/
func TestStructured_MissingCredential(t *testing.T) {
	fake, server := newFakeTMDB(t)
	adapter := provider.NewStructured(structuredConfig(server.URL, ""), testClient(), nil)

	_, err := adapter.ListItems(context.Background())
	assert.ErrorIs(t, err, provider.ErrMissingCredential)
	assert.Zero(t, fake.count("/discover/movie"))
}

/*
TestStructured_UnavailableUpstream verifies that a page failing on both
endpoints is treated as the end of data.
*/
func TestStructured_UnavailableUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := provider.NewStructured(structuredConfig(server.URL, "secret"), testClient(), nil)

	items, err := adapter.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

/*
TestStructured_MalformedPageListsNothing verifies that a discover endpoint whose
body never decodes contributes no items, even when its sibling endpoint answers.
*/
func TestStructured_MalformedPageListsNothing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/discover/movie", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":7,"title":"Loreak","vote_average":"oops"}]}`))
	})
	mux.HandleFunc("/discover/tv", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			_, _ = w.Write([]byte(`{"results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"id":9,"name":"Goenkale"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter := provider.NewStructured(structuredConfig(server.URL, "secret"), testClient(), nil)

	items, err := adapter.ListItems(context.Background())
	require.NoError(t, err)

	refs := make([]string, 0, len(items))
	for _, item := range items {
		refs = append(refs, item.Ref())
	}
	assert.Equal(t, []string{"series/9"}, refs)
}

/*
TestStructured_NormalizeRejects covers the per-item failure sentinels.
*/
func TestStructured_NormalizeRejects(t *testing.T) {
	adapter := provider.NewStructured(structuredConfig("http://127.0.0.1:1", "secret"), testClient(), nil)
	ctx := context.Background()

	_, err := adapter.Normalize(ctx, provider.ScrapedItem{Title: "Loreak"})
	assert.ErrorIs(t, err, provider.ErrWrongVariant)

	_, err = adapter.Normalize(ctx, provider.StructuredItem{Kind: catalog.KindMovie})
	assert.ErrorIs(t, err, provider.ErrNoIdentity)
}

/*
TestBroadcaster_SkipsLanguageSweep verifies the broadcaster specialization.
*/
func TestBroadcaster_SkipsLanguageSweep(t *testing.T) {
	fake, server := newFakeTMDB(t)
	cfg := structuredConfig(server.URL, "secret")
	cfg.Provider = config.Provider{Name: "etb", Kind: config.KindBroadcaster, UpstreamID: 8, MinIntervalDays: 1, PageCap: 10}
	adapter := provider.NewBroadcaster(cfg, testClient(), nil)
	ctx := context.Background()

	items, err := adapter.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, provider.VariantBroadcaster, items[0].Variant())

	incoming, err := adapter.Normalize(ctx, items[0])
	require.NoError(t, err)
	assert.Equal(t, "42", incoming.Key)
	assert.Equal(t, "etb", incoming.Provider)
	assert.Nil(t, incoming.Languages)
	assert.Zero(t, fake.count("/movie/42"))

	_, err = adapter.Normalize(ctx, provider.StructuredItem{ID: 42})
	assert.ErrorIs(t, err, provider.ErrWrongVariant)
}

/*
TestRegistry_BuildsDefaultTable verifies one adapter per configured provider.
*/
func TestRegistry_BuildsDefaultTable(t *testing.T) {
	cfg, err := config.LoadFromMap(map[string]string{})
	require.NoError(t, err)

	registry, err := provider.NewRegistry(cfg, testClient(), nil)
	require.NoError(t, err)

	assert.Len(t, registry.Names(), len(cfg.Providers()))

	etb, ok := registry.Get("etb")
	require.True(t, ok)
	assert.IsType(t, &provider.Broadcaster{}, etb)

	makusi, ok := registry.Get("makusi")
	require.True(t, ok)
	assert.IsType(t, &provider.Scraper{}, makusi)

	netflix, ok := registry.Get("netflix")
	require.True(t, ok)
	assert.IsType(t, &provider.Structured{}, netflix)

	_, ok = registry.Get("nope")
	assert.False(t, ok)
}
