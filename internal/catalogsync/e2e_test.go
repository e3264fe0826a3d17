// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalogsync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ikusare/internal/catalogsync"
	"github.com/taibuivan/ikusare/internal/fetch"
	"github.com/taibuivan/ikusare/internal/platform/config"
	"github.com/taibuivan/ikusare/internal/provider"
)

// discoverServer answers page 1 of discover/movie with a single film and every
// other discover call with an empty page. The first stall calls hang until
// the client gives up.
func discoverServer(t *testing.T, stall int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var movieHits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/discover/movie", func(w http.ResponseWriter, r *http.Request) {
		if movieHits.Add(1) <= stall {
			<-r.Context().Done()
			return
		}
		results := []map[string]any{}
		if r.URL.Query().Get("page") == "1" {
			results = append(results, map[string]any{"id": 42, "title": "Loreak", "release_date": "2014-09-19"})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	})
	mux.HandleFunc("/discover/tv", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &movieHits
}

func netflixAdapter(baseURL string, client *fetch.Client) *provider.Structured {
	return provider.NewStructured(provider.StructuredConfig{
		Provider:   config.Provider{Name: "netflix", Kind: config.KindStructured, UpstreamID: 8, MinIntervalDays: 3, PageCap: 3},
		TMDB:       config.TMDBConfig{APIKey: "secret", BaseURL: baseURL, ImageBaseURL: "https://image.tmdb.org/t/p/w500"},
		MaxRetries: 5,
	}, client, nil)
}

/*
TestEndToEnd_TwoSourcesTwoRecords syncs a structured provider and a scraped
site whose items normalize to different keys.
*/
func TestEndToEnd_TwoSourcesTwoRecords(t *testing.T) {
	tmdb, _ := discoverServer(t, 0)

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<ul><li class="item"><a href="/v/title">Title</a></li></ul>`))
	}))
	defer site.Close()

	client := fetch.NewClient(fetch.WithBackoff(0))
	siteRow := config.Provider{
		Name: "site", Kind: config.KindScrape, MinIntervalDays: 1, PageCap: 1,
		Scrape: &config.ScrapeSite{BaseURL: site.URL, KeyPrefix: "site", ListPaths: []string{"/list"}, ItemSelector: "li.item", LinkSelector: "a"},
	}
	scraper, err := provider.NewScraper(provider.ScrapeConfig{Provider: siteRow}, client, nil)
	require.NoError(t, err)

	netflix := netflixAdapter(tmdb.URL, client)
	netflixRow := config.Provider{Name: "netflix", Kind: config.KindStructured, MinIntervalDays: 3, PageCap: 3}
	f := newFixture([]config.Provider{netflixRow, siteRow}, netflix, scraper)
	ctx := context.Background()

	report, err := f.orchestrator.RunAll(ctx, catalogsync.TriggerSchedule)
	require.NoError(t, err)
	require.True(t, report.OK())
	assert.Equal(t, 2, report.Imported())
	assert.Equal(t, 2, f.repo.Len())

	structured, err := f.repo.Get(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, structured)
	assert.Equal(t, map[string]bool{"netflix": true}, structured.Providers)

	scraped, err := f.repo.Get(ctx, "site_title")
	require.NoError(t, err)
	require.NotNil(t, scraped)
	assert.Equal(t, map[string]bool{"site": true}, scraped.Providers)
	assert.Equal(t, site.URL+"/v/title", scraped.SourceURLs["site"])
}

/*
TestEndToEnd_TimeoutsThenSuccess stalls the first four discover attempts past
the per-request timeout; the fifth attempt delivers the page.
*/
func TestEndToEnd_TimeoutsThenSuccess(t *testing.T) {
	tmdb, movieHits := discoverServer(t, 4)
	client := fetch.NewClient(fetch.WithTimeout(50*time.Millisecond), fetch.WithBackoff(0))

	f := newFixture(
		[]config.Provider{{Name: "netflix", Kind: config.KindStructured, MinIntervalDays: 3, PageCap: 3}},
		netflixAdapter(tmdb.URL, client),
	)
	ctx := context.Background()

	report, err := f.orchestrator.RunAll(ctx, catalogsync.TriggerSchedule)
	require.NoError(t, err)

	assert.Equal(t, catalogsync.StateCompleted, resultFor(t, report, "netflix").State)
	assert.Equal(t, 1, report.Imported())

	// Five attempts for page 1, one for the empty page 2.
	assert.Equal(t, int32(6), movieHits.Load())

	record, err := f.repo.Get(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Loreak", record.Title)
}
