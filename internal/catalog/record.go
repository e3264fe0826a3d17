// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalog owns the canonical catalogue record and the merge/upsert engine
that every provider adapter feeds.

# Ownership

The [Engine] is the only writer of catalogue records. Adapters produce
[Incoming] values; they never touch the store.

# Merge Rules

  - Descriptive scalars take the incoming value when present, else keep the stored one.
  - Provider availability flags are OR-accumulated and never flip back to false.
  - The manual Basque flag is preserved verbatim; [Incoming] cannot carry it.
  - UpdatedAt is refreshed on every upsert.
*/
package catalog

import "time"

// # Domain Entities

// Kind distinguishes films from series on the structured source.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// Localized is one language's title/synopsis pair.
type Localized struct {
	Title    string `json:"title"`
	Synopsis string `json:"synopsis"`
}

// Record is the canonical, merged representation of a title.
type Record struct {
	// Key is either the structured source's numeric id or "<source>_<slug>".
	Key string `json:"key"`

	TMDBID *int `json:"tmdb_id,omitempty"`
	Kind   Kind `json:"kind,omitempty"`

	Title    string   `json:"title"`
	Synopsis string   `json:"synopsis"`
	Year     *int     `json:"year"`
	Poster   *string  `json:"poster"`
	Rating   *float64 `json:"rating"`

	OriginalLanguage   string               `json:"original_language,omitempty"`
	OriginalBasque     bool                 `json:"original_basque"`
	Languages          map[string]Localized `json:"languages,omitempty"`
	AvailableLanguages []string             `json:"available_languages,omitempty"`

	// Providers holds one availability flag per upstream provider.
	Providers map[string]bool `json:"providers"`

	// SourceURLs holds per-provider detail links for scraped sources.
	SourceURLs map[string]string `json:"source_urls,omitempty"`

	// Source is the provider that created the record.
	Source string `json:"source,omitempty"`

	// BasqueManual is set by a human reviewer and is never written by sync.
	BasqueManual bool `json:"basque_manual"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvailableOn reports whether the record is flagged for provider.
func (r *Record) AvailableOn(provider string) bool {
	return r.Providers[provider]
}

// Incoming is a normalized item produced by a provider adapter.
//
// Zero values mean "not reported by this source". There is deliberately no
// field for the manual flag.
type Incoming struct {
	Key string

	// Provider is the source whose availability flag this sighting sets.
	Provider string

	TMDBID *int
	Kind   Kind

	Title    string
	Synopsis string
	Year     *int
	Poster   *string
	Rating   *float64

	OriginalLanguage string
	Languages        map[string]Localized

	SourceURL string
}
