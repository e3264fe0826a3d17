// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"maps"
	"slices"
	"time"
)

// basqueLanguage is the original-language code that marks a Basque production.
const basqueLanguage = "eu"

// Merge computes the full record written for one sighting.
//
// existing may be nil when the key has never been seen. The result never
// aliases existing's maps, so callers may keep using both.
func Merge(existing *Record, incoming Incoming, now time.Time) Record {
	var merged Record
	if existing != nil {
		merged = *existing
	}

	merged.Key = incoming.Key

	// Descriptive scalars: incoming wins when present.
	if incoming.TMDBID != nil {
		merged.TMDBID = incoming.TMDBID
	}
	if incoming.Kind != "" {
		merged.Kind = incoming.Kind
	}
	if incoming.Title != "" {
		merged.Title = incoming.Title
	}
	if incoming.Synopsis != "" {
		merged.Synopsis = incoming.Synopsis
	}
	if incoming.Year != nil {
		merged.Year = incoming.Year
	}
	if incoming.Poster != nil {
		merged.Poster = incoming.Poster
	}
	if incoming.Rating != nil {
		merged.Rating = incoming.Rating
	}
	if incoming.OriginalLanguage != "" {
		merged.OriginalLanguage = incoming.OriginalLanguage
	}
	merged.OriginalBasque = merged.OriginalLanguage == basqueLanguage

	// Language metadata: per-language replacement, other languages kept.
	merged.Languages = maps.Clone(merged.Languages)
	if len(incoming.Languages) > 0 {
		if merged.Languages == nil {
			merged.Languages = make(map[string]Localized, len(incoming.Languages))
		}
		maps.Copy(merged.Languages, incoming.Languages)
	}
	merged.AvailableLanguages = nil
	if len(merged.Languages) > 0 {
		merged.AvailableLanguages = slices.Sorted(maps.Keys(merged.Languages))
	}

	// Availability: OR-accumulate, only this provider can move to true.
	merged.Providers = maps.Clone(merged.Providers)
	if merged.Providers == nil {
		merged.Providers = make(map[string]bool, 1)
	}
	if incoming.Provider != "" {
		merged.Providers[incoming.Provider] = true
	}

	merged.SourceURLs = maps.Clone(merged.SourceURLs)
	if incoming.SourceURL != "" {
		if merged.SourceURLs == nil {
			merged.SourceURLs = make(map[string]string, 1)
		}
		merged.SourceURLs[incoming.Provider] = incoming.SourceURL
	}

	if merged.Source == "" {
		merged.Source = incoming.Provider
	}

	// Sticky flag: only ever the stored value.
	merged.BasqueManual = existing != nil && existing.BasqueManual

	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = now
	}
	merged.UpdatedAt = now

	return merged
}
