// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package provider contains one adapter per upstream source family.

Every adapter enumerates its source into raw items of its own variant and maps
each raw item to a [catalog.Incoming]. Adapters never write to the store.

# Variants

  - [StructuredItem]: a discover result from the structured metadata API.
  - [BroadcasterItem]: the same payload, tagged for the single broadcaster provider.
  - [ScrapedItem]: a listing entry read from an HTML page.

Normalize is total over the adapter's own variant and rejects any other with
[ErrWrongVariant].

# Failure Policy

Fetch failures are data absence. A page that cannot be fetched ends enumeration;
a per-item failure is returned from Normalize and the caller skips that item.
Only configuration errors and cancellation escape ListItems.
*/
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/taibuivan/ikusare/internal/catalog"
)

// # Errors

var (
	// ErrMissingCredential is returned when an adapter is invoked without the
	// credential its upstream requires.
	ErrMissingCredential = errors.New("provider: missing upstream credential")

	// ErrWrongVariant is returned when Normalize receives another adapter's item.
	ErrWrongVariant = errors.New("provider: raw item variant does not match adapter")

	// ErrNoIdentity is returned when no stable key can be derived for an item.
	ErrNoIdentity = errors.New("provider: item has no usable identity")
)

// # Contracts

// Variant tags a raw item with the adapter family that produced it.
type Variant string

const (
	VariantStructured  Variant = "structured"
	VariantScraped     Variant = "scraped"
	VariantBroadcaster Variant = "broadcaster"
)

// RawItem is one enumerated upstream entry prior to normalization.
type RawItem interface {
	Variant() Variant

	// Ref identifies the item in logs.
	Ref() string
}

// Adapter enumerates and normalizes the items of a single provider.
type Adapter interface {
	// Name is the provider name and its availability flag.
	Name() string

	// ListItems enumerates the source up to the provider's page cap.
	ListItems(ctx context.Context) ([]RawItem, error)

	// Normalize maps one raw item to the canonical shape, computing its key.
	Normalize(ctx context.Context, raw RawItem) (catalog.Incoming, error)
}

// JSONFetcher is the structured half of the resilient fetcher.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, url string, maxRetries int, out any) bool
}

// HTMLFetcher is the scraping half of the resilient fetcher.
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, url string, timeout time.Duration) (string, bool)
}
