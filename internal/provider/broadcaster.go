// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/ikusare/internal/catalog"
)

// BroadcasterItem is a discover result enumerated for the broadcaster provider.
type BroadcasterItem struct {
	StructuredItem
}

// Variant implements [RawItem].
func (item BroadcasterItem) Variant() Variant { return VariantBroadcaster }

// Broadcaster specializes [Structured] for the regional broadcaster.
//
// It reads a deeper page range and skips the language sweep, trading
// translated metadata for catalogue breadth. Every item is flagged for the
// broadcaster only.
type Broadcaster struct {
	base *Structured
}

// NewBroadcaster constructs the broadcaster adapter. cfg.Provider.PageCap sets
// the page range.
func NewBroadcaster(cfg StructuredConfig, fetcher JSONFetcher, logger *slog.Logger) *Broadcaster {
	cfg.Languages = nil
	return &Broadcaster{base: NewStructured(cfg, fetcher, logger)}
}

// Name implements [Adapter].
func (adapter *Broadcaster) Name() string { return adapter.base.Name() }

// ListItems implements [Adapter].
func (adapter *Broadcaster) ListItems(ctx context.Context) ([]RawItem, error) {
	found, err := adapter.base.discover(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]RawItem, 0, len(found))
	for _, item := range found {
		items = append(items, BroadcasterItem{StructuredItem: item})
	}
	return items, nil
}

// Normalize implements [Adapter].
func (adapter *Broadcaster) Normalize(ctx context.Context, raw RawItem) (catalog.Incoming, error) {
	item, ok := raw.(BroadcasterItem)
	if !ok {
		return catalog.Incoming{}, fmt.Errorf("%w: %s cannot normalize %s", ErrWrongVariant, adapter.Name(), raw.Variant())
	}

	if err := adapter.base.items.Wait(ctx); err != nil {
		return catalog.Incoming{}, err
	}

	return adapter.base.incoming(item.StructuredItem)
}
