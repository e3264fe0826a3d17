// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import "context"

// # Repository Interfaces

// Repository is the key-value document store holding catalogue records.
//
// Put is a full replace of the document under key (create if absent). There is
// no cross-key transaction.
type Repository interface {
	// Get returns the stored record, or (nil, nil) if the key is absent.
	Get(context context.Context, key string) (*Record, error)

	// Put replaces the whole document stored under key.
	Put(context context.Context, record Record) error

	// List returns records flagged for provider (all records if empty), ordered
	// by key, plus the total number of matches.
	List(context context.Context, filter Filter, limit, offset int) ([]*Record, int, error)
}

// Filter narrows catalogue listings.
type Filter struct {
	// Provider keeps only records available on this provider.
	Provider string
}
