// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// MemoryRepository is an in-process [Repository] used for dry runs and tests.
//
// Records are stored as JSON documents so callers never share maps with the store.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryRepository creates an empty in-memory catalogue.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string][]byte)}
}

// Get implements [Repository].
func (repository *MemoryRepository) Get(_ context.Context, key string) (*Record, error) {
	repository.mu.RLock()
	doc, ok := repository.docs[key]
	repository.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return decodeRecord(doc)
}

// Put implements [Repository].
func (repository *MemoryRepository) Put(_ context.Context, record Record) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("catalog: encode record %s: %w", record.Key, err)
	}

	repository.mu.Lock()
	repository.docs[record.Key] = doc
	repository.mu.Unlock()
	return nil
}

// List implements [Repository].
func (repository *MemoryRepository) List(_ context.Context, filter Filter, limit, offset int) ([]*Record, int, error) {
	repository.mu.RLock()
	keys := make([]string, 0, len(repository.docs))
	for key := range repository.docs {
		keys = append(keys, key)
	}
	repository.mu.RUnlock()
	slices.Sort(keys)

	var matches []*Record
	for _, key := range keys {
		record, err := repository.Get(context.Background(), key)
		if err != nil {
			return nil, 0, err
		}
		if record == nil {
			continue
		}
		if filter.Provider != "" && !record.AvailableOn(filter.Provider) {
			continue
		}
		matches = append(matches, record)
	}

	total := len(matches)
	if offset >= total {
		return []*Record{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matches[offset:end], total, nil
}

// Len returns the number of stored records.
func (repository *MemoryRepository) Len() int {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return len(repository.docs)
}

func decodeRecord(doc []byte) (*Record, error) {
	record := &Record{}
	if err := json.Unmarshal(doc, record); err != nil {
		return nil, fmt.Errorf("catalog: decode record: %w", err)
	}
	return record, nil
}
