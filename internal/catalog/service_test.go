// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/ikusare/internal/catalog"
	"github.com/taibuivan/ikusare/internal/platform/apperr"
)

func newEngine(repo catalog.Repository, now time.Time) *catalog.Engine {
	return catalog.NewEngine(repo, catalog.WithClock(func() time.Time { return now }))
}

/*
TestEngine_UpsertTwoSources runs one structured and one scraped sighting
through the engine and checks the resulting store.
*/
func TestEngine_UpsertTwoSources(t *testing.T) {
	ctx := context.Background()
	repo := catalog.NewMemoryRepository()
	engine := newEngine(repo, day1)

	require.NoError(t, engine.Upsert(ctx, structuredSighting("netflix")))
	require.NoError(t, engine.Upsert(ctx, catalog.Incoming{
		Key:       "makusi_a_bizarra",
		Provider:  "makusi",
		Title:     "A Bizarra",
		SourceURL: "https://makusi.eus/a-bizarra",
	}))

	assert.Equal(t, 2, repo.Len())

	structured, err := repo.Get(ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, structured)
	assert.True(t, structured.AvailableOn("netflix"))
	assert.False(t, structured.AvailableOn("makusi"))

	scraped, err := repo.Get(ctx, "makusi_a_bizarra")
	require.NoError(t, err)
	require.NotNil(t, scraped)
	assert.Equal(t, map[string]bool{"makusi": true}, scraped.Providers)
	assert.Nil(t, scraped.Year)
}

/*
TestEngine_PreservesManualFlag verifies that a reviewer's flag in the store
survives a later sync.
*/
func TestEngine_PreservesManualFlag(t *testing.T) {
	ctx := context.Background()
	repo := catalog.NewMemoryRepository()

	reviewed := catalog.Merge(nil, structuredSighting("netflix"), day1)
	reviewed.BasqueManual = true
	require.NoError(t, repo.Put(ctx, reviewed))

	engine := newEngine(repo, day2)
	require.NoError(t, engine.Upsert(ctx, structuredSighting("prime")))

	stored, err := repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.True(t, stored.BasqueManual)
	assert.Equal(t, map[string]bool{"netflix": true, "prime": true}, stored.Providers)
	assert.Equal(t, day1, stored.CreatedAt)
	assert.Equal(t, day2, stored.UpdatedAt)
}

/*
TestEngine_UpsertRejectsAnonymousItems verifies the identity guard.
*/
func TestEngine_UpsertRejectsAnonymousItems(t *testing.T) {
	engine := newEngine(catalog.NewMemoryRepository(), day1)

	err := engine.Upsert(context.Background(), catalog.Incoming{Provider: "netflix"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

type failingRepository struct {
	catalog.Repository
	err error
}

func (repository failingRepository) Get(context.Context, string) (*catalog.Record, error) {
	return nil, repository.err
}

/*
TestEngine_UpsertPropagatesStoreErrors verifies that read failures abort the upsert.
*/
func TestEngine_UpsertPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	engine := newEngine(failingRepository{err: boom}, day1)

	err := engine.Upsert(context.Background(), structuredSighting("netflix"))
	assert.ErrorIs(t, err, boom)
}

/*
TestEngine_GetMissing verifies the NotFound mapping.
*/
func TestEngine_GetMissing(t *testing.T) {
	engine := newEngine(catalog.NewMemoryRepository(), day1)

	_, err := engine.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
}

/*
TestMemoryRepository_ListByProvider verifies filtering and pagination.
*/
func TestMemoryRepository_ListByProvider(t *testing.T) {
	ctx := context.Background()
	repo := catalog.NewMemoryRepository()
	engine := newEngine(repo, day1)

	for _, key := range []string{"1", "2", "3"} {
		incoming := structuredSighting("netflix")
		incoming.Key = key
		require.NoError(t, engine.Upsert(ctx, incoming))
	}
	require.NoError(t, engine.Upsert(ctx, catalog.Incoming{Key: "etb_goenkale", Provider: "etb", Title: "Goenkale"}))

	records, total, err := repo.List(ctx, catalog.Filter{Provider: "netflix"}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].Key)
	assert.Equal(t, "2", records[1].Key)

	records, total, err = repo.List(ctx, catalog.Filter{}, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, records, 1)
	assert.Equal(t, "etb_goenkale", records[0].Key)
}
