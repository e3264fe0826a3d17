// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalogsync

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/ikusare/internal/platform/database/schema"
	"github.com/taibuivan/ikusare/internal/platform/dberr"
)

// PostgresMetaRepository implements [MetaRepository] using pgx.
type PostgresMetaRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMetaRepository constructs a PostgreSQL backed run-meta store.
func NewPostgresMetaRepository(pool *pgxpool.Pool) *PostgresMetaRepository {
	return &PostgresMetaRepository{pool: pool}
}

// Load implements [MetaRepository].
func (repository *PostgresMetaRepository) Load(context context.Context) (RunMeta, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM %s;
	`,
		schema.CatalogSyncProvider.Provider,
		schema.CatalogSyncProvider.LastRun,
		schema.CatalogSyncProvider.Table,
	)

	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "load_run_meta")
	}
	defer rows.Close()

	meta := RunMeta{}
	for rows.Next() {
		var provider, lastRun string
		if err := rows.Scan(&provider, &lastRun); err != nil {
			return nil, dberr.Wrap(err, "scan_run_meta")
		}
		meta[provider] = lastRun
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "load_run_meta")
	}

	return meta, nil
}

// SaveLastRun implements [MetaRepository].
func (repository *PostgresMetaRepository) SaveLastRun(context context.Context, provider, date string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s)
		VALUES ($1, $2, now())
		ON CONFLICT (%s) DO UPDATE SET
			%s = excluded.%s,
			%s = now();
	`,
		schema.CatalogSyncProvider.Table,
		schema.CatalogSyncProvider.Provider,
		schema.CatalogSyncProvider.LastRun,
		schema.CatalogSyncProvider.UpdatedAt,
		schema.CatalogSyncProvider.Provider,
		schema.CatalogSyncProvider.LastRun, schema.CatalogSyncProvider.LastRun,
		schema.CatalogSyncProvider.UpdatedAt,
	)

	_, err := repository.pool.Exec(context, query, provider, date)
	return dberr.Wrap(err, "save_run_meta")
}
