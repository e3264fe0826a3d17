// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/ikusare/internal/platform/database/schema"
	"github.com/taibuivan/ikusare/internal/platform/dberr"
)

// # PostgreSQL Repositories

/*
PostgresRepository implements [Repository] using pgx.

Records are stored as JSONB documents keyed by their canonical identity, so the
table behaves as a key-value document store:
  - Put: INSERT ... ON CONFLICT DO UPDATE replaces the whole document.
  - List: a GIN index on document->'providers' serves per-provider listings.
  - COUNT(*) OVER() returns the total without a second query.
*/
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed catalogue store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get implements [Repository].
func (repository *PostgresRepository) Get(context context.Context, key string) (*Record, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1;
	`,
		schema.CatalogRecord.Document,
		schema.CatalogRecord.Table,
		schema.CatalogRecord.Key,
	)

	var doc []byte
	err := repository.pool.QueryRow(context, query, key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dberr.Wrap(err, "get_catalog_record")
	}

	return decodeRecord(doc)
}

// Put implements [Repository].
func (repository *PostgresRepository) Put(context context.Context, record Record) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("catalog: encode record %s: %w", record.Key, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (%s) DO UPDATE SET
			%s = excluded.%s,
			%s = excluded.%s;
	`,
		schema.CatalogRecord.Table,
		schema.CatalogRecord.Key,
		schema.CatalogRecord.Document,
		schema.CatalogRecord.CreatedAt,
		schema.CatalogRecord.UpdatedAt,
		schema.CatalogRecord.Key,
		schema.CatalogRecord.Document, schema.CatalogRecord.Document,
		schema.CatalogRecord.UpdatedAt, schema.CatalogRecord.UpdatedAt,
	)

	_, err = repository.pool.Exec(context, query, record.Key, doc, record.CreatedAt, record.UpdatedAt)
	return dberr.Wrap(err, "put_catalog_record")
}

// List implements [Repository].
func (repository *PostgresRepository) List(context context.Context, filter Filter, limit, offset int) ([]*Record, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM %s
		WHERE $1 = '' OR %s -> 'providers' @> jsonb_build_object($1::text, true)
		ORDER BY %s ASC
		LIMIT $2 OFFSET $3;
	`,
		schema.CatalogRecord.Document,
		schema.CatalogRecord.Table,
		schema.CatalogRecord.Document,
		schema.CatalogRecord.Key,
	)

	rows, err := repository.pool.Query(context, query, filter.Provider, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_catalog_records")
	}
	defer rows.Close()

	records := []*Record{}
	total := 0
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc, &total); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_catalog_record")
		}
		record, err := decodeRecord(doc)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "list_catalog_records")
	}

	return records, total, nil
}
