package featurestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS fs_feature_groups (
    group_id     BIGSERIAL PRIMARY KEY,
    name         TEXT NOT NULL,
    version      INTEGER NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    primary_key  TEXT[] NOT NULL DEFAULT '{}',
    event_time   TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (name, version)
);

CREATE TABLE IF NOT EXISTS fs_datasets (
    group_id     BIGINT NOT NULL REFERENCES fs_feature_groups (group_id) ON DELETE CASCADE,
    name         TEXT NOT NULL,
    columns      TEXT[] NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (group_id, name)
);

CREATE TABLE IF NOT EXISTS fs_rows (
    group_id     BIGINT NOT NULL,
    dataset      TEXT NOT NULL,
    row_index    INTEGER NOT NULL,
    row_values   BIGINT[] NOT NULL,
    PRIMARY KEY (group_id, dataset, row_index),
    FOREIGN KEY (group_id, dataset) REFERENCES fs_datasets (group_id, name) ON DELETE CASCADE
);
`

// PostgresStore is the shared feature store backend
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and ensures the feature store tables
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create feature store schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetOrCreateGroup(ctx context.Context, spec GroupSpec) (Group, error) {
	pk := spec.PrimaryKey
	if pk == nil {
		pk = []string{}
	}

	g := Group{GroupSpec: spec, Status: GroupCreated}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO fs_feature_groups (name, version, description, primary_key, event_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name, version) DO NOTHING
		RETURNING group_id
	`, spec.Name, spec.Version, spec.Description, pk, spec.EventTime).Scan(&g.ID)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Group{}, fmt.Errorf("failed to create feature group %s: %w", spec.Name, err)
	}

	g.Status = GroupExisting
	err = s.pool.QueryRow(ctx, `
		SELECT group_id, description, primary_key, event_time
		FROM fs_feature_groups WHERE name = $1 AND version = $2
	`, spec.Name, spec.Version).Scan(&g.ID, &g.Description, &g.PrimaryKey, &g.EventTime)
	if err != nil {
		return Group{}, fmt.Errorf("failed to load feature group %s: %w", spec.Name, err)
	}
	return g, nil
}

func (s *PostgresStore) Put(ctx context.Context, group Group, ds Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM fs_rows WHERE group_id = $1 AND dataset = $2", group.ID, ds.Name); err != nil {
		return fmt.Errorf("failed to clear dataset %s: %w", ds.Name, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO fs_datasets (group_id, name, columns, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (group_id, name) DO UPDATE SET
			columns = EXCLUDED.columns,
			updated_at = EXCLUDED.updated_at
	`, group.ID, ds.Name, ds.Columns); err != nil {
		return fmt.Errorf("failed to save dataset %s: %w", ds.Name, err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"fs_rows"},
		[]string{"group_id", "dataset", "row_index", "row_values"},
		pgx.CopyFromSlice(len(ds.Rows), func(i int) ([]any, error) {
			return []any{group.ID, ds.Name, i, ds.Rows[i]}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy rows of %s: %w", ds.Name, err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, group Group, name string) (Dataset, error) {
	ds := Dataset{Name: name}
	err := s.pool.QueryRow(ctx,
		"SELECT columns FROM fs_datasets WHERE group_id = $1 AND name = $2", group.ID, name,
	).Scan(&ds.Columns)
	if errors.Is(err, pgx.ErrNoRows) {
		return Dataset{}, fmt.Errorf("%s in group %s v%d: %w", name, group.Name, group.Version, ErrDatasetNotFound)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to load dataset %s: %w", name, err)
	}

	rows, err := s.pool.Query(ctx,
		"SELECT row_values FROM fs_rows WHERE group_id = $1 AND dataset = $2 ORDER BY row_index", group.ID, name)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to query rows of %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var values []int64
		if err := rows.Scan(&values); err != nil {
			return Dataset{}, fmt.Errorf("failed to scan row of %s: %w", name, err)
		}
		ds.Rows = append(ds.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return Dataset{}, err
	}

	return ds, nil
}
