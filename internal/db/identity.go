package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/stations"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// SaveIdentityMap replaces the stored map for (scenario, policy).
// Insertion order is kept in the position column.
func (db *DB) SaveIdentityMap(ctx context.Context, scenario trips.Scenario, policy stations.Policy, m *stations.IdentityMap) error {
	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM identity_maps WHERE scenario = ? AND policy = ?",
		string(scenario), policy.String(),
	); err != nil {
		return fmt.Errorf("failed to clear identity map: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO identity_maps (scenario, policy, position, station_name, latitude, longitude, station_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare identity map statement: %w", err)
	}
	defer stmt.Close()

	now := nowUTC()
	for i, e := range m.Entries() {
		var lat, lng *float64
		if e.Key.HasCoords {
			lat, lng = &e.Key.Lat, &e.Key.Lng
		}
		if _, err := stmt.ExecContext(ctx,
			string(scenario), policy.String(), i, e.Key.Name, lat, lng, e.ID, now,
		); err != nil {
			return fmt.Errorf("failed to insert identity %s: %w", e.Key, err)
		}
	}

	return tx.Commit()
}

// LoadIdentityMap returns the stored map for (scenario, policy), or an empty
// map when none was saved
func (db *DB) LoadIdentityMap(ctx context.Context, scenario trips.Scenario, policy stations.Policy) (*stations.IdentityMap, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT station_name, latitude, longitude, station_id
		FROM identity_maps
		WHERE scenario = ? AND policy = ?
		ORDER BY position
	`, string(scenario), policy.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query identity map: %w", err)
	}
	defer rows.Close()

	m := stations.NewIdentityMap()
	for rows.Next() {
		var (
			k        stations.Key
			lat, lng sql.NullFloat64
			id       int64
		)
		if err := rows.Scan(&k.Name, &lat, &lng, &id); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		if lat.Valid && lng.Valid {
			k.Lat, k.Lng, k.HasCoords = lat.Float64, lng.Float64, true
		}
		m.Set(k, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return m, nil
}

// SaveStationNames upserts id → name pairs
func (db *DB) SaveStationNames(ctx context.Context, names map[int64]string) error {
	if len(names) == 0 {
		return nil
	}

	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO station_names (station_id, station_name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (station_id) DO UPDATE SET
			station_name = excluded.station_name,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare station name statement: %w", err)
	}
	defer stmt.Close()

	now := nowUTC()
	for id, name := range names {
		if _, err := stmt.ExecContext(ctx, id, name, now); err != nil {
			return fmt.Errorf("failed to save name of station %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// StationNames returns every known station name by id
func (db *DB) StationNames(ctx context.Context) (map[int64]string, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT station_id, station_name FROM station_names")
	if err != nil {
		return nil, fmt.Errorf("failed to query station names: %w", err)
	}
	defer rows.Close()

	names := make(map[int64]string)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}
