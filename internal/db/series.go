package db

import (
	"context"
	"fmt"
	"time"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/timeseries"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// SaveSeries replaces the cached hourly series of a scenario
func (db *DB) SaveSeries(ctx context.Context, scenario trips.Scenario, counts []timeseries.HourlyCount) error {
	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM hourly_series WHERE scenario = ?", string(scenario)); err != nil {
		return fmt.Errorf("failed to clear %s series: %w", scenario, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hourly_series (scenario, station_id, hour_ms, trips)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scenario, station_id, hour_ms) DO UPDATE SET trips = trips + excluded.trips
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare series statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range counts {
		if _, err := stmt.ExecContext(ctx, string(scenario), c.StationID, c.Hour.UnixMilli(), c.Trips); err != nil {
			return fmt.Errorf("failed to insert series row: %w", err)
		}
	}

	return tx.Commit()
}

// LoadSeries returns the cached series of a scenario sorted by station and
// hour. The boolean is false when nothing is cached. Hours come back in UTC.
func (db *DB) LoadSeries(ctx context.Context, scenario trips.Scenario) ([]timeseries.HourlyCount, bool, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT station_id, hour_ms, trips
		FROM hourly_series
		WHERE scenario = ?
		ORDER BY station_id, hour_ms
	`, string(scenario))
	if err != nil {
		return nil, false, fmt.Errorf("failed to query %s series: %w", scenario, err)
	}
	defer rows.Close()

	var counts []timeseries.HourlyCount
	for rows.Next() {
		var (
			c      timeseries.HourlyCount
			hourMS int64
		)
		if err := rows.Scan(&c.StationID, &hourMS, &c.Trips); err != nil {
			return nil, false, fmt.Errorf("failed to scan series row: %w", err)
		}
		c.Hour = time.UnixMilli(hourMS).UTC()
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	return counts, len(counts) > 0, nil
}
