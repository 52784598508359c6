package db

import (
	"context"
	"fmt"
	"time"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/metrics"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// StationStats returns the stored baselines of a scenario
func (db *DB) StationStats(ctx context.Context, scenario trips.Scenario) (map[metrics.StatsKey]metrics.StationStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT station_id, hour_of_day, trips_mean, trips_stddev, sample_count, last_hour_utc
		FROM station_stats
		WHERE scenario = ?
	`, string(scenario))
	if err != nil {
		return nil, fmt.Errorf("failed to query station stats: %w", err)
	}
	defer rows.Close()

	out := make(map[metrics.StatsKey]metrics.StationStats)
	for rows.Next() {
		s := metrics.StationStats{Scenario: scenario}
		var lastHour string
		if err := rows.Scan(&s.StationID, &s.HourOfDay, &s.TripsMean, &s.TripsStdDev, &s.SampleCount, &lastHour); err != nil {
			return nil, err
		}
		if s.LastHour, err = time.Parse(time.RFC3339, lastHour); err != nil {
			return nil, fmt.Errorf("station %d has bad last hour: %w", s.StationID, err)
		}
		out[metrics.StatsKey{StationID: s.StationID, HourOfDay: s.HourOfDay}] = s
	}
	return out, rows.Err()
}

// SaveStationStats upserts station baselines
func (db *DB) SaveStationStats(ctx context.Context, stats []metrics.StationStats) error {
	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO station_stats (scenario, station_id, hour_of_day, trips_mean, trips_stddev, sample_count, last_hour_utc, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scenario, station_id, hour_of_day) DO UPDATE SET
			trips_mean = excluded.trips_mean,
			trips_stddev = excluded.trips_stddev,
			sample_count = excluded.sample_count,
			last_hour_utc = excluded.last_hour_utc,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare station stats statement: %w", err)
	}
	defer stmt.Close()

	now := nowUTC()
	for _, s := range stats {
		if _, err := stmt.ExecContext(ctx,
			string(s.Scenario), s.StationID, s.HourOfDay,
			s.TripsMean, s.TripsStdDev, s.SampleCount,
			s.LastHour.UTC().Format(time.RFC3339), now,
		); err != nil {
			return fmt.Errorf("failed to save stats of station %d: %w", s.StationID, err)
		}
	}

	return tx.Commit()
}
