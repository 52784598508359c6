package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Run statuses
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// RunResult is what a finished pipeline run reports
type RunResult struct {
	Status       string
	Policy       string
	InputRecords int
	KeptRecords  int
	SeriesRows   int
	TrainingRows int
	Error        string
}

// Run is a stored pipeline run
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	RunResult
}

// CreateRun records the start of a pipeline run and returns its id
func (db *DB) CreateRun(ctx context.Context, startedAt time.Time) (string, error) {
	db.LockWrite()
	defer db.UnlockWrite()

	runID := uuid.New().String()
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO pipeline_runs (run_id, started_at_utc, status) VALUES (?, ?, ?)",
		runID, startedAt.UTC().Format(time.RFC3339), RunRunning,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	return runID, nil
}

// FinishRun stores the outcome of a run
func (db *DB) FinishRun(ctx context.Context, runID string, finishedAt time.Time, result RunResult) error {
	db.LockWrite()
	defer db.UnlockWrite()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE pipeline_runs SET
			finished_at_utc = ?,
			status = ?,
			policy = ?,
			input_records = ?,
			kept_records = ?,
			series_rows = ?,
			training_rows = ?,
			error = ?
		WHERE run_id = ?
	`,
		finishedAt.UTC().Format(time.RFC3339), result.Status, result.Policy,
		result.InputRecords, result.KeptRecords, result.SeriesRows, result.TrainingRows,
		result.Error, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetRun loads one run, returning nil when it does not exist
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		r          Run
		startedAt  string
		finishedAt sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT run_id, started_at_utc, finished_at_utc, status, policy,
			input_records, kept_records, series_rows, training_rows, error
		FROM pipeline_runs WHERE run_id = ?
	`, runID).Scan(
		&r.ID, &startedAt, &finishedAt, &r.Status, &r.Policy,
		&r.InputRecords, &r.KeptRecords, &r.SeriesRows, &r.TrainingRows, &r.Error,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if r.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, fmt.Errorf("run %s has bad start time: %w", runID, err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("run %s has bad finish time: %w", runID, err)
		}
		r.FinishedAt = &t
	}
	return &r, nil
}

// CleanupRuns deletes runs that started before now minus retention
func (db *DB) CleanupRuns(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	if retention < time.Hour {
		retention = time.Hour
	}
	cutoff := now.Add(-retention).UTC().Format(time.RFC3339)

	db.LockWrite()
	defer db.UnlockWrite()

	result, err := db.conn.ExecContext(ctx, "DELETE FROM pipeline_runs WHERE started_at_utc < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup runs: %w", err)
	}
	deleted, _ := result.RowsAffected()

	if deleted > 0 {
		log.Printf("Cleanup: deleted %d pipeline runs older than %s", deleted, retention)
	}
	return int(deleted), nil
}
