package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// FeatureGroup is a stored feature group row
type FeatureGroup struct {
	ID          int64
	Name        string
	Version     int
	Description string
	PrimaryKey  []string
	EventTime   string
}

// GetOrCreateFeatureGroup returns the group with the given name and version,
// creating it first if needed. created reports which of the two happened.
func (db *DB) GetOrCreateFeatureGroup(ctx context.Context, g FeatureGroup) (FeatureGroup, bool, error) {
	db.LockWrite()
	defer db.UnlockWrite()

	pk, err := json.Marshal(g.PrimaryKey)
	if err != nil {
		return FeatureGroup{}, false, err
	}

	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO feature_groups (name, version, description, primary_key, event_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, version) DO NOTHING
	`, g.Name, g.Version, g.Description, string(pk), g.EventTime, nowUTC())
	if err != nil {
		return FeatureGroup{}, false, fmt.Errorf("failed to create feature group %s: %w", g.Name, err)
	}
	inserted, _ := res.RowsAffected()

	var (
		out    FeatureGroup
		pkJSON string
	)
	err = db.conn.QueryRowContext(ctx, `
		SELECT group_id, name, version, description, primary_key, event_time
		FROM feature_groups WHERE name = ? AND version = ?
	`, g.Name, g.Version).Scan(&out.ID, &out.Name, &out.Version, &out.Description, &pkJSON, &out.EventTime)
	if err != nil {
		return FeatureGroup{}, false, fmt.Errorf("failed to load feature group %s: %w", g.Name, err)
	}
	if err := json.Unmarshal([]byte(pkJSON), &out.PrimaryKey); err != nil {
		return FeatureGroup{}, false, fmt.Errorf("feature group %s has bad primary key: %w", g.Name, err)
	}

	return out, inserted > 0, nil
}

// ReplaceDataset stores a dataset in a group, replacing rows of the same name
func (db *DB) ReplaceDataset(ctx context.Context, groupID int64, name string, columns []string, rows [][]int64) error {
	cols, err := json.Marshal(columns)
	if err != nil {
		return err
	}

	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM feature_rows WHERE group_id = ? AND dataset = ?", groupID, name,
	); err != nil {
		return fmt.Errorf("failed to clear dataset %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO feature_datasets (group_id, name, columns, row_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (group_id, name) DO UPDATE SET
			columns = excluded.columns,
			row_count = excluded.row_count,
			updated_at = excluded.updated_at
	`, groupID, name, string(cols), len(rows), nowUTC()); err != nil {
		return fmt.Errorf("failed to save dataset %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO feature_rows (group_id, dataset, row_index, row_values) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare feature row statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		values, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, groupID, name, i, string(values)); err != nil {
			return fmt.Errorf("failed to insert row %d of %s: %w", i, name, err)
		}
	}

	return tx.Commit()
}

// LoadDataset returns the columns and rows of a stored dataset.
// found is false when the dataset was never stored.
func (db *DB) LoadDataset(ctx context.Context, groupID int64, name string) (columns []string, rows [][]int64, found bool, err error) {
	var cols string
	err = db.conn.QueryRowContext(ctx,
		"SELECT columns FROM feature_datasets WHERE group_id = ? AND name = ?", groupID, name,
	).Scan(&cols)
	if err == sql.ErrNoRows {
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to load dataset %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(cols), &columns); err != nil {
		return nil, nil, false, fmt.Errorf("dataset %s has bad columns: %w", name, err)
	}

	result, err := db.conn.QueryContext(ctx,
		"SELECT row_values FROM feature_rows WHERE group_id = ? AND dataset = ? ORDER BY row_index", groupID, name)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to query rows of %s: %w", name, err)
	}
	defer result.Close()

	for result.Next() {
		var raw string
		if err := result.Scan(&raw); err != nil {
			return nil, nil, false, err
		}
		var row []int64
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			return nil, nil, false, fmt.Errorf("dataset %s has a bad row: %w", name, err)
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, nil, false, err
	}

	return columns, rows, true, nil
}
