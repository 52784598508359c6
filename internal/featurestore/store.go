// Package featurestore moves named tabular datasets in and out of a
// versioned feature group. PostgreSQL and protobuf file backends live here;
// the SQLite backend is db.FeatureStore.
package featurestore

import (
	"context"
	"errors"
	"fmt"
)

// ErrDatasetNotFound is returned by Get for an unknown dataset name
var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset is a named table of integer columns. Timestamps are stored as
// Unix milliseconds.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]int64
}

// Validate checks every row has one value per column
func (d Dataset) Validate() error {
	if d.Name == "" {
		return errors.New("dataset has no name")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("dataset %s row %d has %d values for %d columns", d.Name, i, len(row), len(d.Columns))
		}
	}
	return nil
}

// ColumnIndex returns the position of a column or -1
func (d Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// GroupSpec identifies a feature group
type GroupSpec struct {
	Name        string
	Version     int
	Description string
	PrimaryKey  []string
	EventTime   string
}

// GroupStatus tells whether GetOrCreateGroup made a new group
type GroupStatus int

const (
	GroupCreated GroupStatus = iota + 1
	GroupExisting
)

func (s GroupStatus) String() string {
	switch s {
	case GroupCreated:
		return "created"
	case GroupExisting:
		return "existing"
	default:
		return "unknown"
	}
}

// Group is a handle on a feature group. ID is assigned by the backend.
type Group struct {
	GroupSpec
	ID     int64
	Status GroupStatus
}

// Store is the external feature store boundary
type Store interface {
	// GetOrCreateGroup is idempotent: a second call for the same name and
	// version returns GroupExisting
	GetOrCreateGroup(ctx context.Context, spec GroupSpec) (Group, error)
	// Put replaces the dataset of the same name in the group
	Put(ctx context.Context, group Group, ds Dataset) error
	// Get returns ErrDatasetNotFound when the dataset was never put
	Get(ctx context.Context, group Group, name string) (Dataset, error)
	Close() error
}
