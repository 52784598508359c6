package db

import (
	"context"
	"fmt"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/featurestore"
)

// FeatureStore is the SQLite feature store backend
type FeatureStore struct {
	db *DB
}

// NewFeatureStore wraps an open database
func NewFeatureStore(db *DB) *FeatureStore {
	return &FeatureStore{db: db}
}

var _ featurestore.Store = (*FeatureStore)(nil)

func (s *FeatureStore) GetOrCreateGroup(ctx context.Context, spec featurestore.GroupSpec) (featurestore.Group, error) {
	g, created, err := s.db.GetOrCreateFeatureGroup(ctx, FeatureGroup{
		Name:        spec.Name,
		Version:     spec.Version,
		Description: spec.Description,
		PrimaryKey:  spec.PrimaryKey,
		EventTime:   spec.EventTime,
	})
	if err != nil {
		return featurestore.Group{}, err
	}

	status := featurestore.GroupExisting
	if created {
		status = featurestore.GroupCreated
	}
	return featurestore.Group{
		GroupSpec: featurestore.GroupSpec{
			Name:        g.Name,
			Version:     g.Version,
			Description: g.Description,
			PrimaryKey:  g.PrimaryKey,
			EventTime:   g.EventTime,
		},
		ID:     g.ID,
		Status: status,
	}, nil
}

func (s *FeatureStore) Put(ctx context.Context, group featurestore.Group, ds featurestore.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	return s.db.ReplaceDataset(ctx, group.ID, ds.Name, ds.Columns, ds.Rows)
}

func (s *FeatureStore) Get(ctx context.Context, group featurestore.Group, name string) (featurestore.Dataset, error) {
	cols, rows, found, err := s.db.LoadDataset(ctx, group.ID, name)
	if err != nil {
		return featurestore.Dataset{}, err
	}
	if !found {
		return featurestore.Dataset{}, fmt.Errorf("%s in group %s v%d: %w", name, group.Name, group.Version, featurestore.ErrDatasetNotFound)
	}
	return featurestore.Dataset{Name: name, Columns: cols, Rows: rows}, nil
}

// Close is a no-op; the database is owned by the caller
func (s *FeatureStore) Close() error { return nil }
