package pipeline

import (
	"context"
	"fmt"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/config"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/db"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/featurestore"
)

// OptionsFromConfig maps configuration onto run options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Stations:            cfg.StationOptions(),
		Window:              cfg.WindowOptions(),
		FeatureGroupVersion: cfg.FeatureGroupVersion,
		RunRetention:        cfg.RunRetention,
	}
}

// OpenStore opens the configured feature store backend. The SQLite backend
// shares the pipeline database.
func OpenStore(ctx context.Context, cfg *config.Config, database *db.DB) (featurestore.Store, error) {
	switch cfg.FeatureStore {
	case config.StoreSQLite:
		return db.NewFeatureStore(database), nil
	case config.StorePostgres:
		return featurestore.NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.StoreFile:
		return featurestore.NewFileStore(cfg.FeatureStoreDir)
	default:
		return nil, fmt.Errorf("unknown feature store %q", cfg.FeatureStore)
	}
}
