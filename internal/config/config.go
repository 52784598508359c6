package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/stations"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/timeseries"
)

// Feature store backends
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreFile     = "file"
)

// Config holds all configuration for the feature pipeline
type Config struct {
	// Windowing
	InputSeqLen int `yaml:"input_seq_len" validate:"min=1"`
	StepSize    int `yaml:"step_size" validate:"min=1"`
	Workers     int `yaml:"workers" validate:"min=1"`

	// Station identity
	LargeDatasetThreshold   int     `yaml:"large_dataset_threshold" validate:"min=0"`
	InvalidIDRatioThreshold float64 `yaml:"invalid_id_ratio_threshold" validate:"gte=0,lte=1"`
	DecimalPlaces           int     `yaml:"coordinate_decimal_places" validate:"min=0,max=15"`

	// Data
	DatabasePath string `yaml:"database_path" validate:"required"`
	RawDataDir   string `yaml:"raw_data_dir" validate:"required"`
	MonthsOffset int    `yaml:"months_offset" validate:"min=0,max=11"`

	// Feature store
	FeatureStore        string `yaml:"feature_store" validate:"oneof=sqlite postgres file"`
	DatabaseURL         string `yaml:"database_url" validate:"required_if=FeatureStore postgres"`
	FeatureStoreDir     string `yaml:"feature_store_dir" validate:"required_if=FeatureStore file"`
	FeatureGroupVersion int    `yaml:"feature_group_version" validate:"min=1"`

	// Housekeeping
	RunRetention time.Duration `yaml:"run_retention" validate:"min=1h"`
}

// Load reads .env files and environment variables with sensible defaults.
// Values in .env.local override .env.
func Load() *Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	return &Config{
		InputSeqLen: getEnvInt("INPUT_SEQ_LEN", 672),
		StepSize:    getEnvInt("STEP_SIZE", 1),
		Workers:     getEnvInt("WORKERS", 4),

		LargeDatasetThreshold:   getEnvInt("LARGE_DATASET_THRESHOLD", 10_000_000),
		InvalidIDRatioThreshold: getEnvFloat("INVALID_ID_RATIO_THRESHOLD", 0.5),
		DecimalPlaces:           getEnvInt("COORDINATE_DECIMAL_PLACES", 6),

		DatabasePath: getEnv("SQLITE_DATABASE", "data/divvy.db"),
		RawDataDir:   getEnv("RAW_DATA_DIR", "data/raw"),
		MonthsOffset: getEnvInt("MONTHS_OFFSET", 6),

		FeatureStore:        getEnv("FEATURE_STORE", StoreSQLite),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		FeatureStoreDir:     getEnv("FEATURE_STORE_DIR", "data/feature_store"),
		FeatureGroupVersion: getEnvInt("FEATURE_GROUP_VERSION", 1),

		RunRetention: time.Duration(getEnvInt("RUN_RETENTION_DAYS", 30)) * 24 * time.Hour,
	}
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current value.
func (cfg *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration against its struct tags
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// StationOptions returns the station identity thresholds
func (cfg *Config) StationOptions() stations.Options {
	return stations.Options{
		LargeDatasetThreshold:   cfg.LargeDatasetThreshold,
		InvalidIDRatioThreshold: cfg.InvalidIDRatioThreshold,
		DecimalPlaces:           cfg.DecimalPlaces,
	}
}

// WindowOptions returns the windowing settings
func (cfg *Config) WindowOptions() timeseries.WindowOptions {
	return timeseries.WindowOptions{
		InputSeqLen: cfg.InputSeqLen,
		StepSize:    cfg.StepSize,
		Workers:     cfg.Workers,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
