package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.InputSeqLen != 672 || cfg.StepSize != 1 {
		t.Errorf("unexpected window defaults %d/%d", cfg.InputSeqLen, cfg.StepSize)
	}
	if cfg.LargeDatasetThreshold != 10_000_000 || cfg.InvalidIDRatioThreshold != 0.5 || cfg.DecimalPlaces != 6 {
		t.Errorf("unexpected station defaults %+v", cfg.StationOptions())
	}
	if cfg.FeatureStore != StoreSQLite {
		t.Errorf("expected sqlite store, got %q", cfg.FeatureStore)
	}
	if cfg.RunRetention != 30*24*time.Hour {
		t.Errorf("unexpected retention %v", cfg.RunRetention)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("INPUT_SEQ_LEN", "24")
	t.Setenv("INVALID_ID_RATIO_THRESHOLD", "0.25")
	t.Setenv("WORKERS", "not a number")
	t.Setenv("RUN_RETENTION_DAYS", "2")

	cfg := Load()
	if cfg.InputSeqLen != 24 {
		t.Errorf("expected 24, got %d", cfg.InputSeqLen)
	}
	if cfg.InvalidIDRatioThreshold != 0.25 {
		t.Errorf("expected 0.25, got %v", cfg.InvalidIDRatioThreshold)
	}
	if cfg.Workers != 4 {
		t.Errorf("bad integer should fall back to default, got %d", cfg.Workers)
	}
	if cfg.RunRetention != 48*time.Hour {
		t.Errorf("expected 48h, got %v", cfg.RunRetention)
	}
	if got := cfg.WindowOptions(); got.InputSeqLen != 24 || got.Workers != 4 {
		t.Errorf("unexpected window options %+v", got)
	}
}

func TestLoadFile_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yml")
	content := `
input_seq_len: 168
step_size: 24
feature_store: file
feature_store_dir: /tmp/fs
run_retention: 72h
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.InputSeqLen != 168 || cfg.StepSize != 24 {
		t.Errorf("overlay not applied: %d/%d", cfg.InputSeqLen, cfg.StepSize)
	}
	if cfg.FeatureStore != StoreFile || cfg.FeatureStoreDir != "/tmp/fs" {
		t.Errorf("unexpected store settings %q %q", cfg.FeatureStore, cfg.FeatureStoreDir)
	}
	if cfg.RunRetention != 72*time.Hour {
		t.Errorf("expected 72h, got %v", cfg.RunRetention)
	}
	if cfg.DecimalPlaces != 6 {
		t.Errorf("keys absent from the file should keep defaults, got %d", cfg.DecimalPlaces)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg := Load()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.InputSeqLen = 0 }},
		{"zero step", func(c *Config) { c.StepSize = 0 }},
		{"ratio above one", func(c *Config) { c.InvalidIDRatioThreshold = 1.5 }},
		{"unknown store", func(c *Config) { c.FeatureStore = "s3" }},
		{"postgres without url", func(c *Config) { c.FeatureStore = StorePostgres; c.DatabaseURL = "" }},
		{"offset too large", func(c *Config) { c.MonthsOffset = 12 }},
		{"short retention", func(c *Config) { c.RunRetention = time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
