package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/config"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/db"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/logging"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/pipeline"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config overlay")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	rawDir := flag.String("raw-dir", "", "Directory of monthly trip CSVs (overrides config)")
	inference := flag.Bool("inference", false, "Prepare features for inference (native ids allowed)")
	reuse := flag.Bool("reuse", false, "Reuse cached hourly series when present")
	schedule := flag.String("schedule", "", "Cron spec (with seconds) to run repeatedly, e.g. \"0 0 * * * *\"")
	flag.Parse()

	logging.Init("feature-pipeline")
	log.Println("Starting feature pipeline...")

	// Load configuration
	cfg := config.Load()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *rawDir != "" {
		cfg.RawDataDir = *rawDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Config loaded: seq_len=%d, step=%d, store=%s", cfg.InputSeqLen, cfg.StepSize, cfg.FeatureStore)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Initialize Database and Feature Store
	// ═══════════════════════════════════════════════════════
	database, err := db.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()
	log.Println("Database initialized")

	store, err := pipeline.OpenStore(ctx, cfg, database)
	if err != nil {
		log.Fatalf("Failed to open feature store: %v", err)
	}
	defer store.Close()

	opts := pipeline.OptionsFromConfig(cfg)
	opts.ForInference = *inference
	opts.Reuse = *reuse
	deps := pipeline.Deps{DB: database, Store: store}

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Single Run
	// ═══════════════════════════════════════════════════════
	if *schedule == "" {
		if err := runOnce(ctx, cfg, opts, deps); err != nil {
			log.Fatalf("Pipeline failed: %v", err)
		}
		log.Println("Done")
		return
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Scheduled Runs
	// ═══════════════════════════════════════════════════════
	job := &scheduledRun{fn: func() error { return runOnce(ctx, cfg, opts, deps) }}

	c := cron.New()
	if err := c.AddFunc(*schedule, job.tick); err != nil {
		log.Fatalf("Invalid schedule %q: %v", *schedule, err)
	}
	c.Start()
	log.Printf("Pipeline scheduled (%s)", *schedule)

	// ═══════════════════════════════════════════════════════
	// PHASE 4: Graceful Shutdown
	// ═══════════════════════════════════════════════════════
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	c.Stop()
	cancel()

	// wait for an in-flight run to record its outcome
	job.wait()
	log.Println("Goodbye!")
}

// scheduledRun runs fn at most once at a time
type scheduledRun struct {
	mu sync.Mutex
	fn func() error
}

// tick starts a run unless the previous one is still going
func (r *scheduledRun) tick() {
	if !r.mu.TryLock() {
		log.Println("Previous run still in progress, skipping")
		return
	}
	defer r.mu.Unlock()

	if err := r.fn(); err != nil {
		log.Printf("Scheduled run failed: %v", err)
	}
}

// wait blocks until no run is in progress
func (r *scheduledRun) wait() {
	r.mu.Lock()
	r.mu.Unlock()
}

func runOnce(ctx context.Context, cfg *config.Config, opts pipeline.Options, deps pipeline.Deps) error {
	periods := trips.MonthsOfInterest(time.Now(), cfg.MonthsOffset)
	records, err := trips.LoadDir(cfg.RawDataDir, periods)
	if err != nil {
		return err
	}

	report, err := pipeline.Run(ctx, records, opts, deps)
	if err != nil {
		return err
	}

	log.Printf("Run %s: %d of %d records kept, %s ids",
		report.RunID, report.Clean.Kept, report.Clean.Input, report.Policy)
	for _, s := range report.Scenarios {
		log.Printf("  %-10s stations=%d series=%d training=%d cached=%v group=%s",
			s.Scenario, s.Stations, s.SeriesRows, s.TrainingRows, s.FromCache, s.GroupStatus)
	}
	return nil
}
