package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/config"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/db"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/logging"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/pipeline"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config overlay")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	scenarioList := flag.String("scenarios", "start,end", "Comma separated scenarios to backfill")
	version := flag.Int("version", 0, "Feature group version (defaults to config)")
	flag.Parse()

	logging.Init("backfill-features")

	cfg := config.Load()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *version > 0 {
		cfg.FeatureGroupVersion = *version
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var scenarios []trips.Scenario
	for _, s := range strings.Split(*scenarioList, ",") {
		scenario, err := trips.ParseScenario(s)
		if err != nil {
			log.Fatalf("%v", err)
		}
		scenarios = append(scenarios, scenario)
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	store, err := pipeline.OpenStore(ctx, cfg, database)
	if err != nil {
		log.Fatalf("Failed to open feature store: %v", err)
	}
	defer store.Close()

	pushed, err := pipeline.Backfill(ctx, scenarios, cfg.FeatureGroupVersion, pipeline.Deps{DB: database, Store: store})
	if err != nil {
		log.Fatalf("Backfill failed: %v", err)
	}

	total := 0
	for _, n := range pushed {
		total += n
	}
	log.Printf("Backfilled %d rows across %d scenarios", total, len(pushed))
}
