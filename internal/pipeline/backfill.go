package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/timeseries"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// Backfill pushes the cached hourly series of each scenario to its feature
// group. It returns the number of rows pushed per scenario.
func Backfill(ctx context.Context, scenarios []trips.Scenario, version int, deps Deps) (map[trips.Scenario]int, error) {
	pushed := make(map[trips.Scenario]int, len(scenarios))

	for _, scenario := range scenarios {
		counts, ok, err := deps.DB.LoadSeries(ctx, scenario)
		if err != nil {
			return pushed, err
		}
		if !ok {
			return pushed, fmt.Errorf("no cached %s series to backfill, run the feature pipeline first", scenario)
		}

		group, err := deps.Store.GetOrCreateGroup(ctx, FeatureGroup(scenario, version))
		if err != nil {
			return pushed, fmt.Errorf("feature group for %s: %w", scenario, err)
		}

		if err := deps.Store.Put(ctx, group, timeseries.SeriesToDataset(scenario, counts)); err != nil {
			return pushed, fmt.Errorf("backfill %s: %w", scenario, err)
		}

		pushed[scenario] = len(counts)
		log.Printf("Backfill: pushed %d %s rows to %s v%d (%s)",
			len(counts), scenario.DisplayName(), group.Name, group.Version, group.Status)
	}

	return pushed, nil
}
