// Package pipeline runs the batch that turns raw trips into hourly series
// and training rows and pushes both to the feature store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/db"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/featurestore"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/metrics"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/stations"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/timeseries"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// Options configures one pipeline run
type Options struct {
	Stations            stations.Options
	Window              timeseries.WindowOptions
	ForInference        bool
	Reuse               bool // use cached hourly series when present
	FeatureGroupVersion int
	RunRetention        time.Duration
}

// Deps are the collaborators a run writes to
type Deps struct {
	DB    *db.DB
	Store featurestore.Store
	Now   func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// ScenarioReport summarises one scenario of a run
type ScenarioReport struct {
	Scenario     trips.Scenario
	FromCache    bool
	Stations     int
	SeriesRows   int
	TrainingRows int
	GroupStatus  featurestore.GroupStatus
}

// Report summarises a run
type Report struct {
	RunID     string
	Policy    stations.Policy
	Clean     trips.CleanReport
	Scenarios []ScenarioReport
}

// FeatureGroup is the feature group a scenario's datasets are pushed to
func FeatureGroup(scenario trips.Scenario, version int) featurestore.GroupSpec {
	return featurestore.GroupSpec{
		Name:        fmt.Sprintf("%s_hourly_trips", scenario),
		Version:     version,
		Description: fmt.Sprintf("Hourly %s per station", scenario.DisplayName()),
		PrimaryKey:  []string{fmt.Sprintf("%s_station_id", scenario), fmt.Sprintf("%s_hour", scenario)},
		EventTime:   timeseries.TimestampColumn,
	}
}

// Run executes the whole batch for the given raw records. The run is logged
// in the database whatever the outcome.
func Run(ctx context.Context, records []trips.Record, opts Options, deps Deps) (report *Report, err error) {
	runID, err := deps.DB.CreateRun(ctx, deps.now())
	if err != nil {
		return nil, err
	}
	report = &Report{RunID: runID}
	log.Printf("Pipeline: run %s started with %d records", runID, len(records))

	defer func() {
		result := db.RunResult{
			Status:       db.RunSucceeded,
			InputRecords: report.Clean.Input,
			KeptRecords:  report.Clean.Kept,
		}
		if report.Policy != 0 {
			result.Policy = report.Policy.String()
		}
		for _, s := range report.Scenarios {
			result.SeriesRows += s.SeriesRows
			result.TrainingRows += s.TrainingRows
		}
		if err != nil {
			result.Status = db.RunFailed
			result.Error = err.Error()
		}
		// the run context may already be cancelled
		if ferr := deps.DB.FinishRun(context.WithoutCancel(ctx), runID, deps.now(), result); ferr != nil {
			log.Printf("Pipeline: failed to finish run %s: %v", runID, ferr)
		}
	}()

	cleaned, cleanReport := trips.Clean(records)
	report.Clean = cleanReport

	sort.SliceStable(cleaned, func(i, j int) bool {
		if !cleaned[i].StartTime.Equal(cleaned[j].StartTime) {
			return cleaned[i].StartTime.Before(cleaned[j].StartTime)
		}
		return cleaned[i].EndTime.Before(cleaned[j].EndTime)
	})

	if len(cleaned) == 0 {
		return report, errors.New("no usable trip records after cleaning")
	}

	policy, err := stations.DecidePolicy(stations.Measure(cleaned), opts.ForInference, opts.Stations)
	if err != nil {
		return report, err
	}
	report.Policy = policy
	log.Printf("Pipeline: using %s station ids", policy)

	var cached map[trips.Scenario][]timeseries.HourlyCount
	if opts.Reuse {
		cached, err = loadCachedSeries(ctx, deps.DB)
		if err != nil {
			return report, err
		}
	}

	var relabeled map[trips.Scenario][]trips.StationTrip
	if cached == nil {
		relabeled, err = resolveStations(ctx, cleaned, policy, opts, deps)
		if err != nil {
			return report, err
		}
	}

	learner := metrics.NewStatsLearner(deps.DB)

	for _, scenario := range trips.AllScenarios() {
		sr := ScenarioReport{Scenario: scenario}

		counts, fromCache := cached[scenario]
		if !fromCache {
			counts = timeseries.Aggregate(relabeled[scenario])
			if err := deps.DB.SaveSeries(ctx, scenario, counts); err != nil {
				return report, err
			}
		}
		sr.FromCache = fromCache
		sr.SeriesRows = len(counts)

		group, err := deps.Store.GetOrCreateGroup(ctx, FeatureGroup(scenario, opts.FeatureGroupVersion))
		if err != nil {
			return report, fmt.Errorf("feature group for %s: %w", scenario, err)
		}
		sr.GroupStatus = group.Status
		log.Printf("Pipeline: feature group %s v%d (%s)", group.Name, group.Version, group.Status)

		if err := deps.Store.Put(ctx, group, timeseries.SeriesToDataset(scenario, counts)); err != nil {
			return report, fmt.Errorf("push %s series: %w", scenario, err)
		}

		series := timeseries.SplitByStation(counts)
		sr.Stations = len(series)

		rows, err := timeseries.BuildTrainingRows(ctx, series, scenario, opts.Window)
		if err != nil {
			return report, err
		}
		ds, err := timeseries.TrainingRowsToDataset(scenario, opts.Window.InputSeqLen, rows)
		if err != nil {
			return report, err
		}
		if err := deps.Store.Put(ctx, group, ds); err != nil {
			return report, fmt.Errorf("push %s training data: %w", scenario, err)
		}
		sr.TrainingRows = len(rows)

		if _, err := learner.Update(ctx, scenario, series); err != nil {
			log.Printf("Pipeline: station stats for %s not updated: %v", scenario, err)
		}

		report.Scenarios = append(report.Scenarios, sr)
		log.Printf("Pipeline: %s done (%d stations, %d series rows, %d training rows)",
			scenario.DisplayName(), sr.Stations, sr.SeriesRows, sr.TrainingRows)
	}

	if opts.RunRetention > 0 {
		if _, err := deps.DB.CleanupRuns(ctx, deps.now(), opts.RunRetention); err != nil {
			log.Printf("Pipeline: run cleanup failed: %v", err)
		}
	}

	return report, nil
}

// loadCachedSeries returns the cached series of every scenario, or nil when
// any scenario has none. Both series must come from the same identity maps.
func loadCachedSeries(ctx context.Context, database *db.DB) (map[trips.Scenario][]timeseries.HourlyCount, error) {
	cached := make(map[trips.Scenario][]timeseries.HourlyCount)
	for _, scenario := range trips.AllScenarios() {
		counts, ok, err := database.LoadSeries(ctx, scenario)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Printf("Pipeline: no cached %s series, rebuilding all scenarios", scenario.DisplayName())
			return nil, nil
		}
		cached[scenario] = counts
	}

	for _, scenario := range trips.AllScenarios() {
		log.Printf("Pipeline: reusing %d cached %s rows", len(cached[scenario]), scenario.DisplayName())
	}
	return cached, nil
}

// resolveStations assigns ids for both scenarios from one allocator,
// reconciles the two maps and only then relabels and persists them
func resolveStations(ctx context.Context, records []trips.Record, policy stations.Policy, opts Options, deps Deps) (map[trips.Scenario][]trips.StationTrip, error) {
	resolved := make(map[trips.Scenario][]stations.Resolved)
	maps := make(map[trips.Scenario]*stations.IdentityMap)

	seeds := make(map[trips.Scenario]*stations.IdentityMap)
	for _, scenario := range trips.AllScenarios() {
		seed, err := deps.DB.LoadIdentityMap(ctx, scenario, policy)
		if err != nil {
			return nil, err
		}
		seeds[scenario] = seed
	}
	alloc := stations.NewAllocator(seeds[trips.ScenarioStart], seeds[trips.ScenarioEnd])

	for _, scenario := range trips.AllScenarios() {
		r, m, err := stations.AssignSyntheticIDs(records, scenario, policy, opts.Stations.DecimalPlaces, seeds[scenario], alloc)
		if err != nil {
			return nil, err
		}
		resolved[scenario], maps[scenario] = r, m
	}

	startMap, endMap, err := stations.ReconcileMaps(maps[trips.ScenarioStart], maps[trips.ScenarioEnd])
	if err != nil {
		return nil, err
	}
	maps[trips.ScenarioStart], maps[trips.ScenarioEnd] = startMap, endMap

	out := make(map[trips.Scenario][]trips.StationTrip)
	for _, scenario := range trips.AllScenarios() {
		relabeled, err := stations.Relabel(resolved[scenario], maps[scenario])
		if err != nil {
			return nil, err
		}
		out[scenario] = relabeled

		if err := deps.DB.SaveIdentityMap(ctx, scenario, policy, maps[scenario]); err != nil {
			return nil, err
		}
	}

	if policy == stations.PolicyNameCoordinateMixed {
		names := endMap.Names()
		for id, name := range startMap.Names() {
			names[id] = name
		}
		if err := deps.DB.SaveStationNames(ctx, names); err != nil {
			return nil, err
		}
	}

	return out, nil
}
