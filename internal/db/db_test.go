package db

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/metrics"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/stations"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/timeseries"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "divvy.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Errorf("second EnsureSchema failed: %v", err)
	}
}

func TestIdentityMap_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m := stations.NewIdentityMap(
		stations.Entry{Key: stations.Key{Name: "Clark St", Lat: 41.88, Lng: -87.63, HasCoords: true}, ID: 5},
		stations.Entry{Key: stations.Key{Name: "Name only"}, ID: 2},
		stations.Entry{Key: stations.Key{Lat: 41.9, Lng: -87.7, HasCoords: true}, ID: 9},
	)

	if err := db.SaveIdentityMap(ctx, trips.ScenarioEnd, stations.PolicyNameCoordinateMixed, m); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := db.LoadIdentityMap(ctx, trips.ScenarioEnd, stations.PolicyNameCoordinateMixed)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !got.Equal(m) {
		t.Errorf("loaded map differs:\n got %v\nwant %v", got.Entries(), m.Entries())
	}
	if got.Max() != 9 {
		t.Errorf("expected max 9, got %d", got.Max())
	}

	other, err := db.LoadIdentityMap(ctx, trips.ScenarioStart, stations.PolicyNameCoordinateMixed)
	if err != nil || other.Len() != 0 {
		t.Errorf("expected empty map for other scenario, got %d entries (%v)", other.Len(), err)
	}

	// saving again replaces rather than appends
	small := stations.NewIdentityMap(stations.Entry{Key: stations.Key{Name: "Only"}, ID: 1})
	if err := db.SaveIdentityMap(ctx, trips.ScenarioEnd, stations.PolicyNameCoordinateMixed, small); err != nil {
		t.Fatal(err)
	}
	got, _ = db.LoadIdentityMap(ctx, trips.ScenarioEnd, stations.PolicyNameCoordinateMixed)
	if got.Len() != 1 {
		t.Errorf("expected 1 entry after replace, got %d", got.Len())
	}
}

func TestStationNames(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.SaveStationNames(ctx, map[int64]string{1: "Clark St", 2: "Wells St"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveStationNames(ctx, map[int64]string{2: "Wells St & Elm"}); err != nil {
		t.Fatal(err)
	}

	names, err := db.StationNames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[int64]string{1: "Clark St", 2: "Wells St & Elm"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("got %v, want %v", names, want)
	}
}

func TestSeries_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.LoadSeries(ctx, trips.ScenarioStart); err != nil || ok {
		t.Fatalf("expected empty cache, ok=%v err=%v", ok, err)
	}

	h := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	counts := []timeseries.HourlyCount{
		{Hour: h.Add(time.Hour), StationID: 2, Trips: 1},
		{Hour: h, StationID: 1, Trips: 4},
		{Hour: h, StationID: 2, Trips: 3},
	}
	if err := db.SaveSeries(ctx, trips.ScenarioStart, counts); err != nil {
		t.Fatal(err)
	}

	got, ok, err := db.LoadSeries(ctx, trips.ScenarioStart)
	if err != nil || !ok {
		t.Fatalf("expected cached series, ok=%v err=%v", ok, err)
	}
	if len(got) != 3 || got[0].StationID != 1 || !got[2].Hour.Equal(h.Add(time.Hour)) {
		t.Errorf("unexpected series %+v", got)
	}
}

func TestRuns_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

	oldID, err := db.CreateRun(ctx, now.Add(-40*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	runID, err := db.CreateRun(ctx, now)
	if err != nil {
		t.Fatal(err)
	}

	result := RunResult{Status: RunSucceeded, Policy: "rounded_coordinate", InputRecords: 10, KeptRecords: 9, SeriesRows: 4, TrainingRows: 2}
	if err := db.FinishRun(ctx, runID, now.Add(time.Minute), result); err != nil {
		t.Fatal(err)
	}
	if err := db.FinishRun(ctx, "missing", now, result); err == nil {
		t.Error("expected error finishing unknown run")
	}

	run, err := db.GetRun(ctx, runID)
	if err != nil || run == nil {
		t.Fatalf("run not found: %v", err)
	}
	if run.RunResult != result || run.FinishedAt == nil {
		t.Errorf("unexpected run %+v", run)
	}

	deleted, err := db.CleanupRuns(ctx, now, 30*24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted run, got %d", deleted)
	}
	if r, _ := db.GetRun(ctx, oldID); r != nil {
		t.Error("old run should be gone")
	}
}

func TestStationStats_Upsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	last := time.Date(2024, 8, 1, 8, 0, 0, 0, time.UTC)

	stats := []metrics.StationStats{
		{Scenario: trips.ScenarioStart, StationID: 1, HourOfDay: 8, TripsMean: 2.5, TripsStdDev: 0.5, SampleCount: 2, LastHour: last},
	}
	if err := db.SaveStationStats(ctx, stats); err != nil {
		t.Fatal(err)
	}
	stats[0].SampleCount = 3
	if err := db.SaveStationStats(ctx, stats); err != nil {
		t.Fatal(err)
	}

	got, err := db.StationStats(ctx, trips.ScenarioStart)
	if err != nil {
		t.Fatal(err)
	}
	s := got[metrics.StatsKey{StationID: 1, HourOfDay: 8}]
	if s.SampleCount != 3 || !s.LastHour.Equal(last) {
		t.Errorf("unexpected stats %+v", s)
	}

	// the learner runs against the database directly
	learner := metrics.NewStatsLearner(db)
	series := []timeseries.StationSeries{{StationID: 1, Points: []timeseries.HourlyCount{
		{Hour: last.Add(24 * time.Hour), StationID: 1, Trips: 4},
	}}}
	if n, err := learner.Update(ctx, trips.ScenarioStart, series); err != nil || n != 1 {
		t.Errorf("learner update: n=%d err=%v", n, err)
	}
}

func TestFeatureDatasets(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	spec := FeatureGroup{Name: "start_training", Version: 1, PrimaryKey: []string{"start_station_id", "start_hour"}}
	g, created, err := db.GetOrCreateFeatureGroup(ctx, spec)
	if err != nil || !created {
		t.Fatalf("expected creation, created=%v err=%v", created, err)
	}
	again, created, err := db.GetOrCreateFeatureGroup(ctx, spec)
	if err != nil || created || again.ID != g.ID {
		t.Fatalf("expected existing group %d, got %+v created=%v err=%v", g.ID, again, created, err)
	}
	if !reflect.DeepEqual(again.PrimaryKey, spec.PrimaryKey) {
		t.Errorf("primary key lost: %v", again.PrimaryKey)
	}

	if _, _, found, err := db.LoadDataset(ctx, g.ID, "nothing"); err != nil || found {
		t.Errorf("expected missing dataset, found=%v err=%v", found, err)
	}

	cols := []string{"a", "b"}
	rows := [][]int64{{1, 1717200000000}, {2, 3}}
	if err := db.ReplaceDataset(ctx, g.ID, "start_training", cols, rows); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceDataset(ctx, g.ID, "start_training", cols, rows[:1]); err != nil {
		t.Fatal(err)
	}

	gotCols, gotRows, found, err := db.LoadDataset(ctx, g.ID, "start_training")
	if err != nil || !found {
		t.Fatalf("dataset not found: %v", err)
	}
	if !reflect.DeepEqual(gotCols, cols) || !reflect.DeepEqual(gotRows, rows[:1]) {
		t.Errorf("got %v %v", gotCols, gotRows)
	}
}
