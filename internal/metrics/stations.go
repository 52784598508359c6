package metrics

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/timeseries"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// StatsKey identifies one station baseline
type StatsKey struct {
	StationID int64
	HourOfDay int
}

// StationStats is the trip count baseline of a station at one hour of day,
// over the hours in which it saw at least one trip
type StationStats struct {
	Scenario    trips.Scenario
	StationID   int64
	HourOfDay   int
	TripsMean   float64
	TripsStdDev float64
	SampleCount int
	LastHour    time.Time // newest hour folded into the baseline
}

// StatsStore persists station baselines
type StatsStore interface {
	StationStats(ctx context.Context, scenario trips.Scenario) (map[StatsKey]StationStats, error)
	SaveStationStats(ctx context.Context, stats []StationStats) error
}

// StatsLearner folds new hourly counts into stored station baselines
type StatsLearner struct {
	store StatsStore
}

// NewStatsLearner creates a learner backed by store
func NewStatsLearner(store StatsStore) *StatsLearner {
	return &StatsLearner{store: store}
}

// Update adds every hour newer than what each baseline has already seen,
// so running it again over overlapping series does not double count.
// It returns the number of baselines written.
func (l *StatsLearner) Update(ctx context.Context, scenario trips.Scenario, series []timeseries.StationSeries) (int, error) {
	existing, err := l.store.StationStats(ctx, scenario)
	if err != nil {
		return 0, fmt.Errorf("failed to load station stats: %w", err)
	}

	type state struct {
		w    *Welford
		last time.Time
	}
	touched := make(map[StatsKey]*state)

	for _, s := range series {
		for _, p := range s.Points {
			k := StatsKey{StationID: s.StationID, HourOfDay: p.Hour.Hour()}

			st, ok := touched[k]
			if !ok {
				st = &state{w: &Welford{}}
				if prev, found := existing[k]; found {
					st.w = ResumeWelford(prev.TripsMean, prev.TripsStdDev, prev.SampleCount)
					st.last = prev.LastHour
				}
			}
			if !p.Hour.After(st.last) {
				continue
			}
			st.w.Add(float64(p.Trips))
			st.last = p.Hour
			touched[k] = st
		}
	}

	if len(touched) == 0 {
		return 0, nil
	}

	out := make([]StationStats, 0, len(touched))
	for k, st := range touched {
		out = append(out, StationStats{
			Scenario:    scenario,
			StationID:   k.StationID,
			HourOfDay:   k.HourOfDay,
			TripsMean:   st.w.Mean,
			TripsStdDev: st.w.StdDev(),
			SampleCount: st.w.Count,
			LastHour:    st.last,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StationID != out[j].StationID {
			return out[i].StationID < out[j].StationID
		}
		return out[i].HourOfDay < out[j].HourOfDay
	})

	if err := l.store.SaveStationStats(ctx, out); err != nil {
		return 0, fmt.Errorf("failed to save station stats: %w", err)
	}

	log.Printf("Stats: %s updated %d station baselines", scenario.DisplayName(), len(out))
	return len(out), nil
}
