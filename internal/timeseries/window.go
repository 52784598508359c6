package timeseries

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// WindowOptions configures training row materialization
type WindowOptions struct {
	InputSeqLen int
	StepSize    int
	Workers     int // concurrent stations; values below 1 mean one
}

// DefaultWindowOptions returns the production window settings
func DefaultWindowOptions() WindowOptions {
	return WindowOptions{InputSeqLen: 672, StepSize: 1, Workers: 4}
}

// TrainingRow is one supervised example. Features are oldest first and
// Hour is the hour being predicted from them.
type TrainingRow struct {
	StationID int64
	Hour      time.Time
	Features  []int
	Target    int
}

// FeatureColumns names the columns of a training dataset in row order
func FeatureColumns(inputSeqLen int, scenario trips.Scenario) []string {
	cols := make([]string, 0, inputSeqLen+3)
	for i := inputSeqLen; i >= 1; i-- {
		cols = append(cols, fmt.Sprintf("trips_previous_%d_hour", i))
	}
	return append(cols,
		fmt.Sprintf("%s_hour", scenario),
		fmt.Sprintf("%s_station_id", scenario),
		"trips_next_hour",
	)
}

// StationRows builds the training rows of a single station series.
// It returns one row per cutoff in cutoff order.
func StationRows(s StationSeries, scenario trips.Scenario, opts WindowOptions) ([]TrainingRow, error) {
	plan, err := ComputeCutoffs(s.Len(), opts.InputSeqLen, opts.StepSize)
	if err != nil {
		if errors.Is(err, ErrEmptySeries) {
			return nil, &EmptySeriesError{StationID: s.StationID, Scenario: scenario}
		}
		return nil, err
	}

	rows := make([]TrainingRow, 0, len(plan.Cutoffs))
	for _, c := range plan.Cutoffs {
		row := TrainingRow{StationID: s.StationID}

		switch plan.Regime {
		case RegimeStandard:
			row.Features = make([]int, 0, opts.InputSeqLen)
			for _, p := range s.Points[c.First:c.Mid] {
				row.Features = append(row.Features, p.Trips)
			}
			row.Target = s.Points[c.Last].Trips
			row.Hour = s.Points[c.Mid].Hour
		case RegimeShortMulti:
			row.Features = repeat(s.Points[c.First].Trips, opts.InputSeqLen)
			row.Target = s.Points[c.Mid].Trips
			row.Hour = s.Points[c.Mid].Hour
		case RegimeSingleton:
			row.Features = repeat(s.Points[0].Trips, opts.InputSeqLen)
			row.Target = s.Points[0].Trips
			row.Hour = s.Points[0].Hour
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// BuildTrainingRows windows every station series concurrently and merges
// the results sorted by (station id, hour). Stations with empty series are
// logged and skipped; any other error aborts the build.
func BuildTrainingRows(ctx context.Context, series []StationSeries, scenario trips.Scenario, opts WindowOptions) ([]TrainingRow, error) {
	if err := validateWindow(opts.InputSeqLen, opts.StepSize); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([][]TrainingRow, len(series))
	skipped := make([]bool, len(series))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, s := range series {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := StationRows(s, scenario, opts)
			if errors.Is(err, ErrEmptySeries) {
				log.Printf("Windowing: skipping %v", err)
				skipped[i] = true
				return nil
			}
			if err != nil {
				return fmt.Errorf("station %d: %w", s.StationID, err)
			}
			results[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []TrainingRow
	nSkipped := 0
	for i, rows := range results {
		if skipped[i] {
			nSkipped++
		}
		out = append(out, rows...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StationID != out[j].StationID {
			return out[i].StationID < out[j].StationID
		}
		return out[i].Hour.Before(out[j].Hour)
	})

	log.Printf("Windowing: %s built %d rows from %d stations (%d skipped)",
		scenario.DisplayName(), len(out), len(series)-nSkipped, nSkipped)

	return out, nil
}
