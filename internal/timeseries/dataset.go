package timeseries

import (
	"fmt"
	"time"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/featurestore"
	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// TimestampColumn carries the event time in Unix milliseconds
const TimestampColumn = "timestamp"

// SeriesDatasetName is the logical store name of a scenario's hourly series
func SeriesDatasetName(scenario trips.Scenario) string {
	return fmt.Sprintf("%s_ts", scenario)
}

// TrainingDatasetName is the logical store name of a scenario's training rows
func TrainingDatasetName(scenario trips.Scenario) string {
	return fmt.Sprintf("%s_training", scenario)
}

// SeriesColumns names the columns of an hourly series dataset
func SeriesColumns(scenario trips.Scenario) []string {
	return []string{
		fmt.Sprintf("%s_hour", scenario),
		fmt.Sprintf("%s_station_id", scenario),
		"trips",
		TimestampColumn,
	}
}

// SeriesToDataset converts hourly counts into a store dataset
func SeriesToDataset(scenario trips.Scenario, counts []HourlyCount) featurestore.Dataset {
	ds := featurestore.Dataset{
		Name:    SeriesDatasetName(scenario),
		Columns: SeriesColumns(scenario),
		Rows:    make([][]int64, 0, len(counts)),
	}
	for _, c := range counts {
		ms := c.Hour.UnixMilli()
		ds.Rows = append(ds.Rows, []int64{ms, c.StationID, int64(c.Trips), ms})
	}
	return ds
}

// SeriesFromDataset is the inverse of SeriesToDataset. Hours come back in UTC.
func SeriesFromDataset(scenario trips.Scenario, ds featurestore.Dataset) ([]HourlyCount, error) {
	cols := SeriesColumns(scenario)
	idx := make([]int, 3)
	for i, name := range cols[:3] {
		idx[i] = ds.ColumnIndex(name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("dataset %s has no %s column", ds.Name, name)
		}
	}

	out := make([]HourlyCount, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		out = append(out, HourlyCount{
			Hour:      time.UnixMilli(row[idx[0]]).UTC(),
			StationID: row[idx[1]],
			Trips:     int(row[idx[2]]),
		})
	}
	return out, nil
}

// TrainingRowsToDataset lays training rows out under FeatureColumns
func TrainingRowsToDataset(scenario trips.Scenario, inputSeqLen int, rows []TrainingRow) (featurestore.Dataset, error) {
	ds := featurestore.Dataset{
		Name:    TrainingDatasetName(scenario),
		Columns: FeatureColumns(inputSeqLen, scenario),
		Rows:    make([][]int64, 0, len(rows)),
	}
	for _, r := range rows {
		if len(r.Features) != inputSeqLen {
			return featurestore.Dataset{}, fmt.Errorf("station %d at %s has %d features, expected %d",
				r.StationID, r.Hour.Format(time.RFC3339), len(r.Features), inputSeqLen)
		}
		values := make([]int64, 0, inputSeqLen+3)
		for _, v := range r.Features {
			values = append(values, int64(v))
		}
		values = append(values, r.Hour.UnixMilli(), r.StationID, int64(r.Target))
		ds.Rows = append(ds.Rows, values)
	}
	return ds, nil
}
