package timeseries

import (
	"sort"
	"time"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// HourlyCount is the number of trips a station saw in one hour
type HourlyCount struct {
	Hour      time.Time
	StationID int64
	Trips     int
}

// StationSeries is one station's hourly counts in ascending hour order.
// Hours without trips are absent, not zero.
type StationSeries struct {
	StationID int64
	Points    []HourlyCount
}

// Len is the number of observed hours
func (s StationSeries) Len() int { return len(s.Points) }

// FloorToHour truncates t to the start of its hour in t's own location
func FloorToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

type hourKey struct {
	unix      int64
	stationID int64
}

// Aggregate groups resolved trips by (hour, station) and counts them.
// The result is sorted by station, then hour, and only holds non-zero counts.
func Aggregate(records []trips.StationTrip) []HourlyCount {
	index := make(map[hourKey]int)
	var out []HourlyCount

	for _, r := range records {
		hour := FloorToHour(r.Time)
		k := hourKey{unix: hour.Unix(), stationID: r.StationID}
		if i, ok := index[k]; ok {
			out[i].Trips++
			continue
		}
		index[k] = len(out)
		out = append(out, HourlyCount{Hour: hour, StationID: r.StationID, Trips: 1})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StationID != out[j].StationID {
			return out[i].StationID < out[j].StationID
		}
		return out[i].Hour.Before(out[j].Hour)
	})
	return out
}

// SplitByStation partitions counts into per-station series ordered by
// station id, each sorted by hour
func SplitByStation(counts []HourlyCount) []StationSeries {
	byStation := make(map[int64][]HourlyCount)
	var ids []int64
	for _, c := range counts {
		if _, ok := byStation[c.StationID]; !ok {
			ids = append(ids, c.StationID)
		}
		byStation[c.StationID] = append(byStation[c.StationID], c)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]StationSeries, 0, len(ids))
	for _, id := range ids {
		points := byStation[id]
		sort.SliceStable(points, func(i, j int) bool { return points[i].Hour.Before(points[j].Hour) })
		out = append(out, StationSeries{StationID: id, Points: points})
	}
	return out
}

// TotalTrips sums the counts of a series
func TotalTrips(counts []HourlyCount) int {
	total := 0
	for _, c := range counts {
		total += c.Trips
	}
	return total
}
