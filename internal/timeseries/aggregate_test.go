package timeseries

import (
	"testing"
	"time"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

var base = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return base.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestFloorToHour(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"utc", time.Date(2024, 6, 3, 14, 59, 59, 999, time.UTC), time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)},
		{"on the hour", time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC), time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)},
		{"chicago", time.Date(2024, 6, 3, 9, 30, 0, 0, chicago), time.Date(2024, 6, 3, 9, 0, 0, 0, chicago)},
		{"half hour offset", time.Date(2024, 6, 3, 9, 45, 0, 0, kolkata), time.Date(2024, 6, 3, 9, 0, 0, 0, kolkata)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FloorToHour(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("FloorToHour(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got.Location() != tt.in.Location() {
				t.Errorf("location changed from %v to %v", tt.in.Location(), got.Location())
			}
		})
	}
}

func TestAggregate_CountsAndOrder(t *testing.T) {
	records := []trips.StationTrip{
		{Time: at(1, 5), StationID: 2},
		{Time: at(0, 10), StationID: 1},
		{Time: at(0, 50), StationID: 1},
		{Time: at(1, 0), StationID: 1},
		{Time: at(0, 59), StationID: 2},
		{Time: at(1, 30), StationID: 2},
	}

	got := Aggregate(records)
	want := []HourlyCount{
		{Hour: at(0, 0), StationID: 1, Trips: 2},
		{Hour: at(1, 0), StationID: 1, Trips: 1},
		{Hour: at(0, 0), StationID: 2, Trips: 1},
		{Hour: at(1, 0), StationID: 2, Trips: 2},
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d counts, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Hour.Equal(want[i].Hour) || got[i].StationID != want[i].StationID || got[i].Trips != want[i].Trips {
			t.Errorf("row %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestAggregate_SparseAndConserving(t *testing.T) {
	// Station 7 rides at hours 0, 0, 3 and 9; hours between are never emitted
	var records []trips.StationTrip
	perStation := map[int64]int{}
	for i, h := range []int{0, 0, 3, 9, 9, 9} {
		id := int64(7)
		if i%2 == 1 {
			id = 8
		}
		records = append(records, trips.StationTrip{Time: at(h, i), StationID: id})
		perStation[id]++
	}

	counts := Aggregate(records)
	for _, c := range counts {
		if c.Trips <= 0 {
			t.Errorf("zero count emitted: %+v", c)
		}
	}

	for _, s := range SplitByStation(counts) {
		if got := TotalTrips(s.Points); got != perStation[s.StationID] {
			t.Errorf("station %d: sum %d, records %d", s.StationID, got, perStation[s.StationID])
		}
	}
}

func TestSplitByStation(t *testing.T) {
	counts := []HourlyCount{
		{Hour: at(2, 0), StationID: 5, Trips: 1},
		{Hour: at(0, 0), StationID: 3, Trips: 4},
		{Hour: at(1, 0), StationID: 5, Trips: 2},
	}

	series := SplitByStation(counts)
	if len(series) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(series))
	}
	if series[0].StationID != 3 || series[1].StationID != 5 {
		t.Errorf("stations not ordered: %d, %d", series[0].StationID, series[1].StationID)
	}
	if series[1].Len() != 2 || !series[1].Points[0].Hour.Equal(at(1, 0)) {
		t.Errorf("station 5 not sorted by hour: %+v", series[1].Points)
	}
}

func TestAggregate_Empty(t *testing.T) {
	if got := Aggregate(nil); len(got) != 0 {
		t.Errorf("expected no counts, got %v", got)
	}
}
