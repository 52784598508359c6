package trips

import (
	"testing"
	"time"
)

func coord(v float64) *float64 { return &v }

func validRecord() Record {
	start := time.Date(2024, 5, 6, 8, 15, 0, 0, time.UTC)
	return Record{
		StartTime:        start,
		EndTime:          start.Add(12 * time.Minute),
		StartStationName: "Clark St & Elm St",
		EndStationName:   "Wells St & Concord Ln",
		StartLat:         coord(41.902973),
		StartLng:         coord(-87.63128),
		EndLat:           coord(41.912133),
		EndLng:           coord(-87.634656),
	}
}

func TestClean(t *testing.T) {
	noEndDetails := validRecord()
	noEndDetails.EndStationName = ""
	noEndDetails.EndLat, noEndDetails.EndLng = nil, nil

	nameOnly := validRecord()
	nameOnly.StartLat, nameOnly.StartLng = nil, nil

	coordsOnly := validRecord()
	coordsOnly.StartStationName = ""

	badLat := validRecord()
	badLat.StartLat = coord(141.9)

	noTime := validRecord()
	noTime.EndTime = time.Time{}

	kept, report := Clean([]Record{validRecord(), noEndDetails, nameOnly, coordsOnly, badLat, noTime})

	if len(kept) != 3 {
		t.Fatalf("expected 3 records kept, got %d", len(kept))
	}
	want := CleanReport{Input: 6, MissingDetails: 1, InvalidCoordinates: 1, MissingTimes: 1, Kept: 3}
	if report != want {
		t.Errorf("got report %+v, want %+v", report, want)
	}
}

func TestClean_Empty(t *testing.T) {
	kept, report := Clean(nil)
	if len(kept) != 0 || report.Input != 0 || report.Kept != 0 {
		t.Errorf("unexpected result %v %+v", kept, report)
	}
}

func TestRecord_View(t *testing.T) {
	r := validRecord()
	r.StartStationID = "TA1307000039"

	start := r.View(ScenarioStart)
	if start.StationID != "TA1307000039" || start.Name != "Clark St & Elm St" || !start.Time.Equal(r.StartTime) {
		t.Errorf("unexpected start view %+v", start)
	}
	end := r.View(ScenarioEnd)
	if end.StationID != "" || !end.Time.Equal(r.EndTime) || *end.Lat != 41.912133 {
		t.Errorf("unexpected end view %+v", end)
	}

	end.Lng = nil
	if end.HasCoordinates() {
		t.Error("view with a missing longitude should not have coordinates")
	}
}

func TestParseScenario(t *testing.T) {
	for _, in := range []string{"start", " END ", "Start"} {
		if _, err := ParseScenario(in); err != nil {
			t.Errorf("ParseScenario(%q) failed: %v", in, err)
		}
	}
	if _, err := ParseScenario("middle"); err == nil {
		t.Error("expected error for unknown scenario")
	}
}
