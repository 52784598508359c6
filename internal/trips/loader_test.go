package trips

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleCSV = `ride_id,rideable_type,started_at,ended_at,start_station_name,start_station_id,end_station_name,end_station_id,start_lat,start_lng,end_lat,end_lng,member_casual
A1,classic_bike,2024-05-06 08:15:00,2024-05-06 08:27:00,Clark St & Elm St,TA1307000039,Wells St & Concord Ln,013022,41.902973,-87.63128,41.912133,-87.634656,member
A2,electric_bike,2024-05-06 09:01:30,2024-05-06 09:20:00,,,Wells St & Concord Ln,013022,41.90,-87.63,,,casual
A3,electric_bike,not a time,2024-05-06 09:20:00,,,,,41.90,-87.63,41.91,-87.64,casual
`

func TestReadCSV(t *testing.T) {
	records, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if !first.StartTime.Equal(time.Date(2024, 5, 6, 8, 15, 0, 0, time.UTC)) {
		t.Errorf("unexpected start time %v", first.StartTime)
	}
	if first.StartStationID != "TA1307000039" || first.EndStationID != "013022" {
		t.Errorf("station ids not kept as text: %q %q", first.StartStationID, first.EndStationID)
	}
	if first.StartLat == nil || *first.StartLat != 41.902973 {
		t.Errorf("unexpected start lat %v", first.StartLat)
	}

	second := records[1]
	if second.StartStationName != "" || second.StartStationID != "" {
		t.Errorf("missing start details should be empty, got %+v", second)
	}
	if second.EndLat != nil || second.EndLng != nil {
		t.Errorf("missing end coordinates should be nil")
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	csv := "started_at,ended_at,start_lat,start_lng\n2024-05-06 08:15:00,2024-05-06 08:27:00,41.9,-87.6\n"
	if _, err := ReadCSV(strings.NewReader(csv)); err == nil {
		t.Error("expected error for missing end coordinates")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	// May sits in the folder its archive extracts to, June directly in dir
	may := MonthlyFileName(2024, 5)
	nested := filepath.Join(dir, strings.TrimSuffix(may, ".csv"))
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, may), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, MonthlyFileName(2024, 6)), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	periods := []Period{{Year: 2024, Months: []int{4, 5, 6}}}
	records, err := LoadDir(dir, periods)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Errorf("expected 4 records from two months, got %d", len(records))
	}
}

func TestLoadDir_NothingAvailable(t *testing.T) {
	if _, err := LoadDir(t.TempDir(), []Period{{Year: 2024, Months: []int{1}}}); err == nil {
		t.Error("expected error when no months are present")
	}
}
