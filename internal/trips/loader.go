package trips

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Columns every Divvy trip file must carry
var requiredColumns = []string{
	"started_at", "ended_at",
	"start_lat", "start_lng", "end_lat", "end_lng",
}

// Optional columns; absent columns read as missing values
var optionalColumns = []string{
	"start_station_id", "end_station_id",
	"start_station_name", "end_station_name",
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	time.RFC3339Nano,
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

// ReadCSV parses a Divvy trip CSV. Every column is loaded as text so that
// long alphanumeric station ids survive untouched.
func ReadCSV(r io.Reader) ([]Record, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read trip csv: %w", df.Err)
	}

	present := make(map[string]bool)
	for _, name := range df.Names() {
		present[name] = true
	}
	for _, name := range requiredColumns {
		if !present[name] {
			return nil, fmt.Errorf("trip csv is missing column %q", name)
		}
	}

	cols := make(map[string][]string)
	for _, name := range append(append([]string{}, requiredColumns...), optionalColumns...) {
		if present[name] {
			cols[name] = df.Col(name).Records()
		}
	}

	n := df.Nrow()
	records := make([]Record, 0, n)
	skipped := 0

	for i := 0; i < n; i++ {
		startedAt, err := parseTime(cols["started_at"][i])
		if err != nil {
			skipped++
			continue
		}
		endedAt, err := parseTime(cols["ended_at"][i])
		if err != nil {
			skipped++
			continue
		}

		records = append(records, Record{
			StartTime:        startedAt,
			EndTime:          endedAt,
			StartStationID:   cell(cols, "start_station_id", i),
			EndStationID:     cell(cols, "end_station_id", i),
			StartStationName: cell(cols, "start_station_name", i),
			EndStationName:   cell(cols, "end_station_name", i),
			StartLat:         parseCoord(cell(cols, "start_lat", i)),
			StartLng:         parseCoord(cell(cols, "start_lng", i)),
			EndLat:           parseCoord(cell(cols, "end_lat", i)),
			EndLng:           parseCoord(cell(cols, "end_lng", i)),
		})
	}

	if skipped > 0 {
		log.Printf("Loader: skipped %d rows with unparseable timestamps", skipped)
	}

	return records, nil
}

// ReadFile opens and parses a single trip CSV
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// LoadDir reads the monthly files for the given periods from dir.
// Each month may sit directly in dir or inside a folder of the same name,
// which is how the published zip archives extract. Months that have not
// been downloaded yet are logged and skipped.
func LoadDir(dir string, periods []Period) ([]Record, error) {
	var all []Record

	for _, p := range periods {
		for _, month := range p.Months {
			name := MonthlyFileName(p.Year, month)
			path, ok := locateMonth(dir, name)
			if !ok {
				log.Printf("Loader: skipping %s as it is not available yet", name)
				continue
			}

			records, err := ReadFile(path)
			if err != nil {
				return nil, err
			}
			log.Printf("Loader: %s has %d trips", name, len(records))
			all = append(all, records...)
		}
	}

	if len(all) == 0 {
		return nil, errors.New("no trip data found for the requested months")
	}
	return all, nil
}

func locateMonth(dir, name string) (string, bool) {
	candidates := []string{
		filepath.Join(dir, name),
		filepath.Join(dir, strings.TrimSuffix(name, ".csv"), name),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, true
		}
	}
	return "", false
}

func cell(cols map[string][]string, name string, i int) string {
	values, ok := cols[name]
	if !ok {
		return ""
	}
	v := strings.TrimSpace(values[i])
	if isMissing(v) {
		return ""
	}
	return v
}

func isMissing(v string) bool {
	switch v {
	case "", "NaN", "NA", "<nil>":
		return true
	}
	return false
}

func parseCoord(v string) *float64 {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}
