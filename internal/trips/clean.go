package trips

import (
	"log"

	"github.com/golang/geo/s2"
)

// CleanReport summarises what Clean removed
type CleanReport struct {
	Input              int
	MissingDetails     int // name and both coordinates missing on one side
	InvalidCoordinates int
	MissingTimes       int
	Kept               int
}

// Clean drops records that can never be assigned to a station.
//
// A side whose station name and coordinates are all missing cannot be
// geocoded or indexed, so the whole record goes. Coordinates that are
// present but outside the valid lat/lng range are dropped too.
func Clean(records []Record) ([]Record, CleanReport) {
	report := CleanReport{Input: len(records)}
	kept := make([]Record, 0, len(records))

	for _, r := range records {
		if r.StartTime.IsZero() || r.EndTime.IsZero() {
			report.MissingTimes++
			continue
		}

		missing := false
		invalid := false
		for _, scenario := range AllScenarios() {
			v := r.View(scenario)
			if v.Name == "" && v.Lat == nil && v.Lng == nil {
				missing = true
				break
			}
			if v.HasCoordinates() && !s2.LatLngFromDegrees(*v.Lat, *v.Lng).IsValid() {
				invalid = true
				break
			}
		}

		switch {
		case missing:
			report.MissingDetails++
		case invalid:
			report.InvalidCoordinates++
		default:
			kept = append(kept, r)
		}
	}

	report.Kept = len(kept)
	if dropped := report.Input - report.Kept; dropped > 0 {
		log.Printf("Cleaning: dropped %d of %d records (missing details=%d, invalid coordinates=%d, missing times=%d)",
			dropped, report.Input, report.MissingDetails, report.InvalidCoordinates, report.MissingTimes)
	}

	return kept, report
}
