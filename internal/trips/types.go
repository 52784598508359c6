package trips

import (
	"fmt"
	"strings"
	"time"
)

// Scenario selects which end of a trip is being counted
type Scenario string

const (
	ScenarioStart Scenario = "start" // departures
	ScenarioEnd   Scenario = "end"   // arrivals
)

// AllScenarios returns both scenarios in pipeline order
func AllScenarios() []Scenario {
	return []Scenario{ScenarioStart, ScenarioEnd}
}

// ParseScenario accepts "start" or "end" in any case
func ParseScenario(s string) (Scenario, error) {
	switch Scenario(strings.ToLower(strings.TrimSpace(s))) {
	case ScenarioStart:
		return ScenarioStart, nil
	case ScenarioEnd:
		return ScenarioEnd, nil
	default:
		return "", fmt.Errorf("unknown scenario %q: only \"start\" or \"end\" are accepted", s)
	}
}

// DisplayName returns the human readable name used in logs
func (s Scenario) DisplayName() string {
	switch s {
	case ScenarioStart:
		return "Departures"
	case ScenarioEnd:
		return "Arrivals"
	default:
		return string(s)
	}
}

// Record is a single raw trip as published by Divvy.
// Station ids and names may be missing; coordinates are nil when absent.
type Record struct {
	StartTime time.Time
	EndTime   time.Time

	StartStationID   string
	EndStationID     string
	StartStationName string
	EndStationName   string

	StartLat *float64
	StartLng *float64
	EndLat   *float64
	EndLng   *float64
}

// View is one side of a trip: the time, raw station fields and coordinates
// for either the departure or the arrival.
type View struct {
	Time      time.Time
	StationID string
	Name      string
	Lat       *float64
	Lng       *float64
}

// View projects the record onto the given scenario
func (r Record) View(scenario Scenario) View {
	if scenario == ScenarioEnd {
		return View{Time: r.EndTime, StationID: r.EndStationID, Name: r.EndStationName, Lat: r.EndLat, Lng: r.EndLng}
	}
	return View{Time: r.StartTime, StationID: r.StartStationID, Name: r.StartStationName, Lat: r.StartLat, Lng: r.StartLng}
}

// HasCoordinates reports whether both coordinates are present
func (v View) HasCoordinates() bool {
	return v.Lat != nil && v.Lng != nil
}

// StationTrip is a trip side whose station identity has been resolved
type StationTrip struct {
	Time      time.Time
	StationID int64
}
