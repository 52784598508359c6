package stations

import (
	"errors"
	"fmt"
	"log"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

// Policy decides how station identities are derived for a dataset
type Policy int

const (
	// PolicyNative keeps the source-provided station ids
	PolicyNative Policy = iota + 1
	// PolicyRoundedCoordinate ties an id to each rounded (lat, lng) pair
	PolicyRoundedCoordinate
	// PolicyNameCoordinateMixed ties an id to each (name, lat, lng) triple
	PolicyNameCoordinateMixed
)

func (p Policy) String() string {
	switch p {
	case PolicyNative:
		return "native"
	case PolicyRoundedCoordinate:
		return "rounded_coordinate"
	case PolicyNameCoordinateMixed:
		return "name_coordinate_mixed"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy is the inverse of Policy.String
func ParsePolicy(s string) (Policy, error) {
	for _, p := range []Policy{PolicyNative, PolicyRoundedCoordinate, PolicyNameCoordinateMixed} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown station identity policy %q", s)
}

// LongIDLength is the length from which a station id is treated as untrustworthy
const LongIDLength = 7

// ErrPolicyViolation is returned when native ids would be used for training data
var ErrPolicyViolation = errors.New("station identity policy violation")

// InvalidPolicyError reports why the native-id path was rejected
type InvalidPolicyError struct {
	Policy        Policy
	InvalidRatios map[trips.Scenario]float64
	Threshold     float64
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("%s ids cannot be used for training data (invalid id ratios %v below threshold %.2f)",
		e.Policy, e.InvalidRatios, e.Threshold)
}

func (e *InvalidPolicyError) Is(target error) bool {
	return target == ErrPolicyViolation
}

// Options carries the thresholds used to pick and apply a policy
type Options struct {
	LargeDatasetThreshold   int
	InvalidIDRatioThreshold float64
	DecimalPlaces           int
}

// DefaultOptions returns the production thresholds
func DefaultOptions() Options {
	return Options{
		LargeDatasetThreshold:   10_000_000,
		InvalidIDRatioThreshold: 0.5,
		DecimalPlaces:           6,
	}
}

// DatasetStats are the measurements a policy decision is based on
type DatasetStats struct {
	Rows          int
	InvalidRatios map[trips.Scenario]float64
}

// IsInvalidID reports whether a raw station id is missing or a long id
func IsInvalidID(id string) bool {
	return id == "" || len(id) >= LongIDLength
}

// Measure counts rows and, per scenario, the share of missing or long ids
func Measure(records []trips.Record) DatasetStats {
	stats := DatasetStats{
		Rows:          len(records),
		InvalidRatios: make(map[trips.Scenario]float64),
	}
	if len(records) == 0 {
		return stats
	}

	for _, scenario := range trips.AllScenarios() {
		invalid := 0
		for _, r := range records {
			if IsInvalidID(r.View(scenario).StationID) {
				invalid++
			}
		}
		stats.InvalidRatios[scenario] = float64(invalid) / float64(len(records))
	}
	return stats
}

// DecidePolicy picks the identity policy for a dataset snapshot.
//
// Synthetic ids are used when every scenario has an invalid id ratio at or
// above the threshold; the dataset size then chooses between the two
// synthetic policies. Native ids are only acceptable for inference data.
func DecidePolicy(stats DatasetStats, forInference bool, opts Options) (Policy, error) {
	highInvalid := len(stats.InvalidRatios) > 0
	for _, scenario := range trips.AllScenarios() {
		ratio, ok := stats.InvalidRatios[scenario]
		if !ok || ratio < opts.InvalidIDRatioThreshold {
			highInvalid = false
		}
	}

	if !highInvalid {
		if forInference {
			return PolicyNative, nil
		}
		return 0, &InvalidPolicyError{
			Policy:        PolicyNative,
			InvalidRatios: stats.InvalidRatios,
			Threshold:     opts.InvalidIDRatioThreshold,
		}
	}

	if stats.Rows > opts.LargeDatasetThreshold {
		log.Printf("Stations: %d rows exceeds %d, tying new station ids to rounded coordinates",
			stats.Rows, opts.LargeDatasetThreshold)
		return PolicyRoundedCoordinate, nil
	}

	log.Printf("Stations: tying new station ids to station names and coordinates")
	return PolicyNameCoordinateMixed, nil
}
