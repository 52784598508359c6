package timeseries

import (
	"errors"
	"fmt"

	"github.com/kobinabrandon/Hourly-Divvy-Trip-Predictor/internal/trips"
)

var (
	// ErrEmptySeries is returned for a station with no observed hours
	ErrEmptySeries = errors.New("empty station series")
	// ErrInvalidWindow is returned for a non-positive window or step
	ErrInvalidWindow = errors.New("invalid window configuration")
)

// EmptySeriesError names the station that reached windowing without data
type EmptySeriesError struct {
	StationID int64
	Scenario  trips.Scenario
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("station %d (%s) has no hourly observations", e.StationID, e.Scenario)
}

func (e *EmptySeriesError) Is(target error) bool {
	return target == ErrEmptySeries
}

// Regime is the windowing strategy chosen for a series length
type Regime int

const (
	// RegimeStandard slides a full history window over the series
	RegimeStandard Regime = iota + 1
	// RegimeShortMulti uses one observed value per row as the whole history
	RegimeShortMulti
	// RegimeSingleton emits one row from a single observation
	RegimeSingleton
)

func (r Regime) String() string {
	switch r {
	case RegimeStandard:
		return "standard"
	case RegimeShortMulti:
		return "short_multi"
	case RegimeSingleton:
		return "singleton"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

// Cutoff marks one training example: history is [First, Mid)
type Cutoff struct {
	First int
	Mid   int
	Last  int
}

// CutoffPlan is the regime and ordered cutoffs for one series
type CutoffPlan struct {
	Regime  Regime
	Cutoffs []Cutoff
}

func validateWindow(inputSeqLen, stepSize int) error {
	if inputSeqLen < 1 {
		return fmt.Errorf("input sequence length %d: %w", inputSeqLen, ErrInvalidWindow)
	}
	if stepSize < 1 {
		return fmt.Errorf("step size %d: %w", stepSize, ErrInvalidWindow)
	}
	return nil
}

// SelectRegime picks the regime for a series of the given length.
// A full window needs input_seq_len history rows plus the mid and last rows.
func SelectRegime(length, inputSeqLen int) (Regime, error) {
	switch {
	case length <= 0:
		return 0, ErrEmptySeries
	case length-1 >= inputSeqLen+1:
		return RegimeStandard, nil
	case length >= 2:
		return RegimeShortMulti, nil
	default:
		return RegimeSingleton, nil
	}
}

// ComputeCutoffs lists the cutoffs for a series of the given length.
//
// Standard cutoffs advance by stepSize while Last stays inside the series.
// Short cutoffs advance while Mid stays inside the series, so their Last may
// point one past the end and is never read. A singleton yields {0, 0, 0}.
func ComputeCutoffs(length, inputSeqLen, stepSize int) (CutoffPlan, error) {
	if err := validateWindow(inputSeqLen, stepSize); err != nil {
		return CutoffPlan{}, err
	}

	regime, err := SelectRegime(length, inputSeqLen)
	if err != nil {
		return CutoffPlan{}, err
	}

	plan := CutoffPlan{Regime: regime}
	switch regime {
	case RegimeStandard:
		for first := 0; first+inputSeqLen+1 <= length-1; first += stepSize {
			plan.Cutoffs = append(plan.Cutoffs, Cutoff{First: first, Mid: first + inputSeqLen, Last: first + inputSeqLen + 1})
		}
	case RegimeShortMulti:
		for first := 0; first+1 <= length-1; first += stepSize {
			plan.Cutoffs = append(plan.Cutoffs, Cutoff{First: first, Mid: first + 1, Last: first + 2})
		}
	case RegimeSingleton:
		plan.Cutoffs = []Cutoff{{}}
	}

	return plan, nil
}
