package timeseries

import (
	"errors"
	"reflect"
	"testing"
)

func TestSelectRegime_Boundary(t *testing.T) {
	const seq = 672

	tests := []struct {
		length int
		want   Regime
	}{
		{seq + 2, RegimeStandard},
		{seq + 1, RegimeShortMulti},
		{seq + 100, RegimeStandard},
		{2, RegimeShortMulti},
		{1, RegimeSingleton},
	}
	for _, tt := range tests {
		got, err := SelectRegime(tt.length, seq)
		if err != nil {
			t.Fatalf("length %d: %v", tt.length, err)
		}
		if got != tt.want {
			t.Errorf("length %d: expected %s, got %s", tt.length, tt.want, got)
		}
	}
}

func TestSelectRegime_Empty(t *testing.T) {
	if _, err := SelectRegime(0, 3); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("expected ErrEmptySeries, got %v", err)
	}
}

func TestComputeCutoffs(t *testing.T) {
	tests := []struct {
		name   string
		length int
		seq    int
		step   int
		regime Regime
		want   []Cutoff
	}{
		{"five hours window three", 5, 3, 1, RegimeStandard, []Cutoff{{0, 3, 4}}},
		{"step one", 7, 3, 1, RegimeStandard, []Cutoff{{0, 3, 4}, {1, 4, 5}, {2, 5, 6}}},
		{"step two", 8, 3, 2, RegimeStandard, []Cutoff{{0, 3, 4}, {2, 5, 6}}},
		{"short", 3, 3, 1, RegimeShortMulti, []Cutoff{{0, 1, 2}, {1, 2, 3}}},
		{"short step two", 4, 3, 2, RegimeShortMulti, []Cutoff{{0, 1, 2}, {2, 3, 4}}},
		{"two points", 2, 672, 1, RegimeShortMulti, []Cutoff{{0, 1, 2}}},
		{"singleton", 1, 3, 1, RegimeSingleton, []Cutoff{{0, 0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ComputeCutoffs(tt.length, tt.seq, tt.step)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if plan.Regime != tt.regime {
				t.Errorf("expected %s, got %s", tt.regime, plan.Regime)
			}
			if !reflect.DeepEqual(plan.Cutoffs, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, plan.Cutoffs)
			}
		})
	}
}

func TestComputeCutoffs_InvalidWindow(t *testing.T) {
	for _, c := range [][2]int{{0, 1}, {3, 0}, {-1, -1}} {
		if _, err := ComputeCutoffs(10, c[0], c[1]); !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("seq=%d step=%d: expected ErrInvalidWindow, got %v", c[0], c[1], err)
		}
	}
}

func TestComputeCutoffs_StrictlyIncreasing(t *testing.T) {
	plan, err := ComputeCutoffs(100, 24, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range plan.Cutoffs {
		if c.Last > 99 {
			t.Errorf("cutoff %d exceeds series: %+v", i, c)
		}
		if i > 0 && c.First-plan.Cutoffs[i-1].First != 3 {
			t.Errorf("cutoff %d not spaced by step: %+v after %+v", i, c, plan.Cutoffs[i-1])
		}
	}
}
