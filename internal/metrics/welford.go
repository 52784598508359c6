package metrics

import "math"

// Welford keeps a running mean and variance in constant space using
// Welford's online algorithm.
type Welford struct {
	Count int
	Mean  float64
	M2    float64 // sum of squared differences from the mean
}

// ResumeWelford rebuilds the running state from saved summary statistics
// so that new observations can be folded into an existing baseline.
func ResumeWelford(mean, stddev float64, count int) *Welford {
	if count == 0 {
		return &Welford{}
	}
	// population stddev = sqrt(M2 / n)
	return &Welford{
		Count: count,
		Mean:  mean,
		M2:    stddev * stddev * float64(count),
	}
}

// Add folds in one observation
func (w *Welford) Add(v float64) {
	w.Count++
	delta := v - w.Mean
	w.Mean += delta / float64(w.Count)
	w.M2 += delta * (v - w.Mean)
}

// StdDev is the population standard deviation, 0 below two observations
func (w *Welford) StdDev() float64 {
	if w.Count < 2 {
		return 0
	}
	return math.Sqrt(w.M2 / float64(w.Count))
}
