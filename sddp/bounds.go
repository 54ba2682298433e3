package sddp

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// LowerBound evaluates the first-stage polyhedral approximation at the
// initial state: a valid lower bound on the total expected cost once at
// least one backward pass has run.
func (s *Solver) LowerBound() (float64, error) {
	s.mu.Lock()
	vf := s.vfs[0]
	s.mu.Unlock()
	return vf.Evaluate(s.spec.InitialState)
}

// EstimateUpperBound turns forward-pass cost samples into a Monte-Carlo
// estimate: the sample mean and the half-width of its 95% confidence
// interval. NaN samples (trajectories dropped under SkipSample) are
// ignored; with no valid sample both values are NaN.
func EstimateUpperBound(costs []float64) (mean, halfWidth float64) {
	valid := costs[:0:0]
	for _, c := range costs {
		if !math.IsNaN(c) {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return math.NaN(), math.NaN()
	}
	mean = stat.Mean(valid, nil)
	if len(valid) > 1 {
		sd := stat.StdDev(valid, nil)
		halfWidth = 1.96 * sd / math.Sqrt(float64(len(valid)))
	}
	return mean, halfWidth
}
