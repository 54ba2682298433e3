package sddp

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"sddp/cuts"
)

// Backward performs one backward sweep over the sampled state
// trajectories: stages are visited from the last decision stage down to
// the first, each (stage, trajectory) pair yields one cut from the
// probability-weighted duals over the stage's full noise support, and
// every cut is committed both to the standalone polyhedral function and
// to the predecessor stage's live model.
//
// stocks is indexed [stage][trajectory][component], as produced by
// Forward. When init is true each stage's polyhedral function is
// replaced by a freshly initialized single-cut function before further
// cuts are appended.
//
// The returned V0 is the mean over trajectories of the expected cost at
// the first stage: the statistical cost estimate handed to the outer
// convergence driver.
func (s *Solver) Backward(stocks [][][]float64, init bool) (float64, error) {
	horizon := s.spec.Horizon
	if len(stocks) != horizon {
		return 0, fmt.Errorf("sddp: got stock trajectories for %d stages, want %d", len(stocks), horizon)
	}
	k := len(stocks[0])
	if k == 0 {
		return 0, fmt.Errorf("sddp: no trajectories to cut at")
	}
	for t := range stocks {
		if len(stocks[t]) != k {
			return 0, fmt.Errorf("sddp: stage %d holds %d trajectories, want %d", t, len(stocks[t]), k)
		}
	}

	start := time.Now()
	solves := 0
	var stageCosts []float64
	for t := horizon - 2; t >= 0; t-- {
		law := s.laws[t]
		committed := 0
		if t == 0 {
			stageCosts = stageCosts[:0]
		}
		for j := 0; j < k; j++ {
			x := stocks[t][j]
			if len(x) != s.spec.DimStates {
				return 0, fmt.Errorf("sddp: stage %d trajectory %d state has dimension %d, want %d",
					t, j, len(x), s.spec.DimStates)
			}
			if hasNaN(x) {
				// trajectory dropped by the forward pass
				continue
			}

			grad := make([]float64, s.spec.DimStates)
			cost := 0.0
			failed := false
			for i := 0; i < law.Len(); i++ {
				r, err := s.SolveOneStep(t, x, law.Support(i), SolveOptions{Mode: HazardDecision})
				if err != nil {
					return 0, err
				}
				solves++
				if !r.Solved {
					if s.params.OnFailure == FailFast {
						return 0, fmt.Errorf("sddp: backward stage %d trajectory %d support %d: %w",
							t, j, i, ErrSolveFailed)
					}
					failed = true
					break
				}
				p := law.Prob(i)
				floats.AddScaled(grad, p, r.Subgradient)
				cost += p * r.Objective
			}
			if failed {
				// no usable cut contribution from this trajectory
				s.log.Warn("dropping cut after failed solve",
					zap.Int("stage", t), zap.Int("trajectory", j))
				continue
			}

			// tangent hyperplane at x: tight there, valid everywhere below
			beta := cost - floats.Dot(grad, x)
			if err := s.commitCut(t, beta, grad, init && committed == 0); err != nil {
				return 0, err
			}
			committed++
			if t == 0 {
				stageCosts = append(stageCosts, cost)
			}
		}
		if committed == 0 {
			return 0, fmt.Errorf("sddp: stage %d produced no cut: %w", t, ErrSolveFailed)
		}
	}

	v0 := stat.Mean(stageCosts, nil)
	s.mu.Lock()
	s.timing.BackwardPassTime += time.Since(start)
	s.timing.BackwardSolves += solves
	s.mu.Unlock()
	if s.params.Verbosity > 0 {
		s.log.Info("backward pass complete",
			zap.Float64("v0", v0), zap.Int("solves", solves),
			zap.Duration("elapsed", time.Since(start)))
	}
	return v0, nil
}

// commitCut appends (or, on an init sweep's first cut, installs fresh)
// the cut at stage t and embeds it into the predecessor's live model.
// The append+install section is the only part of a backward sweep that
// must be serialized between trajectories committing to the same stage.
func (s *Solver) commitCut(t int, beta float64, lambda []float64, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if replace {
		s.vfs[t] = cuts.NewWithCut(beta, lambda)
	} else if err := s.vfs[t].AddCut(beta, lambda); err != nil {
		return err
	}
	s.timing.CutsAdded++
	if t == 0 {
		// no stage -1 model to update
		return nil
	}
	return s.vfs[t].InstallCut(s.models[t-1], t-1, s.vfs[t].Len()-1, s.spec.Dynamics)
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
