package sddp

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sddp/model"
	"sddp/noise"
)

// ForwardResult holds the simulated trajectories and, when requested,
// one total-cost sample per trajectory. Trajectories dropped under the
// SkipSample policy are filled with NaN from the failed stage on.
type ForwardResult struct {
	Costs    []float64     // nil unless cost accumulation was requested
	Stocks   [][][]float64 // [Horizon][K][dimStates]
	Controls [][][]float64 // [Horizon-1][K][dimControls]
}

// Forward simulates one trajectory per scenario through the live stage
// models, which already embed every cut committed so far. The scenario
// shape is validated before any solve is attempted; a mismatch is
// reported as noise.ErrInputShape.
func (s *Solver) Forward(scenarios *noise.Scenarios, withCost bool) (*ForwardResult, error) {
	horizon := s.spec.Horizon
	if scenarios == nil {
		return nil, fmt.Errorf("sddp: nil scenario array: %w", noise.ErrInputShape)
	}
	if scenarios.Stages() != horizon-1 || scenarios.Dim() != s.spec.DimNoises {
		return nil, fmt.Errorf("sddp: scenario array has %d stages of dimension %d, want %d of %d: %w",
			scenarios.Stages(), scenarios.Dim(), horizon-1, s.spec.DimNoises, noise.ErrInputShape)
	}
	k := scenarios.Count()
	res := s.newForwardResult(k, withCost)

	start := time.Now()
	workers := s.params.workers()
	if workers > k {
		workers = k
	}
	if workers <= 1 {
		for j := 0; j < k; j++ {
			if err := s.runTrajectory(s.models, scenarios, res, j, withCost); err != nil {
				return nil, err
			}
		}
	} else {
		// Each worker clones every stage model once: the mutate-solve-
		// readback sequence is unsafe against a shared instance.
		var g errgroup.Group
		chunk := (k + workers - 1) / workers
		for lo := 0; lo < k; lo += chunk {
			lo, hi := lo, lo+chunk
			if hi > k {
				hi = k
			}
			g.Go(func() error {
				clones := make([]model.Model, len(s.models))
				for i, m := range s.models {
					clones[i] = m.Clone()
				}
				for j := lo; j < hi; j++ {
					if err := s.runTrajectory(clones, scenarios, res, j, withCost); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.timing.ForwardPassTime += time.Since(start)
	s.timing.ForwardSolves += (horizon - 1) * k
	s.mu.Unlock()
	if s.params.Verbosity > 0 {
		s.log.Info("forward pass complete",
			zap.Int("trajectories", k), zap.Duration("elapsed", time.Since(start)))
	}
	return res, nil
}

func (s *Solver) newForwardResult(k int, withCost bool) *ForwardResult {
	horizon := s.spec.Horizon
	res := &ForwardResult{
		Stocks:   make([][][]float64, horizon),
		Controls: make([][][]float64, horizon-1),
	}
	if withCost {
		res.Costs = make([]float64, k)
	}
	for t := 0; t < horizon; t++ {
		res.Stocks[t] = make([][]float64, k)
		for j := 0; j < k; j++ {
			res.Stocks[t][j] = make([]float64, s.spec.DimStates)
			if t == 0 {
				copy(res.Stocks[0][j], s.spec.InitialState)
			}
		}
	}
	for t := 0; t < horizon-1; t++ {
		res.Controls[t] = make([][]float64, k)
		for j := 0; j < k; j++ {
			res.Controls[t][j] = make([]float64, s.spec.DimControls)
		}
	}
	return res
}

// runTrajectory drives trajectory j sequentially across stages; the
// recursion over t cannot be parallelized since each state depends on
// the previous one.
func (s *Solver) runTrajectory(models []model.Model, scenarios *noise.Scenarios, res *ForwardResult, j int, withCost bool) error {
	for t := 0; t < s.spec.Horizon-1; t++ {
		r, err := s.solveOn(models[t], t, res.Stocks[t][j], scenarios.At(t, j), SolveOptions{Mode: HazardDecision})
		if err != nil {
			return err
		}
		if !r.Solved {
			if s.params.OnFailure == FailFast {
				return fmt.Errorf("sddp: forward stage %d trajectory %d: %w", t, j, ErrSolveFailed)
			}
			s.log.Warn("dropping trajectory after failed solve",
				zap.Int("stage", t), zap.Int("trajectory", j))
			s.dropTrajectory(res, j, t)
			return nil
		}
		copy(res.Stocks[t+1][j], r.NextState)
		copy(res.Controls[t][j], r.Control)
		if withCost {
			// realized immediate cost net of the continuation estimate:
			// one unbiased sample of total expected cost
			res.Costs[j] += r.Objective - r.CostToGo
		}
	}
	return nil
}

// dropTrajectory poisons trajectory j from the failed stage on so that
// no downstream consumer can mistake it for simulated data.
func (s *Solver) dropTrajectory(res *ForwardResult, j, from int) {
	nan := math.NaN()
	if res.Costs != nil {
		res.Costs[j] = nan
	}
	for t := from; t < s.spec.Horizon-1; t++ {
		for i := range res.Stocks[t+1][j] {
			res.Stocks[t+1][j][i] = nan
		}
		for i := range res.Controls[t][j] {
			res.Controls[t][j][i] = nan
		}
	}
}
