package sddp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"sddp/model"
)

func TestBackwardToyHandComputed(t *testing.T) {
	s, stubs := newToySolver(t, Params{}, linearScript)
	stocks := [][][]float64{{{0}}, {{1}}, {{2}}}

	v0, err := s.Backward(stocks, true)
	require.NoError(t, err)

	// Stage 1, x = 1, support {-1, +1} with p = 0.5 each:
	//   E[cost] = 0.5·(2·1-1) + 0.5·(2·1+1) = 2, E[grad] = 2
	//   beta = 2 - 2·1 = 0
	vf1 := s.ValueFunction(1)
	require.Equal(t, 1, vf1.Len(), "init sweep leaves exactly one cut per stage")
	beta, lambda := vf1.Cut(0)
	require.InDelta(t, 0, beta, 1e-12)
	require.InDelta(t, 2, lambda[0], 1e-12)

	// tightness at the sampled state: beta + lambda·x == E[cost]
	v, err := vf1.Evaluate([]float64{1})
	require.NoError(t, err)
	require.InDelta(t, 2, v, 1e-12)

	// Stage 0, x = 0: E[cost] = 0.5·(-1) + 0.5·(+1) = 0, so V0 = 0
	require.InDelta(t, 0, v0, 1e-12)
	require.Equal(t, 1, s.ValueFunction(0).Len())

	// the stage-1 cut was embedded into the stage-0 live model
	require.Len(t, stubs[0].ineqs, 1)
	require.Equal(t, "cut_0", stubs[0].ineqs[0].name)
	// alpha - 2x - 2u - 2w - 0 >= 0 through next = x + u + w
	require.Equal(t, []model.Term{
		{Var: model.VarAlpha, Index: 0, Coeff: 1},
		{Var: model.VarState, Index: 0, Coeff: -2},
		{Var: model.VarControl, Index: 0, Coeff: -2},
		{Var: model.VarNoise, Index: 0, Coeff: -2},
	}, stubs[0].ineqs[0].expr.Terms)
	require.InDelta(t, 0, stubs[0].ineqs[0].expr.Const, 1e-12)

	// nothing is installed below stage 0
	require.Empty(t, stubs[1].ineqs)

	// 2 stages × 1 trajectory × 2 support points
	require.Equal(t, int64(4), stubs[0].solves.Load())

	// lower bound at the initial state follows from the stage-0 cut
	lb, err := s.LowerBound()
	require.NoError(t, err)
	require.InDelta(t, 0, lb, 1e-12)
}

func TestBackwardAppendsAfterInit(t *testing.T) {
	s, stubs := newToySolver(t, Params{}, linearScript)
	stocks := [][][]float64{{{0}}, {{1}}, {{2}}}

	_, err := s.Backward(stocks, true)
	require.NoError(t, err)
	_, err = s.Backward([][][]float64{{{0}}, {{3}}, {{2}}}, false)
	require.NoError(t, err)

	vf1 := s.ValueFunction(1)
	require.Equal(t, 2, vf1.Len(), "cuts are append-only across sweeps")
	require.Len(t, stubs[0].ineqs, 2)
	require.Equal(t, "cut_1", stubs[0].ineqs[1].name)

	// monotone refinement: a second cut can only tighten the bound
	before, err := s.ValueFunction(1).Evaluate([]float64{3})
	require.NoError(t, err)
	require.GreaterOrEqual(t, before, 2*3.0-0.0-1e-12)
}

func TestBackwardShapeAndFailures(t *testing.T) {
	s, _ := newToySolver(t, Params{}, linearScript)

	_, err := s.Backward([][][]float64{{{0}}, {{1}}}, true)
	require.Error(t, err, "stock trajectories must cover every stage")

	failing := func(m *stubModel) stubResponse {
		return stubResponse{status: model.StatusUnbounded}
	}
	s, stubs := newToySolver(t, Params{OnFailure: FailFast}, failing)
	_, err = s.Backward([][][]float64{{{0}}, {{1}}, {{2}}}, true)
	require.ErrorIs(t, err, ErrSolveFailed)

	// SkipSample drops contributions; a stage left without any cut still
	// violates the at-least-one-cut invariant and errors
	s, stubs = newToySolver(t, Params{OnFailure: SkipSample}, failing)
	_, err = s.Backward([][][]float64{{{0}}, {{1}}, {{2}}}, true)
	require.ErrorIs(t, err, ErrSolveFailed)
	require.Equal(t, int64(0), stubs[0].misuse.Load())
}

func TestBackwardSkipsDroppedTrajectories(t *testing.T) {
	s, _ := newToySolver(t, Params{OnFailure: SkipSample}, linearScript)
	nan := math.NaN()
	stocks := [][][]float64{
		{{0}, {0}},
		{{1}, {nan}},
		{{2}, {nan}},
	}

	v0, err := s.Backward(stocks, true)
	require.NoError(t, err)
	// the poisoned trajectory contributes no cut at stage 1
	require.Equal(t, 1, s.ValueFunction(1).Len())
	// both trajectories share the valid stage-0 state
	require.Equal(t, 2, s.ValueFunction(0).Len())
	require.InDelta(t, 0, v0, 1e-12)
}

func TestEstimateUpperBound(t *testing.T) {
	mean, hw := EstimateUpperBound([]float64{1, 2, 3, math.NaN()})
	require.InDelta(t, 2, mean, 1e-12)
	require.InDelta(t, 1.96*1/math.Sqrt(3), hw, 1e-12)

	mean, hw = EstimateUpperBound([]float64{math.NaN()})
	require.True(t, math.IsNaN(mean))
	require.True(t, math.IsNaN(hw))
}
