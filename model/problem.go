package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dynamics maps (stage, state, control, noise) to the next state. It is
// injected at construction and must be a pure function of its arguments.
type Dynamics interface {
	Apply(t int, x, u, w []float64) []float64
}

// AffineDynamics is implemented by dynamics whose transition is affine
// in (x, u, w). The affine form is required to embed value-function cuts
// into a stage model as linear inequalities.
type AffineDynamics interface {
	Dynamics
	// Affine returns A, B, C and the offset b such that at stage t
	// next = A·x + B·u + C·w + b. The offset may be nil (zero).
	Affine(t int) (a, b, c *mat.Dense, offset []float64)
}

// LinearDynamics is a stage-invariant affine transition
// next = A·x + B·u + C·w + Offset.
type LinearDynamics struct {
	A, B, C *mat.Dense
	Offset  []float64
}

// Apply evaluates the transition numerically.
func (d LinearDynamics) Apply(t int, x, u, w []float64) []float64 {
	n, _ := d.A.Dims()
	next := mat.NewVecDense(n, nil)
	var tmp mat.VecDense
	tmp.MulVec(d.A, mat.NewVecDense(len(x), x))
	next.AddVec(next, &tmp)
	tmp.MulVec(d.B, mat.NewVecDense(len(u), u))
	next.AddVec(next, &tmp)
	tmp.MulVec(d.C, mat.NewVecDense(len(w), w))
	next.AddVec(next, &tmp)
	out := make([]float64, n)
	copy(out, next.RawVector().Data)
	if d.Offset != nil {
		for i := range out {
			out[i] += d.Offset[i]
		}
	}
	return out
}

// Affine exposes the transition matrices; LinearDynamics is
// stage-invariant so t is ignored.
func (d LinearDynamics) Affine(t int) (*mat.Dense, *mat.Dense, *mat.Dense, []float64) {
	return d.A, d.B, d.C, d.Offset
}

// ProblemSpec is the problem-definition boundary: dimensions, horizon,
// initial state and dynamics. Immutable for the duration of a run.
type ProblemSpec struct {
	DimStates   int
	DimControls int
	DimNoises   int
	// Horizon is the number of stages T; subproblems exist for stages
	// 0..T-2, the final stage carries no decision.
	Horizon        int
	InitialState   []float64
	Dynamics       Dynamics
	IsMixedInteger bool
}

// Validate checks the specification for internal consistency.
func (s ProblemSpec) Validate() error {
	if s.DimStates <= 0 || s.DimControls <= 0 || s.DimNoises <= 0 {
		return fmt.Errorf("model: dimensions must be positive, got states=%d controls=%d noises=%d",
			s.DimStates, s.DimControls, s.DimNoises)
	}
	if s.Horizon < 2 {
		return fmt.Errorf("model: horizon must span at least 2 stages, got %d", s.Horizon)
	}
	if len(s.InitialState) != s.DimStates {
		return fmt.Errorf("model: initial state has dimension %d, want %d", len(s.InitialState), s.DimStates)
	}
	if s.Dynamics == nil {
		return fmt.Errorf("model: dynamics must be set")
	}
	return nil
}
