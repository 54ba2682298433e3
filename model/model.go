// Package model defines the boundaries the SDDP core consumes: the
// optimization-model interface, the problem definition, and the
// expression type shared between them. The core never builds or solves
// a mathematical program itself; it parametrizes a Model, asks it to
// solve, and reads the solution back.
package model

import "time"

// Variable names the decision variables a stage model must expose.
type Variable string

const (
	VarState     Variable = "x"     // incoming state
	VarControl   Variable = "u"     // stage control
	VarNoise     Variable = "w"     // noise realization
	VarAlpha     Variable = "alpha" // continuation-value (epigraph) variable
	VarNextState Variable = "xf"    // outgoing state, decision-hazard only
)

// ConstrStateFix names the equality constraint fixing the incoming state.
// Its dual is the subgradient of the stage value function.
const ConstrStateFix = "state_fix"

// Status is the termination status reported by a Model solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusOther
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "other"
	}
}

// SolveOptions parametrizes one external solve.
type SolveOptions struct {
	// RelaxInteger drops integrality requirements for this solve.
	RelaxInteger bool
	// Solver is the opaque handle of the backend to use, passed through
	// to the implementation untouched.
	Solver interface{}
}

// Model is the optimization-model boundary for one stage. Implementations
// own variable declaration, constraint building and the actual LP/MIP
// solve call.
//
// A Model is not safe for concurrent use: Fix, SetRHS and SetObjective
// mutate shared solver state in place before a solve reads it back.
// Concurrent workers must each operate on their own Clone.
type Model interface {
	// Fix pins a named variable to a value for subsequent solves.
	Fix(v Variable, value []float64) error
	// SetRHS sets the right-hand side of a named equality constraint.
	SetRHS(constraint string, value []float64) error
	// AddLinearInequality adds the named constraint expr >= 0.
	AddLinearInequality(name string, expr Expr) error

	Objective() Expr
	SetObjective(expr Expr) error

	Solve(opts SolveOptions) (Status, error)

	// Post-solve accessors. Meaningful only after an optimal solve.
	ObjectiveValue() float64
	Primal(v Variable) []float64
	Dual(constraint string) []float64
	// SolveTime reports the last solve's elapsed time; implementations
	// without timing support return zero.
	SolveTime() time.Duration

	// Clone returns an independent copy carrying the same constraints,
	// for exclusive use by one concurrent worker.
	Clone() Model
}
