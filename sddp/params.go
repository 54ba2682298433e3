package sddp

import "fmt"

// FailurePolicy decides what a pass does with a subproblem the solver
// could not bring to optimality.
type FailurePolicy int

const (
	// FailFast aborts the pass with an error on the first failed solve.
	FailFast FailurePolicy = iota
	// SkipSample drops the failed sample's contribution and continues.
	// Nothing is ever substituted for the missing value.
	SkipSample
)

// Params carries the external-solver configuration and pass behavior.
type Params struct {
	// Solver is the opaque backend handle forwarded to every model solve.
	Solver interface{}
	// MIPSolver, when set, is used instead of Solver for full
	// mixed-integer solves.
	MIPSolver interface{}
	// Verbosity selects how much pass diagnostics are logged. It never
	// affects control flow.
	Verbosity int
	// Workers bounds the number of concurrent forward trajectories.
	// Values below 2 keep the pass sequential.
	Workers int
	// OnFailure is the policy applied to failed subproblem solves.
	OnFailure FailurePolicy
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if p.OnFailure != FailFast && p.OnFailure != SkipSample {
		return fmt.Errorf("sddp: unknown failure policy %d", p.OnFailure)
	}
	return nil
}

func (p Params) workers() int {
	if p.Workers < 1 {
		return 1
	}
	return p.Workers
}
