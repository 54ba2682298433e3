// Package sddp implements the core of Stochastic Dual Dynamic
// Programming: forward trajectory simulation and backward cut
// generation over a multistage stochastic program, against externally
// owned per-stage optimization models.
package sddp

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sddp/cuts"
	"sddp/model"
	"sddp/noise"
	"sddp/utils"
)

// Mode selects the temporal ordering of decision and noise within a
// stage.
type Mode int

const (
	// HazardDecision reveals the noise before the control is chosen.
	HazardDecision Mode = iota
	// DecisionHazard commits the control before the noise is revealed;
	// the next state is a first-class decision variable of the model.
	DecisionHazard
)

// SubproblemResult carries everything read back from one stage solve.
// When Solved is false no other field is meaningful and callers must not
// read them.
type SubproblemResult struct {
	Solved      bool
	Objective   float64
	NextState   []float64
	Control     []float64
	Subgradient []float64 // dual of the state-fixing constraint
	CostToGo    float64   // value of the continuation variable alpha
	CutDuals    []float64 // duals of the cuts embedded in this stage's model
	SolveTime   time.Duration
}

// SolveOptions parametrizes one subproblem solve.
type SolveOptions struct {
	Mode Mode
	// RelaxInteger drops integrality for this solve.
	RelaxInteger bool
	// Regularization, when non-nil, perturbs the objective with a
	// quadratic trust-region term for the duration of this call only.
	Regularization *Regularization
}

// Solver couples a problem specification with its per-stage live models
// and value-function approximations. models[t] solves stage t for
// t = 0..Horizon-2; vfs[t] is the polyhedral approximation of the value
// function at stage t.
type Solver struct {
	spec   model.ProblemSpec
	models []model.Model
	laws   []*noise.Law
	vfs    []*cuts.PolyhedralFunction
	params Params
	log    *zap.Logger

	mu     sync.Mutex // guards cut commits and timing
	timing utils.TimingStats
}

// New validates the inputs and builds a Solver. The models and laws are
// indexed by stage, one per decision stage (Horizon-1 of each).
func New(spec model.ProblemSpec, models []model.Model, laws []*noise.Law, params Params, log *zap.Logger) (*Solver, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(models) != spec.Horizon-1 {
		return nil, fmt.Errorf("sddp: got %d stage models, want %d", len(models), spec.Horizon-1)
	}
	if len(laws) != spec.Horizon-1 {
		return nil, fmt.Errorf("sddp: got %d noise laws, want %d", len(laws), spec.Horizon-1)
	}
	for t, law := range laws {
		if law.Dim() != spec.DimNoises {
			return nil, fmt.Errorf("sddp: law %d has dimension %d, want %d", t, law.Dim(), spec.DimNoises)
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	vfs := make([]*cuts.PolyhedralFunction, spec.Horizon-1)
	for t := range vfs {
		vfs[t] = cuts.New(spec.DimStates)
	}
	return &Solver{
		spec:   spec,
		models: models,
		laws:   laws,
		vfs:    vfs,
		params: params,
		log:    log,
	}, nil
}

// ValueFunction returns the polyhedral approximation at stage t.
func (s *Solver) ValueFunction(t int) *cuts.PolyhedralFunction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vfs[t]
}

// ValueFunctions returns the per-stage approximations, indexed by stage.
func (s *Solver) ValueFunctions() []*cuts.PolyhedralFunction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*cuts.PolyhedralFunction(nil), s.vfs...)
}

// Timing returns a snapshot of accumulated timing statistics.
func (s *Solver) Timing() utils.TimingStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timing
}

// SolveOneStep solves the stage-t subproblem for incoming state x and
// noise w against the live stage model. A non-optimal solver status is
// reported uniformly as Solved=false in both modes; the caller owns the
// failure policy.
func (s *Solver) SolveOneStep(t int, x, w []float64, opts SolveOptions) (SubproblemResult, error) {
	return s.solveOn(s.models[t], t, x, w, opts)
}

// solveOn runs the mutate-solve-readback sequence against m. The model
// must not be shared with another concurrent caller.
func (s *Solver) solveOn(m model.Model, t int, x, w []float64, opts SolveOptions) (SubproblemResult, error) {
	// Bind the stage parameters. Both modes fix the same quantities; the
	// temporal ordering lives in how the model was built (in
	// decision-hazard the control is constrained before the noise enters
	// the objective, and the next state is a decision variable).
	if err := m.Fix(model.VarNoise, w); err != nil {
		return SubproblemResult{}, fmt.Errorf("sddp: stage %d fix noise: %w", t, err)
	}
	if err := m.SetRHS(model.ConstrStateFix, x); err != nil {
		return SubproblemResult{}, fmt.Errorf("sddp: stage %d set state: %w", t, err)
	}
	if opts.Regularization != nil {
		guard, err := opts.Regularization.Apply(m)
		if err != nil {
			return SubproblemResult{}, fmt.Errorf("sddp: stage %d regularize: %w", t, err)
		}
		// restored on every exit path, including solver failure
		defer guard.Release()
	}

	solveOpts := model.SolveOptions{RelaxInteger: opts.RelaxInteger, Solver: s.params.Solver}
	if s.spec.IsMixedInteger && !opts.RelaxInteger && s.params.MIPSolver != nil {
		solveOpts.Solver = s.params.MIPSolver
	}
	status, err := m.Solve(solveOpts)
	if err != nil {
		return SubproblemResult{}, fmt.Errorf("sddp: stage %d solve: %w", t, err)
	}
	if status != model.StatusOptimal {
		if s.params.Verbosity > 1 {
			s.log.Debug("subproblem not optimal",
				zap.Int("stage", t), zap.Stringer("status", status))
		}
		return SubproblemResult{Solved: false}, nil
	}

	res := SubproblemResult{
		Solved:      true,
		Objective:   m.ObjectiveValue(),
		Control:     m.Primal(model.VarControl),
		Subgradient: m.Dual(model.ConstrStateFix),
		SolveTime:   m.SolveTime(),
	}
	if alpha := m.Primal(model.VarAlpha); len(alpha) > 0 {
		res.CostToGo = alpha[0]
	}
	if opts.Mode == DecisionHazard {
		res.NextState = m.Primal(model.VarNextState)
	} else {
		res.NextState = s.spec.Dynamics.Apply(t, x, res.Control, w)
	}
	// Duals of the cuts previously embedded here, i.e. the cuts of the
	// next stage's value function.
	if t+1 < len(s.vfs) {
		if n := s.vfs[t+1].Len(); n > 0 {
			res.CutDuals = make([]float64, n)
			for i := 0; i < n; i++ {
				if d := m.Dual(cuts.CutConstraintName(i)); len(d) > 0 {
					res.CutDuals[i] = d[0]
				}
			}
		}
	}
	return res, nil
}
