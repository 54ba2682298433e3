package sddp

import (
	"sync/atomic"
	"time"

	"sddp/model"
)

// stubResponse is what the scripted model reports after one solve.
type stubResponse struct {
	status    model.Status
	objective float64
	primal    map[model.Variable][]float64
	dual      map[string][]float64
}

type namedExpr struct {
	name string
	expr model.Expr
}

// stubModel is a scripted stand-in for the optimization-model boundary.
// The script computes a response from the currently bound state and
// noise, so tests can emulate exact LP solutions. Clones share the
// solve and misuse counters with their origin.
type stubModel struct {
	fixed     map[model.Variable][]float64
	rhs       map[string][]float64
	objective model.Expr
	ineqs     []namedExpr
	script    func(m *stubModel) stubResponse

	solves *atomic.Int64
	// misuse counts result-field reads after a non-optimal solve
	misuse *atomic.Int64

	last     stubResponse
	lastOK   bool
	lastOpts model.SolveOptions
}

func newStubModel(script func(m *stubModel) stubResponse) *stubModel {
	return &stubModel{
		fixed:  make(map[model.Variable][]float64),
		rhs:    make(map[string][]float64),
		script: script,
		solves: new(atomic.Int64),
		misuse: new(atomic.Int64),
	}
}

func (m *stubModel) state() []float64 { return m.rhs[model.ConstrStateFix] }
func (m *stubModel) noise() []float64 { return m.fixed[model.VarNoise] }

func (m *stubModel) Fix(v model.Variable, value []float64) error {
	m.fixed[v] = append([]float64(nil), value...)
	return nil
}

func (m *stubModel) SetRHS(constraint string, value []float64) error {
	m.rhs[constraint] = append([]float64(nil), value...)
	return nil
}

func (m *stubModel) AddLinearInequality(name string, expr model.Expr) error {
	m.ineqs = append(m.ineqs, namedExpr{name: name, expr: expr})
	return nil
}

func (m *stubModel) Objective() model.Expr { return m.objective.Clone() }

func (m *stubModel) SetObjective(e model.Expr) error {
	m.objective = e.Clone()
	return nil
}

func (m *stubModel) Solve(opts model.SolveOptions) (model.Status, error) {
	m.solves.Add(1)
	m.lastOpts = opts
	m.last = m.script(m)
	m.lastOK = m.last.status == model.StatusOptimal
	return m.last.status, nil
}

func (m *stubModel) guard() {
	if !m.lastOK {
		m.misuse.Add(1)
	}
}

func (m *stubModel) ObjectiveValue() float64 {
	m.guard()
	return m.last.objective
}

func (m *stubModel) Primal(v model.Variable) []float64 {
	m.guard()
	return m.last.primal[v]
}

func (m *stubModel) Dual(constraint string) []float64 {
	m.guard()
	return m.last.dual[constraint]
}

func (m *stubModel) SolveTime() time.Duration { return 0 }

func (m *stubModel) Clone() model.Model {
	c := &stubModel{
		fixed:  make(map[model.Variable][]float64, len(m.fixed)),
		rhs:    make(map[string][]float64, len(m.rhs)),
		script: m.script,
		solves: m.solves,
		misuse: m.misuse,
	}
	for k, v := range m.fixed {
		c.fixed[k] = append([]float64(nil), v...)
	}
	for k, v := range m.rhs {
		c.rhs[k] = append([]float64(nil), v...)
	}
	c.objective = m.objective.Clone()
	c.ineqs = append([]namedExpr(nil), m.ineqs...)
	return c
}
