package sddp

import (
	"fmt"

	"sddp/model"
)

// Regularization specifies a quadratic trust-region penalty
// Rho·‖xf − Reference‖² on the model's next-state variable, applied for
// the duration of a single solve. It is never persisted across solves.
type Regularization struct {
	Reference []float64
	Rho       float64
}

// Guard undoes a scoped objective perturbation.
type Guard struct {
	m     model.Model
	saved model.Expr
}

// Release restores the objective the guard captured.
func (g Guard) Release() {
	if g.m != nil {
		_ = g.m.SetObjective(g.saved)
	}
}

// Apply adds the expanded penalty
//
//	Rho·Σ_j (xf_j² − 2·xp_j·xf_j + xp_j²)
//
// to m's objective and returns the guard restoring the original. The
// caller must release the guard on every exit path.
func (r Regularization) Apply(m model.Model) (Guard, error) {
	if r.Rho < 0 {
		return Guard{}, fmt.Errorf("sddp: negative regularization weight %g", r.Rho)
	}
	saved := m.Objective()
	obj := saved.Clone()
	for j, xp := range r.Reference {
		obj.Quad = append(obj.Quad, model.QuadTerm{
			Var1: model.VarNextState, I1: j,
			Var2: model.VarNextState, I2: j,
			Coeff: r.Rho,
		})
		if xp != 0 {
			obj.Terms = append(obj.Terms, model.Term{Var: model.VarNextState, Index: j, Coeff: -2 * r.Rho * xp})
			obj.Const += r.Rho * xp * xp
		}
	}
	if err := m.SetObjective(obj); err != nil {
		return Guard{}, err
	}
	return Guard{m: m, saved: saved}, nil
}
