// Package cuts maintains polyhedral lower approximations of Bellman
// value functions: append-only sets of affine cuts, their evaluation,
// and their embedding into live stage models.
package cuts

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"sddp/model"
)

// ErrNoCuts reports evaluation of an empty polyhedral function. Every
// stage's function receives at least one cut during the first backward
// pass, so a correctly driven run never sees this.
var ErrNoCuts = errors.New("cuts: empty polyhedral function")

// ErrNonAffineDynamics reports an attempt to embed a cut through
// dynamics that expose no affine form.
var ErrNonAffineDynamics = errors.New("cuts: dynamics has no affine form")

// PolyhedralFunction approximates a convex value function from below as
// the pointwise maximum of affine cuts beta_i + lambda_i·x. Cuts are
// append-only: removing one could lose an established valid lower bound.
type PolyhedralFunction struct {
	betas   []float64
	lambdas [][]float64
	dim     int
}

// New returns an empty polyhedral function over states of the given
// dimension.
func New(dim int) *PolyhedralFunction {
	return &PolyhedralFunction{dim: dim}
}

// NewWithCut returns a freshly initialized function holding exactly one
// cut.
func NewWithCut(beta float64, lambda []float64) *PolyhedralFunction {
	p := New(len(lambda))
	// dimension always matches here
	_ = p.AddCut(beta, lambda)
	return p
}

// Len returns the number of stored cuts.
func (p *PolyhedralFunction) Len() int { return len(p.betas) }

// Dim returns the state dimension.
func (p *PolyhedralFunction) Dim() int { return p.dim }

// Cut returns the i-th cut. The slope slice must not be modified.
func (p *PolyhedralFunction) Cut(i int) (beta float64, lambda []float64) {
	return p.betas[i], p.lambdas[i]
}

// AddCut appends one affine underestimator.
func (p *PolyhedralFunction) AddCut(beta float64, lambda []float64) error {
	if len(lambda) != p.dim {
		return fmt.Errorf("cuts: slope has dimension %d, want %d", len(lambda), p.dim)
	}
	p.betas = append(p.betas, beta)
	p.lambdas = append(p.lambdas, append([]float64(nil), lambda...))
	return nil
}

// Evaluate returns max_i beta_i + lambda_i·x.
func (p *PolyhedralFunction) Evaluate(x []float64) (float64, error) {
	if p.Len() == 0 {
		return 0, ErrNoCuts
	}
	if len(x) != p.dim {
		return 0, fmt.Errorf("cuts: state has dimension %d, want %d", len(x), p.dim)
	}
	best := math.Inf(-1)
	for i, beta := range p.betas {
		if v := beta + floats.Dot(p.lambdas[i], x); v > best {
			best = v
		}
	}
	return best, nil
}

// CutConstraintName names the model constraint carrying cut i, for
// later dual readback.
func CutConstraintName(i int) string {
	return fmt.Sprintf("cut_%d", i)
}

// InstallCut embeds the i-th cut into the PREDECESSOR stage's model m.
// The continuation variable alpha of stage prevStage approximates the
// value of the stage this function belongs to, so the inequality is
//
//	alpha >= beta + lambda·dyn(prevStage, x, u, w)
//
// rewritten through the dynamics' affine form next = A·x + B·u + C·w + b
// into a linear constraint over the predecessor's own variables.
func (p *PolyhedralFunction) InstallCut(m model.Model, prevStage, i int, dyn model.Dynamics) error {
	ad, ok := dyn.(model.AffineDynamics)
	if !ok {
		return ErrNonAffineDynamics
	}
	beta, lambda := p.Cut(i)
	a, b, c, off := ad.Affine(prevStage)

	lv := mat.NewVecDense(len(lambda), lambda)
	var vx, vu, vw mat.VecDense
	vx.MulVec(a.T(), lv)
	vu.MulVec(b.T(), lv)
	vw.MulVec(c.T(), lv)

	// alpha - lambda'A·x - lambda'B·u - lambda'C·w - (beta + lambda·b) >= 0
	expr := model.Expr{Const: -beta}
	if off != nil {
		expr.Const -= floats.Dot(lambda, off)
	}
	expr.Terms = append(expr.Terms, model.Term{Var: model.VarAlpha, Index: 0, Coeff: 1})
	appendTerms := func(v model.Variable, coeffs *mat.VecDense) {
		for j := 0; j < coeffs.Len(); j++ {
			if coeff := coeffs.AtVec(j); coeff != 0 {
				expr.Terms = append(expr.Terms, model.Term{Var: v, Index: j, Coeff: -coeff})
			}
		}
	}
	appendTerms(model.VarState, &vx)
	appendTerms(model.VarControl, &vu)
	appendTerms(model.VarNoise, &vw)

	return m.AddLinearInequality(CutConstraintName(i), expr)
}
