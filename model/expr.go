package model

// Term is one affine term, Coeff * Var[Index].
type Term struct {
	Var   Variable
	Index int
	Coeff float64
}

// QuadTerm is one quadratic term, Coeff * Var1[I1] * Var2[I2].
type QuadTerm struct {
	Var1  Variable
	I1    int
	Var2  Variable
	I2    int
	Coeff float64
}

// Expr is an expression over model variables: a constant plus affine
// terms plus optional quadratic terms. Constraint expressions built by
// the core are purely affine; objectives may carry quadratic terms
// (trust-region regularization).
type Expr struct {
	Const float64
	Terms []Term
	Quad  []QuadTerm
}

// Clone returns a deep copy, so that a scoped mutation of one expression
// never leaks into the saved original.
func (e Expr) Clone() Expr {
	out := Expr{Const: e.Const}
	if len(e.Terms) > 0 {
		out.Terms = append([]Term(nil), e.Terms...)
	}
	if len(e.Quad) > 0 {
		out.Quad = append([]QuadTerm(nil), e.Quad...)
	}
	return out
}
