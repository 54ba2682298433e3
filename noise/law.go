// Package noise models per-stage discrete uncertainty: finite noise
// laws, weighted sampling, and the scenario arrays fed to forward
// simulation.
package noise

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// probTol bounds the accepted drift of a probability vector's sum from 1.
const probTol = 1e-9

// Law is a finite discrete distribution over noise vectors for one
// stage: ordered support points with matching probabilities.
type Law struct {
	support [][]float64
	probs   []float64
	dim     int
}

// NewLaw validates and builds a stage law. Support points keep their
// order; probabilities must be non-negative and sum to 1 within
// tolerance.
func NewLaw(support [][]float64, probs []float64) (*Law, error) {
	if len(support) == 0 {
		return nil, fmt.Errorf("noise: empty support")
	}
	if len(support) != len(probs) {
		return nil, fmt.Errorf("noise: %d support points but %d probabilities", len(support), len(probs))
	}
	dim := len(support[0])
	if dim == 0 {
		return nil, fmt.Errorf("noise: zero-dimensional support point")
	}
	sum := 0.0
	for i, p := range probs {
		if len(support[i]) != dim {
			return nil, fmt.Errorf("noise: support point %d has dimension %d, want %d", i, len(support[i]), dim)
		}
		if p < 0 {
			return nil, fmt.Errorf("noise: negative probability %g at index %d", p, i)
		}
		sum += p
	}
	if math.Abs(sum-1) > probTol {
		return nil, fmt.Errorf("noise: probabilities sum to %g, want 1", sum)
	}
	l := &Law{
		support: make([][]float64, len(support)),
		probs:   append([]float64(nil), probs...),
		dim:     dim,
	}
	for i, pt := range support {
		l.support[i] = append([]float64(nil), pt...)
	}
	return l, nil
}

// Len returns the number of support points.
func (l *Law) Len() int { return len(l.support) }

// Dim returns the dimension of each support point.
func (l *Law) Dim() int { return l.dim }

// Support returns the i-th support point. The slice must not be modified.
func (l *Law) Support(i int) []float64 { return l.support[i] }

// Prob returns the probability of the i-th support point.
func (l *Law) Prob(i int) float64 { return l.probs[i] }

// Sample draws one support point index according to the law.
func (l *Law) Sample(src rand.Source) int {
	cat := distuv.NewCategorical(l.probs, src)
	return int(cat.Rand())
}

// Simulate draws k independent scenarios from the per-stage laws,
// producing a canonical scenario array of shape [len(laws)][k][dim].
func Simulate(laws []*Law, k int, src rand.Source) (*Scenarios, error) {
	if len(laws) == 0 {
		return nil, fmt.Errorf("noise: no laws to simulate from")
	}
	if k <= 0 {
		return nil, fmt.Errorf("noise: trajectory count must be positive, got %d", k)
	}
	dim := laws[0].Dim()
	for t, law := range laws {
		if law.Dim() != dim {
			return nil, fmt.Errorf("noise: law %d has dimension %d, want %d", t, law.Dim(), dim)
		}
	}
	s := newScenarios(len(laws), k, dim)
	for t, law := range laws {
		cat := distuv.NewCategorical(law.probs, src)
		for j := 0; j < k; j++ {
			copy(s.At(t, j), law.support[int(cat.Rand())])
		}
	}
	return s, nil
}
