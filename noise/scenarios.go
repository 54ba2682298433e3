package noise

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrInputShape reports a malformed scenario array. Callers fail fast on
// it, before any subproblem solve is attempted.
var ErrInputShape = errors.New("noise: scenario array has wrong shape")

// Scenarios is a stage × trajectory × component noise array backed by a
// flat slice.
type Scenarios struct {
	data   []float64
	stages int
	count  int
	dim    int
}

func newScenarios(stages, count, dim int) *Scenarios {
	return &Scenarios{
		data:   make([]float64, stages*count*dim),
		stages: stages,
		count:  count,
		dim:    dim,
	}
}

// NewScenarios copies a canonical rank-3 array [stages][count][dim].
// Ragged or empty input is rejected with ErrInputShape.
func NewScenarios(data [][][]float64) (*Scenarios, error) {
	if len(data) == 0 || len(data[0]) == 0 || len(data[0][0]) == 0 {
		return nil, fmt.Errorf("empty scenario input: %w", ErrInputShape)
	}
	stages, count, dim := len(data), len(data[0]), len(data[0][0])
	s := newScenarios(stages, count, dim)
	for t := range data {
		if len(data[t]) != count {
			return nil, fmt.Errorf("stage %d holds %d trajectories, want %d: %w", t, len(data[t]), count, ErrInputShape)
		}
		for j := range data[t] {
			if len(data[t][j]) != dim {
				return nil, fmt.Errorf("stage %d trajectory %d has dimension %d, want %d: %w",
					t, j, len(data[t][j]), dim, ErrInputShape)
			}
			copy(s.At(t, j), data[t][j])
		}
	}
	return s, nil
}

// ScenariosFromMatrix reinterprets rank-2 scalar-noise input
// [stages][count] as [stages][count][1]. The fallback is explicit: a
// warning is logged, the data is never silently reshaped elsewhere.
func ScenariosFromMatrix(data [][]float64, log *zap.Logger) (*Scenarios, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, fmt.Errorf("empty scenario input: %w", ErrInputShape)
	}
	stages, count := len(data), len(data[0])
	s := newScenarios(stages, count, 1)
	for t := range data {
		if len(data[t]) != count {
			return nil, fmt.Errorf("stage %d holds %d trajectories, want %d: %w", t, len(data[t]), count, ErrInputShape)
		}
		for j, v := range data[t] {
			s.At(t, j)[0] = v
		}
	}
	log.Warn("scenario input had rank 2, broadcast into singleton noise dimension",
		zap.Int("stages", stages), zap.Int("trajectories", count))
	return s, nil
}

// Stages returns the number of stages covered by the array.
func (s *Scenarios) Stages() int { return s.stages }

// Count returns the number of trajectories.
func (s *Scenarios) Count() int { return s.count }

// Dim returns the noise dimension.
func (s *Scenarios) Dim() int { return s.dim }

// At returns the noise vector for stage t, trajectory k, as a view into
// the backing array.
func (s *Scenarios) At(t, k int) []float64 {
	off := (t*s.count + k) * s.dim
	return s.data[off : off+s.dim]
}
