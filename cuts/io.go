package cuts

import (
	"encoding/json"
	"fmt"
	"os"
)

// CutData is one serializable cut.
type CutData struct {
	Beta   float64   `json:"beta"`
	Lambda []float64 `json:"lambda"`
}

// FunctionData is the serializable form of one stage's polyhedral
// function.
type FunctionData struct {
	Stage int       `json:"stage"`
	Dim   int       `json:"dim"`
	Cuts  []CutData `json:"cuts"`
}

// Save writes per-stage polyhedral functions to a JSON file, so a run's
// accumulated cuts can be reloaded to warm-start a later one.
func Save(path string, fns []*PolyhedralFunction) error {
	out := make([]FunctionData, len(fns))
	for t, fn := range fns {
		fd := FunctionData{Stage: t, Dim: fn.Dim(), Cuts: make([]CutData, fn.Len())}
		for i := 0; i < fn.Len(); i++ {
			beta, lambda := fn.Cut(i)
			fd.Cuts[i] = CutData{Beta: beta, Lambda: append([]float64(nil), lambda...)}
		}
		out[t] = fd
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cuts: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load restores per-stage polyhedral functions from a JSON file.
func Load(path string) ([]*PolyhedralFunction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cuts file: %w", err)
	}
	var in []FunctionData
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cuts: %w", err)
	}
	fns := make([]*PolyhedralFunction, len(in))
	for t, fd := range in {
		fn := New(fd.Dim)
		for _, c := range fd.Cuts {
			if err := fn.AddCut(c.Beta, c.Lambda); err != nil {
				return nil, fmt.Errorf("stage %d: %w", t, err)
			}
		}
		fns[t] = fn
	}
	return fns, nil
}
