package model

import (
	"math"

	"github.com/CraigKelly/hsdm/linalg"
)

// Weight transforms understood by ValidateWeights
const (
	TransformRow      = "r" // row-standardize: each row sums to one
	TransformBinary   = "b" // every link has weight one
	TransformDouble   = "d" // divide by the total weight, scale by n
	TransformOriginal = "o" // leave weights as given
)

// ValidateWeights checks the unit and group level weights and applies the
// requested transform to both. Rows without neighbors are left at zero.
func ValidateWeights(W, M *linalg.CSR, transform string) (*linalg.CSR, *linalg.CSR, error) {
	if W == nil || M == nil {
		return nil, nil, configErrorf("Both W and M weights are required")
	}

	var err error
	W, err = transformWeights("W", W, transform)
	if err != nil {
		return nil, nil, err
	}

	M, err = transformWeights("M", M, transform)
	if err != nil {
		return nil, nil, err
	}

	return W, M, nil
}

func transformWeights(name string, w *linalg.CSR, transform string) (*linalg.CSR, error) {
	if w.Rows != w.Cols {
		return nil, configErrorf("Weights %s must be square, got %dx%d", name, w.Rows, w.Cols)
	}
	if w.Rows < 1 {
		return nil, configErrorf("Weights %s are empty", name)
	}

	for _, v := range w.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, configErrorf("Weights %s contain a non-finite value", name)
		}
		if v < 0 {
			return nil, configErrorf("Weights %s contain a negative value %v", name, v)
		}
	}

	switch transform {
	case TransformRow:
		sums := w.RowSums()
		return w.Map(func(i, _ int, v float64) float64 {
			if sums[i] == 0 {
				return v
			}
			return v / sums[i]
		}), nil

	case TransformBinary:
		return w.Map(func(_, _ int, v float64) float64 { return 1 }), nil

	case TransformDouble:
		total := 0.0
		for _, v := range w.Data {
			total += v
		}
		if total == 0 {
			return nil, configErrorf("Weights %s have no links to double-standardize", name)
		}
		return w.Scale(float64(w.Rows) / total), nil

	case TransformOriginal:
		return w.Clone(), nil
	}

	return nil, configErrorf("Unknown weights transform %q", transform)
}
