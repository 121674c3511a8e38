package sampler

import (
	"math"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hsdm/linalg"
	"github.com/CraigKelly/hsdm/model"
)

// zeroEig is the magnitude below which an extremal eigenvalue counts as zero
const zeroEig = 1e-12

// Bounds is the open interval Rho must stay inside
type Bounds struct {
	Min float64
	Max float64
}

// Contains is true when rho is strictly inside the bounds
func (b Bounds) Contains(rho float64) bool {
	return rho > b.Min && rho < b.Max
}

// Mid returns the midpoint of the interval
func (b Bounds) Mid() float64 {
	return (b.Min + b.Max) / 2
}

// ComputeBounds finds the admissible interval for Rho. With TruncateEigs the
// bounds are the reciprocals of the extremal eigenvalues of M, so
// I - Rho*M stays invertible.
func ComputeBounds(M *linalg.CSR, tr Truncation) (Bounds, error) {
	var b Bounds

	switch tr.Mode {
	case TruncateStable:
		b = Bounds{Min: -1, Max: 1}

	case TruncateFixed:
		b = Bounds{Min: tr.Low, Max: tr.High}

	case TruncateEigs:
		if M == nil {
			return b, configErrorf("Group weights are required for eigenvalue truncation")
		}
		emin, emax, err := linalg.EigenRange(M)
		if err != nil {
			return b, errors.Wrapf(model.ErrNumericalInstability, "eigenvalue range of M: %v", err)
		}
		if math.Abs(emin) < zeroEig || math.Abs(emax) < zeroEig {
			return b, errors.Wrapf(model.ErrNumericalInstability, "M has a zero extremal eigenvalue (min=%g, max=%g)", emin, emax)
		}
		b = Bounds{Min: 1 / emin, Max: 1 / emax}

	default:
		return b, configErrorf("Unknown truncation mode %d", tr.Mode)
	}

	if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsInf(b.Min, 0) || math.IsInf(b.Max, 0) {
		return b, errors.Wrapf(model.ErrNumericalInstability, "Rho bounds are not finite (%g, %g)", b.Min, b.Max)
	}
	if b.Min >= b.Max {
		return b, errors.Wrapf(model.ErrNumericalInstability, "Rho bounds are empty (%g, %g)", b.Min, b.Max)
	}

	return b, nil
}
