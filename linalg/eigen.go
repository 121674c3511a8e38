package linalg

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Errors reported by the numerical routines in this package
var (
	ErrNotSquare    = errors.New("matrix is not square")
	ErrEmpty        = errors.New("matrix is empty")
	ErrNotConverged = errors.New("eigenvalue iteration did not converge")
	ErrSingular     = errors.New("matrix is singular or not positive definite")
)

// DenseEigenLimit is the largest dimension for which EigenRange runs a full
// dense eigendecomposition. Larger matrices use shifted power iteration on the
// sparse representation, and fall back to the dense decomposition when the
// iteration does not converge.
const DenseEigenLimit = 256

const (
	powerTol     = 1e-10
	powerMaxIter = 100000

	// snapTol is the relative distance from the row sum bound within which
	// an extremal eigenvalue is taken to be exactly on the bound
	snapTol = 1e-8
)

// EigenRange returns the smallest and largest (real parts of the) eigenvalues
// of a square sparse matrix.
//
// Every eigenvalue lies in [-r, r] where r is the largest absolute row sum.
// Extremes within a small relative distance of -r or r are reported as
// exactly -r or r, so a row-standardized matrix reports a largest eigenvalue
// of exactly 1.
func EigenRange(m *CSR) (float64, float64, error) {
	if m.Rows != m.Cols {
		return 0, 0, errors.Wrapf(ErrNotSquare, "eigen range of %dx%d", m.Rows, m.Cols)
	}
	if m.Rows == 0 {
		return 0, 0, ErrEmpty
	}

	var emin, emax float64
	var err error
	if m.Rows <= DenseEigenLimit {
		emin, emax, err = denseEigenRange(m)
	} else {
		emin, emax, err = powerEigenRange(m)
	}
	if err != nil {
		return 0, 0, err
	}

	r := m.MaxAbsRowSum()
	return snap(emin, -r), snap(emax, r), nil
}

func snap(v, bound float64) float64 {
	if math.Abs(v-bound) <= snapTol*math.Abs(bound) {
		return bound
	}
	return v
}

// perronRoot reports the common row sum of a non-negative matrix whose rows
// all sum to the same value. That sum is then the largest eigenvalue, with
// the constant vector as its eigenvector.
func perronRoot(m *CSR) (float64, bool) {
	for _, v := range m.Data {
		if v < 0 {
			return 0, false
		}
	}
	sums := m.RowSums()
	lo, hi := floats.Min(sums), floats.Max(sums)
	if hi <= 0 || hi-lo > snapTol*hi {
		return 0, false
	}
	return hi, true
}

func denseEigenRange(m *CSR) (float64, float64, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(m.ToDense(), mat.EigenNone); !ok {
		return 0, 0, errors.Wrap(ErrNotConverged, "dense eigendecomposition failed")
	}

	vals := eig.Values(nil)
	emin, emax := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		emin = math.Min(emin, real(v))
		emax = math.Max(emax, real(v))
	}
	return emin, emax, nil
}

// powerEigenRange shifts the spectrum so that each extreme becomes the
// dominant eigenvalue. With s >= spectral radius, M + sI has its largest
// eigenvalue at emax + s and sI - M at s - emin, both non-negative.
func powerEigenRange(m *CSR) (float64, float64, error) {
	shift := m.MaxAbsRowSum()
	if shift == 0 {
		// Zero matrix: every eigenvalue is zero
		return 0, 0, nil
	}

	emax, known := perronRoot(m)
	if !known {
		hi, err := dominantEigenvalue(m, 1, shift)
		if errors.Cause(err) == ErrNotConverged {
			return denseEigenRange(m)
		}
		emax = hi - shift
	}

	lo, err := dominantEigenvalue(m, -1, shift)
	if errors.Cause(err) == ErrNotConverged {
		return denseEigenRange(m)
	}

	return shift - lo, emax, nil
}

// dominantEigenvalue runs power iteration on sign*M + shift*I. It stops once
// the residual |Av - lambda*v| is small relative to lambda; a slowly
// converging iteration reports ErrNotConverged rather than a stale estimate.
func dominantEigenvalue(m *CSR, sign, shift float64) (float64, error) {
	n := m.Rows
	v := make([]float64, n)
	for i := range v {
		// Deterministic start that is not an eigenvector of a row-standardized
		// matrix (the constant vector is).
		v[i] = 1 + 0.5*math.Sin(float64(i+1))
	}
	floats.Scale(1/floats.Norm(v, 2), v)

	w := make([]float64, n)
	r := make([]float64, n)
	for it := 0; it < powerMaxIter; it++ {
		m.MulVecTo(w, v)
		floats.Scale(sign, w)
		floats.AddScaled(w, shift, v)

		lambda := floats.Dot(v, w)
		copy(r, w)
		floats.AddScaled(r, -lambda, v)
		if floats.Norm(r, 2) <= powerTol*math.Max(1, math.Abs(lambda)) {
			return lambda, nil
		}

		norm := floats.Norm(w, 2)
		if norm == 0 {
			return 0, nil
		}
		floats.Scale(1/norm, w)
		v, w = w, v
	}

	return 0, errors.Wrapf(ErrNotConverged, "after %d iterations", powerMaxIter)
}
