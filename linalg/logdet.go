package linalg

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LogDet returns log(det(a)) for a square matrix with a positive determinant.
// A zero, negative or non-finite determinant is reported as ErrSingular.
func LogDet(a mat.Matrix) (float64, error) {
	r, c := a.Dims()
	if r != c {
		return 0, errors.Wrapf(ErrNotSquare, "log determinant of %dx%d", r, c)
	}
	if r == 0 {
		return 0, ErrEmpty
	}

	var lu mat.LU
	lu.Factorize(a)
	logDet, sign := lu.LogDet()
	if sign <= 0 || math.IsInf(logDet, 0) || math.IsNaN(logDet) {
		return 0, errors.Wrapf(ErrSingular, "log determinant (sign %v, value %v)", sign, logDet)
	}

	return logDet, nil
}
