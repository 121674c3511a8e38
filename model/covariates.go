package model

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/hsdm/linalg"
)

// ValidateCovariates checks the lower-level design matrix against the unit
// weights. With lag set, the spatially lagged version W·x of every
// non-constant column is appended (the Durbin terms).
func ValidateCovariates(X mat.Matrix, W *linalg.CSR, lag bool) (*mat.Dense, error) {
	if X == nil {
		return nil, configErrorf("Covariates X are required")
	}

	n, p := X.Dims()
	if n != W.Rows {
		return nil, configErrorf("Number of lower-level observations does not match between X (%d) and W (%d)", n, W.Rows)
	}
	if p < 1 {
		return nil, configErrorf("X has no columns")
	}

	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, configErrorf("X[%d,%d] is not finite", i, j)
			}
		}
	}

	out := mat.DenseCopyOf(X)
	if !lag {
		return out, nil
	}

	var varying []int
	for j := 0; j < p; j++ {
		if !isConstant(out.ColView(j)) {
			varying = append(varying, j)
		}
	}
	if len(varying) == 0 {
		return out, nil
	}

	sub := mat.NewDense(n, len(varying), nil)
	for k, j := range varying {
		sub.SetCol(k, mat.Col(nil, j, out))
	}
	lagged := W.MulDense(sub)

	var aug mat.Dense
	aug.Augment(out, lagged)
	return &aug, nil
}

func isConstant(v mat.Vector) bool {
	for i := 1; i < v.Len(); i++ {
		if v.AtVec(i) != v.AtVec(0) {
			return false
		}
	}
	return true
}
