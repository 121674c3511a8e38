package model

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/hsdm/linalg"
)

// Input is the raw construction data of an HSDM. W and M are raw spatial
// weights; exactly one of Delta and Membership must be set. A nil Z becomes a
// single column of ones (a group-level intercept).
type Input struct {
	Y          []float64
	X          *mat.Dense
	W          *linalg.CSR
	M          *linalg.CSR
	Z          *mat.Dense
	Delta      *mat.Dense
	Membership []int
}

// Data is validated model data: transformed weights, a consistent incidence
// matrix and membership list, and covariates that match the weights.
type Data struct {
	Y          *mat.VecDense
	X          *mat.Dense
	W          *linalg.CSR
	M          *linalg.CSR
	Z          *mat.Dense
	Delta      *mat.Dense
	Membership []int
}

// NewData validates raw input. Weights are checked and transformed first,
// then the unit count of X is checked against W, then the incidence and the
// covariates are built.
func NewData(in Input, transform string, lag bool) (*Data, error) {
	W, M, err := ValidateWeights(in.W, in.M, transform)
	if err != nil {
		return nil, err
	}
	N, J := W.Rows, M.Rows

	if in.X == nil {
		return nil, configErrorf("Covariates X are required")
	}
	if xn, _ := in.X.Dims(); xn != N {
		return nil, configErrorf("Number of lower-level observations does not match between X (%d) and W (%d)", xn, N)
	}

	var delta mat.Matrix
	if in.Delta != nil {
		delta = in.Delta
	}
	Delta, membership, err := BuildIncidence(delta, in.Membership, N, J)
	if err != nil {
		return nil, err
	}

	X, err := ValidateCovariates(in.X, W, lag)
	if err != nil {
		return nil, err
	}

	d := &Data{
		W:          W,
		M:          M,
		X:          X,
		Delta:      Delta,
		Membership: membership,
	}

	if len(in.Y) != N {
		return nil, configErrorf("Response has %d values but W has %d units", len(in.Y), N)
	}
	d.Y = mat.NewVecDense(N, append([]float64(nil), in.Y...))

	if in.Z == nil {
		ones := make([]float64, J)
		for i := range ones {
			ones[i] = 1
		}
		d.Z = mat.NewDense(J, 1, ones)
	} else {
		d.Z = mat.DenseCopyOf(in.Z)
	}

	if err := d.Check(); err != nil {
		return nil, errors.Wrap(err, "Validated data is not consistent")
	}

	return d, nil
}

// Dims returns N, J, p and q
func (d *Data) Dims() (N, J, p, q int) {
	N, p = d.X.Dims()
	J, q = d.Z.Dims()
	return
}

// Check returns an error if the data dimensions disagree or any value is not
// finite
func (d *Data) Check() error {
	if d.Y == nil || d.X == nil || d.Z == nil || d.W == nil || d.M == nil || d.Delta == nil {
		return configErrorf("Data is missing a component")
	}

	N, J, p, q := d.Dims()
	if p < 1 || q < 1 {
		return configErrorf("Need at least one covariate at each level (p=%d, q=%d)", p, q)
	}
	if d.Y.Len() != N {
		return configErrorf("Response has %d values but X has %d rows", d.Y.Len(), N)
	}
	if d.W.Rows != N || d.W.Cols != N {
		return configErrorf("Number of lower-level observations does not match between X (%d) and W (%d)", N, d.W.Rows)
	}
	if d.M.Rows != J || d.M.Cols != J {
		return configErrorf("Number of groups does not match between Z (%d) and M (%d)", J, d.M.Rows)
	}
	if r, c := d.Delta.Dims(); r != N || c != J {
		return configErrorf("Delta is %dx%d but expected %dx%d", r, c, N, J)
	}
	if len(d.Membership) != N {
		return configErrorf("Membership has %d entries but there are %d units", len(d.Membership), N)
	}

	for i := 0; i < N; i++ {
		if v := d.Y.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return configErrorf("y[%d] is not finite", i)
		}
	}
	for i := 0; i < J; i++ {
		for j := 0; j < q; j++ {
			if v := d.Z.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return configErrorf("Z[%d,%d] is not finite", i, j)
			}
		}
	}

	return nil
}
