package linalg

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Cholesky factors a symmetric positive definite matrix. If the first attempt
// fails, a small diagonal jitter proportional to the mean diagonal is added
// and the factorization is retried once.
func Cholesky(a *mat.SymDense) (*mat.Cholesky, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); ok {
		return &chol, nil
	}

	n := a.SymmetricDim()
	trace := 0.0
	for i := 0; i < n; i++ {
		trace += a.At(i, i)
	}
	eps := 1e-8 * trace / float64(n)
	if eps <= 0 {
		eps = 1e-8
	}

	jittered := mat.NewSymDense(n, nil)
	jittered.CopySym(a)
	for i := 0; i < n; i++ {
		jittered.SetSym(i, i, jittered.At(i, i)+eps)
	}

	if ok := chol.Factorize(jittered); ok {
		return &chol, nil
	}
	return nil, errors.Wrap(ErrSingular, "cholesky factorization failed even with jitter")
}

// DrawMVN draws x ~ N(P⁻¹b, P⁻¹) given a precision matrix P and the linear
// term b, the usual form of a conjugate Gaussian full conditional.
func DrawMVN(prec *mat.SymDense, b mat.Vector, src rand.Source) (*mat.VecDense, error) {
	n := prec.SymmetricDim()
	if b.Len() != n {
		return nil, errors.Wrapf(mat.ErrShape, "precision %dx%d with linear term of length %d", n, n, b.Len())
	}

	chol, err := Cholesky(prec)
	if err != nil {
		return nil, err
	}

	mean := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(mean, b); err != nil {
		return nil, errors.Wrap(ErrSingular, err.Error())
	}

	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, errors.Wrap(ErrSingular, err.Error())
	}

	dist, ok := distmv.NewNormal(mean.RawVector().Data, &cov, src)
	if !ok {
		return nil, errors.Wrap(ErrSingular, "posterior covariance is not positive definite")
	}

	return mat.NewVecDense(n, dist.Rand(nil)), nil
}
