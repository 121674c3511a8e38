package linalg

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// ring returns the row-standardized weights of n units on a circle
func ring(n int) *CSR {
	var entries []Triplet
	for i := 0; i < n; i++ {
		entries = append(entries, Triplet{i, (i + 1) % n, 0.5})
		entries = append(entries, Triplet{i, (i + n - 1) % n, 0.5})
	}
	m, err := NewCSR(n, n, entries)
	if err != nil {
		panic(err)
	}
	return m
}

// pairs returns n/2 disconnected pairs, each with eigenvalues -1 and 1
func pairs(n int) *CSR {
	var entries []Triplet
	for i := 0; i+1 < n; i += 2 {
		entries = append(entries, Triplet{i, i + 1, 1})
		entries = append(entries, Triplet{i + 1, i, 1})
	}
	m, err := NewCSR(n, n, entries)
	if err != nil {
		panic(err)
	}
	return m
}

// lattice returns the row-standardized rook weights of an n by n grid
func lattice(n int) *CSR {
	var entries []Triplet
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			var nb []int
			if r > 0 {
				nb = append(nb, (r-1)*n+c)
			}
			if r+1 < n {
				nb = append(nb, (r+1)*n+c)
			}
			if c > 0 {
				nb = append(nb, r*n+c-1)
			}
			if c+1 < n {
				nb = append(nb, r*n+c+1)
			}
			for _, j := range nb {
				entries = append(entries, Triplet{r*n + c, j, 1 / float64(len(nb))})
			}
		}
	}
	m, err := NewCSR(n*n, n*n, entries)
	if err != nil {
		panic(err)
	}
	return m
}

func TestCSRBasics(t *testing.T) {
	assert := assert.New(t)

	m, err := NewCSR(2, 3, []Triplet{{0, 2, 1.5}, {1, 0, 2}, {0, 2, 0.5}, {1, 1, 0}})
	assert.NoError(err)
	assert.Equal(2, m.NNZ())
	assert.Equal(2.0, m.At(0, 2))
	assert.Equal(2.0, m.At(1, 0))
	assert.Equal(0.0, m.At(1, 1))
	assert.Equal(2.0, m.T().At(2, 0))
	assert.Equal([]float64{2, 2}, m.RowSums())

	dst := make([]float64, 2)
	m.MulVecTo(dst, []float64{1, 2, 3})
	assert.Equal([]float64{6, 2}, dst)

	d := m.ToDense()
	assert.True(mat.Equal(d, m))
	assert.True(mat.Equal(FromDense(d), m))

	xd := mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1})
	assert.True(mat.Equal(mat.NewDense(2, 2, []float64{2, 2, 2, 0}), m.MulDense(xd)))

	_, err = NewCSR(2, 2, []Triplet{{2, 0, 1}})
	assert.Error(err)
}

func TestIMinusScaled(t *testing.T) {
	assert := assert.New(t)

	m := ring(4)
	b := IMinusScaled(0.4, m)
	assert.Equal(1.0, b.At(0, 0))
	assert.InDelta(-0.2, b.At(0, 1), 1e-12)
	assert.Equal(0.0, b.At(0, 2))

	// rho == 0 gives the identity with no stored off diagonal zeros
	id := IMinusScaled(0, m)
	assert.Equal(4, id.NNZ())
	assert.True(mat.Equal(Identity(4), id))
}

func TestEigenRangeDense(t *testing.T) {
	assert := assert.New(t)

	lo, hi, err := EigenRange(ring(4))
	assert.NoError(err)
	assert.InDelta(-1.0, lo, 1e-10)
	assert.InDelta(1.0, hi, 1e-10)

	// Odd ring: smallest eigenvalue is cos(2*pi*2/5)
	lo, hi, err = EigenRange(ring(5))
	assert.NoError(err)
	assert.InDelta(math.Cos(4*math.Pi/5), lo, 1e-10)
	assert.InDelta(1.0, hi, 1e-10)

	// Row standardized triangle: the largest eigenvalue is exactly 1
	lo, hi, err = EigenRange(ring(3))
	assert.NoError(err)
	assert.InDelta(-0.5, lo, 1e-10)
	assert.Equal(1.0, hi)
	assert.Equal(1.0, 1/hi)

	_, _, err = EigenRange(&CSR{Rows: 2, Cols: 3, Indptr: make([]int, 3)})
	assert.Error(err)
	assert.Equal(ErrNotSquare, errors.Cause(err))
}

func TestEigenRangePower(t *testing.T) {
	assert := assert.New(t)

	n := DenseEigenLimit + 44
	lo, hi, err := EigenRange(pairs(n))
	assert.NoError(err)
	assert.InDelta(-1.0, lo, 1e-6)
	assert.InDelta(1.0, hi, 1e-6)

	// Negative entries: the largest eigenvalue comes from the iteration too
	lo, hi, err = EigenRange(pairs(n).Scale(-1))
	assert.NoError(err)
	assert.Equal(-1.0, lo)
	assert.Equal(1.0, hi)

	zero := &CSR{Rows: n, Cols: n, Indptr: make([]int, n+1)}
	lo, hi, err = EigenRange(zero)
	assert.NoError(err)
	assert.Equal(0.0, lo)
	assert.Equal(0.0, hi)
}

func TestEigenRangeSpatial(t *testing.T) {
	assert := assert.New(t)

	// Rings and lattices have a tiny spectral gap at both ends
	for _, m := range []*CSR{ring(DenseEigenLimit + 1), ring(400), lattice(30)} {
		assert.True(m.Rows > DenseEigenLimit)
		lo, hi, err := EigenRange(m)
		assert.NoError(err, "n=%d", m.Rows)
		assert.Equal(1.0, hi, "n=%d", m.Rows)
		assert.True(lo >= -1, "n=%d", m.Rows)
	}

	// Even rings and lattices are bipartite
	lo, _, err := EigenRange(ring(400))
	assert.NoError(err)
	assert.Equal(-1.0, lo)
	lo, _, err = EigenRange(lattice(30))
	assert.NoError(err)
	assert.Equal(-1.0, lo)

	// Odd ring: smallest eigenvalue is cos(2*pi*128/257)
	lo, _, err = EigenRange(ring(DenseEigenLimit + 1))
	assert.NoError(err)
	assert.InDelta(math.Cos(2*math.Pi*128/257), lo, 1e-8)
}

func TestLogDet(t *testing.T) {
	assert := assert.New(t)

	a := mat.NewDense(2, 2, []float64{2, 0, 0, 3})
	ld, err := LogDet(a)
	assert.NoError(err)
	assert.InDelta(math.Log(6), ld, 1e-12)

	b := IMinusScaled(0.5, ring(4))
	ld, err = LogDet(b.ToDense())
	assert.NoError(err)
	// eigenvalues of the ring are 1, 0, 0, -1
	assert.InDelta(math.Log(0.5*1.5), ld, 1e-12)

	_, err = LogDet(mat.NewDense(2, 2, []float64{1, 1, 1, 1}))
	assert.Equal(ErrSingular, errors.Cause(err))

	_, err = LogDet(mat.NewDense(2, 2, []float64{0, 1, 1, 0}))
	assert.Equal(ErrSingular, errors.Cause(err))
}

func TestDrawMVN(t *testing.T) {
	assert := assert.New(t)

	src := rand.NewPCG(1, 2)

	// Very tight precision: the draw should sit on the mean P^-1 b
	prec := mat.NewSymDense(2, []float64{1e8, 0, 0, 4e8})
	b := mat.NewVecDense(2, []float64{2e8, -4e8})
	x, err := DrawMVN(prec, b, src)
	assert.NoError(err)
	assert.InDelta(2.0, x.AtVec(0), 1e-2)
	assert.InDelta(-1.0, x.AtVec(1), 1e-2)

	// Sample mean of a loose draw converges
	prec = mat.NewSymDense(1, []float64{4})
	b = mat.NewVecDense(1, []float64{2})
	sum := 0.0
	const n = 4000
	for i := 0; i < n; i++ {
		x, err := DrawMVN(prec, b, src)
		assert.NoError(err)
		sum += x.AtVec(0)
	}
	assert.InDelta(0.5, sum/n, 0.05)

	_, err = DrawMVN(prec, mat.NewVecDense(2, nil), src)
	assert.Error(err)

	neg := mat.NewSymDense(2, []float64{-1, 0, 0, -1})
	_, err = DrawMVN(neg, mat.NewVecDense(2, nil), src)
	assert.Equal(ErrSingular, errors.Cause(err))
}
