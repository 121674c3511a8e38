// Package linalg holds the linear algebra the sampler needs on top of gonum:
// a compressed sparse row matrix for spatial weights, extremal eigenvalues,
// log-determinants and multivariate normal draws from a precision matrix.
package linalg

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CSR is a compressed sparse row matrix. Row i holds the entries
// Indices[Indptr[i]:Indptr[i+1]] (sorted column indices) with values taken
// from the same range of Data. CSR implements mat.Matrix.
type CSR struct {
	Rows    int
	Cols    int
	Indptr  []int
	Indices []int
	Data    []float64
}

// Triplet is a single (row, col, value) entry used to build a CSR
type Triplet struct {
	Row, Col int
	Val      float64
}

// NewCSR builds a rows×cols matrix from triplets. Duplicate entries are summed
// and explicit zeros are dropped.
func NewCSR(rows, cols int, entries []Triplet) (*CSR, error) {
	if rows < 0 || cols < 0 {
		return nil, errors.Errorf("Invalid sparse dims %dx%d", rows, cols)
	}

	sorted := make([]Triplet, len(entries))
	copy(sorted, entries)
	for _, e := range sorted {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			return nil, errors.Errorf("Entry (%d,%d) outside %dx%d matrix", e.Row, e.Col, rows, cols)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})

	s := &CSR{
		Rows:   rows,
		Cols:   cols,
		Indptr: make([]int, rows+1),
	}

	for i := 0; i < len(sorted); {
		e := sorted[i]
		val := e.Val
		j := i + 1
		for j < len(sorted) && sorted[j].Row == e.Row && sorted[j].Col == e.Col {
			val += sorted[j].Val
			j++
		}
		if val != 0 {
			s.Indices = append(s.Indices, e.Col)
			s.Data = append(s.Data, val)
			s.Indptr[e.Row+1]++
		}
		i = j
	}

	for r := 0; r < rows; r++ {
		s.Indptr[r+1] += s.Indptr[r]
	}

	return s, nil
}

// FromDense converts any gonum matrix to CSR, skipping zeros
func FromDense(m mat.Matrix) *CSR {
	r, c := m.Dims()
	s := &CSR{
		Rows:   r,
		Cols:   c,
		Indptr: make([]int, r+1),
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if v != 0 {
				s.Indices = append(s.Indices, j)
				s.Data = append(s.Data, v)
			}
		}
		s.Indptr[i+1] = len(s.Data)
	}
	return s
}

// Identity returns the n×n sparse identity
func Identity(n int) *CSR {
	s := &CSR{
		Rows:    n,
		Cols:    n,
		Indptr:  make([]int, n+1),
		Indices: make([]int, n),
		Data:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.Indices[i] = i
		s.Data[i] = 1
		s.Indptr[i+1] = i + 1
	}
	return s
}

// Dims implements mat.Matrix
func (s *CSR) Dims() (int, int) {
	return s.Rows, s.Cols
}

// At implements mat.Matrix
func (s *CSR) At(i, j int) float64 {
	if i < 0 || i >= s.Rows || j < 0 || j >= s.Cols {
		panic(mat.ErrIndexOutOfRange)
	}
	lo, hi := s.Indptr[i], s.Indptr[i+1]
	k := lo + sort.SearchInts(s.Indices[lo:hi], j)
	if k < hi && s.Indices[k] == j {
		return s.Data[k]
	}
	return 0
}

// T implements mat.Matrix
func (s *CSR) T() mat.Matrix {
	return mat.Transpose{Matrix: s}
}

// NNZ is the number of stored entries
func (s *CSR) NNZ() int {
	return len(s.Data)
}

// Clone returns a deep copy
func (s *CSR) Clone() *CSR {
	return &CSR{
		Rows:    s.Rows,
		Cols:    s.Cols,
		Indptr:  append([]int(nil), s.Indptr...),
		Indices: append([]int(nil), s.Indices...),
		Data:    append([]float64(nil), s.Data...),
	}
}

// Row calls fn for every stored entry in row i
func (s *CSR) Row(i int, fn func(j int, v float64)) {
	for k := s.Indptr[i]; k < s.Indptr[i+1]; k++ {
		fn(s.Indices[k], s.Data[k])
	}
}

// RowSums returns the sum of each row
func (s *CSR) RowSums() []float64 {
	sums := make([]float64, s.Rows)
	for i := 0; i < s.Rows; i++ {
		for k := s.Indptr[i]; k < s.Indptr[i+1]; k++ {
			sums[i] += s.Data[k]
		}
	}
	return sums
}

// Map returns a copy with fn applied to every stored (non-zero) entry.
// Entries mapped to zero are kept as explicit zeros.
func (s *CSR) Map(fn func(i, j int, v float64) float64) *CSR {
	cp := s.Clone()
	for i := 0; i < cp.Rows; i++ {
		for k := cp.Indptr[i]; k < cp.Indptr[i+1]; k++ {
			cp.Data[k] = fn(i, cp.Indices[k], cp.Data[k])
		}
	}
	return cp
}

// Scale returns alpha*s
func (s *CSR) Scale(alpha float64) *CSR {
	return s.Map(func(_, _ int, v float64) float64 { return alpha * v })
}

// MaxAbsRowSum is the infinity norm, an upper bound on the spectral radius
func (s *CSR) MaxAbsRowSum() float64 {
	best := 0.0
	for i := 0; i < s.Rows; i++ {
		sum := 0.0
		for k := s.Indptr[i]; k < s.Indptr[i+1]; k++ {
			sum += math.Abs(s.Data[k])
		}
		best = math.Max(best, sum)
	}
	return best
}

// MulVecTo computes dst = s*x. dst must have length Rows and x length Cols.
func (s *CSR) MulVecTo(dst, x []float64) {
	if len(dst) != s.Rows || len(x) != s.Cols {
		panic(mat.ErrShape)
	}
	for i := 0; i < s.Rows; i++ {
		sum := 0.0
		for k := s.Indptr[i]; k < s.Indptr[i+1]; k++ {
			sum += s.Data[k] * x[s.Indices[k]]
		}
		dst[i] = sum
	}
}

// MulVec returns s*x as a new vector
func (s *CSR) MulVec(x mat.Vector) *mat.VecDense {
	if x.Len() != s.Cols {
		panic(mat.ErrShape)
	}
	src := make([]float64, s.Cols)
	for i := range src {
		src[i] = x.AtVec(i)
	}
	out := make([]float64, s.Rows)
	s.MulVecTo(out, src)
	return mat.NewVecDense(s.Rows, out)
}

// MulDense returns s*x as a dense matrix
func (s *CSR) MulDense(x mat.Matrix) *mat.Dense {
	xr, xc := x.Dims()
	if xr != s.Cols {
		panic(mat.ErrShape)
	}
	out := mat.NewDense(s.Rows, xc, nil)
	for i := 0; i < s.Rows; i++ {
		for k := s.Indptr[i]; k < s.Indptr[i+1]; k++ {
			j, v := s.Indices[k], s.Data[k]
			for c := 0; c < xc; c++ {
				out.Set(i, c, out.At(i, c)+v*x.At(j, c))
			}
		}
	}
	return out
}

// IMinusScaled returns I - rho*m for a square m, keeping the result sparse.
func IMinusScaled(rho float64, m *CSR) *CSR {
	if m.Rows != m.Cols {
		panic(mat.ErrSquare)
	}
	entries := make([]Triplet, 0, m.NNZ()+m.Rows)
	for i := 0; i < m.Rows; i++ {
		entries = append(entries, Triplet{i, i, 1})
		m.Row(i, func(j int, v float64) {
			entries = append(entries, Triplet{i, j, -rho * v})
		})
	}
	// Entries are in range by construction
	out, _ := NewCSR(m.Rows, m.Cols, entries)
	return out
}

// ToDense expands the matrix
func (s *CSR) ToDense() *mat.Dense {
	if s.Rows == 0 || s.Cols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(s.Rows, s.Cols, nil)
	for i := 0; i < s.Rows; i++ {
		for k := s.Indptr[i]; k < s.Indptr[i+1]; k++ {
			d.Set(i, s.Indices[k], s.Data[k])
		}
	}
	return d
}
