package model

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/hsdm/linalg"
)

// Names of the quantities State.Param can read
const (
	ParamAlphas      = "Alphas"
	ParamBetas       = "Betas"
	ParamSigma2      = "Sigma2"
	ParamTau2        = "Tau2"
	ParamGammas      = "Gammas"
	ParamRho         = "Rho"
	ParamDeltaAlphas = "DeltaAlphas"
	ParamXBetas      = "XBetas"
	ParamZGammas     = "ZGammas"
	ParamBZGammas    = "BZGammas"
)

// SampledParams are the parameters every chain traces, in trace order
var SampledParams = []string{ParamAlphas, ParamBetas, ParamSigma2, ParamTau2, ParamGammas, ParamRho}

// State is the full mutable state of one HSDM chain: the data, the
// quantities precomputed from it, the priors, and the current draw. Update
// kernels receive it by pointer.
//
// The derived fields (B, DeltaAlphas, XBetas, ZGammas, BZGammas) are only
// written by the Set methods, which keep them in step with the parameters.
type State struct {
	// Data
	Y          *mat.VecDense
	X          *mat.Dense
	Z          *mat.Dense
	W          *linalg.CSR
	M          *linalg.CSR
	Delta      *mat.Dense
	Membership []int
	N, J, P, Q int

	// Precomputed once in NewState
	XtX         *mat.SymDense
	ZtZ         *mat.SymDense
	DeltatDelta *mat.SymDense
	BetasCovm   *mat.VecDense
	GammasCovm  *mat.VecDense
	Tau2Prod    float64
	Sigma2Prod  float64
	In          *linalg.CSR
	Ij          *linalg.CSR

	Priors Priors

	// Current draw
	Betas  *mat.VecDense
	Gammas *mat.VecDense
	Alphas *mat.VecDense
	Sigma2 float64
	Tau2   float64
	Rho    float64

	// Derived from the current draw
	B           *linalg.CSR
	DeltaAlphas *mat.VecDense
	XBetas      *mat.VecDense
	ZGammas     *mat.VecDense
	BZGammas    *mat.VecDense

	// Admissible open interval for Rho
	RhoMin float64
	RhoMax float64
}

// NewState builds the state for validated data and priors. Unset prior fields
// take their defaults. Parameters start at zero with Rho = 0; use Start to
// assign the starting values.
func NewState(d *Data, priors Priors) (*State, error) {
	if d == nil {
		return nil, configErrorf("No data supplied")
	}
	if err := d.Check(); err != nil {
		return nil, err
	}

	N, J, p, q := d.Dims()
	priors = priors.WithDefaults(p, q)
	if err := priors.Check(p, q); err != nil {
		return nil, err
	}

	s := &State{
		Y:          d.Y,
		X:          d.X,
		Z:          d.Z,
		W:          d.W,
		M:          d.M,
		Delta:      d.Delta,
		Membership: d.Membership,
		N:          N,
		J:          J,
		P:          p,
		Q:          q,
		Priors:     priors,
		In:         linalg.Identity(N),
		Ij:         linalg.Identity(J),
	}

	s.XtX = crossProduct(d.X)
	s.ZtZ = crossProduct(d.Z)
	s.DeltatDelta = crossProduct(d.Delta)

	s.BetasCovm = mat.NewVecDense(p, nil)
	s.BetasCovm.MulVec(priors.BetasCov0, priors.BetasMean0)
	s.GammasCovm = mat.NewVecDense(q, nil)
	s.GammasCovm.MulVec(priors.GammasCov0, priors.GammasMean0)
	s.Tau2Prod = priors.Tau2S0 * priors.Tau2V0
	s.Sigma2Prod = priors.Sigma2S0 * priors.Sigma2V0

	s.Start(0)
	return s, nil
}

// Start assigns the starting values: zero coefficients and group effects,
// both variances at 2, and the given Rho.
func (s *State) Start(rho float64) {
	s.Sigma2 = 2
	s.Tau2 = 2
	s.SetBetas(mat.NewVecDense(s.P, nil))
	s.SetAlphas(mat.NewVecDense(s.J, nil))
	s.Rho = rho
	s.B = linalg.IMinusScaled(rho, s.M)
	s.SetGammas(mat.NewVecDense(s.Q, nil))
}

// SetBetas replaces the coefficients and refreshes XBetas
func (s *State) SetBetas(b mat.Vector) {
	s.Betas = mat.VecDenseCopyOf(b)
	s.XBetas = mat.NewVecDense(s.N, nil)
	s.XBetas.MulVec(s.X, s.Betas)
}

// SetAlphas replaces the group effects and refreshes DeltaAlphas
func (s *State) SetAlphas(a mat.Vector) {
	s.Alphas = mat.VecDenseCopyOf(a)
	s.DeltaAlphas = mat.NewVecDense(s.N, nil)
	s.DeltaAlphas.MulVec(s.Delta, s.Alphas)
}

// SetGammas replaces the group coefficients and refreshes ZGammas and
// BZGammas
func (s *State) SetGammas(g mat.Vector) {
	s.Gammas = mat.VecDenseCopyOf(g)
	s.ZGammas = mat.NewVecDense(s.J, nil)
	s.ZGammas.MulVec(s.Z, s.Gammas)
	s.BZGammas = s.B.MulVec(s.ZGammas)
}

// SetRho replaces the spatial parameter and refreshes B and BZGammas
func (s *State) SetRho(rho float64) {
	s.Rho = rho
	s.B = linalg.IMinusScaled(rho, s.M)
	s.BZGammas = s.B.MulVec(s.ZGammas)
}

// InDomain is true when rho lies strictly inside (RhoMin, RhoMax)
func (s *State) InDomain(rho float64) bool {
	return rho > s.RhoMin && rho < s.RhoMax
}

// Param returns a copy of the named quantity as a flat slice. Scalars come
// back as a slice of length one.
func (s *State) Param(name string) ([]float64, error) {
	switch name {
	case ParamAlphas:
		return vecCopy(s.Alphas), nil
	case ParamBetas:
		return vecCopy(s.Betas), nil
	case ParamSigma2:
		return []float64{s.Sigma2}, nil
	case ParamTau2:
		return []float64{s.Tau2}, nil
	case ParamGammas:
		return vecCopy(s.Gammas), nil
	case ParamRho:
		return []float64{s.Rho}, nil
	case ParamDeltaAlphas:
		return vecCopy(s.DeltaAlphas), nil
	case ParamXBetas:
		return vecCopy(s.XBetas), nil
	case ParamZGammas:
		return vecCopy(s.ZGammas), nil
	case ParamBZGammas:
		return vecCopy(s.BZGammas), nil
	}
	return nil, errors.Wrapf(ErrConfiguration, "Unknown parameter %q", name)
}

// KnownParam is true if Param can resolve name
func KnownParam(name string) bool {
	switch name {
	case ParamAlphas, ParamBetas, ParamSigma2, ParamTau2, ParamGammas, ParamRho,
		ParamDeltaAlphas, ParamXBetas, ParamZGammas, ParamBZGammas:
		return true
	}
	return false
}

func vecCopy(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// crossProduct returns AᵀA
func crossProduct(a mat.Matrix) *mat.SymDense {
	var prod mat.Dense
	prod.Mul(a.T(), a)
	return ToSym(&prod)
}

// ToSym copies the lower triangle of a square matrix into a SymDense
func ToSym(d mat.Matrix) *mat.SymDense {
	n, _ := d.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sym.SetSym(i, j, d.At(i, j))
		}
	}
	return sym
}
