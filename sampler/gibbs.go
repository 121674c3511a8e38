package sampler

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/CraigKelly/hsdm/linalg"
	"github.com/CraigKelly/hsdm/model"
)

// Gibbs is the Metropolis-within-Gibbs sweep for the HSDM. Alphas, Betas,
// Sigma2, Tau2 and Gammas are drawn from their conjugate full conditionals in
// that order, then Rho takes one random walk Metropolis step.
type Gibbs struct {
	src Source
}

// Source is the random stream a kernel draws from. The gonum distributions
// take its raw Uint64 values; the Metropolis accept test uses Float64.
type Source interface {
	rand.Source
	Float64() float64
}

// NewGibbs creates a kernel drawing from src
func NewGibbs(src Source) *Gibbs {
	return &Gibbs{src: src}
}

// Advance performs one sweep. On error the state may hold some of the new
// draws, but the caller records nothing for the sweep.
func (g *Gibbs) Advance(s *model.State, ctl *Adaptive) error {
	if err := g.drawAlphas(s); err != nil {
		return errors.Wrap(err, "Alphas")
	}
	if err := g.drawBetas(s); err != nil {
		return errors.Wrap(err, "Betas")
	}
	g.drawSigma2(s)
	g.drawTau2(s)
	if err := g.drawGammas(s); err != nil {
		return errors.Wrap(err, "Gammas")
	}
	if err := g.stepRho(s, ctl); err != nil {
		return errors.Wrap(err, "Rho")
	}
	return nil
}

// drawAlphas: precision ΔᵀΔ/σ² + BᵀB/τ², linear term Δᵀ(y-Xβ)/σ² + BᵀBZγ/τ²
func (g *Gibbs) drawAlphas(s *model.State) error {
	B := s.B.ToDense()
	var btb mat.Dense
	btb.Mul(B.T(), B)

	var prec mat.SymDense
	prec.ScaleSym(1/s.Sigma2, s.DeltatDelta)
	prec.AddSym(&prec, scaledSym(&btb, 1/s.Tau2))

	resid := mat.NewVecDense(s.N, nil)
	resid.SubVec(s.Y, s.XBetas)

	lin := mat.NewVecDense(s.J, nil)
	lin.MulVec(s.Delta.T(), resid)
	lin.ScaleVec(1/s.Sigma2, lin)

	prior := mat.NewVecDense(s.J, nil)
	prior.MulVec(B.T(), s.BZGammas)
	lin.AddScaledVec(lin, 1/s.Tau2, prior)

	alphas, err := linalg.DrawMVN(&prec, lin, g.src)
	if err != nil {
		return numerical(err)
	}
	s.SetAlphas(alphas)
	return nil
}

// drawBetas: precision XᵀX/σ² + T, linear term Xᵀ(y-Δα)/σ² + T·β0
func (g *Gibbs) drawBetas(s *model.State) error {
	var prec mat.SymDense
	prec.ScaleSym(1/s.Sigma2, s.XtX)
	prec.AddSym(&prec, s.Priors.BetasCov0)

	resid := mat.NewVecDense(s.N, nil)
	resid.SubVec(s.Y, s.DeltaAlphas)

	lin := mat.NewVecDense(s.P, nil)
	lin.MulVec(s.X.T(), resid)
	lin.ScaleVec(1/s.Sigma2, lin)
	lin.AddVec(lin, s.BetasCovm)

	betas, err := linalg.DrawMVN(&prec, lin, g.src)
	if err != nil {
		return numerical(err)
	}
	s.SetBetas(betas)
	return nil
}

func (g *Gibbs) drawSigma2(s *model.State) {
	e := mat.NewVecDense(s.N, nil)
	e.SubVec(s.Y, s.XBetas)
	e.SubVec(e, s.DeltaAlphas)

	ee := mat.Dot(e, e)
	s.Sigma2 = g.invGamma((float64(s.N)+s.Priors.Sigma2V0)/2, (ee+s.Sigma2Prod)/2)
}

func (g *Gibbs) drawTau2(s *model.State) {
	u := s.B.MulVec(s.Alphas)
	u.SubVec(u, s.BZGammas)

	uu := mat.Dot(u, u)
	s.Tau2 = g.invGamma((float64(s.J)+s.Priors.Tau2V0)/2, (uu+s.Tau2Prod)/2)
}

// drawGammas: precision (BZ)ᵀBZ/τ² + T, linear term (BZ)ᵀBα/τ² + T·γ0
func (g *Gibbs) drawGammas(s *model.State) error {
	var BZ *mat.Dense
	var ztz mat.Symmetric
	if s.Rho == 0 {
		BZ = s.Z
		ztz = s.ZtZ
	} else {
		BZ = s.B.MulDense(s.Z)
		var prod mat.Dense
		prod.Mul(BZ.T(), BZ)
		ztz = model.ToSym(&prod)
	}

	var prec mat.SymDense
	prec.ScaleSym(1/s.Tau2, ztz)
	prec.AddSym(&prec, s.Priors.GammasCov0)

	Balphas := s.B.MulVec(s.Alphas)
	lin := mat.NewVecDense(s.Q, nil)
	lin.MulVec(BZ.T(), Balphas)
	lin.ScaleVec(1/s.Tau2, lin)
	lin.AddVec(lin, s.GammasCovm)

	gammas, err := linalg.DrawMVN(&prec, lin, g.src)
	if err != nil {
		return numerical(err)
	}
	s.SetGammas(gammas)
	return nil
}

// invGamma draws from an inverse gamma with the given shape and scale
func (g *Gibbs) invGamma(shape, scale float64) float64 {
	return 1 / distuv.Gamma{Alpha: shape, Beta: scale, Src: g.src}.Rand()
}

func scaledSym(a mat.Matrix, f float64) *mat.SymDense {
	sym := model.ToSym(a)
	sym.ScaleSym(f, sym)
	return sym
}

func numerical(err error) error {
	return errors.Wrapf(model.ErrNumericalInstability, "%v", err)
}

// sumSquares is ‖v‖²
func sumSquares(v []float64) float64 {
	return floats.Dot(v, v)
}
