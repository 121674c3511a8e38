package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Diffuse default hyperparameter
const defaultHyper = .001

// Priors holds the hyperparameters of the model. The Cov0 matrices enter the
// full conditionals as prior precisions, so the default .001*I is a diffuse
// prior. The S0/V0 pairs are the scale and degrees of freedom of scaled
// inverse chi-square priors on the variances.
//
// Any zero or nil field is filled with its default by WithDefaults, so a
// caller overrides only the hyperparameters it cares about.
type Priors struct {
	BetasCov0   *mat.SymDense
	BetasMean0  *mat.VecDense
	GammasCov0  *mat.SymDense
	GammasMean0 *mat.VecDense

	Sigma2S0 float64
	Sigma2V0 float64
	Tau2S0   float64
	Tau2V0   float64
}

// DefaultPriors returns the diffuse priors for p lower and q upper level
// covariates
func DefaultPriors(p, q int) Priors {
	return Priors{}.WithDefaults(p, q)
}

// WithDefaults returns a copy with every unset field replaced by its default
func (pr Priors) WithDefaults(p, q int) Priors {
	out := pr
	if out.BetasCov0 == nil {
		out.BetasCov0 = scaledIdentity(p, defaultHyper)
	}
	if out.BetasMean0 == nil {
		out.BetasMean0 = mat.NewVecDense(p, nil)
	}
	if out.GammasCov0 == nil {
		out.GammasCov0 = scaledIdentity(q, defaultHyper)
	}
	if out.GammasMean0 == nil {
		out.GammasMean0 = mat.NewVecDense(q, nil)
	}
	if out.Sigma2S0 == 0 {
		out.Sigma2S0 = defaultHyper
	}
	if out.Sigma2V0 == 0 {
		out.Sigma2V0 = defaultHyper
	}
	if out.Tau2S0 == 0 {
		out.Tau2S0 = defaultHyper
	}
	if out.Tau2V0 == 0 {
		out.Tau2V0 = defaultHyper
	}
	return out
}

// Check returns an error if the priors do not fit p lower and q upper level
// covariates
func (pr Priors) Check(p, q int) error {
	if pr.BetasCov0 == nil || pr.BetasMean0 == nil || pr.GammasCov0 == nil || pr.GammasMean0 == nil {
		return configErrorf("Priors are missing a mean or precision")
	}
	if n := pr.BetasCov0.SymmetricDim(); n != p {
		return configErrorf("Betas_cov0 is %dx%d but there are %d covariates", n, n, p)
	}
	if n := pr.BetasMean0.Len(); n != p {
		return configErrorf("Betas_mean0 has length %d but there are %d covariates", n, p)
	}
	if n := pr.GammasCov0.SymmetricDim(); n != q {
		return configErrorf("Gammas_cov0 is %dx%d but there are %d group covariates", n, n, q)
	}
	if n := pr.GammasMean0.Len(); n != q {
		return configErrorf("Gammas_mean0 has length %d but there are %d group covariates", n, q)
	}

	scalars := map[string]float64{
		"Sigma2_s0": pr.Sigma2S0,
		"Sigma2_v0": pr.Sigma2V0,
		"Tau2_s0":   pr.Tau2S0,
		"Tau2_v0":   pr.Tau2V0,
	}
	for name, v := range scalars {
		if !(v > 0) || math.IsInf(v, 0) {
			return configErrorf("Prior %s must be positive and finite, got %v", name, v)
		}
	}

	return nil
}

func scaledIdentity(n int, v float64) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, v)
	}
	return s
}
