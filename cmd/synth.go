package cmd

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/CraigKelly/hsdm/linalg"
	"github.com/CraigKelly/hsdm/model"
	"github.com/CraigKelly/hsdm/rand"
)

// truth holds the parameters a synthetic dataset was generated from
type truth struct {
	Betas  []float64
	Gammas []float64
	Sigma2 float64
	Tau2   float64
	Rho    float64
}

func (tr truth) value(name string, i int) (float64, bool) {
	switch name {
	case model.ParamBetas:
		if i < len(tr.Betas) {
			return tr.Betas[i], true
		}
	case model.ParamGammas:
		if i < len(tr.Gammas) {
			return tr.Gammas[i], true
		}
	case model.ParamSigma2:
		return tr.Sigma2, true
	case model.ParamTau2:
		return tr.Tau2, true
	case model.ParamRho:
		return tr.Rho, true
	}
	return 0, false
}

// ringWeights places n groups on a circle, each linked to both neighbors
func ringWeights(n int) (*linalg.CSR, error) {
	entries := make([]linalg.Triplet, 0, 2*n)
	for i := 0; i < n; i++ {
		entries = append(entries, linalg.Triplet{Row: i, Col: (i + 1) % n, Val: 1})
		entries = append(entries, linalg.Triplet{Row: i, Col: (i + n - 1) % n, Val: 1})
	}
	return linalg.NewCSR(n, n, entries)
}

// blockWeights links every pair of units in the same group
func blockWeights(membership []int) (*linalg.CSR, error) {
	byGroup := make(map[int][]int)
	for i, g := range membership {
		byGroup[g] = append(byGroup[g], i)
	}

	var entries []linalg.Triplet
	for _, members := range byGroup {
		for _, i := range members {
			for _, j := range members {
				if i != j {
					entries = append(entries, linalg.Triplet{Row: i, Col: j, Val: 1})
				}
			}
		}
	}
	return linalg.NewCSR(len(membership), len(membership), entries)
}

// synthesize generates an HSDM dataset with groups on a ring and units
// per group, drawing from gen:
//
//	α = Zγ + (I - ρM)⁻¹u,  y = Xβ + Δα + ε
func synthesize(groups, units int, rho float64, gen *rand.Generator) (model.Input, truth, error) {
	tr := truth{
		Betas:  []float64{1.5},
		Gammas: []float64{0.5, -1},
		Sigma2: 0.5,
		Tau2:   0.3,
		Rho:    rho,
	}
	var in model.Input

	N := groups * units
	membership := make([]int, N)
	for i := range membership {
		membership[i] = i / units
	}

	rawM, err := ringWeights(groups)
	if err != nil {
		return in, tr, err
	}
	rawW, err := blockWeights(membership)
	if err != nil {
		return in, tr, err
	}
	_, M, err := model.ValidateWeights(rawW, rawM, model.TransformRow)
	if err != nil {
		return in, tr, err
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: gen}

	Z := mat.NewDense(groups, 2, nil)
	for j := 0; j < groups; j++ {
		Z.Set(j, 0, 1)
		Z.Set(j, 1, norm.Rand())
	}
	X := mat.NewDense(N, 1, nil)
	for i := 0; i < N; i++ {
		X.Set(i, 0, norm.Rand())
	}

	u := mat.NewVecDense(groups, nil)
	tau := distuv.Normal{Mu: 0, Sigma: math.Sqrt(tr.Tau2), Src: gen}
	for j := 0; j < groups; j++ {
		u.SetVec(j, tau.Rand())
	}

	var spatial mat.VecDense
	if err := spatial.SolveVec(linalg.IMinusScaled(rho, M).ToDense(), u); err != nil {
		return in, tr, errors.Wrapf(model.ErrNumericalInstability, "I - %g*M is singular: %v", rho, err)
	}

	alphas := mat.NewVecDense(groups, nil)
	alphas.MulVec(Z, mat.NewVecDense(2, tr.Gammas))
	alphas.AddVec(alphas, &spatial)

	sigma := distuv.Normal{Mu: 0, Sigma: math.Sqrt(tr.Sigma2), Src: gen}
	y := make([]float64, N)
	for i := 0; i < N; i++ {
		y[i] = tr.Betas[0]*X.At(i, 0) + alphas.AtVec(membership[i]) + sigma.Rand()
	}

	in = model.Input{
		Y:          y,
		X:          X,
		W:          rawW,
		M:          rawM,
		Z:          Z,
		Membership: membership,
	}
	return in, tr, nil
}
