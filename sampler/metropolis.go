package sampler

import (
	"math"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hsdm/linalg"
	"github.com/CraigKelly/hsdm/model"
)

// RhoLogPosterior is the log conditional density of rho up to a constant:
// log|I - rho*M| - ‖(I - rho*M)(α - Zγ)‖² / 2τ². The uniform prior on the
// domain contributes nothing inside it.
func RhoLogPosterior(s *model.State, rho float64) (float64, error) {
	B := linalg.IMinusScaled(rho, s.M)
	logdet, err := linalg.LogDet(B)
	if err != nil {
		return 0, errors.Wrapf(model.ErrNumericalInstability, "log|I - %g*M|: %v", rho, err)
	}

	r := make([]float64, s.J)
	for i := range r {
		r[i] = s.Alphas.AtVec(i) - s.ZGammas.AtVec(i)
	}
	Br := make([]float64, s.J)
	B.MulVecTo(Br, r)

	return logdet - sumSquares(Br)/(2*s.Tau2), nil
}

// stepRho is the Metropolis update for Rho. Proposals outside the domain are
// rejected without evaluating the density.
func (g *Gibbs) stepRho(s *model.State, ctl *Adaptive) error {
	proposed := s.Rho + ctl.Step()
	if !s.InDomain(proposed) {
		ctl.Record(false)
		return nil
	}

	current, err := RhoLogPosterior(s, s.Rho)
	if err != nil {
		return err
	}
	candidate, err := RhoLogPosterior(s, proposed)
	if err != nil {
		return err
	}

	if math.Log(g.src.Float64()) < candidate-current {
		s.SetRho(proposed)
		ctl.Record(true)
		return nil
	}

	ctl.Record(false)
	return nil
}
