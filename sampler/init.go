package sampler

import (
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hsdm/model"
)

// Initialize builds the starting state and Metropolis control for a chain.
// It draws nothing from src; the stream is only handed to the proposal.
//
// Coefficients and group effects start at zero, both variances at 2 and Rho
// at -1/(J-1). When that value is outside the admissible interval (J below 3
// or an unusual spectrum) Rho starts at the midpoint of the interval.
func Initialize(data *model.Data, cfg Config, src rand.Source) (*model.State, *Adaptive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	state, err := model.NewState(data, cfg.Priors)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Could not build model state")
	}

	bounds, err := ComputeBounds(state.M, cfg.Truncate)
	if err != nil {
		return nil, nil, err
	}
	state.RhoMin, state.RhoMax = bounds.Min, bounds.Max
	state.Start(startingRho(state.J, bounds))

	ctl := NewAdaptive(cfg, cfg.RhoProposal(src))
	return state, ctl, nil
}

func startingRho(J int, b Bounds) float64 {
	if J > 1 {
		if rho := -1 / float64(J-1); b.Contains(rho) {
			return rho
		}
	}
	return b.Mid()
}
