package sampler

import (
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/hsdm/buffer"
)

// checkpoint is everything needed to continue a chain exactly where it
// stopped, given the same data and config
type checkpoint struct {
	Seed     int64
	Position uint64
	Draws    int64

	Alphas []float64
	Betas  []float64
	Gammas []float64
	Sigma2 float64
	Tau2   float64
	Rho    float64

	Jump     float64
	Accepted int64
	Rejected int64
	Cycles   int
	Pending  []bool

	Names []string
	Trace map[string][][]float64

	RhoHistory []float64
	RhoSeen    int64
}

// Save writes a checkpoint of the chain to w
func (c *Chain) Save(w io.Writer) error {
	s := c.State
	cp := checkpoint{
		Seed:     c.gen.Seed(),
		Position: c.gen.Count(),
		Draws:    c.draws,

		Alphas: mat.Col(nil, 0, s.Alphas),
		Betas:  mat.Col(nil, 0, s.Betas),
		Gammas: mat.Col(nil, 0, s.Gammas),
		Sigma2: s.Sigma2,
		Tau2:   s.Tau2,
		Rho:    s.Rho,

		Jump:     c.Control.Jump,
		Accepted: c.Control.Accepted,
		Rejected: c.Control.Rejected,
		Cycles:   c.Control.Cycles,
		Pending:  c.Control.Pending(),

		Names: c.trace.Names,
		Trace: c.trace.Draws,

		RhoHistory: c.rhoHistory.Values(),
		RhoSeen:    c.rhoHistory.TotalSeen,
	}

	if err := gob.NewEncoder(w).Encode(&cp); err != nil {
		return errors.Wrap(err, "Could not write checkpoint")
	}
	return nil
}

// Restore replaces the chain's state, control, trace and random stream
// position with a checkpoint written by Save. The chain must have been built
// from the same data and config (the draws it took during construction are
// discarded).
func (c *Chain) Restore(r io.Reader) error {
	var cp checkpoint
	if err := gob.NewDecoder(r).Decode(&cp); err != nil {
		return errors.Wrap(err, "Could not read checkpoint")
	}

	s := c.State
	if cp.Seed != c.gen.Seed() {
		return configErrorf("Checkpoint seed %d does not match chain seed %d", cp.Seed, c.gen.Seed())
	}
	if len(cp.Alphas) != s.J || len(cp.Betas) != s.P || len(cp.Gammas) != s.Q {
		return configErrorf("Checkpoint dimensions (J=%d, p=%d, q=%d) do not match the model (J=%d, p=%d, q=%d)",
			len(cp.Alphas), len(cp.Betas), len(cp.Gammas), s.J, s.P, s.Q)
	}
	if !s.InDomain(cp.Rho) {
		return configErrorf("Checkpoint Rho %g is outside (%g, %g)", cp.Rho, s.RhoMin, s.RhoMax)
	}
	if len(cp.Names) != len(c.tracked) {
		return configErrorf("Checkpoint traces %d parameters but the chain traces %d", len(cp.Names), len(c.tracked))
	}
	for i, name := range c.tracked {
		if cp.Names[i] != name {
			return configErrorf("Checkpoint traces %q where the chain traces %q", cp.Names[i], name)
		}
	}

	// Rho before Gammas so BZGammas is built from the restored B
	s.Sigma2 = cp.Sigma2
	s.Tau2 = cp.Tau2
	s.SetRho(cp.Rho)
	s.SetBetas(mat.NewVecDense(s.P, cp.Betas))
	s.SetAlphas(mat.NewVecDense(s.J, cp.Alphas))
	s.SetGammas(mat.NewVecDense(s.Q, cp.Gammas))

	ctl := c.Control
	ctl.Jump = cp.Jump
	ctl.Accepted = cp.Accepted
	ctl.Rejected = cp.Rejected
	ctl.Cycles = cp.Cycles
	ctl.window.Reset()
	for _, ok := range cp.Pending {
		ctl.window.Add(ok)
	}

	tr := NewTrace(c.tracked)
	for _, name := range tr.Names {
		tr.Draws[name] = cp.Trace[name]
	}
	c.trace = tr
	c.draws = cp.Draws

	c.rhoHistory = buffer.NewCircular[float64](c.Config.ConvergenceWindow)
	for _, v := range cp.RhoHistory {
		c.rhoHistory.Add(v)
	}
	c.rhoHistory.TotalSeen = cp.RhoSeen

	c.gen.Reset(cp.Position)
	return nil
}
