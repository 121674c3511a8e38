package sampler

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/CraigKelly/hsdm/buffer"
)

// Adaptive holds the random walk Metropolis control for Rho: the current
// proposal scale, the target acceptance corridor and the accept/reject
// bookkeeping. Every Interval recorded outcomes make one adaptation cycle;
// only the first MaxAdapt cycles may move Jump.
type Adaptive struct {
	Jump      float64
	ARLow     float64
	ARHi      float64
	AdaptStep float64
	Proposal  distuv.Rander

	Accepted int64
	Rejected int64

	Adapt    bool
	MaxAdapt int
	Interval int
	Cycles   int

	window *buffer.Circular[bool]
}

// NewAdaptive builds the control from the Rho settings of a config and the
// proposal distribution
func NewAdaptive(cfg Config, proposal distuv.Rander) *Adaptive {
	interval := cfg.AdaptInterval
	if interval < 1 {
		interval = 1
	}
	return &Adaptive{
		Jump:      cfg.RhoJump,
		ARLow:     cfg.RhoARLow,
		ARHi:      cfg.RhoARHi,
		AdaptStep: cfg.RhoAdaptStep,
		Proposal:  proposal,
		Adapt:     cfg.Tuning > 0,
		MaxAdapt:  cfg.Tuning,
		Interval:  interval,
		window:    buffer.NewCircular[bool](interval),
	}
}

// Step returns a proposal increment for Rho: Jump times a proposal draw
func (a *Adaptive) Step() float64 {
	return a.Jump * a.Proposal.Rand()
}

// Record books one Metropolis outcome and closes the adaptation cycle when
// the window is full
func (a *Adaptive) Record(accepted bool) {
	if accepted {
		a.Accepted++
	} else {
		a.Rejected++
	}

	a.window.Add(accepted)
	if !a.window.Full() {
		return
	}

	var acc, rej int64
	for _, ok := range a.window.Values() {
		if ok {
			acc++
		} else {
			rej++
		}
	}
	a.window.Reset()
	a.cycle(acc, rej)
}

// cycle runs one adaptation cycle over acc accepted and rej rejected
// outcomes. It returns true if Jump changed.
func (a *Adaptive) cycle(acc, rej int64) bool {
	frozen := a.Frozen()
	a.Cycles++
	if frozen {
		return false
	}
	total := acc + rej
	if total == 0 {
		return false
	}

	r := float64(acc) / float64(total)
	switch {
	case r > a.ARHi:
		a.Jump *= a.AdaptStep
		return true
	case r < a.ARLow:
		a.Jump /= a.AdaptStep
		return true
	}
	return false
}

// Frozen is true once Jump can no longer change
func (a *Adaptive) Frozen() bool {
	return !a.Adapt || a.Cycles >= a.MaxAdapt
}

// AcceptanceRate over every outcome recorded so far
func (a *Adaptive) AcceptanceRate() float64 {
	total := a.Accepted + a.Rejected
	if total == 0 {
		return 0
	}
	return float64(a.Accepted) / float64(total)
}

// Pending returns the outcomes of the unfinished cycle, oldest first
func (a *Adaptive) Pending() []bool {
	return a.window.Values()
}
