package sampler

import (
	"log"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/CraigKelly/hsdm/buffer"
	"github.com/CraigKelly/hsdm/model"
	"github.com/CraigKelly/hsdm/rand"
)

// progressEvery is the draw interval of the verbose countdown
const progressEvery = 100

// Chain is a single HSDM Markov chain: the model state, the Metropolis
// control for Rho, the update kernel and the trace of recorded draws. A chain
// is not safe for concurrent use; run independent chains instead.
type Chain struct {
	Config  Config
	Data    *model.Data
	State   *model.State
	Control *Adaptive
	Kernel  Kernel

	gen        *rand.Generator
	tracked    []string
	trace      *Trace
	draws      int64
	rhoHistory *buffer.Circular[float64]
	out        *log.Logger
}

// NewChain validates the config, initializes the state and then takes
// cfg.Samples draws.
func NewChain(data *model.Data, cfg Config) (*Chain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gen, err := rand.NewGenerator(cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "Could not create random generator")
	}

	state, ctl, err := Initialize(data, cfg, gen)
	if err != nil {
		return nil, err
	}

	var kernel Kernel
	if cfg.NewKernel != nil {
		kernel = cfg.NewKernel(gen)
	} else {
		kernel = NewGibbs(gen)
	}

	tracked := cfg.tracked()
	ch := &Chain{
		Config:     cfg,
		Data:       data,
		State:      state,
		Control:    ctl,
		Kernel:     kernel,
		gen:        gen,
		tracked:    tracked,
		trace:      NewTrace(tracked),
		rhoHistory: buffer.NewCircular[float64](cfg.ConvergenceWindow),
		out:        cfg.logger(),
	}

	if err := ch.Sample(cfg.Samples); err != nil {
		return nil, errors.Wrap(err, "Failure during initial sampling")
	}

	return ch, nil
}

// Sample extends the chain by exactly ndraws draws, appending each to the
// trace. A failed draw records nothing and stops the run.
func (c *Chain) Sample(ndraws int) error {
	if ndraws < 0 {
		return configErrorf("Cannot take %d draws", ndraws)
	}

	for i := 0; i < ndraws; i++ {
		if remain := ndraws - i; c.Config.Verbose > 1 && remain%progressEvery == 0 {
			c.out.Printf("%d draws remaining\n", remain)
		}
		if err := c.oneSample(); err != nil {
			return errors.Wrapf(err, "Draw %d", c.draws+1)
		}
	}

	return nil
}

// oneSample advances the kernel once and records the tracked parameters
func (c *Chain) oneSample() error {
	before := c.Control.Accepted + c.Control.Rejected
	if err := c.Kernel.Advance(c.State, c.Control); err != nil {
		return err
	}
	if trials := c.Control.Accepted + c.Control.Rejected - before; trials != 1 {
		return errors.Errorf("Kernel recorded %d Metropolis outcomes in one sweep", trials)
	}
	if !c.State.InDomain(c.State.Rho) {
		return errors.Wrapf(model.ErrNumericalInstability, "Rho %g left (%g, %g)", c.State.Rho, c.State.RhoMin, c.State.RhoMax)
	}

	values := make([][]float64, len(c.tracked))
	for i, name := range c.tracked {
		v, err := c.State.Param(name)
		if err != nil {
			return err
		}
		values[i] = v
	}
	if err := c.trace.Append(values); err != nil {
		return err
	}

	c.draws++
	c.rhoHistory.Add(c.State.Rho)
	return nil
}

// Pop detaches the recorded trace and starts a fresh, empty one over the same
// parameters. Later sampling never touches the returned trace.
func (c *Chain) Pop() *Trace {
	out := c.trace
	c.trace = NewTrace(c.tracked)
	return out
}

// Trace is the live trace. It changes as the chain is sampled.
func (c *Chain) Trace() *Trace {
	return c.trace
}

// Tracked returns the names recorded per draw, in trace order
func (c *Chain) Tracked() []string {
	return append([]string(nil), c.tracked...)
}

// Draws is the total number of draws taken, including popped ones
func (c *Chain) Draws() int64 {
	return c.draws
}

// RhoDrift compares the means of the older and newer halves of the recent
// Rho window, relative to the window's standard deviation. The second return
// is false until the window has filled.
func (c *Chain) RhoDrift() (float64, bool) {
	first, second := c.rhoHistory.FirstHalf(), c.rhoHistory.SecondHalf()
	if first == nil || second == nil {
		return 0, false
	}

	diff := math.Abs(stat.Mean(first, nil) - stat.Mean(second, nil))
	sd := stat.StdDev(c.rhoHistory.Values(), nil)
	if sd == 0 {
		return diff, true
	}
	return diff / sd, true
}
