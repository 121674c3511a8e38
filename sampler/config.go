package sampler

import (
	"io"
	"log"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/CraigKelly/hsdm/model"
)

// TruncateMode selects how the admissible interval for Rho is found
type TruncateMode int

// Truncation modes
const (
	TruncateEigs   TruncateMode = iota // reciprocal extremal eigenvalues of M
	TruncateStable                     // the fixed interval (-1, 1)
	TruncateFixed                      // a caller supplied (Low, High)
)

func (m TruncateMode) String() string {
	switch m {
	case TruncateEigs:
		return "eigs"
	case TruncateStable:
		return "stable"
	case TruncateFixed:
		return "fixed"
	}
	return "unknown"
}

// Truncation is the Rho domain strategy. Low and High are only read for
// TruncateFixed.
type Truncation struct {
	Mode      TruncateMode
	Low, High float64
}

// ProposalFactory builds the symmetric random walk distribution for Rho from
// the chain's random stream
type ProposalFactory func(src rand.Source) distuv.Rander

// NormalProposal is the standard normal random walk (the default)
func NormalProposal(src rand.Source) distuv.Rander {
	return distuv.Normal{Mu: 0, Sigma: 1, Src: src}
}

// StudentsTProposal returns a heavy tailed random walk with nu degrees of
// freedom
func StudentsTProposal(nu float64) ProposalFactory {
	return func(src rand.Source) distuv.Rander {
		return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nu, Src: src}
	}
}

// UniformProposal is a random walk uniform on [-1, 1]
func UniformProposal(src rand.Source) distuv.Rander {
	return distuv.Uniform{Min: -1, Max: 1, Src: src}
}

// KernelFactory builds the update kernel for a chain from its random stream
type KernelFactory func(src Source) Kernel

// Config enumerates every construction option of a chain. Start from
// DefaultConfig and override fields; NewChain validates eagerly.
type Config struct {
	Samples   int    // draws taken during construction
	Transform string // weights transform, see model.Transform*
	Verbose   int    // > 1 logs a countdown every 100 draws
	Logger    *log.Logger
	Seed      int64

	LagCovariates bool     // append W·X Durbin terms to X
	ExtraTracked  []string // parameters traced after the sampled ones

	Truncate      Truncation
	Tuning        int // adaptation cycles for the Rho step, 0 disables
	AdaptInterval int // draws per adaptation cycle

	RhoJump      float64
	RhoARLow     float64
	RhoARHi      float64
	RhoProposal  ProposalFactory
	RhoAdaptStep float64

	ConvergenceWindow int // recent Rho draws kept for RhoDrift

	Priors model.Priors

	NewKernel KernelFactory // nil uses the conjugate Gibbs kernel
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Samples:           1000,
		Transform:         model.TransformRow,
		Seed:              1,
		Truncate:          Truncation{Mode: TruncateEigs},
		Tuning:            0,
		AdaptInterval:     100,
		RhoJump:           .5,
		RhoARLow:          .4,
		RhoARHi:           .6,
		RhoProposal:       NormalProposal,
		RhoAdaptStep:      1.01,
		ConvergenceWindow: 200,
	}
}

// Validate returns a configuration error for any option out of range
func (c Config) Validate() error {
	if c.Samples < 0 {
		return configErrorf("Samples must be >= 0, got %d", c.Samples)
	}
	if c.Tuning < 0 {
		return configErrorf("Tuning must be >= 0, got %d", c.Tuning)
	}
	if c.AdaptInterval < 1 {
		return configErrorf("AdaptInterval must be >= 1, got %d", c.AdaptInterval)
	}
	if !(c.RhoJump > 0) || math.IsInf(c.RhoJump, 0) {
		return configErrorf("RhoJump must be positive and finite, got %v", c.RhoJump)
	}
	if !(c.RhoARLow >= 0 && c.RhoARLow <= c.RhoARHi && c.RhoARHi <= 1) {
		return configErrorf("Acceptance corridor must satisfy 0 <= low <= high <= 1, got [%v, %v]", c.RhoARLow, c.RhoARHi)
	}
	if !(c.RhoAdaptStep > 1) || math.IsInf(c.RhoAdaptStep, 0) {
		return configErrorf("RhoAdaptStep must be finite and > 1, got %v", c.RhoAdaptStep)
	}
	if c.RhoProposal == nil {
		return configErrorf("RhoProposal is required")
	}
	if c.ConvergenceWindow < 2 {
		return configErrorf("ConvergenceWindow must be >= 2, got %d", c.ConvergenceWindow)
	}

	switch c.Truncate.Mode {
	case TruncateEigs, TruncateStable:
	case TruncateFixed:
		lo, hi := c.Truncate.Low, c.Truncate.High
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || lo >= hi {
			return configErrorf("Fixed truncation needs finite low < high, got (%v, %v)", lo, hi)
		}
	default:
		return configErrorf("Unknown truncation mode %d", c.Truncate.Mode)
	}

	seen := make(map[string]bool)
	for _, name := range model.SampledParams {
		seen[name] = true
	}
	for _, name := range c.ExtraTracked {
		if !model.KnownParam(name) {
			return configErrorf("Cannot track unknown parameter %q", name)
		}
		if seen[name] {
			return configErrorf("Parameter %q is tracked twice", name)
		}
		seen[name] = true
	}

	return nil
}

// tracked returns this chain's own copy of the traced parameter names
func (c Config) tracked() []string {
	names := make([]string, 0, len(model.SampledParams)+len(c.ExtraTracked))
	names = append(names, model.SampledParams...)
	return append(names, c.ExtraTracked...)
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard, "", 0)
}
