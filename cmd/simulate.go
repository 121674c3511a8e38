package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/CraigKelly/hsdm/model"
	"github.com/CraigKelly/hsdm/rand"
	"github.com/CraigKelly/hsdm/sampler"
)

// batchDraws is how many draws every chain takes between progress updates
const batchDraws = 100

// Simulate generates a synthetic HSDM with known parameters, samples it with
// independent chains and reports the posterior against the truth.
func Simulate(sp *startupParams) error {
	if err := sp.check(); err != nil {
		return err
	}

	gen, err := rand.NewGenerator(sp.seed)
	if err != nil {
		return err
	}
	in, tr, err := synthesize(sp.groups, sp.units, sp.rho, gen)
	if err != nil {
		return errors.Wrap(err, "Could not generate data")
	}
	data, err := model.NewData(in, model.TransformRow, sp.lag)
	if err != nil {
		return err
	}
	N, J, p, q := data.Dims()
	sp.out.Printf("Data has N=%d units in J=%d groups, p=%d, q=%d\n", N, J, p, q)

	cfg, err := simulateConfig(sp)
	if err != nil {
		return err
	}

	chains := make([]*sampler.Chain, sp.chains)
	for i := range chains {
		c := cfg
		c.Seed = sp.seed + int64(i) + 1
		chains[i], err = sampler.NewChain(data, c)
		if err != nil {
			return errors.Wrapf(err, "Could not create chain %d", i)
		}
	}
	sp.out.Printf("Rho domain is (%.4f, %.4f)\n", chains[0].State.RhoMin, chains[0].State.RhoMax)

	mon := &monitor{}
	if sp.monitor {
		if err := mon.Start(":8000"); err != nil {
			return err
		}
		defer mon.Stop()
		mon.DrawTarget.Set(int64(sp.draws * sp.chains))
	}

	began := time.Now()
	for done := 0; done < sp.draws; {
		n := batchDraws
		if remain := sp.draws - done; remain < n {
			n = remain
		}
		if err := sampler.RunChains(chains, n); err != nil {
			return err
		}
		done += n
		mon.Update(chains, began)
		if sp.verbose {
			sp.out.Printf("%d of %d draws per chain done\n", done, sp.draws)
		}
	}
	sp.out.Printf("Sampling took %v\n", time.Since(began))

	traces := make([]*sampler.Trace, len(chains))
	kept := make([]*sampler.Trace, len(chains))
	for i, ch := range chains {
		traces[i] = ch.Pop()
		kept[i] = traces[i].Tail(sp.burn)
		sp.out.Printf("Chain %d: Rho acceptance %.3f, final jump %.4f, adaptation cycles %d\n",
			i, ch.Control.AcceptanceRate(), ch.Control.Jump, ch.Control.Cycles)
	}
	writeTrace(sp, traces)

	merged, err := sampler.MergeTraces(kept)
	if err != nil {
		return err
	}
	return report(sp, merged, kept, tr)
}

func simulateConfig(sp *startupParams) (sampler.Config, error) {
	cfg := sampler.DefaultConfig()
	cfg.Samples = 0
	cfg.Tuning = sp.tuning
	cfg.LagCovariates = sp.lag
	cfg.Logger = sp.out

	switch strings.ToLower(sp.trunc) {
	case "eigs":
		cfg.Truncate = sampler.Truncation{Mode: sampler.TruncateEigs}
	case "stable":
		cfg.Truncate = sampler.Truncation{Mode: sampler.TruncateStable}
	default:
		return cfg, errors.Errorf("Unknown truncation %q", sp.trunc)
	}

	switch strings.ToLower(sp.propose) {
	case "normal":
		cfg.RhoProposal = sampler.NormalProposal
	case "t":
		cfg.RhoProposal = sampler.StudentsTProposal(4)
	case "uniform":
		cfg.RhoProposal = sampler.UniformProposal
	default:
		return cfg, errors.Errorf("Unknown proposal %q", sp.propose)
	}

	return cfg, cfg.Validate()
}

// report prints the posterior summary of every sampled parameter next to the
// value the data was generated from
func report(sp *startupParams, merged *sampler.Trace, kept []*sampler.Trace, tr truth) error {
	sp.out.Printf("%-8s %4s %9s %9s %9s %9s %9s %7s\n", "Param", "Idx", "Truth", "Mean", "SD", "2.5%", "97.5%", "R-hat")
	for _, name := range []string{model.ParamBetas, model.ParamGammas, model.ParamSigma2, model.ParamTau2, model.ParamRho} {
		sums, err := sampler.Summarize(merged, name, 0)
		if err != nil {
			return errors.Wrapf(err, "Could not summarize %s", name)
		}
		for _, s := range sums {
			truthCol := "-"
			if v, ok := tr.value(name, s.Index); ok {
				truthCol = formatFloat(v)
			}
			rhat := "-"
			if len(kept) > 1 {
				r, err := sampler.GelmanRubin(kept, name, s.Index, 0)
				if err != nil {
					return err
				}
				rhat = formatFloat(r)
			}
			sp.out.Printf("%-8s %4d %9s %9.4f %9.4f %9.4f %9.4f %7s\n", name, s.Index, truthCol, s.Mean, s.SD, s.Q025, s.Q975, rhat)
		}
	}
	return nil
}

// writeTrace writes one line per chain and draw: chain, draw, then every
// component of every traced parameter
func writeTrace(sp *startupParams, traces []*sampler.Trace) {
	for c, t := range traces {
		for i := 0; i < t.Len(); i++ {
			var sb strings.Builder
			sb.WriteString(formatInt(c))
			sb.WriteString(",")
			sb.WriteString(formatInt(i))
			for _, name := range t.Names {
				for _, v := range t.Draws[name][i] {
					sb.WriteString(",")
					sb.WriteString(formatFloat(v))
				}
			}
			sp.trace.Println(sb.String())
		}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}
