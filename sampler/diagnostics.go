package sampler

import (
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the posterior draws of one parameter component
type Summary struct {
	Name  string
	Index int
	Mean  float64
	SD    float64
	Q025  float64
	Q50   float64
	Q975  float64
}

// Summarize returns one Summary per component of the named parameter,
// ignoring the first burn draws
func Summarize(tr *Trace, name string, burn int) ([]Summary, error) {
	draws, err := tr.Values(name)
	if err != nil {
		return nil, err
	}
	if burn < 0 || burn >= len(draws) {
		return nil, configErrorf("Cannot burn %d of %d draws", burn, len(draws))
	}

	width := len(draws[0])
	out := make([]Summary, width)
	for i := 0; i < width; i++ {
		col, err := tr.Column(name, i)
		if err != nil {
			return nil, err
		}
		col = col[burn:]

		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)

		out[i] = Summary{
			Name:  name,
			Index: i,
			Mean:  stat.Mean(col, nil),
			SD:    stat.StdDev(col, nil),
			Q025:  stat.Quantile(.025, stat.Empirical, sorted, nil),
			Q50:   stat.Quantile(.5, stat.Empirical, sorted, nil),
			Q975:  stat.Quantile(.975, stat.Empirical, sorted, nil),
		}
	}

	return out, nil
}

// GelmanRubin returns the potential scale reduction factor for one
// component of a parameter across several chains. Each chain contributes the
// draws after burn, and all chains must have the same length. Values near 1
// suggest the chains have mixed.
func GelmanRubin(traces []*Trace, name string, component int, burn int) (float64, error) {
	m := len(traces)
	if m < 2 {
		return 0, configErrorf("Gelman-Rubin needs at least 2 chains, got %d", m)
	}

	means := make([]float64, m)
	vars := make([]float64, m)
	n := -1
	for k, tr := range traces {
		col, err := tr.Column(name, component)
		if err != nil {
			return 0, errors.Wrapf(err, "Chain %d", k)
		}
		if burn < 0 || burn > len(col)-2 {
			return 0, configErrorf("Chain %d has %d draws, too few to burn %d", k, len(col), burn)
		}
		col = col[burn:]
		if n < 0 {
			n = len(col)
		} else if n != len(col) {
			return 0, configErrorf("Chain %d has %d draws but chain 0 has %d", k, len(col), n)
		}
		means[k], vars[k] = stat.MeanVariance(col, nil)
	}

	W := stat.Mean(vars, nil)
	B := float64(n) * stat.Variance(means, nil)
	if W == 0 {
		if B == 0 {
			return 1, nil
		}
		return math.Inf(1), nil
	}

	nf := float64(n)
	pooled := (nf-1)/nf*W + B/nf
	return math.Sqrt(pooled / W), nil
}

// MergeTraces concatenates traces over the same parameters, in order
func MergeTraces(traces []*Trace) (*Trace, error) {
	if len(traces) < 1 {
		return nil, errors.Errorf("Can not merge 0 traces")
	}

	merged := traces[0].Clone()
	for k, tr := range traces[1:] {
		if len(tr.Names) != len(merged.Names) {
			return nil, errors.Errorf("Cannot merge trace %d with %d parameters into %d", k+1, len(tr.Names), len(merged.Names))
		}
		for i, name := range merged.Names {
			if tr.Names[i] != name {
				return nil, errors.Errorf("Trace %d has %q where %q was expected", k+1, tr.Names[i], name)
			}
		}
		for _, name := range merged.Names {
			for _, d := range tr.Draws[name] {
				merged.Draws[name] = append(merged.Draws[name], append([]float64(nil), d...))
			}
		}
	}

	return merged, nil
}

// RunChains extends independent chains by ndraws each, one goroutine per
// chain, and returns the first error. Chains must not share generators.
func RunChains(chains []*Chain, ndraws int) error {
	errs := make([]error, len(chains))

	var wg sync.WaitGroup
	for i, ch := range chains {
		wg.Add(1)
		go func(i int, ch *Chain) {
			defer wg.Done()
			errs[i] = ch.Sample(ndraws)
		}(i, ch)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "Chain %d", i)
		}
	}
	return nil
}
