package sampler

import (
	"bytes"
	"log"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/hsdm/linalg"
	"github.com/CraigKelly/hsdm/model"
)

// blockWeights links every pair of units in the same group
func blockWeights(membership []int) *linalg.CSR {
	var entries []linalg.Triplet
	for i, gi := range membership {
		for j, gj := range membership {
			if i != j && gi == gj {
				entries = append(entries, linalg.Triplet{Row: i, Col: j, Val: 1})
			}
		}
	}
	w, err := linalg.NewCSR(len(membership), len(membership), entries)
	if err != nil {
		panic(err)
	}
	return w
}

func mustCSR(n int, entries []linalg.Triplet) *linalg.CSR {
	m, err := linalg.NewCSR(n, n, entries)
	if err != nil {
		panic(err)
	}
	return m
}

// pairWeights is two groups that neighbor each other
func pairWeights() *linalg.CSR {
	return mustCSR(2, []linalg.Triplet{{Row: 0, Col: 1, Val: 1}, {Row: 1, Col: 0, Val: 1}})
}

// ringWeights places n groups on a circle
func ringWeights(n int) *linalg.CSR {
	var entries []linalg.Triplet
	for i := 0; i < n; i++ {
		entries = append(entries, linalg.Triplet{Row: i, Col: (i + 1) % n, Val: 1})
		entries = append(entries, linalg.Triplet{Row: i, Col: (i + n - 1) % n, Val: 1})
	}
	return mustCSR(n, entries)
}

// smallInput is 10 units split evenly over 2 groups with one covariate
func smallInput() model.Input {
	const N = 10
	membership := make([]int, N)
	x := make([]float64, N)
	y := make([]float64, N)
	for i := 0; i < N; i++ {
		membership[i] = i / 5
		x[i] = math.Sin(float64(i) + 0.3)
		y[i] = 1 + 1.5*x[i] + float64(membership[i]) + 0.2*math.Cos(3*float64(i))
	}

	delta := mat.NewDense(N, 2, nil)
	for i, g := range membership {
		delta.Set(i, g, 1)
	}

	return model.Input{
		Y:     y,
		X:     mat.NewDense(N, 1, x),
		W:     blockWeights(membership),
		M:     pairWeights(),
		Delta: delta,
	}
}

func smallData(t *testing.T) *model.Data {
	d, err := model.NewData(smallInput(), model.TransformRow, false)
	if err != nil {
		t.Fatalf("Could not build data: %v", err)
	}
	return d
}

// ringData is 24 units over 6 groups on a ring
func ringData(t *testing.T) *model.Data {
	const J, per = 6, 4
	N := J * per
	membership := make([]int, N)
	x := make([]float64, 2*N)
	y := make([]float64, N)
	for i := 0; i < N; i++ {
		membership[i] = i / per
		x[2*i] = 1
		x[2*i+1] = math.Cos(1.7 * float64(i))
		y[i] = 0.5 + 2*x[2*i+1] + 0.3*float64(membership[i]%3) + 0.1*math.Sin(float64(i))
	}
	in := model.Input{
		Y:          y,
		X:          mat.NewDense(N, 2, x),
		W:          blockWeights(membership),
		M:          ringWeights(J),
		Membership: membership,
	}
	d, err := model.NewData(in, model.TransformRow, true)
	if err != nil {
		t.Fatalf("Could not build data: %v", err)
	}
	return d
}

func testConfig(samples int) Config {
	cfg := DefaultConfig()
	cfg.Samples = samples
	return cfg
}

func TestSmallScenario(t *testing.T) {
	assert := assert.New(t)

	ch, err := NewChain(smallData(t), testConfig(50))
	assert.NoError(err)

	tr := ch.Trace()
	assert.Equal(model.SampledParams, tr.Names)
	for _, name := range model.SampledParams {
		draws, err := tr.Values(name)
		assert.NoError(err)
		assert.Len(draws, 50, name)
	}

	// pair weights: eigenvalues -1 and 1
	assert.InDelta(-1.0, ch.State.RhoMin, 1e-9)
	assert.InDelta(1.0, ch.State.RhoMax, 1e-9)

	rhos, err := tr.Scalars(model.ParamRho)
	assert.NoError(err)
	for _, rho := range rhos {
		assert.True(rho > ch.State.RhoMin && rho < ch.State.RhoMax)
	}

	for _, name := range []string{model.ParamSigma2, model.ParamTau2} {
		vals, err := tr.Scalars(name)
		assert.NoError(err)
		for _, v := range vals {
			assert.True(v > 0)
		}
	}

	assert.Equal(int64(50), ch.Draws())
	assert.Equal(int64(50), ch.Control.Accepted+ch.Control.Rejected)
}

func TestZeroEigenvalue(t *testing.T) {
	assert := assert.New(t)

	in := smallInput()
	in.M = mustCSR(2, nil)
	d, err := model.NewData(in, model.TransformRow, false)
	assert.NoError(err)

	calls := 0
	cfg := testConfig(50)
	cfg.NewKernel = func(src Source) Kernel {
		return KernelFunc(func(s *model.State, ctl *Adaptive) error {
			calls++
			ctl.Record(false)
			return nil
		})
	}

	ch, err := NewChain(d, cfg)
	assert.Nil(ch)
	assert.Error(err)
	assert.Equal(model.ErrNumericalInstability, errors.Cause(err))
	assert.Equal(0, calls)
}

func TestLargerModel(t *testing.T) {
	assert := assert.New(t)

	cfg := testConfig(300)
	cfg.Tuning = 5
	cfg.AdaptInterval = 20
	cfg.ExtraTracked = []string{model.ParamBZGammas}
	ch, err := NewChain(ringData(t), cfg)
	assert.NoError(err)

	// ring of 6 row standardized: eigenvalues in [-1, 1]
	assert.InDelta(-1.0, ch.State.RhoMin, 1e-9)
	assert.InDelta(1.0, ch.State.RhoMax, 1e-9)
	assert.Equal(3, ch.State.P) // intercept, x and the lag of x

	bz, err := ch.Trace().Values(model.ParamBZGammas)
	assert.NoError(err)
	assert.Len(bz, 300)
	assert.Len(bz[0], 6)

	rhos, _ := ch.Trace().Scalars(model.ParamRho)
	for _, rho := range rhos {
		assert.True(ch.State.InDomain(rho))
	}
	assert.Equal(15, ch.Control.Cycles)
}

func TestInitializeDeterministic(t *testing.T) {
	assert := assert.New(t)

	d := ringData(t)
	cfg := testConfig(0)

	gen1, _ := newTestGenerator(1)
	gen2, _ := newTestGenerator(1)
	s1, c1, err := Initialize(d, cfg, gen1)
	assert.NoError(err)
	s2, c2, err := Initialize(d, cfg, gen2)
	assert.NoError(err)

	for _, name := range []string{model.ParamAlphas, model.ParamBetas, model.ParamGammas, model.ParamSigma2, model.ParamTau2, model.ParamRho, model.ParamBZGammas} {
		v1, _ := s1.Param(name)
		v2, _ := s2.Param(name)
		assert.Equal(v1, v2, name)
	}
	assert.Equal(s1.RhoMin, s2.RhoMin)
	assert.Equal(c1.Jump, c2.Jump)

	assert.InDelta(-0.2, s1.Rho, 1e-12) // -1/(J-1)
	assert.Equal(2.0, s1.Sigma2)
	assert.Equal(2.0, s1.Tau2)
	assert.Equal(0.0, mat.Norm(s1.Betas, 2))
	assert.Equal(uint64(0), gen1.Count())
}

func TestStartingRhoFallback(t *testing.T) {
	assert := assert.New(t)

	b := Bounds{Min: -1, Max: 1}
	assert.Equal(0.0, startingRho(2, b)) // -1 is on the boundary
	assert.Equal(0.0, startingRho(1, b))
	assert.Equal(-0.5, startingRho(3, b))
	assert.Equal(0.5, startingRho(3, Bounds{Min: 0.2, Max: 0.8}))
}

func TestChainDeterministic(t *testing.T) {
	assert := assert.New(t)

	d := smallData(t)
	ch1, err := NewChain(d, testConfig(40))
	assert.NoError(err)
	ch2, err := NewChain(d, testConfig(40))
	assert.NoError(err)
	assert.Equal(ch1.Trace().Draws, ch2.Trace().Draws)

	cfg := testConfig(40)
	cfg.Seed = 99
	ch3, err := NewChain(d, cfg)
	assert.NoError(err)
	assert.NotEqual(ch1.Trace().Draws, ch3.Trace().Draws)
}

func TestPopDetach(t *testing.T) {
	assert := assert.New(t)

	ch, err := NewChain(smallData(t), testConfig(0))
	assert.NoError(err)

	empty := ch.Pop()
	assert.Equal(0, empty.Len())
	assert.Equal(model.SampledParams, empty.Names)
	for _, name := range empty.Names {
		assert.Len(empty.Draws[name], 0)
	}

	assert.NoError(ch.Sample(25))
	snap := ch.Pop()
	assert.Equal(25, snap.Len())
	assert.Equal(0, ch.Trace().Len())

	before := snap.Clone()
	assert.NoError(ch.Sample(10))
	assert.Equal(before.Draws, snap.Draws)
	assert.Equal(25, snap.Len())
	assert.Equal(10, ch.Trace().Len())
	assert.Equal(int64(35), ch.Draws())

	assert.Equal(model.ErrConfiguration, errors.Cause(ch.Sample(-1)))
	assert.Equal(10, ch.Trace().Len())
}

func TestExtraTracked(t *testing.T) {
	assert := assert.New(t)

	d := smallData(t)
	extras := []string{model.ParamDeltaAlphas, model.ParamXBetas}
	cfg := testConfig(5)
	cfg.ExtraTracked = extras
	ch, err := NewChain(d, cfg)
	assert.NoError(err)

	expected := append(append([]string(nil), model.SampledParams...), extras...)
	assert.Equal(expected, ch.Tracked())

	// The chain keeps its own list
	extras[0] = model.ParamZGammas
	assert.Equal(expected, ch.Tracked())
	assert.Equal(expected, ch.Trace().Names)

	da, err := ch.Trace().Values(model.ParamDeltaAlphas)
	assert.NoError(err)
	assert.Len(da, 5)
	assert.Len(da[0], 10)

	cfg.ExtraTracked = []string{"Lambda"}
	_, err = NewChain(d, cfg)
	assert.Equal(model.ErrConfiguration, errors.Cause(err))

	cfg.ExtraTracked = []string{model.ParamRho}
	_, err = NewChain(d, cfg)
	assert.Equal(model.ErrConfiguration, errors.Cause(err))
}

func TestKernelContract(t *testing.T) {
	assert := assert.New(t)

	cfg := testConfig(1)
	cfg.NewKernel = func(src Source) Kernel {
		return KernelFunc(func(s *model.State, ctl *Adaptive) error {
			return nil
		})
	}
	_, err := NewChain(smallData(t), cfg)
	assert.Error(err)

	cfg.NewKernel = func(src Source) Kernel {
		return KernelFunc(func(s *model.State, ctl *Adaptive) error {
			return errors.New("boom")
		})
	}
	cfg.Samples = 0
	ch, err := NewChain(smallData(t), cfg)
	assert.NoError(err)
	assert.Error(ch.Sample(3))
	assert.Equal(0, ch.Trace().Len())
	assert.Equal(int64(0), ch.Draws())
}

// fixedUniform passes raw values through but returns a constant accept draw
type fixedUniform struct {
	Source
	u float64
}

func (f fixedUniform) Float64() float64 {
	return f.u
}

func TestMetropolisAcceptDraw(t *testing.T) {
	assert := assert.New(t)

	// log(0) accepts every proposal that stays in the domain
	cfg := testConfig(60)
	cfg.RhoJump = 1e-4
	cfg.NewKernel = func(src Source) Kernel {
		return NewGibbs(fixedUniform{Source: src})
	}
	ch, err := NewChain(smallData(t), cfg)
	assert.NoError(err)
	assert.Equal(int64(60), ch.Control.Accepted)
	assert.Equal(int64(0), ch.Control.Rejected)

	rhos, err := ch.Trace().Scalars(model.ParamRho)
	assert.NoError(err)
	for i := 1; i < len(rhos); i++ {
		assert.NotEqual(rhos[i-1], rhos[i])
	}
}

func TestAdaptationBounded(t *testing.T) {
	assert := assert.New(t)

	var jumps []float64
	cfg := testConfig(200)
	cfg.Tuning = 3
	cfg.AdaptInterval = 10
	cfg.RhoJump = 5 // far too wide, most proposals leave the domain
	cfg.NewKernel = func(src Source) Kernel {
		g := NewGibbs(src)
		return KernelFunc(func(s *model.State, ctl *Adaptive) error {
			err := g.Advance(s, ctl)
			jumps = append(jumps, ctl.Jump)
			return err
		})
	}

	ch, err := NewChain(smallData(t), cfg)
	assert.NoError(err)
	assert.Len(jumps, 200)

	changes := 0
	for i := 1; i < len(jumps); i++ {
		if jumps[i] != jumps[i-1] {
			changes++
		}
	}
	if jumps[0] != 5 {
		changes++
	}
	assert.True(changes <= 3)
	for _, j := range jumps[30:] {
		assert.Equal(jumps[29], j)
	}
	assert.True(ch.Control.Frozen())
	assert.Equal(20, ch.Control.Cycles)
}

func TestVerboseCountdown(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	cfg := testConfig(200)
	cfg.Verbose = 2
	cfg.Logger = log.New(&buf, "", 0)
	_, err := NewChain(smallData(t), cfg)
	assert.NoError(err)
	assert.Contains(buf.String(), "200 draws remaining")
	assert.Contains(buf.String(), "100 draws remaining")

	buf.Reset()
	cfg.Verbose = 1
	_, err = NewChain(smallData(t), cfg)
	assert.NoError(err)
	assert.Equal("", buf.String())
}

func TestRhoDrift(t *testing.T) {
	assert := assert.New(t)

	cfg := testConfig(10)
	cfg.ConvergenceWindow = 20
	ch, err := NewChain(smallData(t), cfg)
	assert.NoError(err)

	_, ok := ch.RhoDrift()
	assert.False(ok)

	assert.NoError(ch.Sample(10))
	drift, ok := ch.RhoDrift()
	assert.True(ok)
	assert.True(drift >= 0)
}

func TestRhoLogPosterior(t *testing.T) {
	assert := assert.New(t)

	gen, _ := newTestGenerator(3)
	s, _, err := Initialize(smallData(t), testConfig(0), gen)
	assert.NoError(err)

	s.Tau2 = 0.5
	s.SetAlphas(mat.NewVecDense(2, []float64{1, -1}))
	s.SetGammas(mat.NewVecDense(1, []float64{0}))

	// |I - rho*M| = 1 - rho² and (I - rho*M)(1, -1) = (1+rho)(1, -1)
	rho := 0.3
	expected := math.Log(1-rho*rho) - 2*(1+rho)*(1+rho)/(2*0.5)
	lp, err := RhoLogPosterior(s, rho)
	assert.NoError(err)
	assert.InDelta(expected, lp, 1e-10)

	_, err = RhoLogPosterior(s, 1)
	assert.Equal(model.ErrNumericalInstability, errors.Cause(err))
}
