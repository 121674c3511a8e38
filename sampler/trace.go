package sampler

import (
	"github.com/pkg/errors"
)

// Trace is the recorded history of a chain: for every tracked parameter, one
// flat slice per draw in the order the draws were taken. Scalars are stored
// as slices of length one.
type Trace struct {
	Names []string
	Draws map[string][][]float64
}

// NewTrace creates an empty trace over its own copy of names
func NewTrace(names []string) *Trace {
	t := &Trace{
		Names: append([]string(nil), names...),
		Draws: make(map[string][][]float64, len(names)),
	}
	for _, n := range t.Names {
		t.Draws[n] = nil
	}
	return t
}

// Append records one draw of every tracked parameter. values must follow
// Names. The slices are copied.
func (t *Trace) Append(values [][]float64) error {
	if len(values) != len(t.Names) {
		return errors.Errorf("Trace expects %d parameters, got %d", len(t.Names), len(values))
	}
	for i, n := range t.Names {
		t.Draws[n] = append(t.Draws[n], append([]float64(nil), values[i]...))
	}
	return nil
}

// Len is the number of recorded draws
func (t *Trace) Len() int {
	if len(t.Names) < 1 {
		return 0
	}
	return len(t.Draws[t.Names[0]])
}

// Values returns the draws of one parameter. The result aliases the trace.
func (t *Trace) Values(name string) ([][]float64, error) {
	d, ok := t.Draws[name]
	if !ok {
		return nil, configErrorf("Parameter %q is not traced", name)
	}
	return d, nil
}

// Column returns component i of a parameter across all draws
func (t *Trace) Column(name string, i int) ([]float64, error) {
	d, err := t.Values(name)
	if err != nil {
		return nil, err
	}
	col := make([]float64, len(d))
	for k, draw := range d {
		if i < 0 || i >= len(draw) {
			return nil, configErrorf("Parameter %q has no component %d", name, i)
		}
		col[k] = draw[i]
	}
	return col, nil
}

// Scalars returns a scalar parameter across all draws
func (t *Trace) Scalars(name string) ([]float64, error) {
	return t.Column(name, 0)
}

// Clone returns a deep copy
func (t *Trace) Clone() *Trace {
	c := NewTrace(t.Names)
	for n, draws := range t.Draws {
		cp := make([][]float64, len(draws))
		for i, d := range draws {
			cp[i] = append([]float64(nil), d...)
		}
		c.Draws[n] = cp
	}
	return c
}

// Tail returns a deep copy holding only the draws from index from onwards
func (t *Trace) Tail(from int) *Trace {
	if from < 0 {
		from = 0
	}
	c := NewTrace(t.Names)
	for n, draws := range t.Draws {
		if from >= len(draws) {
			continue
		}
		cp := make([][]float64, 0, len(draws)-from)
		for _, d := range draws[from:] {
			cp = append(cp, append([]float64(nil), d...))
		}
		c.Draws[n] = cp
	}
	return c
}
