package rand

import (
	"github.com/seehuhn/mt19937"
)

// A Generator is the single random stream a chain draws from. It wraps a
// 64-bit Mersenne twister and counts every value handed out, so a chain can be
// checkpointed and later resumed at exactly the same point in the stream.
//
// Generator implements the math/rand/v2 Source interface, which is what the
// gonum distributions accept as their Src.
type Generator struct {
	mt    *mt19937.MT19937
	seed  int64
	count uint64
}

// NewGenerator returns a generator seeded with the given value
func NewGenerator(seed int64) (*Generator, error) {
	r := mt19937.New()
	r.Seed(seed)

	g := &Generator{
		mt:   r,
		seed: seed,
	}

	return g, nil
}

// Seed returns the integer seed the generator was created with
func (g *Generator) Seed() int64 {
	return g.seed
}

// Count is the number of 64 bit values consumed so far
func (g *Generator) Count() uint64 {
	return g.count
}

// Skip discards n values from the stream
func (g *Generator) Skip(n uint64) {
	for i := uint64(0); i < n; i++ {
		g.Uint64()
	}
}

// Reset reseeds the generator and fast-forwards it to the given position.
func (g *Generator) Reset(position uint64) {
	r := mt19937.New()
	r.Seed(g.seed)
	g.mt = r
	g.count = 0
	g.Skip(position)
}

// Uint64 returns the next raw value from the twister
func (g *Generator) Uint64() uint64 {
	g.count++
	return g.mt.Uint64()
}

// Float64 returns a value in [0, 1) built from the top 53 bits of one draw
func (g *Generator) Float64() float64 {
	return float64(g.Uint64()>>11) / (1 << 53)
}
