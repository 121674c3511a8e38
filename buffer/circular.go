package buffer

// Circular is a fixed-size ring buffer with the ability to read back the
// first and second halves of the values collected, in the order they were
// added. The sampler uses it for acceptance windows and recent-draw history.
type Circular[T any] struct {
	buffer    []T   // actual storage
	pos       int   // Current position in buffer
	BufSize   int   // BufSize is the fixed number of values maintained in memory
	Count     int   // Count is the number of values in memory. Will always be <= BufSize
	TotalSeen int64 // TotalSeen is the total number of times Add has been called
}

// NewCircular creates a new circular buffer of totalSize. A size below one is
// bumped to one.
func NewCircular[T any](totalSize int) *Circular[T] {
	if totalSize < 1 {
		totalSize = 1
	}

	return &Circular[T]{
		buffer:  make([]T, totalSize),
		pos:     0,
		BufSize: totalSize,
		Count:   0,
	}
}

// Internal: return the next array position
func (c *Circular[T]) nextPos() int {
	return (c.pos + 1) % c.BufSize
}

// Add appends the given value to the buffer, overwriting the oldest entry
func (c *Circular[T]) Add(v T) {
	c.TotalSeen++

	c.buffer[c.pos] = v

	c.pos = c.nextPos()

	c.Count++
	if c.Count > c.BufSize {
		c.Count = c.BufSize // max out
	}
}

// Full is true once BufSize values have been added
func (c *Circular[T]) Full() bool {
	return c.Count >= c.BufSize
}

// Reset empties the buffer but keeps TotalSeen
func (c *Circular[T]) Reset() {
	var zero T
	for i := range c.buffer {
		c.buffer[i] = zero
	}
	c.pos = 0
	c.Count = 0
}

// Values returns a copy of the stored values, oldest first
func (c *Circular[T]) Values() []T {
	out := make([]T, 0, c.Count)
	start := (c.pos - c.Count + c.BufSize) % c.BufSize
	for i := 0; i < c.Count; i++ {
		out = append(out, c.buffer[(start+i)%c.BufSize])
	}
	return out
}

// FirstHalf returns the first (oldest) half of the stored values. Returns nil
// until Add has been called at least BufSize times.
func (c *Circular[T]) FirstHalf() []T {
	if !c.Full() {
		return nil
	}
	vals := c.Values()
	return vals[:c.BufSize/2]
}

// SecondHalf returns the second (most recent) half of the stored values.
// Returns nil until Add has been called at least BufSize times. For an odd
// BufSize the middle value belongs to neither half.
func (c *Circular[T]) SecondHalf() []T {
	if !c.Full() {
		return nil
	}
	vals := c.Values()
	return vals[c.BufSize-c.BufSize/2:]
}
