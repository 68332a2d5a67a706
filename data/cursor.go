// Package data provides batching, the restartable batch cursor, the
// Dirichlet non-IID partitioner, and a synthetic dataset for hermetic runs.
package data

import (
	"gonum.org/v1/gonum/mat"
)

// Batch is one (inputs, labels) pair. Inputs rows are samples.
type Batch struct {
	Inputs *mat.Dense
	Labels []int
}

// Loader produces a finite batch sequence. Each call re-acquires a fresh
// sequence, so a loader backs as many epochs as the cursor asks for.
type Loader interface {
	Batches() []Batch
}

// Cursor is a restartable, exhaustible position over a loader's sequence.
// Exhaustion is signalled through the second return of Next, never as an
// error; Reset re-arms it over a freshly acquired sequence.
type Cursor struct {
	loader  Loader
	batches []Batch
	pos     int
}

func NewCursor(l Loader) *Cursor {
	c := &Cursor{loader: l}
	c.Reset()
	return c
}

// Next returns the batch at the current position and advances. ok is false
// once the sequence is exhausted.
func (c *Cursor) Next() (Batch, bool) {
	if c.pos >= len(c.batches) {
		return Batch{}, false
	}
	b := c.batches[c.pos]
	c.pos++
	return b, true
}

func (c *Cursor) Reset() {
	c.batches = c.loader.Batches()
	c.pos = 0
}

func (c *Cursor) Pos() int {
	return c.pos
}
