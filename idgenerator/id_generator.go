// Package idgenerator hands out sequential uint32 IDs.
package idgenerator

import "sync/atomic"

// IdGenerator returns increasing IDs and is safe for concurrent use. The
// first ID is one past the start value, so a start of 0 keeps 0 free to
// mean "no ID".
type IdGenerator struct {
	last atomic.Uint32
}

// NewIdGenerator returns a generator whose first Id is start+1.
func NewIdGenerator(start uint32) *IdGenerator {
	g := &IdGenerator{}
	g.last.Store(start)
	return g
}

// Id returns the next ID. The sequence wraps after math.MaxUint32.
func (g *IdGenerator) Id() uint32 {
	return g.last.Add(1)
}

// Last returns the most recently issued ID, or the start value if none was
// issued yet.
func (g *IdGenerator) Last() uint32 {
	return g.last.Load()
}
