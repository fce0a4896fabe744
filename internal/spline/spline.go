// Package spline implements the greedy spline corridor: a single pass over a
// sorted key sequence that emits the breakpoints of a piecewise-linear
// approximation of key→rank whose error never exceeds a fixed bound.
//
// Keys are order-preserving uint64 images; the caller is responsible for the
// mapping from its own key type.
package spline

import (
	streamerrors "github.com/tamirms/radixspline/errors"
	intbits "github.com/tamirms/radixspline/internal/bits"
)

// maxEpsilon caps the error bound used in corridor arithmetic. Ranks are
// below 2^40, so any larger bound admits every line anyway.
const maxEpsilon = int64(1) << 42

// Point is a spline breakpoint: a key image and the rank of its first occurrence.
type Point struct {
	Key uint64
	Pos uint64
}

// limit is a corridor boundary point. Y may exceed the last rank.
type limit struct {
	x uint64
	y int64
}

// Builder accumulates keys in order and commits spline points whenever the
// corridor of admissible slopes collapses.
//
// The corridor is anchored at the last committed point. upper and lower are
// the boundary points that currently define the shallowest upper line and
// the steepest lower line; a new key stays in the current segment only if it
// lies strictly between them.
type Builder struct {
	epsilon int64

	points []Point

	numKeys  uint64
	distinct uint64

	// prev is the first-occurrence CDF point of the previous distinct key.
	prev Point

	upper limit
	lower limit

	finished bool
}

// NewBuilder creates a builder for the given error bound.
// sizeHint pre-sizes the output and may be zero.
func NewBuilder(epsilon uint64, sizeHint int) *Builder {
	eps := maxEpsilon
	if epsilon < uint64(maxEpsilon) {
		eps = int64(epsilon)
	}
	return &Builder{
		epsilon: eps,
		points:  make([]Point, 0, sizeHint),
	}
}

// Add appends the next key. Keys must be non-decreasing; duplicates keep the
// rank of their first occurrence.
func (b *Builder) Add(x uint64) error {
	if b.finished {
		return streamerrors.ErrBuilderClosed
	}
	if b.numKeys > 0 && x < b.prev.Key {
		return streamerrors.ErrUnsortedInput
	}

	y := b.numKeys
	b.numKeys++

	if y == 0 {
		b.distinct = 1
		b.prev = Point{Key: x, Pos: 0}
		b.points = append(b.points, b.prev)
		return nil
	}
	if x == b.prev.Key {
		return nil
	}
	b.distinct++

	upperY := int64(y) + b.epsilon
	lowerY := max(int64(y)-b.epsilon, 0)

	if b.distinct == 2 {
		b.upper = limit{x: x, y: upperY}
		b.lower = limit{x: x, y: lowerY}
		b.prev = Point{Key: x, Pos: y}
		return nil
	}

	last := b.points[len(b.points)-1]
	lastY := int64(last.Pos)

	dx := x - last.Key
	dy := int64(y) - lastY
	upperDX := b.upper.x - last.Key
	upperDY := b.upper.y - lastY
	lowerDX := b.lower.x - last.Key
	lowerDY := b.lower.y - lastY

	belowUpper := intbits.CompareSlopes(upperDY, upperDX, dy, dx) > 0
	aboveLower := intbits.CompareSlopes(lowerDY, lowerDX, dy, dx) < 0

	if !belowUpper || !aboveLower {
		b.points = append(b.points, b.prev)
		b.upper = limit{x: x, y: upperY}
		b.lower = limit{x: x, y: lowerY}
	} else {
		if intbits.CompareSlopes(upperDY, upperDX, upperY-lastY, dx) > 0 {
			b.upper = limit{x: x, y: upperY}
		}
		if intbits.CompareSlopes(lowerDY, lowerDX, lowerY-lastY, dx) < 0 {
			b.lower = limit{x: x, y: lowerY}
		}
	}

	b.prev = Point{Key: x, Pos: y}
	return nil
}

// Finish commits the last distinct key and returns the spline.
// The builder cannot be used afterwards.
func (b *Builder) Finish() ([]Point, error) {
	if b.finished {
		return nil, streamerrors.ErrBuilderClosed
	}
	b.finished = true

	if b.numKeys == 0 {
		return nil, streamerrors.ErrEmptyIndex
	}
	if b.points[len(b.points)-1].Key != b.prev.Key {
		b.points = append(b.points, b.prev)
	}
	return b.points, nil
}

// NumKeys returns the number of keys added, duplicates included.
func (b *Builder) NumKeys() uint64 {
	return b.numKeys
}

// Distinct returns the number of distinct keys added.
func (b *Builder) Distinct() uint64 {
	return b.distinct
}

// Build runs the corridor over a complete sorted key sequence.
func Build(keys []uint64, epsilon uint64) ([]Point, error) {
	b := NewBuilder(epsilon, 0)
	for _, k := range keys {
		if err := b.Add(k); err != nil {
			return nil, err
		}
	}
	return b.Finish()
}

// Interpolate returns the position on the segment p0→p1 at key, rounded
// down. Keys outside the segment clamp to its endpoints.
func Interpolate(p0, p1 Point, key uint64) uint64 {
	if key <= p0.Key || p1.Key <= p0.Key {
		return p0.Pos
	}
	if key >= p1.Key {
		return p1.Pos
	}
	return p0.Pos + intbits.MulDiv(key-p0.Key, p1.Pos-p0.Pos, p1.Key-p0.Key)
}
