// Package bits provides exact wide-integer primitives used by spline
// construction and interpolation.
package bits

import "math/bits"

// MulDiv returns floor(a*b/c) computed with a 128-bit intermediate.
// Precondition: a <= c and c > 0, which keeps the quotient below 2^64.
func MulDiv(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, c)
	return q
}

// wide is a sign-magnitude 128-bit product.
type wide struct {
	neg    bool
	hi, lo uint64
}

func mulSigned(y int64, x uint64) wide {
	neg := y < 0
	m := uint64(y)
	if neg {
		m = uint64(-y) // -MinInt64 wraps to 1<<63, which is the right magnitude
	}
	hi, lo := bits.Mul64(m, x)
	if hi == 0 && lo == 0 {
		neg = false
	}
	return wide{neg: neg, hi: hi, lo: lo}
}

func compareMagnitude(a, b wide) int {
	switch {
	case a.hi < b.hi:
		return -1
	case a.hi > b.hi:
		return 1
	case a.lo < b.lo:
		return -1
	case a.lo > b.lo:
		return 1
	}
	return 0
}

// CompareSlopes compares dy1/dx1 with dy2/dx2 exactly and returns -1, 0 or +1.
// Both dx values must be positive.
//
// The comparison is the sign of the cross product dy1*dx2 - dy2*dx1, which
// is the orientation of the two vectors: +1 means the first vector is steeper
// (the second turns clockwise from it).
func CompareSlopes(dy1 int64, dx1 uint64, dy2 int64, dx2 uint64) int {
	a := mulSigned(dy1, dx2)
	b := mulSigned(dy2, dx1)
	switch {
	case a.neg && !b.neg:
		return -1
	case !a.neg && b.neg:
		return 1
	}
	c := compareMagnitude(a, b)
	if a.neg {
		return -c
	}
	return c
}
