package radixspline

import (
	"sort"

	"github.com/tamirms/radixspline/internal/spline"
)

// ApproxBound is the result of the estimation phase of a lookup.
//
// Estimate is the interpolated position; [Lo, Hi] (inclusive) is the window
// around it that contains the first occurrence of any indexed key.
type ApproxBound struct {
	Estimate uint64
	Lo       uint64
	Hi       uint64
}

// EstimatePosition returns the interpolated position of key, clamped to
// [0, n-1]. For indexed keys it differs from the true rank by at most Epsilon.
func (idx *Index[K]) EstimatePosition(key K) uint64 {
	n := uint64(len(idx.keys))
	if isNaN(key) {
		return n - 1
	}
	return idx.estimate(idx.codec.image(key))
}

// estimate interpolates the position of a key image.
func (idx *Index[K]) estimate(x uint64) uint64 {
	if x <= idx.minImage {
		return 0
	}
	last := len(idx.points) - 1
	if x >= idx.maxImage {
		return idx.points[last].Pos
	}

	s := idx.table.Segment(idx.points, x)
	if s >= last {
		return idx.points[last].Pos
	}
	est := spline.Interpolate(idx.points[s], idx.points[s+1], x)
	return min(est, uint64(len(idx.keys))-1)
}

// window returns the ε-window around an estimate, clamped to [0, n-1].
func (idx *Index[K]) window(est uint64) (lo, hi uint64) {
	last := uint64(len(idx.keys)) - 1
	lo = est - min(est, idx.epsilon)
	hi = last
	if idx.epsilon < last-est {
		hi = est + idx.epsilon
	}
	return lo, hi
}

// LocatePosition estimates key's position and returns the search window
// around the estimate. Keys outside [MinKey, MaxKey] get a degenerate window
// at the nearest end of the index.
func (idx *Index[K]) LocatePosition(key K) ApproxBound {
	last := uint64(len(idx.keys)) - 1
	if isNaN(key) {
		return ApproxBound{Estimate: last, Lo: last, Hi: last}
	}
	x := idx.codec.image(key)
	switch {
	case x < idx.minImage:
		return ApproxBound{}
	case x > idx.maxImage:
		return ApproxBound{Estimate: last, Lo: last, Hi: last}
	}
	est := idx.estimate(x)
	lo, hi := idx.window(est)
	return ApproxBound{Estimate: est, Lo: lo, Hi: hi}
}

// SearchBound returns the half-open range keys[start:end] that contains key
// if key is indexed.
func (idx *Index[K]) SearchBound(key K) (start, end int) {
	n := len(idx.keys)
	if isNaN(key) {
		return n, n
	}
	x := idx.codec.image(key)
	switch {
	case x < idx.minImage:
		return 0, 0
	case x > idx.maxImage:
		return n, n
	}
	lo, hi := idx.window(idx.estimate(x))
	return int(lo), int(hi) + 1
}

// Find returns the position of the first occurrence of key, or false if key
// is not indexed. Keys outside [MinKey, MaxKey] are rejected without a search.
func (idx *Index[K]) Find(key K) (uint64, bool) {
	if isNaN(key) {
		return 0, false
	}
	x := idx.codec.image(key)
	if x < idx.minImage || x > idx.maxImage {
		return 0, false
	}
	pos := idx.lowerBound(key, x)
	if pos < len(idx.keys) && idx.keys[pos] == key {
		return uint64(pos), true
	}
	return 0, false
}

// Contains reports whether key is indexed.
func (idx *Index[K]) Contains(key K) bool {
	_, ok := idx.Find(key)
	return ok
}

// LowerBound returns the position of the first key >= key, or NumKeys if
// there is none. NaN sorts after every key.
func (idx *Index[K]) LowerBound(key K) uint64 {
	n := len(idx.keys)
	if isNaN(key) {
		return uint64(n)
	}
	x := idx.codec.image(key)
	switch {
	case x <= idx.minImage:
		return 0
	case x > idx.maxImage:
		return uint64(n)
	}
	return uint64(idx.lowerBound(key, x))
}

// UpperBound returns the position of the first key > key, or NumKeys if
// there is none.
func (idx *Index[K]) UpperBound(key K) uint64 {
	n := len(idx.keys)
	if isNaN(key) {
		return uint64(n)
	}
	x := idx.codec.image(key)
	switch {
	case x < idx.minImage:
		return 0
	case x >= idx.maxImage:
		return uint64(n)
	}
	pos := idx.lowerBound(key, x)
	if pos == n || idx.keys[pos] != key {
		return uint64(pos)
	}
	// Skip the run of duplicates.
	return uint64(gallopRight(idx.keys, pos, func(k K) bool { return k > key }))
}

// RangeLookup returns the half-open position range [start, end) of the keys
// k with low <= k <= high. An empty range has start == end.
func (idx *Index[K]) RangeLookup(low, high K) (start, end uint64) {
	start = idx.LowerBound(low)
	end = idx.UpperBound(high)
	if end < start {
		end = start
	}
	return start, end
}

// lowerBound searches the ε-window around key's estimate. Image x must lie
// within [minImage, maxImage].
//
// Indexed keys always resolve inside the window. An absent key next to a
// long run of duplicates can have its insertion point outside it; the search
// then gallops outward from the window edge.
func (idx *Index[K]) lowerBound(key K, x uint64) int {
	lo64, hi64 := idx.window(idx.estimate(x))
	lo, hi := int(lo64), int(hi64)
	keys := idx.keys

	geq := func(k K) bool { return k >= key }
	pos := lo + sort.Search(hi-lo+1, func(i int) bool { return keys[lo+i] >= key })

	switch {
	case pos == lo && lo > 0 && keys[lo-1] >= key:
		return gallopLeft(keys, lo-1, geq)
	case pos == hi+1 && pos < len(keys):
		return gallopRight(keys, hi, geq)
	}
	return pos
}

// gallopLeft returns the first index i <= hi with pred(keys[i]), given that
// pred(keys[hi]) holds and pred is monotone.
func gallopLeft[K Key](keys []K, hi int, pred func(K) bool) int {
	lo := 0
	for step := 1; ; step *= 2 {
		probe := hi - step
		if probe < 0 {
			break
		}
		if !pred(keys[probe]) {
			lo = probe + 1
			break
		}
		hi = probe
	}
	return lo + sort.Search(hi-lo, func(i int) bool { return pred(keys[lo+i]) })
}

// gallopRight returns the first index i > lo with pred(keys[i]), or
// len(keys), given that pred(keys[lo]) does not hold and pred is monotone.
func gallopRight[K Key](keys []K, lo int, pred func(K) bool) int {
	hi := len(keys)
	for step := 1; ; step *= 2 {
		probe := lo + step
		if probe >= len(keys) {
			break
		}
		if pred(keys[probe]) {
			hi = probe
			break
		}
		lo = probe
	}
	return lo + 1 + sort.Search(hi-lo-1, func(i int) bool { return pred(keys[lo+1+i]) })
}
