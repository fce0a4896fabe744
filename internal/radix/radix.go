// Package radix implements the radix table that narrows a spline segment
// search to the spline points sharing a key's high-order bit prefix.
package radix

import (
	"math"
	"math/bits"
	"sort"

	streamerrors "github.com/tamirms/radixspline/errors"
	"github.com/tamirms/radixspline/internal/spline"
)

const (
	// MaxBits is the largest supported prefix width (a 1 GiB table).
	MaxBits = 28

	// linearSearchThreshold is the bucket size below which a linear scan
	// beats binary search.
	linearSearchThreshold = 32
)

// Table maps a key prefix to the range of spline points carrying it.
//
// Prefixes are taken relative to the smallest key so the whole key range
// spreads across all 2^Bits slots: prefix(k) = (k - Min) >> Shift.
// Entries[i] is the index of the first spline point whose prefix is >= i;
// the trailing entry is the spline length.
type Table struct {
	Bits    uint32
	Shift   uint32
	Min     uint64
	Entries []uint32
}

// ShiftBits returns the shift that maps [minKey, maxKey] onto prefixes of
// at most radixBits bits.
func ShiftBits(minKey, maxKey uint64, radixBits uint32) uint32 {
	width := uint32(bits.Len64(maxKey - minKey))
	if width <= radixBits {
		return 0
	}
	return width - radixBits
}

// Build constructs the table for a finished spline in a single pass.
func Build(points []spline.Point, radixBits int) (*Table, error) {
	if radixBits < 0 || radixBits > MaxBits {
		return nil, streamerrors.ErrInvalidRadixBits
	}
	if len(points) == 0 {
		return nil, streamerrors.ErrEmptyIndex
	}
	if uint64(len(points)) > math.MaxUint32 {
		return nil, streamerrors.ErrTooManyKeys
	}

	r := uint32(radixBits)
	t := &Table{
		Bits:    r,
		Shift:   ShiftBits(points[0].Key, points[len(points)-1].Key, r),
		Min:     points[0].Key,
		Entries: make([]uint32, (1<<r)+1),
	}

	prevPrefix := uint64(0)
	for i, p := range points {
		prefix := t.Prefix(p.Key)
		for prevPrefix < prefix {
			prevPrefix++
			t.Entries[prevPrefix] = uint32(i)
		}
	}
	for i := prevPrefix + 1; i < uint64(len(t.Entries)); i++ {
		t.Entries[i] = uint32(len(points))
	}
	return t, nil
}

// Prefix returns the table slot for key. key must not be below Min.
func (t *Table) Prefix(key uint64) uint64 {
	return (key - t.Min) >> t.Shift
}

// Locate returns the spline index range [lo, hi) of points sharing key's prefix.
// The first spline point with a key greater than key lies in [lo, hi], so
// the covering segment starts in [lo-1, hi), not necessarily in [lo, hi).
func (t *Table) Locate(key uint64) (lo, hi int) {
	p := t.Prefix(key)
	return int(t.Entries[p]), int(t.Entries[p+1])
}

// Segment returns the index of the greatest spline point whose key is <= key,
// i.e. the start of the covering segment. key must lie within the spline's
// key range.
func (t *Table) Segment(points []spline.Point, key uint64) int {
	lo, hi := t.Locate(key)
	u := lo
	if hi-lo < linearSearchThreshold {
		for u < hi && points[u].Key <= key {
			u++
		}
	} else {
		u = lo + sort.Search(hi-lo, func(i int) bool {
			return points[lo+i].Key > key
		})
	}
	if u == 0 {
		return 0
	}
	return u - 1
}

// Validate checks the structural invariants of a decoded table against the
// spline it indexes.
func (t *Table) Validate(numPoints int) error {
	if t.Bits > MaxBits || len(t.Entries) != (1<<t.Bits)+1 {
		return streamerrors.ErrCorruptedIndex
	}
	if t.Entries[0] != 0 || int(t.Entries[len(t.Entries)-1]) != numPoints {
		return streamerrors.ErrCorruptedIndex
	}
	for i := 1; i < len(t.Entries); i++ {
		if t.Entries[i] < t.Entries[i-1] {
			return streamerrors.ErrCorruptedIndex
		}
	}
	return nil
}
