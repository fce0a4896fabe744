package radixspline

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	streamerrors "github.com/tamirms/radixspline/errors"
	"github.com/tamirms/radixspline/internal/encoding"
	"github.com/tamirms/radixspline/internal/radix"
	"github.com/tamirms/radixspline/internal/spline"
)

// Index is an immutable learned index over a sorted key sequence.
//
// Thread Safety:
// - Find, LowerBound, LocatePosition and other read methods are safe for concurrent use
// - Close is NOT safe to call concurrently with queries
// - Close must only be called after all queries have completed
// - After Close returns, no methods may be called on an Index opened from a file
type Index[K Key] struct {
	// Memory map (nil unless opened from a file)
	mmap mmap.MMap
	// Serialized bytes (nil for indexes built in memory)
	data   []byte
	layout layout

	codec keyCodec[K]

	keys   []K
	points []spline.Point
	table  *radix.Table

	epsilon  uint64
	minKey   K
	maxKey   K
	minImage uint64
	maxImage uint64

	closed atomic.Bool // Atomic for lock-free close check
}

// Stats holds index statistics.
type Stats struct {
	NumKeys      uint64
	Epsilon      uint64
	RadixBits    uint32
	SplinePoints int
	KeyKind      KeyKind
	KeyWidth     int
	ModelBytes   int64   // spline points plus radix table
	KeyBytes     int64   // the sorted key array
	BitsPerKey   float64 // model bits per key
}

// Open opens an index file for querying.
// It opens the file, memory-maps it, and closes the file descriptor.
func Open[K Key](path string) (*Index[K], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()
	return OpenFile[K](file)
}

// OpenFile opens an index by memory-mapping the given file.
// The caller is responsible for closing f. Per POSIX mmap(2), f may be
// closed immediately after OpenFile returns.
//
// Region checksums are not verified; call Verify for a full integrity check.
func OpenFile[K Key](f *os.File) (*Index[K], error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index file: %w", err)
	}
	if stat.Size() < headerSize+footerSize {
		return nil, streamerrors.ErrTruncatedFile
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap index file: %w", err)
	}

	idx := &Index[K]{
		mmap: mm,
		data: []byte(mm),
	}
	if err := idx.initFromData(); err != nil {
		return nil, errors.Join(err, idx.Close())
	}
	adviseRandom(idx.data)
	return idx, nil
}

// OpenBytes creates an index over an in-memory serialized image without
// copying it. Close is a no-op. The caller must ensure data is not modified
// while the Index is in use.
//
// Region checksums are not verified; use Unmarshal or call Verify.
func OpenBytes[K Key](data []byte) (*Index[K], error) {
	if len(data) < headerSize+footerSize {
		return nil, streamerrors.ErrTruncatedFile
	}
	idx := &Index[K]{
		data: data,
	}
	if err := idx.initFromData(); err != nil {
		return nil, err
	}
	return idx, nil
}

// initFromData parses the header and the spline, radix and key regions from
// idx.data. Regions are viewed in place when possible.
func (idx *Index[K]) initFromData() error {
	hdr, err := decodeHeader(idx.data)
	if err != nil {
		return err
	}

	idx.codec = newKeyCodec[K]()
	if hdr.KeyKind != idx.codec.kind || int(hdr.KeyWidth) != idx.codec.width {
		return fmt.Errorf("%w: file has %s/%d-byte keys, requested %s/%d-byte keys",
			streamerrors.ErrKeyTypeMismatch, hdr.KeyKind, hdr.KeyWidth, idx.codec.kind, idx.codec.width)
	}

	l := computeLayout(hdr)
	fileSize := uint64(len(idx.data))
	if fileSize < l.size {
		return streamerrors.ErrTruncatedFile
	}
	if fileSize > l.size {
		return streamerrors.ErrCorruptedIndex
	}
	idx.layout = l

	numPoints := int(hdr.NumPoints)
	numKeys := int(hdr.NumKeys)
	numEntries := (1 << hdr.RadixBits) + 1

	splineRegion := idx.data[l.splineOffset:l.tableOffset]
	if points, ok := encoding.View[spline.Point](splineRegion, numPoints); ok {
		idx.points = points
	} else {
		idx.points = encoding.ReadPoints(splineRegion, numPoints)
	}

	tableRegion := idx.data[l.tableOffset:l.keysOffset]
	table := &radix.Table{
		Bits:  hdr.RadixBits,
		Shift: hdr.ShiftBits,
		Min:   hdr.MinKey,
	}
	if entries, ok := encoding.View[uint32](tableRegion, numEntries); ok {
		table.Entries = entries
	} else {
		table.Entries = encoding.ReadUint32s(tableRegion, numEntries)
	}
	idx.table = table

	keysRegion := idx.data[l.keysOffset:l.keysEnd]
	if keys, ok := encoding.View[K](keysRegion, numKeys); ok {
		idx.keys = keys
	} else {
		idx.keys = make([]K, numKeys)
		for i := range idx.keys {
			idx.keys[i] = idx.codec.get(keysRegion[i*idx.codec.width:])
		}
	}

	idx.epsilon = hdr.Epsilon
	idx.minImage = hdr.MinKey
	idx.maxImage = hdr.MaxKey
	idx.minKey = idx.keys[0]
	idx.maxKey = idx.keys[numKeys-1]

	return idx.validateModel(hdr)
}

// validateModel checks the structural invariants queries rely on, so that a
// damaged image is rejected instead of producing out-of-range accesses.
func (idx *Index[K]) validateModel(hdr *header) error {
	if radix.ShiftBits(hdr.MinKey, hdr.MaxKey, hdr.RadixBits) != hdr.ShiftBits {
		return streamerrors.ErrCorruptedIndex
	}
	if err := idx.table.Validate(len(idx.points)); err != nil {
		return err
	}

	first, last := idx.points[0], idx.points[len(idx.points)-1]
	if first.Key != hdr.MinKey || first.Pos != 0 || last.Key != hdr.MaxKey {
		return streamerrors.ErrCorruptedIndex
	}
	for i := 1; i < len(idx.points); i++ {
		if idx.points[i].Key <= idx.points[i-1].Key || idx.points[i].Pos < idx.points[i-1].Pos {
			return streamerrors.ErrCorruptedIndex
		}
	}
	if last.Pos >= hdr.NumKeys {
		return streamerrors.ErrCorruptedIndex
	}

	if isNaN(idx.minKey) || isNaN(idx.maxKey) ||
		idx.codec.image(idx.minKey) != hdr.MinKey || idx.codec.image(idx.maxKey) != hdr.MaxKey {
		return streamerrors.ErrCorruptedIndex
	}
	return nil
}

// Close closes the index and releases resources.
func (idx *Index[K]) Close() error {
	if idx.closed.Swap(true) {
		return nil // Already closed
	}

	if idx.mmap != nil {
		return idx.mmap.Unmap()
	}
	return nil
}

// NumKeys returns the number of keys in the index, duplicates included.
func (idx *Index[K]) NumKeys() uint64 {
	return uint64(len(idx.keys))
}

// Epsilon returns the error bound the index was built with.
func (idx *Index[K]) Epsilon() uint64 {
	return idx.epsilon
}

// RadixBits returns the radix table's prefix width.
func (idx *Index[K]) RadixBits() uint32 {
	return idx.table.Bits
}

// MinKey returns the smallest indexed key.
func (idx *Index[K]) MinKey() K {
	return idx.minKey
}

// MaxKey returns the largest indexed key.
func (idx *Index[K]) MaxKey() K {
	return idx.maxKey
}

// Keys returns the sorted key array backing the index. The slice must not be modified.
func (idx *Index[K]) Keys() []K {
	return idx.keys
}

// SplinePoints returns the number of spline breakpoints.
func (idx *Index[K]) SplinePoints() int {
	return len(idx.points)
}

// Stats returns statistics for the index.
func (idx *Index[K]) Stats() *Stats {
	modelBytes := int64(len(idx.points))*encoding.PointSize + int64(len(idx.table.Entries))*tableEntrySize
	n := len(idx.keys)
	return &Stats{
		NumKeys:      uint64(n),
		Epsilon:      idx.epsilon,
		RadixBits:    idx.table.Bits,
		SplinePoints: len(idx.points),
		KeyKind:      idx.codec.kind,
		KeyWidth:     idx.codec.width,
		ModelBytes:   modelBytes,
		KeyBytes:     int64(n) * int64(idx.codec.width),
		BitsPerKey:   float64(modelBytes*8) / float64(n),
	}
}

// GetStats returns statistics for an index file.
func GetStats[K Key](path string) (*Stats, error) {
	idx, err := Open[K](path)
	if err != nil {
		return nil, err
	}

	return idx.Stats(), idx.Close()
}
