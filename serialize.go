package radixspline

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"

	streamerrors "github.com/tamirms/radixspline/errors"
	"github.com/tamirms/radixspline/internal/encoding"
)

// header returns the serialized header describing idx.
func (idx *Index[K]) header() *header {
	return &header{
		Magic:     magic,
		Version:   version,
		KeyKind:   idx.codec.kind,
		KeyWidth:  uint8(idx.codec.width),
		NumKeys:   uint64(len(idx.keys)),
		Epsilon:   idx.epsilon,
		RadixBits: idx.table.Bits,
		ShiftBits: idx.table.Shift,
		MinKey:    idx.minImage,
		MaxKey:    idx.maxImage,
		NumPoints: uint64(len(idx.points)),
	}
}

// SerializedSize returns the exact number of bytes MarshalBinary and
// WriteFile produce.
func (idx *Index[K]) SerializedSize() uint64 {
	return computeLayout(idx.header()).size
}

// MarshalBinary serializes the index. The output depends only on the keys
// and build options, so equal inputs give byte-identical images.
func (idx *Index[K]) MarshalBinary() ([]byte, error) {
	if idx.closed.Load() {
		return nil, streamerrors.ErrIndexClosed
	}
	hdr := idx.header()
	l := computeLayout(hdr)
	buf := make([]byte, l.size)
	idx.encodeInto(buf, hdr, l)
	return buf, nil
}

// encodeInto writes the full serialized image into buf, which must be
// exactly l.size bytes and zeroed.
func (idx *Index[K]) encodeInto(buf []byte, hdr *header, l layout) {
	hdr.encodeTo(buf[:headerSize])

	encoding.PutPoints(buf[l.splineOffset:l.tableOffset], idx.points)
	encoding.PutUint32s(buf[l.tableOffset:l.keysOffset], idx.table.Entries)

	keysRegion := buf[l.keysOffset:l.keysEnd]
	if view, ok := encoding.View[K](keysRegion, len(idx.keys)); ok {
		copy(view, idx.keys)
	} else {
		w := idx.codec.width
		for i, k := range idx.keys {
			idx.codec.put(keysRegion[i*w:], k)
		}
	}

	ftr := footer{
		ModelHash: xxhash.Sum64(buf[l.splineOffset:l.keysOffset]),
		KeysHash:  xxhash.Sum64(buf[l.keysOffset:l.footerOffset]),
	}
	ftr.encodeTo(buf[l.footerOffset:])
}

// Unmarshal deserializes an index produced by MarshalBinary or WriteFile.
// data is copied, and every region checksum is verified before returning.
func Unmarshal[K Key](data []byte) (*Index[K], error) {
	idx, err := OpenBytes[K](bytes.Clone(data))
	if err != nil {
		return nil, err
	}
	if err := idx.Verify(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Verify checks the integrity of a serialized index by recomputing the
// region checksums recorded in the footer. Indexes built in memory have no
// serialized image and always verify.
func (idx *Index[K]) Verify() error {
	if idx.closed.Load() {
		return streamerrors.ErrIndexClosed
	}
	if idx.data == nil {
		return nil
	}

	l := idx.layout
	ft, err := decodeFooter(idx.data[l.footerOffset:])
	if err != nil {
		return err
	}

	if xxhash.Sum64(idx.data[l.splineOffset:l.keysOffset]) != ft.ModelHash {
		return fmt.Errorf("%w: spline or radix region", streamerrors.ErrChecksumFailed)
	}
	if xxhash.Sum64(idx.data[l.keysOffset:l.footerOffset]) != ft.KeysHash {
		return fmt.Errorf("%w: key region", streamerrors.ErrChecksumFailed)
	}
	return nil
}
