package radixspline

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"

	streamerrors "github.com/tamirms/radixspline/errors"
	"github.com/tamirms/radixspline/internal/encoding"
	"github.com/tamirms/radixspline/internal/radix"
)

const (
	// magic number for radixspline index files ("RSPL" read big-endian)
	magic = uint32(0x5253504C)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (64 bytes)
	headerSize = 64

	// headerHashOffset is where the header's own hash starts; the hash covers
	// every byte before it.
	headerHashOffset = 56

	// footerSize is the exact size of the serialized footer (16 bytes)
	footerSize = 16

	// tableEntrySize is the size of each radix table entry
	tableEntrySize = 4
)

// header is the 64-byte file header.
//
// Layout:
//
//	Offset  Size  Field        Type
//	0       4     Magic        0x5253504C
//	4       2     Version      0x0001
//	6       1     KeyKind      uint8 (1=unsigned, 2=signed, 3=float)
//	7       1     KeyWidth     uint8 (bytes)
//	8       8     NumKeys      uint64_le (n)
//	16      8     Epsilon      uint64_le
//	24      4     RadixBits    uint32_le (r)
//	28      4     ShiftBits    uint32_le
//	32      8     MinKey       uint64_le (order-preserving image)
//	40      8     MaxKey       uint64_le (order-preserving image)
//	48      8     NumPoints    uint64_le (spline length S)
//	56      8     HeaderHash   uint64_le (xxh3 of bytes 0-55)
//
// KeyKind, KeyWidth, NumKeys, Epsilon and RadixBits form the compatibility
// contract: a reader whose key type disagrees with KeyKind/KeyWidth must
// refuse the file.
type header struct {
	Magic      uint32
	Version    uint16
	KeyKind    KeyKind
	KeyWidth   uint8
	NumKeys    uint64
	Epsilon    uint64
	RadixBits  uint32
	ShiftBits  uint32
	MinKey     uint64
	MaxKey     uint64
	NumPoints  uint64
	HeaderHash uint64
}

// encodeTo serializes the header to an existing buffer, computing HeaderHash.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = byte(h.KeyKind)
	buf[7] = h.KeyWidth
	binary.LittleEndian.PutUint64(buf[8:16], h.NumKeys)
	binary.LittleEndian.PutUint64(buf[16:24], h.Epsilon)
	binary.LittleEndian.PutUint32(buf[24:28], h.RadixBits)
	binary.LittleEndian.PutUint32(buf[28:32], h.ShiftBits)
	binary.LittleEndian.PutUint64(buf[32:40], h.MinKey)
	binary.LittleEndian.PutUint64(buf[40:48], h.MaxKey)
	binary.LittleEndian.PutUint64(buf[48:56], h.NumPoints)
	h.HeaderHash = xxh3.Hash(buf[:headerHashOffset])
	binary.LittleEndian.PutUint64(buf[56:64], h.HeaderHash)
}

// decodeHeader parses and validates a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, streamerrors.ErrTruncatedFile
	}

	h := &header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint16(buf[4:6]),
		KeyKind:    KeyKind(buf[6]),
		KeyWidth:   buf[7],
		NumKeys:    binary.LittleEndian.Uint64(buf[8:16]),
		Epsilon:    binary.LittleEndian.Uint64(buf[16:24]),
		RadixBits:  binary.LittleEndian.Uint32(buf[24:28]),
		ShiftBits:  binary.LittleEndian.Uint32(buf[28:32]),
		MinKey:     binary.LittleEndian.Uint64(buf[32:40]),
		MaxKey:     binary.LittleEndian.Uint64(buf[40:48]),
		NumPoints:  binary.LittleEndian.Uint64(buf[48:56]),
		HeaderHash: binary.LittleEndian.Uint64(buf[56:64]),
	}

	if h.Magic != magic {
		return nil, streamerrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, streamerrors.ErrInvalidVersion
	}
	if xxh3.Hash(buf[:headerHashOffset]) != h.HeaderHash {
		return nil, streamerrors.ErrChecksumFailed
	}
	if !validKeyType(h.KeyKind, h.KeyWidth) {
		return nil, streamerrors.ErrCorruptedIndex
	}
	if h.NumKeys == 0 || h.NumKeys > maxKeys {
		return nil, streamerrors.ErrCorruptedIndex
	}
	if h.NumPoints == 0 || h.NumPoints > h.NumKeys {
		return nil, streamerrors.ErrCorruptedIndex
	}
	if h.RadixBits > radix.MaxBits || h.ShiftBits > 64 {
		return nil, streamerrors.ErrCorruptedIndex
	}
	if h.MinKey > h.MaxKey {
		return nil, streamerrors.ErrCorruptedIndex
	}

	return h, nil
}

func validKeyType(kind KeyKind, width uint8) bool {
	switch kind {
	case KindUnsigned, KindSigned:
		return width == 1 || width == 2 || width == 4 || width == 8
	case KindFloat:
		return width == 4 || width == 8
	}
	return false
}

// footer is the 16-byte file footer.
//
// Layout:
//
//	Offset  Size  Field       Type
//	0       8     ModelHash   uint64_le (xxHash64 of spline and radix regions)
//	8       8     KeysHash    uint64_le (xxHash64 of key region)
type footer struct {
	ModelHash uint64
	KeysHash  uint64
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.ModelHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.KeysHash)
}

// decodeFooter parses a 16-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, streamerrors.ErrTruncatedFile
	}
	return &footer{
		ModelHash: binary.LittleEndian.Uint64(buf[0:8]),
		KeysHash:  binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// layout holds the region offsets of a serialized index.
//
//	[Header 64B][Spline S×16B][Radix (2^r+1)×4B][pad to 8][Keys n×w B][pad to 8][Footer 16B]
//
// The key region starts 8-byte aligned so it can be viewed in place.
type layout struct {
	splineOffset uint64
	tableOffset  uint64
	keysOffset   uint64
	keysEnd      uint64
	footerOffset uint64
	size         uint64
}

func computeLayout(h *header) layout {
	var l layout
	l.splineOffset = headerSize
	l.tableOffset = l.splineOffset + h.NumPoints*encoding.PointSize
	tableSize := (uint64(1)<<h.RadixBits + 1) * tableEntrySize
	l.keysOffset = encoding.Align8(l.tableOffset + tableSize)
	l.keysEnd = l.keysOffset + h.NumKeys*uint64(h.KeyWidth)
	l.footerOffset = encoding.Align8(l.keysEnd)
	l.size = l.footerOffset + footerSize
	return l
}
