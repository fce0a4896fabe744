// Package encoding provides little-endian codecs for the fixed-width regions
// of a serialized index, plus zero-copy views over them.
//
// View reinterprets memory in place and is only used on little-endian hosts,
// where the in-memory layout of the region types matches the wire layout.
package encoding

import (
	"encoding/binary"
	"unsafe"

	"github.com/tamirms/radixspline/internal/spline"
)

// PointSize is the wire size of a spline point: key image then position.
const PointSize = 16

var littleEndianHost = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// View reinterprets buf as n values of T without copying.
// It returns false if the host is big-endian, buf is too short, or buf is
// not aligned for T; callers then fall back to a decoding copy.
func View[T any](buf []byte, n int) ([]T, bool) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if !littleEndianHost || len(buf) < n*size {
		return nil, false
	}
	if n == 0 {
		return []T{}, true
	}
	ptr := unsafe.Pointer(unsafe.SliceData(buf))
	if uintptr(ptr)%unsafe.Alignof(zero) != 0 {
		return nil, false
	}
	return unsafe.Slice((*T)(ptr), n), true
}

// PutPoints writes points into dst, which must hold len(points)*PointSize bytes.
func PutPoints(dst []byte, points []spline.Point) {
	for i, p := range points {
		off := i * PointSize
		binary.LittleEndian.PutUint64(dst[off:], p.Key)
		binary.LittleEndian.PutUint64(dst[off+8:], p.Pos)
	}
}

// ReadPoints decodes n spline points from buf.
func ReadPoints(buf []byte, n int) []spline.Point {
	points := make([]spline.Point, n)
	for i := range points {
		off := i * PointSize
		points[i] = spline.Point{
			Key: binary.LittleEndian.Uint64(buf[off:]),
			Pos: binary.LittleEndian.Uint64(buf[off+8:]),
		}
	}
	return points
}

// PutUint32s writes vals into dst, which must hold 4*len(vals) bytes.
func PutUint32s(dst []byte, vals []uint32) {
	for i, v := range vals {
		binary.LittleEndian.PutUint32(dst[i*4:], v)
	}
}

// ReadUint32s decodes n little-endian uint32 values from buf.
func ReadUint32s(buf []byte, n int) []uint32 {
	vals := make([]uint32, n)
	for i := range vals {
		vals[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return vals
}

// Align8 rounds n up to a multiple of 8.
func Align8(n uint64) uint64 {
	return (n + 7) &^ 7
}
