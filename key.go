package radixspline

import (
	"encoding/binary"
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Key is the set of key types an index can be built over: any fixed-width
// integer or floating-point type, including named types derived from them.
type Key interface {
	constraints.Integer | constraints.Float
}

// KeyKind identifies the numeric family of a key type. Together with the key
// width it is part of the serialized format's compatibility contract.
type KeyKind uint8

const (
	KindUnsigned KeyKind = 1
	KindSigned   KeyKind = 2
	KindFloat    KeyKind = 3
)

func (k KeyKind) String() string {
	switch k {
	case KindUnsigned:
		return "unsigned"
	case KindSigned:
		return "signed"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

const signBit = uint64(1) << 63

// keyCodec maps keys to order-preserving uint64 images and to and from their
// raw little-endian encoding.
//
// Images are what the spline and radix table operate on: for any two non-NaN
// keys a and b, a < b exactly when image(a) < image(b), and a == b exactly
// when the images are equal (negative zero is folded onto positive zero).
type keyCodec[K Key] struct {
	kind  KeyKind
	width int
}

func newKeyCodec[K Key]() keyCodec[K] {
	var zero K
	half := 0.5
	kind := KindUnsigned
	switch {
	case K(half) != zero:
		kind = KindFloat
	case zero-1 < zero:
		kind = KindSigned
	}
	return keyCodec[K]{kind: kind, width: int(unsafe.Sizeof(zero))}
}

// image returns the order-preserving uint64 image of k. k must not be NaN.
func (c keyCodec[K]) image(k K) uint64 {
	switch c.kind {
	case KindFloat:
		var b uint64
		if c.width == 4 {
			b = uint64(math.Float32bits(float32(k))) << 32
		} else {
			b = math.Float64bits(float64(k))
		}
		if b == signBit {
			b = 0
		}
		if b&signBit != 0 {
			return ^b
		}
		return b | signBit
	case KindSigned:
		return uint64(int64(k)) ^ signBit
	default:
		return uint64(k)
	}
}

// put writes the raw little-endian encoding of k into buf[:width].
func (c keyCodec[K]) put(buf []byte, k K) {
	var raw uint64
	switch {
	case c.kind == KindFloat && c.width == 4:
		raw = uint64(math.Float32bits(float32(k)))
	case c.kind == KindFloat:
		raw = math.Float64bits(float64(k))
	case c.kind == KindSigned:
		raw = uint64(int64(k))
	default:
		raw = uint64(k)
	}
	switch c.width {
	case 1:
		buf[0] = byte(raw)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(raw))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(raw))
	default:
		binary.LittleEndian.PutUint64(buf, raw)
	}
}

// get decodes a key written by put.
func (c keyCodec[K]) get(buf []byte) K {
	var raw uint64
	switch c.width {
	case 1:
		raw = uint64(buf[0])
	case 2:
		raw = uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		raw = uint64(binary.LittleEndian.Uint32(buf))
	default:
		raw = binary.LittleEndian.Uint64(buf)
	}
	switch c.kind {
	case KindFloat:
		if c.width == 4 {
			return K(math.Float32frombits(uint32(raw)))
		}
		return K(math.Float64frombits(raw))
	case KindSigned:
		shift := uint(64 - 8*c.width)
		return K(int64(raw<<shift) >> shift)
	default:
		return K(raw)
	}
}

// isNaN reports whether k is a floating-point NaN.
func isNaN[K Key](k K) bool {
	return k != k
}
