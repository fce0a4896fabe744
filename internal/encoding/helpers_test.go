package encoding

import "unsafe"

// unsafeBytes exposes the memory of an aligned []uint64 as bytes.
func unsafeBytes(backing []uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(backing))), len(backing)*8)
}
