//go:build linux

package radixspline

import (
	"os"

	"golang.org/x/sys/unix"
)

// madvPopulateWrite is MADV_POPULATE_WRITE, added in Linux 5.14.
const madvPopulateWrite = 23

// fallocateFile reserves size bytes for file so that writes through a
// mapping cannot fault with SIGBUS on a full disk. Falls back to ftruncate
// on filesystems without fallocate support.
func fallocateFile(file *os.File, size int64) error {
	if err := unix.Fallocate(int(file.Fd()), 0, 0, size); err != nil {
		return unix.Ftruncate(int(file.Fd()), size)
	}
	// fallocate reserves blocks without setting the file size
	return unix.Ftruncate(int(file.Fd()), size)
}

// prefaultRegion populates the writable mapping up front.
// Older kernels return EINVAL, which is ignored.
func prefaultRegion(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}

// adviseRandom disables readahead on a read-only mapping; lookups touch the
// key region at scattered offsets. Best-effort.
func adviseRandom(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, unix.MADV_RANDOM)
}
