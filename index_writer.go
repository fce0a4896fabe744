package radixspline

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	streamerrors "github.com/tamirms/radixspline/errors"
)

// indexWriter writes a serialized index to disk through a pre-allocated,
// memory-mapped file.
type indexWriter struct {
	file *os.File
	mmap mmap.MMap // Memory-mapped region
	data []byte    // View into mmap for direct writes
}

// newIndexWriter creates path, pre-allocates size bytes and maps them for writing.
func newIndexWriter(path string, size uint64) (*indexWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create index file: %w", err)
	}

	// Pre-allocate disk blocks to prevent SIGBUS on disk full
	if err := fallocateFile(file, int64(size)); err != nil {
		primaryErr := fmt.Errorf("failed to allocate disk space: %w", err)
		return nil, errors.Join(primaryErr, file.Close())
	}

	mm, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("failed to mmap file: %w", err)
		return nil, errors.Join(primaryErr, file.Close())
	}

	iw := &indexWriter{
		file: file,
		mmap: mm,
		data: []byte(mm),
	}
	// On Linux 5.14+, uses MADV_POPULATE_WRITE. No-op on other platforms.
	prefaultRegion(iw.data)
	return iw, nil
}

// finalize flushes the mapped image and closes the file.
// On error, delegates to close() for idempotent cleanup.
func (iw *indexWriter) finalize() error {
	// Flush dirty pages to file (ensures writes visible before unmap)
	if err := iw.mmap.Flush(); err != nil {
		primaryErr := fmt.Errorf("mmap flush failed: %w", err)
		return errors.Join(primaryErr, iw.close())
	}

	unmapErr := iw.mmap.Unmap()
	iw.mmap = nil
	if unmapErr != nil {
		primaryErr := fmt.Errorf("mmap unmap failed: %w", unmapErr)
		return errors.Join(primaryErr, iw.close())
	}

	closeErr := iw.file.Close()
	iw.file = nil
	return closeErr
}

// close closes the writer without finalizing (for error cleanup).
// Idempotent: safe to call multiple times.
func (iw *indexWriter) close() error {
	var unmapErr error
	if iw.mmap != nil {
		unmapErr = iw.mmap.Unmap()
		iw.mmap = nil
	}
	var closeErr error
	if iw.file != nil {
		closeErr = iw.file.Close()
		iw.file = nil
	}
	return errors.Join(unmapErr, closeErr)
}

// WriteFile serializes the index to path. The file content is identical to
// MarshalBinary's output. On failure the partial file is removed.
func (idx *Index[K]) WriteFile(path string) error {
	if idx.closed.Load() {
		return streamerrors.ErrIndexClosed
	}

	hdr := idx.header()
	l := computeLayout(hdr)

	iw, err := newIndexWriter(path, l.size)
	if err != nil {
		return err
	}
	idx.encodeInto(iw.data, hdr, l)

	if err := iw.finalize(); err != nil {
		return errors.Join(err, os.Remove(path))
	}
	return nil
}
