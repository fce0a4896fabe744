//go:build !linux && !darwin

package radixspline

import "os"

// fallocateFile sets the file size; space may not be reserved on every filesystem.
func fallocateFile(file *os.File, size int64) error {
	return file.Truncate(size)
}

func prefaultRegion(data []byte) {}

func adviseRandom(data []byte) {}
