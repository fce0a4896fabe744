// Package errors defines all exported error sentinels for the radixspline library.
//
// This is the single source of truth for error values. Both the top-level
// radixspline package and internal packages import from here, ensuring
// errors.Is checks work across package boundaries.
//
// Specific errors wrap one of two umbrella sentinels, so callers can test
// either the precise cause or the broad class:
//
//	errors.Is(err, ErrUnsortedInput) // precise
//	errors.Is(err, ErrInvalidInput)  // any build precondition violation
package errors

import (
	"errors"
	"fmt"
)

// Umbrella errors
var (
	ErrInvalidInput  = errors.New("radixspline: invalid input")
	ErrCorruptFormat = errors.New("radixspline: corrupt index format")
)

// Build errors
var (
	ErrEmptyIndex       = fmt.Errorf("%w: cannot build index with zero keys", ErrInvalidInput)
	ErrUnsortedInput    = fmt.Errorf("%w: input keys are not sorted", ErrInvalidInput)
	ErrInvalidKey       = fmt.Errorf("%w: key is NaN", ErrInvalidInput)
	ErrInvalidRadixBits = fmt.Errorf("%w: radix bits out of range [0, 28]", ErrInvalidInput)
	ErrTooManyKeys      = fmt.Errorf("%w: key count exceeds maximum (2^40)", ErrInvalidInput)
	ErrBuilderClosed    = errors.New("radixspline: builder is closed")
)

// Format errors
var (
	ErrInvalidMagic    = fmt.Errorf("%w: invalid magic number", ErrCorruptFormat)
	ErrInvalidVersion  = fmt.Errorf("%w: unsupported version", ErrCorruptFormat)
	ErrTruncatedFile   = fmt.Errorf("%w: index data is truncated", ErrCorruptFormat)
	ErrChecksumFailed  = fmt.Errorf("%w: checksum verification failed", ErrCorruptFormat)
	ErrCorruptedIndex  = fmt.Errorf("%w: index data is corrupted", ErrCorruptFormat)
	ErrKeyTypeMismatch = fmt.Errorf("%w: stored key type does not match requested key type", ErrCorruptFormat)
)

// Query errors
var (
	ErrIndexClosed        = errors.New("radixspline: index is closed")
	ErrErrorBoundExceeded = errors.New("radixspline: estimate outside error bound")
)
