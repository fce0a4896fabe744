// Package radixspline implements a learned index over sorted numeric keys.
//
// An index models the key→position mapping of a sorted array with a
// piecewise-linear spline whose interpolation error is bounded by a
// user-chosen epsilon, and locates the spline segment for a key through a
// radix table indexed by the key's high-order bits. A lookup interpolates an
// estimate, then searches only the window [estimate-ε, estimate+ε].
//
// # Basic Usage
//
// Building an index over an in-memory sorted slice:
//
//	idx, err := radixspline.Build(sortedKeys, radixspline.WithEpsilon(32))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pos, ok := idx.Find(42)
//	start, end := idx.RangeLookup(100, 200) // keys[start:end] are in [100, 200]
//
// Persisting and reopening:
//
//	if err := idx.WriteFile("keys.rspl"); err != nil {
//	    log.Fatal(err)
//	}
//	idx, err = radixspline.Open[uint64]("keys.rspl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
//
// Keys are any fixed-width integer or floating-point type. Duplicates are
// allowed; Find reports the first occurrence. NaN is rejected at build time.
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Public API: builder.go (Build, NewBuilder), index.go (Open, Stats), query.go (Find, RangeLookup)
//   - Configuration: builder_options.go (BuildOption, With* functions)
//   - Key handling: key.go (Key constraint, order-preserving uint64 images)
//   - Serialization: header.go (header, footer, layout), serialize.go, index_writer.go
//   - Verification: serialize.go (Verify), verify.go (CheckErrorBound)
//   - Model: internal/spline/ (greedy corridor), internal/radix/ (radix table), internal/bits/ (128-bit arithmetic)
//   - Platform: sys_*.go (fallocate, madvise)
package radixspline
