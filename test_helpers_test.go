package radixspline

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	randv2 "math/rand/v2"
	"path/filepath"
	"slices"
	"sort"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *randv2.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return randv2.New(randv2.NewPCG(testSeed1^s1, testSeed2^s2))
}

// keyDistributions names the generators used by table-driven tests.
var keyDistributions = []struct {
	name string
	gen  func(rng *randv2.Rand, n int) []uint64
}{
	{"uniform", uniformKeys},
	{"dense", denseKeys},
	{"lognormal", lognormalKeys},
	{"duplicates", duplicateKeys},
	{"clustered", clusteredKeys},
}

// uniformKeys returns n sorted keys drawn uniformly from the full uint64 range.
func uniformKeys(rng *randv2.Rand, n int) []uint64 {
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = rng.Uint64()
	}
	slices.Sort(keys)
	return keys
}

// denseKeys returns n sorted keys with small random gaps.
func denseKeys(rng *randv2.Rand, n int) []uint64 {
	keys := make([]uint64, n)
	k := uint64(1000)
	for i := range keys {
		k += 1 + rng.Uint64N(4)
		keys[i] = k
	}
	return keys
}

// lognormalKeys returns n sorted keys with a heavily skewed distribution.
func lognormalKeys(rng *randv2.Rand, n int) []uint64 {
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = uint64(math.Exp(rng.NormFloat64()*2) * 1e9)
	}
	slices.Sort(keys)
	return keys
}

// duplicateKeys returns n sorted keys with long runs of repeated values.
func duplicateKeys(rng *randv2.Rand, n int) []uint64 {
	keys := make([]uint64, n)
	k := uint64(0)
	for i := range keys {
		if rng.IntN(8) == 0 {
			k += 1 + rng.Uint64N(1<<20)
		}
		keys[i] = k
	}
	return keys
}

// clusteredKeys returns n sorted keys packed into a few far-apart clusters.
func clusteredKeys(rng *randv2.Rand, n int) []uint64 {
	keys := make([]uint64, n)
	for i := range keys {
		cluster := rng.Uint64N(8) << 56
		keys[i] = cluster | rng.Uint64N(1<<16)
	}
	slices.Sort(keys)
	return keys
}

// mustBuild builds an index or fails the test.
func mustBuild[K Key](t testing.TB, keys []K, opts ...BuildOption) *Index[K] {
	t.Helper()
	idx, err := Build(keys, opts...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

// roundTripFile writes idx to a temporary file and opens it again.
// The reopened index is closed when the test ends.
func roundTripFile[K Key](t testing.TB, idx *Index[K]) *Index[K] {
	t.Helper()
	path := roundTripPath(t, idx)
	opened, err := Open[K](path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { opened.Close() })
	return opened
}

// refLowerBound is the reference insertion point of key in keys.
func refLowerBound[K Key](keys []K, key K) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] >= key })
}

// refUpperBound is the reference position of the first key greater than key.
func refUpperBound[K Key](keys []K, key K) int {
	return sort.Search(len(keys), func(i int) bool { return keys[i] > key })
}

// verifyAllKeys checks the error bound and exact refinement for every key.
func verifyAllKeys[K Key](t *testing.T, idx *Index[K], keys []K) {
	t.Helper()
	eps := idx.Epsilon()
	for i, k := range keys {
		rank := uint64(i)
		if i > 0 && keys[i-1] == k {
			rank = uint64(refLowerBound(keys, k))
		}

		bound := idx.LocatePosition(k)
		if diff := absDiff(bound.Estimate, rank); diff > eps {
			t.Fatalf("key %v (rank %d): estimate %d is %d away, epsilon %d", k, rank, bound.Estimate, diff, eps)
		}
		if rank < bound.Lo || rank > bound.Hi {
			t.Fatalf("key %v (rank %d): outside window [%d, %d]", k, rank, bound.Lo, bound.Hi)
		}

		pos, ok := idx.Find(k)
		if !ok || pos != rank {
			t.Fatalf("Find(%v) = %d, %v; want %d, true", k, pos, ok, rank)
		}
	}
}

// verifyAbsentKeys checks that probes not in keys are reported absent and
// that LowerBound agrees with the reference.
func verifyAbsentKeys[K Key](t *testing.T, idx *Index[K], keys []K, probes []K) {
	t.Helper()
	for _, p := range probes {
		want := refLowerBound(keys, p)
		present := want < len(keys) && keys[want] == p
		pos, ok := idx.Find(p)
		if ok != present || (ok && pos != uint64(want)) {
			t.Fatalf("Find(%v) = %d, %v; present=%v at %d", p, pos, ok, present, want)
		}
		if got := idx.LowerBound(p); got != uint64(want) {
			t.Fatalf("LowerBound(%v) = %d, want %d", p, got, want)
		}
	}
}

// roundTripPath writes idx to a temporary file and returns its path.
func roundTripPath[K Key](t testing.TB, idx *Index[K]) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rspl")
	if err := idx.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}
