package radixspline

import (
	"math"
	"sync"
	"testing"
)

func TestRangeLookup(t *testing.T) {
	for _, dist := range keyDistributions {
		t.Run(dist.name, func(t *testing.T) {
			rng := newTestRNG(t)
			keys := dist.gen(rng, 8000)
			idx := mustBuild(t, keys, WithEpsilon(8), WithRadixBits(12))

			for range 2000 {
				a := keys[rng.IntN(len(keys))] + uint64(rng.IntN(5)) - 2
				b := keys[rng.IntN(len(keys))] + uint64(rng.IntN(5)) - 2
				if a > b {
					a, b = b, a
				}
				start, end := idx.RangeLookup(a, b)
				wantStart, wantEnd := refLowerBound(keys, a), refUpperBound(keys, b)
				if start != uint64(wantStart) || end != uint64(wantEnd) {
					t.Fatalf("RangeLookup(%d, %d) = [%d, %d), want [%d, %d)", a, b, start, end, wantStart, wantEnd)
				}
			}
		})
	}
}

func TestRangeLookupEdges(t *testing.T) {
	keys := []int{10, 20, 20, 20, 30, 40}
	idx := mustBuild(t, keys, WithEpsilon(0), WithRadixBits(2))

	tests := []struct {
		name       string
		low, high  int
		start, end uint64
	}{
		{"all", 0, 100, 0, 6},
		{"below min", -5, 5, 0, 0},
		{"above max", 41, 99, 6, 6},
		{"duplicate run", 20, 20, 1, 4},
		{"between keys", 21, 29, 4, 4},
		{"inverted", 30, 10, 4, 4},
		{"exact ends", 10, 40, 0, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := idx.RangeLookup(tt.low, tt.high)
			if start != tt.start || end != tt.end {
				t.Errorf("RangeLookup(%d, %d) = [%d, %d), want [%d, %d)", tt.low, tt.high, start, end, tt.start, tt.end)
			}
		})
	}
}

func TestUpperBound(t *testing.T) {
	rng := newTestRNG(t)
	keys := duplicateKeys(rng, 5000)
	idx := mustBuild(t, keys, WithEpsilon(2), WithRadixBits(8))

	for range 2000 {
		k := keys[rng.IntN(len(keys))] + uint64(rng.IntN(3)) - 1
		if got, want := idx.UpperBound(k), refUpperBound(keys, k); got != uint64(want) {
			t.Fatalf("UpperBound(%d) = %d, want %d", k, got, want)
		}
	}
}

func TestOutOfRangeKeys(t *testing.T) {
	keys := []uint32{100, 200, 300, 400}
	idx := mustBuild(t, keys, WithEpsilon(1))

	for _, k := range []uint32{0, 99, 401, math.MaxUint32} {
		if _, ok := idx.Find(k); ok {
			t.Errorf("Find(%d) should report absent", k)
		}
		if idx.Contains(k) {
			t.Errorf("Contains(%d) = true", k)
		}
	}
	if got := idx.LowerBound(0); got != 0 {
		t.Errorf("LowerBound(0) = %d, want 0", got)
	}
	if got := idx.LowerBound(500); got != 4 {
		t.Errorf("LowerBound(500) = %d, want 4", got)
	}
	if b := idx.LocatePosition(5); b != (ApproxBound{}) {
		t.Errorf("LocatePosition(5) = %+v, want zero window", b)
	}
	if b := idx.LocatePosition(1000); b.Lo != 3 || b.Hi != 3 {
		t.Errorf("LocatePosition(1000) = %+v, want [3, 3]", b)
	}
}

func TestNaNQueries(t *testing.T) {
	keys := []float64{-1, 0.5, 2, 8}
	idx := mustBuild(t, keys)
	nan := math.NaN()

	if _, ok := idx.Find(nan); ok {
		t.Error("Find(NaN) should report absent")
	}
	if got := idx.LowerBound(nan); got != 4 {
		t.Errorf("LowerBound(NaN) = %d, want 4", got)
	}
	if start, end := idx.SearchBound(nan); start != end {
		t.Errorf("SearchBound(NaN) = [%d, %d), want empty", start, end)
	}
}

func TestSearchBound(t *testing.T) {
	rng := newTestRNG(t)
	keys := lognormalKeys(rng, 10000)
	idx := mustBuild(t, keys, WithEpsilon(16), WithRadixBits(10))

	for i, k := range keys {
		if i > 0 && keys[i-1] == k {
			continue
		}
		start, end := idx.SearchBound(k)
		if i < start || i >= end {
			t.Fatalf("key %d at %d outside SearchBound [%d, %d)", k, i, start, end)
		}
		if end-start > 2*16+1 {
			t.Fatalf("SearchBound width %d exceeds 2ε+1", end-start)
		}
	}
}

func TestEstimatePositionClamped(t *testing.T) {
	keys := []int64{-10, -5, 0, 5, 10}
	idx := mustBuild(t, keys, WithEpsilon(1))

	if got := idx.EstimatePosition(math.MinInt64); got != 0 {
		t.Errorf("EstimatePosition(min) = %d, want 0", got)
	}
	if got := idx.EstimatePosition(math.MaxInt64); got != 4 {
		t.Errorf("EstimatePosition(max) = %d, want 4", got)
	}
}

func TestConcurrentReaders(t *testing.T) {
	rng := newTestRNG(t)
	keys := uniformKeys(rng, 20000)
	idx := roundTripFile(t, mustBuild(t, keys, WithEpsilon(8), WithRadixBits(12)))

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < len(keys); i += 8 {
				if i > 0 && keys[i-1] == keys[i] {
					continue
				}
				if pos, ok := idx.Find(keys[i]); !ok || pos != uint64(i) {
					errs <- "mismatch"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}
