package bits

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/big"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// TestMulDivMatchesBigInt checks MulDiv against math/big for random operands
// satisfying a <= c.
func TestMulDivMatchesBigInt(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		c := rng.Uint64() | 1
		a := rng.Uint64N(c) + 1
		b := rng.Uint64()

		want := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
		want.Quo(want, new(big.Int).SetUint64(c))

		if got := MulDiv(a, b, c); got != want.Uint64() {
			t.Fatalf("iter %d: MulDiv(%d, %d, %d) = %d, want %s", i, a, b, c, got, want)
		}
	}
}

func TestMulDivEdgeCases(t *testing.T) {
	tests := []struct {
		a, b, c uint64
		want    uint64
	}{
		{0, 100, 7, 0},
		{7, 100, 7, 100},
		{1, math.MaxUint64, math.MaxUint64, 1},
		{math.MaxUint64, math.MaxUint64, math.MaxUint64, math.MaxUint64},
		{3, 10, 4, 7},
	}
	for _, tt := range tests {
		if got := MulDiv(tt.a, tt.b, tt.c); got != tt.want {
			t.Errorf("MulDiv(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
		}
	}
}

// TestCompareSlopesMatchesBigRat checks CompareSlopes against exact rationals.
func TestCompareSlopesMatchesBigRat(t *testing.T) {
	rng := newTestRNG(t)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		dy1 := int64(rng.Uint64())
		dy2 := int64(rng.Uint64())
		dx1 := rng.Uint64() | 1
		dx2 := rng.Uint64() | 1
		if i%4 == 0 {
			// Small magnitudes exercise ties and sign changes.
			dy1, dy2 = int64(rng.IntN(21))-10, int64(rng.IntN(21))-10
			dx1, dx2 = rng.Uint64N(5)+1, rng.Uint64N(5)+1
		}

		r1 := new(big.Rat).SetFrac(big.NewInt(dy1), new(big.Int).SetUint64(dx1))
		r2 := new(big.Rat).SetFrac(big.NewInt(dy2), new(big.Int).SetUint64(dx2))
		want := r1.Cmp(r2)

		if got := CompareSlopes(dy1, dx1, dy2, dx2); got != want {
			t.Fatalf("iter %d: CompareSlopes(%d/%d, %d/%d) = %d, want %d",
				i, dy1, dx1, dy2, dx2, got, want)
		}
	}
}

func TestCompareSlopesEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		dy1      int64
		dx1      uint64
		dy2      int64
		dx2      uint64
		expected int
	}{
		{"EqualSlopes", 2, 4, 1, 2, 0},
		{"ZeroVersusZero", 0, 1, 0, math.MaxUint64, 0},
		{"NegativeBelowZero", -1, 1, 0, 1, -1},
		{"MinInt64", math.MinInt64, 1, math.MaxInt64, 1, -1},
		{"HugeRun", 1, math.MaxUint64, 1, math.MaxUint64 - 1, -1},
		{"BothNegative", -3, 1, -2, 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareSlopes(tt.dy1, tt.dx1, tt.dy2, tt.dx2); got != tt.expected {
				t.Errorf("CompareSlopes = %d, want %d", got, tt.expected)
			}
			// Antisymmetry.
			if got := CompareSlopes(tt.dy2, tt.dx2, tt.dy1, tt.dx1); got != -tt.expected {
				t.Errorf("swapped CompareSlopes = %d, want %d", got, -tt.expected)
			}
		})
	}
}
