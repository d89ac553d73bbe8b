package datastore

import "math/bits"

// IsPow2 reports whether v is a positive power of two.
func IsPow2(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// NextPow2 returns the smallest power of two >= v (1 for v <= 1).
func NextPow2(v int) int {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(v-1))
}

// Log2 returns floor(log2(v)) for positive v, -1 otherwise.
func Log2(v int) int {
	if v <= 0 {
		return -1
	}
	return bits.Len(uint(v)) - 1
}

// AlignWithIncrease returns the smallest multiple of align that is >= v.
func AlignWithIncrease(v, align int) int {
	if align <= 1 {
		return v
	}
	if r := v % align; r != 0 {
		return v + align - r
	}
	return v
}

// AlignDown returns the greatest multiple of align that is <= v.
func AlignDown(v, align int) int {
	if align <= 1 {
		return v
	}
	return v - v%align
}

// CalcPow2Size rounds an instance size the way every struct and array is
// stored: up to the next power of two while the size fits into maxPow2, and
// up to the next multiple of maxPow2 beyond it. Zero stays zero.
func CalcPow2Size(size, maxPow2 int) int {
	if size <= 0 {
		return 0
	}
	if maxPow2 <= 0 || size <= maxPow2 {
		return NextPow2(size)
	}
	return AlignWithIncrease(size, maxPow2)
}

// BitsNeeded returns how many bits are required to store v, including the
// sign bit when signed is set.
func BitsNeeded(v int64, signed bool) int {
	if !signed {
		return bits.Len64(uint64(v))
	}
	if v < 0 {
		v = ^v
	}
	return bits.Len64(uint64(v)) + 1
}

// BytesForBits rounds a bit count up to a power-of-two byte size (1, 2, 4, 8...).
func BytesForBits(n int) int {
	return NextPow2((n + 7) / 8)
}
