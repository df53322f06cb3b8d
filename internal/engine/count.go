package engine

import (
	"math"
	"math/bits"
)

// mulCount returns a*b, or false when the product does not fit in an int64.
func mulCount(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	hi, lo := bits.Mul64(magnitude(a), magnitude(b))
	neg := (a < 0) != (b < 0)
	switch {
	case hi != 0:
		return 0, false
	case lo <= math.MaxInt64:
		if neg {
			return -int64(lo), true
		}
		return int64(lo), true
	case neg && lo == 1<<63:
		return math.MinInt64, true
	}
	return 0, false
}

// addCount returns a+b, or false when the sum does not fit in an int64.
func addCount(a, b int64) (int64, bool) {
	c := a + b
	if (a > 0 && b > 0 && c < 0) || (a < 0 && b < 0 && c >= 0) {
		return 0, false
	}
	return c, true
}

func magnitude(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}
