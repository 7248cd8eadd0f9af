/*
This file contains common arithmetic helpers for basis-point ratio math and
saturating integer operations. All additive risk and fee computations saturate
rather than overflow, and ratio math floors via integer division.
*/

package utils

import (
	"math"

	sdkmath "cosmossdk.io/math"
)

// BasisPointsDenom is the fixed-point scale for all ratio math: 10000 = 1.0.
const BasisPointsDenom int64 = 10000

// SaturatingAdd adds two non-negative int64 values, clamping at MaxInt64
// instead of wrapping.
func SaturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// SaturatingMul multiplies two non-negative int64 values, clamping at MaxInt64
// instead of wrapping.
func SaturatingMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

// BpsShare returns amount x bps / 10000, truncating toward zero. The result is
// never larger than amount for bps <= 10000.
func BpsShare(amount sdkmath.Int, bps int64) sdkmath.Int {
	return amount.MulRaw(bps).QuoRaw(BasisPointsDenom)
}

// RatioBps returns numerator x 10000 / denominator as an int64, clamped to
// MaxInt64 when the ratio exceeds the representable range. The denominator must
// be positive.
func RatioBps(numerator, denominator sdkmath.Int) int64 {
	ratio := numerator.MulRaw(BasisPointsDenom).Quo(denominator)
	if !ratio.IsInt64() {
		return math.MaxInt64
	}
	return ratio.Int64()
}

// ClampInt64 bounds v to the inclusive range [lo, hi].
func ClampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
