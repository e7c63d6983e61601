package geom

import "math"

// Fixed-point quantisation for scatter-add on targets without atomic
// floating-point addition.
//
// A value v is stored as round(v · 10^exp) in a signed 32-bit integer and
// read back by dividing by the same multiplier. Sums of encoded values are
// exact as long as the running total stays within the int32 range, so the
// largest safe accumulated magnitude per channel is MaxFixedMagnitude(exp).

// MaxFixedExponent is the largest supported scale exponent. At 10^9 the
// representable range is already below ±2.2.
const MaxFixedExponent = 9

// FixedMultiplier returns 10^exp as used by EncodeFixed and DecodeFixed.
func FixedMultiplier(exp int) float32 {
	return float32(math.Pow10(exp))
}

// MaxFixedMagnitude returns the largest magnitude that can be accumulated
// in one int32 channel at the given scale exponent.
func MaxFixedMagnitude(exp int) float64 {
	return float64(math.MaxInt32) / math.Pow10(exp)
}

// FixedResolution returns the quantisation step at the given exponent.
func FixedResolution(exp int) float64 {
	return 1 / math.Pow10(exp)
}

// EncodeFixed quantises v with the given multiplier, rounding half to
// even. Values outside the int32 range saturate; NaN encodes as zero.
func EncodeFixed(v, multiplier float32) int32 {
	x := math.RoundToEven(float64(v) * float64(multiplier))
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt32:
		return math.MaxInt32
	case x <= math.MinInt32:
		return math.MinInt32
	}
	return int32(x)
}

// DecodeFixed converts a quantised value back to float32.
func DecodeFixed(q int32, multiplier float32) float32 {
	return float32(float64(q) / float64(multiplier))
}
