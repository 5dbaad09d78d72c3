// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/fairmarket/pkg/constants"
)

// IsZero checks if a quantity is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.Epsilon
}

// IsPositive checks if a quantity is positive (greater than tolerance)
func IsPositive(val float64) bool {
	return val > constants.Epsilon
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Clamp limits val to the closed interval [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// SafeDiv returns num/den, or fallback when den is effectively zero.
func SafeDiv(num, den, fallback float64) float64 {
	if IsZero(den) {
		return fallback
	}
	return num / den
}

// MinMaxNormalize maps values onto [0, 1]. A constant slice maps to all zeros.
func MinMaxNormalize(vals []float64) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	denom := (hi - lo) + constants.Epsilon
	for i, v := range vals {
		out[i] = (v - lo) / denom
	}
	return out
}
