package model

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Round2 rounds f to two decimal places, half away from zero, on the
// decimal representation of f rather than its binary approximation.
// Infinities and NaN are returned unchanged.
func Round2(f float64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// Fixed2 formats f with exactly two decimal places.
func Fixed2(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return decimal.NewFromFloat(f).StringFixed(2)
}
