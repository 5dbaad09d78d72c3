// Package fairness tracks how allocations are spread across suppliers over
// time and turns that history into corrective boosts for scoring.
package fairness

import (
	"sort"

	"github.com/iwvelando/fairmarket/pkg/mathutil"
	"gonum.org/v1/gonum/floats"
)

// JainIndex computes (Σx)² / (n·Σx²). An empty or all-zero allocation is
// defined as perfectly fair and yields 1.
func JainIndex(x []float64) float64 {
	if len(x) == 0 {
		return 1
	}
	sumSq := floats.Dot(x, x)
	if mathutil.IsZero(sumSq) {
		return 1
	}
	sum := floats.Sum(x)
	return (sum * sum) / (float64(len(x)) * sumSq)
}

// Gini computes the Gini coefficient of non-negative values. Negative
// values are ignored; an empty or all-zero input yields 0.
func Gini(values []float64) float64 {
	vals := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= 0 {
			vals = append(vals, v)
		}
	}
	n := float64(len(vals))
	s := floats.Sum(vals)
	if len(vals) == 0 || mathutil.IsZero(s) {
		return 0
	}
	sort.Float64s(vals)
	cum := 0.0
	for i, v := range vals {
		cum += float64(i+1) * v
	}
	return (2*cum)/(n*s) - (n+1)/n
}
