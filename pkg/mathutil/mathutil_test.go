package mathutil

import (
	"math"
	"testing"
)

func TestIsZero(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected bool
	}{
		{"Exactly zero", 0.0, true},
		{"Below tolerance", 1e-12, true},
		{"Negative below tolerance", -1e-12, true},
		{"Above tolerance", 1e-6, false},
		{"Negative above tolerance", -1e-6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsZero(tt.input); result != tt.expected {
				t.Errorf("IsZero(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		val      float64
		lo, hi   float64
		expected float64
	}{
		{"Inside", 2, 0, 5, 2},
		{"Below", -1, 0, 5, 0},
		{"Above", 7, 0, 5, 5},
		{"At upper bound", 5, 0, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Clamp(tt.val, tt.lo, tt.hi); result != tt.expected {
				t.Errorf("Clamp(%v, %v, %v) = %v, expected %v", tt.val, tt.lo, tt.hi, result, tt.expected)
			}
		})
	}
}

func TestSafeDiv(t *testing.T) {
	if result := SafeDiv(1, 0, 7); result != 7 {
		t.Errorf("SafeDiv(1, 0, 7) = %v, expected 7", result)
	}
	if result := SafeDiv(6, 3, 7); result != 2 {
		t.Errorf("SafeDiv(6, 3, 7) = %v, expected 2", result)
	}
}

func TestMinMaxNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		expected []float64
	}{
		{"Empty", nil, []float64{}},
		{"Constant", []float64{3, 3, 3}, []float64{0, 0, 0}},
		{"Spread", []float64{10, 15, 20}, []float64{0, 0.5, 1}},
		{"Negative values", []float64{-2, 0, 2}, []float64{0, 0.5, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MinMaxNormalize(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("MinMaxNormalize() len = %d, expected %d", len(result), len(tt.expected))
			}
			for i := range result {
				if math.Abs(result[i]-tt.expected[i]) > 1e-6 {
					t.Errorf("MinMaxNormalize()[%d] = %v, expected %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}
