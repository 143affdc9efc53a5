package testutil

import (
	"math"
	"testing"
)

func TestMaxAbsDiff(t *testing.T) {
	d, err := MaxAbsDiff([]float64{1.0, 2.0, 3.0}, []float64{1.0, 2.1, 3.0})
	if err != nil {
		t.Fatalf("MaxAbsDiff error: %v", err)
	}

	if math.Abs(d-0.1) > 1e-15 {
		t.Fatalf("MaxAbsDiff = %v, want 0.1", d)
	}
}

func TestMaxAbsDiffLengthMismatch(t *testing.T) {
	_, err := MaxAbsDiff([]float64{1}, []float64{1, 2})
	if err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

func TestRequireHelpersAcceptMatchingInput(t *testing.T) {
	a := []float64{0.25, -1, 3}
	RequireSliceEqual(t, a, []float64{0.25, -1, 3})
	RequireSliceNearlyEqual(t, a, []float64{0.25, -1, 3 + 1e-13}, 1e-12)
	RequireFinite(t, a)
	RequireBounded(t, a, 3)
}
