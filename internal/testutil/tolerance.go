package testutil

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-spex/spex/frame"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if any
// element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps || math.IsNaN(diff) {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)",
				i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// RequireColumnsNormalized fails t if any column of p with a nonzero entry
// does not sum to 1 within eps.
func RequireColumnsNormalized(t *testing.T, p *frame.Frame, eps float64) {
	t.Helper()

	for x := 0; x < p.Nx; x++ {
		sum, n := p.ColSum(x)
		if n == 0 || sum == 0 {
			continue
		}

		if math.Abs(sum-1) > eps {
			t.Fatalf("column %d sums to %v, want 1 (eps %v)", x, sum, eps)
		}
	}
}

// MaxAbsDiff returns the maximum absolute element difference between two
// equal-length slices.
func MaxAbsDiff(t *testing.T, a, b []float64) float64 {
	t.Helper()

	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}

	maxDiff := 0.0

	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > maxDiff {
			maxDiff = d
		}
	}

	return maxDiff
}
