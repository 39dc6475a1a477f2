package clip

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-spex/internal/testutil"
)

func TestTimeClipFlagsTemporalSpike(t *testing.T) {
	data := testutil.ConstantCube(20, 8, 8, 10)
	data.Frame(7).Set(3, 4, 10000)

	mask, n, err := TimeClip(data, TimeClipConfig{Sigma: 3, Jump: 5})
	if err != nil {
		t.Fatalf("TimeClip: %v", err)
	}

	if mask.Frame(7).At(3, 4) != 1 {
		t.Fatal("spike sample not flagged")
	}

	// The jump detector also flags the sample preceding the step.
	if mask.Frame(6).At(3, 4) != 1 {
		t.Fatal("pre-jump sample not flagged")
	}

	if n != 2 {
		t.Fatalf("flagged %d samples, want 2", n)
	}

	// Steady pixels stay clean.
	if mask.Frame(7).At(0, 0) != 0 {
		t.Fatal("steady pixel flagged")
	}
}

func TestTimeClipJumpOnly(t *testing.T) {
	// A persistent level shift is a jump, not a sigma outlier.
	data := testutil.ConstantCube(16, 4, 4, 0)
	for ti := 8; ti < 16; ti++ {
		data.Frame(ti).Set(2, 2, 100)
	}

	mask, _, err := TimeClip(data, TimeClipConfig{Sigma: 50, Jump: 5})
	if err != nil {
		t.Fatalf("TimeClip: %v", err)
	}

	if mask.Frame(7).At(2, 2) != 1 {
		t.Fatal("step edge not flagged")
	}

	// Only the sample preceding the jump is flagged.
	if mask.Frame(8).At(2, 2) != 0 {
		t.Fatal("sample after the step flagged")
	}

	if mask.Frame(3).At(2, 2) != 0 || mask.Frame(12).At(2, 2) != 0 {
		t.Fatal("plateau samples flagged")
	}
}

func TestTimeClipErrors(t *testing.T) {
	if _, _, err := TimeClip(nil, DefaultTimeClipConfig()); !errors.Is(err, ErrNilInput) {
		t.Fatalf("nil cube: err = %v, want ErrNilInput", err)
	}

	data := testutil.ConstantCube(4, 2, 2, 1)
	if _, _, err := TimeClip(data, TimeClipConfig{Sigma: 0}); !errors.Is(err, ErrBadSigma) {
		t.Fatalf("zero sigma: err = %v, want ErrBadSigma", err)
	}
}

func TestOutliers1DFlagsSpikeNotTrend(t *testing.T) {
	series := testutil.Linspace(0, 1, 50)
	series[25] += 10

	out, n, err := Outliers1D(series, 5, 5, 5)
	if err != nil {
		t.Fatalf("Outliers1D: %v", err)
	}

	if n != 1 {
		t.Fatalf("flagged %d samples, want 1", n)
	}

	if !out[25] {
		t.Fatal("spike not flagged")
	}
}

func TestOutliers1DNonFinite(t *testing.T) {
	series := testutil.Linspace(0, 1, 30)
	series[10] = math.NaN()

	out, n, err := Outliers1D(series, 5, 5, 5)
	if err != nil {
		t.Fatalf("Outliers1D: %v", err)
	}

	if n != 1 || !out[10] {
		t.Fatalf("NaN sample: n = %d, out[10] = %v", n, out[10])
	}
}

func TestOutliers1DCleanSeriesUnchanged(t *testing.T) {
	series := testutil.Linspace(0, 1, 40)

	_, n, err := Outliers1D(series, 5, 5, 5)
	if err != nil {
		t.Fatalf("Outliers1D: %v", err)
	}

	if n != 0 {
		t.Fatalf("flagged %d samples on a clean ramp", n)
	}
}

func TestOutliers1DErrors(t *testing.T) {
	series := testutil.Linspace(0, 1, 10)

	for _, tc := range []struct {
		name     string
		sigma    float64
		box, it  int
		want     error
	}{
		{"zero sigma", 0, 5, 5, ErrBadSigma},
		{"zero box", 5, 0, 5, ErrBadWidth},
		{"zero iters", 5, 5, 0, ErrBadIters},
		{"short series", 5, 20, 5, ErrShortInput},
	} {
		_, _, err := Outliers1D(series, tc.sigma, tc.box, tc.it)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestFillReplacesOutliers(t *testing.T) {
	series := make([]float64, 40)
	for i := range series {
		series[i] = 2
	}
	series[9] = 500

	out, _, err := Outliers1D(series, 5, 5, 5)
	if err != nil {
		t.Fatalf("Outliers1D: %v", err)
	}

	filled, err := Fill(series, out, 5)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	if math.Abs(filled[9]-2) > 1e-12 {
		t.Fatalf("filled[9] = %v, want 2", filled[9])
	}

	if filled[0] != 2 || filled[39] != 2 {
		t.Fatal("clean samples changed")
	}
}
