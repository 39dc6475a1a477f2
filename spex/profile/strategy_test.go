package profile

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-spex/internal/testutil"
)

func TestParseStrategy(t *testing.T) {
	for _, tc := range []struct {
		name string
		want Strategy
	}{
		{"median", StrategyMedian},
		{"Gaussian", StrategyGaussian},
		{"MOFFAT", StrategyMoffat},
	} {
		got, err := ParseStrategy(tc.name)
		if err != nil {
			t.Fatalf("ParseStrategy(%q): %v", tc.name, err)
		}

		if got != tc.want {
			t.Fatalf("ParseStrategy(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseStrategyUnknown(t *testing.T) {
	_, err := ParseStrategy("lorentzian")
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("err = %v, want ErrUnknownStrategy", err)
	}
}

func TestStrategyString(t *testing.T) {
	if StrategyMedian.String() != "median" || StrategyMoffat.String() != "moffat" {
		t.Fatal("unexpected strategy names")
	}
}

func TestNewBuilderRequiresTrace(t *testing.T) {
	for _, s := range []Strategy{StrategyGaussian, StrategyMoffat} {
		_, err := NewBuilder(s)
		if !errors.Is(err, ErrMissingTrace) {
			t.Fatalf("%v: err = %v, want ErrMissingTrace", s, err)
		}
	}

	if _, err := NewBuilder(StrategyMedian); err != nil {
		t.Fatalf("median builder should not require a trace: %v", err)
	}
}

func TestNewBuilderUnknownStrategy(t *testing.T) {
	_, err := NewBuilder(Strategy(99))
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("err = %v, want ErrUnknownStrategy", err)
	}
}

func TestNormalizeColumnsSumToOne(t *testing.T) {
	img := testutil.GaussianTraceFrame(64, 6, 5, 30, 4)

	Normalize(img)
	testutil.RequireColumnsNormalized(t, img, 1e-9)
}

func TestNormalizeZeroColumn(t *testing.T) {
	img := testutil.GaussianTraceFrame(16, 3, 2, 8, 2)
	for y := 0; y < img.Ny; y++ {
		img.Set(y, 1, 0)
	}

	Normalize(img)

	sum, _ := img.ColSum(1)
	if sum != 0 {
		t.Fatalf("zero column sums to %v after Normalize", sum)
	}

	testutil.RequireColumnsNormalized(t, img, 1e-9)
}
