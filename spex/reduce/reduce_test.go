package reduce

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-spex/internal/testutil"
	"github.com/cwbudde/algo-spex/spex/extract"
	"github.com/cwbudde/algo-spex/spex/frame"
)

func sweepInput(t, ny, nx int) Input {
	data := testutil.GaussianTraceCube(t, ny, nx, 5, float64(ny)/2, 3, 0, 1)
	variance := testutil.ConstantCube(t, ny, nx, 1)

	center := make([]float64, nx)
	for i := range center {
		center[i] = float64(ny) / 2
	}

	return Input{Data: data, Variance: variance, Center1: center}
}

func TestSweepGridShapeAndOrder(t *testing.T) {
	in := sweepInput(3, 32, 8)

	items, err := Sweep(in,
		WithSpecHalfWidths(4, 6),
		WithBgHalfWidths(8, 10, 12),
		WithExtractOptions(extract.WithSigmaThreshold(math.Inf(1))),
	)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(items) != 6 {
		t.Fatalf("sweep produced %d items, want 6", len(items))
	}

	wantKeys := []Key{
		{4, 8}, {4, 10}, {4, 12},
		{6, 8}, {6, 10}, {6, 12},
	}

	for i, item := range items {
		if item.Key != wantKeys[i] {
			t.Fatalf("item %d key = %+v, want %+v", i, item.Key, wantKeys[i])
		}

		if item.Err != nil {
			t.Fatalf("item %+v failed: %v", item.Key, item.Err)
		}

		if item.Box == nil || item.Result == nil {
			t.Fatalf("item %+v missing results", item.Key)
		}
	}
}

func TestSweepParallelMatchesSerial(t *testing.T) {
	in := sweepInput(4, 32, 8)

	opts := []Option{
		WithSpecHalfWidths(4, 6, 8),
		WithBgHalfWidths(8, 10),
		WithExtractOptions(extract.WithSigmaThreshold(10)),
	}

	serial, err := Sweep(in, opts...)
	if err != nil {
		t.Fatalf("serial Sweep: %v", err)
	}

	parallel, err := Sweep(in, append(opts, WithWorkers(4))...)
	if err != nil {
		t.Fatalf("parallel Sweep: %v", err)
	}

	for i := range serial {
		a, b := serial[i], parallel[i]
		if a.Key != b.Key {
			t.Fatalf("item %d keys differ: %+v vs %+v", i, a.Key, b.Key)
		}

		testutil.RequireSliceNearlyEqual(t, b.Result.Spectra.Data, a.Result.Spectra.Data, 0)
	}
}

func TestSweepWiderApertureCollectsMoreFlux(t *testing.T) {
	in := sweepInput(2, 32, 8)

	items, err := Sweep(in,
		WithSpecHalfWidths(2, 8),
		WithBgHalfWidths(8),
		WithExtractOptions(extract.WithSigmaThreshold(math.Inf(1))),
	)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	narrow, wide := items[0], items[1]
	if narrow.Box.Spec.At(0, 0) >= wide.Box.Spec.At(0, 0) {
		t.Fatalf("narrow box flux %v not below wide box flux %v",
			narrow.Box.Spec.At(0, 0), wide.Box.Spec.At(0, 0))
	}
}

func TestSweepConfigurationFailureIsLocal(t *testing.T) {
	in := sweepInput(2, 32, 8)
	in.Background = func(bgHW int) (*frame.Cube, error) {
		if bgHW == 10 {
			return nil, errors.New("estimator blew up")
		}

		return frame.NewCube(1, 32, 8)
	}

	items, err := Sweep(in,
		WithSpecHalfWidths(4),
		WithBgHalfWidths(8, 10),
		WithExtractOptions(extract.WithSigmaThreshold(10)),
	)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if items[0].Err != nil {
		t.Fatalf("healthy configuration failed: %v", items[0].Err)
	}

	if items[1].Err == nil {
		t.Fatal("failing configuration reported no error")
	}
}

func TestSweepValidation(t *testing.T) {
	in := sweepInput(2, 32, 8)

	if _, err := Sweep(Input{}); !errors.Is(err, ErrNilInput) {
		t.Fatalf("nil input: err = %v, want ErrNilInput", err)
	}

	if _, err := Sweep(in, WithSpecHalfWidths()); !errors.Is(err, ErrNoApertures) {
		t.Fatalf("empty grid: err = %v, want ErrNoApertures", err)
	}

	if _, err := Sweep(in, WithSpecHalfWidths(0)); !errors.Is(err, ErrBadHalfWidth) {
		t.Fatalf("zero half-width: err = %v, want ErrBadHalfWidth", err)
	}

	bad := in
	bad.Center1 = bad.Center1[:3]
	if _, err := Sweep(bad); !errors.Is(err, ErrNoTrace) {
		t.Fatalf("short trace: err = %v, want ErrNoTrace", err)
	}
}
