package frame

import (
	"math"
	"testing"
)

func TestNewRejectsBadShape(t *testing.T) {
	for _, tc := range []struct{ ny, nx int }{
		{0, 4}, {4, 0}, {-1, 4},
	} {
		if _, err := New(tc.ny, tc.nx); err == nil {
			t.Fatalf("New(%d, %d): expected error", tc.ny, tc.nx)
		}
	}
}

func TestFromSliceLengthCheck(t *testing.T) {
	if _, err := FromSlice(make([]float64, 5), 2, 3); err == nil {
		t.Fatal("expected length mismatch error")
	}

	f, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	if got := f.At(1, 2); got != 6 {
		t.Fatalf("At(1,2) = %v, want 6", got)
	}
}

func TestSubClampsBounds(t *testing.T) {
	f, _ := New(4, 6)
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			f.Set(y, x, float64(y*10+x))
		}
	}

	s := f.Sub(1, 10, 2, 4)
	if s.Ny != 3 || s.Nx != 2 {
		t.Fatalf("shape = (%d, %d), want (3, 2)", s.Ny, s.Nx)
	}

	if s.At(0, 0) != 12 || s.At(2, 1) != 33 {
		t.Fatalf("unexpected region contents: %v", s.Data)
	}
}

func TestColSumSkipsNonFinite(t *testing.T) {
	f, _ := New(4, 2)
	f.Set(0, 0, 1)
	f.Set(1, 0, math.NaN())
	f.Set(2, 0, 2)
	f.Set(3, 0, math.Inf(1))

	sum, n := f.ColSum(0)
	if sum != 3 || n != 2 {
		t.Fatalf("ColSum = (%v, %d), want (3, 2)", sum, n)
	}
}

func TestCubeFrameIsView(t *testing.T) {
	c, _ := NewCube(2, 3, 3)
	c.Frame(1).Set(2, 2, 7)

	if got := c.Data[(1*3+2)*3+2]; got != 7 {
		t.Fatalf("cube backing = %v, want 7", got)
	}
}

func TestMedianImage(t *testing.T) {
	c, _ := NewCube(3, 1, 2)
	// Pixel (0,0): 1, 5, 3 -> median 3. Pixel (0,1): 2, NaN, 4 -> median 3.
	vals := []float64{1, 2, 5, math.NaN(), 3, 4}
	copy(c.Data, vals)

	med := c.MedianImage()
	if med.At(0, 0) != 3 {
		t.Fatalf("median(0,0) = %v, want 3", med.At(0, 0))
	}

	if med.At(0, 1) != 3 {
		t.Fatalf("median(0,1) = %v, want 3", med.At(0, 1))
	}
}

func TestMaskMonotoneDrop(t *testing.T) {
	m := NewGood(3, 3)
	if m.GoodCount() != 9 {
		t.Fatalf("GoodCount = %d, want 9", m.GoodCount())
	}

	m.Drop(1, 1)
	m.Drop(1, 1)

	if m.GoodCount() != 8 {
		t.Fatalf("GoodCount = %d, want 8", m.GoodCount())
	}

	if m.Good(1, 1) {
		t.Fatal("pixel (1,1) should be bad")
	}
}

func TestMaskAnd(t *testing.T) {
	a := NewGood(2, 2)
	b := NewGood(2, 2)
	b.Drop(0, 1)

	a.And(b)
	if a.Good(0, 1) || a.GoodCount() != 3 {
		t.Fatalf("And: GoodCount = %d, want 3", a.GoodCount())
	}
}

func TestEnsureLenReuse(t *testing.T) {
	buf := make([]float64, 4, 8)

	out := EnsureLen(buf, 6)
	if len(out) != 6 {
		t.Fatalf("len = %d, want 6", len(out))
	}

	if cap(out) != cap(buf) {
		t.Fatalf("cap = %d, want %d", cap(out), cap(buf))
	}
}
