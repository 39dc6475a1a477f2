package frame

import (
	"errors"
	"math"
	"sort"
)

// Errors returned by frame constructors and accessors.
var (
	ErrInvalidShape = errors.New("frame: dimensions must be positive")
	ErrDataLength   = errors.New("frame: data length does not match shape")
)

// Frame is a single 2-D detector image stored row-major: Data[y*Nx+x].
type Frame struct {
	Data []float64
	Ny   int
	Nx   int
}

// New allocates a zeroed Frame with the given shape.
func New(ny, nx int) (*Frame, error) {
	if ny <= 0 || nx <= 0 {
		return nil, ErrInvalidShape
	}

	return &Frame{Data: make([]float64, ny*nx), Ny: ny, Nx: nx}, nil
}

// FromSlice wraps an existing row-major slice as a Frame without copying.
func FromSlice(data []float64, ny, nx int) (*Frame, error) {
	if ny <= 0 || nx <= 0 {
		return nil, ErrInvalidShape
	}

	if len(data) != ny*nx {
		return nil, ErrDataLength
	}

	return &Frame{Data: data, Ny: ny, Nx: nx}, nil
}

// At returns the pixel value at row y, column x.
func (f *Frame) At(y, x int) float64 {
	return f.Data[y*f.Nx+x]
}

// Set stores v at row y, column x.
func (f *Frame) Set(y, x int, v float64) {
	f.Data[y*f.Nx+x] = v
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{Data: make([]float64, len(f.Data)), Ny: f.Ny, Nx: f.Nx}
	copy(out.Data, f.Data)

	return out
}

// Fill sets every pixel to v.
func (f *Frame) Fill(v float64) {
	for i := range f.Data {
		f.Data[i] = v
	}
}

// SameShape reports whether g has the same dimensions as f.
func (f *Frame) SameShape(g *Frame) bool {
	return g != nil && f.Ny == g.Ny && f.Nx == g.Nx
}

// Sub returns a copy of the region rows [y0,y1) and columns [x0,x1).
// Bounds are clamped to the frame.
func (f *Frame) Sub(y0, y1, x0, x1 int) *Frame {
	y0, y1 = clamp(y0, 0, f.Ny), clamp(y1, 0, f.Ny)
	x0, x1 = clamp(x0, 0, f.Nx), clamp(x1, 0, f.Nx)

	if y1 <= y0 || x1 <= x0 {
		return &Frame{Data: nil, Ny: 0, Nx: 0}
	}

	out := &Frame{Data: make([]float64, (y1-y0)*(x1-x0)), Ny: y1 - y0, Nx: x1 - x0}
	for y := y0; y < y1; y++ {
		copy(out.Data[(y-y0)*out.Nx:(y-y0+1)*out.Nx], f.Data[y*f.Nx+x0:y*f.Nx+x1])
	}

	return out
}

// Col copies column x into dst, growing dst if needed, and returns it.
func (f *Frame) Col(dst []float64, x int) []float64 {
	dst = EnsureLen(dst, f.Ny)
	for y := 0; y < f.Ny; y++ {
		dst[y] = f.Data[y*f.Nx+x]
	}

	return dst
}

// SetCol writes src into column x.
func (f *Frame) SetCol(x int, src []float64) {
	for y := 0; y < f.Ny && y < len(src); y++ {
		f.Data[y*f.Nx+x] = src[y]
	}
}

// ColSum returns the sum of finite values in column x and the number of
// finite samples contributing to it.
func (f *Frame) ColSum(x int) (sum float64, n int) {
	for y := 0; y < f.Ny; y++ {
		v := f.Data[y*f.Nx+x]
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			sum += v
			n++
		}
	}

	return sum, n
}

// ClampNegative sets all negative pixels to 0.
func (f *Frame) ClampNegative() {
	for i, v := range f.Data {
		if v < 0 {
			f.Data[i] = 0
		}
	}
}

// Cube is a stack of T frames ordered by acquisition time, stored as
// Data[(t*Ny+y)*Nx+x].
type Cube struct {
	Data []float64
	T    int
	Ny   int
	Nx   int
}

// NewCube allocates a zeroed Cube with the given shape.
func NewCube(t, ny, nx int) (*Cube, error) {
	if t <= 0 || ny <= 0 || nx <= 0 {
		return nil, ErrInvalidShape
	}

	return &Cube{Data: make([]float64, t*ny*nx), T: t, Ny: ny, Nx: nx}, nil
}

// Frame returns a zero-copy view of integration t. Mutating the returned
// frame mutates the cube.
func (c *Cube) Frame(t int) *Frame {
	n := c.Ny * c.Nx

	return &Frame{Data: c.Data[t*n : (t+1)*n], Ny: c.Ny, Nx: c.Nx}
}

// MedianImage returns the per-pixel median over the time axis, skipping
// non-finite samples. Pixels with no finite sample are set to NaN.
func (c *Cube) MedianImage() *Frame {
	out := &Frame{Data: make([]float64, c.Ny*c.Nx), Ny: c.Ny, Nx: c.Nx}
	buf := make([]float64, 0, c.T)
	n := c.Ny * c.Nx

	for i := 0; i < n; i++ {
		buf = buf[:0]

		for t := 0; t < c.T; t++ {
			v := c.Data[t*n+i]
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				buf = append(buf, v)
			}
		}

		out.Data[i] = medianOf(buf)
	}

	return out
}

// medianOf returns the median of vals, sorting in place. NaN for empty input.
func medianOf(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}

	sort.Float64s(vals)
	m := len(vals) / 2

	if len(vals)%2 == 1 {
		return vals[m]
	}

	return 0.5 * (vals[m-1] + vals[m])
}

// EnsureLen returns a slice with the requested length, reusing buf capacity
// if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}

	if cap(buf) >= n {
		return buf[:n]
	}

	return make([]float64, n)
}

// Ones returns a slice of length n filled with 1.
func Ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}

	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
