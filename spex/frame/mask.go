package frame

// Mask marks per-pixel state over a frame: 1 is good, 0 is bad. The values
// can be used directly as multiplicative weights.
type Mask struct {
	Data []float64
	Ny   int
	Nx   int
}

// NewGood returns a mask with every pixel marked good.
func NewGood(ny, nx int) *Mask {
	m := &Mask{Data: make([]float64, ny*nx), Ny: ny, Nx: nx}
	for i := range m.Data {
		m.Data[i] = 1
	}

	return m
}

// NewBad returns a mask with every pixel marked bad.
func NewBad(ny, nx int) *Mask {
	return &Mask{Data: make([]float64, ny*nx), Ny: ny, Nx: nx}
}

// Good reports whether the pixel at row y, column x is good.
func (m *Mask) Good(y, x int) bool {
	return m.Data[y*m.Nx+x] != 0
}

// Drop marks the pixel at row y, column x bad. Dropping never reverses.
func (m *Mask) Drop(y, x int) {
	m.Data[y*m.Nx+x] = 0
}

// Keep marks the pixel at row y, column x good.
func (m *Mask) Keep(y, x int) {
	m.Data[y*m.Nx+x] = 1
}

// GoodCount returns the number of good pixels.
func (m *Mask) GoodCount() int {
	n := 0

	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}

	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := &Mask{Data: make([]float64, len(m.Data)), Ny: m.Ny, Nx: m.Nx}
	copy(out.Data, m.Data)

	return out
}

// And drops every pixel of m that is bad in other. Shapes must match.
func (m *Mask) And(other *Mask) {
	if other == nil || other.Ny != m.Ny || other.Nx != m.Nx {
		return
	}

	for i, v := range other.Data {
		if v == 0 {
			m.Data[i] = 0
		}
	}
}
