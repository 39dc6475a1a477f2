package extract

import "fmt"

// Region selects the sub-frame an extraction operates on. The default
// geometries follow the detector layout of wide-field slitless spectroscopy
// frames where the second order overlaps the first on the left-hand side.
type Region int

const (
	// RegionFull extracts from the entire frame.
	RegionFull Region = iota
	// RegionOrder1 is the isolated first order (top right quadrant).
	RegionOrder1
	// RegionOrder2 is the isolated second order (bottom right quadrant).
	RegionOrder2
	// RegionOverlap is the order overlap region (left-hand side).
	RegionOverlap
)

// String returns the canonical name of the region.
func (r Region) String() string {
	switch r {
	case RegionFull:
		return "full"
	case RegionOrder1:
		return "order1"
	case RegionOrder2:
		return "order2"
	case RegionOverlap:
		return "overlap"
	default:
		return fmt.Sprintf("Region(%d)", int(r))
	}
}

// valid reports whether r is a known region.
func (r Region) valid() bool {
	return r >= RegionFull && r <= RegionOverlap
}

// Bounds returns the row range [y0,y1) and column range [x0,x1) of the
// region for a frame of shape (ny, nx), clamped to the frame.
func (r Region) Bounds(ny, nx int) (y0, y1, x0, x1 int) {
	switch r {
	case RegionOrder1:
		y0, y1, x0, x1 = 0, 100, 1000, nx
	case RegionOrder2:
		y0, y1, x0, x1 = 70, ny, 1000, 1900
	case RegionOverlap:
		y0, y1, x0, x1 = 0, ny, 0, 1000
	default:
		y0, y1, x0, x1 = 0, ny, 0, nx
	}

	y0, y1 = clampInt(y0, 0, ny), clampInt(y1, 0, ny)
	x0, x1 = clampInt(x0, 0, nx), clampInt(x1, 0, nx)

	return y0, y1, x0, x1
}

// Patch is a rectangle of pixels zeroed before extraction, in region-local
// coordinates: rows [Y0,Y1) and columns [X0,X1).
type Patch struct {
	Y0, Y1 int
	X0, X1 int
}

// DefaultOrder1Patch masks the second-order contamination that leaks into
// the isolated-first-order region: the bottom rows of its leading columns.
func DefaultOrder1Patch() Patch {
	return Patch{Y0: 80, Y1: 100, X0: 0, X1: 250}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
