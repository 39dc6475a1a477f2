package extract

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-spex/spex/frame"
)

// Errors returned by the box-extraction helpers.
var (
	ErrNoTrace    = errors.New("extract: box mask requires trace center positions")
	ErrBadBoxSize = errors.New("extract: box size must be positive")
)

// OrderMasks builds one box mask per spectral order: a fixed spatial window
// of box1 (box2) rows centered on each order's trace. Rows falling outside
// the frame are clipped. center2 may be nil for single-order data, in which
// case m2 is nil.
func OrderMasks(ny, nx int, center1, center2 []float64, box1, box2 int) (m1, m2 *frame.Mask, err error) {
	if len(center1) != nx {
		return nil, nil, fmt.Errorf("%w: order 1 has %d centers for %d columns",
			ErrNoTrace, len(center1), nx)
	}

	if box1 <= 0 || (center2 != nil && box2 <= 0) {
		return nil, nil, ErrBadBoxSize
	}

	m1 = frame.NewBad(ny, nx)
	fillBox(m1, center1, box1)

	if center2 != nil {
		if len(center2) != nx {
			return nil, nil, fmt.Errorf("%w: order 2 has %d centers for %d columns",
				ErrNoTrace, len(center2), nx)
		}

		m2 = frame.NewBad(ny, nx)
		fillBox(m2, center2, box2)
	}

	return m1, m2, nil
}

// BackgroundMask marks every pixel outside both order boxes good (1), for
// use by background estimators.
func BackgroundMask(ny, nx int, center1, center2 []float64, box1, box2 int) (*frame.Mask, error) {
	m1, m2, err := OrderMasks(ny, nx, center1, center2, box1, box2)
	if err != nil {
		return nil, err
	}

	out := frame.NewGood(ny, nx)

	for i, v := range m1.Data {
		if v != 0 {
			out.Data[i] = 0
		}
	}

	if m2 != nil {
		for i, v := range m2.Data {
			if v != 0 {
				out.Data[i] = 0
			}
		}
	}

	return out, nil
}

// fillBox marks a band of box rows centered on the trace good per column.
func fillBox(m *frame.Mask, center []float64, box int) {
	for x := 0; x < m.Nx; x++ {
		lo := int(center[x]) - box/2
		hi := lo + box

		for y := clampInt(lo, 0, m.Ny); y < clampInt(hi, 0, m.Ny); y++ {
			m.Keep(y, x)
		}
	}
}

// BoxResult holds box-extracted spectra and variances, one row per
// integration.
type BoxResult struct {
	Spec *frame.Frame
	Var  *frame.Frame
}

// BoxExtract sums flux and variance inside the mask for each integration and
// dispersion column, skipping non-finite samples. The result feeds the
// optimal extraction engine as its reference spectrum.
func BoxExtract(data, variance *frame.Cube, m *frame.Mask) (*BoxResult, error) {
	if data == nil || variance == nil || m == nil {
		return nil, ErrNilInput
	}

	if variance.T != data.T || variance.Ny != data.Ny || variance.Nx != data.Nx {
		return nil, fmt.Errorf("%w: variance (%d, %d, %d) for data (%d, %d, %d)",
			ErrShapeMismatch, variance.T, variance.Ny, variance.Nx, data.T, data.Ny, data.Nx)
	}

	if m.Ny != data.Ny || m.Nx != data.Nx {
		return nil, fmt.Errorf("%w: mask (%d, %d) for data (%d, %d, %d)",
			ErrShapeMismatch, m.Ny, m.Nx, data.T, data.Ny, data.Nx)
	}

	spec := &frame.Frame{Data: make([]float64, data.T*data.Nx), Ny: data.T, Nx: data.Nx}
	vari := &frame.Frame{Data: make([]float64, data.T*data.Nx), Ny: data.T, Nx: data.Nx}

	for t := 0; t < data.T; t++ {
		d := data.Frame(t)
		v := variance.Frame(t)

		for x := 0; x < data.Nx; x++ {
			var fsum, vsum float64

			for y := 0; y < data.Ny; y++ {
				if !m.Good(y, x) {
					continue
				}

				if fv := d.At(y, x); !math.IsNaN(fv) && !math.IsInf(fv, 0) {
					fsum += fv
				}

				if vv := v.At(y, x); !math.IsNaN(vv) && !math.IsInf(vv, 0) {
					vsum += vv
				}
			}

			spec.Set(t, x, fsum)
			vari.Set(t, x, vsum)
		}
	}

	return &BoxResult{Spec: spec, Var: vari}, nil
}
