package extract

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-spex/spex/frame"
	"github.com/cwbudde/algo-spex/spex/profile"
)

// Engine performs optimal extraction over a cube of integrations.
type Engine struct {
	cfg Config
}

// New builds an extraction engine, validating the configuration up front.
func New(opts ...Option) (*Engine, error) {
	cfg := ApplyOptions(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Warnings collects the non-fatal conditions met during an extraction.
type Warnings struct {
	// NonConverged lists integration indices whose cosmic-ray loop hit the
	// iteration cap; their spectra are best-effort.
	NonConverged []int
	// BadSamples counts non-finite input samples that were masked.
	BadSamples int
}

// Any reports whether any warning was recorded.
func (w Warnings) Any() bool {
	return len(w.NonConverged) > 0 || w.BadSamples > 0
}

// Result holds the extracted time-series spectra for one region.
type Result struct {
	// Spectra and Variance have one row per integration and one column per
	// dispersion column of the region.
	Spectra  *frame.Frame
	Variance *frame.Frame
	// Iterations records the number of profile passes per integration.
	Iterations []int
	// Y0, Y1, X0, X1 are the region bounds in full-frame coordinates.
	Y0, Y1, X0, X1 int
	Warnings       Warnings
}

// Extract runs the optimal extraction over every integration of data.
//
// boxSpec and boxVar hold the box-extracted spectrum and its variance, one
// row per integration over the full frame width. bkg is the background cube;
// a single-frame cube (T == 1) broadcasts over time. bkgVar is accepted for
// completeness and may be nil: the background uncertainty is assumed to be
// folded into boxVar by the background stage.
//
// Each integration is processed independently; with Workers > 1 they run
// concurrently. Configuration problems abort immediately; non-convergence
// and non-finite samples are reported through Result.Warnings.
func (e *Engine) Extract(data *frame.Cube, boxSpec, boxVar *frame.Frame, bkg, bkgVar *frame.Cube) (*Result, error) {
	if data == nil || boxSpec == nil || boxVar == nil || bkg == nil {
		return nil, ErrNilInput
	}

	if err := e.checkShapes(data, boxSpec, boxVar, bkg, bkgVar); err != nil {
		return nil, err
	}

	y0, y1, x0, x1 := e.cfg.Region.Bounds(data.Ny, data.Nx)
	if y1 <= y0 || x1 <= x0 {
		return nil, fmt.Errorf("%w: %s on (%d, %d)", ErrEmptyRegion, e.cfg.Region, data.Ny, data.Nx)
	}

	// Representative image: computed once per call, sliced to the region,
	// clamped to non-negative. Read-only from here on.
	med := e.cfg.MedianImage
	if med == nil {
		med = data.MedianImage()
	} else if med.Ny != data.Ny || med.Nx != data.Nx {
		return nil, fmt.Errorf("%w: median image (%d, %d) for data (%d, %d)",
			ErrShapeMismatch, med.Ny, med.Nx, data.Ny, data.Nx)
	}

	med = med.Sub(y0, y1, x0, x1)
	applyPatch(med, e.cfg.Region, e.cfg.Patch)
	med.ClampNegative()

	builder, err := e.newBuilder(y0, x0, x1)
	if err != nil {
		return nil, err
	}

	nx := x1 - x0
	spectra := &frame.Frame{Data: make([]float64, data.T*nx), Ny: data.T, Nx: nx}
	variance := &frame.Frame{Data: make([]float64, data.T*nx), Ny: data.T, Nx: nx}
	iterations := make([]int, data.T)
	converged := make([]bool, data.T)
	badSamples := make([]int, data.T)

	g := new(errgroup.Group)
	limit := e.cfg.Workers
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for t := 0; t < data.T; t++ {
		g.Go(func() error {
			D := data.Frame(t).Sub(y0, y1, x0, x1)
			applyPatch(D, e.cfg.Region, e.cfg.Patch)

			b := bkg.Frame(bkgIndex(bkg, t)).Sub(y0, y1, x0, x1)

			boxRow := boxSpec.Data[t*boxSpec.Nx+x0 : t*boxSpec.Nx+x1]
			varRow := boxVar.Data[t*boxVar.Nx+x0 : t*boxVar.Nx+x1]

			var static *frame.Mask
			if e.cfg.StaticMask != nil {
				static = staticRegionMask(e.cfg.StaticMask, t, y0, y1, x0, x1)
			}

			spec, specVar, iters, ok, bad, err := e.extractOne(D, med, b, boxRow, varRow, builder, static)
			if err != nil {
				return fmt.Errorf("integration %d: %w", t, err)
			}

			copy(spectra.Data[t*nx:(t+1)*nx], spec)
			copy(variance.Data[t*nx:(t+1)*nx], specVar)
			iterations[t] = iters
			converged[t] = ok
			badSamples[t] = bad

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Spectra:    spectra,
		Variance:   variance,
		Iterations: iterations,
		Y0:         y0, Y1: y1, X0: x0, X1: x1,
	}

	for t := 0; t < data.T; t++ {
		if !converged[t] {
			res.Warnings.NonConverged = append(res.Warnings.NonConverged, t)
		}

		res.Warnings.BadSamples += badSamples[t]
	}

	return res, nil
}

// extractOne runs the convergence loop for a single integration. All frames
// are region-local; med is read-only and shared across integrations.
func (e *Engine) extractOne(D, med, bkg *frame.Frame,
	boxSpec, boxVar []float64,
	builder profile.Builder, static *frame.Mask,
) (spec, specVar []float64, iters int, converged bool, bad int, err error) {
	ny, nx := D.Ny, D.Nx
	sigma2 := e.cfg.SigmaThreshold * e.cfg.SigmaThreshold

	M := frame.NewGood(ny, nx)
	work, _ := frame.New(ny, nx)
	V := make([]float64, ny*nx)

	var P *frame.Frame

	for iters = 1; iters <= e.cfg.MaxIterations; iters++ {
		// Masked, background-subtracted representative image. Rebuilt every
		// pass so the profile reflects the current cosmic-ray mask; the
		// builder may mutate it freely.
		for i := range work.Data {
			work.Data[i] = med.Data[i] - bkg.Data[i]
		}

		vecmath.MulBlockInPlace(work.Data, M.Data)

		P, err = builder.Build(work)
		if err != nil {
			return nil, nil, iters, false, bad, err
		}

		profile.Normalize(P)

		newBad := 0

		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				i := y*nx + x
				p := P.Data[i]
				v := boxVar[x] + math.Abs(bkg.Data[i]+p*boxSpec[x])/e.cfg.Gain
				V[i] = v

				if M.Data[i] == 0 {
					continue
				}

				d := D.Data[i]
				if !isFinite(d) || !isFinite(v) || v <= 0 {
					M.Data[i] = 0
					bad++

					continue
				}

				r := math.Abs(d-bkg.Data[i]-boxSpec[x]) * p
				if r*r/v > sigma2 {
					M.Data[i] = 0
					newBad++
				}
			}
		}

		if newBad == 0 {
			converged = true
			break
		}
	}

	if iters > e.cfg.MaxIterations {
		iters = e.cfg.MaxIterations
	}

	if static != nil {
		M.And(static)
	}

	spec = make([]float64, nx)
	specVar = make([]float64, nx)

	for x := 0; x < nx; x++ {
		var num, denom, wsum float64

		for y := 0; y < ny; y++ {
			i := y*nx + x
			if M.Data[i] == 0 || V[i] == 0 {
				continue
			}

			p := P.Data[i]
			num += p * (D.Data[i] - bkg.Data[i]) / V[i]
			denom += p * p / V[i]
			wsum += p
		}

		if denom == 0 {
			spec[x] = math.NaN()
			specVar[x] = math.NaN()

			continue
		}

		spec[x] = num / denom
		specVar[x] = wsum / denom
	}

	return spec, specVar, iters, converged, bad, nil
}

// newBuilder constructs the profile builder with the trace re-expressed in
// region-local coordinates.
func (e *Engine) newBuilder(y0, x0, x1 int) (profile.Builder, error) {
	opts := []profile.BuilderOption{
		profile.WithMedianConfig(e.cfg.Median),
		profile.WithOrder(e.cfg.Order),
	}

	if e.cfg.Strategy != profile.StrategyMedian {
		tc := e.cfg.Trace
		if len(tc.Center1) < x1 {
			return nil, fmt.Errorf("%w: trace covers %d of %d columns",
				profile.ErrTraceLength, len(tc.Center1), x1)
		}

		local := profile.TraceConfig{Center1: offsetTrace(tc.Center1[x0:x1], y0)}
		if tc.Center2 != nil {
			if len(tc.Center2) < x1 {
				return nil, fmt.Errorf("%w: trace covers %d of %d columns",
					profile.ErrTraceLength, len(tc.Center2), x1)
			}

			local.Center2 = offsetTrace(tc.Center2[x0:x1], y0)
		}

		opts = append(opts, profile.WithTrace(local))
	}

	return profile.NewBuilder(e.cfg.Strategy, opts...)
}

// applyPatch zeroes the contamination patch inside a region-local frame.
// Only the isolated first order carries a default patch.
func applyPatch(f *frame.Frame, region Region, override *Patch) {
	var p Patch

	switch {
	case override != nil:
		p = *override
	case region == RegionOrder1:
		p = DefaultOrder1Patch()
	default:
		return
	}

	y1 := clampInt(p.Y1, 0, f.Ny)
	x1 := clampInt(p.X1, 0, f.Nx)

	for y := clampInt(p.Y0, 0, f.Ny); y < y1; y++ {
		for x := clampInt(p.X0, 0, f.Nx); x < x1; x++ {
			f.Set(y, x, 0)
		}
	}
}

// staticRegionMask converts a slice of the static bad-pixel cube (nonzero =
// bad) into a region-local good mask.
func staticRegionMask(cube *frame.Cube, t, y0, y1, x0, x1 int) *frame.Mask {
	if cube.T == 1 {
		t = 0
	}

	sub := cube.Frame(t).Sub(y0, y1, x0, x1)
	m := frame.NewGood(sub.Ny, sub.Nx)

	for i, v := range sub.Data {
		if v != 0 {
			m.Data[i] = 0
		}
	}

	return m
}

// offsetTrace shifts trace centers into region-local row coordinates.
func offsetTrace(center []float64, y0 int) []float64 {
	out := make([]float64, len(center))
	for i, c := range center {
		out[i] = c - float64(y0)
	}

	return out
}

// bkgIndex maps an integration index into the background cube, broadcasting
// a static background.
func bkgIndex(bkg *frame.Cube, t int) int {
	if bkg.T == 1 {
		return 0
	}

	return t
}

// checkShapes validates that every input matches the data cube.
func (e *Engine) checkShapes(data *frame.Cube, boxSpec, boxVar *frame.Frame, bkg, bkgVar *frame.Cube) error {
	if boxSpec.Ny != data.T || boxSpec.Nx != data.Nx {
		return fmt.Errorf("%w: box spectrum (%d, %d) for data (%d, %d, %d)",
			ErrShapeMismatch, boxSpec.Ny, boxSpec.Nx, data.T, data.Ny, data.Nx)
	}

	if boxVar.Ny != data.T || boxVar.Nx != data.Nx {
		return fmt.Errorf("%w: box variance (%d, %d) for data (%d, %d, %d)",
			ErrShapeMismatch, boxVar.Ny, boxVar.Nx, data.T, data.Ny, data.Nx)
	}

	if bkg.Ny != data.Ny || bkg.Nx != data.Nx || (bkg.T != data.T && bkg.T != 1) {
		return fmt.Errorf("%w: background (%d, %d, %d) for data (%d, %d, %d)",
			ErrShapeMismatch, bkg.T, bkg.Ny, bkg.Nx, data.T, data.Ny, data.Nx)
	}

	if bkgVar != nil && (bkgVar.Ny != data.Ny || bkgVar.Nx != data.Nx) {
		return fmt.Errorf("%w: background variance (%d, %d, %d) for data (%d, %d, %d)",
			ErrShapeMismatch, bkgVar.T, bkgVar.Ny, bkgVar.Nx, data.T, data.Ny, data.Nx)
	}

	if e.cfg.StaticMask != nil {
		m := e.cfg.StaticMask
		if m.Ny != data.Ny || m.Nx != data.Nx || (m.T != data.T && m.T != 1) {
			return fmt.Errorf("%w: static mask (%d, %d, %d) for data (%d, %d, %d)",
				ErrShapeMismatch, m.T, m.Ny, m.Nx, data.T, data.Ny, data.Nx)
		}
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
