package profile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/cwbudde/algo-spex/spex/frame"
)

// FitResult reports the outcome of a nonlinear profile fit.
type FitResult struct {
	// Params holds the fitted kernel parameters: (A, sigma) or (A, B, sigma)
	// for the Gaussian strategy, (A, alpha, gamma) for the Moffat strategy.
	Params []float64
	// Cost is the final sum of squared residuals.
	Cost float64
	// Evaluations is the number of objective evaluations used.
	Evaluations int
}

// maxFitEvaluations bounds the nonlinear fits.
const maxFitEvaluations = 1000

// Gaussian fits a per-order Gaussian profile along the trace centers:
//
//	model(y, x) = A*exp(-(y-c1[x])²/(2σ²)) + B*exp(-(y-c2[x])²/(2σ²))
//
// with the two order amplitudes free and sigma shared. If trace.Center2 is
// nil a single-order model (A, sigma) is fitted and order2 is nil. Amplitudes
// are bounded to (0.1, 100) and sigma to (0.1, 30). Non-finite image samples
// are ignored by the fit.
func Gaussian(img *frame.Frame, trace TraceConfig) (order1, order2 *frame.Frame, fit FitResult, err error) {
	if img == nil {
		return nil, nil, FitResult{}, ErrNilImage
	}

	if err := trace.Validate(img.Nx); err != nil {
		return nil, nil, FitResult{}, err
	}

	twoOrder := trace.Center2 != nil

	kernel := func(dy, sigma float64) float64 {
		return math.Exp(-dy * dy / (2 * sigma * sigma))
	}

	var x0, lower, upper []float64
	if twoOrder {
		x0 = []float64{2, 3, 30}
		lower = []float64{0.1, 0.1, 0.1}
		upper = []float64{100, 100, 30}
	} else {
		x0 = []float64{2, 3}
		lower = []float64{0.1, 0.1}
		upper = []float64{100, 30}
	}

	model := func(p []float64, y int, x int) float64 {
		fy := float64(y)
		if twoOrder {
			return p[0]*kernel(fy-trace.Center1[x], p[2]) +
				p[1]*kernel(fy-trace.Center2[x], p[2])
		}

		return p[0] * kernel(fy-trace.Center1[x], p[1])
	}

	fit, err = minimizeSSR(img, model, x0, lower, upper)
	if err != nil {
		return nil, nil, fit, err
	}

	p := fit.Params
	sigma := p[len(p)-1]

	order1 = renderOrder(img.Ny, img.Nx, trace.Center1, func(dy float64) float64 {
		return p[0] * kernel(dy, sigma)
	})

	if twoOrder {
		order2 = renderOrder(img.Ny, img.Nx, trace.Center2, func(dy float64) float64 {
			return p[1] * kernel(dy, sigma)
		})
	}

	return order1, order2, fit, nil
}

// Moffat fits a per-order Moffat profile along the trace centers:
//
//	model(y, x) = A*(1 + ((y-c[x])/γ)²)^(-α)
//
// with a single amplitude shared by both orders. The parameters are
// unbounded apart from γ > 0.
func Moffat(img *frame.Frame, trace TraceConfig) (order1, order2 *frame.Frame, fit FitResult, err error) {
	if img == nil {
		return nil, nil, FitResult{}, ErrNilImage
	}

	if err := trace.Validate(img.Nx); err != nil {
		return nil, nil, FitResult{}, err
	}

	kernel := func(dy, alpha, gamma float64) float64 {
		if gamma == 0 {
			return math.Inf(1)
		}

		r := dy / gamma

		return math.Pow(1+r*r, -alpha)
	}

	model := func(p []float64, y int, x int) float64 {
		fy := float64(y)
		v := p[0] * kernel(fy-trace.Center1[x], p[1], p[2])

		if trace.Center2 != nil {
			v += p[0] * kernel(fy-trace.Center2[x], p[1], p[2])
		}

		return v
	}

	fit, err = minimizeSSR(img, model, []float64{2, 3, 3}, nil, nil)
	if err != nil {
		return nil, nil, fit, err
	}

	p := fit.Params

	order1 = renderOrder(img.Ny, img.Nx, trace.Center1, func(dy float64) float64 {
		return p[0] * kernel(dy, p[1], p[2])
	})

	if trace.Center2 != nil {
		order2 = renderOrder(img.Ny, img.Nx, trace.Center2, func(dy float64) float64 {
			return p[0] * kernel(dy, p[1], p[2])
		})
	}

	return order1, order2, fit, nil
}

// minimizeSSR runs a Nelder-Mead minimization of the summed squared
// residuals between model and image. Bounds, when given, are enforced by
// penalizing the objective outside them.
func minimizeSSR(img *frame.Frame,
	model func(p []float64, y, x int) float64,
	x0, lower, upper []float64,
) (FitResult, error) {
	objective := func(p []float64) float64 {
		// Penalize out-of-bounds vertices with a slope back into the box so
		// the simplex recovers instead of stalling on a flat plateau.
		penalty := 0.0

		for i := range p {
			if lower != nil && p[i] < lower[i] {
				d := lower[i] - p[i]
				penalty += 1e12 * (1 + d*d)
			}

			if upper != nil && p[i] > upper[i] {
				d := p[i] - upper[i]
				penalty += 1e12 * (1 + d*d)
			}
		}

		if penalty > 0 {
			return penalty
		}

		ssr := 0.0

		for y := 0; y < img.Ny; y++ {
			for x := 0; x < img.Nx; x++ {
				v := img.At(y, x)
				if math.IsNaN(v) || math.IsInf(v, 0) {
					continue
				}

				r := model(p, y, x) - v
				ssr += r * r
			}
		}

		return ssr
	}

	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{FuncEvaluations: maxFitEvaluations}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil && result == nil {
		return FitResult{}, fmt.Errorf("profile: fit failed: %w", err)
	}

	return FitResult{
		Params:      result.X,
		Cost:        result.F,
		Evaluations: result.FuncEvaluations,
	}, nil
}

// renderOrder evaluates a 1-D kernel around a trace center for every column.
func renderOrder(ny, nx int, center []float64, kernel func(dy float64) float64) *frame.Frame {
	out := &frame.Frame{Data: make([]float64, ny*nx), Ny: ny, Nx: nx}

	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			out.Set(y, x, kernel(float64(y)-center[x]))
		}
	}

	return out
}
