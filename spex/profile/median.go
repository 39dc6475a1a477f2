package profile

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-spex/internal/savgol"
	"github.com/cwbudde/algo-spex/spex/frame"
)

// MedianConfig configures the smoothed empirical profile strategy.
type MedianConfig struct {
	// OutlierSigma flags samples whose residual from the smoothed baseline
	// exceeds OutlierSigma times the residual standard deviation.
	OutlierSigma float64
	// SmoothWindow and SmoothDegree define the first, loose baseline fit.
	SmoothWindow int
	SmoothDegree int
	// RefitWindow and RefitDegree define the tighter fit over inliers only.
	RefitWindow int
	RefitDegree int
}

// DefaultMedianConfig returns the standard configuration: a window-15
// degree-5 baseline with 5-sigma outlier rejection and a window-3 degree-2
// inlier refit.
func DefaultMedianConfig() MedianConfig {
	return MedianConfig{
		OutlierSigma: 5,
		SmoothWindow: 15,
		SmoothDegree: 5,
		RefitWindow:  3,
		RefitDegree:  2,
	}
}

// Median builds a smoothed empirical profile from a representative (median)
// image, column by column. Outlier samples are replaced by interpolation over
// the inlier baseline; outliers outside the inlier index range are set to 0
// rather than extrapolated. The image is mutated in place and returned.
func Median(img *frame.Frame, cfg MedianConfig) (*frame.Frame, error) {
	if img == nil {
		return nil, ErrNilImage
	}

	col := make([]float64, 0, img.Ny)
	inlierIdx := make([]int, 0, img.Ny)
	outlierIdx := make([]int, 0, img.Ny)
	inlierVal := make([]float64, 0, img.Ny)

	for x := 0; x < img.Nx; x++ {
		col = img.Col(col, x)
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				col[i] = 0
				img.Set(i, x, 0)
			}
		}

		window := oddWindow(cfg.SmoothWindow, img.Ny)
		if window <= cfg.SmoothDegree {
			continue // column too short to smooth
		}

		filt, err := savgol.Filter(col, window, cfg.SmoothDegree)
		if err != nil {
			return nil, err
		}

		for i := range filt {
			filt[i] = math.Abs(col[i] - filt[i])
		}

		threshold := cfg.OutlierSigma * stat.StdDev(filt, nil)

		inlierIdx = inlierIdx[:0]
		outlierIdx = outlierIdx[:0]
		inlierVal = inlierVal[:0]

		for i, r := range filt {
			if r <= threshold {
				inlierIdx = append(inlierIdx, i)
				inlierVal = append(inlierVal, col[i])
			} else {
				outlierIdx = append(outlierIdx, i)
			}
		}

		if len(outlierIdx) == 0 {
			continue
		}

		refitWindow := oddWindow(cfg.RefitWindow, len(inlierVal))
		if refitWindow <= cfg.RefitDegree {
			// Too few inliers to refit; drop the outliers entirely.
			for _, o := range outlierIdx {
				img.Set(o, x, 0)
			}

			continue
		}

		smooth, err := savgol.Filter(inlierVal, refitWindow, cfg.RefitDegree)
		if err != nil {
			return nil, err
		}

		lo, hi := inlierIdx[0], inlierIdx[len(inlierIdx)-1]

		for _, o := range outlierIdx {
			if o < lo || o > hi {
				// Edge policy: no extrapolation beyond the inlier range.
				img.Set(o, x, 0)
				continue
			}

			img.Set(o, x, interpAt(inlierIdx, smooth, o))
		}
	}

	return img, nil
}

// oddWindow returns the largest odd window no greater than both want and n.
func oddWindow(want, n int) int {
	w := want
	if w > n {
		w = n
	}

	if w%2 == 0 {
		w--
	}

	return w
}

// interpAt linearly interpolates the (xs, ys) samples at position x.
// xs must be sorted ascending and bracket x.
func interpAt(xs []int, ys []float64, x int) float64 {
	// Binary search for the first xs >= x.
	lo, hi := 0, len(xs)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if xs[mid] < x {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if xs[lo] == x || lo == 0 {
		return ys[lo]
	}

	x0, x1 := xs[lo-1], xs[lo]
	t := float64(x-x0) / float64(x1-x0)

	return ys[lo-1] + t*(ys[lo]-ys[lo-1])
}
