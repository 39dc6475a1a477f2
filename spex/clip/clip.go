package clip

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-spex/spex/frame"
)

// Errors returned by the clipping routines.
var (
	ErrBadSigma   = errors.New("clip: sigma threshold must be positive")
	ErrBadWidth   = errors.New("clip: box width must be positive")
	ErrBadIters   = errors.New("clip: iteration count must be positive")
	ErrNilInput   = errors.New("clip: nil input")
	ErrShortInput = errors.New("clip: input too short")
)

// defaultJump is the absolute first-difference threshold above which two
// consecutive samples of a pixel time series are treated as a cosmic-ray
// jump.
const defaultJump = 5.0

// TimeClipConfig controls the time-axis cosmic-ray pass.
type TimeClipConfig struct {
	// Sigma is the clip threshold in units of the per-pixel spread.
	Sigma float64
	// Jump is the absolute first-difference threshold; the sample preceding
	// a larger step is flagged, so an isolated spike is caught on both its
	// rise and its fall. Zero disables jump detection.
	Jump float64
}

// DefaultTimeClipConfig returns the standard first-pass settings.
func DefaultTimeClipConfig() TimeClipConfig {
	return TimeClipConfig{Sigma: 5, Jump: defaultJump}
}

// TimeClip flags cosmic-ray hits along the time axis of a cube. For each
// pixel the time series is compared against its median plus/minus
// Sigma times its spread, and any sample followed by a first difference
// larger than Jump is flagged too. The returned cube holds 1 at flagged
// samples and 0 elsewhere, matching the static-mask convention of the
// extraction engine.
func TimeClip(data *frame.Cube, cfg TimeClipConfig) (*frame.Cube, int, error) {
	if data == nil {
		return nil, 0, ErrNilInput
	}

	if cfg.Sigma <= 0 {
		return nil, 0, ErrBadSigma
	}

	mask, err := frame.NewCube(data.T, data.Ny, data.Nx)
	if err != nil {
		return nil, 0, err
	}

	series := make([]float64, data.T)
	finite := make([]float64, 0, data.T)
	flagged := 0

	for y := 0; y < data.Ny; y++ {
		for x := 0; x < data.Nx; x++ {
			finite = finite[:0]

			for t := 0; t < data.T; t++ {
				v := data.Frame(t).At(y, x)
				series[t] = v

				if !math.IsNaN(v) && !math.IsInf(v, 0) {
					finite = append(finite, v)
				}
			}

			if len(finite) == 0 {
				continue
			}

			med := median(finite)
			std := stat.PopStdDev(finite, nil)
			lo, hi := med-cfg.Sigma*std, med+cfg.Sigma*std

			for t := 0; t < data.T; t++ {
				if v := series[t]; v < lo || v > hi {
					if mask.Frame(t).At(y, x) == 0 {
						mask.Frame(t).Set(y, x, 1)
						flagged++
					}
				}
			}

			if cfg.Jump <= 0 {
				continue
			}

			for t := 0; t < data.T-1; t++ {
				if math.Abs(series[t+1]-series[t]) > cfg.Jump {
					if mask.Frame(t).At(y, x) == 0 {
						mask.Frame(t).Set(y, x, 1)
						flagged++
					}
				}
			}
		}
	}

	return mask, flagged, nil
}

// Outliers1D finds outliers in a 1-D light curve. The series is first
// smoothed with a boxcar rolling mean of boxWidth samples so that slow
// astrophysical variation is removed; the residuals are then sigma clipped
// around their median for up to maxIters passes. It returns a flag per
// sample and the outlier count.
//
// boxWidth should be well below any real variation timescale in the series,
// otherwise the variation itself gets clipped.
func Outliers1D(series []float64, sigma float64, boxWidth, maxIters int) ([]bool, int, error) {
	switch {
	case sigma <= 0:
		return nil, 0, ErrBadSigma
	case boxWidth <= 0:
		return nil, 0, ErrBadWidth
	case maxIters <= 0:
		return nil, 0, ErrBadIters
	case len(series) < boxWidth:
		return nil, 0, ErrShortInput
	}

	smoothed := boxcar(series, boxWidth)

	resid := make([]float64, len(series))
	out := make([]bool, len(series))

	for i := range series {
		resid[i] = series[i] - smoothed[i]
		// Non-finite samples count as outliers from the start.
		out[i] = math.IsNaN(resid[i]) || math.IsInf(resid[i], 0)
	}

	kept := make([]float64, 0, len(resid))

	for iter := 0; iter < maxIters; iter++ {
		kept = kept[:0]

		for i, r := range resid {
			if !out[i] {
				kept = append(kept, r)
			}
		}

		if len(kept) == 0 {
			break
		}

		med := median(kept)
		std := stat.PopStdDev(kept, nil)

		newOut := 0

		for i, r := range resid {
			if out[i] {
				continue
			}

			if math.Abs(r-med) > sigma*std {
				out[i] = true
				newOut++
			}
		}

		if newOut == 0 {
			break
		}
	}

	n := 0
	for _, o := range out {
		if o {
			n++
		}
	}

	return out, n, nil
}

// Fill replaces flagged samples with the boxcar rolling mean of the
// unflagged neighbourhood, for callers that want a gap-free series instead
// of a mask.
func Fill(series []float64, outliers []bool, boxWidth int) ([]float64, error) {
	if boxWidth <= 0 {
		return nil, ErrBadWidth
	}

	if len(series) != len(outliers) {
		return nil, ErrShortInput
	}

	clean := make([]float64, len(series))
	for i, v := range series {
		if outliers[i] {
			clean[i] = math.NaN()
		} else {
			clean[i] = v
		}
	}

	smoothed := boxcar(clean, boxWidth)

	out := make([]float64, len(series))
	copy(out, series)

	for i := range out {
		if outliers[i] {
			out[i] = smoothed[i]
		}
	}

	return out, nil
}

// boxcar computes a rolling mean of width w with edge extension. Non-finite
// samples are excluded from each window's mean.
func boxcar(data []float64, w int) []float64 {
	n := len(data)
	out := make([]float64, n)
	half := w / 2

	for i := 0; i < n; i++ {
		var sum float64
		var cnt int

		for k := i - half; k < i-half+w; k++ {
			j := k
			if j < 0 {
				j = 0
			}
			if j >= n {
				j = n - 1
			}

			if v := data[j]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				sum += v
				cnt++
			}
		}

		if cnt == 0 {
			out[i] = math.NaN()
			continue
		}

		out[i] = sum / float64(cnt)
	}

	return out
}

// median returns the median of values, reordering the slice in place.
func median(values []float64) float64 {
	sort.Float64s(values)

	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}

	return 0.5 * (values[n/2-1] + values[n/2])
}
