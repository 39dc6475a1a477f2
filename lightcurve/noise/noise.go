package noise

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"
)

// Errors returned by the diagnostics.
var (
	ErrShortInput = errors.New("noise: input too short")
	ErrBadCadence = errors.New("noise: cadence must be positive")
	ErrBadMaxBin  = errors.New("noise: max bin size out of range")
)

// BinRMSResult holds the binned-RMS curve of a residual series.
type BinRMSResult struct {
	// BinSize lists the bin sizes in samples.
	BinSize []int
	// RMS is the root mean square of the bin-averaged residuals.
	RMS []float64
	// Expected is the white-noise expectation: the unbinned RMS scaled by
	// 1/sqrt(bin size).
	Expected []float64
}

// BinRMS computes the binned-RMS curve up to maxBin samples per bin. Bins
// that would leave fewer than two bins are not evaluated; the trailing
// remainder of each binning is dropped.
func BinRMS(resid []float64, maxBin int) (*BinRMSResult, error) {
	if len(resid) < 4 {
		return nil, ErrShortInput
	}

	if maxBin < 1 || maxBin > len(resid)/2 {
		return nil, fmt.Errorf("%w: %d for %d samples", ErrBadMaxBin, maxBin, len(resid))
	}

	base := rms(resid)

	res := &BinRMSResult{}
	binned := make([]float64, 0, len(resid))

	for n := 1; n <= maxBin; n++ {
		nbins := len(resid) / n
		if nbins < 2 {
			break
		}

		binned = binned[:0]
		for b := 0; b < nbins; b++ {
			var sum float64
			for i := b * n; i < (b+1)*n; i++ {
				sum += resid[i]
			}

			binned = append(binned, sum/float64(n))
		}

		res.BinSize = append(res.BinSize, n)
		res.RMS = append(res.RMS, rms(binned))
		res.Expected = append(res.Expected, base/math.Sqrt(float64(n)))
	}

	return res, nil
}

// ExcessRatio summarizes a binned-RMS curve as the mean ratio of measured to
// expected RMS; white noise sits near one, red noise above.
func (r *BinRMSResult) ExcessRatio() float64 {
	if len(r.RMS) == 0 {
		return math.NaN()
	}

	ratios := make([]float64, len(r.RMS))
	for i := range r.RMS {
		ratios[i] = r.RMS[i] / r.Expected[i]
	}

	return stat.Mean(ratios, nil)
}

// PeriodogramResult holds a one-sided power spectrum.
type PeriodogramResult struct {
	// Freq is the frequency axis in cycles per time unit of the cadence.
	Freq []float64
	// Power is the squared spectral magnitude per frequency bin.
	Power []float64
}

// Peak returns the frequency of the strongest non-DC bin.
func (r *PeriodogramResult) Peak() float64 {
	best, bestPow := 0.0, math.Inf(-1)

	for i := 1; i < len(r.Freq); i++ {
		if r.Power[i] > bestPow {
			best, bestPow = r.Freq[i], r.Power[i]
		}
	}

	return best
}

// Periodogram computes the one-sided power spectrum of a residual series
// sampled at a fixed cadence dt. The mean is removed and the series is
// zero-padded to the next power of two before the transform.
func Periodogram(resid []float64, dt float64) (*PeriodogramResult, error) {
	if len(resid) < 4 {
		return nil, ErrShortInput
	}

	if dt <= 0 {
		return nil, ErrBadCadence
	}

	fftSize := nextPow2(len(resid))

	mean := stat.Mean(resid, nil)

	in := make([]complex128, fftSize)
	for i, v := range resid {
		in[i] = complex(v-mean, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, err
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, err
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)

	for i := 0; i < bins; i++ {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}

	res := &PeriodogramResult{
		Freq:  make([]float64, bins),
		Power: make([]float64, bins),
	}

	vecmath.Power(res.Power, re, im)

	df := 1 / (float64(fftSize) * dt)
	for i := range res.Freq {
		res.Freq[i] = float64(i) * df
	}

	return res, nil
}

func rms(data []float64) float64 {
	var sum float64
	for _, v := range data {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(data)))
}

func nextPow2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}

	return size
}
