// Command spexdemo runs the extraction and modeling pipeline on synthetic
// data.
//
// It synthesizes a time series of detector frames carrying a Gaussian
// spectral trace, injects cosmic-ray hits, recovers the spectra with box and
// optimal extraction, and evaluates a transit-plus-systematics light-curve
// model over the recovered white-light curve.
//
// Usage:
//
//	spexdemo [flags]
//
// Examples:
//
//	spexdemo
//	spexdemo -integrations 64 -rays 20
//	spexdemo -strategy gaussian -sigma 5
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-spex/lightcurve/model"
	"github.com/cwbudde/algo-spex/lightcurve/noise"
	"github.com/cwbudde/algo-spex/lightcurve/params"
	"github.com/cwbudde/algo-spex/spex/clip"
	"github.com/cwbudde/algo-spex/spex/extract"
	"github.com/cwbudde/algo-spex/spex/frame"
	"github.com/cwbudde/algo-spex/spex/profile"
)

func main() {
	integrations := flag.Int("integrations", 32, "number of integrations to synthesize")
	ny := flag.Int("ny", 64, "spatial rows per frame")
	nx := flag.Int("nx", 48, "dispersion columns per frame")
	sigma := flag.Float64("sigma", 10, "cosmic-ray rejection threshold in sigmas")
	strategyName := flag.String("strategy", "median", "profile strategy: median, gaussian or moffat")
	rays := flag.Int("rays", 12, "number of cosmic-ray hits to inject")
	workers := flag.Int("workers", 4, "concurrent integrations")
	seed := flag.Int64("seed", 7, "random seed for the synthetic scene")
	flag.Parse()

	if err := run(*integrations, *ny, *nx, *sigma, *strategyName, *rays, *workers, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(nt, ny, nx int, sigma float64, strategyName string, rays, workers int, seed int64) error {
	strategy, err := profile.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed))

	data, variance, hits := synthesize(rng, nt, ny, nx, rays)

	crMask, flagged, err := clip.TimeClip(data, clip.DefaultTimeClipConfig())
	if err != nil {
		return err
	}

	center := make([]float64, nx)
	for i := range center {
		center[i] = float64(ny) / 2
	}

	orderMask, _, err := extract.OrderMasks(ny, nx, center, nil, 16, 0)
	if err != nil {
		return err
	}

	box, err := extract.BoxExtract(data, variance, orderMask)
	if err != nil {
		return err
	}

	opts := []extract.Option{
		extract.WithStrategy(strategy),
		extract.WithSigmaThreshold(sigma),
		extract.WithWorkers(workers),
		extract.WithStaticMask(crMask),
	}
	if strategy != profile.StrategyMedian {
		opts = append(opts, extract.WithTrace(profile.TraceConfig{Center1: center}))
	}

	eng, err := extract.New(opts...)
	if err != nil {
		return err
	}

	bkg, err := frame.NewCube(1, ny, nx)
	if err != nil {
		return err
	}

	res, err := eng.Extract(data, box.Spec, box.Var, bkg, nil)
	if err != nil {
		return err
	}

	white := whiteLight(res.Spectra)

	fit, resid, err := modelCurve(white)
	if err != nil {
		return err
	}

	diag, err := noise.BinRMS(resid, len(resid)/4)
	if err != nil {
		return err
	}

	return report(os.Stdout, reportData{
		integrations: nt,
		hits:         hits,
		flagged:      flagged,
		iterations:   res.Iterations,
		warnings:     res.Warnings,
		white:        white,
		fit:          fit,
		excess:       diag.ExcessRatio(),
	})
}

// synthesize builds a noisy Gaussian-trace cube with cosmic-ray hits and a
// matching variance cube. It returns the number of injected hits.
func synthesize(rng *rand.Rand, nt, ny, nx, rays int) (data, variance *frame.Cube, hits int) {
	data, _ = frame.NewCube(nt, ny, nx)
	variance, _ = frame.NewCube(nt, ny, nx)

	center := float64(ny) / 2

	for t := 0; t < nt; t++ {
		f := data.Frame(t)
		for x := 0; x < nx; x++ {
			for y := 0; y < ny; y++ {
				dy := float64(y) - center
				v := 50 * math.Exp(-dy*dy/(2*9))
				f.Set(y, x, v+rng.NormFloat64()*0.5)
			}
		}
	}

	for i := range variance.Data {
		variance.Data[i] = 0.25
	}

	for i := 0; i < rays; i++ {
		t := rng.Intn(nt)
		y := rng.Intn(ny)
		x := rng.Intn(nx)
		data.Frame(t).Set(y, x, 5000)
		hits++
	}

	return data, variance, hits
}

// whiteLight sums every spectral channel into one normalized light curve.
func whiteLight(spectra *frame.Frame) []float64 {
	out := make([]float64, spectra.Ny)

	for t := 0; t < spectra.Ny; t++ {
		var sum float64
		for x := 0; x < spectra.Nx; x++ {
			sum += spectra.At(t, x)
		}

		out[t] = sum
	}

	var mean float64
	for _, v := range out {
		mean += v
	}
	mean /= float64(len(out))

	for i := range out {
		out[i] /= mean
	}

	return out
}

// modelCurve evaluates a transit-times-ramp model over the white-light curve
// at fixed parameters and returns the model flux and the residuals.
func modelCurve(white []float64) (fit, resid []float64, err error) {
	time := make([]float64, len(white))
	for i := range time {
		time[i] = float64(i) / float64(len(white))
	}

	reg := params.NewRegistry()
	for _, p := range []params.Parameter{
		{Name: "t0", Value: 0.5, Kind: params.BindShared},
		{Name: "per", Value: 3, Kind: params.BindFixed},
		{Name: "rp", Value: 0.08, Kind: params.BindFree},
		{Name: "a", Value: 8, Kind: params.BindFixed},
		{Name: "inc", Value: 88, Kind: params.BindFixed},
		{Name: "u1", Value: 0.1, Kind: params.BindFixed},
		{Name: "u2", Value: 0.05, Kind: params.BindFixed},
		{Name: "r0", Value: 0.002, Kind: params.BindFree},
		{Name: "r1", Value: 20, Kind: params.BindFixed},
		{Name: "r2", Value: 0, Kind: params.BindFixed},
		{Name: "r3", Value: 1, Kind: params.BindFixed},
	} {
		if err := reg.Add(p); err != nil {
			return nil, nil, err
		}
	}

	m, err := model.Compose(model.Config{
		Name:     "transit*ramp",
		Time:     time,
		NChan:    1,
		Registry: reg,
	}, model.NewTransit(), model.NewExpRamp())
	if err != nil {
		return nil, nil, err
	}

	fit, err = m.Eval(0)
	if err != nil {
		return nil, nil, err
	}

	resid = make([]float64, len(white))
	for i := range resid {
		resid[i] = white[i] - fit[i]
	}

	return fit, resid, nil
}

type reportData struct {
	integrations int
	hits         int
	flagged      int
	iterations   []int
	warnings     extract.Warnings
	white        []float64
	fit          []float64
	excess       float64
}

func report(w *os.File, d reportData) error {
	maxIter := 0
	for _, n := range d.iterations {
		if n > maxIter {
			maxIter = n
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Integrations\t%d\n", d.integrations)
	fmt.Fprintf(tw, "Injected cosmic rays\t%d\n", d.hits)
	fmt.Fprintf(tw, "Time-clip flags\t%d\n", d.flagged)
	fmt.Fprintf(tw, "Max extraction iterations\t%d\n", maxIter)
	fmt.Fprintf(tw, "Non-converged integrations\t%d\n", len(d.warnings.NonConverged))
	fmt.Fprintf(tw, "Non-finite samples masked\t%d\n", d.warnings.BadSamples)
	fmt.Fprintf(tw, "White-light points\t%d\n", len(d.white))
	fmt.Fprintf(tw, "Model flux range\t%.6f .. %.6f\n", minOf(d.fit), maxOf(d.fit))
	fmt.Fprintf(tw, "Binned-RMS excess ratio\t%.3f\n", d.excess)

	return tw.Flush()
}

func minOf(v []float64) float64 {
	out := v[0]
	for _, x := range v[1:] {
		if x < out {
			out = x
		}
	}

	return out
}

func maxOf(v []float64) float64 {
	out := v[0]
	for _, x := range v[1:] {
		if x > out {
			out = x
		}
	}

	return out
}
