// Package testutil provides deterministic synthetic detector data and
// tolerance helpers for tests.
package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-spex/spex/frame"
)

// GaussianTraceFrame builds a frame containing a Gaussian spatial profile in
// every column: amp * exp(-(y-center)²/(2 sigma²)).
func GaussianTraceFrame(ny, nx int, amp, center, sigma float64) *frame.Frame {
	f, _ := frame.New(ny, nx)

	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			dy := float64(y) - center
			f.Set(y, x, amp*math.Exp(-dy*dy/(2*sigma*sigma)))
		}
	}

	return f
}

// GaussianTraceCube stacks T copies of a Gaussian trace frame with optional
// deterministic white noise.
func GaussianTraceCube(t, ny, nx int, amp, center, sigma, noise float64, seed int64) *frame.Cube {
	c, _ := frame.NewCube(t, ny, nx)
	base := GaussianTraceFrame(ny, nx, amp, center, sigma)
	rng := rand.New(rand.NewSource(seed))

	for ti := 0; ti < t; ti++ {
		dst := c.Frame(ti)
		for i, v := range base.Data {
			dst.Data[i] = v + noise*(rng.Float64()*2-1)
		}
	}

	return c
}

// ConstantCube returns a cube filled with v.
func ConstantCube(t, ny, nx int, v float64) *frame.Cube {
	c, _ := frame.NewCube(t, ny, nx)
	for i := range c.Data {
		c.Data[i] = v
	}

	return c
}

// DeterministicNoise generates white noise with a fixed seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))

	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}

	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}

	return out
}
