package model

import (
	"fmt"

	"github.com/cwbudde/algo-spex/lightcurve/params"
)

// Scatter parametrizes the per-point noise level of the fit. It is a noise
// component: it never enters the flux product, and the composite consumes it
// when building the likelihood scatter array. Exactly one of its two
// parameters must be registered:
//
//	scatter_mult  multiplier on the propagated per-point uncertainties
//	scatter_ppm   absolute scatter in parts per million
type Scatter struct {
	bind *params.Binding
	mult bool
	ppm  bool
}

// NewScatter builds a scatter component.
func NewScatter() *Scatter {
	return &Scatter{}
}

func (s *Scatter) Name() string { return "scatter" }

func (s *Scatter) Kind() Kind { return KindNoise }

func (s *Scatter) SetTime([]float64) {}

func (s *Scatter) Bind(b *params.Binding) error {
	_, s.mult = b.Registry().Get("scatter_mult")
	_, s.ppm = b.Registry().Get("scatter_ppm")

	if s.mult == s.ppm {
		return fmt.Errorf("%w: scatter needs exactly one of scatter_mult or scatter_ppm",
			ErrBadConfig)
	}

	s.bind = b

	return nil
}

// EvalChannel returns unity; the scatter never scales the flux.
func (s *Scatter) EvalChannel(dst []float64, _ int) error {
	if s.bind == nil {
		return ErrNotBound
	}

	for i := range dst {
		dst[i] = 1
	}

	return nil
}

// scatterArray fills dst, laid out as nchan blocks of npts samples, with the
// per-point scatter: either the uncertainties scaled per channel or an
// absolute ppm level.
func (s *Scatter) scatterArray(dst, unc []float64, npts, nchan int) error {
	for c := 0; c < nchan; c++ {
		block := dst[c*npts : (c+1)*npts]

		if s.ppm {
			v, err := s.bind.Value("scatter_ppm", c)
			if err != nil {
				return err
			}

			for i := range block {
				block[i] = v / 1e6
			}

			continue
		}

		v, err := s.bind.Value("scatter_mult", c)
		if err != nil {
			return err
		}

		for i := range block {
			block[i] = v * unc[c*npts+i]
		}
	}

	return nil
}
