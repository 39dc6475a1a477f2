package model

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-spex/lightcurve/params"
)

// maxPolyDegree bounds the polynomial trend order; coefficients are named
// c0..c9.
const maxPolyDegree = 9

// Polynomial models a slow instrumental trend as a polynomial in time,
// evaluated around the mean of the time axis so that coefficients stay
// well-scaled. Coefficient s reads parameter "c<s>".
type Polynomial struct {
	degree int
	time   []float64
	bind   *params.Binding
}

// NewPolynomial builds a polynomial trend of the given degree.
func NewPolynomial(degree int) *Polynomial {
	return &Polynomial{degree: degree}
}

func (p *Polynomial) Name() string { return "polynomial" }

func (p *Polynomial) Kind() Kind { return KindSystematic }

func (p *Polynomial) SetTime(time []float64) { p.time = time }

func (p *Polynomial) Bind(b *params.Binding) error {
	if p.degree < 0 || p.degree > maxPolyDegree {
		return fmt.Errorf("%w: polynomial degree %d", ErrBadConfig, p.degree)
	}

	for i := 0; i <= p.degree; i++ {
		if err := checkBound(b, fmt.Sprintf("c%d", i)); err != nil {
			return err
		}
	}

	p.bind = b

	return nil
}

func (p *Polynomial) EvalChannel(dst []float64, channel int) error {
	if p.bind == nil {
		return ErrNotBound
	}

	coeffs := make([]float64, p.degree+1)
	for i := range coeffs {
		v, err := p.bind.Value(fmt.Sprintf("c%d", i), channel)
		if err != nil {
			return err
		}

		coeffs[i] = v
	}

	var mean float64
	for _, t := range p.time {
		mean += t
	}
	mean /= float64(len(p.time))

	for i, t := range p.time {
		x := t - mean

		// Horner evaluation from the highest coefficient down.
		v := coeffs[p.degree]
		for d := p.degree - 1; d >= 0; d-- {
			v = v*x + coeffs[d]
		}

		dst[i] = v
	}

	return nil
}

// ExpRamp models the settling exponential at the start of an observation:
// flux = 1 + r0·exp(-r1·(t - t_first)) + r2·exp(-r3·(t - t_first)).
type ExpRamp struct {
	time []float64
	bind *params.Binding
}

// NewExpRamp builds a double-exponential ramp reading parameters r0..r3.
func NewExpRamp() *ExpRamp {
	return &ExpRamp{}
}

func (r *ExpRamp) Name() string { return "expramp" }

func (r *ExpRamp) Kind() Kind { return KindSystematic }

func (r *ExpRamp) SetTime(time []float64) { r.time = time }

func (r *ExpRamp) Bind(b *params.Binding) error {
	if err := checkBound(b, "r0", "r1", "r2", "r3"); err != nil {
		return err
	}

	r.bind = b

	return nil
}

func (r *ExpRamp) EvalChannel(dst []float64, channel int) error {
	if r.bind == nil {
		return ErrNotBound
	}

	if len(r.time) == 0 {
		return ErrShortTime
	}

	var c [4]float64
	for i := range c {
		v, err := r.bind.Value(fmt.Sprintf("r%d", i), channel)
		if err != nil {
			return err
		}

		c[i] = v
	}

	t0 := r.time[0]
	for i, t := range r.time {
		dt := t - t0
		dst[i] = 1 + c[0]*math.Exp(-c[1]*dt) + c[2]*math.Exp(-c[3]*dt)
	}

	return nil
}
