package model

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-spex/lightcurve/params"
)

var transitParamNames = []string{"t0", "per", "rp", "a", "inc", "u1", "u2"}

// Transit models a primary transit with quadratic limb darkening in the
// small-planet approximation. Parameters per channel:
//
//	t0   mid-transit time
//	per  orbital period
//	rp   planet-to-star radius ratio
//	a    semi-major axis in stellar radii
//	inc  orbital inclination in degrees
//	u1, u2  quadratic limb-darkening coefficients
//
// The orbit is circular; the planet occults only while on the near side of
// the star.
type Transit struct {
	nchan int
	time  []float64
	bind  *params.Binding
}

// NewTransit builds a transit component.
func NewTransit() *Transit {
	return &Transit{}
}

func (tr *Transit) Name() string { return "transit" }

func (tr *Transit) Kind() Kind { return KindPhysical }

func (tr *Transit) SetTime(time []float64) { tr.time = time }

// Bind resolves the transit parameters and rejects non-physical
// combinations for every channel before any evaluation happens.
func (tr *Transit) Bind(b *params.Binding) error {
	if err := checkBound(b, transitParamNames...); err != nil {
		return err
	}

	tr.bind = b
	tr.nchan = b.NChan()

	for c := 0; c < tr.nchan; c++ {
		if err := tr.validateChannel(c); err != nil {
			return err
		}
	}

	return nil
}

func (tr *Transit) validateChannel(c int) error {
	v := make(map[string]float64, len(transitParamNames))
	for _, name := range transitParamNames {
		val, err := tr.bind.Value(name, c)
		if err != nil {
			return err
		}

		v[name] = val
	}

	switch {
	case v["per"] <= 0:
		return fmt.Errorf("%w: period %v", ErrNonPhysical, v["per"])
	case v["rp"] < 0:
		return fmt.Errorf("%w: radius ratio %v", ErrNonPhysical, v["rp"])
	case v["a"] <= 1:
		return fmt.Errorf("%w: semi-major axis %v stellar radii", ErrNonPhysical, v["a"])
	case v["inc"] <= 0 || v["inc"] > 90:
		return fmt.Errorf("%w: inclination %v degrees", ErrNonPhysical, v["inc"])
	case 1-v["u1"]-v["u2"] < 0:
		return fmt.Errorf("%w: negative limb intensity (u1 %v, u2 %v)",
			ErrNonPhysical, v["u1"], v["u2"])
	case 1-v["u1"]/3-v["u2"]/6 <= 0:
		return fmt.Errorf("%w: limb darkening normalization (u1 %v, u2 %v)",
			ErrNonPhysical, v["u1"], v["u2"])
	}

	// The implied stellar density from (a, per) must come out finite and
	// positive, otherwise the combination cannot describe a real orbit.
	if rho := impliedDensity(v["a"], v["per"]); !(rho > 0) || math.IsInf(rho, 0) {
		return fmt.Errorf("%w: implied stellar density %v", ErrNonPhysical, rho)
	}

	return nil
}

// impliedDensity returns the stellar density in kg/m^3 implied by the
// scaled semi-major axis and the period in days, via Kepler's third law.
func impliedDensity(aRs, perDays float64) float64 {
	const gravity = 6.674e-11

	per := perDays * 86400
	return 3 * math.Pi * aRs * aRs * aRs / (gravity * per * per)
}

func (tr *Transit) EvalChannel(dst []float64, channel int) error {
	if tr.bind == nil {
		return ErrNotBound
	}

	t0, err := tr.bind.Value("t0", channel)
	if err != nil {
		return err
	}

	per, _ := tr.bind.Value("per", channel)
	rp, _ := tr.bind.Value("rp", channel)
	a, _ := tr.bind.Value("a", channel)
	inc, _ := tr.bind.Value("inc", channel)
	u1, _ := tr.bind.Value("u1", channel)
	u2, _ := tr.bind.Value("u2", channel)

	cosi := math.Cos(inc * math.Pi / 180)
	norm := 1 - u1/3 - u2/6

	for i, t := range tr.time {
		phase := 2 * math.Pi * (t - t0) / per

		// Behind the star: no occultation.
		if math.Cos(phase) <= 0 {
			dst[i] = 1
			continue
		}

		x := a * math.Sin(phase)
		y := a * math.Cos(phase) * cosi
		z := math.Hypot(x, y)

		dst[i] = occultFlux(z, rp, u1, u2, norm)
	}

	return nil
}

// occultFlux returns the relative flux for a planet of radius ratio p at
// projected separation z, with the planet disk sampling the local stellar
// intensity.
func occultFlux(z, p, u1, u2, norm float64) float64 {
	if p == 0 || z >= 1+p {
		return 1
	}

	if z <= 1-p {
		return 1 - p*p*limbIntensity(z, u1, u2)/norm
	}

	// Partial overlap on ingress/egress: lens-shaped area between the
	// planet disk and the stellar limb.
	d1 := (z*z + p*p - 1) / (2 * z * p)
	d2 := (z*z + 1 - p*p) / (2 * z)
	k := (1 + p - z) * (z + p - 1) * (z - p + 1) * (z + p + 1)

	area := p*p*math.Acos(clampUnit(d1)) + math.Acos(clampUnit(d2)) -
		0.5*math.Sqrt(math.Max(k, 0))

	r := math.Min(z, 1)

	return 1 - area*limbIntensity(r, u1, u2)/(math.Pi*norm)
}

// limbIntensity evaluates the quadratic limb-darkening law at radius r.
func limbIntensity(r, u1, u2 float64) float64 {
	mu := math.Sqrt(math.Max(0, 1-r*r))
	return 1 - u1*(1-mu) - u2*(1-mu)*(1-mu)
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
