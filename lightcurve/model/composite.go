package model

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cwbudde/algo-spex/lightcurve/params"
)

// Config enumerates everything a composite needs at construction. There are
// no optional dynamic fields: unknown options cannot exist.
type Config struct {
	// Name labels the model in diagnostics.
	Name string
	// Time is the shared evaluation time axis.
	Time []float64
	// NChan is the number of simultaneously fit channels.
	NChan int
	// Registry holds every parameter the components resolve.
	Registry *params.Registry
}

func (c Config) validate() error {
	switch {
	case len(c.Time) == 0:
		return fmt.Errorf("%w: empty time axis", ErrBadConfig)
	case c.NChan < 1:
		return fmt.Errorf("%w: channel count %d", ErrBadConfig, c.NChan)
	case c.Registry == nil:
		return fmt.Errorf("%w: nil registry", ErrBadConfig)
	}

	return nil
}

// Composite is an ordered product of components sharing one parameter
// binding and time axis. It implements Component, so composites nest.
//
// Update must not run concurrently with evaluation; one fit owns the
// composite for its lifetime.
type Composite struct {
	name  string
	time  []float64
	nchan int
	bind  *params.Binding
	parts []Component

	setup   bool
	flux    []float64
	scatter []float64
}

// Compose binds the components over cfg's registry and time axis. Parameter
// or configuration problems in any component surface here, before any
// evaluation.
func Compose(cfg Config, parts ...Component) (*Composite, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no components", ErrBadConfig)
	}

	bind, err := cfg.Registry.Bind(cfg.NChan)
	if err != nil {
		return nil, err
	}

	m := &Composite{
		name:  cfg.Name,
		time:  cfg.Time,
		nchan: cfg.NChan,
		bind:  bind,
		parts: parts,
	}

	for _, part := range parts {
		part.SetTime(cfg.Time)

		if err := part.Bind(bind); err != nil {
			return nil, fmt.Errorf("component %s: %w", part.Name(), err)
		}
	}

	return m, nil
}

// Mul composes two composites into one whose parameter set is the union of
// both. A name on both sides resolves to a's specification, so the two
// models share that fit parameter. The factors are nested as components and
// rebound to the union binding, so updates through a, b, or the product all
// resolve identically afterwards.
func Mul(a, b *Composite) (*Composite, error) {
	if a.nchan != b.nchan {
		return nil, fmt.Errorf("%w: %d and %d", ErrChannelMismatch, a.nchan, b.nchan)
	}

	reg := a.bind.Registry().Clone()
	reg.Merge(b.bind.Registry())

	return Compose(Config{
		Name:     a.name + "*" + b.name,
		Time:     a.time,
		NChan:    a.nchan,
		Registry: reg,
	}, a, b)
}

func (m *Composite) Name() string { return m.name }

func (m *Composite) Kind() Kind { return KindComposite }

// SetTime replaces the time axis on the composite and every component.
func (m *Composite) SetTime(time []float64) {
	m.time = time
	for _, part := range m.parts {
		part.SetTime(time)
	}
}

// Time returns the current evaluation time axis.
func (m *Composite) Time() []float64 { return m.time }

// NChan returns the channel count.
func (m *Composite) NChan() int { return m.nchan }

// Binding returns the shared parameter binding.
func (m *Composite) Binding() *params.Binding { return m.bind }

// FreeNames returns the ordered latent names Update operates on.
func (m *Composite) FreeNames() []string { return m.bind.FreeNames() }

// Bind rebinds every component against b; used when the composite is nested
// inside another composite.
func (m *Composite) Bind(b *params.Binding) error {
	m.bind = b

	for _, part := range m.parts {
		if err := part.Bind(b); err != nil {
			return fmt.Errorf("component %s: %w", part.Name(), err)
		}
	}

	return nil
}

// EvalChannel writes the product of every non-noise component for one
// channel.
func (m *Composite) EvalChannel(dst []float64, channel int) error {
	return m.evalFiltered(dst, channel, func(k Kind) bool {
		return k != KindNoise
	})
}

// Eval returns the model flux: one block of len(Time()) samples per channel
// for AllChannels, or a single block for one channel.
func (m *Composite) Eval(channel int) ([]float64, error) {
	return m.evalBlocks(channel, func(k Kind) bool {
		return k != KindNoise
	})
}

// SysEval returns the systematics-only flux in the same layout as Eval.
func (m *Composite) SysEval(channel int) ([]float64, error) {
	return m.evalBlocks(channel, func(k Kind) bool {
		return k == KindSystematic
	})
}

// PhysEval returns the physical-only flux together with the time grid used.
// With resample set, the model is evaluated on a uniform grid spanning the
// time axis with the spacing of its first two samples, endpoint included,
// for smooth diagnostic curves.
func (m *Composite) PhysEval(channel int, resample bool) (flux, grid []float64, err error) {
	grid = m.time

	if resample {
		if len(m.time) < 2 {
			return nil, nil, ErrShortTime
		}

		dt := m.time[1] - m.time[0]
		span := m.time[len(m.time)-1] - m.time[0]
		steps := int(math.Round(span/dt)) + 1

		grid = make([]float64, steps)
		for i := range grid {
			grid[i] = m.time[0] + span*float64(i)/float64(steps-1)
		}

		orig := m.time
		m.SetTime(grid)
		defer m.SetTime(orig)
	}

	flux, err = m.evalBlocks(channel, func(k Kind) bool {
		return k == KindPhysical
	})
	if err != nil {
		return nil, nil, err
	}

	return flux, grid, nil
}

// evalBlocks lays out per-channel products either concatenated or single.
func (m *Composite) evalBlocks(channel int, keep func(Kind) bool) ([]float64, error) {
	npts := len(m.time)

	if channel != AllChannels {
		out := make([]float64, npts)
		if err := m.evalFiltered(out, channel, keep); err != nil {
			return nil, err
		}

		return out, nil
	}

	out := make([]float64, npts*m.nchan)
	for c := 0; c < m.nchan; c++ {
		if err := m.evalFiltered(out[c*npts:(c+1)*npts], c, keep); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// evalFiltered multiplies the matching components into dst for one channel,
// recursing into nested composites so that their parts are filtered
// individually.
func (m *Composite) evalFiltered(dst []float64, channel int, keep func(Kind) bool) error {
	for i := range dst {
		dst[i] = 1
	}

	tmp := make([]float64, len(dst))

	for _, part := range m.parts {
		if nested, ok := part.(*Composite); ok {
			if err := nested.evalFiltered(tmp, channel, keep); err != nil {
				return err
			}

			vecmath.MulBlockInPlace(dst, tmp)

			continue
		}

		if !keep(part.Kind()) {
			continue
		}

		if err := part.EvalChannel(tmp, channel); err != nil {
			return err
		}

		vecmath.MulBlockInPlace(dst, tmp)
	}

	return nil
}

// Update rebinds the free-parameter vector by position, in FreeNames order.
// Both the registry and the values evaluation resolves stay consistent, so
// an Update followed by Eval matches a freshly constructed model.
func (m *Composite) Update(values []float64) error {
	return m.bind.Update(values)
}

// Setup registers the observed flux and its uncertainties and builds the
// scatter array the likelihood uses. flux and unc are laid out as one block
// per channel. Setup is idempotent: after the first call further calls are
// no-ops, so different fitters can share one composite.
func (m *Composite) Setup(flux, unc []float64) error {
	if m.setup {
		return nil
	}

	want := len(m.time) * m.nchan
	if len(flux) != want || len(unc) != want {
		return fmt.Errorf("%w: flux %d, unc %d, want %d",
			ErrLengthMismatch, len(flux), len(unc), want)
	}

	m.flux = append([]float64(nil), flux...)
	m.scatter = append([]float64(nil), unc...)

	if sc := m.findScatter(); sc != nil {
		if err := sc.scatterArray(m.scatter, unc, len(m.time), m.nchan); err != nil {
			return err
		}
	}

	m.setup = true

	return nil
}

// findScatter locates the first scatter component, descending into nested
// composites.
func (m *Composite) findScatter() *Scatter {
	for _, part := range m.parts {
		switch p := part.(type) {
		case *Scatter:
			return p
		case *Composite:
			if sc := p.findScatter(); sc != nil {
				return sc
			}
		}
	}

	return nil
}

// LogLikelihood evaluates the Gaussian log likelihood of the observed flux
// under the current parameter values and scatter array.
func (m *Composite) LogLikelihood() (float64, error) {
	if !m.setup {
		return 0, ErrNotSetup
	}

	pred, err := m.Eval(AllChannels)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i, mu := range pred {
		n := distuv.Normal{Mu: mu, Sigma: m.scatter[i]}
		sum += n.LogProb(m.flux[i])
	}

	return sum, nil
}

// LogPosterior updates the free parameters and returns log prior plus log
// likelihood: the sampler contract. An out-of-support prior short-circuits
// without evaluating the model.
func (m *Composite) LogPosterior(values []float64) (float64, error) {
	if !m.setup {
		return 0, ErrNotSetup
	}

	if err := m.Update(values); err != nil {
		return 0, err
	}

	lp := m.bind.LogPrior()
	if math.IsInf(lp, -1) {
		return lp, nil
	}

	ll, err := m.LogLikelihood()
	if err != nil {
		return 0, err
	}

	return lp + ll, nil
}
