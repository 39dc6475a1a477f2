package params

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
)

// Errors returned by the registry and binding operations.
var (
	ErrDuplicateName = errors.New("params: duplicate parameter name")
	ErrUnknownName   = errors.New("params: unknown parameter name")
	ErrBadChannels   = errors.New("params: channel count must be positive")
	ErrValueCount    = errors.New("params: value count does not match free names")
	ErrBadChannel    = errors.New("params: channel index out of range")
)

// Registry is an ordered, name-addressed parameter store. The zero value is
// not usable; construct with NewRegistry.
type Registry struct {
	names  []string
	params map[string]Parameter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{params: make(map[string]Parameter)}
}

// Add validates and stores a parameter. Names must be unique.
func (r *Registry) Add(p Parameter) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if _, ok := r.params[p.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, p.Name)
	}

	r.names = append(r.names, p.Name)
	r.params[p.Name] = p

	return nil
}

// Get returns the named parameter.
func (r *Registry) Get(name string) (Parameter, bool) {
	p, ok := r.params[name]
	return p, ok
}

// Value returns the current value of the named parameter.
func (r *Registry) Value(name string) (float64, bool) {
	p, ok := r.params[name]
	return p.Value, ok
}

// SetValue updates the value of an existing parameter.
func (r *Registry) SetValue(name string, v float64) error {
	p, ok := r.params[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownName, name)
	}

	p.Value = v
	r.params[name] = p

	return nil
}

// Names returns the parameter names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)

	return out
}

// Len returns the number of stored parameters.
func (r *Registry) Len() int {
	return len(r.names)
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	out := NewRegistry()
	for _, name := range r.names {
		out.names = append(out.names, name)
		out.params[name] = r.params[name]
	}

	return out
}

// Merge copies parameters from other into r, skipping names r already holds.
// Composed models use this union so that a parameter appearing on both sides
// resolves to a single shared specification.
func (r *Registry) Merge(other *Registry) {
	for _, name := range other.names {
		if _, ok := r.params[name]; ok {
			continue
		}

		r.names = append(r.names, name)
		r.params[name] = other.params[name]
	}
}

// ChannelName applies the latent naming convention: channel 0 keeps the base
// name, channel c appends "_<c>".
func ChannelName(base string, channel int) string {
	if channel == 0 {
		return base
	}

	return fmt.Sprintf("%s_%d", base, channel)
}

// latent is one entry of the flat free-parameter vector.
type latent struct {
	base    string
	channel int
	name    string
}

// Binding is the expansion of a registry over a fixed channel count. It owns
// the ordered latent vector a fitter manipulates and resolves per-channel
// values for model evaluation. Update must be serialized relative to
// evaluation by the caller.
type Binding struct {
	reg     *Registry
	nchan   int
	latents []latent
	values  map[string]float64
}

// Bind expands the registry over nchan channels. Free parameters contribute
// one latent per channel; shared and white-free parameters contribute a
// single latent resolved identically in every channel.
func (r *Registry) Bind(nchan int) (*Binding, error) {
	if nchan < 1 {
		return nil, ErrBadChannels
	}

	b := &Binding{
		reg:    r.Clone(),
		nchan:  nchan,
		values: make(map[string]float64),
	}

	for _, name := range b.reg.names {
		p := b.reg.params[name]
		if !p.Kind.Fitted() {
			continue
		}

		if p.Kind.PerChannel() {
			for c := 0; c < nchan; c++ {
				l := latent{base: name, channel: c, name: ChannelName(name, c)}
				b.latents = append(b.latents, l)
				b.values[l.name] = p.Value
			}

			continue
		}

		l := latent{base: name, channel: -1, name: name}
		b.latents = append(b.latents, l)
		b.values[l.name] = p.Value
	}

	return b, nil
}

// NChan returns the channel count the binding was built for.
func (b *Binding) NChan() int {
	return b.nchan
}

// Registry returns the binding's parameter store.
func (b *Binding) Registry() *Registry {
	return b.reg
}

// FreeNames returns the ordered latent names, the vector layout Update and
// Draw operate on.
func (b *Binding) FreeNames() []string {
	out := make([]string, len(b.latents))
	for i, l := range b.latents {
		out[i] = l.name
	}

	return out
}

// Update rebinds the latent vector by position. Both the latent cache and
// the registry values stay consistent: a latent for channel 0 (or a shared
// latent) writes through to its registry entry.
func (b *Binding) Update(values []float64) error {
	if len(values) != len(b.latents) {
		return fmt.Errorf("%w: got %d, want %d", ErrValueCount, len(values), len(b.latents))
	}

	for i, l := range b.latents {
		b.values[l.name] = values[i]

		if l.channel <= 0 {
			if err := b.reg.SetValue(l.base, values[i]); err != nil {
				return err
			}
		}
	}

	return nil
}

// Value resolves a parameter for one channel. Fixed, independent and
// white-fixed parameters read the registry; free parameters read the
// channel's latent; shared and white-free parameters read the single latent.
func (b *Binding) Value(base string, channel int) (float64, error) {
	if channel < 0 || channel >= b.nchan {
		return 0, fmt.Errorf("%w: %d of %d", ErrBadChannel, channel, b.nchan)
	}

	p, ok := b.reg.params[base]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownName, base)
	}

	if !p.Kind.Fitted() {
		return p.Value, nil
	}

	name := base
	if p.Kind.PerChannel() {
		name = ChannelName(base, channel)
	}

	return b.values[name], nil
}

// LogPrior sums the log prior density over the current latent vector.
func (b *Binding) LogPrior() float64 {
	var sum float64

	for _, l := range b.latents {
		p := b.reg.params[l.base]
		sum += p.LogPrior(b.values[l.name])
	}

	return sum
}

// Draw samples one value per latent from the priors, in FreeNames order.
func (b *Binding) Draw(src rand.Source) []float64 {
	out := make([]float64, len(b.latents))
	for i, l := range b.latents {
		out[i] = b.reg.params[l.base].Draw(src)
	}

	return out
}
