package model

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-spex/lightcurve/params"
)

// Errors returned by model construction and evaluation.
var (
	ErrBadConfig       = errors.New("model: invalid configuration")
	ErrMissingParam    = errors.New("model: required parameter missing")
	ErrNonPhysical     = errors.New("model: non-physical parameter combination")
	ErrNotSetup        = errors.New("model: likelihood requires Setup")
	ErrNotBound        = errors.New("model: component not bound")
	ErrLengthMismatch  = errors.New("model: data length mismatch")
	ErrChannelMismatch = errors.New("model: channel counts differ")
	ErrShortTime       = errors.New("model: time axis too short")
)

// AllChannels selects every channel; the result concatenates per-channel
// flux blocks in channel order.
const AllChannels = -1

// Kind categorizes a component for the eval/syseval/physeval split.
type Kind int

const (
	// KindPhysical components carry the astrophysical signal.
	KindPhysical Kind = iota
	// KindSystematic components model instrumental trends.
	KindSystematic
	// KindNoise components parametrize the scatter and are excluded from
	// the flux product.
	KindNoise
	// KindComposite marks a nested composite holding mixed kinds.
	KindComposite
)

var kindNames = [...]string{
	KindPhysical:   "physical",
	KindSystematic: "systematic",
	KindNoise:      "noise",
	KindComposite:  "composite",
}

func (k Kind) String() string {
	if k < KindPhysical || k > KindComposite {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// Component is one multiplicative term of a light-curve model.
//
// SetTime replaces the evaluation time axis. Bind resolves the component's
// parameters against a channel binding and validates them; it must be called
// before evaluation and reports configuration problems immediately.
// EvalChannel writes the component flux for one channel into dst, which has
// one sample per time point.
type Component interface {
	Name() string
	Kind() Kind
	SetTime(time []float64)
	Bind(b *params.Binding) error
	EvalChannel(dst []float64, channel int) error
}

// require fetches a channel value for a parameter every component needs,
// turning an absent name into a configuration error.
func require(b *params.Binding, name string, channel int) (float64, error) {
	v, err := b.Value(name, channel)
	if err != nil {
		if errors.Is(err, params.ErrUnknownName) {
			return 0, fmt.Errorf("%w: %q", ErrMissingParam, name)
		}

		return 0, err
	}

	return v, nil
}

// checkBound verifies that every named parameter exists in the binding, so
// misconfiguration surfaces at Bind time instead of mid-evaluation.
func checkBound(b *params.Binding, names ...string) error {
	for _, name := range names {
		if _, ok := b.Registry().Get(name); !ok {
			return fmt.Errorf("%w: %q", ErrMissingParam, name)
		}
	}

	return nil
}
