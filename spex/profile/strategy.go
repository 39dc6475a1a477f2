package profile

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-spex/spex/frame"
)

// Errors returned by profile construction.
var (
	ErrUnknownStrategy = errors.New("profile: unknown strategy")
	ErrMissingTrace    = errors.New("profile: strategy requires trace center positions")
	ErrTraceLength     = errors.New("profile: trace length does not match image width")
	ErrNilImage        = errors.New("profile: nil image")
)

// Strategy identifies a spatial profile construction strategy.
type Strategy int

const (
	StrategyMedian Strategy = iota
	StrategyGaussian
	StrategyMoffat
)

// String returns the canonical lower-case name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyMedian:
		return "median"
	case StrategyGaussian:
		return "gaussian"
	case StrategyMoffat:
		return "moffat"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a strategy name to its Strategy value. Matching is
// case-insensitive. Unknown names are a configuration error.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "median":
		return StrategyMedian, nil
	case "gaussian":
		return StrategyGaussian, nil
	case "moffat":
		return StrategyMoffat, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// TraceConfig holds per-column order trace center positions. Center1 is
// required by the Gaussian and Moffat strategies; Center2 is optional and
// enables the second spectral order.
type TraceConfig struct {
	Center1 []float64
	Center2 []float64
}

// Validate checks the trace against an image width.
func (tc TraceConfig) Validate(nx int) error {
	if len(tc.Center1) == 0 {
		return ErrMissingTrace
	}

	if len(tc.Center1) != nx {
		return fmt.Errorf("%w: order 1 has %d centers for %d columns",
			ErrTraceLength, len(tc.Center1), nx)
	}

	if tc.Center2 != nil && len(tc.Center2) != nx {
		return fmt.Errorf("%w: order 2 has %d centers for %d columns",
			ErrTraceLength, len(tc.Center2), nx)
	}

	return nil
}

// Builder constructs a spatial profile from a representative image. Build may
// write into img; pass a scratch copy if the image must survive.
type Builder interface {
	Build(img *frame.Frame) (*frame.Frame, error)
	Strategy() Strategy
}

// BuilderOption mutates a builder configuration.
type BuilderOption func(*builderConfig)

type builderConfig struct {
	trace  TraceConfig
	median MedianConfig
	order  int
}

// WithTrace supplies trace center positions for the Gaussian and Moffat
// strategies.
func WithTrace(tc TraceConfig) BuilderOption {
	return func(cfg *builderConfig) {
		cfg.trace = tc
	}
}

// WithMedianConfig overrides the median strategy configuration.
func WithMedianConfig(mc MedianConfig) BuilderOption {
	return func(cfg *builderConfig) {
		cfg.median = mc
	}
}

// WithOrder selects which spectral order's profile a two-order strategy
// returns (1 or 2). Defaults to 1.
func WithOrder(order int) BuilderOption {
	return func(cfg *builderConfig) {
		if order == 1 || order == 2 {
			cfg.order = order
		}
	}
}

// NewBuilder returns a Builder for the given strategy. The Gaussian and
// Moffat strategies fail immediately without trace positions.
func NewBuilder(s Strategy, opts ...BuilderOption) (Builder, error) {
	cfg := builderConfig{median: DefaultMedianConfig(), order: 1}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	switch s {
	case StrategyMedian:
		return &medianBuilder{cfg: cfg.median}, nil
	case StrategyGaussian, StrategyMoffat:
		if len(cfg.trace.Center1) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingTrace, s)
		}

		if cfg.order == 2 && cfg.trace.Center2 == nil {
			return nil, fmt.Errorf("%w: order 2 selected", ErrMissingTrace)
		}

		return &fitBuilder{strategy: s, trace: cfg.trace, order: cfg.order}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
}

type medianBuilder struct {
	cfg MedianConfig
}

func (b *medianBuilder) Strategy() Strategy { return StrategyMedian }

func (b *medianBuilder) Build(img *frame.Frame) (*frame.Frame, error) {
	return Median(img, b.cfg)
}

type fitBuilder struct {
	strategy Strategy
	trace    TraceConfig
	order    int
}

func (b *fitBuilder) Strategy() Strategy { return b.strategy }

func (b *fitBuilder) Build(img *frame.Frame) (*frame.Frame, error) {
	var (
		p1, p2 *frame.Frame
		err    error
	)

	if b.strategy == StrategyGaussian {
		p1, p2, _, err = Gaussian(img, b.trace)
	} else {
		p1, p2, _, err = Moffat(img, b.trace)
	}

	if err != nil {
		return nil, err
	}

	if b.order == 2 {
		return p2, nil
	}

	return p1, nil
}

// Normalize scales each column of p so it sums to 1. Non-finite entries are
// zeroed, and columns whose finite sum is zero or non-finite are set to 0.
func Normalize(p *frame.Frame) {
	for x := 0; x < p.Nx; x++ {
		sum := 0.0

		for y := 0; y < p.Ny; y++ {
			v := p.At(y, x)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				p.Set(y, x, 0)
				continue
			}

			sum += v
		}

		if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
			for y := 0; y < p.Ny; y++ {
				p.Set(y, x, 0)
			}

			continue
		}

		for y := 0; y < p.Ny; y++ {
			p.Set(y, x, p.At(y, x)/sum)
		}
	}
}
