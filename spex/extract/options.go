package extract

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-spex/spex/frame"
	"github.com/cwbudde/algo-spex/spex/profile"
)

// Errors returned by engine construction and extraction.
var (
	ErrBadSigma      = errors.New("extract: sigma threshold must be positive")
	ErrBadGain       = errors.New("extract: gain must be positive")
	ErrBadIterations = errors.New("extract: iteration cap must be at least 1")
	ErrUnknownRegion = errors.New("extract: unknown region")
	ErrEmptyRegion   = errors.New("extract: region is empty for this frame shape")
	ErrShapeMismatch = errors.New("extract: input shapes do not match")
	ErrNilInput      = errors.New("extract: nil input")
)

// Config defines configuration for the optimal extraction engine.
type Config struct {
	// Region selects the sub-frame to extract.
	Region Region
	// Strategy selects the spatial profile construction strategy.
	Strategy profile.Strategy
	// Trace holds order trace centers, required by the Gaussian and Moffat
	// strategies. Positions are full-frame row coordinates per column.
	Trace profile.TraceConfig
	// Median configures the median strategy.
	Median profile.MedianConfig
	// Order selects which spectral order's profile a two-order strategy uses.
	Order int
	// SigmaThreshold is the cosmic-ray rejection threshold. +Inf disables
	// rejection, reducing the algorithm to a plain variance-weighted sum.
	SigmaThreshold float64
	// Gain converts flux to detector counts in the variance propagation.
	Gain float64
	// MaxIterations bounds the convergence loop per integration. Hitting the
	// cap is a soft failure reported through Result warnings.
	MaxIterations int
	// Workers bounds the number of integrations processed concurrently.
	// Values below 2 mean serial processing.
	Workers int
	// Patch overrides the contamination patch for RegionOrder1. Nil keeps
	// the default; an empty Patch disables it.
	Patch *Patch
	// StaticMask marks pixels bad (nonzero) ahead of time, applied after
	// convergence and before the weighted sum. Shape (T, Ny, Nx), full frame.
	StaticMask *frame.Cube
	// MedianImage overrides the representative image. Nil computes the
	// per-pixel median of the data cube once per Extract call.
	MedianImage *frame.Frame
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the standard configuration: full-frame median-profile
// extraction at 20 sigma with a 20-iteration cap.
func DefaultConfig() Config {
	return Config{
		Region:         RegionFull,
		Strategy:       profile.StrategyMedian,
		Median:         profile.DefaultMedianConfig(),
		Order:          1,
		SigmaThreshold: 20,
		Gain:           1,
		MaxIterations:  20,
		Workers:        1,
	}
}

// WithRegion selects the sub-frame to extract.
func WithRegion(r Region) Option {
	return func(cfg *Config) { cfg.Region = r }
}

// WithStrategy selects the spatial profile strategy.
func WithStrategy(s profile.Strategy) Option {
	return func(cfg *Config) { cfg.Strategy = s }
}

// WithTrace supplies order trace center positions.
func WithTrace(tc profile.TraceConfig) Option {
	return func(cfg *Config) { cfg.Trace = tc }
}

// WithMedianConfig overrides the median strategy configuration.
func WithMedianConfig(mc profile.MedianConfig) Option {
	return func(cfg *Config) { cfg.Median = mc }
}

// WithOrder selects the spectral order used by two-order strategies.
func WithOrder(order int) Option {
	return func(cfg *Config) {
		if order == 1 || order == 2 {
			cfg.Order = order
		}
	}
}

// WithSigmaThreshold sets the cosmic-ray rejection threshold.
func WithSigmaThreshold(sigma float64) Option {
	return func(cfg *Config) { cfg.SigmaThreshold = sigma }
}

// WithGain sets the detector gain used in variance propagation.
func WithGain(gain float64) Option {
	return func(cfg *Config) { cfg.Gain = gain }
}

// WithMaxIterations bounds the convergence loop.
func WithMaxIterations(n int) Option {
	return func(cfg *Config) { cfg.MaxIterations = n }
}

// WithWorkers bounds the number of integrations processed concurrently.
func WithWorkers(n int) Option {
	return func(cfg *Config) { cfg.Workers = n }
}

// WithPatch overrides the RegionOrder1 contamination patch.
func WithPatch(p Patch) Option {
	return func(cfg *Config) { cfg.Patch = &p }
}

// WithStaticMask supplies an externally known bad-pixel cube (nonzero = bad),
// applied after convergence.
func WithStaticMask(m *frame.Cube) Option {
	return func(cfg *Config) { cfg.StaticMask = m }
}

// WithMedianImage supplies a precomputed representative image, full frame.
func WithMedianImage(img *frame.Frame) Option {
	return func(cfg *Config) { cfg.MedianImage = img }
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// Validate checks the configuration. Unknown strategies or regions and
// missing trace positions are configuration errors reported immediately.
func (cfg Config) Validate() error {
	if !cfg.Region.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownRegion, int(cfg.Region))
	}

	switch cfg.Strategy {
	case profile.StrategyMedian:
	case profile.StrategyGaussian, profile.StrategyMoffat:
		if len(cfg.Trace.Center1) == 0 {
			return fmt.Errorf("%w: %s", profile.ErrMissingTrace, cfg.Strategy)
		}
	default:
		return fmt.Errorf("%w: %d", profile.ErrUnknownStrategy, int(cfg.Strategy))
	}

	if cfg.SigmaThreshold <= 0 || math.IsNaN(cfg.SigmaThreshold) {
		return ErrBadSigma
	}

	if cfg.Gain <= 0 || math.IsNaN(cfg.Gain) {
		return ErrBadGain
	}

	if cfg.MaxIterations < 1 {
		return ErrBadIterations
	}

	return nil
}
