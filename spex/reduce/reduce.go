// Package reduce drives extraction sweeps over aperture configurations.
//
// A reduction rarely knows the best spectral and background aperture sizes
// in advance; [Sweep] runs box plus optimal extraction for every combination
// of the configured half-widths so the caller can pick the aperture pair
// minimizing the scatter of the resulting light curve. Configurations are
// independent and run concurrently.
package reduce

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-spex/spex/extract"
	"github.com/cwbudde/algo-spex/spex/frame"
)

// Errors returned by sweep configuration.
var (
	ErrNilInput     = errors.New("reduce: nil input")
	ErrNoApertures  = errors.New("reduce: no aperture half-widths configured")
	ErrBadHalfWidth = errors.New("reduce: aperture half-width must be positive")
	ErrNoTrace      = errors.New("reduce: trace center positions required")
)

// Input bundles the data products one sweep consumes.
type Input struct {
	// Data and Variance are the calibrated image cube and its variance.
	Data     *frame.Cube
	Variance *frame.Cube
	// Center1 holds the order-1 trace center per dispersion column.
	Center1 []float64
	// Background estimates the background cube for one background
	// aperture half-width. Nil means zero background.
	Background func(bgHW int) (*frame.Cube, error)
}

// Config controls the sweep grid.
type Config struct {
	// SpecHalfWidths are the spectral-aperture half-widths to try, in
	// pixels around the trace.
	SpecHalfWidths []int
	// BgHalfWidths are the background-aperture half-widths to try.
	BgHalfWidths []int
	// Workers bounds the number of configurations extracted concurrently.
	Workers int
	// Extract is passed through to the optimal-extraction engine.
	Extract []extract.Option
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns a single mid-sized aperture pair.
func DefaultConfig() Config {
	return Config{
		SpecHalfWidths: []int{5},
		BgHalfWidths:   []int{7},
		Workers:        1,
	}
}

// WithSpecHalfWidths sets the spectral-aperture grid.
func WithSpecHalfWidths(hws ...int) Option {
	return func(c *Config) { c.SpecHalfWidths = hws }
}

// WithBgHalfWidths sets the background-aperture grid.
func WithBgHalfWidths(hws ...int) Option {
	return func(c *Config) { c.BgHalfWidths = hws }
}

// WithWorkers bounds the sweep concurrency.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithExtractOptions forwards options to every extraction engine.
func WithExtractOptions(opts ...extract.Option) Option {
	return func(c *Config) { c.Extract = opts }
}

// ApplyOptions builds a Config from the defaults and opts.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// Validate checks the sweep grid.
func (c Config) Validate() error {
	if len(c.SpecHalfWidths) == 0 || len(c.BgHalfWidths) == 0 {
		return ErrNoApertures
	}

	for _, hw := range c.SpecHalfWidths {
		if hw < 1 {
			return fmt.Errorf("%w: spectral %d", ErrBadHalfWidth, hw)
		}
	}

	for _, hw := range c.BgHalfWidths {
		if hw < 1 {
			return fmt.Errorf("%w: background %d", ErrBadHalfWidth, hw)
		}
	}

	return nil
}

// Key identifies one aperture configuration.
type Key struct {
	SpecHW, BgHW int
}

// Item is the extraction outcome for one aperture configuration. Err is set
// when this configuration failed; other configurations are unaffected.
type Item struct {
	Key    Key
	Box    *extract.BoxResult
	Result *extract.Result
	Err    error
}

// Sweep runs box and optimal extraction for every aperture combination.
// The returned items are ordered spectral-major, matching the configured
// grids. Configuration problems fail the whole sweep; per-configuration
// extraction failures are recorded on their Item.
func Sweep(in Input, opts ...Option) ([]Item, error) {
	if in.Data == nil || in.Variance == nil {
		return nil, ErrNilInput
	}

	if len(in.Center1) != in.Data.Nx {
		return nil, fmt.Errorf("%w: %d centers for %d columns",
			ErrNoTrace, len(in.Center1), in.Data.Nx)
	}

	cfg := ApplyOptions(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(cfg.SpecHalfWidths)*len(cfg.BgHalfWidths))
	for _, specHW := range cfg.SpecHalfWidths {
		for _, bgHW := range cfg.BgHalfWidths {
			items = append(items, Item{Key: Key{SpecHW: specHW, BgHW: bgHW}})
		}
	}

	g := new(errgroup.Group)
	limit := cfg.Workers
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range items {
		item := &items[i]

		g.Go(func() error {
			item.Box, item.Result, item.Err = runOne(in, item.Key, cfg.Extract)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

// runOne extracts a single aperture configuration.
func runOne(in Input, key Key, extractOpts []extract.Option) (*extract.BoxResult, *extract.Result, error) {
	mask, _, err := extract.OrderMasks(in.Data.Ny, in.Data.Nx, in.Center1, nil, 2*key.SpecHW, 0)
	if err != nil {
		return nil, nil, err
	}

	bkg, err := background(in, key.BgHW)
	if err != nil {
		return nil, nil, fmt.Errorf("background half-width %d: %w", key.BgHW, err)
	}

	box, err := extract.BoxExtract(in.Data, in.Variance, mask)
	if err != nil {
		return nil, nil, err
	}

	eng, err := extract.New(extractOpts...)
	if err != nil {
		return nil, nil, err
	}

	res, err := eng.Extract(in.Data, box.Spec, box.Var, bkg, nil)
	if err != nil {
		return box, nil, err
	}

	return box, res, nil
}

func background(in Input, bgHW int) (*frame.Cube, error) {
	if in.Background == nil {
		return frame.NewCube(1, in.Data.Ny, in.Data.Nx)
	}

	return in.Background(bgHW)
}
