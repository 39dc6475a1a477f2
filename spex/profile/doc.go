// Package profile constructs normalized spatial weighting profiles from a
// representative detector image.
//
// A spatial profile gives the expected fractional flux per pixel at each
// dispersion column; the extraction engine uses it to downweight noisy or
// contaminated pixels. Three interchangeable strategies are provided, selected
// by the [Strategy] enum:
//
//   - [StrategyMedian]:   smoothed empirical profile of the median image
//   - [StrategyGaussian]: two-order Gaussian mixture fit along the traces
//   - [StrategyMoffat]:   two-order Moffat fit along the traces
//
// The Gaussian and Moffat strategies require per-column trace center
// positions ([TraceConfig]); the median strategy does not. Whatever the
// strategy, the caller normalizes the result with [Normalize] so that every
// column sums to 1.
package profile
