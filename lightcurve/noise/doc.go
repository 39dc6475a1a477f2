// Package noise provides red-noise diagnostics for fit residuals.
//
// [BinRMS] computes the RMS of time-binned residuals against the 1/sqrt(N)
// scaling of white noise; a flattening curve reveals correlated noise.
// [Periodogram] computes a one-sided power spectrum of the residuals for
// locating periodic systematics.
package noise
