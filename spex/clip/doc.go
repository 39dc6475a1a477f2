// Package clip provides sigma-clipping passes for cosmic-ray removal.
//
// [TimeClip] works along the time axis of an image cube and is meant as a
// first pass before spectral extraction: each pixel's time series is compared
// against its own median and spread, and sudden jumps between consecutive
// integrations are flagged as well. [Outliers1D] cleans a single extracted
// light curve against a boxcar rolling mean, which removes astrophysical
// trends before the residuals are clipped.
package clip
