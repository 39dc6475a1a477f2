// Package extract implements optimal spectral extraction with iterative
// cosmic-ray rejection over a time series of 2-D detector images.
//
// For every integration the [Engine] builds a spatial profile from the
// representative (median) image, propagates the per-pixel variance, masks
// pixels whose standardized residual exceeds the sigma threshold, and repeats
// until no new pixels are flagged. The converged profile then weights the
// background-subtracted image into a 1-D spectrum:
//
//	V      = boxVar + |bkg + P*boxSpec| / gain
//	denom  = Σ M*P²/V
//	flux   = Σ M*P*(D-bkg)/V / denom
//	var    = Σ M*P / denom
//
// summed along the spatial axis per dispersion column. The cosmic-ray mask M
// only ever tightens within one integration, and every integration's loop is
// independent of every other's; the engine can fan integrations out across a
// bounded worker pool.
//
// The package also provides the box-extraction inputs the optimal algorithm
// consumes: [OrderMasks] and [BackgroundMask] build fixed spatial windows
// around the order traces, and [BoxExtract] sums flux and variance inside
// them.
package extract
