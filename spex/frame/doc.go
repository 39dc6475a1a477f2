// Package frame provides the 2-D image and 3-D time-stack containers used by
// the spectral extraction packages.
//
// A [Frame] is a single detector image stored row-major. A [Cube] stacks T
// frames along the time axis; [Cube.Frame] returns a zero-copy view of one
// integration. A [Mask] marks per-pixel good/bad state as {1, 0} so it can be
// used directly as a multiplicative weight.
//
// All containers treat NaN and Inf samples as missing data: the reduction
// helpers ([Cube.MedianImage], [Frame.ColSum]) skip non-finite values rather
// than propagating them.
package frame
