// Package model evaluates composable multiplicative light-curve models.
//
// A model is a product of [Component] terms: physical terms such as
// [Transit], systematic terms such as [Step], [Polynomial] and [ExpRamp],
// and noise terms such as [Scatter] that never enter the flux product but
// feed the likelihood. [Compose] joins components over a shared parameter
// registry and time axis; a [Composite] is itself a Component, so models
// nest, and [Mul] merges two composites into one with the union of their
// parameters.
//
// A composite moves through three states: constructed (parameters bound),
// set up (observed flux and scatter registered via [Composite.Setup]) and
// evaluated. Forward evaluation is allowed before setup; the likelihood is
// not.
package model
