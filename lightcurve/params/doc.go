// Package params defines typed model parameters and their binding to fit
// channels.
//
// A [Parameter] couples a value with a [BindingKind], a [PriorFamily] and an
// optional domain [Constraint]. Parameters live in an ordered [Registry];
// calling [Registry.Bind] expands them into the flat latent-variable vector a
// sampler sees, one latent per channel for free parameters and a single
// latent for shared ones. Latent names follow the channel suffix convention:
// channel 0 keeps the base name, channel c appends "_<c>".
package params
