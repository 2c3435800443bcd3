// Package sensitivity derives, compiles and integrates the forward
// sensitivity equations of a kinetic model.
//
// For occupancies y and parameters p the sensitivities S = dy/dp obey
//
//	dS/dt = (df/dy) S + df/dp,  S(0) = 0
//
// [Generate] derives both Jacobians symbolically and compiles the
// augmented system [y, S] once per topology. [Simulate] integrates it
// over a sample grid and [Current] turns the open-state sensitivities
// into current sensitivities.
package sensitivity
