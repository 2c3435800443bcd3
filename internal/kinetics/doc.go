// Package kinetics builds the symbolic form of a voltage-gated ion channel
// Markov model.
//
// A [Topology] lists the explicit states, the implied state (its
// occupancy is one minus the sum of the others), the rate constants and
// the transitions between states. Rate r is of Eyring form
//
//	k_r = p[2r] * exp(sign_r * p[2r+1] * V)
//
// and the parameter after the last rate pair is the maximal conductance.
// [Build] turns a topology into a [Model]: symbols for parameters, states
// and voltage, the rate expressions and the right-hand side of the
// occupancy ODE, all in one [symbolic.Graph].
package kinetics
