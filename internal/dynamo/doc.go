// Package dynamo provides the core primitives shared by the simulation
// pipeline.
//
// The package defines the fundamental interfaces and types for numerical
// integration of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [JacobianSystem]: systems that expose df/dX and df/dt for stiff solvers
//   - [Stepper]: one trial step of an adaptive integrator
//   - [Config]: solver tolerances and step budget
//
// Errors follow a fixed taxonomy: [ErrConfiguration], [ErrDerivation],
// [ErrIntegration] and [ErrInvariant]. Typed errors wrap these sentinels,
// so callers test them with errors.Is.
//
// # Thread Safety
//
// Types in this package carry no shared mutable state. For parameter
// sweeps use [ParallelFor], a bounded worker pool that stops on cancellation.
package dynamo
