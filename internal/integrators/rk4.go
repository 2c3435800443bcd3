package integrators

import (
	"github.com/san-kum/chansens/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// RK4 is the classical fixed-step Runge-Kutta method. It reports no error
// estimate; Solve advances it with the configured initial step.
type RK4 struct {
	k     [4]dynamo.State
	stage dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) Order() int { return 4 }

func (r *RK4) fixedStep() {}

func (r *RK4) ensureScratch(n int) {
	if len(r.stage) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

// Step returns x advanced by dt. Derivatives are copied out of the system
// so it may reuse its output buffer between calls.
func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	r.ensureScratch(len(x))
	k1, k2, k3, k4 := r.k[0], r.k[1], r.k[2], r.k[3]

	copy(k1, sys.Derive(x, t))
	floats.AddScaledTo(r.stage, x, dt/2, k1)
	copy(k2, sys.Derive(r.stage, t+dt/2))
	floats.AddScaledTo(r.stage, x, dt/2, k2)
	copy(k3, sys.Derive(r.stage, t+dt/2))
	floats.AddScaledTo(r.stage, x, dt, k3)
	copy(k4, sys.Derive(r.stage, t+dt))

	out := x.Clone()
	floats.AddScaled(out, dt/6, k1)
	floats.AddScaled(out, dt/3, k2)
	floats.AddScaled(out, dt/3, k3)
	floats.AddScaled(out, dt/6, k4)
	return out
}

func (r *RK4) Try(sys dynamo.System, x dynamo.State, t, dt float64, _ dynamo.Tolerance) (dynamo.Trial, error) {
	return dynamo.Trial{X: r.Step(sys, x, t, dt), Evals: 4}, nil
}
