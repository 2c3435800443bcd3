package integrators

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/san-kum/chansens/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Step-size controller constants.
const (
	safety   = 0.9
	minScale = 0.2
	maxScale = 5.0
)

// Stiffness switching follows Hairer: a problem is declared stiff after
// stiffSteps accepted steps with h*lambda above StiffnessBound, and the
// count resets after resetSteps steps below it.
const (
	stiffSteps = 15
	resetSteps = 6
)

// Methods lists the names accepted by New and Solve.
func Methods() []string {
	return []string{"auto", "dopri5", "rosenbrock23", "rk4"}
}

// New returns a fresh stepper by name. "auto" starts on dopri5.
func New(method string) (dynamo.Stepper, error) {
	switch method {
	case "dopri5", "rk45", "auto":
		return NewRK45(), nil
	case "rosenbrock23", "ode23s":
		return NewRosenbrock23(), nil
	case "rk4":
		return NewRK4(), nil
	}
	return nil, &dynamo.ConfigurationError{Field: "method", Message: fmt.Sprintf("unknown integration method %q", method)}
}

type fixed interface{ fixedStep() }

// Solve integrates sys from grid[0] and returns the state at every grid
// time. Steps land exactly on grid times and on any breakpoints sys
// reports. A failure returns no partial result.
func Solve(ctx context.Context, sys dynamo.System, x0 dynamo.State, grid []float64, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkGrid(grid); err != nil {
		return nil, err
	}
	if len(x0) != sys.Dim() {
		return nil, &dynamo.ConfigurationError{Field: "state", Message: fmt.Sprintf("initial state has %d components, system has %d", len(x0), sys.Dim())}
	}

	stepper, err := New(cfg.Method)
	if err != nil {
		return nil, err
	}
	_, isFixed := stepper.(fixed)
	auto := cfg.Method == "auto"

	log := slog.Default().With("component", "integrator")

	res := &dynamo.Result{
		Times:  append([]float64(nil), grid...),
		States: make([]dynamo.State, 0, len(grid)),
	}
	res.States = append(res.States, x0.Clone())

	tol := cfg.Tolerance()
	t0, tEnd := grid[0], grid[len(grid)-1]
	x := x0.Clone()
	t := t0

	dt := cfg.InitialDt
	if dt <= 0 {
		dt = 1e-3 * math.Max(tEnd-t0, 1)
	}

	stiffCount, calmCount := 0, 0
	steps := 0

	stopTimes, jumps := stops(grid, sys)
	for _, stop := range stopTimes {
		// steps ending on a jump see the left limit of the right-hand side
		target := sys
		if jumps[stop] {
			target = leftOf(sys, stop)
		}

		for t < stop {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("integration cancelled at t=%g: %w", t, err)
			}
			if steps >= cfg.MaxSteps {
				return nil, &dynamo.IntegrationError{Step: steps, Time: t, Dt: dt, Message: fmt.Sprintf("step budget of %d exhausted", cfg.MaxSteps)}
			}

			h := dt
			if cfg.MaxDt > 0 && h > cfg.MaxDt {
				h = cfg.MaxDt
			}
			landing := false
			if remaining := stop - t; h >= remaining || remaining-h <= 1e-12*math.Max(math.Abs(stop), 1) {
				h = remaining
				landing = true
			}

			stepSys := sys
			if landing {
				stepSys = target
			}
			trial, err := stepper.Try(stepSys, x, t, h, tol)
			res.Evaluations += trial.Evals
			steps++

			if err != nil || !trial.X.IsValid() {
				res.Rejected++
				dt = h * minScale
				if isFixed || dt < cfg.MinDt {
					msg := "non-finite state"
					if err != nil {
						msg = err.Error()
					}
					return nil, &dynamo.IntegrationError{Step: steps, Time: t, Dt: h, Message: msg}
				}
				continue
			}

			if isFixed {
				t = advance(t, h, stop, landing)
				x = trial.X
				res.StepsTaken++
				continue
			}

			factor := maxScale
			if trial.ErrNorm > 0 {
				factor = safety * math.Pow(trial.ErrNorm, -1/float64(stepper.Order()))
				factor = math.Max(minScale, math.Min(maxScale, factor))
			}

			if trial.ErrNorm > 1 {
				res.Rejected++
				dt = h * factor
				if dt < cfg.MinDt {
					return nil, &dynamo.IntegrationError{Step: steps, Time: t, Dt: dt, Message: fmt.Sprintf("step size fell below minimum %g", cfg.MinDt)}
				}
				continue
			}

			t = advance(t, h, stop, landing)
			x = trial.X
			res.StepsTaken++

			next := h * factor
			if landing && next < dt {
				// a truncated step says nothing about the natural step size
				next = dt
			}
			dt = next

			if auto {
				if trial.Stiffness > StiffnessBound {
					stiffCount++
					calmCount = 0
				} else if stiffCount > 0 {
					calmCount++
					if calmCount >= resetSteps {
						stiffCount, calmCount = 0, 0
					}
				}
				if stiffCount >= stiffSteps {
					log.Info("stiffness detected, switching method", "t", t, "from", stepper.Name(), "to", "rosenbrock23")
					stepper = NewRosenbrock23()
					auto = false
					res.Switched = true
				}
			}
		}

		if i := gridIndex(grid, stop); i > 0 {
			res.States = append(res.States, x.Clone())
		}
	}

	res.Method = stepper.Name()
	log.Debug("integration finished",
		"method", res.Method,
		"steps", res.StepsTaken,
		"rejected", res.Rejected,
		"evaluations", res.Evaluations,
		"switched", res.Switched,
	)
	return res, nil
}

func advance(t, h, stop float64, landing bool) float64 {
	if landing {
		return stop
	}
	return t + h
}

func checkGrid(grid []float64) error {
	if len(grid) == 0 {
		return &dynamo.ConfigurationError{Field: "grid", Message: "empty sample grid"}
	}
	for i, v := range grid {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &dynamo.ConfigurationError{Field: "grid", Message: fmt.Sprintf("sample %d is not finite", i)}
		}
		if i > 0 && v <= grid[i-1] {
			return &dynamo.ConfigurationError{Field: "grid", Message: fmt.Sprintf("sample times must increase strictly (index %d)", i)}
		}
	}
	return nil
}

// stops merges grid times after grid[0] with breakpoints inside the span
// and reports which stops are breakpoints.
func stops(grid []float64, sys dynamo.System) ([]float64, map[float64]bool) {
	out := append([]float64(nil), grid[1:]...)
	jumps := make(map[float64]bool)
	if bp, ok := sys.(dynamo.Breakpointer); ok {
		t0, tEnd := grid[0], grid[len(grid)-1]
		for _, b := range bp.Breakpoints() {
			if b > t0 && b < tEnd {
				out = append(out, b)
				jumps[b] = true
			}
		}
		sort.Float64s(out)
		uniq := out[:0]
		for i, v := range out {
			if i == 0 || v != uniq[len(uniq)-1] {
				uniq = append(uniq, v)
			}
		}
		out = uniq
	}
	return out, jumps
}

// leftLimit evaluates sys just before a jump for any time at or past it.
type leftLimit struct {
	sys  dynamo.System
	edge float64
}

func (l leftLimit) clamp(t float64) float64 {
	if t >= l.edge {
		return math.Nextafter(l.edge, math.Inf(-1))
	}
	return t
}

func (l leftLimit) Dim() int { return l.sys.Dim() }

func (l leftLimit) Derive(x dynamo.State, t float64) dynamo.State {
	return l.sys.Derive(x, l.clamp(t))
}

type leftLimitJacobian struct {
	leftLimit
	js dynamo.JacobianSystem
}

func (l leftLimitJacobian) Jacobian(x dynamo.State, t float64, jac *mat.Dense) {
	l.js.Jacobian(x, l.clamp(t), jac)
}

func (l leftLimitJacobian) TimeDerivative(x dynamo.State, t float64) dynamo.State {
	return l.js.TimeDerivative(x, l.clamp(t))
}

func leftOf(sys dynamo.System, edge float64) dynamo.System {
	ll := leftLimit{sys: sys, edge: edge}
	if js, ok := sys.(dynamo.JacobianSystem); ok {
		return leftLimitJacobian{leftLimit: ll, js: js}
	}
	return ll
}

// gridIndex returns the index of t in grid, or -1.
func gridIndex(grid []float64, t float64) int {
	i := sort.SearchFloat64s(grid, t)
	if i < len(grid) && grid[i] == t {
		return i
	}
	return -1
}
