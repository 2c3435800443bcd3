package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a non-autonomous ODE dx/dt = f(x, t). Any forcing (the
// membrane voltage) is evaluated inside Derive at the requested time.
type System interface {
	Derive(x State, t float64) State
	Dim() int
}

// JacobianSystem additionally provides df/dx and the explicit time
// derivative df/dt, as needed by Rosenbrock-type stiff steppers.
type JacobianSystem interface {
	System
	Jacobian(x State, t float64, jac *mat.Dense)
	TimeDerivative(x State, t float64) State
}

// Breakpointer reports times at which the right-hand side is
// discontinuous. Solvers stop exactly on them.
type Breakpointer interface {
	Breakpoints() []float64
}

// Stepper advances a system by one trial step of size dt and reports the
// scaled error norm of that step (accept when <= 1). Order is the power of
// dt in the local error estimate and sets the step-size exponent -1/Order.
type Stepper interface {
	Name() string
	Order() int
	Try(sys System, x State, t, dt float64, tol Tolerance) (Trial, error)
}

type Tolerance struct {
	Rel float64
	Abs float64
}

// Scale returns the error weight for component values a and b.
func (tol Tolerance) Scale(a, b float64) float64 {
	return tol.Abs + tol.Rel*math.Max(math.Abs(a), math.Abs(b))
}

type Trial struct {
	X       State
	ErrNorm float64
	// Stiffness is an estimate of |h*lambda| along the step; zero when the
	// stepper does not measure it.
	Stiffness float64
	// Evals counts right-hand side evaluations, Jacobians included.
	Evals int
}

type Metric interface {
	Name() string
	Observe(t float64, values []float64)
	Value() float64
	Reset()
}

type Config struct {
	Method    string
	RelTol    float64
	AbsTol    float64
	InitialDt float64
	MinDt     float64
	MaxDt     float64
	MaxSteps  int
}

func DefaultConfig() Config {
	return Config{
		Method:    "auto",
		RelTol:    1e-8,
		AbsTol:    1e-10,
		InitialDt: 1e-3,
		MinDt:     1e-12,
		MaxDt:     0,
		MaxSteps:  500000,
	}
}

func (c Config) Tolerance() Tolerance {
	return Tolerance{Rel: c.RelTol, Abs: c.AbsTol}
}

func (c Config) Validate() error {
	if c.RelTol <= 0 || c.AbsTol <= 0 {
		return &ConfigurationError{Field: "tolerance", Message: fmt.Sprintf("rel=%g abs=%g must be positive", c.RelTol, c.AbsTol)}
	}
	if c.MaxSteps <= 0 {
		return &ConfigurationError{Field: "max_steps", Message: fmt.Sprintf("must be positive, got %d", c.MaxSteps)}
	}
	if c.MinDt < 0 || c.MaxDt < 0 || c.InitialDt < 0 {
		return &ConfigurationError{Field: "dt", Message: "step bounds must not be negative"}
	}
	return nil
}

type Result struct {
	States      []State
	Times       []float64
	StepsTaken  int
	Rejected    int
	Evaluations int
	Method      string
	Switched    bool
}
