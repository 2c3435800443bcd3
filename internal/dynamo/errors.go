package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for model construction and simulation.
var (
	// ErrConfiguration indicates a parameter vector or model layout mismatch.
	ErrConfiguration = errors.New("dynamo: configuration error")

	// ErrDerivation indicates an expression that cannot be differentiated.
	ErrDerivation = errors.New("dynamo: derivation error")

	// ErrIntegration indicates the solver could not meet its tolerance
	// within the step budget.
	ErrIntegration = errors.New("dynamo: integration error")

	// ErrInvariant indicates occupancies left [0,1] or stopped summing to at
	// most one.
	ErrInvariant = errors.New("dynamo: invariant violation")

	// ErrDegenerate indicates an information matrix with no positive
	// eigenvalue.
	ErrDegenerate = errors.New("dynamo: degenerate information matrix")
)

type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

type DerivationError struct {
	Expr    string
	Wrt     string
	Message string
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derivation: d(%s)/d%s: %s", e.Expr, e.Wrt, e.Message)
}

func (e *DerivationError) Unwrap() error { return ErrDerivation }

// IntegrationError wraps a solver failure with simulation context.
type IntegrationError struct {
	Step    int
	Time    float64
	Dt      float64
	Message string
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration: step %d (t=%.6g, dt=%.3g): %s", e.Step, e.Time, e.Dt, e.Message)
}

func (e *IntegrationError) Unwrap() error { return ErrIntegration }

// InvariantViolation is a diagnostic attached to results, not a fatal
// error.
type InvariantViolation struct {
	Sample int
	Time   float64
	Values []float64
	Reason string
}

func (e InvariantViolation) Error() string {
	return fmt.Sprintf("invariant: sample %d (t=%.6g) %v: %s", e.Sample, e.Time, e.Values, e.Reason)
}

func (e InvariantViolation) Unwrap() error { return ErrInvariant }
