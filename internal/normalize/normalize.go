// Package normalize rescales current sensitivities so that parameters of
// very different magnitude can be compared.
package normalize

import (
	"fmt"
	"math"

	"github.com/san-kum/chansens/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Policy turns raw sensitivities dI/dp (samples x parameters) into
// normalized ones. Implementations must not modify their inputs.
type Policy interface {
	Name() string
	Normalize(raw [][]float64, params, current []float64) ([][]float64, error)
}

// ParameterScaling multiplies each column by its parameter value, giving
// dI/dln(p).
type ParameterScaling struct{}

func (ParameterScaling) Name() string { return "parameter" }

func (ParameterScaling) Normalize(raw [][]float64, params, current []float64) ([][]float64, error) {
	if err := checkShape(raw, params); err != nil {
		return nil, err
	}
	out := make([][]float64, len(raw))
	for k, row := range raw {
		out[k] = make([]float64, len(params))
		floats.MulTo(out[k], row, params)
	}
	return out, nil
}

// RelativeScaling additionally divides by the largest absolute current,
// making the result dimensionless.
type RelativeScaling struct{}

func (RelativeScaling) Name() string { return "relative" }

func (RelativeScaling) Normalize(raw [][]float64, params, current []float64) ([][]float64, error) {
	out, err := ParameterScaling{}.Normalize(raw, params, current)
	if err != nil {
		return nil, err
	}
	if len(current) != len(raw) {
		return nil, &dynamo.ConfigurationError{Field: "current", Message: fmt.Sprintf("%d current samples for %d sensitivity rows", len(current), len(raw))}
	}
	peak := floats.Norm(current, math.Inf(1))
	if peak == 0 {
		return nil, fmt.Errorf("relative scaling: current is identically zero: %w", dynamo.ErrDegenerate)
	}
	for _, row := range out {
		floats.Scale(1/peak, row)
	}
	return out, nil
}

func checkShape(raw [][]float64, params []float64) error {
	for k, row := range raw {
		if len(row) != len(params) {
			return &dynamo.ConfigurationError{
				Field:   "sensitivities",
				Message: fmt.Sprintf("row %d has %d columns for %d parameters", k, len(row), len(params)),
			}
		}
	}
	return nil
}

// ByName returns the policy for a configuration value. The empty string
// selects ParameterScaling.
func ByName(name string) (Policy, error) {
	switch name {
	case "", "parameter":
		return ParameterScaling{}, nil
	case "relative":
		return RelativeScaling{}, nil
	}
	return nil, &dynamo.ConfigurationError{Field: "normalization", Message: fmt.Sprintf("unknown policy %q", name)}
}

// Names lists the known policies.
func Names() []string { return []string{"parameter", "relative"} }
