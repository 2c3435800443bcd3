package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/protocol"
	"github.com/san-kum/chansens/internal/sensitivity"
)

type GradientResult struct {
	Param int
	Eps   float64
	// MaxAnalytic is max_t |dI/dp_j|, MaxError is max_t of the absolute
	// difference to the central difference.
	MaxAnalytic float64
	MaxError    float64
}

// Relative is MaxError scaled by MaxAnalytic.
func (g GradientResult) Relative() float64 {
	if g.MaxAnalytic == 0 {
		return math.Inf(1)
	}
	return g.MaxError / g.MaxAnalytic
}

// GradientCheck compares analytic current sensitivities with central
// differences for the given parameter indices, using eps = relEps*|p_j|.
func GradientCheck(ctx context.Context, eqs *sensitivity.Equations, params []float64, proto protocol.Protocol,
	grid []float64, cfg dynamo.Config, erev float64, indices []int, relEps float64) ([]GradientResult, error) {

	current := func(p []float64) (*sensitivity.CurrentTrace, error) {
		tr, err := sensitivity.Simulate(ctx, eqs, p, proto, grid, cfg)
		if err != nil {
			return nil, err
		}
		return sensitivity.Current(tr, p, proto, erev)
	}

	base, err := current(params)
	if err != nil {
		return nil, err
	}

	results := make([]GradientResult, 0, len(indices))
	for _, j := range indices {
		if j < 0 || j >= len(params) {
			return nil, &dynamo.ConfigurationError{Field: "indices", Message: fmt.Sprintf("parameter %d out of range", j)}
		}
		eps := relEps * math.Abs(params[j])
		if eps == 0 {
			eps = relEps
		}

		plus := append([]float64(nil), params...)
		minus := append([]float64(nil), params...)
		plus[j] += eps
		minus[j] -= eps

		up, err := current(plus)
		if err != nil {
			return nil, fmt.Errorf("p%d + eps: %w", j+1, err)
		}
		down, err := current(minus)
		if err != nil {
			return nil, fmt.Errorf("p%d - eps: %w", j+1, err)
		}

		r := GradientResult{Param: j, Eps: eps}
		for k := range grid {
			an := base.Sens[k][j]
			fd := (up.Current[k] - down.Current[k]) / (2 * eps)
			r.MaxAnalytic = math.Max(r.MaxAnalytic, math.Abs(an))
			r.MaxError = math.Max(r.MaxError, math.Abs(an-fd))
		}
		results = append(results, r)
	}
	return results, nil
}
