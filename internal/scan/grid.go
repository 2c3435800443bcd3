// Package scan evaluates the analysis over a grid of parameter vectors,
// e.g. to see how the identifiability spectrum changes with the
// conductance or one rate exponent.
package scan

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/chansens/internal/experiment"
)

// Axis varies one parameter over a list of values.
type Axis struct {
	Index  int
	Values []float64
}

type Grid struct {
	axes []Axis
}

func NewGrid(axes ...Axis) *Grid {
	return &Grid{axes: axes}
}

// Point is one evaluated grid point. Metrics is nil when the run failed.
type Point struct {
	Params      []float64
	Metrics     map[string]float64
	Eigenvalues []float64
	Violations  int
	Err         error
}

// Value returns the named metric, NaN when missing or the run failed.
func (p Point) Value(name string) float64 {
	if v, ok := p.Metrics[name]; ok {
		return v
	}
	return math.NaN()
}

// Points expands the grid around base in row-major order, the last axis
// varying fastest.
func (g *Grid) Points(base []float64) ([][]float64, error) {
	total := 1
	for _, ax := range g.axes {
		if ax.Index < 0 || ax.Index >= len(base) {
			return nil, fmt.Errorf("axis index %d out of range for %d parameters", ax.Index, len(base))
		}
		if len(ax.Values) == 0 {
			return nil, fmt.Errorf("axis %d has no values", ax.Index)
		}
		total *= len(ax.Values)
	}

	points := make([][]float64, 0, total)
	g.expand(0, append([]float64(nil), base...), &points)
	return points, nil
}

func (g *Grid) expand(depth int, current []float64, out *[][]float64) {
	if depth == len(g.axes) {
		*out = append(*out, append([]float64(nil), current...))
		return
	}

	ax := g.axes[depth]
	for _, val := range ax.Values {
		current[ax.Index] = val
		g.expand(depth+1, current, out)
	}
}

// Run analyses every grid point with the protocol and settings of base.
// A failed point keeps its error and does not stop the others; flagged
// runs (invariant violations) are reported, not dropped.
func (g *Grid) Run(ctx context.Context, registry *experiment.Registry, base experiment.Config) ([]Point, error) {
	params, err := g.Points(base.Params)
	if err != nil {
		return nil, err
	}

	results, errs := experiment.Sweep(ctx, registry, base, params)

	points := make([]Point, len(params))
	for i, res := range results {
		points[i] = Point{Params: params[i], Err: errs[i]}
		if res == nil {
			continue
		}
		points[i].Metrics = res.Metrics
		points[i].Eigenvalues = res.Spectrum.Normalized
		points[i].Violations = len(res.Diagnostics)
	}
	return points, ctx.Err()
}
