package sensitivity

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/integrators"
	"github.com/san-kum/chansens/internal/kinetics"
	"github.com/san-kum/chansens/internal/protocol"
)

// Trajectory holds occupancies and state sensitivities at each sample.
type Trajectory struct {
	Times  []float64
	States []kinetics.Occupancy
	// Sens[k] is S at sample k, row-major with NumParams columns.
	Sens [][]float64

	NumParams   int
	Open        int
	Conductance int

	Stats Stats
}

type Stats struct {
	Method      string
	Steps       int
	Rejected    int
	Evaluations int
	Switched    bool
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

// S returns dy_i/dp_j at sample k.
func (tr *Trajectory) S(k, i, j int) float64 {
	return tr.Sens[k][i*tr.NumParams+j]
}

// Row returns dy_i/dp at sample k without copying.
func (tr *Trajectory) Row(k, i int) []float64 {
	return tr.Sens[k][i*tr.NumParams : (i+1)*tr.NumParams]
}

// OpenProbability returns the open-state occupancy at every sample.
func (tr *Trajectory) OpenProbability() []float64 {
	out := make([]float64, len(tr.States))
	for k, occ := range tr.States {
		out[k] = occ[tr.Open]
	}
	return out
}

// Simulate integrates the augmented system for params under proto and
// samples it at grid. The first sample is the initial condition.
func Simulate(ctx context.Context, eqs *Equations, params []float64, proto protocol.Protocol, grid []float64, cfg dynamo.Config) (*Trajectory, error) {
	if len(params) != eqs.NumParams() {
		return nil, &dynamo.ConfigurationError{
			Field:   "params",
			Message: fmt.Sprintf("model %q takes %d parameters, got %d", eqs.Model.Topology.Name, eqs.NumParams(), len(params)),
		}
	}
	for j, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, &dynamo.ConfigurationError{Field: "params", Message: fmt.Sprintf("p%d is not finite", j+1)}
		}
	}

	sys := NewSystem(eqs, params, proto)
	res, err := integrators.Solve(ctx, sys, sys.InitialState(), grid, cfg)
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", eqs.Model.Topology.Name, err)
	}

	ns, np := eqs.NumStates(), eqs.NumParams()
	tp := eqs.Model.Topology
	tr := &Trajectory{
		Times:       res.Times,
		States:      make([]kinetics.Occupancy, len(res.States)),
		Sens:        make([][]float64, len(res.States)),
		NumParams:   np,
		Open:        tp.Open,
		Conductance: tp.ConductanceIndex(),
		Stats: Stats{
			Method:      res.Method,
			Steps:       res.StepsTaken,
			Rejected:    res.Rejected,
			Evaluations: res.Evaluations,
			Switched:    res.Switched,
		},
	}
	for k, x := range res.States {
		copy(tr.States[k][:], x[:ns])
		tr.Sens[k] = append([]float64(nil), x[ns:]...)
	}
	return tr, nil
}

// CheckInvariants reports every sample whose occupancies leave [0,1] or
// sum to more than one by more than tol. The trajectory is not modified.
func CheckInvariants(tr *Trajectory, tol float64) []dynamo.InvariantViolation {
	var out []dynamo.InvariantViolation
	for k, occ := range tr.States {
		if reason := occ.Check(tol); reason != "" {
			out = append(out, dynamo.InvariantViolation{
				Sample: k,
				Time:   tr.Times[k],
				Values: append([]float64(nil), occ[:]...),
				Reason: reason,
			})
		}
	}
	return out
}
