package kinetics

import (
	"fmt"
	"strings"

	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/symbolic"
)

// Model is the symbolic form of a kinetic scheme. It is built once per
// topology and never modified afterwards.
type Model struct {
	Topology *Topology
	Graph    *symbolic.Graph
	Params   []symbolic.Expr
	States   []symbolic.Expr
	Voltage  symbolic.Expr
	Rates    []symbolic.Expr
	RHS      []symbolic.Expr
}

// Build creates parameter, state and voltage symbols, the rate constants
// and the right-hand side of the occupancy ODE. nParams must equal the
// layout the topology implies.
func Build(tp *Topology, nParams int) (*Model, error) {
	if err := tp.Validate(); err != nil {
		return nil, err
	}
	if nParams != tp.NumParams() {
		return nil, &dynamo.ConfigurationError{
			Field:   "params",
			Message: fmt.Sprintf("%d rate constants need %d parameters, got %d", len(tp.Rates), tp.NumParams(), nParams),
		}
	}

	g := symbolic.NewGraph()
	m := &Model{
		Topology: tp,
		Graph:    g,
		Params:   make([]symbolic.Expr, nParams),
		States:   make([]symbolic.Expr, len(tp.States)),
		Voltage:  g.Var("V"),
	}
	for i := range m.Params {
		m.Params[i] = g.Var(fmt.Sprintf("p%d", i))
	}
	for i := range m.States {
		m.States[i] = g.Var(fmt.Sprintf("y%d", i))
	}

	m.Rates = make([]symbolic.Expr, len(tp.Rates))
	for r, form := range tp.Rates {
		scale, exponent := m.Params[2*r], m.Params[2*r+1]
		arg := g.Mul(g.Const(form.Sign), g.Mul(exponent, m.Voltage))
		m.Rates[r] = g.Mul(scale, g.Exp(arg))
	}

	// implied state by conservation
	occ := append([]symbolic.Expr(nil), m.States...)
	occ = append(occ, g.Sub(g.Const(1), g.Sum(m.States...)))

	n := len(m.States)
	rhs := make([]symbolic.Expr, n)
	for i := range rhs {
		rhs[i] = g.Const(0)
	}
	for _, tr := range tp.Trans {
		flux := g.Mul(m.Rates[tr.Rate], occ[tr.From])
		if tr.From < n {
			rhs[tr.From] = g.Sub(rhs[tr.From], flux)
		}
		if tr.To < n {
			rhs[tr.To] = g.Add(rhs[tr.To], flux)
		}
	}
	m.RHS = rhs

	return m, nil
}

func (m *Model) NumParams() int { return len(m.Params) }

func (m *Model) NumStates() int { return len(m.States) }

// ParamLabels returns 1-based labels p1..pN.
func (m *Model) ParamLabels() []string {
	labels := make([]string, len(m.Params))
	for i := range labels {
		labels[i] = fmt.Sprintf("p%d", i+1)
	}
	return labels
}

// Describe renders the rate constants and the right-hand side.
func (m *Model) Describe() string {
	var sb strings.Builder
	g := m.Graph
	for r, k := range m.Rates {
		fmt.Fprintf(&sb, "%s = %s\n", m.Topology.Rates[r].Name, g.String(k))
	}
	for i, f := range m.RHS {
		fmt.Fprintf(&sb, "d%s/dt = %s\n", m.Topology.States[i], g.String(f))
	}
	return sb.String()
}
