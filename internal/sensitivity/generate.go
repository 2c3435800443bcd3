package sensitivity

import (
	"fmt"
	"strings"

	"github.com/san-kum/chansens/internal/kinetics"
	"github.com/san-kum/chansens/internal/symbolic"
)

// Equations is the compiled augmented system of a model. It is read-only
// after Generate returns and may be shared between goroutines.
type Equations struct {
	Model *kinetics.Model

	// Jy[i][k] = d f_i / d y_k, Jp[i][j] = d f_i / d p_j
	Jy [][]symbolic.Expr
	Jp [][]symbolic.Expr

	// Sens[i][j] is the symbol for S_ij; Aug is the augmented right-hand
	// side over [y, S] in row-major order.
	Sens [][]symbolic.Expr
	Aug  []symbolic.Expr

	rhs    *symbolic.Program
	jac    *symbolic.Program
	jacIdx []entry
	dfdv   *symbolic.Program
}

type entry struct{ row, col int }

// Generate derives the sensitivity equations of m and compiles the
// augmented right-hand side, its sparse Jacobian and its voltage
// derivative.
func Generate(m *kinetics.Model) (*Equations, error) {
	g := m.Graph
	ns, np := m.NumStates(), m.NumParams()

	jy, err := g.Jacobian(m.RHS, m.States)
	if err != nil {
		return nil, fmt.Errorf("state jacobian: %w", err)
	}
	jp, err := g.Jacobian(m.RHS, m.Params)
	if err != nil {
		return nil, fmt.Errorf("parameter jacobian: %w", err)
	}

	eq := &Equations{Model: m, Jy: jy, Jp: jp}

	eq.Sens = make([][]symbolic.Expr, ns)
	for i := range eq.Sens {
		eq.Sens[i] = make([]symbolic.Expr, np)
		for j := range eq.Sens[i] {
			eq.Sens[i][j] = g.Var(fmt.Sprintf("S%d_%d", i, j))
		}
	}

	eq.Aug = make([]symbolic.Expr, 0, ns*(np+1))
	eq.Aug = append(eq.Aug, m.RHS...)
	for i := 0; i < ns; i++ {
		for j := 0; j < np; j++ {
			terms := make([]symbolic.Expr, 0, ns+1)
			for k := 0; k < ns; k++ {
				terms = append(terms, g.Mul(jy[i][k], eq.Sens[k][j]))
			}
			terms = append(terms, jp[i][j])
			eq.Aug = append(eq.Aug, g.Sum(terms...))
		}
	}

	augVars := eq.augmentedVars()
	inputs := eq.inputs()

	if eq.rhs, err = g.Compile(inputs, eq.Aug); err != nil {
		return nil, fmt.Errorf("compile rhs: %w", err)
	}

	full, err := g.Jacobian(eq.Aug, augVars)
	if err != nil {
		return nil, fmt.Errorf("augmented jacobian: %w", err)
	}
	var nonzero []symbolic.Expr
	for r, row := range full {
		for c, d := range row {
			if g.IsZero(d) {
				continue
			}
			eq.jacIdx = append(eq.jacIdx, entry{r, c})
			nonzero = append(nonzero, d)
		}
	}
	if eq.jac, err = g.Compile(inputs, nonzero); err != nil {
		return nil, fmt.Errorf("compile jacobian: %w", err)
	}

	dfdv := make([]symbolic.Expr, len(eq.Aug))
	for i, f := range eq.Aug {
		if dfdv[i], err = g.Diff(f, m.Voltage); err != nil {
			return nil, fmt.Errorf("voltage derivative: %w", err)
		}
	}
	if eq.dfdv, err = g.Compile(inputs, dfdv); err != nil {
		return nil, fmt.Errorf("compile voltage derivative: %w", err)
	}

	return eq, nil
}

func (eq *Equations) augmentedVars() []symbolic.Expr {
	vars := append([]symbolic.Expr(nil), eq.Model.States...)
	for _, row := range eq.Sens {
		vars = append(vars, row...)
	}
	return vars
}

// inputs is the program input layout: augmented vector, parameters,
// voltage.
func (eq *Equations) inputs() []symbolic.Expr {
	in := eq.augmentedVars()
	in = append(in, eq.Model.Params...)
	return append(in, eq.Model.Voltage)
}

func (eq *Equations) NumStates() int { return eq.Model.NumStates() }

func (eq *Equations) NumParams() int { return eq.Model.NumParams() }

// Dim is the length of the augmented vector.
func (eq *Equations) Dim() int { return len(eq.Aug) }

// NumInputs is the length of the program input vector.
func (eq *Equations) NumInputs() int { return eq.rhs.NumInputs() }

// JacobianNonzeros reports how many entries of the augmented Jacobian are
// structurally non-zero.
func (eq *Equations) JacobianNonzeros() int { return len(eq.jacIdx) }

// Index returns the position of S_ij in the augmented vector.
func (eq *Equations) Index(i, j int) int {
	return eq.NumStates() + i*eq.NumParams() + j
}

// Describe renders the model, the Jacobians and the sensitivity equations.
func (eq *Equations) Describe() string {
	g := eq.Model.Graph
	names := eq.Model.Topology.States

	var sb strings.Builder
	sb.WriteString(eq.Model.Describe())
	sb.WriteByte('\n')
	for i, row := range eq.Jy {
		for k, d := range row {
			if g.IsZero(d) {
				continue
			}
			fmt.Fprintf(&sb, "df_%s/d%s = %s\n", names[i], names[k], g.String(d))
		}
	}
	sb.WriteByte('\n')
	for i, row := range eq.Jp {
		for j, d := range row {
			if g.IsZero(d) {
				continue
			}
			fmt.Fprintf(&sb, "df_%s/dp%d = %s\n", names[i], j+1, g.String(d))
		}
	}
	sb.WriteByte('\n')
	for i := range eq.Sens {
		for j := range eq.Sens[i] {
			fmt.Fprintf(&sb, "d%s/dt = %s\n", g.Name(eq.Sens[i][j]), g.String(eq.Aug[eq.Index(i, j)]))
		}
	}
	return sb.String()
}
