package symbolic

import (
	"github.com/san-kum/chansens/internal/dynamo"
)

// Diff returns the exact partial derivative of e with respect to the
// variable wrt. Results are memoized per (e, wrt) pair, so repeated
// differentiation of shared subexpressions is free.
//
// Abs and Step are not differentiable where their argument depends on wrt;
// reaching one returns a *dynamo.DerivationError.
func (g *Graph) Diff(e, wrt Expr) (Expr, error) {
	if g.nodes[wrt].op != OpVar {
		return -1, &dynamo.DerivationError{
			Expr:    g.String(e),
			Wrt:     g.String(wrt),
			Message: "can only differentiate with respect to a variable",
		}
	}
	return g.diff(e, wrt)
}

func (g *Graph) diff(e, wrt Expr) (Expr, error) {
	k := [2]Expr{e, wrt}
	if d, ok := g.diffs[k]; ok {
		return d, nil
	}

	n := g.nodes[e]
	var (
		d   Expr
		err error
	)
	switch n.op {
	case OpConst:
		d = g.Const(0)
	case OpVar:
		if e == wrt {
			d = g.Const(1)
		} else {
			d = g.Const(0)
		}
	case OpAdd:
		var da, db Expr
		if da, err = g.diff(n.a, wrt); err != nil {
			return -1, err
		}
		if db, err = g.diff(n.b, wrt); err != nil {
			return -1, err
		}
		d = g.Add(da, db)
	case OpMul:
		var da, db Expr
		if da, err = g.diff(n.a, wrt); err != nil {
			return -1, err
		}
		if db, err = g.diff(n.b, wrt); err != nil {
			return -1, err
		}
		d = g.Add(g.Mul(da, n.b), g.Mul(n.a, db))
	default:
		var da Expr
		if da, err = g.diff(n.a, wrt); err != nil {
			return -1, err
		}
		if g.IsZero(da) {
			d = da
			break
		}
		var outer Expr
		if outer, err = g.outerDerivative(e, wrt); err != nil {
			return -1, err
		}
		d = g.Mul(outer, da)
	}

	g.diffs[k] = d
	return d, nil
}

// outerDerivative returns f'(a) for a unary node f(a).
func (g *Graph) outerDerivative(e, wrt Expr) (Expr, error) {
	n := g.nodes[e]
	switch n.op {
	case OpPow:
		return g.Mul(g.Const(n.c), g.Pow(n.a, n.c-1)), nil
	case OpExp:
		return e, nil
	case OpLog:
		return g.Pow(n.a, -1), nil
	case OpSin:
		return g.Cos(n.a), nil
	case OpCos:
		return g.Neg(g.Sin(n.a)), nil
	}
	return -1, &dynamo.DerivationError{
		Expr:    g.String(e),
		Wrt:     g.nodes[wrt].name,
		Message: n.op.String() + " is not differentiable",
	}
}

// Gradient differentiates e with respect to each variable in wrt.
func (g *Graph) Gradient(e Expr, wrt []Expr) ([]Expr, error) {
	out := make([]Expr, len(wrt))
	for i, w := range wrt {
		d, err := g.Diff(e, w)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// Jacobian returns J[i][j] = d exprs[i] / d wrt[j].
func (g *Graph) Jacobian(exprs, wrt []Expr) ([][]Expr, error) {
	jac := make([][]Expr, len(exprs))
	for i, e := range exprs {
		row, err := g.Gradient(e, wrt)
		if err != nil {
			return nil, err
		}
		jac[i] = row
	}
	return jac, nil
}
