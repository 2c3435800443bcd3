package symbolic

import (
	"fmt"
	"math"
)

// Eval interprets e directly. It is meant for tests and one-off
// evaluation; use Compile on hot paths.
func (g *Graph) Eval(e Expr, env map[Expr]float64) (float64, error) {
	memo := make(map[Expr]float64)
	return g.eval(e, env, memo)
}

func (g *Graph) eval(e Expr, env map[Expr]float64, memo map[Expr]float64) (float64, error) {
	if v, ok := memo[e]; ok {
		return v, nil
	}
	n := g.nodes[e]

	var a, b float64
	var err error
	switch n.op {
	case OpConst:
		return n.c, nil
	case OpVar:
		v, ok := env[e]
		if !ok {
			return 0, fmt.Errorf("symbolic: unbound variable %q", n.name)
		}
		return v, nil
	case OpAdd, OpMul:
		if b, err = g.eval(n.b, env, memo); err != nil {
			return 0, err
		}
	}
	if a, err = g.eval(n.a, env, memo); err != nil {
		return 0, err
	}

	v := apply(n.op, a, b, n.c)
	memo[e] = v
	return v, nil
}

func apply(op Op, a, b, c float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpMul:
		return a * b
	case OpPow:
		return pow(a, c)
	case OpExp:
		return math.Exp(a)
	case OpLog:
		return math.Log(a)
	case OpSin:
		return math.Sin(a)
	case OpCos:
		return math.Cos(a)
	case OpAbs:
		return math.Abs(a)
	case OpStep:
		return heaviside(a)
	}
	panic("symbolic: unknown op " + op.String())
}

func pow(x, c float64) float64 {
	switch c {
	case 2:
		return x * x
	case -1:
		return 1 / x
	case 0.5:
		return math.Sqrt(x)
	}
	return math.Pow(x, c)
}
