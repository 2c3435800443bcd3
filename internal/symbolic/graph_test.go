package symbolic

import (
	"math"
	"testing"
)

func TestHashConsing(t *testing.T) {
	g := NewGraph()
	x, y := g.Var("x"), g.Var("y")

	if g.Var("x") != x {
		t.Error("Var should return the same node for the same name")
	}
	if g.Const(2.5) != g.Const(2.5) {
		t.Error("equal constants should share a node")
	}
	if g.Add(x, y) != g.Add(y, x) {
		t.Error("Add should be canonical in operand order")
	}
	if g.Mul(x, y) != g.Mul(y, x) {
		t.Error("Mul should be canonical in operand order")
	}

	before := g.Len()
	e1 := g.Exp(g.Mul(g.Const(3), x))
	after := g.Len()
	e2 := g.Exp(g.Mul(g.Const(3), x))
	if e1 != e2 {
		t.Error("structurally equal expressions should share a node")
	}
	if g.Len() != after || after <= before {
		t.Errorf("rebuilding an existing expression added nodes: %d -> %d -> %d", before, after, g.Len())
	}
}

func TestSimplify(t *testing.T) {
	g := NewGraph()
	x, y := g.Var("x"), g.Var("y")

	tests := []struct {
		name string
		got  Expr
		want Expr
	}{
		{"x+0", g.Add(x, g.Const(0)), x},
		{"0+x", g.Add(g.Const(0), x), x},
		{"x*1", g.Mul(x, g.Const(1)), x},
		{"x*0", g.Mul(x, g.Const(0)), g.Const(0)},
		{"x-x", g.Sub(x, x), g.Const(0)},
		{"x+x", g.Add(x, x), g.Mul(g.Const(2), x)},
		{"2x+3x", g.Add(g.Mul(g.Const(2), x), g.Mul(g.Const(3), x)), g.Mul(g.Const(5), x)},
		{"2*(3*x)", g.Mul(g.Const(2), g.Mul(g.Const(3), x)), g.Mul(g.Const(6), x)},
		{"(2x)*(3y)", g.Mul(g.Mul(g.Const(2), x), g.Mul(g.Const(3), y)), g.Mul(g.Const(6), g.Mul(x, y))},
		{"x*x", g.Mul(x, x), g.Pow(x, 2)},
		{"x*x^-1", g.Mul(x, g.Pow(x, -1)), g.Const(1)},
		{"x^1", g.Pow(x, 1), x},
		{"(x^2)^3", g.Pow(g.Pow(x, 2), 3), g.Pow(x, 6)},
		{"exp(x)^2", g.Pow(g.Exp(x), 2), g.Exp(g.Mul(g.Const(2), x))},
		{"log(exp(x))", g.Log(g.Exp(x)), x},
		{"1+2", g.Add(g.Const(1), g.Const(2)), g.Const(3)},
		{"exp(0)", g.Exp(g.Const(0)), g.Const(1)},
		{"-(-x)", g.Neg(g.Neg(x)), x},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", g.String(tt.got), g.String(tt.want))
			}
		})
	}
}

func TestString(t *testing.T) {
	g := NewGraph()
	x, y := g.Var("x"), g.Var("y")

	tests := []struct {
		expr Expr
		want string
	}{
		{g.Sub(x, y), "x - y"},
		{g.Add(x, g.Const(-2)), "x - 2"},
		{g.Neg(x), "-x"},
		{g.Mul(g.Add(x, y), y), "y*(x + y)"},
		{g.Exp(g.Mul(g.Const(2), x)), "exp(2*x)"},
		{g.Pow(g.Add(x, y), 2), "(x + y)^2"},
		{g.Pow(x, -1), "x^(-1)"},
	}

	for _, tt := range tests {
		if got := g.String(tt.expr); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestEval(t *testing.T) {
	g := NewGraph()
	x, y := g.Var("x"), g.Var("y")
	e := g.Add(g.Mul(g.Sin(x), g.Exp(y)), g.Log(g.Pow(x, 2)))

	got, err := g.Eval(e, map[Expr]float64{x: 0.7, y: -1.2})
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	want := math.Sin(0.7)*math.Exp(-1.2) + math.Log(0.49)
	if math.Abs(got-want) > 1e-14 {
		t.Errorf("Eval = %v, want %v", got, want)
	}

	if _, err := g.Eval(e, map[Expr]float64{x: 1}); err == nil {
		t.Error("expected unbound variable error")
	}
}
