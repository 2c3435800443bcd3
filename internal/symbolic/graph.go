package symbolic

import (
	"fmt"
	"math"
)

type Op uint8

const (
	OpConst Op = iota
	OpVar
	OpAdd
	OpMul
	OpPow
	OpExp
	OpLog
	OpSin
	OpCos
	OpAbs
	OpStep
)

var opNames = [...]string{
	OpConst: "const",
	OpVar:   "var",
	OpAdd:   "add",
	OpMul:   "mul",
	OpPow:   "pow",
	OpExp:   "exp",
	OpLog:   "log",
	OpSin:   "sin",
	OpCos:   "cos",
	OpAbs:   "abs",
	OpStep:  "step",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// Expr is a handle to a node of a Graph. It is only meaningful together
// with the graph that created it.
type Expr int32

type node struct {
	op   Op
	a, b Expr
	// c is the value of a constant or the exponent of a power.
	c    float64
	name string
}

type key struct {
	op   Op
	a, b Expr
	c    uint64
}

type Graph struct {
	nodes []node
	index map[key]Expr
	vars  map[string]Expr

	diffs map[[2]Expr]Expr
}

func NewGraph() *Graph {
	return &Graph{
		index: make(map[key]Expr),
		vars:  make(map[string]Expr),
		diffs: make(map[[2]Expr]Expr),
	}
}

// Len reports the number of distinct nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) Op(e Expr) Op { return g.nodes[e].op }

// Operands returns the operands of e; unary nodes return b == -1.
func (g *Graph) Operands(e Expr) (a, b Expr) {
	n := g.nodes[e]
	switch n.op {
	case OpConst, OpVar:
		return -1, -1
	case OpAdd, OpMul:
		return n.a, n.b
	default:
		return n.a, -1
	}
}

func (g *Graph) intern(n node) Expr {
	k := key{op: n.op, a: n.a, b: n.b, c: math.Float64bits(n.c)}
	if e, ok := g.index[k]; ok {
		return e
	}
	e := Expr(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.index[k] = e
	return e
}

func (g *Graph) Const(v float64) Expr {
	if v == 0 {
		v = 0 // fold -0
	}
	return g.intern(node{op: OpConst, a: -1, b: -1, c: v})
}

// Var returns the variable with the given name, creating it on first use.
func (g *Graph) Var(name string) Expr {
	if e, ok := g.vars[name]; ok {
		return e
	}
	e := Expr(len(g.nodes))
	g.nodes = append(g.nodes, node{op: OpVar, a: -1, b: -1, name: name})
	g.vars[name] = e
	return e
}

// Name returns the name of a variable node, or "" for other nodes.
func (g *Graph) Name(e Expr) string { return g.nodes[e].name }

// Value returns the value of a constant node.
func (g *Graph) Value(e Expr) (float64, bool) {
	n := g.nodes[e]
	if n.op != OpConst {
		return 0, false
	}
	return n.c, true
}

func (g *Graph) IsZero(e Expr) bool {
	v, ok := g.Value(e)
	return ok && v == 0
}

func (g *Graph) isConst(e Expr, want float64) bool {
	v, ok := g.Value(e)
	return ok && v == want
}

// splitCoeff writes e as c*rest. rest is -1 when e is a constant.
func (g *Graph) splitCoeff(e Expr) (float64, Expr) {
	n := g.nodes[e]
	switch n.op {
	case OpConst:
		return n.c, -1
	case OpMul:
		if c, ok := g.Value(n.a); ok {
			return c, n.b
		}
	}
	return 1, e
}

func (g *Graph) Add(a, b Expr) Expr {
	ca, aok := g.Value(a)
	cb, bok := g.Value(b)
	switch {
	case aok && bok:
		return g.Const(ca + cb)
	case aok && ca == 0:
		return b
	case bok && cb == 0:
		return a
	}

	// like terms: c1*x + c2*x = (c1+c2)*x
	c1, r1 := g.splitCoeff(a)
	c2, r2 := g.splitCoeff(b)
	if r1 >= 0 && r1 == r2 {
		return g.Mul(g.Const(c1+c2), r1)
	}

	if a > b {
		a, b = b, a
	}
	return g.intern(node{op: OpAdd, a: a, b: b})
}

// Sum folds terms left to right with Add.
func (g *Graph) Sum(terms ...Expr) Expr {
	acc := g.Const(0)
	for _, t := range terms {
		acc = g.Add(acc, t)
	}
	return acc
}

func (g *Graph) Neg(a Expr) Expr { return g.Mul(g.Const(-1), a) }

func (g *Graph) Sub(a, b Expr) Expr { return g.Add(a, g.Neg(b)) }

func (g *Graph) Mul(a, b Expr) Expr {
	ca, aok := g.Value(a)
	cb, bok := g.Value(b)
	switch {
	case aok && bok:
		return g.Const(ca * cb)
	case aok && ca == 0, bok && cb == 0:
		return g.Const(0)
	case aok && ca == 1:
		return b
	case bok && cb == 1:
		return a
	}

	// constants lead
	if bok {
		a, b = b, a
		ca, aok = cb, true
	}
	if aok {
		// c1 * (c2 * x) = (c1*c2) * x
		if c2, rest := g.splitCoeff(b); rest >= 0 && c2 != 1 {
			return g.Mul(g.Const(ca*c2), rest)
		}
		return g.intern(node{op: OpMul, a: a, b: b})
	}

	// pull constant factors out: (c*x) * y = c * (x*y)
	c1, r1 := g.splitCoeff(a)
	c2, r2 := g.splitCoeff(b)
	if c1 != 1 || c2 != 1 {
		return g.Mul(g.Const(c1*c2), g.Mul(r1, r2))
	}

	// x^m * x^n = x^(m+n)
	b1, e1 := g.powParts(a)
	b2, e2 := g.powParts(b)
	if b1 == b2 {
		return g.Pow(b1, e1+e2)
	}

	if a > b {
		a, b = b, a
	}
	return g.intern(node{op: OpMul, a: a, b: b})
}

func (g *Graph) powParts(e Expr) (Expr, float64) {
	n := g.nodes[e]
	if n.op == OpPow {
		return n.a, n.c
	}
	return e, 1
}

// Product folds factors left to right with Mul.
func (g *Graph) Product(factors ...Expr) Expr {
	acc := g.Const(1)
	for _, f := range factors {
		acc = g.Mul(acc, f)
	}
	return acc
}

func (g *Graph) Div(a, b Expr) Expr { return g.Mul(a, g.Pow(b, -1)) }

// Pow raises a to a constant power.
func (g *Graph) Pow(a Expr, c float64) Expr {
	switch {
	case c == 0:
		return g.Const(1)
	case c == 1:
		return a
	}
	if v, ok := g.Value(a); ok {
		return g.Const(math.Pow(v, c))
	}
	n := g.nodes[a]
	if n.op == OpPow && c == math.Trunc(c) {
		return g.Pow(n.a, n.c*c)
	}
	if n.op == OpExp {
		return g.Exp(g.Mul(g.Const(c), n.a))
	}
	return g.intern(node{op: OpPow, a: a, b: -1, c: c})
}

func (g *Graph) unary(op Op, a Expr, fold func(float64) float64) Expr {
	if v, ok := g.Value(a); ok {
		return g.Const(fold(v))
	}
	return g.intern(node{op: op, a: a, b: -1})
}

func (g *Graph) Exp(a Expr) Expr { return g.unary(OpExp, a, math.Exp) }

func (g *Graph) Log(a Expr) Expr {
	if g.nodes[a].op == OpExp {
		return g.nodes[a].a
	}
	return g.unary(OpLog, a, math.Log)
}

func (g *Graph) Sin(a Expr) Expr { return g.unary(OpSin, a, math.Sin) }

func (g *Graph) Cos(a Expr) Expr { return g.unary(OpCos, a, math.Cos) }

func (g *Graph) Abs(a Expr) Expr { return g.unary(OpAbs, a, math.Abs) }

// Step is the Heaviside function, 1 for x >= 0 and 0 otherwise.
func (g *Graph) Step(a Expr) Expr { return g.unary(OpStep, a, heaviside) }

func heaviside(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return 0
}
