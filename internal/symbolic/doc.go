// Package symbolic implements a small computer-algebra kernel: an
// append-only, hash-consed expression graph with structural
// differentiation and compilation to a register tape.
//
// Expressions are handles ([Expr]) into a [Graph]. Every constructor
// simplifies locally (constant folding, neutral elements, like terms)
// and canonicalizes the operands of commutative operators, so two
// structurally equal expressions always share one node:
//
//	g := symbolic.NewGraph()
//	x := g.Var("x")
//	e := g.Mul(g.Const(3), g.Exp(g.Mul(g.Const(2), x)))
//	de, err := g.Diff(e, x) // 6*exp(2*x)
//
// # Compilation
//
// [Graph.Compile] lowers the nodes reachable from a set of outputs to a
// [Program]. Operands always have smaller indices than the nodes that use
// them, so index order is a valid evaluation order and compilation is a
// single pass. Programs are immutable and safe for concurrent use.
//
// # Thread Safety
//
// A Graph is not safe for concurrent mutation. Build and differentiate
// on one goroutine, then share the compiled programs.
package symbolic
