package symbolic

import (
	"fmt"
	"sort"
	"sync"
)

type instr struct {
	op   Op
	dst  int32
	a, b int32
	c    float64
}

// Program is a compiled, immutable evaluator for a fixed list of output
// expressions over a fixed, ordered list of input variables.
type Program struct {
	nIn    int
	inSlot []int32
	outReg []int32
	code   []instr
	// template holds constants at their register slots
	template []float64

	regs sync.Pool
}

// Compile lowers the nodes reachable from outputs into a Program. Every
// variable reachable from outputs must appear in inputs.
func (g *Graph) Compile(inputs, outputs []Expr) (*Program, error) {
	inIndex := make(map[Expr]int, len(inputs))
	for i, in := range inputs {
		if g.nodes[in].op != OpVar {
			return nil, fmt.Errorf("symbolic: input %d (%s) is not a variable", i, g.String(in))
		}
		if _, dup := inIndex[in]; dup {
			return nil, fmt.Errorf("symbolic: duplicate input %q", g.nodes[in].name)
		}
		inIndex[in] = i
	}

	reach := g.reachable(outputs)

	// inputs always get a register, reachable or not
	slot := make(map[Expr]int32, len(reach)+len(inputs))
	p := &Program{nIn: len(inputs), inSlot: make([]int32, len(inputs))}
	for i, in := range inputs {
		slot[in] = int32(i)
		p.inSlot[i] = int32(i)
	}
	next := int32(len(inputs))

	for _, e := range reach {
		if _, ok := slot[e]; ok {
			continue
		}
		n := g.nodes[e]
		if n.op == OpVar {
			return nil, fmt.Errorf("symbolic: unbound variable %q", n.name)
		}
		slot[e] = next
		next++
	}

	p.template = make([]float64, next)
	for _, e := range reach {
		n := g.nodes[e]
		switch n.op {
		case OpVar:
			continue
		case OpConst:
			p.template[slot[e]] = n.c
			continue
		}
		in := instr{op: n.op, dst: slot[e], a: slot[n.a], c: n.c}
		if n.op == OpAdd || n.op == OpMul {
			in.b = slot[n.b]
		}
		p.code = append(p.code, in)
	}

	p.outReg = make([]int32, len(outputs))
	for i, out := range outputs {
		p.outReg[i] = slot[out]
	}

	size := int(next)
	p.regs.New = func() interface{} {
		r := make([]float64, size)
		return &r
	}
	return p, nil
}

// reachable returns the nodes reachable from roots in ascending index
// order, which is a valid evaluation order.
func (g *Graph) reachable(roots []Expr) []Expr {
	seen := make(map[Expr]bool)
	stack := append([]Expr(nil), roots...)
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[e] {
			continue
		}
		seen[e] = true
		a, b := g.Operands(e)
		if a >= 0 {
			stack = append(stack, a)
		}
		if b >= 0 {
			stack = append(stack, b)
		}
	}

	out := make([]Expr, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p *Program) NumInputs() int { return p.nIn }

func (p *Program) NumOutputs() int { return len(p.outReg) }

// NumInstructions reports the length of the evaluation tape.
func (p *Program) NumInstructions() int { return len(p.code) }

// Eval evaluates the program for the given inputs and writes the outputs
// into out. It panics if the lengths do not match the compiled layout.
func (p *Program) Eval(in, out []float64) {
	if len(in) != p.nIn || len(out) != len(p.outReg) {
		panic(fmt.Sprintf("symbolic: program wants %d inputs and %d outputs, got %d and %d",
			p.nIn, len(p.outReg), len(in), len(out)))
	}

	rp := p.regs.Get().(*[]float64)
	r := *rp
	copy(r, p.template)
	for i, s := range p.inSlot {
		r[s] = in[i]
	}

	for _, ins := range p.code {
		r[ins.dst] = apply(ins.op, r[ins.a], r[ins.b], ins.c)
	}

	for i, s := range p.outReg {
		out[i] = r[s]
	}
	p.regs.Put(rp)
}
