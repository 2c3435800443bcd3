package symbolic

import (
	"math"
	"strconv"
	"strings"
)

const (
	precAdd = iota + 1
	precMul
	precPow
	precAtom
)

// String renders e in infix notation. Shared subexpressions are printed
// in full at every use.
func (g *Graph) String(e Expr) string {
	var sb strings.Builder
	g.write(&sb, e, 0)
	return sb.String()
}

func (g *Graph) prec(e Expr) int {
	n := g.nodes[e]
	switch n.op {
	case OpAdd:
		return precAdd
	case OpMul:
		return precMul
	case OpPow:
		return precPow
	case OpConst:
		if n.c < 0 {
			return precAdd
		}
	}
	return precAtom
}

func (g *Graph) write(sb *strings.Builder, e Expr, outer int) {
	p := g.prec(e)
	if p < outer {
		sb.WriteByte('(')
		defer sb.WriteByte(')')
	}

	n := g.nodes[e]
	switch n.op {
	case OpConst:
		sb.WriteString(formatFloat(n.c))
	case OpVar:
		sb.WriteString(n.name)
	case OpAdd:
		g.write(sb, n.a, precAdd)
		if c, rest := g.splitCoeff(n.b); c < 0 {
			sb.WriteString(" - ")
			if rest < 0 {
				sb.WriteString(formatFloat(-c))
			} else {
				g.writeScaled(sb, -c, rest)
			}
			return
		}
		sb.WriteString(" + ")
		g.write(sb, n.b, precAdd)
	case OpMul:
		if c, ok := g.Value(n.a); ok && c == -1 {
			sb.WriteByte('-')
			g.write(sb, n.b, precMul+1)
			return
		}
		g.write(sb, n.a, precMul)
		sb.WriteByte('*')
		g.write(sb, n.b, precMul+1)
	case OpPow:
		g.write(sb, n.a, precAtom)
		sb.WriteByte('^')
		if n.c < 0 || n.c != math.Trunc(n.c) {
			sb.WriteString("(" + formatFloat(n.c) + ")")
		} else {
			sb.WriteString(formatFloat(n.c))
		}
	default:
		sb.WriteString(n.op.String())
		sb.WriteByte('(')
		g.write(sb, n.a, 0)
		sb.WriteByte(')')
	}
}

func (g *Graph) writeScaled(sb *strings.Builder, c float64, rest Expr) {
	if c != 1 {
		sb.WriteString(formatFloat(c))
		sb.WriteByte('*')
	}
	g.write(sb, rest, precMul+1)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
