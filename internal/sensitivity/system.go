package sensitivity

import (
	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/protocol"
	"gonum.org/v1/gonum/mat"
)

// System binds compiled equations to one parameter vector and protocol.
// It implements dynamo.JacobianSystem and dynamo.Breakpointer. A System
// owns scratch buffers and must not be shared between goroutines.
type System struct {
	eqs    *Equations
	params []float64
	proto  protocol.Protocol

	in  []float64
	jac []float64
}

func NewSystem(eqs *Equations, params []float64, proto protocol.Protocol) *System {
	return &System{
		eqs:    eqs,
		params: append([]float64(nil), params...),
		proto:  proto,
		in:     make([]float64, eqs.NumInputs()),
		jac:    make([]float64, eqs.JacobianNonzeros()),
	}
}

func (s *System) Dim() int { return s.eqs.Dim() }

func (s *System) load(x dynamo.State, t float64) {
	n := copy(s.in, x)
	n += copy(s.in[n:], s.params)
	s.in[n] = s.proto.Voltage(t)
}

func (s *System) Derive(x dynamo.State, t float64) dynamo.State {
	s.load(x, t)
	dx := make(dynamo.State, s.Dim())
	s.eqs.rhs.Eval(s.in, dx)
	return dx
}

func (s *System) Jacobian(x dynamo.State, t float64, jac *mat.Dense) {
	s.load(x, t)
	s.eqs.jac.Eval(s.in, s.jac)
	jac.Zero()
	for k, e := range s.eqs.jacIdx {
		jac.Set(e.row, e.col, s.jac[k])
	}
}

// TimeDerivative is df/dt = df/dV * dV/dt; parameters do not depend on
// time.
func (s *System) TimeDerivative(x dynamo.State, t float64) dynamo.State {
	dt := make(dynamo.State, s.Dim())
	slope := s.proto.Slope(t)
	if slope == 0 {
		return dt
	}
	s.load(x, t)
	s.eqs.dfdv.Eval(s.in, dt)
	for i := range dt {
		dt[i] *= slope
	}
	return dt
}

func (s *System) Breakpoints() []float64 {
	if b, ok := s.proto.(dynamo.Breakpointer); ok {
		return b.Breakpoints()
	}
	return nil
}

// InitialState returns the augmented initial vector: topology initial
// occupancies and zero sensitivities.
func (s *System) InitialState() dynamo.State {
	x0 := make(dynamo.State, s.Dim())
	copy(x0, s.eqs.Model.Topology.Initial)
	return x0
}
