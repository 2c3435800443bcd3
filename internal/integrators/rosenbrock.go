package integrators

import (
	"errors"
	"math"

	"github.com/san-kum/chansens/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

var errSingular = errors.New("singular iteration matrix")

// Rosenbrock23 is the L-stable Rosenbrock 2(3) pair of Shampine and
// Reichelt (MATLAB's ode23s). It uses the analytic Jacobian and time
// derivative of a dynamo.JacobianSystem and falls back to forward
// differences for plain systems.
type Rosenbrock23 struct {
	jac *mat.Dense
	w   *mat.Dense
	lu  mat.LU
}

func NewRosenbrock23() *Rosenbrock23 {
	return &Rosenbrock23{}
}

func (r *Rosenbrock23) Name() string { return "rosenbrock23" }

func (r *Rosenbrock23) Order() int { return 3 }

var (
	rosD   = 1 / (2 + math.Sqrt2)
	rosE32 = 6 + math.Sqrt2
)

func (r *Rosenbrock23) ensure(n int) {
	if r.jac == nil || r.jac.RawMatrix().Rows != n {
		r.jac = mat.NewDense(n, n, nil)
		r.w = mat.NewDense(n, n, nil)
	}
}

func (r *Rosenbrock23) Try(dyn dynamo.System, x dynamo.State, t, dt float64, tol dynamo.Tolerance) (dynamo.Trial, error) {
	n := len(x)
	r.ensure(n)
	evals := 0

	f0 := dyn.Derive(x, t)
	evals++

	var ft dynamo.State
	if js, ok := dyn.(dynamo.JacobianSystem); ok {
		js.Jacobian(x, t, r.jac)
		ft = js.TimeDerivative(x, t)
		evals += 2
	} else {
		ft = numericJacobian(dyn, x, t, f0, r.jac)
		evals += n + 1
	}

	// W = I - h*d*J
	hd := dt * rosD
	r.w.Scale(-hd, r.jac)
	for i := 0; i < n; i++ {
		r.w.Set(i, i, r.w.At(i, i)+1)
	}
	r.lu.Factorize(r.w)
	if math.IsInf(r.lu.Cond(), 1) {
		return dynamo.Trial{Evals: evals}, errSingular
	}

	rhs := make([]float64, n)
	for i := range rhs {
		rhs[i] = f0[i] + hd*ft[i]
	}
	k1 := r.solve(rhs)

	xm := make(dynamo.State, n)
	for i := range xm {
		xm[i] = x[i] + 0.5*dt*k1[i]
	}
	f1 := dyn.Derive(xm, t+0.5*dt)
	evals++

	for i := range rhs {
		rhs[i] = f1[i] - k1[i]
	}
	k2 := r.solve(rhs)
	for i := range k2 {
		k2[i] += k1[i]
	}

	xNew := make(dynamo.State, n)
	for i := range xNew {
		xNew[i] = x[i] + dt*k2[i]
	}
	f2 := dyn.Derive(xNew, t+dt)
	evals++

	for i := range rhs {
		rhs[i] = f2[i] - rosE32*(k2[i]-f1[i]) - 2*(k1[i]-f0[i]) + hd*ft[i]
	}
	k3 := r.solve(rhs)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt / 6 * (k1[i] - 2*k2[i] + k3[i])
		errMax = math.Max(errMax, math.Abs(errEst)/tol.Scale(x[i], xNew[i]))
	}

	return dynamo.Trial{X: xNew, ErrNorm: errMax, Evals: evals}, nil
}

func (r *Rosenbrock23) solve(b []float64) []float64 {
	var v mat.VecDense
	// ill-conditioning is reported through the error norm, not here
	_ = r.lu.SolveVecTo(&v, false, mat.NewVecDense(len(b), b))
	out := make([]float64, len(b))
	copy(out, v.RawVector().Data)
	return out
}

// numericJacobian fills jac by forward differences and returns df/dt.
func numericJacobian(dyn dynamo.System, x dynamo.State, t float64, f0 dynamo.State, jac *mat.Dense) dynamo.State {
	n := len(x)
	xp := x.Clone()
	for j := 0; j < n; j++ {
		h := math.Sqrt(2.2e-16) * math.Max(math.Abs(x[j]), 1)
		xp[j] = x[j] + h
		fp := dyn.Derive(xp, t)
		for i := 0; i < n; i++ {
			jac.Set(i, j, (fp[i]-f0[i])/h)
		}
		xp[j] = x[j]
	}

	ht := math.Sqrt(2.2e-16) * math.Max(math.Abs(t), 1)
	ft := dyn.Derive(x, t+ht)
	for i := range ft {
		ft[i] = (ft[i] - f0[i]) / ht
	}
	return ft
}
