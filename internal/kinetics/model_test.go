package kinetics

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/symbolic"
)

var beattieParams = []float64{2.26e-4, 0.0699, 3.45e-5, 0.05462, 0.0873, 8.92e-3, 5.150e-3, 0.03158, 0.1524}

func env(m *Model, p []float64, y []float64, v float64) map[symbolic.Expr]float64 {
	e := make(map[symbolic.Expr]float64)
	for i, s := range m.Params {
		e[s] = p[i]
	}
	for i, s := range m.States {
		e[s] = y[i]
	}
	e[m.Voltage] = v
	return e
}

func TestBuildBeattie(t *testing.T) {
	m, err := Build(Beattie(), 9)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if m.NumParams() != 9 || m.NumStates() != 3 || len(m.Rates) != 4 {
		t.Fatalf("unexpected layout: %d params, %d states, %d rates", m.NumParams(), m.NumStates(), len(m.Rates))
	}

	p := beattieParams
	y := []float64{0.5, 0.2, 0.1}
	v := -40.0
	vals := env(m, p, y, v)

	k1 := p[0] * math.Exp(p[1]*v)
	k2 := p[2] * math.Exp(-p[3]*v)
	k3 := p[4] * math.Exp(p[5]*v)
	k4 := p[6] * math.Exp(-p[7]*v)
	c, o, in := y[0], y[1], y[2]
	ic := 1 - c - o - in

	wantRates := []float64{k1, k2, k3, k4}
	for r, k := range m.Rates {
		got, err := m.Graph.Eval(k, vals)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-wantRates[r]) > 1e-15*math.Abs(wantRates[r]) {
			t.Errorf("k%d = %v, want %v", r+1, got, wantRates[r])
		}
	}

	want := []float64{
		k2*o + k4*ic - (k1+k3)*c,
		k1*c + k4*in - (k2+k3)*o,
		k3*o + k1*ic - (k2+k4)*in,
	}
	for i, f := range m.RHS {
		got, err := m.Graph.Eval(f, vals)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-want[i]) > 1e-14 {
			t.Errorf("RHS[%d] = %v, want %v", i, got, want[i])
		}
	}
}

func TestBuildParameterMismatch(t *testing.T) {
	for _, n := range []int{0, 8, 10} {
		_, err := Build(Beattie(), n)
		if !errors.Is(err, dynamo.ErrConfiguration) {
			t.Errorf("n=%d: expected configuration error, got %v", n, err)
		}
	}
}

func TestBuildExtraRate(t *testing.T) {
	tp := Beattie()
	tp.Name = "beattie5"
	tp.Rates = append(tp.Rates, RateForm{Name: "k5", Sign: +1})
	tp.Trans = append(tp.Trans, Transition{From: Open, To: InactiveClosed, Rate: 4})

	if _, err := Build(tp, 9); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error for 9 params, got %v", err)
	}
	m, err := Build(tp, 11)
	if err != nil {
		t.Fatalf("build with 5 rates failed: %v", err)
	}
	if len(m.Rates) != 5 || tp.ConductanceIndex() != 10 {
		t.Errorf("got %d rates, conductance index %d", len(m.Rates), tp.ConductanceIndex())
	}
	if Beattie().Key() == tp.Key() {
		t.Error("different structures should have different keys")
	}
}

func TestTopologyValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Topology)
	}{
		{"too few states", func(tp *Topology) { tp.States = tp.States[:2]; tp.Initial = tp.Initial[:2] }},
		{"no rates", func(tp *Topology) { tp.Rates = nil }},
		{"bad open", func(tp *Topology) { tp.Open = 7 }},
		{"bad initial", func(tp *Topology) { tp.Initial = []float64{1} }},
		{"self transition", func(tp *Topology) { tp.Trans[0].To = tp.Trans[0].From }},
		{"unknown state", func(tp *Topology) { tp.Trans[0].To = 9 }},
		{"unknown rate", func(tp *Topology) { tp.Trans[0].Rate = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := Beattie()
			tt.mutate(tp)
			if err := tp.Validate(); !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	m, err := Build(Beattie(), 9)
	if err != nil {
		t.Fatal(err)
	}
	d := m.Describe()
	for _, want := range []string{"k1 = ", "k4 = ", "dC/dt = ", "dO/dt = ", "dI/dt = "} {
		if !strings.Contains(d, want) {
			t.Errorf("Describe() missing %q:\n%s", want, d)
		}
	}
	if labels := m.ParamLabels(); labels[0] != "p1" || labels[8] != "p9" {
		t.Errorf("ParamLabels() = %v", labels)
	}
}

func TestOccupancyCheck(t *testing.T) {
	tests := []struct {
		occ Occupancy
		ok  bool
	}{
		{Occupancy{1, 0, 0}, true},
		{Occupancy{0.3, 0.3, 0.3}, true},
		{Occupancy{0.5, 0.5, 1e-9}, true},
		{Occupancy{0.5, 0.5, 0.1}, false},
		{Occupancy{-0.01, 0.5, 0.1}, false},
		{Occupancy{1.2, 0, 0}, false},
	}
	for _, tt := range tests {
		if got := tt.occ.Check(1e-6) == ""; got != tt.ok {
			t.Errorf("Check(%v) ok = %v, want %v", tt.occ, got, tt.ok)
		}
	}
	if r := (Occupancy{0.25, 0.25, 0.25}).Remaining(); r != 0.25 {
		t.Errorf("Remaining() = %v, want 0.25", r)
	}
}

func TestReversalPotential(t *testing.T) {
	r := DefaultReversal()
	want := 8.3145 * 25 / 96485 * math.Log(4.0/130.0)
	if got := r.Potential(); math.Abs(got-want) > 1e-15 {
		t.Errorf("Potential() = %v, want %v", got, want)
	}
	if r.Potential() >= 0 {
		t.Error("potassium reversal potential should be negative")
	}

	physio := Reversal{GasConstant: 8.314, Temperature: 294.15, Faraday: 96485, Valency: 1, Outside: 4, Inside: 130, Scale: 1000}
	if e := physio.Potential(); e > -85 || e < -92 {
		t.Errorf("physiological E_K = %v mV, want about -88 mV", e)
	}

	bad := r
	bad.Inside = 0
	if bad.Validate() == nil {
		t.Error("expected validation error for zero concentration")
	}
}
