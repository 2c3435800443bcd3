package kinetics

import (
	"fmt"
	"strings"

	"github.com/san-kum/chansens/internal/dynamo"
)

// RateForm describes one rate constant k = p[2r] * exp(Sign * p[2r+1] * V),
// where r is the position of the form in Topology.Rates.
type RateForm struct {
	Name string
	Sign float64
}

// Transition moves occupancy from state From to state To at rate Rate.
// State indices refer to Topology.States, with len(States) meaning the
// implied state.
type Transition struct {
	From, To int
	Rate     int
}

type Topology struct {
	Name    string
	States  []string
	Implied string
	Rates   []RateForm
	Trans   []Transition
	Open    int
	Initial []float64
}

// NumParams is the parameter count the topology expects: a scale and an
// exponent per rate plus the maximal conductance.
func (tp *Topology) NumParams() int { return 2*len(tp.Rates) + 1 }

// ConductanceIndex is the position of the maximal conductance in p.
func (tp *Topology) ConductanceIndex() int { return 2 * len(tp.Rates) }

// Key identifies a model for caching compiled equations: its name, rate
// signs, transitions, open state and parameter count. The name is part of
// the key because the equations carry the model's labels.
func (tp *Topology) Key() string {
	var sb strings.Builder
	sb.WriteString(tp.Name)
	sb.WriteByte(':')
	for _, r := range tp.Rates {
		if r.Sign < 0 {
			sb.WriteByte('-')
		} else {
			sb.WriteByte('+')
		}
	}
	for _, tr := range tp.Trans {
		fmt.Fprintf(&sb, ":%d>%d@%d", tr.From, tr.To, tr.Rate)
	}
	fmt.Fprintf(&sb, ":s%d:o%d:n%d", len(tp.States), tp.Open, tp.NumParams())
	return sb.String()
}

func (tp *Topology) Validate() error {
	n := len(tp.States)
	if n != NumStates {
		return &dynamo.ConfigurationError{Field: "topology", Message: fmt.Sprintf("%d explicit states, want %d", n, NumStates)}
	}
	if len(tp.Rates) == 0 {
		return &dynamo.ConfigurationError{Field: "topology", Message: "no rate constants"}
	}
	if tp.Open < 0 || tp.Open >= n {
		return &dynamo.ConfigurationError{Field: "topology", Message: fmt.Sprintf("open state %d out of range", tp.Open)}
	}
	if len(tp.Initial) != n {
		return &dynamo.ConfigurationError{Field: "topology", Message: fmt.Sprintf("%d initial values for %d states", len(tp.Initial), n)}
	}
	for i, tr := range tp.Trans {
		if tr.From < 0 || tr.From > n || tr.To < 0 || tr.To > n || tr.From == tr.To {
			return &dynamo.ConfigurationError{Field: "topology", Message: fmt.Sprintf("transition %d has invalid states %d->%d", i, tr.From, tr.To)}
		}
		if tr.Rate < 0 || tr.Rate >= len(tp.Rates) {
			return &dynamo.ConfigurationError{Field: "topology", Message: fmt.Sprintf("transition %d uses unknown rate %d", i, tr.Rate)}
		}
	}
	return nil
}

// StateName returns the name of state i, including the implied state.
func (tp *Topology) StateName(i int) string {
	if i == len(tp.States) {
		return tp.Implied
	}
	return tp.States[i]
}

const (
	Closed = iota
	Open
	Inactive
	InactiveClosed
)

// Beattie returns the four-state hERG model: C<->O and IC<->I share the
// activation pair (k1, k2); C<->IC and O<->I share the inactivation pair
// (k3, k4). IC is implied by conservation.
func Beattie() *Topology {
	return &Topology{
		Name:    "beattie",
		States:  []string{"C", "O", "I"},
		Implied: "IC",
		Rates: []RateForm{
			{Name: "k1", Sign: +1},
			{Name: "k2", Sign: -1},
			{Name: "k3", Sign: +1},
			{Name: "k4", Sign: -1},
		},
		Trans: []Transition{
			{From: Closed, To: Open, Rate: 0},
			{From: Open, To: Closed, Rate: 1},
			{From: InactiveClosed, To: Inactive, Rate: 0},
			{From: Inactive, To: InactiveClosed, Rate: 1},
			{From: Open, To: Inactive, Rate: 2},
			{From: Inactive, To: Open, Rate: 3},
			{From: Closed, To: InactiveClosed, Rate: 2},
			{From: InactiveClosed, To: Closed, Rate: 3},
		},
		Open:    Open,
		Initial: []float64{1, 0, 0},
	}
}
