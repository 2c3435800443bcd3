package kinetics

import "fmt"

// NumStates is the number of explicit occupancies tracked per sample.
const NumStates = 3

// Occupancy holds the explicit state probabilities in topology order
// (Closed, Open, Inactive for the Beattie scheme).
type Occupancy [NumStates]float64

func (o Occupancy) Sum() float64 {
	s := 0.0
	for _, v := range o {
		s += v
	}
	return s
}

// Remaining is the implied fourth occupancy.
func (o Occupancy) Remaining() float64 { return 1 - o.Sum() }

// Check reports why o violates the conservation invariant beyond tol, or
// "" when it holds.
func (o Occupancy) Check(tol float64) string {
	for i, v := range o {
		if v < -tol || v > 1+tol {
			return fmt.Sprintf("occupancy %d = %.3g outside [0,1]", i, v)
		}
	}
	if s := o.Sum(); s > 1+tol {
		return fmt.Sprintf("occupancies sum to %.12g > 1", s)
	}
	return ""
}
