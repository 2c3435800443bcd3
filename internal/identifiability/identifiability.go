// Package identifiability computes the eigen-spectrum of the information
// matrix built from normalized sensitivities. Small normalized eigenvalues
// mark parameter combinations the protocol barely constrains.
package identifiability

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/chansens/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

type Spectrum struct {
	// Normalized eigenvalues in descending order; the first is 1.
	Normalized []float64
	// Raw eigenvalues of H, descending, negatives clamped to zero.
	Raw []float64
	// Vectors holds the eigenvector of Raw[i] in column i.
	Vectors *mat.Dense
	// Information is H = Sn^T Sn.
	Information *mat.SymDense
}

// Analyze builds H = Sn^T Sn from the samples x parameters matrix sn and
// returns its eigen-spectrum scaled by the largest eigenvalue.
func Analyze(sn [][]float64) (*Spectrum, error) {
	if len(sn) == 0 || len(sn[0]) == 0 {
		return nil, &dynamo.ConfigurationError{Field: "sensitivities", Message: "empty sensitivity matrix"}
	}
	rows, cols := len(sn), len(sn[0])

	data := make([]float64, 0, rows*cols)
	for k, row := range sn {
		if len(row) != cols {
			return nil, &dynamo.ConfigurationError{Field: "sensitivities", Message: fmt.Sprintf("row %d has %d columns, want %d", k, len(row), cols)}
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &dynamo.ConfigurationError{Field: "sensitivities", Message: fmt.Sprintf("entry [%d][%d] is not finite", k, j)}
			}
		}
		data = append(data, row...)
	}
	s := mat.NewDense(rows, cols, data)

	h := mat.NewSymDense(cols, nil)
	h.SymOuterK(1, s.T())

	var es mat.EigenSym
	if ok := es.Factorize(h, true); !ok {
		return nil, fmt.Errorf("identifiability: eigen-decomposition did not converge")
	}
	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// ascending from LAPACK; reorder descending
	order := make([]int, cols)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	sp := &Spectrum{
		Normalized:  make([]float64, cols),
		Raw:         make([]float64, cols),
		Vectors:     mat.NewDense(cols, cols, nil),
		Information: h,
	}
	for i, src := range order {
		sp.Raw[i] = math.Max(values[src], 0)
		for r := 0; r < cols; r++ {
			sp.Vectors.Set(r, i, vecs.At(r, src))
		}
	}

	top := sp.Raw[0]
	if top == 0 {
		return nil, fmt.Errorf("identifiability: largest eigenvalue is zero: %w", dynamo.ErrDegenerate)
	}
	for i, v := range sp.Raw {
		sp.Normalized[i] = v / top
	}
	return sp, nil
}

func (sp *Spectrum) Len() int { return len(sp.Raw) }

// Condition is the ratio of the largest to the smallest eigenvalue, +Inf
// when the smallest is zero.
func (sp *Spectrum) Condition() float64 {
	low := sp.Raw[len(sp.Raw)-1]
	if low == 0 {
		return math.Inf(1)
	}
	return sp.Raw[0] / low
}

// Vector returns a copy of the i-th eigenvector.
func (sp *Spectrum) Vector(i int) []float64 {
	return mat.Col(nil, i, sp.Vectors)
}

// Log10 returns log10 of the normalized eigenvalues, -Inf for zeros.
func (sp *Spectrum) Log10() []float64 {
	out := make([]float64, len(sp.Normalized))
	for i, v := range sp.Normalized {
		out[i] = math.Log10(v)
	}
	return out
}
