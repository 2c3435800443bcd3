package identifiability

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Pair is the Pearson correlation between two sensitivity columns.
// Values near ±1 mean the current responds to both parameters in the same
// way, so the data cannot tell them apart.
type Pair struct {
	I, J        int
	Correlation float64
}

// Correlations returns the correlation of every pair of columns of the
// samples x parameters matrix sn, strongest first. Constant columns have
// no defined correlation and are skipped.
func Correlations(sn [][]float64) ([]Pair, error) {
	if len(sn) < 2 || len(sn[0]) == 0 {
		return nil, fmt.Errorf("identifiability: need at least 2 samples for correlations, got %d", len(sn))
	}
	cols := make([]stats.Float64Data, len(sn[0]))
	for j := range cols {
		cols[j] = make(stats.Float64Data, len(sn))
		for k, row := range sn {
			if len(row) != len(cols) {
				return nil, fmt.Errorf("identifiability: row %d has %d columns, want %d", k, len(row), len(cols))
			}
			cols[j][k] = row[j]
		}
	}

	constant := make([]bool, len(cols))
	for j, c := range cols {
		sd, err := c.StandardDeviation()
		constant[j] = err != nil || sd == 0
	}

	var pairs []Pair
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			if constant[i] || constant[j] {
				continue
			}
			r, err := stats.Correlation(cols[i], cols[j])
			if err != nil {
				return nil, fmt.Errorf("identifiability: correlation p%d/p%d: %w", i+1, j+1, err)
			}
			pairs = append(pairs, Pair{I: i, J: j, Correlation: r})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Correlation) > math.Abs(pairs[b].Correlation)
	})
	return pairs, nil
}
