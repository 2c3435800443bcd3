// Package metrics summarises a simulated trace sample by sample.
//
// Every metric observes the same row layout: voltage, current, then the
// explicit occupancies in topology order.
package metrics

import "github.com/san-kum/chansens/internal/dynamo"

const (
	Voltage = iota
	Current
	States
)

// Row assembles one observation.
func Row(v, i float64, occ []float64) []float64 {
	row := make([]float64, 0, States+len(occ))
	row = append(row, v, i)
	return append(row, occ...)
}

// Default returns fresh instances of the standard trace metrics for a
// model whose open state is at index open.
func Default(open int) []dynamo.Metric {
	return []dynamo.Metric{
		NewPeakCurrent(),
		NewCharge(),
		NewMeanOpen(open),
		NewConservationError(),
	}
}

// Collect runs every metric over the rows and returns name -> value.
func Collect(ms []dynamo.Metric, times []float64, rows [][]float64) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for k, row := range rows {
			m.Observe(times[k], row)
		}
		out[m.Name()] = m.Value()
	}
	return out
}
