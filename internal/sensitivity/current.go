package sensitivity

import (
	"fmt"

	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/protocol"
)

// CurrentTrace is the ionic current and its parameter sensitivities.
type CurrentTrace struct {
	Times   []float64
	Voltage []float64
	Current []float64
	// Sens[k][j] = dI/dp_j at sample k.
	Sens [][]float64
}

// Current computes I = G*O*(V - E) and
// dI/dp_j = G*S_Oj*(V - E) + [j is G]*O*(V - E) at every sample.
func Current(tr *Trajectory, params []float64, proto protocol.Protocol, erev float64) (*CurrentTrace, error) {
	if len(params) != tr.NumParams {
		return nil, &dynamo.ConfigurationError{
			Field:   "params",
			Message: fmt.Sprintf("trajectory has %d parameters, got %d", tr.NumParams, len(params)),
		}
	}

	g := params[tr.Conductance]
	n := tr.Len()
	ct := &CurrentTrace{
		Times:   tr.Times,
		Voltage: protocol.Sample(proto, tr.Times),
		Current: make([]float64, n),
		Sens:    make([][]float64, n),
	}
	for k := 0; k < n; k++ {
		drive := ct.Voltage[k] - erev
		open := tr.States[k][tr.Open]
		ct.Current[k] = g * open * drive

		row := tr.Row(k, tr.Open)
		dI := make([]float64, tr.NumParams)
		for j, s := range row {
			dI[j] = g * s * drive
		}
		dI[tr.Conductance] += open * drive
		ct.Sens[k] = dI
	}
	return ct, nil
}

// Column returns dI/dp_j over all samples.
func (ct *CurrentTrace) Column(j int) []float64 {
	out := make([]float64, len(ct.Sens))
	for k, row := range ct.Sens {
		out[k] = row[j]
	}
	return out
}
