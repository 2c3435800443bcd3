package metrics

import "math"

type MeanOpen struct {
	name    string
	open    int
	sum     float64
	samples int
}

func NewMeanOpen(open int) *MeanOpen {
	return &MeanOpen{
		name: "mean_open",
		open: open,
	}
}

func (m *MeanOpen) Name() string {
	return m.name
}

func (m *MeanOpen) Observe(t float64, values []float64) {
	if len(values) <= States+m.open {
		return
	}
	m.sum += values[States+m.open]
	m.samples++
}

func (m *MeanOpen) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanOpen) Reset() {
	m.sum = 0
	m.samples = 0
}

// ConservationError is the largest amount by which any sample leaves the
// probability simplex: a negative occupancy or a sum above one.
type ConservationError struct {
	name  string
	worst float64
}

func NewConservationError() *ConservationError {
	return &ConservationError{
		name: "conservation_error",
	}
}

func (c *ConservationError) Name() string {
	return c.name
}

func (c *ConservationError) Observe(t float64, values []float64) {
	if len(values) <= States {
		return
	}
	sum := 0.0
	for _, v := range values[States:] {
		sum += v
		c.worst = math.Max(c.worst, -v)
	}
	c.worst = math.Max(c.worst, sum-1)
}

func (c *ConservationError) Value() float64 {
	return c.worst
}

func (c *ConservationError) Reset() {
	c.worst = 0
}
