package metrics

import "math"

type PeakCurrent struct {
	name string
	peak float64
}

func NewPeakCurrent() *PeakCurrent {
	return &PeakCurrent{name: "peak_current"}
}

func (p *PeakCurrent) Name() string { return p.name }

func (p *PeakCurrent) Observe(t float64, values []float64) {
	if len(values) <= Current {
		return
	}
	p.peak = math.Max(p.peak, math.Abs(values[Current]))
}

func (p *PeakCurrent) Value() float64 { return p.peak }

func (p *PeakCurrent) Reset() { p.peak = 0 }

// Charge integrates the current over time with the trapezoid rule.
type Charge struct {
	name    string
	total   float64
	lastT   float64
	lastI   float64
	samples int
}

func NewCharge() *Charge {
	return &Charge{name: "charge"}
}

func (c *Charge) Name() string { return c.name }

func (c *Charge) Observe(t float64, values []float64) {
	if len(values) <= Current {
		return
	}
	i := values[Current]
	if c.samples > 0 {
		c.total += 0.5 * (t - c.lastT) * (i + c.lastI)
	}
	c.lastT, c.lastI = t, i
	c.samples++
}

func (c *Charge) Value() float64 { return c.total }

func (c *Charge) Reset() {
	c.total = 0
	c.lastT = 0
	c.lastI = 0
	c.samples = 0
}
