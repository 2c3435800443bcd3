// Package protocol provides voltage-clamp protocols: the membrane voltage
// (mV) as a pure function of time (ms).
package protocol

import (
	"fmt"
	"math"
	"sort"
)

// Protocol is safe to call at any time, including the non-grid times
// probed by adaptive integrators.
type Protocol interface {
	Name() string
	Voltage(t float64) float64
	// Slope returns dV/dt at t, zero on constant pieces.
	Slope(t float64) float64
}

// Sample evaluates p on a time grid.
func Sample(p Protocol, grid []float64) []float64 {
	v := make([]float64, len(grid))
	for i, t := range grid {
		v[i] = p.Voltage(t)
	}
	return v
}

type Constant struct {
	V float64
}

func (c Constant) Name() string            { return "constant" }
func (c Constant) Voltage(float64) float64 { return c.V }
func (c Constant) Slope(float64) float64   { return 0 }

// Sinusoid is one term A*sin(omega*t + phase); omega is in rad/ms.
type Sinusoid struct {
	Amplitude float64
	Frequency float64
	Phase     float64
}

type Sine struct {
	Offset     float64
	Components []Sinusoid
}

// DefaultSine is the three-frequency sinusoid mixture used for the
// sensitivity study: -30 mV offset with 54, 26 and 10 mV components at
// 0.007, 0.037 and 0.19 rad/ms.
func DefaultSine() Sine {
	return Sine{
		Offset: -30,
		Components: []Sinusoid{
			{Amplitude: 54, Frequency: 0.007},
			{Amplitude: 26, Frequency: 0.037},
			{Amplitude: 10, Frequency: 0.19},
		},
	}
}

func (s Sine) Name() string { return "sine" }

func (s Sine) Voltage(t float64) float64 {
	v := s.Offset
	for _, c := range s.Components {
		v += c.Amplitude * math.Sin(c.Frequency*t+c.Phase)
	}
	return v
}

func (s Sine) Slope(t float64) float64 {
	dv := 0.0
	for _, c := range s.Components {
		dv += c.Amplitude * c.Frequency * math.Cos(c.Frequency*t+c.Phase)
	}
	return dv
}

// Periods returns the period (ms) of each component.
func (s Sine) Periods() []float64 {
	out := make([]float64, len(s.Components))
	for i, c := range s.Components {
		out[i] = 2 * math.Pi / c.Frequency
	}
	return out
}

// Segment holds voltage V until time Until.
type Segment struct {
	Until float64
	V     float64
}

// Steps is a piecewise-constant protocol. After the last segment the
// final voltage is held.
type Steps struct {
	Segments []Segment
}

func NewSteps(segments ...Segment) (Steps, error) {
	if len(segments) == 0 {
		return Steps{}, fmt.Errorf("steps protocol needs at least one segment")
	}
	if !sort.SliceIsSorted(segments, func(i, j int) bool { return segments[i].Until < segments[j].Until }) {
		return Steps{}, fmt.Errorf("steps protocol segments must be ordered by end time")
	}
	for i := 1; i < len(segments); i++ {
		if segments[i].Until == segments[i-1].Until {
			return Steps{}, fmt.Errorf("steps protocol has two segments ending at %g", segments[i].Until)
		}
	}
	return Steps{Segments: segments}, nil
}

func (s Steps) Name() string { return "steps" }

func (s Steps) Voltage(t float64) float64 {
	if len(s.Segments) == 0 {
		return 0
	}
	i := sort.Search(len(s.Segments), func(i int) bool { return t < s.Segments[i].Until })
	if i == len(s.Segments) {
		i--
	}
	return s.Segments[i].V
}

func (s Steps) Slope(float64) float64 { return 0 }

// Breakpoints returns the times at which the voltage jumps.
func (s Steps) Breakpoints() []float64 {
	out := make([]float64, 0, len(s.Segments))
	for i := 0; i+1 < len(s.Segments); i++ {
		if s.Segments[i].V != s.Segments[i+1].V {
			out = append(out, s.Segments[i].Until)
		}
	}
	return out
}
