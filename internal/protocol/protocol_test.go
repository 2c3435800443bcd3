package protocol

import (
	"math"
	"testing"
)

func TestConstant(t *testing.T) {
	p := Constant{V: -80}
	for _, tm := range []float64{0, 0.123, 500, 1000} {
		if p.Voltage(tm) != -80 {
			t.Errorf("Voltage(%v) = %v, want -80", tm, p.Voltage(tm))
		}
		if p.Slope(tm) != 0 {
			t.Errorf("Slope(%v) = %v, want 0", tm, p.Slope(tm))
		}
	}
}

func TestSineVoltage(t *testing.T) {
	s := DefaultSine()
	if got := s.Voltage(0); got != -30 {
		t.Errorf("Voltage(0) = %v, want offset -30", got)
	}

	tm := 123.456
	want := -30 + 54*math.Sin(0.007*tm) + 26*math.Sin(0.037*tm) + 10*math.Sin(0.19*tm)
	if got := s.Voltage(tm); math.Abs(got-want) > 1e-12 {
		t.Errorf("Voltage(%v) = %v, want %v", tm, got, want)
	}
}

func TestSineSlopeMatchesFiniteDifference(t *testing.T) {
	s := DefaultSine()
	const h = 1e-5
	for _, tm := range []float64{0, 10.5, 333.3, 7000} {
		fd := (s.Voltage(tm+h) - s.Voltage(tm-h)) / (2 * h)
		if got := s.Slope(tm); math.Abs(got-fd) > 1e-6 {
			t.Errorf("Slope(%v) = %v, finite difference %v", tm, got, fd)
		}
	}
}

func TestSinePeriodic(t *testing.T) {
	s := Sine{Offset: -30, Components: []Sinusoid{{Amplitude: 50, Frequency: 2 * math.Pi / 100}}}
	if p := s.Periods(); len(p) != 1 || math.Abs(p[0]-100) > 1e-12 {
		t.Fatalf("Periods() = %v, want [100]", p)
	}
	for _, tm := range []float64{0, 17, 42.5, 99} {
		if d := math.Abs(s.Voltage(tm) - s.Voltage(tm+100)); d > 1e-9 {
			t.Errorf("V(%v) and V(%v) differ by %v", tm, tm+100, d)
		}
	}
}

func TestSteps(t *testing.T) {
	s, err := NewSteps(
		Segment{Until: 250, V: -80},
		Segment{Until: 300, V: -120},
		Segment{Until: 500, V: -120},
		Segment{Until: 1000, V: 40},
	)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		t    float64
		want float64
	}{
		{0, -80},
		{249.999, -80},
		{250, -120},
		{499, -120},
		{500, 40},
		{2000, 40},
	}
	for _, tt := range tests {
		if got := s.Voltage(tt.t); got != tt.want {
			t.Errorf("Voltage(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}

	bp := s.Breakpoints()
	if len(bp) != 2 || bp[0] != 250 || bp[1] != 500 {
		t.Errorf("Breakpoints() = %v, want [250 500]", bp)
	}
}

func TestStepsZeroValue(t *testing.T) {
	var s Steps
	for _, tm := range []float64{-1, 0, 100} {
		if got := s.Voltage(tm); got != 0 {
			t.Errorf("Voltage(%v) = %v, want 0", tm, got)
		}
	}
	if bp := s.Breakpoints(); len(bp) != 0 {
		t.Errorf("Breakpoints() = %v, want none", bp)
	}
}

func TestNewStepsInvalid(t *testing.T) {
	tests := []struct {
		name string
		segs []Segment
	}{
		{"empty", nil},
		{"unordered", []Segment{{Until: 10, V: 0}, {Until: 5, V: 1}}},
		{"duplicate", []Segment{{Until: 10, V: 0}, {Until: 10, V: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSteps(tt.segs...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSample(t *testing.T) {
	grid := []float64{0, 1, 2}
	v := Sample(Constant{V: 5}, grid)
	if len(v) != 3 || v[0] != 5 || v[2] != 5 {
		t.Errorf("Sample = %v", v)
	}
}
