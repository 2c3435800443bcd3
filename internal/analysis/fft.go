package analysis

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// PowerSpectrum returns the magnitude of the one-sided spectrum of data
// after removing the mean and applying a Hann window. Bin k corresponds
// to k/(len(data)*dt) cycles per time unit.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n < 2 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	x := make([]float64, n)
	for i, v := range data {
		x[i] = v - mean
	}
	window.Apply(x, window.Hann)

	spec := fft.FFTReal(x)
	ps := make([]float64, n/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

type Peak struct {
	Bin int
	// Frequency in cycles per time unit.
	Frequency float64
	Magnitude float64
}

// Angular returns the peak frequency in radians per time unit.
func (p Peak) Angular() float64 { return 2 * math.Pi * p.Frequency }

// DominantFrequencies returns up to k local maxima of the spectrum of data
// sampled every dt, strongest first.
func DominantFrequencies(data []float64, dt float64, k int) []Peak {
	ps := PowerSpectrum(data)
	if len(ps) < 3 {
		return nil
	}
	df := 1 / (float64(len(data)) * dt)

	var peaks []Peak
	for i := 1; i+1 < len(ps); i++ {
		if ps[i] > ps[i-1] && ps[i] >= ps[i+1] {
			peaks = append(peaks, Peak{Bin: i, Frequency: float64(i) * df, Magnitude: ps[i]})
		}
	}
	sort.Slice(peaks, func(a, b int) bool { return peaks[a].Magnitude > peaks[b].Magnitude })
	if len(peaks) > k {
		peaks = peaks[:k]
	}
	return peaks
}

// Resolution is the frequency spacing of the spectrum of n samples taken
// every dt, in cycles per time unit.
func Resolution(n int, dt float64) float64 { return 1 / (float64(n) * dt) }

// PeriodMismatch compares the last lag samples of x with the lag samples
// before them. The result is the largest difference relative to the
// largest magnitude in that window; zero means exactly periodic.
func PeriodMismatch(x []float64, lag int) float64 {
	n := len(x)
	if lag <= 0 || 2*lag > n {
		return math.NaN()
	}
	scale, diff := 0.0, 0.0
	for k := 0; k < lag; k++ {
		a, b := x[n-1-k], x[n-1-k-lag]
		diff = math.Max(diff, math.Abs(a-b))
		scale = math.Max(scale, math.Max(math.Abs(a), math.Abs(b)))
	}
	if scale == 0 {
		return 0
	}
	return diff / scale
}
