package viz

import (
	"github.com/guptarohit/asciigraph"
)

// Downsample reduces values to at most n points by taking evenly spaced
// samples, always keeping the last one.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	out := make([]float64, n)
	step := float64(len(values)-1) / float64(n-1)
	for i := range out {
		out[i] = values[int(float64(i)*step+0.5)]
	}
	return out
}

// Plot draws one trace at the given size.
func Plot(values []float64, caption string, height, width int) string {
	return asciigraph.Plot(Downsample(values, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// PlotMany overlays several traces of equal length, each in its own color.
func PlotMany(series [][]float64, caption string, height, width int) string {
	data := make([][]float64, len(series))
	for i, s := range series {
		data[i] = Downsample(s, width)
	}
	colors := []asciigraph.AnsiColor{asciigraph.Blue, asciigraph.Green, asciigraph.Red, asciigraph.Yellow}
	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors[:min(len(colors), len(data))]...),
	)
}
