// Package export renders runs as figures: dependency-free SVG documents
// and PNG images drawn with gonum/plot.
package export

import (
	"fmt"
	"math"
	"strings"
)

var palette = []string{"#00ccff", "#00ff88", "#ff4444", "#ffcc00", "#ff00ff", "#ffffff"}

type Series struct {
	Label  string
	Values []float64
}

// TracesToSVG draws series against a shared time axis, one path each,
// with a legend in the top left corner.
func TracesToSVG(times []float64, series []Series, width, height int) (string, error) {
	if len(times) < 2 {
		return "", fmt.Errorf("need at least 2 samples, got %d", len(times))
	}
	for _, s := range series {
		if len(s.Values) != len(times) {
			return "", fmt.Errorf("series %q has %d values for %d times", s.Label, len(s.Values), len(times))
		}
	}

	minX, maxX := times[0], times[len(times)-1]
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder
	header(&sb, width, height)

	for i, s := range series {
		color := palette[i%len(palette)]
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color)
		for k, v := range s.Values {
			x := (times[k] - minX) / rangeX * float64(width)
			y := float64(height) - (v-minY)/rangeY*float64(height)
			if k == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>`+"\n",
			16*(i+1), color, escape(s.Label))
	}

	sb.WriteString("</svg>")
	return sb.String(), nil
}

// EigenvaluesToSVG draws normalized eigenvalues as bars on a log scale
// spanning decades orders of magnitude below 1.
func EigenvaluesToSVG(values []float64, decades float64, width, height int) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("no eigenvalues")
	}
	if decades <= 0 {
		return "", fmt.Errorf("decades must be positive, got %g", decades)
	}

	var sb strings.Builder
	header(&sb, width, height)

	slot := float64(width) / float64(len(values))
	barWidth := slot * 0.7
	for i, v := range values {
		frac := 0.0
		if v > 0 {
			frac = math.Max(0, math.Min(1, 1+math.Log10(v)/decades))
		}
		h := frac * float64(height-20)
		x := float64(i)*slot + (slot-barWidth)/2
		y := float64(height-20) - h
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`+"\n",
			x, y, barWidth, h, palette[0])
		fmt.Fprintf(&sb, `<text x="%.1f" y="%d" fill="#888899" font-family="monospace" font-size="10" text-anchor="middle">λ%d</text>`+"\n",
			x+barWidth/2, height-5, i+1)
	}

	sb.WriteString("</svg>")
	return sb.String(), nil
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
