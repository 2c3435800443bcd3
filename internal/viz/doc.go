// Package viz renders analysis results for the terminal: lipgloss styles
// for reports, sparklines and eigenvalue bars, and asciigraph line plots
// of traces downsampled to the terminal width.
package viz
