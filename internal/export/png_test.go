package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSavePNG(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	p, err := TracesPlot("occupancy", "probability", times, []Series{
		{Label: "C", Values: []float64{1, 0.8, 0.6, 0.5, 0.45}},
		{Label: "O", Values: []float64{0, 0.1, 0.2, 0.25, 0.27}},
	})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "figs", "occupancy.png")
	if err := SavePNG(p, 4, 3, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not a png")
	}
}

func TestEigenvaluesPlot(t *testing.T) {
	p, err := EigenvaluesPlot("spectrum", []float64{1, 1e-3, 1e-9, 0})
	if err != nil {
		t.Fatal(err)
	}
	if err := SavePNG(p, 3, 3, filepath.Join(t.TempDir(), "eig.png")); err != nil {
		t.Fatalf("zero eigenvalue should plot on the floor: %v", err)
	}
	if _, err := EigenvaluesPlot("empty", nil); err == nil {
		t.Error("expected error for no eigenvalues")
	}
}

func TestTracesPlotMismatch(t *testing.T) {
	if _, err := TracesPlot("x", "y", []float64{0, 1}, []Series{{Label: "a", Values: []float64{1}}}); err == nil {
		t.Error("expected error for length mismatch")
	}
}
