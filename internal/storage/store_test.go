package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/chansens/internal/experiment"
	"github.com/san-kum/chansens/internal/identifiability"
	"github.com/san-kum/chansens/internal/kinetics"
)

func sampleResult(t *testing.T) *experiment.Result {
	t.Helper()
	sp, err := identifiability.Analyze([][]float64{{1, 0}, {0, 0.5}, {1, 0.5}})
	if err != nil {
		t.Fatal(err)
	}
	return &experiment.Result{
		Model:    "beattie",
		Protocol: "constant",
		Params:   []float64{0.1, 0.2},
		Labels:   []string{"p1", "p2"},
		Times:    []float64{0, 1, 2},
		Voltage:  []float64{-80, -80, -80},
		Current:  []float64{0, 0.25, 0.5},
		States: []kinetics.Occupancy{
			{1, 0, 0},
			{0.9, 0.05, 0.01},
			{0.8, 0.1, 0.02},
		},
		RawSensitivities:        [][]float64{{0, 0}, {1, 2}, {3, 4}},
		NormalizedSensitivities: [][]float64{{1, 0}, {0, 0.5}, {1, 0.5}},
		Normalization:           "parameter",
		Spectrum:                sp,
		Metrics:                 map[string]float64{"peak_current": 0.5, "condition": math.Inf(1)},
		Reversal:                -0.0075,
	}
}

func TestSaveLoad(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "runs"))
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}

	res := sampleResult(t)
	id, err := s.Save(res)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	meta, err := s.Load(id)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.ID != id || meta.Model != "beattie" || meta.Samples != 3 || meta.Duration != 2 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if _, ok := meta.Metrics["condition"]; ok {
		t.Error("infinite metric should not be stored")
	}
	if meta.Metrics["peak_current"] != 0.5 {
		t.Errorf("peak_current = %v", meta.Metrics["peak_current"])
	}
	if len(meta.Eigenvalues) != 2 || meta.Eigenvalues[0] != 1 {
		t.Errorf("eigenvalues = %v", meta.Eigenvalues)
	}

	traces, err := s.LoadTraces(id)
	if err != nil {
		t.Fatal(err)
	}
	if o := traces.Column("O"); len(o) != 3 || o[2] != 0.1 {
		t.Errorf("O column = %v", o)
	}
	if traces.Column("missing") != nil {
		t.Error("expected nil for unknown column")
	}

	sens, err := s.LoadSensitivities(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(sens.Header) != 5 || sens.Header[1] != "dI/dp1" || sens.Header[4] != "norm_p2" {
		t.Errorf("sensitivity header = %v", sens.Header)
	}
	if c := sens.Column("dI/dp2"); c[2] != 4 {
		t.Errorf("dI/dp2 = %v", c)
	}

	eig, err := s.LoadEigenvalues(id)
	if err != nil {
		t.Fatal(err)
	}
	if n := eig.Column("normalized"); len(n) != 2 || n[0] != 1 {
		t.Errorf("normalized eigenvalues = %v", n)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	runs, err := s.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("empty store: %v, %v", runs, err)
	}

	res := sampleResult(t)
	first, err := s.Save(res)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := s.Save(res)
	if err != nil {
		t.Fatal(err)
	}
	// stray directories are skipped
	if err := os.Mkdir(filepath.Join(dir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("runs not newest first: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestLoadMissing(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Load("nope"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, err := s.LoadTraces("nope"); err == nil {
		t.Error("expected error for missing traces")
	}
}

func TestWriteJSON(t *testing.T) {
	s := New(t.TempDir())
	id, err := s.Save(sampleResult(t))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.WriteJSON(&buf, id); err != nil {
		t.Fatal(err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Metadata.ID != id {
		t.Errorf("metadata id = %q", got.Metadata.ID)
	}
	if c := got.Traces["current"]; len(c) != 3 || c[2] != 0.5 {
		t.Errorf("current = %v", c)
	}
	if n := got.Sensitivities["norm_p2"]; len(n) != 3 {
		t.Errorf("norm_p2 = %v", n)
	}
	if len(got.Eigenvalues["raw"]) != 2 {
		t.Errorf("eigenvalues = %v", got.Eigenvalues)
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := s.ExportJSON(path, id); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("export file not written: %v", err)
	}
}
