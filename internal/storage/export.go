package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Metadata      *RunMetadata         `json:"metadata"`
	Traces        map[string][]float64 `json:"traces"`
	Sensitivities map[string][]float64 `json:"sensitivities"`
	Eigenvalues   map[string][]float64 `json:"eigenvalues,omitempty"`
}

// Export gathers everything stored for a run into one document.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	traces, err := s.LoadTraces(runID)
	if err != nil {
		return nil, err
	}
	sens, err := s.LoadSensitivities(runID)
	if err != nil {
		return nil, err
	}

	data := &ExportData{
		Metadata:      meta,
		Traces:        traces.columns(),
		Sensitivities: sens.columns(),
	}
	// runs with a degenerate spectrum have no eigenvalue file
	if eig, err := s.LoadEigenvalues(runID); err == nil {
		data.Eigenvalues = eig.columns()
	}
	return data, nil
}

func (t *Table) columns() map[string][]float64 {
	out := make(map[string][]float64, len(t.Header))
	for i, h := range t.Header {
		out[h] = t.Columns[i]
	}
	return out
}

func (s *Store) ExportJSON(path, runID string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return s.WriteJSON(file, runID)
}

func (s *Store) WriteJSON(w io.Writer, runID string) error {
	data, err := s.Export(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
