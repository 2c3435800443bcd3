package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/chansens/internal/experiment"
)

const (
	metadataFile      = "metadata.json"
	tracesFile        = "traces.csv"
	sensitivitiesFile = "sensitivities.csv"
	eigenvaluesFile   = "eigenvalues.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Model         string             `json:"model"`
	Protocol      string             `json:"protocol"`
	Timestamp     time.Time          `json:"timestamp"`
	Samples       int                `json:"samples"`
	Duration      float64            `json:"duration"`
	Method        string             `json:"method"`
	Normalization string             `json:"normalization"`
	Reversal      float64            `json:"reversal"`
	Params        []float64          `json:"params"`
	Eigenvalues   []float64          `json:"eigenvalues"`
	Violations    int                `json:"invariant_violations"`
	Metrics       map[string]float64 `json:"metrics"`
}

// Save writes a run directory with metadata, traces, sensitivities and
// eigenvalues, and returns the run ID: model, protocol and a random
// suffix.
func (s *Store) Save(res *experiment.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%s_%s", res.Model, res.Protocol, uuid.New().String()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	duration := 0.0
	if n := len(res.Times); n > 0 {
		duration = res.Times[n-1] - res.Times[0]
	}
	meta := RunMetadata{
		ID:            runID,
		Model:         res.Model,
		Protocol:      res.Protocol,
		Timestamp:     now,
		Samples:       len(res.Times),
		Duration:      duration,
		Method:        res.Stats.Method,
		Normalization: res.Normalization,
		Reversal:      res.Reversal,
		Params:        res.Params,
		Violations:    len(res.Diagnostics),
		Metrics:       finite(res.Metrics),
	}
	if res.Spectrum != nil {
		meta.Eigenvalues = res.Spectrum.Normalized
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	header := []string{"time", "voltage", "current", "C", "O", "I"}
	err := writeCSV(filepath.Join(runDir, tracesFile), header, len(res.Times), func(k int) []float64 {
		occ := res.States[k]
		return []float64{res.Times[k], res.Voltage[k], res.Current[k], occ[0], occ[1], occ[2]}
	})
	if err != nil {
		return "", err
	}

	header = []string{"time"}
	for _, l := range res.Labels {
		header = append(header, "dI/d"+l)
	}
	for _, l := range res.Labels {
		header = append(header, "norm_"+l)
	}
	err = writeCSV(filepath.Join(runDir, sensitivitiesFile), header, len(res.Times), func(k int) []float64 {
		row := []float64{res.Times[k]}
		row = append(row, res.RawSensitivities[k]...)
		return append(row, res.NormalizedSensitivities[k]...)
	})
	if err != nil {
		return "", err
	}

	if res.Spectrum != nil {
		sp := res.Spectrum
		err = writeCSV(filepath.Join(runDir, eigenvaluesFile), []string{"index", "raw", "normalized"}, sp.Len(), func(i int) []float64 {
			return []float64{float64(i + 1), sp.Raw[i], sp.Normalized[i]}
		})
		if err != nil {
			return "", err
		}
	}

	return runID, nil
}

// finite drops values JSON cannot encode, such as an infinite condition
// number.
func finite(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if v == v && v-v == 0 {
			out[k] = v
		}
	}
	return out
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, header []string, n int, row func(int) []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for k := 0; k < n; k++ {
		vals := row(k)
		record = record[:0]
		for _, v := range vals {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, metadataFile)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

// Table is a CSV file read back as columns.
type Table struct {
	Header  []string
	Columns [][]float64
}

// Column returns the column with the given header name, or nil.
func (t *Table) Column(name string) []float64 {
	for i, h := range t.Header {
		if h == name {
			return t.Columns[i]
		}
	}
	return nil
}

func (s *Store) LoadTraces(runID string) (*Table, error) {
	return s.loadTable(runID, tracesFile)
}

func (s *Store) LoadSensitivities(runID string) (*Table, error) {
	return s.loadTable(runID, sensitivitiesFile)
}

func (s *Store) LoadEigenvalues(runID string) (*Table, error) {
	return s.loadTable(runID, eigenvaluesFile)
}

func (s *Store) loadTable(runID, name string) (*Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s %s: %w", runID, name, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	t := &Table{Header: records[0], Columns: make([][]float64, len(records[0]))}
	for i := 1; i < len(records); i++ {
		for j, field := range records[i] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s %s line %d: %w", runID, name, i+1, err)
			}
			t.Columns[j] = append(t.Columns[j], v)
		}
	}
	return t, nil
}
