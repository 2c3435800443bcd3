package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/protocol"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "beattie" {
		t.Errorf("expected model beattie, got %s", cfg.Model)
	}
	if len(cfg.Params) != 9 {
		t.Errorf("expected 9 parameters, got %d", len(cfg.Params))
	}
	if cfg.SampleStep <= 0 || cfg.Duration <= 0 {
		t.Error("sample step and duration should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg.Params[0] = 1
	if BeattieParams[0] == 1 {
		t.Error("default config shares the parameter slice")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("beattie", "sine")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	p, err := cfg.BuildProtocol()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(protocol.Sine); !ok {
		t.Errorf("expected sine protocol, got %T", p)
	}
	if cfg.Duration != 8000 {
		t.Errorf("expected duration 8000, got %g", cfg.Duration)
	}

	for _, name := range ListPresets("beattie") {
		if err := GetPreset("beattie", name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("beattie", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "sine"); cfg != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("beattie")
	if len(presets) != 3 || presets[0] != "constant" {
		t.Errorf("unexpected presets %v", presets)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent model")
	}
	if models := ListModels(); len(models) != 1 || models[0] != "beattie" {
		t.Errorf("unexpected models %v", models)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := GetPreset("beattie", "steps")
	cfg.Solver.Method = "rosenbrock23"
	cfg.Normalization = "relative"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Solver.Method != "rosenbrock23" || loaded.Normalization != "relative" {
		t.Errorf("round trip lost fields: %+v", loaded.Solver)
	}
	if len(loaded.Protocol.Segments) != len(cfg.Protocol.Segments) {
		t.Errorf("expected %d segments, got %d", len(cfg.Protocol.Segments), len(loaded.Protocol.Segments))
	}
	if loaded.Reversal != cfg.Reversal {
		t.Errorf("reversal constants changed: %+v", loaded.Reversal)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no params", func(c *Config) { c.Params = nil }},
		{"zero duration", func(c *Config) { c.Duration = 0 }},
		{"sample step too large", func(c *Config) { c.SampleStep = c.Duration * 2 }},
		{"unknown normalization", func(c *Config) { c.Normalization = "log" }},
		{"unknown protocol", func(c *Config) { c.Protocol.Kind = "ramp" }},
		{"unordered steps", func(c *Config) {
			c.Protocol = ProtocolConfig{Kind: "steps", Segments: []SegmentConfig{{Until: 10}, {Until: 5}}}
		}},
		{"zero frequency", func(c *Config) {
			c.Protocol = ProtocolConfig{Kind: "sine", Components: []SinusoidConfig{{Amplitude: 1}}}
		}},
		{"bad tolerance", func(c *Config) { c.Solver.RelTol = -1 }},
		{"bad reversal", func(c *Config) { c.Reversal.Outside = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestGrid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Duration, cfg.SampleStep = 8000, 1
	g := cfg.Grid()
	if len(g) != 8001 || g[0] != 0 || g[8000] != 8000 {
		t.Errorf("unexpected grid: %d samples, last %v", len(g), g[len(g)-1])
	}

	cfg.Duration, cfg.SampleStep = 1, 0.1
	if n := len(cfg.Grid()); n != 11 {
		t.Errorf("expected 11 samples, got %d", n)
	}
}

func TestSolverConfig(t *testing.T) {
	cfg := DefaultConfig()
	if sc := cfg.SolverConfig(); sc != dynamo.DefaultConfig() {
		t.Errorf("solver config %+v differs from defaults", sc)
	}
}
