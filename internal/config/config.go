package config

import (
	"fmt"
	"os"

	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/kinetics"
	"github.com/san-kum/chansens/internal/normalize"
	"github.com/san-kum/chansens/internal/protocol"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel        = "beattie"
	DefaultDuration     = 8000.0
	DefaultSampleStep   = 1.0
	DefaultHoldVoltage  = -80.0
	DefaultInvariantTol = 1e-6
)

// BeattieParams are the published hERG parameters (J Physiol 2018).
var BeattieParams = []float64{2.26e-4, 0.0699, 3.45e-5, 0.05462, 0.0873, 8.92e-3, 5.150e-3, 0.03158, 0.1524}

type Config struct {
	Model         string            `yaml:"model"`
	Params        []float64         `yaml:"params"`
	Protocol      ProtocolConfig    `yaml:"protocol"`
	Duration      float64           `yaml:"duration"`
	SampleStep    float64           `yaml:"sample_step"`
	Solver        SolverConfig      `yaml:"solver"`
	Normalization string            `yaml:"normalization"`
	Reversal      kinetics.Reversal `yaml:"reversal"`
	InvariantTol  float64           `yaml:"invariant_tolerance"`
}

type ProtocolConfig struct {
	Kind       string           `yaml:"kind"`
	Voltage    float64          `yaml:"voltage,omitempty"`
	Offset     float64          `yaml:"offset,omitempty"`
	Components []SinusoidConfig `yaml:"components,omitempty"`
	Segments   []SegmentConfig  `yaml:"segments,omitempty"`
}

type SinusoidConfig struct {
	Amplitude float64 `yaml:"amplitude"`
	Frequency float64 `yaml:"frequency"`
	Phase     float64 `yaml:"phase,omitempty"`
}

type SegmentConfig struct {
	Until   float64 `yaml:"until"`
	Voltage float64 `yaml:"voltage"`
}

type SolverConfig struct {
	Method    string  `yaml:"method"`
	RelTol    float64 `yaml:"rel_tol"`
	AbsTol    float64 `yaml:"abs_tol"`
	InitialDt float64 `yaml:"initial_dt"`
	MinDt     float64 `yaml:"min_dt"`
	MaxDt     float64 `yaml:"max_dt"`
	MaxSteps  int     `yaml:"max_steps"`
}

func DefaultConfig() *Config {
	dc := dynamo.DefaultConfig()
	return &Config{
		Model:      DefaultModel,
		Params:     append([]float64(nil), BeattieParams...),
		Protocol:   ProtocolConfig{Kind: "constant", Voltage: DefaultHoldVoltage},
		Duration:   DefaultDuration,
		SampleStep: DefaultSampleStep,
		Solver: SolverConfig{
			Method:    dc.Method,
			RelTol:    dc.RelTol,
			AbsTol:    dc.AbsTol,
			InitialDt: dc.InitialDt,
			MinDt:     dc.MinDt,
			MaxDt:     dc.MaxDt,
			MaxSteps:  dc.MaxSteps,
		},
		Normalization: "parameter",
		Reversal:      kinetics.DefaultReversal(),
		InvariantTol:  DefaultInvariantTol,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy so presets are never modified by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Params = append([]float64(nil), c.Params...)
	out.Protocol.Components = append([]SinusoidConfig(nil), c.Protocol.Components...)
	out.Protocol.Segments = append([]SegmentConfig(nil), c.Protocol.Segments...)
	return &out
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return &dynamo.ConfigurationError{Field: "model", Message: "not set"}
	}
	if len(c.Params) == 0 {
		return &dynamo.ConfigurationError{Field: "params", Message: "no parameters"}
	}
	if c.Duration <= 0 {
		return &dynamo.ConfigurationError{Field: "duration", Message: fmt.Sprintf("must be positive, got %g", c.Duration)}
	}
	if c.SampleStep <= 0 || c.SampleStep > c.Duration {
		return &dynamo.ConfigurationError{Field: "sample_step", Message: fmt.Sprintf("must be in (0, duration], got %g", c.SampleStep)}
	}
	if c.InvariantTol < 0 {
		return &dynamo.ConfigurationError{Field: "invariant_tolerance", Message: "must not be negative"}
	}
	if _, err := normalize.ByName(c.Normalization); err != nil {
		return err
	}
	if err := c.Reversal.Validate(); err != nil {
		return &dynamo.ConfigurationError{Field: "reversal", Message: err.Error()}
	}
	if _, err := c.BuildProtocol(); err != nil {
		return err
	}
	return c.SolverConfig().Validate()
}

// BuildProtocol turns the protocol section into a voltage protocol. A sine
// protocol with no components uses the default three-tone mixture.
func (c *Config) BuildProtocol() (protocol.Protocol, error) {
	pc := c.Protocol
	switch pc.Kind {
	case "", "constant":
		return protocol.Constant{V: pc.Voltage}, nil
	case "sine":
		if len(pc.Components) == 0 {
			return protocol.DefaultSine(), nil
		}
		s := protocol.Sine{Offset: pc.Offset}
		for _, sc := range pc.Components {
			if sc.Frequency <= 0 {
				return nil, &dynamo.ConfigurationError{Field: "protocol.components", Message: fmt.Sprintf("frequency must be positive, got %g", sc.Frequency)}
			}
			s.Components = append(s.Components, protocol.Sinusoid{Amplitude: sc.Amplitude, Frequency: sc.Frequency, Phase: sc.Phase})
		}
		return s, nil
	case "steps":
		segs := make([]protocol.Segment, len(pc.Segments))
		for i, sc := range pc.Segments {
			segs[i] = protocol.Segment{Until: sc.Until, V: sc.Voltage}
		}
		st, err := protocol.NewSteps(segs...)
		if err != nil {
			return nil, &dynamo.ConfigurationError{Field: "protocol.segments", Message: err.Error()}
		}
		return st, nil
	}
	return nil, &dynamo.ConfigurationError{Field: "protocol.kind", Message: fmt.Sprintf("unknown protocol %q", pc.Kind)}
}

func (c *Config) SolverConfig() dynamo.Config {
	return dynamo.Config{
		Method:    c.Solver.Method,
		RelTol:    c.Solver.RelTol,
		AbsTol:    c.Solver.AbsTol,
		InitialDt: c.Solver.InitialDt,
		MinDt:     c.Solver.MinDt,
		MaxDt:     c.Solver.MaxDt,
		MaxSteps:  c.Solver.MaxSteps,
	}
}

// Grid returns the sample times 0, SampleStep, ..., Duration.
func (c *Config) Grid() []float64 {
	n := int(c.Duration/c.SampleStep+1e-9) + 1
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = float64(i) * c.SampleStep
	}
	return grid
}
