package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/chansens/internal/config"
	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/identifiability"
	"github.com/san-kum/chansens/internal/kinetics"
	"github.com/san-kum/chansens/internal/metrics"
	"github.com/san-kum/chansens/internal/protocol"
	"github.com/san-kum/chansens/internal/sensitivity"
)

type Config struct {
	Model         string
	Params        []float64
	Protocol      protocol.Protocol
	Grid          []float64
	Solver        dynamo.Config
	Normalization string
	Reversal      kinetics.Reversal
	InvariantTol  float64
}

// FromConfig resolves a file configuration into a runnable one.
func FromConfig(c *config.Config) (Config, error) {
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	proto, err := c.BuildProtocol()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Model:         c.Model,
		Params:        append([]float64(nil), c.Params...),
		Protocol:      proto,
		Grid:          c.Grid(),
		Solver:        c.SolverConfig(),
		Normalization: c.Normalization,
		Reversal:      c.Reversal,
		InvariantTol:  c.InvariantTol,
	}, nil
}

type Result struct {
	Model    string
	Protocol string
	Params   []float64
	Labels   []string

	Times   []float64
	Voltage []float64
	Current []float64
	States  []kinetics.Occupancy

	// Sensitivities are samples x parameters.
	RawSensitivities        [][]float64
	NormalizedSensitivities [][]float64
	Normalization           string

	Spectrum     *identifiability.Spectrum
	Correlations []identifiability.Pair
	Diagnostics  []dynamo.InvariantViolation
	Metrics      map[string]float64

	Reversal float64
	Stats    sensitivity.Stats
	Elapsed  time.Duration
}

type Experiment struct {
	cfg      Config
	registry *Registry
	logger   *slog.Logger
}

func New(cfg Config, registry *Registry) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Experiment{
		cfg:      cfg,
		registry: registry,
		logger:   slog.Default().With("component", "experiment"),
	}
}

// Run executes the full pipeline: simulate states and sensitivities,
// compute the current and its sensitivities, normalize them and analyse
// the information matrix.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	cfg := e.cfg
	if cfg.Protocol == nil {
		return nil, &dynamo.ConfigurationError{Field: "protocol", Message: "not set"}
	}

	eqs, err := e.registry.GetEquations(cfg.Model)
	if err != nil {
		return nil, err
	}
	policy, err := e.registry.GetPolicy(cfg.Normalization)
	if err != nil {
		return nil, err
	}
	if err := cfg.Reversal.Validate(); err != nil {
		return nil, &dynamo.ConfigurationError{Field: "reversal", Message: err.Error()}
	}
	erev := cfg.Reversal.Potential()

	tr, err := sensitivity.Simulate(ctx, eqs, cfg.Params, cfg.Protocol, cfg.Grid, cfg.Solver)
	if err != nil {
		return nil, err
	}

	diags := sensitivity.CheckInvariants(tr, cfg.InvariantTol)
	if len(diags) > 0 {
		e.logger.Warn("occupancy invariant violated",
			"model", cfg.Model,
			"samples", len(diags),
			"first", diags[0].Error(),
		)
	}

	ct, err := sensitivity.Current(tr, cfg.Params, cfg.Protocol, erev)
	if err != nil {
		return nil, err
	}

	norm, err := policy.Normalize(ct.Sens, cfg.Params, ct.Current)
	if err != nil {
		return nil, fmt.Errorf("normalize (%s): %w", policy.Name(), err)
	}

	spectrum, err := identifiability.Analyze(norm)
	if err != nil {
		return nil, err
	}

	var pairs []identifiability.Pair
	if len(norm) > 1 {
		if pairs, err = identifiability.Correlations(norm); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Model:                   cfg.Model,
		Protocol:                cfg.Protocol.Name(),
		Params:                  append([]float64(nil), cfg.Params...),
		Labels:                  eqs.Model.ParamLabels(),
		Times:                   tr.Times,
		Voltage:                 ct.Voltage,
		Current:                 ct.Current,
		States:                  tr.States,
		RawSensitivities:        ct.Sens,
		NormalizedSensitivities: norm,
		Normalization:           policy.Name(),
		Spectrum:                spectrum,
		Correlations:            pairs,
		Diagnostics:             diags,
		Reversal:                erev,
		Stats:                   tr.Stats,
	}
	res.Metrics = e.collect(eqs.Model.Topology, res)
	res.Elapsed = time.Since(start)

	e.logger.Info("run finished",
		"model", res.Model,
		"protocol", res.Protocol,
		"samples", len(res.Times),
		"method", res.Stats.Method,
		"steps", res.Stats.Steps,
		"condition", spectrum.Condition(),
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func (e *Experiment) collect(tp *kinetics.Topology, res *Result) map[string]float64 {
	rows := make([][]float64, len(res.Times))
	for k := range rows {
		rows[k] = metrics.Row(res.Voltage[k], res.Current[k], res.States[k][:])
	}
	out := metrics.Collect(e.registry.DefaultMetrics(tp), res.Times, rows)

	sp := res.Spectrum
	out["min_eigenvalue"] = sp.Normalized[sp.Len()-1]
	out["condition"] = sp.Condition()
	out["steps"] = float64(res.Stats.Steps)
	out["invariant_violations"] = float64(len(res.Diagnostics))
	if len(res.Correlations) > 0 {
		out["max_correlation"] = math.Abs(res.Correlations[0].Correlation)
	}
	return out
}

// Sweep runs base once per parameter vector on a bounded worker pool.
// Results and errors are indexed like paramSets; a failed run leaves a
// nil result and does not stop the others.
func Sweep(ctx context.Context, registry *Registry, base Config, paramSets [][]float64) ([]*Result, []error) {
	if registry == nil {
		registry = NewRegistry()
	}
	results := make([]*Result, len(paramSets))
	errs := make([]error, len(paramSets))

	// derive once before fanning out
	if _, err := registry.GetEquations(base.Model); err != nil {
		for i := range errs {
			errs[i] = err
		}
		return results, errs
	}

	skipped := dynamo.ParallelFor(ctx, len(paramSets), 0, func(i int) {
		cfg := base
		cfg.Params = paramSets[i]
		results[i], errs[i] = New(cfg, registry).Run(ctx)
	})
	for _, i := range skipped {
		errs[i] = ctx.Err()
	}
	return results, errs
}

// FirstError returns the first non-nil error of a sweep.
func FirstError(errs []error) error {
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("run %d: %w", i, err)
		}
	}
	return nil
}
