package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/chansens/internal/analysis"
	"github.com/san-kum/chansens/internal/config"
	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/experiment"
	"github.com/san-kum/chansens/internal/export"
	"github.com/san-kum/chansens/internal/integrators"
	"github.com/san-kum/chansens/internal/kinetics"
	"github.com/san-kum/chansens/internal/scan"
	"github.com/san-kum/chansens/internal/sensitivity"
	"github.com/san-kum/chansens/internal/storage"
	"github.com/san-kum/chansens/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
)

var (
	dataDir  string
	logLevel string

	configFile    string
	preset        string
	sineWave      bool
	duration      float64
	sampleStep    float64
	holdVoltage   float64
	method        string
	relTol        float64
	absTol        float64
	maxSteps      int
	normalization string
	params        string
	noSave        bool
	showPlots     bool

	// sweep
	sweepParam int
	sweepScale string
	metricName string

	// check
	checkParams string
	checkEps    float64

	exportOut string
	figDir    string
	figFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chansens",
		Short: "sensitivity and identifiability analysis of ion channel models",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".chansens", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "simulate a model with sensitivities and analyse identifiability",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalysis,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&showPlots, "plot", true, "plot voltage, current and open probability")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "plot stored traces",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	eigenCmd := &cobra.Command{
		Use:   "eigen [run_id]",
		Short: "show the normalized eigenvalue spectrum of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  eigenRun,
	}

	equationsCmd := &cobra.Command{
		Use:   "equations [model]",
		Short: "print the model and its sensitivity equations",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printEquations,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models := config.ListModels()
			if len(args) > 0 {
				models = args[:1]
			}
			for _, m := range models {
				presets := config.ListPresets(m)
				if len(presets) == 0 {
					fmt.Printf("no presets for model: %s\n", m)
					continue
				}
				fmt.Printf("presets for %s:\n", m)
				for _, p := range presets {
					fmt.Printf("  %s\n", p)
				}
			}
			return nil
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare [method1] [method2] ...",
		Short: "compare integration methods on the same configuration",
		RunE:  compareMethods,
	}
	addRunFlags(compareCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "scale one parameter over a grid and report the spectrum at each point",
		RunE:  sweepParameter,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepParam, "param", 9, "1-based parameter index to vary")
	sweepCmd.Flags().StringVar(&sweepScale, "scales", "0.5,0.75,1,1.5,2", "comma separated multipliers of the nominal value")
	sweepCmd.Flags().StringVar(&metricName, "metric", "max_correlation", "extra metric column")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "compare analytic current sensitivities with finite differences",
		RunE:  checkGradients,
	}
	addRunFlags(checkCmd)
	checkCmd.Flags().StringVar(&checkParams, "params-to-check", "", "comma separated 1-based parameter indices (default all)")
	checkCmd.Flags().Float64Var(&checkEps, "eps", 1e-4, "relative finite difference step")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "frequency analysis of stored voltage and current",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	figuresCmd := &cobra.Command{
		Use:   "figures [run_id]",
		Short: "write occupancy, current and eigenvalue figures",
		Args:  cobra.ExactArgs(1),
		RunE:  exportFigures,
	}
	figuresCmd.Flags().StringVarP(&figDir, "out", "o", ".", "output directory")
	figuresCmd.Flags().StringVar(&figFormat, "format", "svg", "figure format (svg, png)")

	rootCmd.AddCommand(runCmd, listCmd, showCmd, eigenCmd, equationsCmd, presetsCmd, compareCmd, sweepCmd, checkCmd, spectrumCmd, exportJSONCmd, figuresCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, viz.StatusFail.Render("error:"), err)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func addRunFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().BoolVar(&sineWave, "sine-wave", false, "use the sine-wave protocol instead of a constant voltage")
	cmd.Flags().Float64Var(&duration, "duration", def.Duration, "experiment duration (ms)")
	cmd.Flags().Float64Var(&sampleStep, "step", def.SampleStep, "sampling interval (ms)")
	cmd.Flags().Float64Var(&holdVoltage, "voltage", def.Protocol.Voltage, "holding voltage of the constant protocol (mV)")
	cmd.Flags().StringVar(&method, "method", def.Solver.Method, "integration method ("+strings.Join(integrators.Methods(), ", ")+")")
	cmd.Flags().Float64Var(&relTol, "rtol", def.Solver.RelTol, "relative tolerance")
	cmd.Flags().Float64Var(&absTol, "atol", def.Solver.AbsTol, "absolute tolerance")
	cmd.Flags().IntVar(&maxSteps, "max-steps", def.Solver.MaxSteps, "step budget")
	cmd.Flags().StringVar(&normalization, "normalization", def.Normalization, "sensitivity normalization (parameter, relative)")
	cmd.Flags().StringVar(&params, "params", "", "comma separated parameter vector")
}

// loadConfig resolves preset, config file and flags in that order; flags
// only override when set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Model = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Model))
		}
		cfg = p
	}

	if configFile != "" {
		fc, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fc
		if len(args) > 0 {
			cfg.Model = args[0]
		}
	}

	flags := cmd.Flags()
	if flags.Changed("sine-wave") {
		if sineWave {
			cfg.Protocol = config.ProtocolConfig{Kind: "sine"}
		} else {
			cfg.Protocol = config.ProtocolConfig{Kind: "constant", Voltage: holdVoltage}
		}
	}
	if flags.Changed("voltage") {
		cfg.Protocol = config.ProtocolConfig{Kind: "constant", Voltage: holdVoltage}
	}
	if flags.Changed("duration") {
		cfg.Duration = duration
	}
	if flags.Changed("step") {
		cfg.SampleStep = sampleStep
	}
	if flags.Changed("method") {
		cfg.Solver.Method = method
	}
	if flags.Changed("rtol") {
		cfg.Solver.RelTol = relTol
	}
	if flags.Changed("atol") {
		cfg.Solver.AbsTol = absTol
	}
	if flags.Changed("max-steps") {
		cfg.Solver.MaxSteps = maxSteps
	}
	if flags.Changed("normalization") {
		cfg.Normalization = normalization
	}
	if flags.Changed("params") {
		p, err := parseFloats(params)
		if err != nil {
			return nil, fmt.Errorf("--params: %w", err)
		}
		cfg.Params = p
	}

	return cfg, cfg.Validate()
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseIndices(s string, n int) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx, nil
	}
	vals, err := parseFloats(s)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(vals))
	for i, v := range vals {
		j := int(v)
		if float64(j) != v || j < 1 || j > n {
			return nil, fmt.Errorf("parameter index %v not in 1..%d", v, n)
		}
		idx[i] = j - 1
	}
	return idx, nil
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ecfg, err := experiment.FromConfig(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("running %s (%s protocol, %.0f ms)...\n", cfg.Model, ecfg.Protocol.Name(), cfg.Duration)
	res, err := experiment.New(ecfg, experiment.NewRegistry()).Run(cmd.Context())
	if errors.Is(err, dynamo.ErrIntegration) {
		fmt.Fprintln(os.Stderr, viz.Subtle.Render("hint: retry with --method rosenbrock23, a looser --rtol or a larger --max-steps"))
	}
	if err != nil {
		return err
	}

	printReport(res)

	if showPlots {
		fmt.Println(viz.Plot(res.Voltage, "voltage (mV)", 8, 80))
		fmt.Println()
		fmt.Println(viz.Plot(res.Current, "current", 8, 80))
		fmt.Println()
		open := make([]float64, len(res.States))
		for k, s := range res.States {
			open[k] = s[kinetics.Open]
		}
		fmt.Println(viz.Plot(open, "open probability", 8, 80))
		fmt.Println()
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(res)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func printReport(res *experiment.Result) {
	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s / %s", res.Model, res.Protocol)))
	fmt.Printf("completed in %v (%s, %d steps, %d rejected)\n",
		res.Elapsed.Round(time.Millisecond), res.Stats.Method, res.Stats.Steps, res.Stats.Rejected)
	if res.Stats.Switched {
		fmt.Println(viz.StatusWarn.Render("stiffness detected: switched to rosenbrock23"))
	}
	fmt.Printf("reversal potential: %.6g\n", res.Reversal)

	if n := len(res.Diagnostics); n > 0 {
		fmt.Println(viz.StatusWarn.Render(fmt.Sprintf("%d invariant violations, first: %v", n, res.Diagnostics[0])))
	} else {
		fmt.Println(viz.StatusOK.Render("occupancy invariants hold"))
	}

	fmt.Println(viz.Separator(60))
	fmt.Println(viz.Title.Render("normalized eigenvalues (" + res.Normalization + ")"))
	printEigenvalues(res.Spectrum.Normalized)

	if n := min(3, len(res.Correlations)); n > 0 {
		fmt.Println()
		fmt.Println(viz.Title.Render("most correlated parameter pairs"))
		for _, p := range res.Correlations[:n] {
			fmt.Printf("  %s/%s  %s\n", res.Labels[p.I], res.Labels[p.J], viz.MetricValue.Render(fmt.Sprintf("%+.4f", p.Correlation)))
		}
	}

	fmt.Println(viz.Separator(60))
	fmt.Println(viz.Title.Render("metrics"))
	for _, name := range sortedKeys(res.Metrics) {
		fmt.Println("  " + viz.Metric(name, res.Metrics[name]))
	}
	fmt.Println()
}

func printEigenvalues(values []float64) {
	for i, v := range values {
		fmt.Printf("  λ%-2d %12.4e  %s\n", i+1, v, viz.EigenBar(v, 16, 32))
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tPROTOCOL\tTIME\tDURATION\tMETHOD\tNORM\tMIN_EIG")

	for _, run := range runs {
		minEig := 0.0
		if n := len(run.Eigenvalues); n > 0 {
			minEig = run.Eigenvalues[n-1]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0fms\t%s\t%s\t%.3e\n",
			run.ID,
			run.Model,
			run.Protocol,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Method,
			run.Normalization,
			minEig,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	traces, err := st.LoadTraces(runID)
	if err != nil {
		return err
	}
	if len(traces.Column("time")) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s (%s)\n", meta.Model, meta.Protocol)
	fmt.Printf("samples: %d\n\n", meta.Samples)

	for _, col := range []struct{ name, caption string }{
		{"voltage", "voltage (mV)"},
		{"current", "current"},
	} {
		fmt.Println(viz.Plot(traces.Column(col.name), col.caption, 10, 80))
		fmt.Println()
	}
	fmt.Println(viz.PlotMany([][]float64{traces.Column("C"), traces.Column("O"), traces.Column("I")},
		"occupancies C (blue), O (green), I (red)", 10, 80))
	fmt.Println()

	sens, err := st.LoadSensitivities(runID)
	if err != nil {
		return err
	}
	fmt.Println(viz.Title.Render("normalized current sensitivities"))
	for _, h := range sens.Header {
		if !strings.HasPrefix(h, "norm_") {
			continue
		}
		fmt.Printf("  %-6s %s\n", strings.TrimPrefix(h, "norm_"), viz.Sparkline(sens.Column(h), 60))
	}
	return nil
}

func eigenRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	eig, err := st.LoadEigenvalues(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s normalization)\n\n", meta.ID, meta.Normalization)
	printEigenvalues(eig.Column("normalized"))

	if raw := eig.Column("raw"); len(raw) > 0 {
		fmt.Println()
		fmt.Println("  " + viz.Metric("largest raw eigenvalue", raw[0]))
		if c, ok := meta.Metrics["condition"]; ok {
			fmt.Println("  " + viz.Metric("condition", c))
		} else {
			fmt.Println("  " + viz.MetricLabel.Render("condition:") + " " + viz.StatusFail.Render("inf"))
		}
	}
	return nil
}

func printEquations(cmd *cobra.Command, args []string) error {
	model := config.DefaultModel
	if len(args) > 0 {
		model = args[0]
	}

	registry := experiment.NewRegistry()
	eqs, err := registry.GetEquations(model)
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render("model " + model))
	fmt.Println(eqs.Model.Describe())
	fmt.Println(viz.HeaderStyle.Render("sensitivity system"))
	fmt.Printf("%d states, %d parameters, %d augmented equations, %d nonzero Jacobian entries\n\n",
		eqs.NumStates(), eqs.NumParams(), eqs.Dim(), eqs.JacobianNonzeros())
	fmt.Println(eqs.Describe())
	return nil
}

func compareMethods(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	ecfg, err := experiment.FromConfig(cfg)
	if err != nil {
		return err
	}

	methods := args
	if len(methods) == 0 {
		methods = integrators.Methods()
	}

	registry := experiment.NewRegistry()
	eqs, err := registry.GetEquations(cfg.Model)
	if err != nil {
		return err
	}
	erev := ecfg.Reversal.Potential()

	fmt.Printf("comparing methods for %s (%s protocol, %.0f ms, rtol=%g)\n\n", cfg.Model, ecfg.Protocol.Name(), cfg.Duration, cfg.Solver.RelTol)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tSTEPS\tREJECTED\tEVALS\tMAX|ΔI|\tMAX|ΔdI/dp|\tTIME")

	var ref *sensitivity.CurrentTrace
	for _, m := range methods {
		solver := ecfg.Solver
		solver.Method = m

		start := time.Now()
		tr, err := sensitivity.Simulate(cmd.Context(), eqs, ecfg.Params, ecfg.Protocol, ecfg.Grid, solver)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", m, err)
			continue
		}
		ct, err := sensitivity.Current(tr, ecfg.Params, ecfg.Protocol, erev)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		if ref == nil {
			ref = ct
		}
		dI, dS := 0.0, 0.0
		for k := range ct.Current {
			dI = max(dI, math.Abs(ct.Current[k]-ref.Current[k]))
			for j := range ct.Sens[k] {
				dS = max(dS, math.Abs(ct.Sens[k][j]-ref.Sens[k][j]))
			}
		}

		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2e\t%.2e\t%v\n",
			tr.Stats.Method, tr.Stats.Steps, tr.Stats.Rejected, tr.Stats.Evaluations, dI, dS, elapsed.Round(time.Millisecond))
	}
	return w.Flush()
}

func sweepParameter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	base, err := experiment.FromConfig(cfg)
	if err != nil {
		return err
	}

	idx := sweepParam - 1
	if idx < 0 || idx >= len(base.Params) {
		return fmt.Errorf("--param %d not in 1..%d", sweepParam, len(base.Params))
	}
	scales, err := parseFloats(sweepScale)
	if err != nil {
		return fmt.Errorf("--scales: %w", err)
	}
	values := make([]float64, len(scales))
	for i, s := range scales {
		values[i] = s * base.Params[idx]
	}

	fmt.Printf("sweeping p%d over %d values\n\n", sweepParam, len(values))
	points, err := scan.NewGrid(scan.Axis{Index: idx, Values: values}).
		Run(cmd.Context(), experiment.NewRegistry(), base)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "P%d\tMIN_EIG\tCONDITION\t%s\tSTATUS\n", sweepParam, strings.ToUpper(metricName))
	failed := 0
	for _, p := range points {
		status := viz.StatusOK.Render("ok")
		switch {
		case p.Err != nil:
			failed++
			status = viz.StatusFail.Render(p.Err.Error())
		case p.Violations > 0:
			status = viz.StatusWarn.Render(fmt.Sprintf("%d invariant violations", p.Violations))
		}
		fmt.Fprintf(w, "%.6g\t%.3e\t%.3e\t%.6g\t%s\n",
			p.Params[idx], p.Value("min_eigenvalue"), p.Value("condition"), p.Value(metricName), status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed == len(points) {
		return fmt.Errorf("all %d runs failed", failed)
	}
	return nil
}

func checkGradients(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	ecfg, err := experiment.FromConfig(cfg)
	if err != nil {
		return err
	}
	indices, err := parseIndices(checkParams, len(ecfg.Params))
	if err != nil {
		return err
	}

	eqs, err := experiment.NewRegistry().GetEquations(cfg.Model)
	if err != nil {
		return err
	}

	fmt.Printf("gradient check for %s (%s protocol, eps=%g)\n\n", cfg.Model, ecfg.Protocol.Name(), checkEps)
	results, err := analysis.GradientCheck(cmd.Context(), eqs, ecfg.Params, ecfg.Protocol, ecfg.Grid, ecfg.Solver,
		ecfg.Reversal.Potential(), indices, checkEps)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAM\tEPS\tMAX|dI/dp|\tMAX ERROR\tRELATIVE\t")
	failed := 0
	for _, r := range results {
		ok := r.Relative() < 1e-3
		label := "ok"
		if !ok {
			failed++
			label = "mismatch"
		}
		fmt.Fprintf(w, "p%d\t%.3g\t%.4e\t%.4e\t%.3e\t%s\n",
			r.Param+1, r.Eps, r.MaxAnalytic, r.MaxError, r.Relative(), viz.Status(ok, label))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d parameters disagree with finite differences", failed, len(results))
	}
	return nil
}

func spectrumRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traces, err := st.LoadTraces(args[0])
	if err != nil {
		return err
	}
	times := traces.Column("time")
	if len(times) < 4 {
		return fmt.Errorf("not enough samples for a spectrum")
	}
	dt := times[1] - times[0]

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("model: %s (%s)\n", meta.Model, meta.Protocol)
	fmt.Printf("resolution: %.3g rad/ms\n\n", 2*math.Pi*analysis.Resolution(len(times), dt))

	for _, name := range []string{"voltage", "current"} {
		data := traces.Column(name)
		ps := analysis.PowerSpectrum(data)
		fmt.Println(viz.Plot(ps[:max(2, len(ps)/8)], "power spectrum ("+name+")", 10, 80))
		fmt.Println()

		peaks := analysis.DominantFrequencies(data, dt, 3)
		if len(peaks) == 0 {
			fmt.Printf("%s: no dominant frequencies\n\n", name)
			continue
		}
		fmt.Printf("%s dominant frequencies:\n", name)
		for _, p := range peaks {
			fmt.Printf("  %.4f rad/ms (period %.1f ms, power %.3g)\n", p.Angular(), 1/p.Frequency, p.Magnitude)
		}
		fmt.Println()
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if exportOut != "" {
		return st.ExportJSON(exportOut, args[0])
	}
	return st.WriteJSON(os.Stdout, args[0])
}

func exportFigures(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	traces, err := st.LoadTraces(runID)
	if err != nil {
		return err
	}
	eig, err := st.LoadEigenvalues(runID)
	if err != nil {
		return err
	}

	times := traces.Column("time")
	occupancy := []export.Series{
		{Label: "C", Values: traces.Column("C")},
		{Label: "O", Values: traces.Column("O")},
		{Label: "I", Values: traces.Column("I")},
	}
	current := []export.Series{{Label: "current", Values: traces.Column("current")}}
	eigenvalues := eig.Column("normalized")

	if err := os.MkdirAll(figDir, 0755); err != nil {
		return err
	}
	path := func(name string) string {
		return filepath.Join(figDir, runID+"_"+name+"."+figFormat)
	}

	switch figFormat {
	case "svg":
		figures := []struct {
			name   string
			render func() (string, error)
		}{
			{"occupancy", func() (string, error) { return export.TracesToSVG(times, occupancy, 800, 300) }},
			{"current", func() (string, error) { return export.TracesToSVG(times, current, 800, 300) }},
			{"eigenvalues", func() (string, error) { return export.EigenvaluesToSVG(eigenvalues, 16, 400, 240) }},
		}
		for _, f := range figures {
			svg, err := f.render()
			if err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
			if err := os.WriteFile(path(f.name), []byte(svg), 0644); err != nil {
				return err
			}
			fmt.Println("wrote", path(f.name))
		}
	case "png":
		title := meta.Model + " / " + meta.Protocol
		occ, err := export.TracesPlot(title, "occupancy", times, occupancy)
		if err != nil {
			return err
		}
		cur, err := export.TracesPlot(title, "current", times, current)
		if err != nil {
			return err
		}
		ev, err := export.EigenvaluesPlot(title+" ("+meta.Normalization+")", eigenvalues)
		if err != nil {
			return err
		}
		for name, p := range map[string]*plot.Plot{"occupancy": occ, "current": cur, "eigenvalues": ev} {
			if err := export.SavePNG(p, 8, 4, path(name)); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fmt.Println("wrote", path(name))
		}
	default:
		return fmt.Errorf("unknown figure format %q (svg, png)", figFormat)
	}
	return nil
}

