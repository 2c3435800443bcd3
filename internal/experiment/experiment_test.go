package experiment_test

import (
	"context"
	"math"
	"sort"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/chansens/internal/analysis"
	"github.com/san-kum/chansens/internal/config"
	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/experiment"
	"github.com/san-kum/chansens/internal/kinetics"
	"github.com/san-kum/chansens/internal/protocol"
)

var params = []float64{2.26e-4, 0.0699, 3.45e-5, 0.05462, 0.0873, 8.92e-3, 5.150e-3, 0.03158, 0.1524}

func uniform(t1, dt float64) []float64 {
	n := int(math.Round(t1/dt)) + 1
	g := make([]float64, n)
	for i := range g {
		g[i] = float64(i) * dt
	}
	return g
}

func baseConfig(p protocol.Protocol, grid []float64) experiment.Config {
	return experiment.Config{
		Model:         "beattie",
		Params:        append([]float64(nil), params...),
		Protocol:      p,
		Grid:          grid,
		Solver:        dynamo.DefaultConfig(),
		Normalization: "parameter",
		Reversal:      kinetics.DefaultReversal(),
		InvariantTol:  1e-6,
	}
}

func expectNormalizedSpectrum(res *experiment.Result) {
	sp := res.Spectrum
	Expect(sp.Normalized[0]).To(BeNumerically("~", 1.0, 1e-12))
	for i, v := range sp.Normalized {
		Expect(v).To(BeNumerically(">=", 0))
		Expect(v).To(BeNumerically("<=", 1))
		if i > 0 {
			Expect(v).To(BeNumerically("<=", sp.Normalized[i-1]))
		}
	}
}

var _ = Describe("Pipeline", func() {
	var registry *experiment.Registry

	BeforeEach(func() {
		registry = experiment.NewRegistry()
	})

	Context("at a constant -80 mV for one second", Ordered, func() {
		var res *experiment.Result

		BeforeAll(func() {
			var err error
			res, err = experiment.New(baseConfig(protocol.Constant{V: -80}, uniform(1000, 1)), experiment.NewRegistry()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
		})

		It("starts from rest with zero sensitivities", func() {
			Expect(res.States[0]).To(Equal(kinetics.Occupancy{1, 0, 0}))
			for _, v := range res.RawSensitivities[0] {
				Expect(v).To(BeZero())
			}
		})

		It("opens the channel toward the steady state of the rate balance", func() {
			v := -80.0
			k1 := params[0] * math.Exp(params[1]*v)
			k2 := params[2] * math.Exp(-params[3]*v)
			k3 := params[4] * math.Exp(params[5]*v)
			k4 := params[6] * math.Exp(-params[7]*v)
			act := k1 / (k1 + k2)
			avail := k4 / (k3 + k4)

			// activation and inactivation gate independently in this scheme
			for k, t := range res.Times {
				want := act * (1 - math.Exp(-(k1+k2)*t)) * (avail + (1-avail)*math.Exp(-(k3+k4)*t))
				Expect(res.States[k][kinetics.Open]).To(BeNumerically("~", want, 1e-8))
			}

			n := len(res.Times) - 1
			Expect(res.States[n][kinetics.Open]).To(BeNumerically(">", res.States[n/10][kinetics.Open]))
		})

		It("keeps the current non-positive", func() {
			Expect(res.Reversal).To(BeNumerically(">", -80))
			for _, i := range res.Current {
				Expect(i).To(BeNumerically("<=", 1e-12))
			}
		})

		It("conserves occupancy", func() {
			Expect(res.Diagnostics).To(BeEmpty())
			Expect(res.Metrics["conservation_error"]).To(BeNumerically("<", 1e-6))
		})

		It("normalizes the eigenvalues", func() {
			Expect(res.Spectrum.Len()).To(Equal(9))
			expectNormalizedSpectrum(res)
		})
	})

	Context("under the sine-wave protocol", Ordered, func() {
		var res *experiment.Result

		BeforeAll(func() {
			var err error
			res, err = experiment.New(baseConfig(protocol.DefaultSine(), uniform(8000, 1)), experiment.NewRegistry()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
		})

		It("drives the voltage at the configured frequencies", func() {
			peaks := analysis.DominantFrequencies(res.Voltage, 1, 3)
			Expect(peaks).To(HaveLen(3))

			got := make([]float64, len(peaks))
			for i, p := range peaks {
				got[i] = p.Angular()
			}
			sort.Float64s(got)

			tol := 2 * 2 * math.Pi * analysis.Resolution(len(res.Voltage), 1)
			for i, want := range []float64{0.007, 0.037, 0.19} {
				Expect(got[i]).To(BeNumerically("~", want, tol))
			}
		})

		It("conserves occupancy", func() {
			Expect(res.Diagnostics).To(BeEmpty())
		})

		It("normalizes the eigenvalues", func() {
			expectNormalizedSpectrum(res)
		})
	})

	Context("under a single sinusoid", Ordered, func() {
		const period = 100
		var res *experiment.Result

		BeforeAll(func() {
			sine := protocol.Sine{Offset: -30, Components: []protocol.Sinusoid{{Amplitude: 54, Frequency: 2 * math.Pi / period}}}
			var err error
			res, err = experiment.New(baseConfig(sine, uniform(8000, 1)), experiment.NewRegistry()).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
		})

		It("has a periodic voltage", func() {
			Expect(analysis.PeriodMismatch(res.Voltage, period)).To(BeNumerically("<", 1e-9))
			Expect(analysis.PeriodMismatch(res.Voltage, period/2)).To(BeNumerically(">", 0.5))
		})

		It("settles into a periodic current and sensitivities", func() {
			Expect(analysis.PeriodMismatch(res.Current, period)).To(BeNumerically("<", 1e-2))

			for _, j := range []int{4, 8} {
				col := make([]float64, len(res.Times))
				for k, row := range res.NormalizedSensitivities {
					col[k] = row[j]
				}
				Expect(analysis.PeriodMismatch(col, period)).To(BeNumerically("<", 1e-2), "column p%d", j+1)
			}
		})
	})

	Describe("determinism", func() {
		It("produces identical results for identical inputs", func() {
			cfg := baseConfig(protocol.DefaultSine(), uniform(2000, 1))
			a, err := experiment.New(cfg, registry).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			b, err := experiment.New(cfg, registry).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(b.States).To(Equal(a.States))
			Expect(b.Current).To(Equal(a.Current))
			Expect(b.NormalizedSensitivities).To(Equal(a.NormalizedSensitivities))
			Expect(b.Spectrum.Normalized).To(Equal(a.Spectrum.Normalized))
		})
	})

	Describe("registry", func() {
		It("derives each structure once", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := registry.GetEquations("beattie")
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()
			Expect(registry.Builds()).To(Equal(1))

			first, _ := registry.GetEquations("beattie")
			second, _ := registry.GetEquations("beattie")
			Expect(second).To(BeIdenticalTo(first))
		})

		It("shares equations between names for one topology", func() {
			registry.Register("herg", kinetics.Beattie)
			registry.Register("herg-renamed", func() *kinetics.Topology {
				tp := kinetics.Beattie()
				tp.Name = "herg-renamed"
				return tp
			})

			a, err := registry.GetEquations("beattie")
			Expect(err).NotTo(HaveOccurred())
			b, err := registry.GetEquations("herg")
			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(BeIdenticalTo(a))
			Expect(registry.Builds()).To(Equal(1))

			c, err := registry.GetEquations("herg-renamed")
			Expect(err).NotTo(HaveOccurred())
			Expect(c).NotTo(BeIdenticalTo(a))
			Expect(registry.Builds()).To(Equal(2))
		})

		It("rejects unknown models", func() {
			_, err := registry.GetEquations("hodgkin-huxley")
			Expect(err).To(HaveOccurred())
		})

		It("lists models and methods", func() {
			Expect(registry.ListModels()).To(ContainElement("beattie"))
			Expect(registry.ListMethods()).To(ContainElements("auto", "rosenbrock23", "dopri5"))
		})
	})

	Describe("errors", func() {
		It("rejects a parameter vector of the wrong length", func() {
			cfg := baseConfig(protocol.Constant{V: -80}, uniform(10, 1))
			cfg.Params = cfg.Params[:8]
			_, err := experiment.New(cfg, registry).Run(context.Background())
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		})

		It("reports a degenerate information matrix", func() {
			cfg := baseConfig(protocol.Constant{V: -80}, uniform(10, 1))
			cfg.Params[8] = 0
			_, err := experiment.New(cfg, registry).Run(context.Background())
			Expect(err).To(MatchError(dynamo.ErrDegenerate))
		})

		It("reports an exhausted step budget", func() {
			cfg := baseConfig(protocol.DefaultSine(), uniform(1000, 1))
			cfg.Solver.MaxSteps = 10
			res, err := experiment.New(cfg, registry).Run(context.Background())
			Expect(err).To(MatchError(dynamo.ErrIntegration))
			Expect(res).To(BeNil())
		})
	})

	Describe("sweeps", func() {
		It("runs parameter sets independently", func() {
			sets := make([][]float64, 4)
			for i := range sets {
				sets[i] = append([]float64(nil), params...)
				sets[i][8] = params[8] * float64(i+1)
			}

			results, errs := experiment.Sweep(context.Background(), registry, baseConfig(protocol.DefaultSine(), uniform(1000, 2)), sets)
			Expect(experiment.FirstError(errs)).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(4))

			// the conductance scales every sensitivity alike
			for _, r := range results[1:] {
				for i, v := range r.Spectrum.Normalized {
					Expect(v).To(BeNumerically("~", results[0].Spectrum.Normalized[i], 1e-9))
				}
				Expect(r.Params[8]).NotTo(Equal(results[0].Params[8]))
			}
			Expect(registry.Builds()).To(Equal(1))
		})
	})

	Describe("configuration", func() {
		It("resolves presets", func() {
			cfg, err := experiment.FromConfig(config.GetPreset("beattie", "sine"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Protocol.Name()).To(Equal("sine"))
			Expect(cfg.Grid).To(HaveLen(8001))
			Expect(cfg.Params).To(Equal(config.BeattieParams))
		})
	})
})
