package experiment

import (
	"fmt"
	"sort"
	"sync"

	"github.com/san-kum/chansens/internal/dynamo"
	"github.com/san-kum/chansens/internal/integrators"
	"github.com/san-kum/chansens/internal/kinetics"
	"github.com/san-kum/chansens/internal/metrics"
	"github.com/san-kum/chansens/internal/normalize"
	"github.com/san-kum/chansens/internal/sensitivity"
)

// Registry maps model names to topologies and caches the compiled
// sensitivity equations of each structure. It is safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	topologies map[string]func() *kinetics.Topology
	equations  map[string]*sensitivity.Equations
	builds     int
}

func NewRegistry() *Registry {
	r := &Registry{
		topologies: make(map[string]func() *kinetics.Topology),
		equations:  make(map[string]*sensitivity.Equations),
	}

	r.topologies["beattie"] = kinetics.Beattie

	return r
}

// Register adds or replaces a model.
func (r *Registry) Register(name string, fn func() *kinetics.Topology) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topologies[name] = fn
}

func (r *Registry) GetTopology(name string) (*kinetics.Topology, error) {
	r.mu.Lock()
	fn, ok := r.topologies[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

// GetEquations returns the compiled equations for a model, deriving them
// on first use and caching them under the topology key. Names registered
// for the same topology share one entry.
func (r *Registry) GetEquations(name string) (*sensitivity.Equations, error) {
	tp, err := r.GetTopology(name)
	if err != nil {
		return nil, err
	}
	key := tp.Key()

	r.mu.Lock()
	defer r.mu.Unlock()
	if eqs, ok := r.equations[key]; ok {
		return eqs, nil
	}

	m, err := kinetics.Build(tp, tp.NumParams())
	if err != nil {
		return nil, err
	}
	eqs, err := sensitivity.Generate(m)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", name, err)
	}
	r.equations[key] = eqs
	r.builds++
	return eqs, nil
}

// Builds reports how many times equations were derived.
func (r *Registry) Builds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.builds
}

func (r *Registry) GetPolicy(name string) (normalize.Policy, error) {
	return normalize.ByName(name)
}

func (r *Registry) ListModels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.topologies))
	for name := range r.topologies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListMethods() []string {
	return integrators.Methods()
}

func (r *Registry) DefaultMetrics(tp *kinetics.Topology) []dynamo.Metric {
	return metrics.Default(tp.Open)
}
