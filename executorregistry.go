// executorregistry.go
package qdispatch

import (
	"fmt"
	"sort"
)

// Executor is the capability interface every backend-family adapter
// implements (§4.4) — the uniform surface the shim and the planner's
// callers code against, regardless of whether a family is a local
// simulator or a real hardware SDK binding.
type Executor interface {
	Execute(circuits []CircuitBuilder, options map[string]any) (any, error)
	AvailableResources() []ResourceDescriptor
	QueueLengths() map[string]float64
	BackendStatus(name string) map[string]any
	IsSimulator() bool
}

// ResourceDescriptor is what AvailableResources reports to the Resource
// Generator: enough to build a QuantumResource, nothing executor-specific.
type ResourceDescriptor struct {
	Name       string
	QubitCount int
	GateSet    []string
	ErrorRate  *float64
	NoiseLevel float64
	Config     map[string]any
}

// ExecutorFactory builds a configured adapter for one family.
type ExecutorFactory func(config map[string]any) Executor

// ExecutorRegistry is the closed, name-keyed table of adapter families
// (§4.4). Adding a family only requires registering its factory — no
// caller code changes.
type ExecutorRegistry struct {
	factories map[string]ExecutorFactory
}

// NewExecutorRegistry returns a registry pre-populated with the four
// built-in simulator-family adapters this module ships as a stand-in for
// the out-of-scope real backend SDKs.
func NewExecutorRegistry() *ExecutorRegistry {
	r := &ExecutorRegistry{factories: make(map[string]ExecutorFactory)}
	r.Register("qiskit", newQiskitSimulator)
	r.Register("pennylane", newPennylaneSimulator)
	r.Register("braket", newBraketSimulator)
	r.Register("ibmq", newIBMQSimulator)
	return r
}

func (r *ExecutorRegistry) Register(name string, factory ExecutorFactory) {
	r.factories[name] = factory
}

// Families returns every registered family name, sorted for deterministic
// use by callers such as familyFromName that need a fixed iteration order
// over a map-backed registry.
func (r *ExecutorRegistry) Families() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds an adapter for the named family, failing with
// ErrUnsupportedExecutor for unknown names.
func (r *ExecutorRegistry) Create(name string, config map[string]any) (Executor, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExecutor, name)
	}
	return factory(config), nil
}
