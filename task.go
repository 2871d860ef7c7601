// task.go
package qdispatch

import (
	"strings"
	"time"
)

// TaskKind tags which submission path a Task travels, replacing the
// runtime type-attribute dispatch of a dynamically-typed original.
type TaskKind string

const (
	TaskClassical TaskKind = "classical"
	TaskMPI       TaskKind = "mpi"
	TaskQuantum   TaskKind = "quantum"
)

// ResourceHints carries optional cpu/gpu/memory/qpu counts through to the
// cluster client untouched; a zero value means "no preference".
type ResourceHints struct {
	CPUs   int
	GPUs   int
	Memory int
	QPUs   int
}

// Task is the common submission envelope for classical and MPI work.
// Quantum submissions additionally carry a QuantumTask.
type Task struct {
	Kind    TaskKind
	ID      string
	PoolTag string
	Name    string
	Args    []any
	Kwargs  map[string]any
	Hints   ResourceHints
	Submit  time.Time
}

// QuantumTask extends Task with the circuit payload and the requirements
// the Selector filters resources against.
type QuantumTask struct {
	Task

	Circuits  []CircuitBuilder
	NumQubits int
	GateSet   map[string]struct{}
}

// CircuitBuilder produces a circuit object on demand; quantum tasks accept
// either already-built circuits or zero-argument builders, normalized to
// this single callable shape at construction time.
type CircuitBuilder func() any

// NewQuantumTask builds a QuantumTask with its gate set normalized to
// lowercase, aliasing "cnot" to "cx" per the catalogue's normalization
// rule (§3 invariant 5 depends on both sides using the same casing).
func NewQuantumTask(id string, circuits []CircuitBuilder, numQubits int, gates []string) *QuantumTask {
	normalized := make(map[string]struct{}, len(gates))
	for _, g := range gates {
		normalized[normalizeGateName(g)] = struct{}{}
	}

	return &QuantumTask{
		Task: Task{
			Kind:   TaskQuantum,
			ID:     id,
			Submit: time.Now(),
		},
		Circuits:  circuits,
		NumQubits: numQubits,
		GateSet:   normalized,
	}
}

func normalizeGateName(g string) string {
	g = strings.ToLower(g)
	if g == "cnot" {
		return "cx"
	}
	return g
}

// gateSetSubsetOf reports whether every gate this task requires is present in
// the resource's gate set — the gate-set half of suitability (§3.5).
func (qt *QuantumTask) gateSetSubsetOf(other map[string]struct{}) bool {
	for g := range qt.GateSet {
		if _, ok := other[g]; !ok {
			return false
		}
	}
	return true
}
