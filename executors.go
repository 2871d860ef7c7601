// executors.go
package qdispatch

import (
	"fmt"
	"hash/fnv"
)

// simulatorExecutor is the shared implementation backing all four
// built-in executor families. Each family differs only in its reported
// resource descriptors and simulated noise profile; none of them talk to
// a real SDK or network endpoint, which keeps the whole dispatch pipeline
// exercisable without one.
type simulatorExecutor struct {
	family     string
	config     map[string]any
	noiseLevel float64
}

func newQiskitSimulator(config map[string]any) Executor {
	return &simulatorExecutor{family: "qiskit", config: config, noiseLevel: 0.01}
}

func newPennylaneSimulator(config map[string]any) Executor {
	return &simulatorExecutor{family: "pennylane", config: config, noiseLevel: 0.02}
}

func newBraketSimulator(config map[string]any) Executor {
	return &simulatorExecutor{family: "braket", config: config, noiseLevel: 0.015}
}

func newIBMQSimulator(config map[string]any) Executor {
	return &simulatorExecutor{family: "ibmq", config: config, noiseLevel: 0.03}
}

// Execute runs each circuit builder, derives a toy QuantumState from the
// builder's returned object and collapses it through WaveFunction to a
// measured basis state. This is the module's local stand-in for real
// circuit execution; the collapse is a random draw, so repeated runs of
// the same circuit can return different basis states.
func (s *simulatorExecutor) Execute(circuits []CircuitBuilder, options map[string]any) (any, error) {
	if len(circuits) == 0 {
		return nil, fmt.Errorf("%s: no circuits supplied", s.family)
	}

	results := make([]any, 0, len(circuits))
	for _, build := range circuits {
		circuit := build()
		state := s.toQuantumState(circuit)
		results = append(results, s.collapse(state))
	}

	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

// collapse turns state's amplitude-squared basis distribution into a
// WaveFunction and resolves it to one outcome, carrying the family's
// noise level forward as readout-confidence evidence rather than
// measuring the amplitudes directly — the evidence-aware collapse this
// module's toy physics is meant to exercise.
func (s *simulatorExecutor) collapse(state *QuantumState) any {
	probs := state.basisProbabilities()
	states := make([]State, len(probs))
	for i, p := range probs {
		states[i] = State{
			Value:       i,
			Probability: p,
			Evidence: []Evidence{{
				Method:     s.family + "-readout",
				Confidence: 1 - s.noiseLevel,
			}},
		}
	}

	wf := NewWaveFunction(states, UncertaintyLevel(s.noiseLevel), 1-s.noiseLevel)
	return wf.Collapse()
}

// toQuantumState derives a small amplitude vector from the circuit value
// so repeated calls against the same circuit shape produce comparable
// (not identical — collapse is probabilistic) measurement distributions.
func (s *simulatorExecutor) toQuantumState(circuit any) *QuantumState {
	h := fnv.New32a()
	fmt.Fprintf(h, "%v", circuit)
	seed := h.Sum32()

	n := 2
	vector := make([]complex128, n)
	base := 1.0 - s.noiseLevel
	vector[0] = complex(base, 0)
	vector[1] = complex(float64(seed%100)/100.0*s.noiseLevel, 0)

	return &QuantumState{Vector: vector, Uncertainty: s.noiseLevel}
}

func (s *simulatorExecutor) AvailableResources() []ResourceDescriptor {
	errRate := s.noiseLevel
	return []ResourceDescriptor{
		{
			Name:       s.family + "-sim",
			QubitCount: 32,
			GateSet:    []string{"cx", "cz", "cy", "ch", "ecr", "cs", "csdg", "csx", "iswap", "dcx", "rzz", "rxx", "ryy", "rzx", "crx", "cry", "crz", "cphase", "h", "x", "y", "z"},
			ErrorRate:  &errRate,
			NoiseLevel: s.noiseLevel,
			Config:     s.config,
		},
	}
}

// QueueLengths always reports 0 utilization — simulator-family adapters
// have no queue (§4.4).
func (s *simulatorExecutor) QueueLengths() map[string]float64 {
	return map[string]float64{s.family + "-sim": 0}
}

func (s *simulatorExecutor) BackendStatus(name string) map[string]any {
	return map[string]any{
		"name":         name,
		"queue-length": 0,
		"status":       "online",
	}
}

func (s *simulatorExecutor) IsSimulator() bool { return true }
