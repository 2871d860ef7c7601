// clustermanager.go
package qdispatch

import (
	"context"
	"fmt"
)

// Future is the single cross-boundary handle the Dispatch Core returns
// from any Submit* call. Wait blocks until the task reaches a terminal
// state; Result calls Wait first if it has not returned yet, then reads
// the value.
type Future interface {
	Wait() error
	Result() (any, error)
}

// qvalueFuture adapts a QSpace-backed *QValue channel to the Future
// contract the Dispatch Core exposes to callers (§5 "only two blocking
// calls are exposed to callers").
type qvalueFuture struct {
	ch    chan *QValue
	value *QValue
	err   error
	done  bool
}

func newQValueFuture(ch chan *QValue) *qvalueFuture {
	return &qvalueFuture{ch: ch}
}

func (f *qvalueFuture) Wait() error {
	if f.done {
		return f.err
	}
	f.value = <-f.ch
	f.done = true
	if f.value != nil {
		f.err = f.value.Error
	}
	return f.err
}

func (f *qvalueFuture) Result() (any, error) {
	if !f.done {
		if err := f.Wait(); err != nil {
			return nil, err
		}
	}
	if f.value == nil {
		return nil, f.err
	}
	return f.value.Value, f.err
}

// QuantumPilotConfig is the `quantum` sub-map of a pilot description,
// consulted only when the pilot's resource_type is "quantum" (§6).
type QuantumPilotConfig struct {
	Executor       string
	Devices        []string
	Backend        string
	CustomBackends []string
	Token          string
}

// PilotDescription mirrors the recognized keys of a pilot description
// input map (§6). Unrecognized keys are simply not modeled; this module
// only needs the fields that drive dispatch behaviour.
type PilotDescription struct {
	Resource                string
	WorkingDirectory        string
	Type                    string // "dask" | "ray"
	NumberOfNodes           int
	CoresPerNode            int
	Queue                   string
	Walltime                string
	Project                 string
	SchedulerScriptCommands []string
	Name                    string
	ResourceType            string // "quantum" gates Quantum being read
	Quantum                 *QuantumPilotConfig
	DreamerEnabled          bool
}

// NewPilotDescription fills in the documented defaults: quantum pilots
// default to 1 node / 1 core each (§6).
func NewPilotDescription(name string) *PilotDescription {
	return &PilotDescription{
		Name:          name,
		NumberOfNodes: 1,
		CoresPerNode:  1,
	}
}

// IsQuantum reports whether this pilot declares a quantum resource_type.
func (p *PilotDescription) IsQuantum() bool {
	return p.ResourceType == "quantum" && p.Quantum != nil
}

// PilotState is a PilotJob's lifecycle state.
type PilotState string

const (
	PilotPending   PilotState = "PENDING"
	PilotRunning   PilotState = "RUNNING"
	PilotSucceeded PilotState = "SUCCEEDED"
	PilotFailed    PilotState = "FAILED"
	PilotCanceled  PilotState = "CANCELED"
)

// PilotJob is a cluster client's handle on one running pilot.
type PilotJob struct {
	ID          string
	State       PilotState
	Description *PilotDescription
}

// ClusterClient is the thin abstraction over a dask/ray-style cluster
// client family (§6 `type ∈ {dask, ray}`): something that can accept a
// unit of classical work and hand back a future for it.
type ClusterClient interface {
	Submit(id string, fn func() (any, error)) Future
	Shutdown()
}

// PilotManager owns the lifecycle of pilots described by PilotDescription
// maps, and is the collaborator the Dispatch Core's initialize_dreamer
// step (§4.2) walks to discover quantum-capable pilots.
type PilotManager interface {
	AddPilot(description *PilotDescription) (*PilotJob, error)
	Pilots() []*PilotJob
	ClusterClientFor(pilotID string) (ClusterClient, error)
	Cancel() error
}

// localClusterClient adapts a LocalClusterManager to the ClusterClient
// interface, the in-process default described on LocalClusterManager's
// own doc comment.
type localClusterClient struct {
	manager *LocalClusterManager
}

func (c *localClusterClient) Submit(id string, fn func() (any, error)) Future {
	return newQValueFuture(c.manager.Schedule(id, fn))
}

func (c *localClusterClient) Shutdown() {
	c.manager.Shutdown()
}

// spaceOf returns the QSpace backing a ClusterClient, if it is a
// localClusterClient. Used by SubmitHybrid to entangle a classical and a
// quantum task id in the same space their futures already resolve
// through.
func spaceOf(c ClusterClient) *QSpace {
	if lc, ok := c.(*localClusterClient); ok {
		return lc.manager.space
	}
	return nil
}

// LocalPilotManager is the in-process PilotManager backing the bundled
// examples and tests: every pilot it adds is served by its own
// LocalClusterManager rather than a real SSH/SLURM-launched cluster.
type LocalPilotManager struct {
	pilots  map[string]*PilotJob
	clients map[string]*localClusterClient
	order   []string
}

func NewLocalPilotManager() *LocalPilotManager {
	return &LocalPilotManager{
		pilots:  make(map[string]*PilotJob),
		clients: make(map[string]*localClusterClient),
	}
}

func (m *LocalPilotManager) AddPilot(description *PilotDescription) (*PilotJob, error) {
	if description.Name == "" {
		description.Name = fmt.Sprintf("pilot-%d", len(m.order))
	}

	manager := NewLocalClusterManagerFromDescription(description)
	job := &PilotJob{ID: description.Name, State: PilotRunning, Description: description}

	m.pilots[job.ID] = job
	m.clients[job.ID] = &localClusterClient{manager: manager}
	m.order = append(m.order, job.ID)
	return job, nil
}

// NewLocalClusterManagerFromDescription sizes a LocalClusterManager off a
// pilot description's node/core counts, defaulting to a single worker
// when the description leaves them at zero.
func NewLocalClusterManagerFromDescription(description *PilotDescription) *LocalClusterManager {
	workers := description.NumberOfNodes * description.CoresPerNode
	if workers < 1 {
		workers = 1
	}
	return NewLocalClusterManager(context.Background(), 1, workers, NewConfig())
}

func (m *LocalPilotManager) Pilots() []*PilotJob {
	out := make([]*PilotJob, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.pilots[id])
	}
	return out
}

func (m *LocalPilotManager) ClusterClientFor(pilotID string) (ClusterClient, error) {
	c, ok := m.clients[pilotID]
	if !ok {
		return nil, fmt.Errorf("qdispatch: unknown pilot %q", pilotID)
	}
	return c, nil
}

// Cancel tears down every pilot's cluster manager. Terminal and
// asynchronous (§5 "Cancellation"): in-flight tasks observe it through
// future-level errors rather than a synchronous per-task abort.
func (m *LocalPilotManager) Cancel() error {
	for _, id := range m.order {
		if m.pilots[id].State == PilotCanceled {
			continue
		}
		m.pilots[id].State = PilotCanceled
		if c, ok := m.clients[id]; ok {
			c.Shutdown()
		}
	}
	return nil
}

// quantumPilots returns the subset of added pilots that declare a
// quantum resource_type, in the order they were added (§4.2, §3
// invariant 1's "catalogue insertion order" depends on this being
// deterministic).
func (m *LocalPilotManager) quantumPilots() []*PilotJob {
	var out []*PilotJob
	for _, id := range m.order {
		job := m.pilots[id]
		if job.Description.IsQuantum() {
			out = append(out, job)
		}
	}
	return out
}
