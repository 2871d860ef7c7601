// dispatch.go
package qdispatch

import (
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/theapemachine/errnie"
)

// Dispatcher is the single façade callers submit work through (§4.1).
// Submission is multi-threaded at this boundary; everything underneath
// runs in the pilots' own worker processes.
type Dispatcher struct {
	pilots   PilotManager
	recorder *MetricsRecorder

	dreamerMu sync.Mutex
	selector  Selector
	catalogue *Catalogue
	registry  *ExecutorRegistry
	shim      *WorkerExecutorShim
	ready     bool

	submitMu sync.Mutex
	order    []string
	futures  map[string]Future
}

func NewDispatcher(pilots PilotManager, recorder *MetricsRecorder) *Dispatcher {
	return &Dispatcher{
		pilots:   pilots,
		recorder: recorder,
		registry: NewExecutorRegistry(),
		futures:  make(map[string]Future),
	}
}

// SubmitClassical routes a plain function call to the pilot tagged with
// poolTag (or the first available pilot if poolTag is empty), matching
// §5's "pool-tag" routed-submission semantics exercised by scenario S2.
func (d *Dispatcher) SubmitClassical(id, poolTag string, fn func() (any, error)) (Future, error) {
	client, err := d.clientFor(poolTag)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmit, err)
	}
	future := client.Submit(id, d.wrapClassical(id, fn))
	d.track(id, future)
	return future, nil
}

// wrapClassical implements §4.1's "Classical wrapping": the returned
// closure records wait-time on first entry, times the user function,
// writes exactly one metrics row under the process-wide metrics lock
// even on exception (a deferred finalizer guarantees the write), and
// re-raises the captured error so the future still reports failure.
func (d *Dispatcher) wrapClassical(id string, fn func() (any, error)) func() (any, error) {
	submitTime := time.Now()
	return func() (result any, err error) {
		row := &TaskMetrics{
			TaskID:       id,
			SubmitTime:   submitTime,
			WaitTimeSecs: time.Since(submitTime).Seconds(),
			Status:       "RUNNING",
		}
		defer func() {
			row.CompletionTime = time.Now()
			if err != nil {
				row.Status = "FAILED"
				row.ErrorMsg = err.Error()
			} else {
				row.Status = "SUCCESS"
			}
			if d.recorder != nil {
				if recErr := d.recorder.Record(row); recErr != nil {
					log.Printf("qdispatch: metrics write failed for %s: %v", id, recErr)
				}
			}
		}()

		start := time.Now()
		result, err = fn()
		row.ExecutionSecs = time.Since(start).Seconds()
		return result, err
	}
}

// SubmitMPI shells out to `srun -n <n> <interpreter> <script> <arg...>`
// and reports FAILED on any non-zero exit, per §6's MPI wrapper exit
// semantics: stdout/stderr are captured as strings, exit code itself is
// not surfaced to the caller.
func (d *Dispatcher) SubmitMPI(id, poolTag string, numProcs int, interpreter, script string, args []string) (Future, error) {
	client, err := d.clientFor(poolTag)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmit, err)
	}

	future := client.Submit(id, d.wrapClassical(id, func() (any, error) {
		cmdArgs := append([]string{"-n", fmt.Sprintf("%d", numProcs), interpreter, script}, args...)
		cmd := exec.Command("srun", cmdArgs...)
		var stdout, stderr strings.Builder
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()
		result := map[string]string{"stdout": stdout.String(), "stderr": stderr.String()}
		if runErr != nil {
			return result, fmt.Errorf("qdispatch: mpi task %s failed: %w", id, runErr)
		}
		return result, nil
	}))
	d.track(id, future)
	return future, nil
}

// SubmitHybrid submits a classical pre/post-processing step alongside a
// quantum sub-task, entangling their ids in the pilot's QSpace (§2
// "Entanglement groups") so either side can later read what the other
// observed via HybridState, rather than the two halves communicating
// through a direct call. The quantum future is nil (with
// ErrNotInitialized) if InitializeDreamer has not run yet; the classical
// future is still returned and tracked.
func (d *Dispatcher) SubmitHybrid(classicalID, quantumID, poolTag string, classical func() (any, error), qt *QuantumTask) (classicalFuture, quantumFuture Future, err error) {
	client, err := d.clientFor(poolTag)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrSubmit, err)
	}

	if space := spaceOf(client); space != nil {
		space.CreateEntanglement([]string{classicalID, quantumID})
	}

	classicalFuture = client.Submit(classicalID, d.wrapClassical(classicalID, classical))
	d.track(classicalID, classicalFuture)

	d.dreamerMu.Lock()
	ready, shim := d.ready, d.shim
	d.dreamerMu.Unlock()
	if !ready {
		return classicalFuture, nil, ErrNotInitialized
	}

	quantumFuture = client.Submit(quantumID, func() (any, error) {
		return shim.RunQuantumTask(qt)
	})
	d.track(quantumID, quantumFuture)

	return classicalFuture, quantumFuture, nil
}

// HybridState returns the shared state an id was entangled into via
// SubmitHybrid, letting a caller read what the other half of the pair
// observed once both have run.
func (d *Dispatcher) HybridState(poolTag, id string) (map[string]any, bool) {
	client, err := d.clientFor(poolTag)
	if err != nil {
		return nil, false
	}
	space := spaceOf(client)
	if space == nil {
		return nil, false
	}
	ent, ok := space.EntanglementFor(id)
	if !ok {
		return nil, false
	}
	return ent.SharedStateSnapshot(), true
}

// SubmitQuantum runs a quantum task through the worker-side shim (§4.5).
// Returns NotInitialized if InitializeDreamer has not yet succeeded.
func (d *Dispatcher) SubmitQuantum(qt *QuantumTask) (Future, error) {
	d.dreamerMu.Lock()
	ready, shim := d.ready, d.shim
	d.dreamerMu.Unlock()

	if !ready {
		return nil, ErrNotInitialized
	}

	client, err := d.clientFor(qt.PoolTag)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSubmit, err)
	}

	future := client.Submit(qt.ID, func() (any, error) {
		return shim.RunQuantumTask(qt)
	})
	d.track(qt.ID, future)
	return future, nil
}

// InitializeDreamer assembles the resource catalogue from every
// quantum-declaring pilot, installs it on a Selector, and readies
// SubmitQuantum (§4.2). Fails with NoQuantumPilots if none exist, or
// NoResources if the generator produced nothing.
func (d *Dispatcher) InitializeDreamer(generator ResourceGenerator, mode OptimizationMode, queueDynamics map[string]float64) error {
	local, ok := d.pilots.(*LocalPilotManager)
	if !ok {
		return fmt.Errorf("qdispatch: InitializeDreamer requires a PilotManager that can enumerate quantum pilots")
	}

	quantumPilots := local.quantumPilots()
	if len(quantumPilots) == 0 {
		return ErrNoQuantumPilots
	}

	catalogue := NewCatalogue()
	for _, pilot := range quantumPilots {
		executor, err := d.registry.Create(pilot.Description.Quantum.Executor, nil)
		if err != nil {
			continue
		}
		for _, r := range generator.Generate(pilot.ID, executor) {
			catalogue.Add(r)
		}
	}
	if catalogue.Len() == 0 {
		return ErrNoResources
	}

	selector := NewScoringSelector(mode, d.registry, false)
	selector.SeedQueueDynamics(queueDynamics)

	d.dreamerMu.Lock()
	d.catalogue = catalogue
	d.selector = selector
	d.shim = NewWorkerExecutorShim(d.registry, catalogue, selector, d.recorder)
	d.ready = true
	d.dreamerMu.Unlock()

	errnie.Info("InitializeDreamer - catalogue assembled with %d resources from %d pilots", catalogue.Len(), len(quantumPilots))
	return nil
}

func (d *Dispatcher) clientFor(poolTag string) (ClusterClient, error) {
	local, ok := d.pilots.(*LocalPilotManager)
	if !ok {
		return nil, fmt.Errorf("qdispatch: unsupported PilotManager implementation")
	}

	pilots := local.Pilots()
	if len(pilots) == 0 {
		return nil, fmt.Errorf("qdispatch: no pilots configured")
	}

	if poolTag != "" {
		for _, p := range pilots {
			if strings.HasPrefix(p.ID, poolTag) {
				return local.ClusterClientFor(p.ID)
			}
		}
		return nil, fmt.Errorf("qdispatch: no pilot matching pool tag %q", poolTag)
	}
	return local.ClusterClientFor(pilots[0].ID)
}

func (d *Dispatcher) track(id string, future Future) {
	d.submitMu.Lock()
	defer d.submitMu.Unlock()
	d.order = append(d.order, id)
	d.futures[id] = future
}

// WaitAll blocks until every tracked future reaches a terminal state,
// logging (not returning) per-task errors so a mixed batch always
// completes uniformly (§7 "Propagation").
func (d *Dispatcher) WaitAll(futures []Future) {
	var wg sync.WaitGroup
	for _, f := range futures {
		wg.Add(1)
		go func(f Future) {
			defer wg.Done()
			if err := f.Wait(); err != nil {
				log.Printf("qdispatch: task failed: %v", err)
			}
		}(f)
	}
	wg.Wait()
}

// GetResults returns results in submission order of the argument list,
// substituting nil for any future that failed (§5 "Ordering guarantees",
// §7 "Propagation").
func (d *Dispatcher) GetResults(futures []Future) []any {
	out := make([]any, len(futures))
	for i, f := range futures {
		value, err := f.Result()
		if err != nil {
			out[i] = nil
			continue
		}
		out[i] = value
	}
	return out
}

// Cancel tears down the cluster manager and every pilot (§5
// "Cancellation"). Calling it twice is a no-op the second time, since
// PilotManager.Cancel marks every pilot PilotCanceled idempotently.
func (d *Dispatcher) Cancel() error {
	d.dreamerMu.Lock()
	if scoring, ok := d.selector.(*ScoringSelector); ok {
		scoring.Stop()
	}
	d.dreamerMu.Unlock()
	return d.pilots.Cancel()
}
