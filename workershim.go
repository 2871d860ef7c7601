// workershim.go
package qdispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WorkerExecutorShim runs one quantum task end to end on the worker side:
// select a resource, resolve its executor, execute, and record a metrics
// row (§4.5). It holds no per-task state; the only thing cached across
// calls is the process-wide shim cache below (SharedWorkerExecutorShim,
// one shim per strategy key).
type WorkerExecutorShim struct {
	registry  *ExecutorRegistry
	catalogue *Catalogue
	selector  Selector
	recorder  *MetricsRecorder
}

func NewWorkerExecutorShim(registry *ExecutorRegistry, catalogue *Catalogue, selector Selector, recorder *MetricsRecorder) *WorkerExecutorShim {
	return &WorkerExecutorShim{
		registry:  registry,
		catalogue: catalogue,
		selector:  selector,
		recorder:  recorder,
	}
}

// RunQuantumTask executes the 7-step worker-side pipeline from §4.5 and
// returns the Executor's raw result. Step 1 mints its own correlation id
// on every call, independent of whatever id the task was submitted under
// — the shim never trusts the caller's id for its own bookkeeping.
func (s *WorkerExecutorShim) RunQuantumTask(qt *QuantumTask) (any, error) {
	submit := time.Now()
	taskID := fmt.Sprintf("quantum-%s", uuid.New().String())
	row := &TaskMetrics{
		TaskID:     taskID,
		SubmitTime: submit,
		Status:     "RUNNING",
	}

	best := s.selector.Select(qt, s.catalogue)
	if best == nil {
		row.Status = "FAILED"
		row.ErrorMsg = ErrNoSuitableResource.Error()
		s.finalize(row, submit)
		return nil, ErrNoSuitableResource
	}
	row.PilotScheduled = best.Name()

	family := familyFromName(best.Name(), s.registry.Families())
	executor, err := s.registry.Create(family, best.Config())
	if err != nil {
		row.Status = "FAILED"
		row.ErrorMsg = err.Error()
		s.finalize(row, submit)
		return nil, err
	}

	result, err := executor.Execute(qt.Circuits, nil)
	if err != nil {
		row.Status = "FAILED"
		row.ErrorMsg = err.Error()
		s.finalize(row, submit)
		return nil, &ExecutionError{TaskID: taskID, Resource: best.Name(), Underlying: err}
	}

	row.Status = "SUCCESS"
	s.finalize(row, submit)
	return result, nil
}

func (s *WorkerExecutorShim) finalize(row *TaskMetrics, submit time.Time) {
	completion := time.Now()
	row.CompletionTime = completion
	row.ExecutionSecs = completion.Sub(submit).Seconds()
	if s.recorder != nil {
		s.recorder.Record(row)
	}
}

// shimRegistration is the per-strategy cached singleton described in §5
// ("installs a process-local Selector singleton guarded by a one-time
// initialization") and §9's note that this is one of the two sanctioned
// package-level mutable globals.
type shimRegistration struct {
	once sync.Once
	shim *WorkerExecutorShim
}

var (
	shimMu       sync.Mutex
	shimRegistry = make(map[string]*shimRegistration)
)

// SharedWorkerExecutorShim returns the process-wide shim cached under the
// given strategy key, constructing it exactly once via build if it has
// not been created yet. Double-checked-lazy per §5's locking discipline.
func SharedWorkerExecutorShim(strategyKey string, build func() *WorkerExecutorShim) *WorkerExecutorShim {
	shimMu.Lock()
	reg, ok := shimRegistry[strategyKey]
	if !ok {
		reg = &shimRegistration{}
		shimRegistry[strategyKey] = reg
	}
	shimMu.Unlock()

	reg.once.Do(func() {
		reg.shim = build()
	})
	return reg.shim
}

// resetSharedWorkerExecutorShims clears the process-wide cache. Exposed
// only for tests that need a clean singleton between cases.
func resetSharedWorkerExecutorShims() {
	shimMu.Lock()
	defer shimMu.Unlock()
	shimRegistry = make(map[string]*shimRegistration)
}
