package qdispatch

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Worker pulls jobs from a LocalClusterManager and runs them to completion,
// honoring dependencies, TTLs and per-circuit failure tracking.
type Worker struct {
	pool       *LocalClusterManager
	jobs       chan Job
	cancel     context.CancelFunc
	currentJob *Job
}

// run is the worker's main loop: register as available, wait for a job,
// execute it, store the outcome, then go back to being available.
func (w *Worker) run() {
	jobChan := w.jobs

	for {
		select {
		case <-w.pool.ctx.Done():
			log.Printf("worker exiting: context cancelled")
			return
		default:
		}

		w.pool.workers <- jobChan

		select {
		case <-w.pool.ctx.Done():
			log.Printf("worker exiting while waiting for job")
			return
		case job, ok := <-jobChan:
			if !ok {
				log.Printf("worker job channel closed")
				return
			}

			w.currentJob = &job
			result, err := w.processJobWithTimeout(w.pool.ctx, job)
			w.currentJob = nil

			if err != nil {
				w.pool.metrics.RecordJobFailure()
				log.Printf("job %s failed: %v", job.ID, err)
			} else {
				w.pool.metrics.RecordJobSuccess(time.Since(job.StartTime))
			}

			if err != nil {
				w.pool.space.StoreError(job.ID, err, job.TTL)
			} else {
				w.pool.space.Store(job.ID, result, []State{{Value: result, Probability: 1.0}}, job.TTL, job.Kind)
			}

			if len(job.Dependencies) > 0 {
				for _, depID := range job.Dependencies {
					for _, childID := range w.pool.space.GetChildren(depID) {
						log.Printf("notifying dependent job %s", childID)
					}
				}
			}
		}
	}
}

// processJobWithTimeout runs a job's function on a goroutine and races it
// against the pool's context deadline, first resolving dependencies.
func (w *Worker) processJobWithTimeout(ctx context.Context, job Job) (any, error) {
	startTime := time.Now()

	for _, depID := range job.Dependencies {
		if err := w.checkSingleDependency(depID, job.DependencyRetryPolicy); err != nil {
			w.pool.metrics.RecordJobExecution(startTime, false)
			if job.CircuitID != "" {
				w.recordFailure(job.CircuitID)
			}
			return nil, err
		}
	}

	done := make(chan struct{})
	var result any
	var err error

	go func() {
		defer close(done)
		result, err = job.Fn()
	}()

	select {
	case <-ctx.Done():
		w.handleJobTimeout(job)
		return nil, fmt.Errorf("job %s timed out", job.ID)
	case <-done:
		w.pool.metrics.RecordJobExecution(startTime, err == nil)
		return result, err
	}
}

// checkSingleDependency waits for a dependency to resolve, retrying per
// the supplied policy, and records a circuit failure if it never does.
func (w *Worker) checkSingleDependency(depID string, retryPolicy *RetryPolicy) error {
	maxAttempts := 1
	var strategy RetryStrategy = &ExponentialBackoff{Initial: time.Second}

	if retryPolicy != nil {
		maxAttempts = retryPolicy.MaxAttempts
		strategy = retryPolicy.Strategy
	}

	circuitID := ""
	if w.currentJob != nil {
		circuitID = w.currentJob.CircuitID
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		ch := w.pool.space.Await(depID)
		result := <-ch
		if result != nil && result.Error == nil {
			return nil
		}
		if attempt < maxAttempts-1 {
			time.Sleep(strategy.NextDelay(attempt + 1))
		}
	}

	w.pool.breakersMu.RLock()
	breaker, exists := w.pool.breakers[circuitID]
	w.pool.breakersMu.RUnlock()

	if exists {
		breaker.RecordFailure()
	}

	w.pool.space.mu.Lock()
	if w.pool.space.children == nil {
		w.pool.space.children = make(map[string][]string)
	}
	if w.currentJob != nil {
		w.pool.space.children[depID] = append(w.pool.space.children[depID], w.currentJob.ID)
	}
	w.pool.space.mu.Unlock()

	return fmt.Errorf("dependency %s failed after %d attempts", depID, maxAttempts)
}

// recordFailure records a failure against a named circuit breaker, if one
// is registered for this job's circuit ID.
func (w *Worker) recordFailure(circuitID string) {
	if circuitID == "" {
		return
	}

	w.pool.breakersMu.RLock()
	breaker, exists := w.pool.breakers[circuitID]
	w.pool.breakersMu.RUnlock()

	if exists {
		breaker.RecordFailure()
	}
}

func (w *Worker) handleJobTimeout(job Job) {
	w.pool.metrics.RecordJobFailure()
	err := fmt.Errorf("job %s timed out", job.ID)
	w.pool.space.StoreError(job.ID, err, job.TTL)
}
