package qdispatch

import (
	"log"
	"math"
	"time"
)

// Scaler grows and shrinks a LocalClusterManager's worker list on a fixed
// cooldown, targeting a configured jobs-per-worker load.
type Scaler struct {
	pool               *LocalClusterManager
	minWorkers         int
	maxWorkers         int
	targetLoad         float64
	scaleUpThreshold   float64
	scaleDownThreshold float64
	cooldown           time.Duration
}

// evaluate reads a snapshot of the pool's metrics under lock, releases it,
// and only then calls scaleUp/scaleDown — both of which take the same lock
// themselves, so holding it across the call (as a single locked section
// would) deadlocks the first time either fires.
func (s *Scaler) evaluate() {
	s.pool.metrics.mu.Lock()
	lastScale := s.pool.metrics.LastScale
	queueSize := s.pool.metrics.JobQueueSize
	workerCount := s.pool.metrics.WorkerCount
	s.pool.metrics.mu.Unlock()

	if time.Since(lastScale) < s.cooldown {
		return
	}

	currentLoad := float64(queueSize) / float64(workerCount)

	switch {
	case currentLoad > s.scaleUpThreshold && workerCount < s.maxWorkers:
		needed := int(math.Ceil(float64(queueSize) / s.targetLoad))
		toAdd := Min(needed-workerCount, s.maxWorkers-workerCount)
		s.scaleUp(toAdd)

	case currentLoad < s.scaleDownThreshold && workerCount > s.minWorkers:
		needed := Max(int(math.Ceil(float64(queueSize)/s.targetLoad)), s.minWorkers)
		toRemove := workerCount - needed
		s.scaleDown(toRemove)
	}

	s.pool.metrics.mu.Lock()
	s.pool.metrics.LastScale = time.Now()
	s.pool.metrics.mu.Unlock()
}

func (s *Scaler) scaleUp(count int) {
	for i := 0; i < count; i++ {
		s.pool.startWorker()
		s.pool.metrics.mu.Lock()
		s.pool.metrics.WorkerCount++
		s.pool.metrics.mu.Unlock()
		log.Printf("Scaled up worker, total workers: %d", s.pool.metrics.WorkerCount)
	}
}

func (s *Scaler) scaleDown(count int) {
	s.pool.workerMu.Lock()
	defer s.pool.workerMu.Unlock()

	for i := 0; i < count && len(s.pool.workerList) > 0; i++ {
		// Remove worker from the list
		w := s.pool.workerList[len(s.pool.workerList)-1]
		s.pool.workerList = s.pool.workerList[:len(s.pool.workerList)-1]

		// Cancel the worker's context
		w.cancel()

		s.pool.metrics.mu.Lock()
		s.pool.metrics.WorkerCount--
		s.pool.metrics.mu.Unlock()

		log.Printf("Scaled down worker, total workers: %d", s.pool.metrics.WorkerCount)
	}
}
