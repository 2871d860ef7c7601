// localcluster.go
package qdispatch

import (
	"context"
	"sync"
	"time"

	"github.com/theapemachine/errnie"
)

/*
LocalClusterManager is a reference, in-process cluster manager: a
goroutine worker pool with dynamic scaling, backed by a QSpace for
futures and a chain of Regulators for admission control.

It exists purely as the default, swappable collaborator for tests, the
bundled examples, and local development. It does not implement
ClusterClient or PilotManager itself: localClusterClient adapts it to
ClusterClient, and LocalPilotManager builds one per pilot, so the
Dispatch Core reaches it only through those interfaces.
*/
type LocalClusterManager struct {
	ctx    context.Context
	cancel context.CancelFunc

	config *Config

	workers    chan chan Job
	jobs       chan Job
	space      *QSpace
	scaler     *Scaler
	metrics    *Metrics
	regulators []Regulator

	breakers   map[string]*CircuitBreaker
	breakersMu sync.RWMutex

	adaptiveScaler *AdaptiveScalerRegulator

	// Concrete handles to the load balancer, resource governor and back
	// pressure regulators that also sit in the generic []Regulator chain.
	loadBalancer *LoadBalancer
	governor     *ResourceGovernorRegulator
	backpressure *BackPressureRegulator

	quit       chan struct{}
	workerMu   sync.Mutex
	workerList []*Worker
}

// NewLocalClusterManager builds a cluster manager with minWorkers running
// immediately and room to scale up to maxWorkers.
func NewLocalClusterManager(ctx context.Context, minWorkers, maxWorkers int, config *Config) *LocalClusterManager {
	if config == nil {
		config = NewConfig()
	}

	ctx, cancel := context.WithCancel(ctx)

	m := &LocalClusterManager{
		ctx:        ctx,
		cancel:     cancel,
		config:     config,
		workers:    make(chan chan Job, maxWorkers),
		jobs:       make(chan Job, maxWorkers*10),
		space:      NewQSpace(),
		metrics:    NewMetrics(),
		breakers:   make(map[string]*CircuitBreaker),
		quit:       make(chan struct{}),
		workerList: []*Worker{},
	}

	m.scaler = &Scaler{
		pool:               m,
		minWorkers:         minWorkers,
		maxWorkers:         maxWorkers,
		targetLoad:         0.7,
		scaleUpThreshold:   0.8,
		scaleDownThreshold: 0.3,
		cooldown:           5 * time.Second,
	}

	m.loadBalancer = NewLoadBalancer(minWorkers, 10)
	m.governor = NewResourceGovernorRegulator(0.9, 0.9, time.Second)
	m.backpressure = NewBackPressureRegulator(maxWorkers*10, time.Second, time.Minute)

	m.regulators = []Regulator{
		m.loadBalancer,
		NewRateLimiter(1000, 10*time.Millisecond),
		m.governor,
		m.backpressure,
	}

	if config.UseAdaptiveScaler {
		scalerConfig := config.AdaptiveScaler
		if scalerConfig == nil {
			scalerConfig = &ScalerConfig{
				TargetLoad:         0.7,
				ScaleUpThreshold:   0.8,
				ScaleDownThreshold: 0.3,
				Cooldown:           5 * time.Second,
			}
		}
		m.adaptiveScaler = NewAdaptiveScalerRegulator(m, minWorkers, maxWorkers, scalerConfig)
		m.regulators = append(m.regulators, m.adaptiveScaler)
	}

	for i := 0; i < minWorkers; i++ {
		m.startWorker()
	}

	errnie.Info("NewLocalClusterManager - min %d, max %d", minWorkers, maxWorkers)

	go m.manage()
	go m.collectMetrics()

	return m
}

// manage runs the scaling and regulation control loop on a fixed tick.
func (m *LocalClusterManager) manage() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			m.workerMu.Lock()
			for _, w := range m.workerList {
				w.cancel()
			}
			m.workerMu.Unlock()
			close(m.quit)
			return
		case <-ticker.C:
			for _, r := range m.regulators {
				r.Observe(m.metrics)
				r.Renormalize()
			}
			if m.adaptiveScaler == nil {
				m.scaler.evaluate()
			}
		}
	}
}

func (m *LocalClusterManager) collectMetrics() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.metrics.mu.Lock()
			m.metrics.JobQueueSize = len(m.jobs)
			m.metrics.ActiveWorkers = len(m.workers)
			m.metrics.mu.Unlock()
		}
	}
}

func (m *LocalClusterManager) startWorker() {
	workerCtx, cancel := context.WithCancel(m.ctx)
	w := &Worker{
		pool:   m,
		jobs:   make(chan Job),
		cancel: cancel,
	}
	m.workerMu.Lock()
	m.workerList = append(m.workerList, w)
	m.workerMu.Unlock()

	m.metrics.mu.Lock()
	m.metrics.WorkerCount++
	m.metrics.mu.Unlock()
	go w.run()
}

// Schedule submits a unit of work and returns a channel that will receive
// its eventual result. Regulators are given a chance to reject admission
// before the job is queued.
func (m *LocalClusterManager) Schedule(id string, fn func() (any, error), opts ...JobOption) chan *QValue {
	for _, r := range m.regulators {
		if r.Limit() {
			m.space.StoreError(id, ErrCapacityLimited, 0)
			return m.space.Await(id)
		}
	}

	job := Job{
		ID:        id,
		Fn:        fn,
		StartTime: time.Now(),
		RetryPolicy: &RetryPolicy{
			MaxAttempts: 1,
			Strategy:    &ExponentialBackoff{Initial: time.Second},
		},
	}

	for _, opt := range opts {
		opt(&job)
	}

	m.jobs <- job
	m.routeToWorker(job)
	return m.space.Await(id)
}

// routeToWorker hands a queued job to the next worker that registers
// itself as available.
func (m *LocalClusterManager) routeToWorker(job Job) {
	go func() {
		select {
		case <-m.ctx.Done():
			return
		case jobChan := <-m.workers:
			jobChan <- job
		}
	}()
}

func (m *LocalClusterManager) CreateBroadcastGroup(id string, ttl time.Duration) *BroadcastGroup {
	return m.space.CreateBroadcastGroup(id, ttl)
}

func (m *LocalClusterManager) Subscribe(groupID string) chan *QValue {
	return m.space.Subscribe(groupID)
}

// RegisterCircuitBreaker associates a named circuit breaker with the pool
// so jobs tagged with that CircuitID are protected by it.
func (m *LocalClusterManager) RegisterCircuitBreaker(id string, breaker *CircuitBreaker) {
	m.breakersMu.Lock()
	defer m.breakersMu.Unlock()
	m.breakers[id] = breaker
}

// Shutdown cancels the manager's context, stopping all workers and
// background loops.
func (m *LocalClusterManager) Shutdown() {
	m.cancel()
	m.space.Close()
}

// WithRetry sets a job's RetryPolicy. Worker runs a job's Fn once and does
// not read RetryPolicy; only DependencyRetryPolicy is applied, to the
// wait for dependencies.
func WithRetry(attempts int, strategy RetryStrategy) JobOption {
	return func(j *Job) {
		j.RetryPolicy = &RetryPolicy{
			MaxAttempts: attempts,
			Strategy:    strategy,
		}
	}
}

// WithCircuitBreaker tags a job with a circuit ID; failures are reported to
// whatever breaker is registered under that ID via RegisterCircuitBreaker.
func WithCircuitBreaker(id string) JobOption {
	return func(j *Job) {
		j.CircuitID = id
	}
}

// WithTTL configures how long a job's result remains available after it
// completes.
func WithTTL(ttl time.Duration) JobOption {
	return func(j *Job) {
		j.TTL = ttl
	}
}
