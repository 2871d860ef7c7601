// selector.go
package qdispatch

import (
	"hash/fnv"
	"math"
	"sync"
	"time"
)

// Selector is DREAMER's contract: given a task and a catalogue, return the
// best resource under whatever objective the concrete strategy implements.
// Two distinct strategy families are supported — see NewScoringSelector
// and NewSimpleSelector — because the source this spec was distilled from
// carries two implementations under the same name and neither subsumes
// the other (§9, ambiguous source behaviour).
type Selector interface {
	Select(qt *QuantumTask, catalogue *Catalogue) *QuantumResource
}

// OptimizationMode picks a scoring selector's fidelity/queue weighting.
type OptimizationMode string

const (
	HighFidelity OptimizationMode = "high_fidelity"
	Balanced     OptimizationMode = "balanced"
	HighSpeed    OptimizationMode = "high_speed"
)

var modeWeights = map[OptimizationMode][2]float64{
	HighFidelity: {0.8, 0.2},
	Balanced:     {0.5, 0.5},
	HighSpeed:    {0.2, 0.8},
}

// queueCacheEntry is one resource's cached utilization reading.
type queueCacheEntry struct {
	utilization float64
	observedAt  time.Time
}

// ScoringSelector minimizes a weighted fidelity/queue-utilization cost,
// optionally refreshing queue utilization from each resource's executor on
// a background interval (§4.3).
type ScoringSelector struct {
	mode     OptimizationMode
	registry *ExecutorRegistry

	cacheMu    sync.Mutex
	cache      map[string]queueCacheEntry
	cacheTTL   time.Duration
	monitorInt time.Duration

	stop chan struct{}
	once sync.Once
}

// NewScoringSelector builds a ScoringSelector for the given optimization
// mode. If registry is non-nil and monitor is true, a background goroutine
// refreshes queue utilization every monitorInterval (default 60s); the
// cache itself expires entries after cacheTTL (default 30s).
func NewScoringSelector(mode OptimizationMode, registry *ExecutorRegistry, monitor bool) *ScoringSelector {
	s := &ScoringSelector{
		mode:       mode,
		registry:   registry,
		cache:      make(map[string]queueCacheEntry),
		cacheTTL:   30 * time.Second,
		monitorInt: 60 * time.Second,
		stop:       make(chan struct{}),
	}
	if monitor && registry != nil {
		go s.monitor()
	}
	return s
}

// Select implements Selector for the scoring family (§4.3 "Scoring
// strategies"). Ties are broken by catalogue insertion order because
// Suitable preserves it and we scan in that order.
func (s *ScoringSelector) Select(qt *QuantumTask, catalogue *Catalogue) *QuantumResource {
	suitable := catalogue.Suitable(qt)
	if len(suitable) == 0 {
		return nil
	}

	weights := modeWeights[s.mode]
	if weights == [2]float64{} {
		weights = modeWeights[HighFidelity]
	}
	wf, wq := weights[0], weights[1]

	var best *QuantumResource
	bestCost := math.Inf(1)
	for _, r := range suitable {
		cost := wf*(1-r.Fidelity()) + wq*s.utilization(r.name)
		if cost < bestCost {
			bestCost = cost
			best = r
		}
	}
	return best
}

// utilization reads the queue cache, simulating a deterministic jitter
// when no live reading has been taken yet, per the source's documented
// (and explicitly non-normative) `hash(name, minute) % 100 / 1000` jitter.
func (s *ScoringSelector) utilization(name string) float64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.cache[name]
	if ok && time.Since(entry.observedAt) < s.cacheTTL {
		return entry.utilization
	}
	return simulatedJitter(name, time.Now())
}

func simulatedJitter(name string, at time.Time) float64 {
	h := fnv.New32a()
	h.Write([]byte(name))
	minuteBytes := [8]byte{}
	minute := at.Unix() / 60
	for i := 0; i < 8; i++ {
		minuteBytes[i] = byte(minute >> (8 * i))
	}
	h.Write(minuteBytes[:])
	return float64(h.Sum32()%100) / 1000.0
}

// refresh pulls queue_lengths() from each executor family and updates the
// cache. Called once at startup (implicitly, via monitor's first tick)
// and then every monitorInterval.
func (s *ScoringSelector) refresh(catalogue *Catalogue) {
	if catalogue == nil || s.registry == nil {
		return
	}
	for _, r := range catalogue.Ordered() {
		family := familyFromName(r.name, s.registry.Families())
		executor, err := s.registry.Create(family, r.quantumConfig)
		if err != nil {
			continue
		}
		lengths := executor.QueueLengths()
		s.cacheMu.Lock()
		for name, util := range lengths {
			s.cache[name] = queueCacheEntry{utilization: util, observedAt: time.Now()}
		}
		s.cacheMu.Unlock()
	}
}

func (s *ScoringSelector) monitor() {
	ticker := time.NewTicker(s.monitorInt)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.refresh(nil)
		}
	}
}

// SeedQueueDynamics installs initial queue utilization values, matching
// the DREAMER config's queue_dynamics seed map (§6).
func (s *ScoringSelector) SeedQueueDynamics(seed map[string]float64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	for name, util := range seed {
		s.cache[name] = queueCacheEntry{utilization: util, observedAt: time.Now()}
	}
}

// Stop terminates the background monitor goroutine, if one was started.
func (s *ScoringSelector) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// SimpleStrategy picks which of the three no-queue-signal variants a
// SimpleSelector implements (§4.3 "Simple strategies").
type SimpleStrategy string

const (
	LeastErrorRate SimpleStrategy = "least-error-rate"
	RoundRobin     SimpleStrategy = "round-robin"
	LeastBusy      SimpleStrategy = "least-busy"
)

// SimpleSelector implements the three queue-signal-free strategies. State
// (the round-robin cursor) is per-Selector, matching the source's
// per-instance rotation.
type SimpleSelector struct {
	strategy SimpleStrategy

	mu     sync.Mutex
	cursor int
}

func NewSimpleSelector(strategy SimpleStrategy) *SimpleSelector {
	return &SimpleSelector{strategy: strategy}
}

func (s *SimpleSelector) Select(qt *QuantumTask, catalogue *Catalogue) *QuantumResource {
	suitable := catalogue.Suitable(qt)
	if len(suitable) == 0 {
		return nil
	}

	switch s.strategy {
	case LeastErrorRate:
		best := suitable[0]
		for _, r := range suitable[1:] {
			if r.ErrorRate() < best.ErrorRate() {
				best = r
			}
		}
		return best

	case RoundRobin:
		s.mu.Lock()
		defer s.mu.Unlock()
		idx := s.cursor % len(suitable)
		s.cursor++
		return suitable[idx]

	case LeastBusy:
		return suitable[0]

	default:
		return suitable[0]
	}
}
