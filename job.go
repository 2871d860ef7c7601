package qdispatch

import "time"

// Job represents work to be done
type Job struct {
	ID                    string
	Fn                    func() (any, error)
	RetryPolicy           *RetryPolicy
	CircuitID             string
	CircuitConfig         *CircuitBreakerConfig
	Dependencies          []string
	TTL                   time.Duration
	Attempt               int
	LastError             error
	DependencyRetryPolicy *RetryPolicy
	StartTime             time.Time
	Kind                  TaskKind // set only via WithKind; empty for Dispatcher submissions
}

// JobOption is a function type for configuring jobs
type JobOption func(*Job)

// CircuitBreakerConfig defines configuration for a circuit breaker
type CircuitBreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
	HalfOpenMax  int
}

// WithDependencyRetry configures retry behavior for dependencies
func WithDependencyRetry(attempts int, strategy RetryStrategy) JobOption {
	return func(j *Job) {
		j.DependencyRetryPolicy = &RetryPolicy{
			MaxAttempts: attempts,
			Strategy:    strategy,
		}
	}
}

// WithDependencies configures job dependencies
func WithDependencies(dependencies []string) JobOption {
	return func(j *Job) {
		j.Dependencies = dependencies
	}
}

// WithKind tags a job with a TaskKind, which Worker copies onto the stored
// QValue. The Dispatcher's submit paths do not pass this option, and the
// tag is not counted in Metrics unless a caller calls RecordJobKind.
func WithKind(kind TaskKind) JobOption {
	return func(j *Job) {
		j.Kind = kind
	}
}
