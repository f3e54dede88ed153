// Package resilience provides the guardrails wrapped around external tool
// calls: per-resource circuit breakers and a keyed sliding-window rate
// limiter. Denials are values, not errors; callers check and degrade.
package resilience

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int32

const (
	CircuitClosed   CircuitState = iota // normal operation
	CircuitOpen                         // failing, calls blocked
	CircuitHalfOpen                     // reset timeout elapsed, probe allowed
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker protects one named external resource. Transitions:
//
//   - closed → open when consecutive failures reach the threshold
//   - open → half_open lazily, once resetTimeout has elapsed since the
//     last failure (evaluated on read, no background timer)
//   - any state → closed on a recorded success (failure counter reset)
//   - half_open → open implicitly on the next failure, since the counter
//     still meets the threshold
type CircuitBreaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration

	mu          sync.Mutex
	failures    int
	state       CircuitState
	lastFailure time.Time
	lastSuccess time.Time

	now func() time.Time
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           // default: 5
	ResetTimeout     time.Duration // default: 60s
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
	}
}

// NewCircuitBreaker creates a breaker for the named resource.
func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}

	return &CircuitBreaker{
		name:             name,
		failureThreshold: cfg.FailureThreshold,
		resetTimeout:     cfg.ResetTimeout,
		state:            CircuitClosed,
		now:              time.Now,
	}
}

// Name returns the protected resource name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// CanExecute reports whether a protected call may proceed: true for closed
// and half_open, false for open. Reading the state performs the lazy
// open → half_open transition.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked() != CircuitOpen
}

// State returns the current state, applying the lazy transition.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

func (cb *CircuitBreaker) currentStateLocked() CircuitState {
	if cb.state == CircuitOpen && cb.now().Sub(cb.lastFailure) >= cb.resetTimeout {
		cb.state = CircuitHalfOpen
	}
	return cb.state
}

// RecordSuccess resets the failure counter and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
	cb.lastSuccess = cb.now()
}

// RecordFailure increments the failure counter and opens the circuit once
// the threshold is met. A failure while half_open reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()
	if cb.failures >= cb.failureThreshold {
		cb.state = CircuitOpen
	}
}

// BreakerStats is a point-in-time breaker snapshot.
type BreakerStats struct {
	Name        string       `json:"name"`
	State       CircuitState `json:"state"`
	Failures    int          `json:"failures"`
	LastFailure time.Time    `json:"last_failure"`
	LastSuccess time.Time    `json:"last_success"`
}

// Stats returns breaker statistics.
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return BreakerStats{
		Name:        cb.name,
		State:       cb.currentStateLocked(),
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
		LastSuccess: cb.lastSuccess,
	}
}

// setClock overrides the wall clock for simulated-time tests.
func (cb *CircuitBreaker) setClock(now func() time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
}

// BreakerRegistry holds one breaker per named external resource, created
// lazily on first reference. It lives for the process lifetime and is reset
// only by an explicit administrative clear.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	defaults BreakerConfig
}

// NewBreakerRegistry creates a registry using cfg for lazily created
// breakers.
func NewBreakerRegistry(cfg BreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		defaults: cfg,
	}
}

// Get returns the breaker for a resource, creating it with the registry
// defaults if needed.
func (r *BreakerRegistry) Get(name string) *CircuitBreaker {
	return r.GetWithConfig(name, r.defaults)
}

// GetWithConfig returns the breaker for a resource, creating it with cfg on
// first use. An existing breaker keeps its original configuration.
func (r *BreakerRegistry) GetWithConfig(name string, cfg BreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cb := NewCircuitBreaker(name, cfg)
	r.breakers[name] = cb
	return cb
}

// OpenCircuits returns the names of resources whose circuits are open.
func (r *BreakerRegistry) OpenCircuits() []string {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	var open []string
	for _, cb := range breakers {
		if cb.State() == CircuitOpen {
			open = append(open, cb.Name())
		}
	}
	return open
}

// Stats returns statistics for every registered breaker.
func (r *BreakerRegistry) Stats() map[string]BreakerStats {
	r.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		breakers = append(breakers, cb)
	}
	r.mu.Unlock()

	stats := make(map[string]BreakerStats, len(breakers))
	for _, cb := range breakers {
		stats[cb.Name()] = cb.Stats()
	}
	return stats
}

// Reset drops every breaker. Administrative use only.
func (r *BreakerRegistry) Reset() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.breakers)
	r.breakers = make(map[string]*CircuitBreaker)
	return n
}
