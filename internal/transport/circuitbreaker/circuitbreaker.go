// Package circuitbreaker stops calls to a gateway target after repeated
// execution failures and lets a trial call through once the reset timeout passes.
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the state of the circuit for one target.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

const (
	defaultFailureThreshold = 3
	defaultResetTimeout     = 30 * time.Second
)

// Config tunes the breaker. Zero values fall back to defaults.
type Config struct {
	FailureThreshold int           // consecutive failures that open the circuit
	ResetTimeout     time.Duration // time spent Open before a trial call is allowed
}

type targetState struct {
	state               State
	consecutiveFailures int
	openedAt            time.Time
	trialInFlight       bool
}

// CircuitBreaker tracks one circuit per target name.
type CircuitBreaker struct {
	mu      sync.Mutex
	targets map[string]*targetState
	cfg     Config
	now     func() time.Time
}

// NewCircuitBreaker creates a breaker with cfg, filling in defaults.
func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	return &CircuitBreaker{
		targets: make(map[string]*targetState),
		cfg:     cfg,
		now:     time.Now,
	}
}

// getTarget assumes cb.mu is held.
func (cb *CircuitBreaker) getTarget(name string) *targetState {
	ts, ok := cb.targets[name]
	if !ok {
		ts = &targetState{state: StateClosed}
		cb.targets[name] = ts
	}
	return ts
}

// AllowRequest reports whether a call to target may proceed. An Open circuit
// whose reset timeout has passed moves to HalfOpen and lets one trial call through;
// further calls are refused until that call is recorded or released.
func (cb *CircuitBreaker) AllowRequest(target string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ts := cb.getTarget(target)
	switch ts.state {
	case StateOpen:
		if cb.now().Sub(ts.openedAt) >= cb.cfg.ResetTimeout {
			ts.state = StateHalfOpen
			ts.consecutiveFailures = 0
			ts.trialInFlight = true
			return true
		}
		return false
	case StateHalfOpen:
		if ts.trialInFlight {
			return false
		}
		ts.trialInFlight = true
		return true
	default:
		return true
	}
}

// Release gives back an admitted call whose outcome says nothing about the
// target, freeing the HalfOpen trial slot without changing state.
func (cb *CircuitBreaker) Release(target string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if ts, ok := cb.targets[target]; ok {
		ts.trialInFlight = false
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure(target string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ts := cb.getTarget(target)
	ts.trialInFlight = false
	switch ts.state {
	case StateClosed:
		ts.consecutiveFailures++
		if ts.consecutiveFailures >= cb.cfg.FailureThreshold {
			ts.state = StateOpen
			ts.openedAt = cb.now()
		}
	case StateHalfOpen:
		// the trial call failed; stay open for a full timeout again
		ts.state = StateOpen
		ts.consecutiveFailures = cb.cfg.FailureThreshold
		ts.openedAt = cb.now()
	case StateOpen:
	}
}

// RecordSuccess records a successful call. A success in HalfOpen closes the circuit.
func (cb *CircuitBreaker) RecordSuccess(target string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ts := cb.getTarget(target)
	ts.trialInFlight = false
	switch ts.state {
	case StateClosed, StateHalfOpen:
		ts.state = StateClosed
		ts.consecutiveFailures = 0
	case StateOpen:
	}
}

// GetStatus returns the state and consecutive failure count of target
// without triggering the Open to HalfOpen transition.
func (cb *CircuitBreaker) GetStatus(target string) (State, int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ts, ok := cb.targets[target]
	if !ok {
		return StateClosed, 0
	}
	return ts.state, ts.consecutiveFailures
}
