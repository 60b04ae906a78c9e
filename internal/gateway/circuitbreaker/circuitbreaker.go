// Package circuitbreaker tracks recoverable transport failures per gateway
// host and refuses requests to a host whose circuit is open.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is the state of one host's circuit.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

const (
	defaultFailureThreshold         = 3
	defaultResetTimeout             = 30 * time.Second
	defaultHalfOpenSuccessThreshold = 1
)

// Config tunes the breaker. Zero values fall back to defaults.
type Config struct {
	FailureThreshold         int
	ResetTimeout             time.Duration
	HalfOpenSuccessThreshold int
}

type hostState struct {
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	openUntil            time.Time
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	mu    sync.Mutex
	hosts map[string]*hostState
	cfg   Config
	now   func() time.Time
}

func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	if cfg.HalfOpenSuccessThreshold <= 0 {
		cfg.HalfOpenSuccessThreshold = defaultHalfOpenSuccessThreshold
	}
	return &CircuitBreaker{
		hosts: make(map[string]*hostState),
		cfg:   cfg,
		now:   time.Now,
	}
}

// getHost assumes cb.mu is held.
func (cb *CircuitBreaker) getHost(host string) *hostState {
	hs, ok := cb.hosts[host]
	if !ok {
		hs = &hostState{state: StateClosed}
		cb.hosts[host] = hs
	}
	return hs
}

// AllowRequest reports whether a request to host may proceed. An open
// circuit whose reset timeout elapsed moves to half-open and lets requests
// through as trial requests.
func (cb *CircuitBreaker) AllowRequest(host string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hs := cb.getHost(host)
	switch hs.state {
	case StateOpen:
		if cb.now().Before(hs.openUntil) {
			return false
		}
		hs.state = StateHalfOpen
		hs.consecutiveSuccesses = 0
		return true
	default:
		return true
	}
}

// RecordFailure records a recoverable transport failure for host.
func (cb *CircuitBreaker) RecordFailure(host string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hs := cb.getHost(host)
	switch hs.state {
	case StateClosed:
		hs.consecutiveFailures++
		if hs.consecutiveFailures >= cb.cfg.FailureThreshold {
			cb.trip(hs)
		}
	case StateHalfOpen:
		cb.trip(hs)
	}
}

// RecordSuccess records any response that reached the gateway, including
// server errors.
func (cb *CircuitBreaker) RecordSuccess(host string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hs := cb.getHost(host)
	switch hs.state {
	case StateClosed:
		hs.consecutiveFailures = 0
	case StateHalfOpen:
		hs.consecutiveSuccesses++
		if hs.consecutiveSuccesses >= cb.cfg.HalfOpenSuccessThreshold {
			hs.state = StateClosed
			hs.consecutiveFailures = 0
			hs.consecutiveSuccesses = 0
		}
	}
}

func (cb *CircuitBreaker) trip(hs *hostState) {
	hs.state = StateOpen
	hs.openUntil = cb.now().Add(cb.cfg.ResetTimeout)
	hs.consecutiveSuccesses = 0
}

// GetHostStatus returns the state and consecutive failure count without
// triggering the open to half-open transition.
func (cb *CircuitBreaker) GetHostStatus(host string) (State, int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hs, ok := cb.hosts[host]
	if !ok {
		return StateClosed, 0
	}
	return hs.state, hs.consecutiveFailures
}
