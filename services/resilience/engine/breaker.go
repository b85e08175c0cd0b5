// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed allows requests through normally.
	CircuitClosed CircuitState = iota

	// CircuitOpen rejects all requests immediately.
	CircuitOpen

	// CircuitHalfOpen allows a limited probe to test recovery.
	CircuitHalfOpen
)

// String returns the human-readable name for the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards one logical resource.
//
// State transitions:
//   - closed -> open after FailureThreshold consecutive failures
//   - open -> half-open once ResetTimeout has elapsed
//   - half-open -> closed on a successful probe
//   - half-open -> open on any failure
//
// Thread Safety: Safe for concurrent use.
type CircuitBreaker struct {
	policy BreakerPolicy
	clock  func() time.Time

	mu                  sync.RWMutex
	state               CircuitState
	consecutiveFailures int
	lastFailureTime     time.Time
	lastTransition      time.Time
}

// NewCircuitBreaker creates a breaker in the closed state. A nil clock
// defaults to time.Now.
func NewCircuitBreaker(policy BreakerPolicy, clock func() time.Time) *CircuitBreaker {
	if clock == nil {
		clock = time.Now
	}
	return &CircuitBreaker{
		policy:         policy,
		clock:          clock,
		state:          CircuitClosed,
		lastTransition: clock(),
	}
}

// State returns the current state, promoting open to half-open if the
// reset timeout has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && cb.clock().Sub(cb.lastFailureTime) >= cb.policy.ResetTimeout {
		cb.transitionTo(CircuitHalfOpen)
	}
	return cb.state
}

// RecordSuccess records a successful request. A success in half-open
// closes the circuit; in closed it resets the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.consecutiveFailures = 0
	case CircuitHalfOpen:
		cb.transitionTo(CircuitClosed)
	}
}

// RecordFailure records a failed request. Any failure in half-open
// reopens the circuit; in closed the circuit opens once the failure
// streak reaches the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = cb.clock()

	switch cb.state {
	case CircuitClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.policy.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

// ForceState moves the breaker to a state directly. Intended for tests
// and manual intervention.
func (cb *CircuitBreaker) ForceState(state CircuitState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionTo(state)
	if state == CircuitOpen {
		cb.lastFailureTime = cb.clock()
	}
}

// Snapshot returns the externally visible breaker state.
func (cb *CircuitBreaker) Snapshot() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerState{
		State:          cb.state.String(),
		FailureCount:   cb.consecutiveFailures,
		LastTransition: cb.lastTransition,
	}
}

// transitionTo changes state. Must be called with the lock held.
func (cb *CircuitBreaker) transitionTo(state CircuitState) {
	if cb.state == state {
		return
	}
	cb.state = state
	cb.lastTransition = cb.clock()
	if state == CircuitClosed {
		cb.consecutiveFailures = 0
	}
}

// CircuitBreakerState is the serializable per-resource breaker state.
type CircuitBreakerState struct {
	State          string    `json:"state"`
	FailureCount   int       `json:"failure_count"`
	LastTransition time.Time `json:"last_transition"`
}

// BreakerPool owns one circuit breaker per logical resource.
//
// Thread Safety: Safe for concurrent use.
type BreakerPool struct {
	policy BreakerPolicy
	clock  func() time.Time

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakerPool creates an empty pool with the given policy. A nil
// clock defaults to time.Now.
func NewBreakerPool(policy BreakerPolicy, clock func() time.Time) *BreakerPool {
	if clock == nil {
		clock = time.Now
	}
	return &BreakerPool{
		policy:   policy,
		clock:    clock,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for the named resource, creating it closed on
// first use. The empty resource name maps to "default".
func (p *BreakerPool) Get(resource string) *CircuitBreaker {
	if resource == "" {
		resource = "default"
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cb, ok := p.breakers[resource]
	if !ok {
		cb = NewCircuitBreaker(p.policy, p.clock)
		p.breakers[resource] = cb
	}
	return cb
}

// States returns a snapshot of every tracked resource.
func (p *BreakerPool) States() map[string]CircuitBreakerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]CircuitBreakerState, len(p.breakers))
	for name, cb := range p.breakers {
		out[name] = cb.Snapshot()
	}
	return out
}
