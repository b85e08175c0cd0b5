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
	"context"
	"sort"
	"sync"
	"time"
)

// Canonical recovery strategy IDs.
const (
	StrategyExponentialBackoff  = "exponential_backoff"
	StrategyRetryWithBackoff    = "retry_with_backoff"
	StrategyCredentialRefresh   = "credential_refresh"
	StrategyResourceCleanup     = "resource_cleanup"
	StrategyDataValidation      = "data_validation"
	StrategyFallbackModel       = "fallback_model"
	StrategyCircuitBreaker      = "circuit_breaker"
	StrategyGracefulDegradation = "graceful_degradation"
	StrategyBasicRetry          = "basic_retry"
	StrategyManualIntervention  = "manual_intervention"
	StrategyFallbackAuth        = "fallback_auth"
)

// RecoveryStrategy is one executable recovery approach.
//
// Execute must not panic for ordinary failures; a strategy that cannot
// resolve the error returns a result with Success=false. Panics are
// treated by the orchestrator as faults in the machinery itself.
//
// Thread Safety: Implementations must be safe for concurrent use.
type RecoveryStrategy interface {
	// ID returns the strategy's registry key.
	ID() string

	// Execute runs the strategy for one classified error.
	Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult
}

// RecoveryCatalog maps strategy IDs to implementations.
//
// The catalog is a registry rather than a switch so callers can extend
// it with their own strategies before handing it to the orchestrator.
//
// Thread Safety: Safe for concurrent use.
type RecoveryCatalog struct {
	mu         sync.RWMutex
	strategies map[string]RecoveryStrategy
}

// NewRecoveryCatalog returns an empty catalog.
func NewRecoveryCatalog() *RecoveryCatalog {
	return &RecoveryCatalog{strategies: make(map[string]RecoveryStrategy)}
}

// Register adds or replaces a strategy under its own ID.
func (c *RecoveryCatalog) Register(s RecoveryStrategy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies[s.ID()] = s
}

// Lookup returns the strategy registered under id.
func (c *RecoveryCatalog) Lookup(id string) (RecoveryStrategy, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.strategies[id]
	return s, ok
}

// IDs returns all registered strategy IDs, sorted.
func (c *RecoveryCatalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.strategies))
	for id := range c.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// sleepFunc is the wait seam used by backoff strategies. The default
// implementation waits cooperatively and returns early if the context
// is canceled; tests substitute a recording fake so nothing sleeps.
type sleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// newDefaultCatalog registers the built-in strategy set.
func newDefaultCatalog(cfg RecoveryConfig, actions RecoveryActions, breakers *BreakerPool, degradation *DegradationManager, sleep sleepFunc) *RecoveryCatalog {
	c := NewRecoveryCatalog()

	c.Register(&exponentialBackoffStrategy{policy: cfg.Backoff, actions: actions, sleep: sleep})
	c.Register(&linearRetryStrategy{id: StrategyRetryWithBackoff, policy: cfg.Linear, actions: actions, sleep: sleep})
	c.Register(&linearRetryStrategy{id: StrategyBasicRetry, policy: cfg.Linear, actions: actions, sleep: sleep})
	c.Register(&credentialRefreshStrategy{actions: actions})
	c.Register(&fallbackAuthStrategy{actions: actions})
	c.Register(&resourceCleanupStrategy{actions: actions})
	c.Register(&dataValidationStrategy{actions: actions})
	c.Register(&fallbackModelStrategy{actions: actions})
	c.Register(&circuitBreakerStrategy{pool: breakers, actions: actions})
	c.Register(&gracefulDegradationStrategy{manager: degradation})
	c.Register(manualInterventionStrategy{})

	return c
}
