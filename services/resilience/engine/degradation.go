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
	"sync"
	"time"
)

// DegradationLevel represents how much functionality is disabled.
type DegradationLevel int

const (
	// DegradationNormal is full functionality.
	DegradationNormal DegradationLevel = iota

	// DegradationReduced disables the first non-critical feature.
	DegradationReduced

	// DegradationMinimal disables all but one non-critical feature.
	DegradationMinimal

	// DegradationEssential disables every non-critical feature.
	DegradationEssential
)

// String returns a human-readable degradation level name.
func (d DegradationLevel) String() string {
	switch d {
	case DegradationNormal:
		return "normal"
	case DegradationReduced:
		return "reduced"
	case DegradationMinimal:
		return "minimal"
	case DegradationEssential:
		return "essential"
	default:
		return "unknown"
	}
}

// DegradationManager tracks how far the system has been degraded.
//
// Each escalation drops one level and disables more of the configured
// non-critical features; sustained successes recover one level at a
// time.
//
// Thread Safety: Safe for concurrent use.
type DegradationManager struct {
	policy DegradationPolicy

	mu                   sync.RWMutex
	level                DegradationLevel
	consecutiveSuccesses int
	lastDegradation      time.Time
}

// NewDegradationManager creates a manager at the normal level.
func NewDegradationManager(policy DegradationPolicy) *DegradationManager {
	return &DegradationManager{policy: policy}
}

// Escalate drops one degradation level and returns the new level plus
// the features now disabled. Escalating at the lowest level stays there.
func (m *DegradationManager) Escalate() (DegradationLevel, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.level < DegradationEssential {
		m.level++
	}
	m.consecutiveSuccesses = 0
	m.lastDegradation = time.Now()
	return m.level, m.disabledLocked()
}

// RecordSuccess counts toward recovery; after SuccessesForRecovery
// consecutive successes the manager restores one level.
func (m *DegradationManager) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.level == DegradationNormal {
		return
	}
	m.consecutiveSuccesses++
	if m.consecutiveSuccesses >= m.policy.SuccessesForRecovery {
		m.level--
		m.consecutiveSuccesses = 0
	}
}

// Level returns the current degradation level.
func (m *DegradationManager) Level() DegradationLevel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level
}

// DisabledFeatures returns the non-critical features disabled at the
// current level, in configuration order.
func (m *DegradationManager) DisabledFeatures() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disabledLocked()
}

// disabledLocked computes the disabled feature list. Lock must be held.
func (m *DegradationManager) disabledLocked() []string {
	n := len(m.policy.NonCriticalFeatures)
	var count int
	switch m.level {
	case DegradationReduced:
		count = 1
	case DegradationMinimal:
		count = n - 1
	case DegradationEssential:
		count = n
	}
	if count < 0 {
		count = 0
	}
	if count > n {
		count = n
	}
	return append([]string(nil), m.policy.NonCriticalFeatures[:count]...)
}

// gracefulDegradationStrategy reduces functionality and treats the
// degraded mode as a successful, if suboptimal, resolution.
type gracefulDegradationStrategy struct {
	manager *DegradationManager
}

func (s *gracefulDegradationStrategy) ID() string { return StrategyGracefulDegradation }

func (s *gracefulDegradationStrategy) Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult {
	level, disabled := s.manager.Escalate()

	userImpact := "noticeable"
	if level == DegradationReduced {
		userImpact = "minor"
	}
	return StrategyResult{
		Success: true,
		Message: "degraded to " + level.String() + " mode",
		Details: map[string]any{
			"level":             level.String(),
			"disabled_features": disabled,
			"user_impact":       userImpact,
		},
	}
}
