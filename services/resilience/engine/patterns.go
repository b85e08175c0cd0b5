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
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrorPattern is one known failure signature and its metadata.
//
// Occurrences and LastSeen are mutated by the registry every time a
// matching error is classified. Patterns live for the registry's
// lifetime; they are never deleted, only updated.
type ErrorPattern struct {
	ID                 string    `json:"id"`
	Signatures         []string  `json:"signatures"`
	Severity           Severity  `json:"severity"`
	Category           Category  `json:"category"`
	RecoveryStrategy   string    `json:"recovery_strategy"`
	PreventionStrategy string    `json:"prevention_strategy"`
	Occurrences        int       `json:"occurrences"`
	LastSeen           time.Time `json:"last_seen,omitzero"`
}

// PatternMatch is one scored candidate from registry matching.
type PatternMatch struct {
	Pattern ErrorPattern
	Score   float64
}

// PatternRegistry is the mutable table of known failure signatures.
//
// Occurrence counters and last-seen timestamps are engine-owned state
// mutated under the registry lock; reads return copies.
//
// Thread Safety: Safe for concurrent use.
type PatternRegistry struct {
	mu       sync.RWMutex
	patterns map[string]*ErrorPattern
	order    []string // insertion order for deterministic snapshots
}

// NewPatternRegistry builds a registry from the given pattern configs.
func NewPatternRegistry(configs []PatternConfig) *PatternRegistry {
	r := &PatternRegistry{
		patterns: make(map[string]*ErrorPattern, len(configs)),
	}
	for _, c := range configs {
		r.patterns[c.ID] = &ErrorPattern{
			ID:                 c.ID,
			Signatures:         append([]string(nil), c.Signatures...),
			Severity:           c.Severity,
			Category:           c.Category,
			RecoveryStrategy:   c.RecoveryStrategy,
			PreventionStrategy: c.PreventionStrategy,
		}
		r.order = append(r.order, c.ID)
	}
	return r
}

// Match scores every pattern against the error text and returns the
// candidates whose match score exceeds 0.5, sorted descending by score.
//
// The match score for a pattern is the count of its signatures found as
// case-insensitive substrings of message+stack, divided by the number
// of signatures. Ties are broken by pattern ID for determinism.
func (r *PatternRegistry) Match(message, stack string) []PatternMatch {
	haystack := strings.ToLower(message + "\n" + stack)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []PatternMatch
	for _, id := range r.order {
		p := r.patterns[id]
		found := 0
		for _, sig := range p.Signatures {
			if strings.Contains(haystack, strings.ToLower(sig)) {
				found++
			}
		}
		if found == 0 {
			continue
		}
		score := float64(found) / float64(len(p.Signatures))
		if score > 0.5 {
			matches = append(matches, PatternMatch{Pattern: copyPattern(p), Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Pattern.ID < matches[j].Pattern.ID
	})
	return matches
}

// RecordOccurrence increments the occurrence counter and updates the
// last-seen timestamp of the given pattern.
func (r *PatternRegistry) RecordOccurrence(id string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.patterns[id]; ok {
		p.Occurrences++
		p.LastSeen = now
	}
}

// Snapshot returns a copy of every pattern in registration order.
func (r *PatternRegistry) Snapshot() []ErrorPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ErrorPattern, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, copyPattern(r.patterns[id]))
	}
	return out
}

// Replace swaps the pattern table for a new one, preserving occurrence
// counters and last-seen timestamps for pattern IDs that survive the
// swap. Used by the config file watcher on live reload.
func (r *PatternRegistry) Replace(configs []PatternConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]*ErrorPattern, len(configs))
	var order []string
	for _, c := range configs {
		p := &ErrorPattern{
			ID:                 c.ID,
			Signatures:         append([]string(nil), c.Signatures...),
			Severity:           c.Severity,
			Category:           c.Category,
			RecoveryStrategy:   c.RecoveryStrategy,
			PreventionStrategy: c.PreventionStrategy,
		}
		if prev, ok := r.patterns[c.ID]; ok {
			p.Occurrences = prev.Occurrences
			p.LastSeen = prev.LastSeen
		}
		next[c.ID] = p
		order = append(order, c.ID)
	}
	r.patterns = next
	r.order = order
}

func copyPattern(p *ErrorPattern) ErrorPattern {
	out := *p
	out.Signatures = append([]string(nil), p.Signatures...)
	return out
}

// DefaultPatterns returns the built-in failure signature table.
//
// Patterns are deliberately fine-grained: independent phrasings of the
// same failure get separate single-signature patterns so that any one
// phrasing clears the 0.5 candidate threshold on its own.
func DefaultPatterns() []PatternConfig {
	return []PatternConfig{
		// API throttling
		{ID: "rate_limit", Signatures: []string{"rate limit"}, Category: CategoryAPIThrottling,
			Severity: SeverityMedium, RecoveryStrategy: StrategyExponentialBackoff, PreventionStrategy: "request_throttling"},
		{ID: "http_429", Signatures: []string{"429"}, Category: CategoryAPIThrottling,
			Severity: SeverityMedium, RecoveryStrategy: StrategyExponentialBackoff, PreventionStrategy: "request_throttling"},
		{ID: "too_many_requests", Signatures: []string{"too many requests"}, Category: CategoryAPIThrottling,
			Severity: SeverityMedium, RecoveryStrategy: StrategyExponentialBackoff, PreventionStrategy: "request_throttling"},
		{ID: "quota_exceeded", Signatures: []string{"quota"}, Category: CategoryAPIThrottling,
			Severity: SeverityMedium, RecoveryStrategy: StrategyExponentialBackoff, PreventionStrategy: "quota_monitoring"},

		// Security
		{ID: "http_401", Signatures: []string{"401"}, Category: CategorySecurity,
			Severity: SeverityHigh, RecoveryStrategy: StrategyCredentialRefresh, PreventionStrategy: "credential_rotation"},
		{ID: "unauthorized", Signatures: []string{"unauthorized"}, Category: CategorySecurity,
			Severity: SeverityHigh, RecoveryStrategy: StrategyCredentialRefresh, PreventionStrategy: "credential_rotation"},
		{ID: "http_403", Signatures: []string{"403"}, Category: CategorySecurity,
			Severity: SeverityHigh, RecoveryStrategy: StrategyCredentialRefresh, PreventionStrategy: "permission_audit"},
		{ID: "forbidden", Signatures: []string{"forbidden"}, Category: CategorySecurity,
			Severity: SeverityHigh, RecoveryStrategy: StrategyCredentialRefresh, PreventionStrategy: "permission_audit"},
		{ID: "token_expired", Signatures: []string{"token expired"}, Category: CategorySecurity,
			Severity: SeverityHigh, RecoveryStrategy: StrategyCredentialRefresh, PreventionStrategy: "proactive_token_refresh"},
		{ID: "invalid_credentials", Signatures: []string{"invalid credentials"}, Category: CategorySecurity,
			Severity: SeverityHigh, RecoveryStrategy: StrategyCredentialRefresh, PreventionStrategy: "credential_rotation"},

		// Connectivity
		{ID: "timeout", Signatures: []string{"timeout"}, Category: CategoryConnectivity,
			Severity: SeverityMedium, RecoveryStrategy: StrategyRetryWithBackoff, PreventionStrategy: "timeout_tuning"},
		{ID: "connection_refused", Signatures: []string{"connection refused"}, Category: CategoryConnectivity,
			Severity: SeverityMedium, RecoveryStrategy: StrategyRetryWithBackoff, PreventionStrategy: "connection_pooling"},
		{ID: "connection_reset", Signatures: []string{"connection reset"}, Category: CategoryConnectivity,
			Severity: SeverityMedium, RecoveryStrategy: StrategyRetryWithBackoff, PreventionStrategy: "connection_pooling"},
		{ID: "dns_failure", Signatures: []string{"no such host"}, Category: CategoryConnectivity,
			Severity: SeverityMedium, RecoveryStrategy: StrategyRetryWithBackoff, PreventionStrategy: "dns_caching"},
		{ID: "unreachable", Signatures: []string{"unreachable"}, Category: CategoryConnectivity,
			Severity: SeverityMedium, RecoveryStrategy: StrategyCircuitBreaker, PreventionStrategy: "health_checks"},

		// Resources
		{ID: "out_of_memory", Signatures: []string{"out of memory"}, Category: CategoryResources,
			Severity: SeverityCritical, RecoveryStrategy: StrategyResourceCleanup, PreventionStrategy: "memory_budgeting"},
		{ID: "disk_full", Signatures: []string{"no space left"}, Category: CategoryResources,
			Severity: SeverityCritical, RecoveryStrategy: StrategyResourceCleanup, PreventionStrategy: "capacity_planning"},
		{ID: "resource_exhausted", Signatures: []string{"resource exhausted"}, Category: CategoryResources,
			Severity: SeverityHigh, RecoveryStrategy: StrategyResourceCleanup, PreventionStrategy: "capacity_planning"},
		{ID: "too_many_files", Signatures: []string{"too many open files"}, Category: CategoryResources,
			Severity: SeverityHigh, RecoveryStrategy: StrategyResourceCleanup, PreventionStrategy: "handle_auditing"},

		// Data integrity
		{ID: "corrupt_data", Signatures: []string{"corrupt"}, Category: CategoryDataIntegrity,
			Severity: SeverityHigh, RecoveryStrategy: StrategyDataValidation, PreventionStrategy: "schema_validation"},
		{ID: "parse_error", Signatures: []string{"parse error"}, Category: CategoryDataIntegrity,
			Severity: SeverityHigh, RecoveryStrategy: StrategyDataValidation, PreventionStrategy: "schema_validation"},
		{ID: "malformed", Signatures: []string{"malformed"}, Category: CategoryDataIntegrity,
			Severity: SeverityHigh, RecoveryStrategy: StrategyDataValidation, PreventionStrategy: "input_validation"},
		{ID: "checksum_mismatch", Signatures: []string{"checksum"}, Category: CategoryDataIntegrity,
			Severity: SeverityHigh, RecoveryStrategy: StrategyDataValidation, PreventionStrategy: "integrity_verification"},

		// AI processing
		{ID: "context_length", Signatures: []string{"context length"}, Category: CategoryAIProcessing,
			Severity: SeverityMedium, RecoveryStrategy: StrategyFallbackModel, PreventionStrategy: "prompt_budgeting"},
		{ID: "token_limit", Signatures: []string{"token limit"}, Category: CategoryAIProcessing,
			Severity: SeverityMedium, RecoveryStrategy: StrategyFallbackModel, PreventionStrategy: "prompt_budgeting"},
		{ID: "model_overloaded", Signatures: []string{"overloaded"}, Category: CategoryAIProcessing,
			Severity: SeverityMedium, RecoveryStrategy: StrategyFallbackModel, PreventionStrategy: "model_pooling"},
		{ID: "inference_failure", Signatures: []string{"inference failed"}, Category: CategoryAIProcessing,
			Severity: SeverityMedium, RecoveryStrategy: StrategyFallbackModel, PreventionStrategy: "model_pooling"},
	}
}
