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
	"time"
)

// Category is the high-level failure taxonomy assigned by classification.
type Category string

const (
	// CategoryAPIThrottling covers rate limiting and quota exhaustion.
	CategoryAPIThrottling Category = "api_throttling"

	// CategorySecurity covers authentication and authorization failures.
	CategorySecurity Category = "security"

	// CategoryConnectivity covers network-level failures.
	CategoryConnectivity Category = "connectivity"

	// CategoryResources covers memory, disk, and handle exhaustion.
	CategoryResources Category = "resources"

	// CategoryDataIntegrity covers corruption and malformed data.
	CategoryDataIntegrity Category = "data_integrity"

	// CategoryAIProcessing covers model and inference failures.
	CategoryAIProcessing Category = "ai_processing"

	// CategoryUnknown is assigned when no pattern matches.
	CategoryUnknown Category = "unknown"
)

// Severity is the assessed severity level of a classified error.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// rank returns a comparable ordering for severity levels (higher is worse).
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// SessionStatus is the lifecycle state of a recovery session.
//
// Transitions are one-way: StatusInProgress moves to exactly one of
// StatusSuccessful, StatusFailed, or StatusError and never reverts.
type SessionStatus string

const (
	// StatusInProgress means the strategy chain is still executing.
	StatusInProgress SessionStatus = "in_progress"

	// StatusSuccessful means some strategy in the chain succeeded.
	StatusSuccessful SessionStatus = "successful"

	// StatusFailed means every strategy was tried and none succeeded.
	StatusFailed SessionStatus = "failed"

	// StatusError means the orchestration machinery itself faulted,
	// as opposed to an orderly strategy failure.
	StatusError SessionStatus = "error"
)

// ErrorInput is the raw error surface supplied by callers.
//
// Only Message is expected; every other field is optional and defaults
// are applied during classification. Classification never fails on a
// malformed or empty input.
type ErrorInput struct {
	// Message is the error message text.
	Message string `json:"message"`

	// Stack is an optional stack trace or call context.
	Stack string `json:"stack,omitempty"`

	// Type is the error type name. Defaults to "Error" when empty.
	Type string `json:"type,omitempty"`

	// Code is an optional application-level error code.
	Code string `json:"code,omitempty"`

	// Status is an optional transport status code (e.g. HTTP status).
	Status int `json:"status,omitempty"`
}

// ErrorDetails is the normalized error surface embedded in an analysis.
type ErrorDetails struct {
	Message     string `json:"message"`
	StackPrefix string `json:"stack_prefix,omitempty"`
	Type        string `json:"type"`
	Code        string `json:"code,omitempty"`
	Status      int    `json:"status,omitempty"`
}

// Classification is the pattern-matching outcome for an error.
type Classification struct {
	// PrimaryCategory is the best-matching category, or "unknown".
	PrimaryCategory Category `json:"primary_category"`

	// SecondaryCategories are the next best matches, at most two.
	SecondaryCategories []Category `json:"secondary_categories,omitempty"`

	// Confidence is the match score of the winning pattern in [0, 1].
	// Unmatched errors are assigned 0.1.
	Confidence float64 `json:"confidence"`

	// MatchedPattern is the ID of the winning pattern, empty if none.
	MatchedPattern string `json:"matched_pattern,omitempty"`
}

// SeverityAssessment is the output of the weighted severity model.
type SeverityAssessment struct {
	// Level is the severity bucket derived from Score.
	Level Severity `json:"level"`

	// Score is the weighted severity score in [0, 100].
	Score float64 `json:"score"`

	// Factors names the features that contributed to the score.
	Factors []string `json:"factors,omitempty"`
}

// RootCauseAssessment is the output of the weighted root-cause model.
type RootCauseAssessment struct {
	// PrimaryCause is the top-ranked cause category.
	PrimaryCause string `json:"primary_cause"`

	// Confidence is the normalized score of the primary cause in [0, 1].
	Confidence float64 `json:"confidence"`

	// Alternatives are the second- and third-ranked causes.
	Alternatives []string `json:"alternatives,omitempty"`
}

// ImpactAssessment describes the blast radius of a classified error.
type ImpactAssessment struct {
	Immediate          string `json:"immediate"`
	CascadeRisk        string `json:"cascade_risk"`
	RecoveryComplexity string `json:"recovery_complexity"`
	DataIntegrityRisk  string `json:"data_integrity_risk"`
}

// RecoveryRecommendation is the strategy chain suggested for an error.
type RecoveryRecommendation struct {
	// PrimaryStrategy is the first strategy the orchestrator should run.
	PrimaryStrategy string `json:"primary_strategy"`

	// FallbackStrategies are tried in order after the primary fails.
	FallbackStrategies []string `json:"fallback_strategies,omitempty"`

	// EstimatedDuration is a rough upper bound on recovery time.
	EstimatedDuration time.Duration `json:"estimated_duration"`

	// SuccessProbability is an estimate in [0, 100].
	SuccessProbability int `json:"success_probability"`
}

// PreventionAdvice lists measures that would avoid recurrence.
type PreventionAdvice struct {
	Primary    string   `json:"primary"`
	Additional []string `json:"additional,omitempty"`
	Priority   string   `json:"priority"`
}

// ErrorAnalysis is the complete classification result for one error.
//
// An analysis is created once per Classify call and is immutable
// afterwards; it is appended to the engine's append-only history.
type ErrorAnalysis struct {
	// ID is a content hash of the message and stack prefix, so
	// byte-identical inputs produce the same ID.
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`

	ErrorDetails   ErrorDetails           `json:"error_details"`
	Classification Classification         `json:"classification"`
	Severity       SeverityAssessment     `json:"severity"`
	RootCause      RootCauseAssessment    `json:"root_cause"`
	Impact         ImpactAssessment       `json:"impact"`
	Recovery       RecoveryRecommendation `json:"recovery_recommendation"`
	Prevention     PreventionAdvice       `json:"prevention_strategies"`
}

// StrategyResult is the outcome reported by a single recovery strategy.
type StrategyResult struct {
	// Success reports whether the strategy resolved the error.
	Success bool `json:"success"`

	// Message is a human-readable outcome summary.
	Message string `json:"message"`

	// Details carries strategy-specific outcome data.
	Details map[string]any `json:"details,omitempty"`
}

// Attempt records one strategy invocation within a recovery session.
//
// Granularity: one Attempt corresponds to one strategy invocation. A
// strategy that retries internally (e.g. exponential backoff) still
// produces a single Attempt; its internal retry count is reported in
// Details.
type Attempt struct {
	Strategy   string         `json:"strategy"`
	StartTime  time.Time      `json:"start_time"`
	DurationMs int64          `json:"duration_ms"`
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

// RecoverySession is one end-to-end execution of a strategy chain.
//
// The orchestrator owns a session until it is finalized; afterwards it
// is transferred to history and must be treated as read-only.
type RecoverySession struct {
	SessionID          string          `json:"session_id"`
	ErrorID            string          `json:"error_id"`
	StartTime          time.Time       `json:"start_time"`
	EndTime            time.Time       `json:"end_time,omitzero"`
	PrimaryStrategy    string          `json:"primary_strategy"`
	FallbackStrategies []string        `json:"fallback_strategies,omitempty"`
	Status             SessionStatus   `json:"status"`
	Attempts           []Attempt       `json:"attempts"`
	FinalResult        *StrategyResult `json:"final_result,omitempty"`
}

// Duration returns the wall-clock length of a finalized session.
func (s *RecoverySession) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// RecoveryContext carries caller-defined hints into classification and
// recovery. Recognized keys include "operation" (used for user-impact
// scoring) and "resource" (circuit breaker partitioning); everything
// else is passed through to strategies untouched.
type RecoveryContext map[string]any

// StringValue returns the string stored under key, or "" if absent or
// of a different type.
func (c RecoveryContext) StringValue(key string) string {
	if c == nil {
		return ""
	}
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// BoolValue returns the bool stored under key, or false.
func (c RecoveryContext) BoolValue(key string) bool {
	if c == nil {
		return false
	}
	if v, ok := c[key].(bool); ok {
		return v
	}
	return false
}
