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
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// patternIDFormat matches valid pattern identifiers: snake_case,
// starting with a letter, max 64 characters. IDs end up in metric
// labels and archive keys, so the format is enforced at load time.
var patternIDFormat = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Config contains all resilience engine configuration.
//
// A zero-value Config is not usable; construct via DefaultConfig and
// override fields, or load from a YAML file with LoadConfig. The config
// is validated once at engine construction and treated as immutable
// afterwards, so multiple isolated engine instances can share it.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after
// the engine is constructed.
type Config struct {
	// Patterns is the failure signature table. Empty means defaults.
	Patterns []PatternConfig `json:"patterns" yaml:"patterns" validate:"dive"`

	// Scoring contains the severity and root-cause model tables.
	Scoring ScoringConfig `json:"scoring" yaml:"scoring"`

	// Recovery contains strategy policies and fallback chains.
	Recovery RecoveryConfig `json:"recovery" yaml:"recovery"`

	// History contains retention settings for in-memory history.
	History HistoryConfig `json:"history" yaml:"history"`
}

// PatternConfig declares one failure signature in the pattern table.
type PatternConfig struct {
	// ID uniquely identifies the pattern.
	ID string `json:"id" yaml:"id" validate:"required"`

	// Signatures are case-insensitive substrings matched against
	// message+stack. The match score is matched/len(Signatures), so
	// signatures within one pattern should co-occur in practice;
	// independent phrasings belong in separate patterns.
	Signatures []string `json:"signatures" yaml:"signatures" validate:"required,min=1,dive,required"`

	// Category is the taxonomy bucket this pattern maps to.
	Category Category `json:"category" yaml:"category" validate:"required"`

	// Severity is the pattern's base severity metadata.
	Severity Severity `json:"severity" yaml:"severity" validate:"required,oneof=critical high medium low"`

	// RecoveryStrategy is the primary strategy recommended on match.
	RecoveryStrategy string `json:"recovery_strategy" yaml:"recovery_strategy" validate:"required"`

	// PreventionStrategy names the measure that avoids recurrence.
	PreventionStrategy string `json:"prevention_strategy" yaml:"prevention_strategy" validate:"required"`
}

// ScoringConfig contains the weighted feature tables for severity and
// root-cause scoring. The tables are process-wide constants in spirit;
// they are carried on the config so tests can construct isolated
// engines with custom weights.
type ScoringConfig struct {
	// SeverityWeights are the weights for the four severity features,
	// in order: errorFrequency, impactScope, recoveryTime, userImpact.
	// They should sum to 1.0.
	SeverityWeights SeverityWeights `json:"severity_weights" yaml:"severity_weights"`

	// ImpactScope maps category to a fixed impact weight in [0, 1].
	ImpactScope map[Category]float64 `json:"impact_scope" yaml:"impact_scope"`

	// RecoveryTime maps category to a normalized recovery-time
	// estimate in [0, 1].
	RecoveryTime map[Category]float64 `json:"recovery_time" yaml:"recovery_time"`

	// UserFacingOperations lists context "operation" values treated as
	// user-facing for user-impact scoring.
	UserFacingOperations []string `json:"user_facing_operations" yaml:"user_facing_operations"`

	// RootCauseWeights maps each candidate cause to its weight vector
	// over the four root-cause features.
	RootCauseWeights map[string]RootCauseWeights `json:"root_cause_weights" yaml:"root_cause_weights"`
}

// SeverityWeights are the feature weights of the severity model.
type SeverityWeights struct {
	ErrorFrequency float64 `json:"error_frequency" yaml:"error_frequency" validate:"gte=0,lte=1"`
	ImpactScope    float64 `json:"impact_scope" yaml:"impact_scope" validate:"gte=0,lte=1"`
	RecoveryTime   float64 `json:"recovery_time" yaml:"recovery_time" validate:"gte=0,lte=1"`
	UserImpact     float64 `json:"user_impact" yaml:"user_impact" validate:"gte=0,lte=1"`
}

// RootCauseWeights is one cause's weight vector over the four
// root-cause features: errorContext, systemState, recentChanges,
// externalFactors.
type RootCauseWeights struct {
	ErrorContext    float64 `json:"error_context" yaml:"error_context" validate:"gte=0,lte=1"`
	SystemState     float64 `json:"system_state" yaml:"system_state" validate:"gte=0,lte=1"`
	RecentChanges   float64 `json:"recent_changes" yaml:"recent_changes" validate:"gte=0,lte=1"`
	ExternalFactors float64 `json:"external_factors" yaml:"external_factors" validate:"gte=0,lte=1"`
}

// RecoveryConfig contains strategy policies and the fallback chains.
type RecoveryConfig struct {
	// Backoff configures the exponential_backoff strategy.
	Backoff BackoffPolicy `json:"backoff" yaml:"backoff"`

	// Linear configures retry_with_backoff and basic_retry.
	Linear LinearPolicy `json:"linear" yaml:"linear"`

	// Breaker configures per-resource circuit breakers.
	Breaker BreakerPolicy `json:"breaker" yaml:"breaker"`

	// Degradation configures the graceful_degradation strategy.
	Degradation DegradationPolicy `json:"degradation" yaml:"degradation"`

	// Chains maps a primary strategy to its fixed fallback strategies,
	// tried in order after the primary fails.
	Chains map[string][]string `json:"chains" yaml:"chains"`
}

// BackoffPolicy configures exponential backoff retries.
//
// The wait before attempt k is BaseDelay * 2^(k-1), so the total wait
// before giving up after MaxAttempts is BaseDelay * (2^MaxAttempts - 1).
type BackoffPolicy struct {
	MaxAttempts int           `json:"max_attempts" yaml:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `json:"base_delay" yaml:"base_delay" validate:"gt=0"`
	MaxDelay    time.Duration `json:"max_delay" yaml:"max_delay"`
}

// LinearPolicy configures linear backoff retries: the wait before
// attempt k is BaseDelay * k.
type LinearPolicy struct {
	MaxAttempts int           `json:"max_attempts" yaml:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `json:"base_delay" yaml:"base_delay" validate:"gt=0"`
}

// BreakerPolicy configures the per-resource circuit breakers.
type BreakerPolicy struct {
	// FailureThreshold is consecutive failures before opening.
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold" validate:"gte=1"`

	// ResetTimeout is how long an open circuit waits before allowing
	// a half-open probe.
	ResetTimeout time.Duration `json:"reset_timeout" yaml:"reset_timeout" validate:"gt=0"`
}

// DegradationPolicy configures graceful degradation.
type DegradationPolicy struct {
	// NonCriticalFeatures are disabled progressively as the level
	// drops, in listed order.
	NonCriticalFeatures []string `json:"non_critical_features" yaml:"non_critical_features"`

	// SuccessesForRecovery is consecutive successes to restore one level.
	SuccessesForRecovery int `json:"successes_for_recovery" yaml:"successes_for_recovery" validate:"gte=1"`
}

// HistoryConfig contains retention settings for the in-memory history.
type HistoryConfig struct {
	// MaxEntries caps each history list; 0 means unbounded.
	MaxEntries int `json:"max_entries" yaml:"max_entries" validate:"gte=0"`
}

// DefaultConfig returns the complete default configuration: the
// built-in pattern table, the scoring tables, and the default strategy
// policies and fallback chains.
func DefaultConfig() Config {
	return Config{
		Patterns: DefaultPatterns(),
		Scoring: ScoringConfig{
			SeverityWeights: SeverityWeights{
				ErrorFrequency: 0.3,
				ImpactScope:    0.3,
				RecoveryTime:   0.2,
				UserImpact:     0.2,
			},
			ImpactScope: map[Category]float64{
				CategorySecurity:      0.9,
				CategoryDataIntegrity: 0.85,
				CategoryResources:     0.8,
				CategoryConnectivity:  0.7,
				CategoryAIProcessing:  0.6,
				CategoryAPIThrottling: 0.5,
				CategoryUnknown:       0.4,
			},
			RecoveryTime: map[Category]float64{
				CategoryDataIntegrity: 0.9,
				CategorySecurity:      0.8,
				CategoryResources:     0.7,
				CategoryConnectivity:  0.5,
				CategoryUnknown:       0.5,
				CategoryAIProcessing:  0.4,
				CategoryAPIThrottling: 0.3,
			},
			UserFacingOperations: []string{
				"content_generation",
				"post_generation",
				"profile_analysis",
				"interactive_session",
				"user_request",
			},
			RootCauseWeights: map[string]RootCauseWeights{
				CauseConfiguration: {ErrorContext: 0.2, SystemState: 0.1, RecentChanges: 0.6, ExternalFactors: 0.1},
				CauseResource:      {ErrorContext: 0.2, SystemState: 0.5, RecentChanges: 0.1, ExternalFactors: 0.2},
				CauseExternal:      {ErrorContext: 0.3, SystemState: 0.1, RecentChanges: 0.1, ExternalFactors: 0.5},
				CauseCodeBug:       {ErrorContext: 0.4, SystemState: 0.2, RecentChanges: 0.3, ExternalFactors: 0.1},
				CauseDataIssue:     {ErrorContext: 0.5, SystemState: 0.2, RecentChanges: 0.2, ExternalFactors: 0.1},
			},
		},
		Recovery: RecoveryConfig{
			Backoff: BackoffPolicy{
				MaxAttempts: 5,
				BaseDelay:   time.Second,
				MaxDelay:    30 * time.Second,
			},
			Linear: LinearPolicy{
				MaxAttempts: 3,
				BaseDelay:   time.Second,
			},
			Breaker: BreakerPolicy{
				FailureThreshold: 5,
				ResetTimeout:     30 * time.Second,
			},
			Degradation: DegradationPolicy{
				NonCriticalFeatures: []string{
					"media_enrichment",
					"hashtag_suggestions",
					"engagement_preview",
				},
				SuccessesForRecovery: 3,
			},
			Chains: DefaultChains(),
		},
		History: HistoryConfig{
			MaxEntries: 10000,
		},
	}
}

// DefaultChains returns the fixed fallback chain table. Chains are
// keyed by the primary strategy ID and list fallbacks in order.
func DefaultChains() map[string][]string {
	return map[string][]string{
		StrategyExponentialBackoff:  {StrategyRetryWithBackoff, StrategyCircuitBreaker},
		StrategyRetryWithBackoff:    {StrategyCircuitBreaker, StrategyGracefulDegradation},
		StrategyCredentialRefresh:   {StrategyFallbackAuth, StrategyManualIntervention},
		StrategyResourceCleanup:     {StrategyGracefulDegradation, StrategyManualIntervention},
		StrategyDataValidation:      {StrategyFallbackModel, StrategyManualIntervention},
		StrategyFallbackModel:       {StrategyGracefulDegradation, StrategyManualIntervention},
		StrategyCircuitBreaker:      {StrategyGracefulDegradation},
		StrategyGracefulDegradation: {StrategyManualIntervention},
		StrategyBasicRetry:          {StrategyManualIntervention},
	}
}

// LoadConfig reads a YAML config file and merges it over the defaults.
//
// Inputs:
//   - path: Path to a YAML file. The file may specify any subset of
//     fields; unspecified fields keep their defaults.
//
// Outputs:
//   - Config: The merged configuration.
//   - error: Non-nil if the file is unreadable or not valid YAML.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks structural validity of the configuration.
//
// Malformed configuration is a programmer error and must fail fast at
// engine construction, never at classification time.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	seen := make(map[string]struct{}, len(c.Patterns))
	for _, p := range c.Patterns {
		if !patternIDFormat.MatchString(p.ID) {
			return fmt.Errorf("%w: pattern id %q must be snake_case starting with a letter", ErrInvalidConfig, p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate pattern id %q", ErrInvalidConfig, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	w := c.Scoring.SeverityWeights
	sum := w.ErrorFrequency + w.ImpactScope + w.RecoveryTime + w.UserImpact
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("%w: severity weights sum to %.2f, want 1.0", ErrInvalidConfig, sum)
	}
	return nil
}
