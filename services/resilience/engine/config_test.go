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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestValidate_DuplicatePatternIDs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Patterns = append(cfg.Patterns, cfg.Patterns[0])

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate_SeverityWeightsMustSumToOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scoring.SeverityWeights = SeverityWeights{
		ErrorFrequency: 0.5,
		ImpactScope:    0.5,
		RecoveryTime:   0.5,
		UserImpact:     0.5,
	}

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig for weight sum 2.0", err)
	}
}

func TestValidate_PatternIDFormat(t *testing.T) {
	for _, id := range []string{"Rate_Limit", "429_errors", "has-dash", "has space", ""} {
		cfg := DefaultConfig()
		cfg.Patterns = append(cfg.Patterns, PatternConfig{
			ID:                 id,
			Signatures:         []string{"x"},
			Category:           CategoryConnectivity,
			Severity:           SeverityLow,
			RecoveryStrategy:   StrategyBasicRetry,
			PreventionStrategy: "none",
		})
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("id %q: error = %v, want ErrInvalidConfig", id, err)
		}
	}
}

func TestValidate_PatternMissingFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Patterns = append(cfg.Patterns, PatternConfig{
		ID:       "half_baked",
		Category: CategoryConnectivity,
	})

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig for missing signatures", err)
	}
}

func TestValidate_RejectsBadPolicies(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero backoff attempts", func(c *Config) { c.Recovery.Backoff.MaxAttempts = 0 }},
		{"zero base delay", func(c *Config) { c.Recovery.Backoff.BaseDelay = 0 }},
		{"zero breaker threshold", func(c *Config) { c.Recovery.Breaker.FailureThreshold = 0 }},
		{"zero reset timeout", func(c *Config) { c.Recovery.Breaker.ResetTimeout = 0 }},
		{"zero recovery successes", func(c *Config) { c.Recovery.Degradation.SuccessesForRecovery = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadConfig_MergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `recovery:
  backoff:
    max_attempts: 8
    base_delay: 2s
    max_delay: 1m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Recovery.Backoff.MaxAttempts != 8 {
		t.Errorf("MaxAttempts = %d, want 8 from file", cfg.Recovery.Backoff.MaxAttempts)
	}
	if cfg.Recovery.Backoff.BaseDelay != 2*time.Second {
		t.Errorf("BaseDelay = %v, want 2s from file", cfg.Recovery.Backoff.BaseDelay)
	}

	defaults := DefaultConfig()
	if cfg.Recovery.Breaker.FailureThreshold != defaults.Recovery.Breaker.FailureThreshold {
		t.Error("unset breaker threshold did not keep its default")
	}
	if len(cfg.Patterns) != len(defaults.Patterns) {
		t.Error("unset pattern table did not keep its default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("merged config invalid: %v", err)
	}
}

func TestLoadConfig_PatternsReplaceDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `patterns:
  - id: custom_failure
    signatures: ["custom backend down"]
    category: connectivity
    severity: high
    recovery_strategy: circuit_breaker
    prevention_strategy: redundancy
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Patterns) != 1 || cfg.Patterns[0].ID != "custom_failure" {
		t.Errorf("patterns = %+v, want the single file-declared pattern", cfg.Patterns)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig on missing file returned nil error")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("patterns: [\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig on malformed YAML returned nil error")
	}
}

func TestDefaultChains_CoverEveryStrategy(t *testing.T) {
	cfg := DefaultConfig()
	for primary, chain := range cfg.Recovery.Chains {
		if len(chain) == 0 && primary != StrategyManualIntervention {
			t.Errorf("strategy %s has no fallbacks", primary)
		}
		for _, fb := range chain {
			if fb == primary {
				t.Errorf("strategy %s lists itself as fallback", primary)
			}
		}
	}
	if _, ok := cfg.Recovery.Chains[StrategyExponentialBackoff]; !ok {
		t.Error("no chain for exponential_backoff")
	}
}
