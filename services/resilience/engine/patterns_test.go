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
	"testing"
	"time"
)

func TestPatternRegistry_Match(t *testing.T) {
	registry := NewPatternRegistry([]PatternConfig{
		{ID: "a", Signatures: []string{"alpha", "beta"}, Category: CategoryConnectivity,
			Severity: SeverityMedium, RecoveryStrategy: StrategyRetryWithBackoff, PreventionStrategy: "x"},
		{ID: "b", Signatures: []string{"alpha"}, Category: CategoryResources,
			Severity: SeverityHigh, RecoveryStrategy: StrategyResourceCleanup, PreventionStrategy: "x"},
	})

	tests := []struct {
		name      string
		message   string
		wantIDs   []string
		wantFirst float64
	}{
		{
			name:      "full match outranks partial",
			message:   "alpha and beta failed",
			wantIDs:   []string{"a", "b"}, // both score 1.0; tie breaks by ID
			wantFirst: 1.0,
		},
		{
			name:      "half match is excluded",
			message:   "beta only",
			wantIDs:   []string{}, // a scores 1/2 = 0.5, not > 0.5
			wantFirst: 0,
		},
		{
			name:      "single signature clears threshold",
			message:   "alpha only",
			wantIDs:   []string{"b"},
			wantFirst: 1.0,
		},
		{
			name:    "no match",
			message: "gamma",
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := registry.Match(tt.message, "")
			if len(matches) != len(tt.wantIDs) {
				t.Fatalf("got %d matches, want %d", len(matches), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if matches[i].Pattern.ID != want {
					t.Errorf("match[%d] = %s, want %s", i, matches[i].Pattern.ID, want)
				}
			}
			if len(matches) > 0 && matches[0].Score != tt.wantFirst {
				t.Errorf("top score = %v, want %v", matches[0].Score, tt.wantFirst)
			}
		})
	}
}

func TestPatternRegistry_MatchIsCaseInsensitive(t *testing.T) {
	registry := NewPatternRegistry(DefaultPatterns())

	matches := registry.Match("Rate Limit Exceeded", "")
	if len(matches) == 0 {
		t.Fatal("expected a match for mixed-case message")
	}
	if matches[0].Pattern.ID != "rate_limit" {
		t.Errorf("top match = %s, want rate_limit", matches[0].Pattern.ID)
	}
}

func TestPatternRegistry_MatchIncludesStack(t *testing.T) {
	registry := NewPatternRegistry(DefaultPatterns())

	matches := registry.Match("request failed", "goroutine 1: net.Dial: connection refused")
	if len(matches) == 0 {
		t.Fatal("expected a match from the stack prefix")
	}
	if matches[0].Pattern.Category != CategoryConnectivity {
		t.Errorf("category = %s, want connectivity", matches[0].Pattern.Category)
	}
}

func TestPatternRegistry_TieBreakByID(t *testing.T) {
	registry := NewPatternRegistry(DefaultPatterns())

	// Matches both http_429 and too_many_requests with score 1.0.
	matches := registry.Match("429 too many requests", "")
	if len(matches) < 2 {
		t.Fatalf("expected at least 2 matches, got %d", len(matches))
	}
	if matches[0].Pattern.ID != "http_429" {
		t.Errorf("tie should break alphabetically, got %s first", matches[0].Pattern.ID)
	}
}

func TestPatternRegistry_RecordOccurrence(t *testing.T) {
	registry := NewPatternRegistry(DefaultPatterns())
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	registry.RecordOccurrence("rate_limit", now)
	registry.RecordOccurrence("rate_limit", now.Add(time.Minute))

	var found bool
	for _, p := range registry.Snapshot() {
		if p.ID != "rate_limit" {
			continue
		}
		found = true
		if p.Occurrences != 2 {
			t.Errorf("Occurrences = %d, want 2", p.Occurrences)
		}
		if !p.LastSeen.Equal(now.Add(time.Minute)) {
			t.Errorf("LastSeen = %v, want %v", p.LastSeen, now.Add(time.Minute))
		}
	}
	if !found {
		t.Fatal("rate_limit pattern missing from snapshot")
	}
}

func TestPatternRegistry_ReplacePreservesCounters(t *testing.T) {
	registry := NewPatternRegistry(DefaultPatterns())
	now := time.Now()
	registry.RecordOccurrence("rate_limit", now)

	// Replace with a table that keeps rate_limit but changes its
	// strategy, and drops everything else.
	registry.Replace([]PatternConfig{
		{ID: "rate_limit", Signatures: []string{"rate limit"}, Category: CategoryAPIThrottling,
			Severity: SeverityLow, RecoveryStrategy: StrategyBasicRetry, PreventionStrategy: "x"},
	})

	snapshot := registry.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("got %d patterns after replace, want 1", len(snapshot))
	}
	p := snapshot[0]
	if p.Occurrences != 1 {
		t.Errorf("Occurrences = %d, want 1 (preserved across replace)", p.Occurrences)
	}
	if p.RecoveryStrategy != StrategyBasicRetry {
		t.Errorf("RecoveryStrategy = %s, want %s", p.RecoveryStrategy, StrategyBasicRetry)
	}
}

func TestPatternRegistry_SnapshotIsACopy(t *testing.T) {
	registry := NewPatternRegistry(DefaultPatterns())

	snap := registry.Snapshot()
	snap[0].Occurrences = 999
	snap[0].Signatures[0] = "mutated"

	again := registry.Snapshot()
	if again[0].Occurrences == 999 {
		t.Error("mutating a snapshot must not affect the registry")
	}
	if again[0].Signatures[0] == "mutated" {
		t.Error("snapshot signatures must be copies")
	}
}

func TestDefaultPatterns_AllCategoriesCovered(t *testing.T) {
	want := map[Category]bool{
		CategoryAPIThrottling: false,
		CategorySecurity:      false,
		CategoryConnectivity:  false,
		CategoryResources:     false,
		CategoryDataIntegrity: false,
		CategoryAIProcessing:  false,
	}
	for _, p := range DefaultPatterns() {
		want[p.Category] = true
	}
	for cat, covered := range want {
		if !covered {
			t.Errorf("default patterns cover no %s errors", cat)
		}
	}
}
