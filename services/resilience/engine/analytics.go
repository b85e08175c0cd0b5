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
	"sort"
	"strconv"
	"strings"
	"time"
)

// MessageCount is one entry in the most-frequent-errors list.
type MessageCount struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// StrategyStats is the per-strategy effectiveness breakdown, counted
// over Attempt records.
type StrategyStats struct {
	Uses        int     `json:"uses"`
	Successes   int     `json:"successes"`
	Failures    int     `json:"failures"`
	SuccessRate float64 `json:"success_rate"`
}

// ErrorAnalyticsReport aggregates classification history over a window.
type ErrorAnalyticsReport struct {
	Window               string             `json:"window"`
	WindowHours          float64            `json:"window_hours"`
	GeneratedAt          time.Time          `json:"generated_at"`
	TotalErrors          int                `json:"total_errors"`
	ErrorRatePerHour     float64            `json:"error_rate_per_hour"`
	SeverityDistribution map[Severity]int   `json:"severity_distribution"`
	CategoryBreakdown    map[Category]int   `json:"category_breakdown"`
	TopErrors            []MessageCount     `json:"top_errors"`
	Health               []HealthSnapshot   `json:"health,omitempty"`
	Recommendations      []string           `json:"recommendations,omitempty"`
}

// RecoveryAnalyticsReport aggregates recovery history over a window.
type RecoveryAnalyticsReport struct {
	Window                string                   `json:"window"`
	GeneratedAt           time.Time                `json:"generated_at"`
	TotalSessions         int                      `json:"total_sessions"`
	SuccessfulSessions    int                      `json:"successful_sessions"`
	SuccessRate           float64                  `json:"success_rate"`
	StrategyEffectiveness map[string]StrategyStats `json:"strategy_effectiveness"`
	TopFailingStrategies  []MessageCount           `json:"top_failing_strategies"`
	Recommendations       []string                 `json:"recommendations,omitempty"`
}

// analyticsAggregator computes rates, distributions, and
// recommendations from accumulated history.
//
// All rates over an empty window are 0, never NaN.
type analyticsAggregator struct {
	history *historyStore
	health  *HealthRegistry
	clock   func() time.Time
}

func newAnalyticsAggregator(history *historyStore, health *HealthRegistry, clock func() time.Time) *analyticsAggregator {
	return &analyticsAggregator{history: history, health: health, clock: clock}
}

// parseWindow accepts "24h", "7d", "1w" style windows. Hours, days, and
// weeks are supported; anything else is ErrInvalidWindow.
func parseWindow(window string) (time.Duration, error) {
	w := strings.TrimSpace(strings.ToLower(window))
	if len(w) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, window)
	}

	unit := w[len(w)-1]
	n, err := strconv.Atoi(w[:len(w)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, window)
	}

	switch unit {
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, window)
	}
}

// errorReport computes the error analytics for the window.
func (a *analyticsAggregator) errorReport(window string) (ErrorAnalyticsReport, error) {
	dur, err := parseWindow(window)
	if err != nil {
		return ErrorAnalyticsReport{}, err
	}

	now := a.clock()
	analyses := a.history.AnalysesSince(now.Add(-dur))

	report := ErrorAnalyticsReport{
		Window:               window,
		WindowHours:          dur.Hours(),
		GeneratedAt:          now,
		TotalErrors:          len(analyses),
		SeverityDistribution: make(map[Severity]int),
		CategoryBreakdown:    make(map[Category]int),
	}
	if dur.Hours() > 0 {
		report.ErrorRatePerHour = float64(len(analyses)) / dur.Hours()
	}

	messageCounts := make(map[string]int)
	for _, an := range analyses {
		report.SeverityDistribution[an.Severity.Level]++
		report.CategoryBreakdown[an.Classification.PrimaryCategory]++
		messageCounts[an.ErrorDetails.Message]++
	}
	report.TopErrors = topCounts(messageCounts, 10)

	if a.health != nil {
		report.Health = a.health.Snapshots()
	}
	report.Recommendations = errorRecommendations(report)
	return report, nil
}

// recoveryReport computes the recovery analytics for the window.
func (a *analyticsAggregator) recoveryReport(window string) (RecoveryAnalyticsReport, error) {
	dur, err := parseWindow(window)
	if err != nil {
		return RecoveryAnalyticsReport{}, err
	}

	now := a.clock()
	sessions := a.history.SessionsSince(now.Add(-dur))

	report := RecoveryAnalyticsReport{
		Window:                window,
		GeneratedAt:           now,
		TotalSessions:         len(sessions),
		StrategyEffectiveness: make(map[string]StrategyStats),
	}

	failures := make(map[string]int)
	for _, s := range sessions {
		if s.Status == StatusSuccessful {
			report.SuccessfulSessions++
		}
		for _, at := range s.Attempts {
			stats := report.StrategyEffectiveness[at.Strategy]
			stats.Uses++
			if at.Success {
				stats.Successes++
			} else {
				stats.Failures++
				failures[at.Strategy]++
			}
			report.StrategyEffectiveness[at.Strategy] = stats
		}
	}

	for id, stats := range report.StrategyEffectiveness {
		if stats.Uses > 0 {
			stats.SuccessRate = float64(stats.Successes) / float64(stats.Uses)
		}
		report.StrategyEffectiveness[id] = stats
	}
	if report.TotalSessions > 0 {
		report.SuccessRate = float64(report.SuccessfulSessions) / float64(report.TotalSessions)
	}
	report.TopFailingStrategies = topCounts(failures, 5)
	report.Recommendations = recoveryRecommendations(report)
	return report, nil
}

// topCounts returns the n most frequent entries, ties broken
// alphabetically for determinism.
func topCounts(counts map[string]int, n int) []MessageCount {
	out := make([]MessageCount, 0, len(counts))
	for msg, count := range counts {
		out = append(out, MessageCount{Message: msg, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Message < out[j].Message
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func errorRecommendations(r ErrorAnalyticsReport) []string {
	var recs []string
	if r.TotalErrors == 0 {
		return recs
	}
	if r.SeverityDistribution[SeverityCritical] > 0 {
		recs = append(recs, fmt.Sprintf("%d critical errors in window, review before next deploy", r.SeverityDistribution[SeverityCritical]))
	}
	if n := r.CategoryBreakdown[CategoryAPIThrottling]; n > r.TotalErrors/2 {
		recs = append(recs, "majority of errors are throttling, consider request batching or rate limiting")
	}
	if n := r.CategoryBreakdown[CategoryUnknown]; n > r.TotalErrors/4 {
		recs = append(recs, "over a quarter of errors are unclassified, extend the pattern table")
	}
	return recs
}

func recoveryRecommendations(r RecoveryAnalyticsReport) []string {
	var recs []string
	if r.TotalSessions == 0 {
		return recs
	}
	if r.SuccessRate < 0.5 {
		recs = append(recs, fmt.Sprintf("recovery success rate %.0f%%, review fallback chains", r.SuccessRate*100))
	}
	for id, stats := range r.StrategyEffectiveness {
		if stats.Uses >= 5 && stats.SuccessRate < 0.2 {
			recs = append(recs, fmt.Sprintf("strategy %s succeeds in %.0f%% of uses, consider demoting it in the chain", id, stats.SuccessRate*100))
		}
	}
	sort.Strings(recs)
	return recs
}
