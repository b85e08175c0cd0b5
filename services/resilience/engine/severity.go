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
	"time"
)

// severityModel computes the weighted severity score for an error.
//
// Four features, each normalized to [0, 1]:
//   - errorFrequency: identical messages seen in the last 24h / 10, capped
//   - impactScope: fixed per-category weight from the scoring table
//   - recoveryTime: fixed per-category estimate from the scoring table
//   - userImpact: 0.8 for user-facing operations, 0.3 otherwise
//
// The weighted sum is clamped to [0, 1] and mapped to a level through
// fixed thresholds (critical 0.8, high 0.6, medium 0.4, low below).
type severityModel struct {
	weights      SeverityWeights
	impactScope  map[Category]float64
	recoveryTime map[Category]float64
	userFacing   map[string]struct{}
}

func newSeverityModel(cfg ScoringConfig) *severityModel {
	userFacing := make(map[string]struct{}, len(cfg.UserFacingOperations))
	for _, op := range cfg.UserFacingOperations {
		userFacing[op] = struct{}{}
	}
	return &severityModel{
		weights:      cfg.SeverityWeights,
		impactScope:  cfg.ImpactScope,
		recoveryTime: cfg.RecoveryTime,
		userFacing:   userFacing,
	}
}

// frequencyCounter abstracts the history lookup the model needs.
type frequencyCounter interface {
	// CountMessagesSince returns how many analyses with this exact
	// message were recorded at or after the cutoff.
	CountMessagesSince(message string, cutoff time.Time) int
}

// assess runs the severity model. The frequency count includes the
// error currently being classified, so a first occurrence scores 1/10
// on the frequency feature.
func (m *severityModel) assess(category Category, message string, rctx RecoveryContext, history frequencyCounter, now time.Time) SeverityAssessment {
	frequency := float64(history.CountMessagesSince(message, now.Add(-24*time.Hour))+1) / 10.0
	if frequency > 1 {
		frequency = 1
	}

	scope, ok := m.impactScope[category]
	if !ok {
		scope = m.impactScope[CategoryUnknown]
	}
	recovery, ok := m.recoveryTime[category]
	if !ok {
		recovery = m.recoveryTime[CategoryUnknown]
	}

	userImpact := 0.3
	if _, ok := m.userFacing[rctx.StringValue("operation")]; ok {
		userImpact = 0.8
	}

	score := m.weights.ErrorFrequency*frequency +
		m.weights.ImpactScope*scope +
		m.weights.RecoveryTime*recovery +
		m.weights.UserImpact*userImpact
	score = clamp01(score)

	return SeverityAssessment{
		Level: severityLevel(score),
		Score: score * 100,
		Factors: []string{
			fmt.Sprintf("error_frequency=%.2f", frequency),
			fmt.Sprintf("impact_scope=%.2f", scope),
			fmt.Sprintf("recovery_time=%.2f", recovery),
			fmt.Sprintf("user_impact=%.2f", userImpact),
		},
	}
}

func severityLevel(score float64) Severity {
	switch {
	case score >= 0.8:
		return SeverityCritical
	case score >= 0.6:
		return SeverityHigh
	case score >= 0.4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
