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

import "sort"

// Root cause candidate categories.
const (
	CauseConfiguration = "configuration"
	CauseResource      = "resource"
	CauseExternal      = "external_service"
	CauseCodeBug       = "code_bug"
	CauseDataIssue     = "data_issue"
)

// rootCauseModel ranks candidate causes with per-cause weight vectors
// over four features: errorContext, systemState, recentChanges,
// externalFactors. Features are derived from the classification and the
// caller context only, never from accumulated history, so identical
// inputs rank identically.
type rootCauseModel struct {
	weights map[string]RootCauseWeights
}

func newRootCauseModel(cfg ScoringConfig) *rootCauseModel {
	return &rootCauseModel{weights: cfg.RootCauseWeights}
}

// rootCauseFeatures are the model inputs, each in [0, 1].
type rootCauseFeatures struct {
	errorContext    float64
	systemState     float64
	recentChanges   float64
	externalFactors float64
}

// deriveFeatures computes the feature vector for one classified error.
//
// errorContext follows the classification confidence: a confident
// pattern match means the message itself is informative. systemState
// and recentChanges come from caller hints; externalFactors is high for
// categories caused by systems we do not control.
func deriveFeatures(classification Classification, rctx RecoveryContext) rootCauseFeatures {
	f := rootCauseFeatures{
		errorContext:  classification.Confidence,
		systemState:   0.5,
		recentChanges: 0.2,
	}

	if rctx.BoolValue("degraded_system") {
		f.systemState = 0.9
	}
	if rctx.BoolValue("recent_deploy") {
		f.recentChanges = 0.9
	}

	switch classification.PrimaryCategory {
	case CategoryAPIThrottling, CategoryConnectivity, CategoryAIProcessing:
		f.externalFactors = 0.9
	case CategorySecurity:
		f.externalFactors = 0.6
	default:
		f.externalFactors = 0.3
	}
	return f
}

type causeScore struct {
	cause string
	score float64
}

// assess ranks all candidate causes and reports the top one with the
// next two as alternatives. Confidence is the winner's share of the
// total score mass, clamped to [0, 1].
func (m *rootCauseModel) assess(classification Classification, rctx RecoveryContext) RootCauseAssessment {
	f := deriveFeatures(classification, rctx)

	// Causes are scored in sorted key order. Summing in map order lets
	// float rounding drift between runs, and identical inputs must yield
	// identical confidences.
	causes := make([]string, 0, len(m.weights))
	for cause := range m.weights {
		causes = append(causes, cause)
	}
	sort.Strings(causes)

	scores := make([]causeScore, 0, len(causes))
	var total float64
	for _, cause := range causes {
		w := m.weights[cause]
		s := w.ErrorContext*f.errorContext +
			w.SystemState*f.systemState +
			w.RecentChanges*f.recentChanges +
			w.ExternalFactors*f.externalFactors
		scores = append(scores, causeScore{cause: cause, score: s})
		total += s
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].cause < scores[j].cause
	})

	if len(scores) == 0 {
		return RootCauseAssessment{PrimaryCause: CauseCodeBug, Confidence: 0.1}
	}

	confidence := 0.0
	if total > 0 {
		confidence = clamp01(scores[0].score / total)
	}

	var alternatives []string
	for _, s := range scores[1:] {
		alternatives = append(alternatives, s.cause)
		if len(alternatives) == 2 {
			break
		}
	}

	return RootCauseAssessment{
		PrimaryCause: scores[0].cause,
		Confidence:   confidence,
		Alternatives: alternatives,
	}
}
