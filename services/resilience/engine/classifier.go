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
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// stackPrefixLen is how much of the stack participates in the analysis
// ID hash and the stored stack prefix.
const stackPrefixLen = 200

// unknownConfidence is the confidence assigned when no pattern matches.
const unknownConfidence = 0.1

// classifier turns a raw error plus caller context into a structured
// ErrorAnalysis using pattern matching and the two scoring models.
//
// Classification never fails: missing fields get defaults and an
// unmatched error degrades to the "unknown" category with low
// confidence.
//
// Thread Safety: Safe for concurrent use.
type classifier struct {
	registry  *PatternRegistry
	severity  *severityModel
	rootCause *rootCauseModel
	chains    map[string][]string
	history   *historyStore
}

func newClassifier(cfg Config, registry *PatternRegistry, history *historyStore) *classifier {
	return &classifier{
		registry:  registry,
		severity:  newSeverityModel(cfg.Scoring),
		rootCause: newRootCauseModel(cfg.Scoring),
		chains:    cfg.Recovery.Chains,
		history:   history,
	}
}

// classify produces the analysis and performs the two side effects the
// data model requires: the matched pattern's occurrence bookkeeping and
// the history append.
func (c *classifier) classify(ctx context.Context, input ErrorInput, rctx RecoveryContext, now time.Time) ErrorAnalysis {
	_, span := otel.Tracer("resilience").Start(ctx, "engine.Classifier.Classify",
		trace.WithAttributes(
			attribute.Int("message_length", len(input.Message)),
		),
	)
	defer span.End()

	details := normalizeInput(input)

	matches := c.registry.Match(details.Message, details.StackPrefix)
	classification := buildClassification(matches)

	severity := c.severity.assess(classification.PrimaryCategory, details.Message, rctx, c.history, now)
	rootCause := c.rootCause.assess(classification, rctx)

	var recommendation RecoveryRecommendation
	var prevention PreventionAdvice
	if len(matches) > 0 {
		winner := matches[0].Pattern
		// The pattern's declared severity is a floor: the weighted model
		// can raise it but never rank a known-severe pattern below it.
		if winner.Severity.rank() > severity.Level.rank() {
			severity.Level = winner.Severity
			severity.Factors = append(severity.Factors, "pattern_floor="+string(winner.Severity))
		}
		recommendation = c.recommend(winner.RecoveryStrategy)
		prevention = buildPrevention(winner, severity.Level)
		c.registry.RecordOccurrence(winner.ID, now)
	} else {
		recommendation = RecoveryRecommendation{
			PrimaryStrategy:    StrategyBasicRetry,
			FallbackStrategies: []string{StrategyManualIntervention},
			EstimatedDuration:  strategyDuration(StrategyBasicRetry),
			SuccessProbability: 60,
		}
		prevention = PreventionAdvice{
			Primary:  "improve_error_reporting",
			Priority: priorityFor(severity.Level),
		}
	}

	analysis := ErrorAnalysis{
		ID:             analysisID(details),
		Timestamp:      now,
		ErrorDetails:   details,
		Classification: classification,
		Severity:       severity,
		RootCause:      rootCause,
		Impact:         buildImpact(classification.PrimaryCategory, severity.Level, recommendation.PrimaryStrategy),
		Recovery:       recommendation,
		Prevention:     prevention,
	}

	c.history.AppendAnalysis(analysis)

	span.SetAttributes(
		attribute.String("category", string(classification.PrimaryCategory)),
		attribute.String("severity", string(severity.Level)),
		attribute.Float64("confidence", classification.Confidence),
	)
	return analysis
}

// normalizeInput applies the defaulting rules: classification never
// throws for malformed or empty inputs.
func normalizeInput(input ErrorInput) ErrorDetails {
	details := ErrorDetails{
		Message: input.Message,
		Type:    input.Type,
		Code:    input.Code,
		Status:  input.Status,
	}
	if details.Type == "" {
		details.Type = "Error"
	}
	if len(input.Stack) > stackPrefixLen {
		details.StackPrefix = input.Stack[:stackPrefixLen]
	} else {
		details.StackPrefix = input.Stack
	}
	return details
}

// analysisID is a content hash over the message and stack prefix, so
// byte-identical inputs map to the same ID.
func analysisID(details ErrorDetails) string {
	sum := sha256.Sum256([]byte(details.Message + "\n" + details.StackPrefix))
	return hex.EncodeToString(sum[:8])
}

// buildClassification converts scored matches into the classification
// block: best match wins, next two become secondary categories.
func buildClassification(matches []PatternMatch) Classification {
	if len(matches) == 0 {
		return Classification{
			PrimaryCategory: CategoryUnknown,
			Confidence:      unknownConfidence,
		}
	}

	cls := Classification{
		PrimaryCategory: matches[0].Pattern.Category,
		Confidence:      matches[0].Score,
		MatchedPattern:  matches[0].Pattern.ID,
	}
	for _, m := range matches[1:] {
		if m.Pattern.Category == cls.PrimaryCategory {
			continue
		}
		cls.SecondaryCategories = append(cls.SecondaryCategories, m.Pattern.Category)
		if len(cls.SecondaryCategories) == 2 {
			break
		}
	}
	return cls
}

func (c *classifier) recommend(primary string) RecoveryRecommendation {
	return RecoveryRecommendation{
		PrimaryStrategy:    primary,
		FallbackStrategies: append([]string(nil), c.chains[primary]...),
		EstimatedDuration:  strategyDuration(primary),
		SuccessProbability: strategySuccessProbability(primary),
	}
}

func buildPrevention(pattern ErrorPattern, level Severity) PreventionAdvice {
	return PreventionAdvice{
		Primary:    pattern.PreventionStrategy,
		Additional: additionalPrevention[pattern.Category],
		Priority:   priorityFor(level),
	}
}

func priorityFor(level Severity) string {
	switch level {
	case SeverityCritical, SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	default:
		return "low"
	}
}

// buildImpact derives the impact block from category and severity.
func buildImpact(category Category, level Severity, strategy string) ImpactAssessment {
	impact := ImpactAssessment{
		Immediate:          "operation failed",
		CascadeRisk:        "low",
		RecoveryComplexity: "low",
		DataIntegrityRisk:  "low",
	}

	switch category {
	case CategoryConnectivity, CategoryResources:
		impact.CascadeRisk = "high"
		impact.Immediate = "dependent operations likely affected"
	case CategoryAPIThrottling:
		impact.CascadeRisk = "medium"
		impact.Immediate = "requests rejected until limits reset"
	case CategorySecurity:
		impact.Immediate = "authenticated operations blocked"
		impact.DataIntegrityRisk = "medium"
	case CategoryDataIntegrity:
		impact.DataIntegrityRisk = "high"
		impact.Immediate = "stored or in-flight data may be unreliable"
	}

	switch strategy {
	case StrategyDataValidation, StrategyResourceCleanup:
		impact.RecoveryComplexity = "high"
	case StrategyCredentialRefresh, StrategyCircuitBreaker:
		impact.RecoveryComplexity = "medium"
	}
	if level == SeverityCritical {
		impact.RecoveryComplexity = "high"
	}
	return impact
}

// additionalPrevention lists per-category secondary prevention measures.
var additionalPrevention = map[Category][]string{
	CategoryAPIThrottling: {"request_batching", "response_caching"},
	CategorySecurity:      {"least_privilege_review", "secret_scanning"},
	CategoryConnectivity:  {"retry_budgets", "regional_failover"},
	CategoryResources:     {"resource_quotas", "load_shedding"},
	CategoryDataIntegrity: {"write_ahead_validation", "backup_verification"},
	CategoryAIProcessing:  {"prompt_linting", "output_validation"},
}

// strategyDuration is the rough recovery-time estimate surfaced in the
// recommendation block.
func strategyDuration(strategy string) time.Duration {
	switch strategy {
	case StrategyExponentialBackoff:
		return 2 * time.Minute
	case StrategyRetryWithBackoff, StrategyBasicRetry, StrategyCircuitBreaker:
		return 30 * time.Second
	case StrategyCredentialRefresh:
		return 15 * time.Second
	case StrategyResourceCleanup:
		return time.Minute
	case StrategyDataValidation:
		return 2 * time.Minute
	case StrategyFallbackModel:
		return 10 * time.Second
	case StrategyGracefulDegradation:
		return 5 * time.Second
	case StrategyManualIntervention:
		return 30 * time.Minute
	default:
		return time.Minute
	}
}

func strategySuccessProbability(strategy string) int {
	switch strategy {
	case StrategyExponentialBackoff:
		return 85
	case StrategyRetryWithBackoff:
		return 75
	case StrategyCredentialRefresh:
		return 80
	case StrategyResourceCleanup:
		return 70
	case StrategyDataValidation:
		return 65
	case StrategyFallbackModel:
		return 90
	case StrategyCircuitBreaker:
		return 50
	case StrategyGracefulDegradation:
		return 95
	case StrategyBasicRetry:
		return 60
	case StrategyManualIntervention:
		return 99
	default:
		return 50
	}
}
