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
	"fmt"

	"golang.org/x/sync/errgroup"
)

// credentialRefreshStrategy renews credentials, then retries the
// original operation once. Refresh and retry outcomes are reported
// independently in the details.
type credentialRefreshStrategy struct {
	actions RecoveryActions
}

func (s *credentialRefreshStrategy) ID() string { return StrategyCredentialRefresh }

func (s *credentialRefreshStrategy) Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult {
	if err := s.actions.RefreshCredentials(ctx); err != nil {
		return StrategyResult{
			Success: false,
			Message: "credential refresh failed: " + err.Error(),
			Details: map[string]any{"refresh_succeeded": false, "retry_attempted": false},
		}
	}

	if err := s.actions.RetryOperation(ctx); err != nil {
		return StrategyResult{
			Success: false,
			Message: "credentials refreshed but retry failed: " + err.Error(),
			Details: map[string]any{"refresh_succeeded": true, "retry_succeeded": false},
		}
	}

	return StrategyResult{
		Success: true,
		Message: "credentials refreshed and operation retried successfully",
		Details: map[string]any{"refresh_succeeded": true, "retry_succeeded": true},
	}
}

// fallbackAuthStrategy switches to a degraded authentication path and
// retries once. Tried after credential_refresh fails outright.
type fallbackAuthStrategy struct {
	actions RecoveryActions
}

func (s *fallbackAuthStrategy) ID() string { return StrategyFallbackAuth }

func (s *fallbackAuthStrategy) Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult {
	if err := s.actions.ProcessFallback(ctx, "fallback_auth"); err != nil {
		return StrategyResult{
			Success: false,
			Message: "fallback auth unavailable: " + err.Error(),
		}
	}
	if err := s.actions.RetryOperation(ctx); err != nil {
		return StrategyResult{
			Success: false,
			Message: "fallback auth engaged but retry failed: " + err.Error(),
			Details: map[string]any{"auth_mode": "fallback"},
		}
	}
	return StrategyResult{
		Success: true,
		Message: "operation succeeded with fallback authentication",
		Details: map[string]any{"auth_mode": "fallback"},
	}
}

// cleanupKinds are the independent sub-tasks run by resource_cleanup.
var cleanupKinds = []string{"memory", "cache", "temp_files", "connections"}

// resourceCleanupStrategy runs the cleanup sub-tasks concurrently and
// joins them before deciding. The original operation is retried only
// when more than half of the sub-tasks succeeded.
type resourceCleanupStrategy struct {
	actions RecoveryActions
}

func (s *resourceCleanupStrategy) ID() string { return StrategyResourceCleanup }

func (s *resourceCleanupStrategy) Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult {
	succeeded := make([]bool, len(cleanupKinds))

	// Fan out; sub-task failures are recorded, never propagated, so one
	// failing kind cannot cancel its siblings.
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range cleanupKinds {
		i, kind := i, kind
		g.Go(func() error {
			succeeded[i] = s.actions.CleanupResource(gctx, kind) == nil
			return nil
		})
	}
	_ = g.Wait()

	cleaned := 0
	perKind := make(map[string]any, len(cleanupKinds))
	for i, kind := range cleanupKinds {
		perKind[kind] = succeeded[i]
		if succeeded[i] {
			cleaned++
		}
	}
	details := map[string]any{
		"cleaned": cleaned,
		"total":   len(cleanupKinds),
		"tasks":   perKind,
	}

	if cleaned*2 <= len(cleanupKinds) {
		return StrategyResult{
			Success: false,
			Message: fmt.Sprintf("only %d of %d cleanup tasks succeeded, not retrying", cleaned, len(cleanupKinds)),
			Details: details,
		}
	}

	if err := s.actions.RetryOperation(ctx); err != nil {
		details["retry_succeeded"] = false
		return StrategyResult{
			Success: false,
			Message: "cleanup completed but retry failed: " + err.Error(),
			Details: details,
		}
	}

	details["retry_succeeded"] = true
	return StrategyResult{
		Success: true,
		Message: fmt.Sprintf("cleaned %d of %d resources and retried successfully", cleaned, len(cleanupKinds)),
		Details: details,
	}
}

// dataValidationStrategy validates data integrity, repairs the issues
// found, and retries the original operation after a successful repair.
type dataValidationStrategy struct {
	actions RecoveryActions
}

func (s *dataValidationStrategy) ID() string { return StrategyDataValidation }

func (s *dataValidationStrategy) Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult {
	issues, err := s.actions.ValidateData(ctx)
	if err != nil {
		return StrategyResult{
			Success: false,
			Message: "data validation failed: " + err.Error(),
		}
	}

	if len(issues) == 0 {
		return StrategyResult{
			Success: true,
			Message: "data validated, no integrity issues found",
			Details: map[string]any{"issues_found": 0},
		}
	}

	details := map[string]any{"issues_found": len(issues), "issues": issues}
	if err := s.actions.RepairData(ctx, issues); err != nil {
		details["repair_succeeded"] = false
		return StrategyResult{
			Success: false,
			Message: fmt.Sprintf("repair of %d issues failed: %v", len(issues), err),
			Details: details,
		}
	}
	details["repair_succeeded"] = true

	if err := s.actions.RetryOperation(ctx); err != nil {
		details["retry_succeeded"] = false
		return StrategyResult{
			Success: false,
			Message: "data repaired but retry failed: " + err.Error(),
			Details: details,
		}
	}
	details["retry_succeeded"] = true

	return StrategyResult{
		Success: true,
		Message: fmt.Sprintf("repaired %d issues and retried successfully", len(issues)),
		Details: details,
	}
}

// fallbackMethods are tried in order by fallback_model.
var fallbackMethods = []string{"cached_response", "template_generation"}

// fallbackModelStrategy switches to a degraded or cached processing
// path and reports the method used and the expected quality impact.
type fallbackModelStrategy struct {
	actions RecoveryActions
}

func (s *fallbackModelStrategy) ID() string { return StrategyFallbackModel }

func (s *fallbackModelStrategy) Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult {
	var lastErr error
	for _, method := range fallbackMethods {
		if err := s.actions.ProcessFallback(ctx, method); err != nil {
			lastErr = err
			continue
		}
		return StrategyResult{
			Success: true,
			Message: "processed via fallback path: " + method,
			Details: map[string]any{"method": method, "quality_impact": "reduced"},
		}
	}
	return StrategyResult{
		Success: false,
		Message: fmt.Sprintf("no fallback path available: %v", lastErr),
	}
}

// circuitBreakerStrategy consults the per-resource breaker. An open
// circuit rejects immediately without probing the operation; half-open
// performs exactly one probe whose outcome closes or reopens the
// circuit; a closed circuit is a pass-through.
type circuitBreakerStrategy struct {
	pool    *BreakerPool
	actions RecoveryActions
}

func (s *circuitBreakerStrategy) ID() string { return StrategyCircuitBreaker }

func (s *circuitBreakerStrategy) Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult {
	resource := rctx.StringValue("resource")
	cb := s.pool.Get(resource)

	switch cb.State() {
	case CircuitOpen:
		return StrategyResult{
			Success: false,
			Message: "circuit open, request rejected without retry",
			Details: map[string]any{"state": "open", "probe_attempted": false},
		}

	case CircuitHalfOpen:
		if err := s.actions.RetryOperation(ctx); err != nil {
			cb.RecordFailure()
			return StrategyResult{
				Success: false,
				Message: "half-open probe failed, circuit reopened: " + err.Error(),
				Details: map[string]any{"state": "open", "probe_attempted": true},
			}
		}
		cb.RecordSuccess()
		return StrategyResult{
			Success: true,
			Message: "half-open probe succeeded, circuit closed",
			Details: map[string]any{"state": "closed", "probe_attempted": true},
		}

	default: // closed
		return StrategyResult{
			Success: true,
			Message: "circuit closed, operation allowed through",
			Details: map[string]any{"state": "closed", "probe_attempted": false},
		}
	}
}

// manualInterventionStrategy is the terminal fallback: it never
// succeeds and exists so the session records that escalation to a human
// is required.
type manualInterventionStrategy struct{}

func (manualInterventionStrategy) ID() string { return StrategyManualIntervention }

func (manualInterventionStrategy) Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult {
	return StrategyResult{
		Success: false,
		Message: "manual intervention required",
		Details: map[string]any{"error_id": analysis.ID, "severity": string(analysis.Severity.Level)},
	}
}
