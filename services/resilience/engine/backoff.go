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
	"time"
)

// exponentialBackoffStrategy retries the original operation with
// geometrically growing waits: the wait before attempt k is
// BaseDelay * 2^(k-1). No jitter is applied, so the total wait when
// every attempt fails is exactly BaseDelay * (2^MaxAttempts - 1).
type exponentialBackoffStrategy struct {
	policy  BackoffPolicy
	actions RecoveryActions
	sleep   sleepFunc
}

func (s *exponentialBackoffStrategy) ID() string { return StrategyExponentialBackoff }

func (s *exponentialBackoffStrategy) Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult {
	var lastErr error
	delay := s.policy.BaseDelay

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if s.policy.MaxDelay > 0 && delay > s.policy.MaxDelay {
			delay = s.policy.MaxDelay
		}
		if err := s.sleep(ctx, delay); err != nil {
			return StrategyResult{
				Success: false,
				Message: "backoff interrupted: " + err.Error(),
				Details: map[string]any{"retries": attempt - 1},
			}
		}

		if err := s.actions.RetryOperation(ctx); err == nil {
			return StrategyResult{
				Success: true,
				Message: fmt.Sprintf("operation succeeded on retry %d", attempt),
				Details: map[string]any{"retries": attempt, "last_delay_ms": delay.Milliseconds()},
			}
		} else {
			lastErr = err
		}

		delay *= 2
	}

	return StrategyResult{
		Success: false,
		Message: fmt.Sprintf("all %d retries failed: %v", s.policy.MaxAttempts, lastErr),
		Details: map[string]any{"retries": s.policy.MaxAttempts},
	}
}

// linearRetryStrategy retries with linearly growing waits: the wait
// before attempt k is BaseDelay * k. Registered twice, as
// retry_with_backoff and as the generic basic_retry recommended for
// unclassified errors.
type linearRetryStrategy struct {
	id      string
	policy  LinearPolicy
	actions RecoveryActions
	sleep   sleepFunc
}

func (s *linearRetryStrategy) ID() string { return s.id }

func (s *linearRetryStrategy) Execute(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) StrategyResult {
	var lastErr error

	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		delay := time.Duration(attempt) * s.policy.BaseDelay
		if err := s.sleep(ctx, delay); err != nil {
			return StrategyResult{
				Success: false,
				Message: "backoff interrupted: " + err.Error(),
				Details: map[string]any{"retries": attempt - 1},
			}
		}

		if err := s.actions.RetryOperation(ctx); err == nil {
			return StrategyResult{
				Success: true,
				Message: fmt.Sprintf("operation succeeded on retry %d", attempt),
				Details: map[string]any{"retries": attempt},
			}
		} else {
			lastErr = err
		}
	}

	return StrategyResult{
		Success: false,
		Message: fmt.Sprintf("all %d retries failed: %v", s.policy.MaxAttempts, lastErr),
		Details: map[string]any{"retries": s.policy.MaxAttempts},
	}
}
