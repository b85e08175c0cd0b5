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
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// orchestrator runs recovery sessions: primary strategy first, then the
// fallbacks in recommendation order, stopping at the first success.
//
// The orchestrator owns a session until finalization; afterwards the
// session moves to history and is read-only. Each strategy invocation
// produces exactly one Attempt record, whether it succeeds, fails, or
// names an unregistered strategy.
//
// Thread Safety: Safe for concurrent use; independent sessions may run
// concurrently.
type orchestrator struct {
	catalog *RecoveryCatalog
	history *historyStore
	logger  *slog.Logger
	clock   func() time.Time
	metrics MetricsRecorder

	mu     sync.Mutex
	active map[string]*RecoverySession
}

func newOrchestrator(catalog *RecoveryCatalog, history *historyStore, logger *slog.Logger, clock func() time.Time, metrics MetricsRecorder) *orchestrator {
	return &orchestrator{
		catalog: catalog,
		history: history,
		logger:  logger,
		clock:   clock,
		metrics: metrics,
		active:  make(map[string]*RecoverySession),
	}
}

// recover executes the strategy chain for one classified error.
//
// The default background context preserves run-to-completion semantics.
// A caller-supplied deadline is honored between attempts only: a
// strategy that has started always runs to its own completion.
func (o *orchestrator) recover(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) RecoverySession {
	ctx, span := otel.Tracer("resilience").Start(ctx, "engine.Orchestrator.Recover",
		trace.WithAttributes(attribute.String("error_id", analysis.ID)),
	)
	defer span.End()

	session := &RecoverySession{
		SessionID:          uuid.NewString(),
		ErrorID:            analysis.ID,
		StartTime:          o.clock(),
		PrimaryStrategy:    analysis.Recovery.PrimaryStrategy,
		FallbackStrategies: append([]string(nil), analysis.Recovery.FallbackStrategies...),
		Status:             StatusInProgress,
	}

	o.mu.Lock()
	o.active[session.SessionID] = session
	o.mu.Unlock()

	log := o.logger.With("session_id", session.SessionID, "error_id", analysis.ID)
	log.Info("recovery session started",
		"primary_strategy", session.PrimaryStrategy,
		"fallbacks", len(session.FallbackStrategies),
	)

	chain := append([]string{session.PrimaryStrategy}, session.FallbackStrategies...)

	for _, id := range chain {
		if err := ctx.Err(); err != nil {
			log.Warn("recovery aborted between attempts", "error", err)
			// A failed session always carries at least one attempt. An
			// abort before the first strategy ever ran is a setup fault,
			// not an orderly failure.
			status := StatusFailed
			if len(session.Attempts) == 0 {
				status = StatusError
			}
			return o.finalize(ctx, session, status, &StrategyResult{
				Success: false,
				Message: "recovery aborted: " + err.Error(),
			})
		}

		attempt, panicked := o.executeStrategy(ctx, id, analysis, rctx)
		session.Attempts = append(session.Attempts, attempt)

		if o.metrics != nil {
			o.metrics.RecordAttempt(ctx, id, attempt.Success, time.Duration(attempt.DurationMs)*time.Millisecond)
		}

		if panicked {
			log.Error("recovery strategy panicked", "strategy", id, "message", attempt.Message)
			return o.finalize(ctx, session, StatusError, &StrategyResult{
				Success: false,
				Message: attempt.Message,
			})
		}

		if attempt.Success {
			log.Info("recovery succeeded", "strategy", id, "attempts", len(session.Attempts))
			return o.finalize(ctx, session, StatusSuccessful, &StrategyResult{
				Success: true,
				Message: attempt.Message,
				Details: attempt.Details,
			})
		}
		log.Warn("recovery strategy failed", "strategy", id, "message", attempt.Message)
	}

	return o.finalize(ctx, session, StatusFailed, &StrategyResult{
		Success: false,
		Message: fmt.Sprintf("all %d strategies exhausted", len(chain)),
	})
}

// executeStrategy runs one strategy and converts the outcome into an
// Attempt record. A panic escaping the strategy is recovered here and
// reported as a machinery fault rather than an orderly failure.
func (o *orchestrator) executeStrategy(ctx context.Context, id string, analysis ErrorAnalysis, rctx RecoveryContext) (attempt Attempt, panicked bool) {
	start := o.clock()
	attempt = Attempt{
		Strategy:  id,
		StartTime: start,
	}

	strategy, ok := o.catalog.Lookup(id)
	if !ok {
		attempt.DurationMs = o.clock().Sub(start).Milliseconds()
		attempt.Success = false
		attempt.Message = fmt.Sprintf("Unknown recovery strategy: %s", id)
		return attempt, false
	}

	defer func() {
		if r := recover(); r != nil {
			attempt.DurationMs = o.clock().Sub(start).Milliseconds()
			attempt.Success = false
			attempt.Message = fmt.Sprintf("strategy %s panicked: %v", id, r)
			panicked = true
		}
	}()

	result := strategy.Execute(ctx, analysis, rctx)
	attempt.DurationMs = o.clock().Sub(start).Milliseconds()
	attempt.Success = result.Success
	attempt.Message = result.Message
	attempt.Details = result.Details
	return attempt, false
}

// finalize assigns the terminal status exactly once, transfers the
// session to history, and returns a caller-owned copy.
func (o *orchestrator) finalize(ctx context.Context, session *RecoverySession, status SessionStatus, result *StrategyResult) RecoverySession {
	session.Status = status
	session.EndTime = o.clock()
	session.FinalResult = result

	o.mu.Lock()
	delete(o.active, session.SessionID)
	o.mu.Unlock()

	o.history.AppendSession(*session)

	if o.metrics != nil {
		o.metrics.RecordSession(ctx, string(status), session.Duration())
	}
	return *session
}

// activeSessions returns a snapshot of sessions still in progress.
func (o *orchestrator) activeSessions() []RecoverySession {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]RecoverySession, 0, len(o.active))
	for _, s := range o.active {
		out = append(out, *s)
	}
	return out
}
