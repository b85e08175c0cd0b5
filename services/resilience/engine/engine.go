// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine classifies errors, orchestrates recovery, and
// aggregates resilience analytics.
//
// # Description
//
// The Engine is the single entry point: Classify turns a raw error into
// a structured analysis with a recovery recommendation, Recover runs
// the recommended strategy chain, and the analytics methods report over
// the accumulated history. All state lives in memory; an optional
// HistoryArchive persists finished analyses and sessions.
package engine

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// MetricsRecorder receives engine telemetry. Implementations must be
// safe for concurrent use.
type MetricsRecorder interface {
	// RecordClassification counts one classified error.
	RecordClassification(ctx context.Context, category, severity string, duration time.Duration)

	// RecordSession counts one finalized recovery session.
	RecordSession(ctx context.Context, status string, duration time.Duration)

	// RecordAttempt counts one strategy attempt.
	RecordAttempt(ctx context.Context, strategy string, success bool, duration time.Duration)
}

// nopMetrics is the default recorder when no telemetry is wired.
type nopMetrics struct{}

func (nopMetrics) RecordClassification(context.Context, string, string, time.Duration) {}
func (nopMetrics) RecordSession(context.Context, string, time.Duration)                {}
func (nopMetrics) RecordAttempt(context.Context, string, bool, time.Duration)          {}

// HistoryArchive persists finished analyses and sessions. Archive
// failures are logged and never fail the operation that produced the
// record.
type HistoryArchive interface {
	SaveAnalysis(ctx context.Context, analysis ErrorAnalysis) error
	SaveSession(ctx context.Context, session RecoverySession) error
}

// Engine is the resilience facade.
//
// # Thread Safety
//
// Safe for concurrent use. Classifications and recoveries from multiple
// goroutines interleave safely; analytics reads see a consistent
// snapshot of history.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	clock  func() time.Time

	registry     *PatternRegistry
	classifier   *classifier
	orchestrator *orchestrator
	catalog      *RecoveryCatalog
	breakers     *BreakerPool
	degradation  *DegradationManager
	history      *historyStore
	health       *HealthRegistry
	analytics    *analyticsAggregator
	metrics      MetricsRecorder
	archive      HistoryArchive
	watcher      *PatternWatcher

	actions RecoveryActions
	sleep   sleepFunc
}

// Option customizes Engine construction.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithActions sets the side-effect hooks strategies call into.
// Defaults to NoopActions.
func WithActions(actions RecoveryActions) Option {
	return func(e *Engine) { e.actions = actions }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithMetrics wires a telemetry recorder.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// WithArchive wires a persistent history archive.
func WithArchive(archive HistoryArchive) Option {
	return func(e *Engine) { e.archive = archive }
}

// WithSleep overrides how retry strategies wait between attempts, for
// tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// New builds an Engine from the config. The config is validated first;
// an invalid config fails construction rather than surfacing later.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		logger:  slog.Default(),
		clock:   time.Now,
		metrics: nopMetrics{},
		actions: NoopActions{},
		sleep:   defaultSleep,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.registry = NewPatternRegistry(cfg.Patterns)
	e.history = newHistoryStore(cfg.History)
	e.health = NewHealthRegistry()
	e.classifier = newClassifier(cfg, e.registry, e.history)
	e.breakers = NewBreakerPool(cfg.Recovery.Breaker, e.clock)
	e.degradation = NewDegradationManager(cfg.Recovery.Degradation)
	e.catalog = newDefaultCatalog(cfg.Recovery, e.actions, e.breakers, e.degradation, e.sleep)
	e.orchestrator = newOrchestrator(e.catalog, e.history, e.logger, e.clock, e.metrics)
	e.analytics = newAnalyticsAggregator(e.history, e.health, e.clock)

	return e, nil
}

// Classify analyzes one error and records it in history.
//
// # Inputs
//
//   - ctx: Carries the trace span and cancellation.
//   - input: The raw error. Only Message is required.
//   - rctx: Operation context; nil is treated as empty.
//
// # Outputs
//
//   - ErrorAnalysis: The full analysis, including the recovery
//     recommendation Recover consumes.
func (e *Engine) Classify(ctx context.Context, input ErrorInput, rctx RecoveryContext) ErrorAnalysis {
	start := e.clock()
	analysis := e.classifier.classify(ctx, input, rctx, start)
	e.metrics.RecordClassification(ctx, string(analysis.Classification.PrimaryCategory), string(analysis.Severity.Level), e.clock().Sub(start))

	if e.archive != nil {
		if err := e.archive.SaveAnalysis(ctx, analysis); err != nil {
			e.logger.Warn("failed to archive analysis", "analysis_id", analysis.ID, "error", err)
		}
	}
	return analysis
}

// Recover runs the recommended strategy chain for a classified error
// and returns the finalized session.
func (e *Engine) Recover(ctx context.Context, analysis ErrorAnalysis, rctx RecoveryContext) RecoverySession {
	session := e.orchestrator.recover(ctx, analysis, rctx)

	if e.archive != nil {
		if err := e.archive.SaveSession(ctx, session); err != nil {
			e.logger.Warn("failed to archive session", "session_id", session.SessionID, "error", err)
		}
	}
	return session
}

// Handle classifies the error and immediately runs recovery for it.
func (e *Engine) Handle(ctx context.Context, input ErrorInput, rctx RecoveryContext) (ErrorAnalysis, RecoverySession) {
	analysis := e.Classify(ctx, input, rctx)
	return analysis, e.Recover(ctx, analysis, rctx)
}

// GetErrorAnalytics reports classification analytics over the window,
// e.g. "24h", "7d", "1w".
func (e *Engine) GetErrorAnalytics(window string) (ErrorAnalyticsReport, error) {
	return e.analytics.errorReport(window)
}

// GetRecoveryAnalytics reports recovery analytics over the window.
func (e *Engine) GetRecoveryAnalytics(window string) (RecoveryAnalyticsReport, error) {
	return e.analytics.recoveryReport(window)
}

// UpdateHealthMetric records a sample for the named health metric and
// returns its state after the update.
func (e *Engine) UpdateHealthMetric(name string, value, warning, critical float64) HealthSnapshot {
	return e.health.Update(name, value, warning, critical, e.clock())
}

// ActiveSessions returns snapshots of recoveries currently in flight.
func (e *Engine) ActiveSessions() []RecoverySession {
	return e.orchestrator.activeSessions()
}

// Patterns returns the registered error patterns with their occurrence
// counters.
func (e *Engine) Patterns() []ErrorPattern {
	return e.registry.Snapshot()
}

// Breakers returns the state of every circuit breaker created so far.
func (e *Engine) Breakers() map[string]CircuitBreakerState {
	return e.breakers.States()
}

// ExportHistory writes the accumulated history as one JSON document.
func (e *Engine) ExportHistory(w io.Writer) error {
	return e.history.WriteJSON(w, e.clock())
}

// SeedHistory preloads history, typically from the archive at startup.
func (e *Engine) SeedHistory(analyses []ErrorAnalysis, sessions []RecoverySession) {
	e.history.Seed(analyses, sessions)
}

// WatchPatterns hot-reloads the pattern table whenever the config file
// at path changes. It returns once the watcher is installed; reloads
// happen in the background until ctx is canceled or Close is called.
func (e *Engine) WatchPatterns(ctx context.Context, path string) error {
	watcher, err := NewPatternWatcher(path, e.registry, e.logger)
	if err != nil {
		return err
	}
	e.watcher = watcher
	watcher.Start(ctx)
	return nil
}

// Close stops background work. The engine remains usable for in-memory
// operations after Close.
func (e *Engine) Close() error {
	if e.watcher != nil {
		e.watcher.Stop()
	}
	return nil
}
