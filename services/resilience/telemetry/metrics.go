// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry provides the OpenTelemetry metrics for the
// resilience engine.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined metrics for the resilience engine.
//
// Description:
//
//	Provides counters and histograms for error classification, recovery
//	sessions, and individual strategy attempts. All metrics use the
//	"resilience_" prefix for consistent naming.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- Classification Metrics ---

	// ClassificationsTotal counts classified errors by category and severity.
	ClassificationsTotal metric.Int64Counter

	// ClassificationDuration records classification duration in seconds.
	ClassificationDuration metric.Float64Histogram

	// --- Recovery Metrics ---

	// SessionsTotal counts finalized recovery sessions by status.
	SessionsTotal metric.Int64Counter

	// SessionDuration records full session duration in seconds.
	SessionDuration metric.Float64Histogram

	// AttemptsTotal counts strategy attempts by strategy and outcome.
	AttemptsTotal metric.Int64Counter

	// AttemptDuration records single-attempt duration in seconds.
	AttemptDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
//
// Inputs:
//
//	meter - The OTel meter to use for metric registration.
//
// Outputs:
//
//	*Metrics - The metrics instance with all instruments initialized.
//	error - Non-nil if metric registration fails.
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- Classification Metrics ---
	m.ClassificationsTotal, err = meter.Int64Counter(
		"resilience_classifications_total",
		metric.WithDescription("Total classified errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create classifications_total: %w", err)
	}

	m.ClassificationDuration, err = meter.Float64Histogram(
		"resilience_classification_duration_seconds",
		metric.WithDescription("Error classification duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1),
	)
	if err != nil {
		return nil, fmt.Errorf("create classification_duration: %w", err)
	}

	// --- Recovery Metrics ---
	m.SessionsTotal, err = meter.Int64Counter(
		"resilience_recovery_sessions_total",
		metric.WithDescription("Total finalized recovery sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create recovery_sessions_total: %w", err)
	}

	m.SessionDuration, err = meter.Float64Histogram(
		"resilience_recovery_session_duration_seconds",
		metric.WithDescription("Recovery session duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120),
	)
	if err != nil {
		return nil, fmt.Errorf("create recovery_session_duration: %w", err)
	}

	m.AttemptsTotal, err = meter.Int64Counter(
		"resilience_recovery_attempts_total",
		metric.WithDescription("Total recovery strategy attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create recovery_attempts_total: %w", err)
	}

	m.AttemptDuration, err = meter.Float64Histogram(
		"resilience_recovery_attempt_duration_seconds",
		metric.WithDescription("Single strategy attempt duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("create recovery_attempt_duration: %w", err)
	}

	return m, nil
}

// RecordClassification counts one classified error.
func (m *Metrics) RecordClassification(ctx context.Context, category, severity string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("severity", severity),
	)
	m.ClassificationsTotal.Add(ctx, 1, attrs)
	m.ClassificationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSession counts one finalized recovery session.
func (m *Metrics) RecordSession(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.SessionsTotal.Add(ctx, 1, attrs)
	m.SessionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAttempt counts one strategy attempt.
func (m *Metrics) RecordAttempt(ctx context.Context, strategy string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.Bool("success", success),
	)
	m.AttemptsTotal.Add(ctx, 1, attrs)
	m.AttemptDuration.Record(ctx, duration.Seconds(), attrs)
}
