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

import "context"

// RecoveryActions is the capability set recovery strategies act
// through. The engine never performs the failed operation itself; the
// caller injects these capabilities at construction, and tests supply
// deterministic fakes.
type RecoveryActions interface {
	// RetryOperation re-runs the original failed operation once.
	RetryOperation(ctx context.Context) error

	// RefreshCredentials renews whatever credentials the caller uses.
	RefreshCredentials(ctx context.Context) error

	// CleanupResource frees one resource kind: "memory", "cache",
	// "temp_files", or "connections".
	CleanupResource(ctx context.Context, kind string) error

	// ValidateData checks data integrity and returns the issues found.
	ValidateData(ctx context.Context) ([]string, error)

	// RepairData attempts to repair the reported issues.
	RepairData(ctx context.Context, issues []string) error

	// ProcessFallback runs a degraded processing path, e.g.
	// "cached_response" or "template_generation".
	ProcessFallback(ctx context.Context, method string) error
}

// NoopActions is a RecoveryActions implementation where every
// capability succeeds and validation finds no issues. It is the default
// when the caller injects nothing, and keeps replay/analysis tooling
// usable without a live system behind the engine.
type NoopActions struct{}

func (NoopActions) RetryOperation(ctx context.Context) error                { return nil }
func (NoopActions) RefreshCredentials(ctx context.Context) error            { return nil }
func (NoopActions) CleanupResource(ctx context.Context, kind string) error  { return nil }
func (NoopActions) ValidateData(ctx context.Context) ([]string, error)      { return nil, nil }
func (NoopActions) RepairData(ctx context.Context, issues []string) error   { return nil }
func (NoopActions) ProcessFallback(ctx context.Context, method string) error { return nil }

var _ RecoveryActions = NoopActions{}
