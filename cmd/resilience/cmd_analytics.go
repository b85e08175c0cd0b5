// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/resilience/services/resilience/engine"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	analyticsInput  string // JSONL error stream to analyze
	analyticsWindow string // Reporting window
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// analyticsCmd classifies a recorded stream without running recovery
// and prints the error analytics report.
//
// # Examples
//
//	resilience analytics --input errors.jsonl --window 24h
//	resilience analytics --input errors.jsonl -w 7d
var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print the error analytics report for a recorded stream",
	Long: `Classifies every record in the stream, skipping recovery, and prints
the error analytics report over the given window: totals, error rate,
severity distribution, category breakdown, and most frequent errors.`,
	RunE: runAnalyticsCommand,
}

func init() {
	analyticsCmd.Flags().StringVarP(&analyticsInput, "input", "i", "-",
		"JSONL file with error records (\"-\" for stdin)")
	analyticsCmd.Flags().StringVarP(&analyticsWindow, "window", "w", "24h",
		"Reporting window (e.g. 24h, 7d, 1w)")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runAnalyticsCommand(cmd *cobra.Command, args []string) error {
	records, err := readErrorRecords(analyticsInput)
	if err != nil {
		return err
	}

	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, engine.WithLogger(logger.Slog()))
	if err != nil {
		return err
	}
	defer eng.Close()

	for _, rec := range records {
		eng.Classify(cmd.Context(), rec.ErrorInput, engine.RecoveryContext(rec.Context))
	}

	report, err := eng.GetErrorAnalytics(analyticsWindow)
	if err != nil {
		return err
	}
	return printJSON(report)
}
