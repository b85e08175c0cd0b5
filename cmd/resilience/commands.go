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

	"github.com/AleutianAI/resilience/pkg/logging"
)

// --- Global Command Variables ---
var (
	configPath string // Optional YAML config overriding the built-in defaults
	logLevel   string // debug / info / warn / error
	jsonLogs   bool   // JSON log output on stderr
	quietLogs  bool   // Suppress stderr logging

	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "resilience",
		Short: "Classify errors and replay recovery strategies",
		Long: `Resilience is a tool for analyzing application errors and
exercising recovery strategy chains against them.

It classifies raw errors into a failure taxonomy, scores their severity
and likely root cause, runs the recommended recovery strategies, and
aggregates analytics over the accumulated history.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logging.Config{
				Level:   parseLogLevel(logLevel),
				Service: "resilience",
				JSON:    jsonLogs,
				Pretty:  !jsonLogs,
				Quiet:   quietLogs,
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Close()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config overriding the built-in defaults")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "log-json", false,
		"Emit logs as JSON instead of pretty text")
	rootCmd.PersistentFlags().BoolVarP(&quietLogs, "quiet", "q", false,
		"Suppress log output on stderr")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(patternsCmd)
}

func parseLogLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
