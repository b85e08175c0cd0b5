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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/resilience/services/resilience/engine"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	classifyInput   string // JSON file with the error record ("-" for stdin)
	classifyMessage string // Inline error message, alternative to --input
	classifyRecover bool   // Also run the recommended recovery chain
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// classifyCmd classifies one error and prints the analysis as JSON.
//
// # Examples
//
//	resilience classify -m "rate limit exceeded"
//	resilience classify --input err.json
//	cat err.json | resilience classify --input -
//	resilience classify -m "connection refused" --recover
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify one error and print the analysis",
	Long: `Classifies a single error into the failure taxonomy and prints the
full analysis as JSON: category, severity, root cause, impact, and the
recommended recovery strategy chain.

With --recover the recommended chain is also executed (with no-op
recovery actions) and the resulting session is printed.`,
	RunE: runClassifyCommand,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyInput, "input", "i", "",
		"JSON file containing the error record (\"-\" for stdin)")
	classifyCmd.Flags().StringVarP(&classifyMessage, "message", "m", "",
		"Inline error message, alternative to --input")
	classifyCmd.Flags().BoolVar(&classifyRecover, "recover", false,
		"Also execute the recommended recovery chain")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runClassifyCommand(cmd *cobra.Command, args []string) error {
	record, err := classifyRecord()
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

	rctx := engine.RecoveryContext(record.Context)
	analysis := eng.Classify(cmd.Context(), record.ErrorInput, rctx)
	if err := printJSON(analysis); err != nil {
		return err
	}

	if classifyRecover {
		session := eng.Recover(cmd.Context(), analysis, rctx)
		if err := printJSON(session); err != nil {
			return err
		}
	}
	return nil
}

func classifyRecord() (errorRecord, error) {
	if classifyMessage != "" {
		return errorRecord{ErrorInput: engine.ErrorInput{Message: classifyMessage}}, nil
	}
	if classifyInput == "" {
		return errorRecord{}, fmt.Errorf("either --input or --message is required")
	}

	var data []byte
	var err error
	if classifyInput == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(classifyInput)
	}
	if err != nil {
		return errorRecord{}, fmt.Errorf("read input: %w", err)
	}

	var record errorRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return errorRecord{}, fmt.Errorf("parse input: %w", err)
	}
	if record.Message == "" {
		return errorRecord{}, fmt.Errorf("input has no message field")
	}
	return record, nil
}
