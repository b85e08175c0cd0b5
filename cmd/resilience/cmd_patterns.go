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
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/resilience/pkg/ux"
	"github.com/AleutianAI/resilience/services/resilience/engine"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var patternsJSON bool // Output as JSON instead of a table

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// patternsCmd lists the effective error pattern table.
//
// # Examples
//
//	resilience patterns
//	resilience patterns --config patterns.yaml
//	resilience patterns --json
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the effective error pattern table",
	Long: `Prints the error patterns the classifier matches against: built-in
defaults, or the merged table when --config points at a YAML file.`,
	RunE: runPatternsCommand,
}

func init() {
	patternsCmd.Flags().BoolVar(&patternsJSON, "json", false,
		"Output as JSON instead of a table")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runPatternsCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, engine.WithLogger(logger.Slog()))
	if err != nil {
		return err
	}
	defer eng.Close()

	patterns := eng.Patterns()
	if patternsJSON {
		return printJSON(patterns)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, ux.Header("ID\tCATEGORY\tSEVERITY\tSTRATEGY\tSIGNATURES"))
	for _, p := range patterns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Category, ux.Severity(string(p.Severity)), p.RecoveryStrategy,
			strings.Join(p.Signatures, ", "))
	}
	return w.Flush()
}
