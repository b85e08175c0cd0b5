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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/AleutianAI/resilience/services/resilience/engine"
)

// errorRecord is one line of a JSONL error stream: the raw error plus
// optional operation context.
type errorRecord struct {
	engine.ErrorInput
	Context map[string]any `json:"context,omitempty"`
}

// loadEngineConfig returns the built-in defaults, overridden by the
// --config file when one was given.
func loadEngineConfig() (engine.Config, error) {
	if configPath == "" {
		return engine.DefaultConfig(), nil
	}
	return engine.LoadConfig(configPath)
}

// readErrorRecords decodes a JSONL stream of error records. The path
// "-" reads from stdin.
func readErrorRecords(path string) ([]errorRecord, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var records []errorRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var rec errorRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("parse input line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return records, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
