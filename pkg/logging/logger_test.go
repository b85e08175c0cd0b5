// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo}, // Unknown defaults to Info
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			got := tt.level.toSlogLevel()
			if got != tt.want {
				t.Errorf("Level.toSlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "test-svc",
		Quiet:   true,
	})
	logger.Info("recovery complete", "session_id", "abc-123")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "test-svc_") {
		t.Errorf("log file %q should be prefixed with service name", entries[0].Name())
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	// File logs must be JSON
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("log file is not JSON: %v", err)
	}
	if record["msg"] != "recovery complete" {
		t.Errorf("msg = %v, want %q", record["msg"], "recovery complete")
	}
	if record["session_id"] != "abc-123" {
		t.Errorf("session_id = %v, want %q", record["session_id"], "abc-123")
	}
	if record["service"] != "test-svc" {
		t.Errorf("service = %v, want %q", record["service"], "test-svc")
	}
}

func TestNew_LevelFilter(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "filter-test",
		Quiet:   true,
	})
	logger.Debug("dropped debug")
	logger.Info("dropped info")
	logger.Warn("kept warn")
	logger.Close()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(entries))
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))

	if strings.Contains(string(data), "dropped") {
		t.Error("messages below LevelWarn should be filtered out")
	}
	if !strings.Contains(string(data), "kept warn") {
		t.Error("LevelWarn message should be written")
	}
}

func TestLogger_With(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{LogDir: dir, Service: "with-test", Quiet: true})
	child := logger.With("session_id", "sess-1")
	child.Info("attempt started")
	logger.Close()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(entries))
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))

	if !strings.Contains(string(data), "sess-1") {
		t.Error("child logger should include inherited attributes")
	}
}

func TestLogger_CloseIdempotent(t *testing.T) {
	logger := New(Config{LogDir: t.TempDir(), Quiet: true})
	if err := logger.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	defer logger.Close()

	if logger.Slog() == nil {
		t.Fatal("Default() should produce a usable slog.Logger")
	}
	// Must not panic
	logger.Info("default logger smoke test")
}

// =============================================================================
// Multi-Handler Tests
// =============================================================================

func TestMultiHandler_FanOut(t *testing.T) {
	var bufA, bufB bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&bufA, nil),
		slog.NewJSONHandler(&bufB, nil),
	}}

	logger := slog.New(h)
	logger.Info("fan out", "k", "v")

	for name, buf := range map[string]*bytes.Buffer{"A": &bufA, "B": &bufB} {
		if !strings.Contains(buf.String(), "fan out") {
			t.Errorf("handler %s did not receive the record", name)
		}
	}
}

func TestMultiHandler_EnabledRespectsLevels(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled should be true when any handler accepts the level")
	}

	slog.New(h).Debug("debug only")
	if !strings.Contains(debugBuf.String(), "debug only") {
		t.Error("debug handler should receive debug records")
	}
	if errorBuf.Len() != 0 {
		t.Error("error-level handler should not receive debug records")
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/logs", filepath.Join(home, "logs")},
		{"/var/log/resilience", "/var/log/resilience"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
