// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AleutianAI/resilience/services/resilience/engine"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(InMemoryConfig())
	if err != nil {
		t.Fatalf("open in-memory archive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestOpen_RequiresPathForPersistent(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open without path or in-memory mode returned nil error")
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/archive"
	a, err := Open(DefaultConfig(dir))
	if err != nil {
		t.Fatalf("open persistent archive: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestArchive_SaveAndLoadAnalyses(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		analysis := engine.ErrorAnalysis{
			ID:           fmt.Sprintf("%016d", i),
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			ErrorDetails: engine.ErrorDetails{Message: fmt.Sprintf("err %d", i)},
		}
		if err := a.SaveAnalysis(ctx, analysis); err != nil {
			t.Fatalf("save analysis %d: %v", i, err)
		}
	}

	analyses, sessions, err := a.LoadRecent(ctx, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("%d sessions, want 0", len(sessions))
	}
	if len(analyses) != 3 {
		t.Fatalf("%d analyses, want 3", len(analyses))
	}
	for i, an := range analyses {
		if an.ErrorDetails.Message != fmt.Sprintf("err %d", i) {
			t.Errorf("analysis %d = %q, want chronological order", i, an.ErrorDetails.Message)
		}
	}
}

func TestArchive_SaveAndLoadSessions(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	session := engine.RecoverySession{
		SessionID:       "11111111-2222-3333-4444-555555555555",
		ErrorID:         "a1b2c3d4e5f60718",
		StartTime:       time.Now(),
		Status:          engine.StatusSuccessful,
		PrimaryStrategy: "exponential_backoff",
		Attempts: []engine.Attempt{
			{Strategy: "exponential_backoff", Success: true, Message: "fixed"},
		},
	}
	if err := a.SaveSession(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	_, sessions, err := a.LoadRecent(ctx, 10)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("%d sessions, want 1", len(sessions))
	}
	got := sessions[0]
	if got.SessionID != session.SessionID || got.Status != engine.StatusSuccessful {
		t.Errorf("session = %+v", got)
	}
	if len(got.Attempts) != 1 || got.Attempts[0].Strategy != "exponential_backoff" {
		t.Errorf("attempts = %+v", got.Attempts)
	}
}

func TestArchive_LoadRecentKeepsNewest(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		analysis := engine.ErrorAnalysis{
			ID:           fmt.Sprintf("%016d", i),
			Timestamp:    base.Add(time.Duration(i) * time.Second),
			ErrorDetails: engine.ErrorDetails{Message: fmt.Sprintf("err %d", i)},
		}
		if err := a.SaveAnalysis(ctx, analysis); err != nil {
			t.Fatalf("save analysis %d: %v", i, err)
		}
	}

	analyses, _, err := a.LoadRecent(ctx, 3)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(analyses) != 3 {
		t.Fatalf("%d analyses, want 3", len(analyses))
	}
	if analyses[0].ErrorDetails.Message != "err 7" || analyses[2].ErrorDetails.Message != "err 9" {
		t.Errorf("kept %q..%q, want the newest three", analyses[0].ErrorDetails.Message, analyses[2].ErrorDetails.Message)
	}
}

func TestArchive_SaveHonorsCanceledContext(t *testing.T) {
	a := openTestArchive(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.SaveAnalysis(ctx, engine.ErrorAnalysis{ID: "aaaa", Timestamp: time.Now()})
	if err == nil {
		t.Error("save with canceled context returned nil error")
	}
}

func TestArchive_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	ctx := context.Background()

	a, err := Open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	analysis := engine.ErrorAnalysis{
		ID:           "a1b2c3d4e5f60718",
		Timestamp:    time.Now(),
		ErrorDetails: engine.ErrorDetails{Message: "survives restart"},
	}
	if err := a.SaveAnalysis(ctx, analysis); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	a, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer a.Close()

	analyses, _, err := a.LoadRecent(ctx, 0)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if len(analyses) != 1 || analyses[0].ErrorDetails.Message != "survives restart" {
		t.Errorf("analyses after reopen = %+v", analyses)
	}
}
