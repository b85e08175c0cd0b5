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

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestHistoryStore_MaxEntriesDropsOldest(t *testing.T) {
	h := newHistoryStore(HistoryConfig{MaxEntries: 3})
	now := time.Now()

	for i := 0; i < 5; i++ {
		h.AppendAnalysis(ErrorAnalysis{
			ID:           fmt.Sprintf("%016d", i),
			Timestamp:    now.Add(time.Duration(i) * time.Second),
			ErrorDetails: ErrorDetails{Message: fmt.Sprintf("err %d", i)},
		})
	}

	got := h.AnalysesSince(time.Time{})
	if len(got) != 3 {
		t.Fatalf("%d analyses retained, want 3", len(got))
	}
	if got[0].ErrorDetails.Message != "err 2" {
		t.Errorf("oldest retained = %q, want err 2", got[0].ErrorDetails.Message)
	}
	if got[2].ErrorDetails.Message != "err 4" {
		t.Errorf("newest retained = %q, want err 4", got[2].ErrorDetails.Message)
	}
}

func TestHistoryStore_UnlimitedWhenMaxEntriesZero(t *testing.T) {
	h := newHistoryStore(HistoryConfig{})
	for i := 0; i < 100; i++ {
		h.AppendSession(RecoverySession{SessionID: fmt.Sprintf("s%d", i)})
	}
	if got := len(h.SessionsSince(time.Time{})); got != 100 {
		t.Errorf("%d sessions, want 100", got)
	}
}

func TestHistoryStore_CountMessagesSince(t *testing.T) {
	h := newHistoryStore(HistoryConfig{MaxEntries: 100})
	now := time.Now()

	add := func(age time.Duration, message string) {
		h.AppendAnalysis(ErrorAnalysis{
			Timestamp:    now.Add(-age),
			ErrorDetails: ErrorDetails{Message: message},
		})
	}
	add(3*time.Hour, "timeout")
	add(90*time.Minute, "timeout")
	add(30*time.Minute, "timeout")
	add(10*time.Minute, "other")

	if got := h.CountMessagesSince("timeout", now.Add(-time.Hour)); got != 1 {
		t.Errorf("count within 1h = %d, want 1", got)
	}
	if got := h.CountMessagesSince("timeout", now.Add(-2*time.Hour)); got != 2 {
		t.Errorf("count within 2h = %d, want 2", got)
	}
	if got := h.CountMessagesSince("missing", time.Time{}); got != 0 {
		t.Errorf("count of unseen message = %d, want 0", got)
	}
}

func TestHistoryStore_SessionsSinceUsesStartTime(t *testing.T) {
	h := newHistoryStore(HistoryConfig{MaxEntries: 100})
	now := time.Now()

	h.AppendSession(RecoverySession{SessionID: "old", StartTime: now.Add(-2 * time.Hour)})
	h.AppendSession(RecoverySession{SessionID: "new", StartTime: now.Add(-10 * time.Minute)})

	got := h.SessionsSince(now.Add(-time.Hour))
	if len(got) != 1 || got[0].SessionID != "new" {
		t.Errorf("sessions = %+v, want only the recent one", got)
	}
}

func TestHistoryStore_SeedPreloads(t *testing.T) {
	h := newHistoryStore(HistoryConfig{MaxEntries: 100})
	h.Seed(
		[]ErrorAnalysis{{ID: "aaaa"}, {ID: "bbbb"}},
		[]RecoverySession{{SessionID: "s1"}},
	)

	if got := len(h.AnalysesSince(time.Time{})); got != 2 {
		t.Errorf("%d analyses after seed, want 2", got)
	}
	if got := len(h.SessionsSince(time.Time{})); got != 1 {
		t.Errorf("%d sessions after seed, want 1", got)
	}
}

func TestHistoryStore_WriteJSON(t *testing.T) {
	h := newHistoryStore(HistoryConfig{MaxEntries: 100})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h.AppendAnalysis(ErrorAnalysis{ID: "aaaa", Timestamp: now})
	h.AppendSession(RecoverySession{SessionID: "s1", StartTime: now, Status: StatusSuccessful})

	var buf bytes.Buffer
	if err := h.WriteJSON(&buf, now); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var doc struct {
		ExportedAt time.Time         `json:"exported_at"`
		Analyses   []ErrorAnalysis   `json:"analyses"`
		Sessions   []RecoverySession `json:"sessions"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if !doc.ExportedAt.Equal(now) {
		t.Errorf("exported_at = %v, want %v", doc.ExportedAt, now)
	}
	if len(doc.Analyses) != 1 || doc.Analyses[0].ID != "aaaa" {
		t.Errorf("analyses = %+v", doc.Analyses)
	}
	if len(doc.Sessions) != 1 || doc.Sessions[0].Status != StatusSuccessful {
		t.Errorf("sessions = %+v", doc.Sessions)
	}
}
