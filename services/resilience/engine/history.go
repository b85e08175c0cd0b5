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
	"encoding/json"
	"io"
	"sync"
	"time"
)

// historyStore holds the append-only classification and recovery
// history consumed by analytics.
//
// Entries are immutable once appended. When MaxEntries is set, the
// oldest entries are dropped as new ones arrive; within the retention
// window the lists behave as append-only.
//
// Thread Safety: Safe for concurrent use. Reads return copies.
type historyStore struct {
	mu         sync.RWMutex
	maxEntries int

	analyses []ErrorAnalysis
	sessions []RecoverySession
}

func newHistoryStore(cfg HistoryConfig) *historyStore {
	return &historyStore{maxEntries: cfg.MaxEntries}
}

// AppendAnalysis records a finished classification.
func (h *historyStore) AppendAnalysis(a ErrorAnalysis) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.analyses = append(h.analyses, a)
	if h.maxEntries > 0 && len(h.analyses) > h.maxEntries {
		h.analyses = h.analyses[len(h.analyses)-h.maxEntries:]
	}
}

// AppendSession records a finalized recovery session.
func (h *historyStore) AppendSession(s RecoverySession) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions = append(h.sessions, s)
	if h.maxEntries > 0 && len(h.sessions) > h.maxEntries {
		h.sessions = h.sessions[len(h.sessions)-h.maxEntries:]
	}
}

// CountMessagesSince implements frequencyCounter for the severity model.
func (h *historyStore) CountMessagesSince(message string, cutoff time.Time) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for i := len(h.analyses) - 1; i >= 0; i-- {
		if h.analyses[i].Timestamp.Before(cutoff) {
			break
		}
		if h.analyses[i].ErrorDetails.Message == message {
			count++
		}
	}
	return count
}

// AnalysesSince returns a snapshot of analyses at or after the cutoff.
func (h *historyStore) AnalysesSince(cutoff time.Time) []ErrorAnalysis {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []ErrorAnalysis
	for _, a := range h.analyses {
		if !a.Timestamp.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

// SessionsSince returns a snapshot of sessions started at or after the
// cutoff.
func (h *historyStore) SessionsSince(cutoff time.Time) []RecoverySession {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []RecoverySession
	for _, s := range h.sessions {
		if !s.StartTime.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Seed preloads history, e.g. from a persistent archive at startup.
func (h *historyStore) Seed(analyses []ErrorAnalysis, sessions []RecoverySession) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.analyses = append(h.analyses, analyses...)
	h.sessions = append(h.sessions, sessions...)
}

// historyExport is the JSON document written by WriteJSON.
type historyExport struct {
	ExportedAt time.Time         `json:"exported_at"`
	Analyses   []ErrorAnalysis   `json:"analyses"`
	Sessions   []RecoverySession `json:"sessions"`
}

// WriteJSON exports the full history as a single JSON document, for
// external dashboards.
func (h *historyStore) WriteJSON(w io.Writer, now time.Time) error {
	h.mu.RLock()
	doc := historyExport{
		ExportedAt: now,
		Analyses:   append([]ErrorAnalysis(nil), h.analyses...),
		Sessions:   append([]RecoverySession(nil), h.sessions...),
	}
	h.mu.RUnlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
