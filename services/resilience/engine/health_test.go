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
	"testing"
	"time"
)

func TestHealthRegistry_UpdateCreatesMetric(t *testing.T) {
	h := NewHealthRegistry()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	snap := h.Update("error_rate", 0.02, 0.05, 0.10, now)

	if snap.Name != "error_rate" {
		t.Errorf("name = %s", snap.Name)
	}
	if snap.Value != 0.02 || snap.WarningThreshold != 0.05 || snap.CriticalThreshold != 0.10 {
		t.Errorf("value/thresholds = %v/%v/%v", snap.Value, snap.WarningThreshold, snap.CriticalThreshold)
	}
	if snap.Status != HealthOK {
		t.Errorf("status = %s, want ok below warning", snap.Status)
	}
	if snap.Trend != TrendStable {
		t.Errorf("trend = %s, want stable with one sample", snap.Trend)
	}
	if snap.DataPoints != 1 {
		t.Errorf("data points = %d, want 1", snap.DataPoints)
	}
	if !snap.UpdatedAt.Equal(now) {
		t.Errorf("updated at = %v", snap.UpdatedAt)
	}
}

func TestHealthRegistry_StatusUsesLatestValue(t *testing.T) {
	h := NewHealthRegistry()
	now := time.Now()

	h.Update("latency_p99", 100, 500, 1000, now)
	snap := h.Update("latency_p99", 600, 500, 1000, now.Add(time.Minute))
	if snap.Status != HealthWarning {
		t.Errorf("status = %s, want warning between thresholds", snap.Status)
	}

	snap = h.Update("latency_p99", 1200, 500, 1000, now.Add(2*time.Minute))
	if snap.Status != HealthCritical {
		t.Errorf("status = %s, want critical above critical threshold", snap.Status)
	}

	// Exactly at the warning threshold is still ok.
	snap = h.Update("latency_p99", 500, 500, 1000, now.Add(3*time.Minute))
	if snap.Status != HealthOK {
		t.Errorf("status = %s, want ok at the warning threshold", snap.Status)
	}
}

func TestHealthRegistry_TrendDirections(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   TrendDirection
	}{
		{"rising is degrading", []float64{10, 10, 20, 20}, TrendDegrading},
		{"falling is improving", []float64{20, 20, 10, 10}, TrendImproving},
		{"flat is stable", []float64{10, 10, 10, 10}, TrendStable},
		{"within tolerance is stable", []float64{100, 100, 101, 101}, TrendStable},
		{"two samples is stable", []float64{10, 100}, TrendStable},
		{"zero to nonzero is degrading", []float64{0, 0, 5, 5}, TrendDegrading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthRegistry()
			now := time.Now()
			var snap HealthSnapshot
			for i, v := range tt.values {
				snap = h.Update("m", v, 1000, 2000, now.Add(time.Duration(i)*time.Second))
			}
			if snap.Trend != tt.want {
				t.Errorf("trend = %s, want %s", snap.Trend, tt.want)
			}
		})
	}
}

func TestHealthRegistry_SnapshotsSortedByName(t *testing.T) {
	h := NewHealthRegistry()
	now := time.Now()
	h.Update("zeta", 1, 10, 20, now)
	h.Update("alpha", 2, 10, 20, now)
	h.Update("mid", 3, 10, 20, now)

	snaps := h.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("%d snapshots, want 3", len(snaps))
	}
	for i, want := range []string{"alpha", "mid", "zeta"} {
		if snaps[i].Name != want {
			t.Errorf("snapshot %d = %s, want %s", i, snaps[i].Name, want)
		}
	}
}

func TestHealthRegistry_SampleHistoryIsBounded(t *testing.T) {
	h := NewHealthRegistry()
	now := time.Now()

	var snap HealthSnapshot
	for i := 0; i < healthHistorySize*2; i++ {
		snap = h.Update("m", float64(i), 1e9, 2e9, now.Add(time.Duration(i)*time.Second))
	}
	if snap.DataPoints != healthHistorySize {
		t.Errorf("data points = %d, want %d", snap.DataPoints, healthHistorySize)
	}
}

func TestRingBuffer_WrapsAndKeepsOrder(t *testing.T) {
	r := newRingBuffer[int](3)

	if r.Len() != 0 {
		t.Errorf("new buffer length = %d", r.Len())
	}

	r.Push(1)
	r.Push(2)
	got := r.Items()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("items = %v, want [1 2]", got)
	}

	r.Push(3)
	r.Push(4)
	r.Push(5)
	got = r.Items()
	if len(got) != 3 || got[0] != 3 || got[1] != 4 || got[2] != 5 {
		t.Errorf("items = %v, want [3 4 5] oldest first", got)
	}
	if r.Len() != 3 {
		t.Errorf("length = %d, want 3", r.Len())
	}
}
