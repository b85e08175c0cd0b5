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
	"sort"
	"sync"
	"time"
)

// TrendDirection indicates the direction of a health metric trend.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDegrading TrendDirection = "degrading"
)

// healthHistorySize is how many samples each metric retains for trend
// calculation.
const healthHistorySize = 50

// trendTolerance is the relative change below which a metric is
// considered stable.
const trendTolerance = 0.05

// healthSample is one recorded value of a health metric.
type healthSample struct {
	Value     float64
	Timestamp time.Time
}

// HealthStatus is the threshold bucket of a metric's latest value.
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// HealthSnapshot is the externally visible state of one health metric.
type HealthSnapshot struct {
	Name              string         `json:"name"`
	Value             float64        `json:"value"`
	WarningThreshold  float64        `json:"warning_threshold"`
	CriticalThreshold float64        `json:"critical_threshold"`
	Status            HealthStatus   `json:"status"`
	Trend             TrendDirection `json:"trend"`
	DataPoints        int            `json:"data_points"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// healthMetric tracks one named metric with a bounded sample history.
//
// Higher values are treated as worse: a metric breaches when its value
// exceeds the threshold, and a falling value is an improving trend.
type healthMetric struct {
	name     string
	warning  float64
	critical float64
	samples  *ringBuffer[healthSample]
}

// HealthRegistry tracks named health metrics and their trends.
//
// # Thread Safety
//
// Safe for concurrent use.
type HealthRegistry struct {
	mu      sync.RWMutex
	metrics map[string]*healthMetric
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{metrics: make(map[string]*healthMetric)}
}

// Update records a new value for the named metric, creating it on first
// use. Returns the snapshot after the update.
func (h *HealthRegistry) Update(name string, value, warning, critical float64, now time.Time) HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.metrics[name]
	if !ok {
		m = &healthMetric{
			name:    name,
			samples: newRingBuffer[healthSample](healthHistorySize),
		}
		h.metrics[name] = m
	}
	m.warning = warning
	m.critical = critical
	m.samples.Push(healthSample{Value: value, Timestamp: now})
	return m.snapshot()
}

// Snapshots returns the current state of every metric, sorted by name.
func (h *HealthRegistry) Snapshots() []HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HealthSnapshot, 0, len(h.metrics))
	for _, m := range h.metrics {
		out = append(out, m.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *healthMetric) snapshot() HealthSnapshot {
	samples := m.samples.Items()
	latest := samples[len(samples)-1]

	status := HealthOK
	switch {
	case latest.Value > m.critical:
		status = HealthCritical
	case latest.Value > m.warning:
		status = HealthWarning
	}

	return HealthSnapshot{
		Name:              m.name,
		Value:             latest.Value,
		WarningThreshold:  m.warning,
		CriticalThreshold: m.critical,
		Status:            status,
		Trend:             trendOf(samples),
		DataPoints:        len(samples),
		UpdatedAt:         latest.Timestamp,
	}
}

// trendOf compares the mean of the newer half of samples against the
// older half. Fewer than three samples is always stable.
func trendOf(samples []healthSample) TrendDirection {
	if len(samples) < 3 {
		return TrendStable
	}

	mid := len(samples) / 2
	older := meanValue(samples[:mid])
	newer := meanValue(samples[mid:])

	if older == 0 {
		if newer == 0 {
			return TrendStable
		}
		return TrendDegrading
	}

	change := (newer - older) / older
	switch {
	case change > trendTolerance:
		return TrendDegrading
	case change < -trendTolerance:
		return TrendImproving
	default:
		return TrendStable
	}
}

func meanValue(samples []healthSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.Value
	}
	return sum / float64(len(samples))
}

// ringBuffer is a fixed-size circular buffer with O(1) push.
//
// NOT safe for concurrent use; caller must synchronize.
type ringBuffer[T any] struct {
	data  []T
	head  int
	tail  int
	count int
	cap   int
	full  bool
}

func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &ringBuffer[T]{
		data: make([]T, capacity),
		cap:  capacity,
	}
}

// Push adds an item, overwriting the oldest when full.
func (r *ringBuffer[T]) Push(item T) {
	r.data[r.head] = item
	r.head = (r.head + 1) % r.cap

	if r.full {
		r.tail = (r.tail + 1) % r.cap
	} else {
		r.count++
		if r.count == r.cap {
			r.full = true
		}
	}
}

// Items returns the buffer contents oldest first.
func (r *ringBuffer[T]) Items() []T {
	out := make([]T, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.data[(r.tail+i)%r.cap])
	}
	return out
}

// Len returns the number of stored items.
func (r *ringBuffer[T]) Len() int { return r.count }
