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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PatternWatcher reloads the pattern table when its config file changes.
//
// Write events are debounced so that editors performing multiple writes
// per save trigger a single reload. A reload that fails validation is
// logged and discarded; the registry keeps serving the previous table.
// Occurrence counters survive reloads for pattern IDs that persist.
//
// Thread Safety: Safe for concurrent use.
type PatternWatcher struct {
	path     string
	registry *PatternRegistry
	logger   *slog.Logger
	debounce time.Duration

	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

// NewPatternWatcher creates a watcher for the given pattern config file.
//
// Inputs:
//   - path: Path to the YAML config file to watch.
//   - registry: The registry to update on reload.
//   - logger: Logger for reload outcomes. Must not be nil.
//
// Outputs:
//   - *PatternWatcher: Watcher ready to Start.
//   - error: Non-nil if the fsnotify watcher cannot be created.
func NewPatternWatcher(path string, registry *PatternRegistry, logger *slog.Logger) (*PatternWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save,
	// which drops the watch on some platforms.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	return &PatternWatcher{
		path:     path,
		registry: registry,
		logger:   logger,
		debounce: 250 * time.Millisecond,
		watcher:  w,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching until the context is canceled or Stop is called.
func (w *PatternWatcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop shuts down the watcher. Safe to call multiple times.
func (w *PatternWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *PatternWatcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("pattern watcher error", "error", err)
		case <-timerC:
			w.reload()
		}
	}
}

func (w *PatternWatcher) reload() {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.logger.Error("pattern reload failed", "path", w.path, "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.logger.Error("pattern reload rejected", "path", w.path, "error", err)
		return
	}

	w.registry.Replace(cfg.Patterns)
	w.logger.Info("pattern table reloaded", "path", w.path, "patterns", len(cfg.Patterns))
}
