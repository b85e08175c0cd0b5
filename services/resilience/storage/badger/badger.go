// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger provides the BadgerDB-backed history archive.
//
// BadgerDB is used for local embedded storage with low-latency access.
// The engine keeps its working history in memory; this package makes
// classification and recovery records survive restarts and supplies the
// records used to reseed the in-memory history at startup.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
// This package follows Apache 2.0 guidelines for attribution and usage.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/resilience/services/resilience/engine"
)

// Key prefixes. Keys embed a nanosecond timestamp so a prefix scan
// returns records in chronological order.
const (
	analysisPrefix = "analysis:"
	sessionPrefix  = "session:"
)

// Config holds configuration for the archive's BadgerDB instance.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required for persistent databases.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Retention is how long archived records live before BadgerDB
	// expires them. Zero keeps records forever.
	Retention time.Duration

	// Logger is the logger for BadgerDB operations.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for production use:
// synchronous writes and 30-day retention.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
		Retention:  30 * 24 * time.Hour,
	}
}

// InMemoryConfig returns configuration optimized for testing: no disk
// I/O, no retention expiry.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Archive persists analyses and recovery sessions in BadgerDB.
//
// # Thread Safety
//
// Safe for concurrent use.
type Archive struct {
	db        *badger.DB
	retention time.Duration
}

// Open creates the database directory if needed and opens the archive.
//
// Outputs:
//
//	*Archive - The opened archive. Caller must call Close() when done.
//	error - Non-nil if the path is invalid or the database cannot open.
func Open(cfg Config) (*Archive, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent archive")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create archive directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	return &Archive{db: db, retention: cfg.Retention}, nil
}

// SaveAnalysis persists one classification record.
func (a *Archive) SaveAnalysis(ctx context.Context, analysis engine.ErrorAnalysis) error {
	key := fmt.Sprintf("%s%020d:%s", analysisPrefix, analysis.Timestamp.UnixNano(), analysis.ID)
	return a.put(ctx, key, analysis)
}

// SaveSession persists one finalized recovery session.
func (a *Archive) SaveSession(ctx context.Context, session engine.RecoverySession) error {
	key := fmt.Sprintf("%s%020d:%s", sessionPrefix, session.StartTime.UnixNano(), session.SessionID)
	return a.put(ctx, key, session)
}

func (a *Archive) put(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal archive record: %w", err)
	}

	return a.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if a.retention > 0 {
			entry = entry.WithTTL(a.retention)
		}
		return txn.SetEntry(entry)
	})
}

// LoadRecent reads back up to limit analyses and limit sessions, oldest
// first, for reseeding the in-memory history at startup. A limit of
// zero or less loads everything.
func (a *Archive) LoadRecent(ctx context.Context, limit int) ([]engine.ErrorAnalysis, []engine.RecoverySession, error) {
	var analyses []engine.ErrorAnalysis
	if err := scanPrefix(ctx, a.db, analysisPrefix, limit, &analyses); err != nil {
		return nil, nil, err
	}

	var sessions []engine.RecoverySession
	if err := scanPrefix(ctx, a.db, sessionPrefix, limit, &sessions); err != nil {
		return nil, nil, err
	}
	return analyses, sessions, nil
}

// scanPrefix collects decoded values under prefix. When limit is
// positive only the newest limit records are kept.
func scanPrefix[T any](ctx context.Context, db *badger.DB, prefix string, limit int, out *[]T) error {
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var record T
				if err := json.Unmarshal(val, &record); err != nil {
					return fmt.Errorf("decode archive record %s: %w", it.Item().Key(), err)
				}
				*out = append(*out, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if limit > 0 && len(*out) > limit {
		*out = (*out)[len(*out)-limit:]
	}
	return nil
}

// Close releases the underlying database. The archive must not be used
// after Close.
func (a *Archive) Close() error {
	return a.db.Close()
}
