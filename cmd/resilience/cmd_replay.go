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
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/resilience/pkg/ux"
	"github.com/AleutianAI/resilience/services/resilience/engine"
	badgerstore "github.com/AleutianAI/resilience/services/resilience/storage/badger"
	"github.com/AleutianAI/resilience/services/resilience/telemetry"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	replayInput       string // JSONL error stream ("-" for stdin)
	replayMetricsAddr string // Optional Prometheus listen address
	replayArchiveDir  string // Optional BadgerDB archive directory
	replayWindow      string // Analytics window printed after the run
	replayWatch       bool   // Hot-reload patterns from --config during the run
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// replayCmd streams recorded errors through classification and
// recovery, then prints both analytics reports.
//
// # Examples
//
//	resilience replay --input errors.jsonl
//	resilience replay --input errors.jsonl --metrics-addr :9464
//	resilience replay --input errors.jsonl --archive-dir ~/.resilience/archive
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded error stream through classify and recover",
	Long: `Reads a JSONL stream of error records, classifies each one, executes
the recommended recovery chain with no-op actions, and prints the error
and recovery analytics reports once the stream is exhausted.

With --metrics-addr the engine's OpenTelemetry metrics are exposed on a
Prometheus endpoint for the duration of the run. With --archive-dir
every analysis and session is persisted to a local BadgerDB archive.`,
	RunE: runReplayCommand,
}

func init() {
	replayCmd.Flags().StringVarP(&replayInput, "input", "i", "-",
		"JSONL file with error records (\"-\" for stdin)")
	replayCmd.Flags().StringVar(&replayMetricsAddr, "metrics-addr", "",
		"Expose Prometheus metrics on this address during the run (e.g. :9464)")
	replayCmd.Flags().StringVar(&replayArchiveDir, "archive-dir", "",
		"Persist analyses and sessions to a BadgerDB archive in this directory")
	replayCmd.Flags().StringVarP(&replayWindow, "window", "w", "24h",
		"Analytics window for the final reports (e.g. 24h, 7d, 1w)")
	replayCmd.Flags().BoolVar(&replayWatch, "watch", false,
		"Hot-reload the pattern table when --config changes during the run")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runReplayCommand(cmd *cobra.Command, args []string) error {
	records, err := readErrorRecords(replayInput)
	if err != nil {
		return err
	}

	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	opts := []engine.Option{engine.WithLogger(logger.Slog())}

	var shutdownMetrics func(context.Context) error
	if replayMetricsAddr != "" {
		metrics, shutdown, err := startMetricsEndpoint(replayMetricsAddr)
		if err != nil {
			return err
		}
		shutdownMetrics = shutdown
		opts = append(opts, engine.WithMetrics(metrics))
	}

	if replayArchiveDir != "" {
		archive, err := badgerstore.Open(badgerstore.DefaultConfig(replayArchiveDir))
		if err != nil {
			return err
		}
		defer archive.Close()
		opts = append(opts, engine.WithArchive(archive))
	}

	eng, err := engine.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	if replayWatch && configPath != "" {
		if err := eng.WatchPatterns(cmd.Context(), configPath); err != nil {
			return err
		}
	}

	var spinner *ux.Spinner
	if !quietLogs && !jsonLogs {
		spinner = ux.NewSpinner(os.Stderr, fmt.Sprintf("replaying %d records", len(records)))
		spinner.Start()
	}

	start := time.Now()
	recovered := 0
	for i, rec := range records {
		analysis, session := eng.Handle(cmd.Context(), rec.ErrorInput, engine.RecoveryContext(rec.Context))
		if session.Status == engine.StatusSuccessful {
			recovered++
		}
		if spinner != nil {
			spinner.SetMessage(fmt.Sprintf("replaying %d/%d records", i+1, len(records)))
		}
		logger.Debug("replayed error",
			"analysis_id", analysis.ID,
			"category", analysis.Classification.PrimaryCategory,
			"session_status", session.Status,
		)
	}
	if spinner != nil {
		spinner.Stop()
		fmt.Fprintln(os.Stderr, ux.Success(fmt.Sprintf("replayed %d records, %d recovered", len(records), recovered)))
	}
	logger.Info("replay finished",
		"records", len(records),
		"recovered", recovered,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	errorReport, err := eng.GetErrorAnalytics(replayWindow)
	if err != nil {
		return err
	}
	recoveryReport, err := eng.GetRecoveryAnalytics(replayWindow)
	if err != nil {
		return err
	}
	if err := printJSON(errorReport); err != nil {
		return err
	}
	if err := printJSON(recoveryReport); err != nil {
		return err
	}

	if shutdownMetrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownMetrics(ctx)
	}
	return nil
}

// startMetricsEndpoint wires the OTel meter provider to a Prometheus
// endpoint and returns the engine-facing recorder plus a shutdown hook.
func startMetricsEndpoint(addr string) (*telemetry.Metrics, func(context.Context) error, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	metrics, err := telemetry.NewMetrics(provider.Meter("resilience"))
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics endpoint failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("metrics endpoint listening", "addr", addr)

	shutdown := func(ctx context.Context) error {
		if err := server.Shutdown(ctx); err != nil {
			return err
		}
		return provider.Shutdown(ctx)
	}
	return metrics, shutdown, nil
}
