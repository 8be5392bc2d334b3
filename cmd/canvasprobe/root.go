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
	"errors"
	"fmt"
	"io"

	"github.com/AleutianAI/flowcanvas/pkg/logging"
	"github.com/AleutianAI/flowcanvas/pkg/ux"
	"github.com/AleutianAI/flowcanvas/services/canvas/interaction"
	"github.com/AleutianAI/flowcanvas/services/canvas/layout"
	"github.com/AleutianAI/flowcanvas/services/canvas/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// Persistent flags.
var (
	metricsPath    string
	logLevel       string
	logDir         string
	jsonOutput     bool
	traceExporter  string
	metricExporter string
	dumpMetrics    bool
)

// probe holds the per-invocation state built by setupProbe.
var probe *app

// app is everything a subcommand needs to run against a scene.
type app struct {
	logger   *logging.Logger
	resolver *interaction.Resolver
	printer  *ux.Printer
	out      io.Writer
	json     bool
	shutdown func(context.Context) error
}

// newApp wires an app around explicit dependencies.
func newApp(out io.Writer, logger *logging.Logger, m layout.Metrics, jsonMode bool) *app {
	if logger == nil {
		logger = logging.Nop()
	}
	return &app{
		logger:   logger,
		resolver: interaction.NewResolver(m, logger),
		printer:  ux.NewPrinter(out),
		out:      out,
		json:     jsonMode,
		shutdown: func(context.Context) error { return nil },
	}
}

var rootCmd = &cobra.Command{
	Use:   "canvasprobe",
	Short: "Probe node-graph scene fixtures with the canvas query engines",
	Long: `canvasprobe loads a YAML scene fixture and runs the same hit-test,
snap, and subflow virtualization queries the editor runs per pointer event.

A scene fixture holds nodes, edges, groups, subflows, the viewport, and the
canvas size. It is a debugging aid, not an editor document format.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupProbe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&metricsPath, "metrics", "", "YAML layout metrics file (defaults apply when empty)")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flags.StringVar(&logDir, "log-dir", "", "Also write JSON logs to this directory")
	flags.BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	flags.StringVar(&traceExporter, "trace-exporter", "", "Trace exporter: stdout or none (default from OTEL_TRACES_EXPORTER)")
	flags.StringVar(&metricExporter, "metrics-exporter", "", "Metric exporter: stdout, prometheus, or none (default from OTEL_METRICS_EXPORTER)")
	flags.BoolVar(&dumpMetrics, "dump-metrics", false, "Print canvas_* Prometheus metrics to stderr on exit")

	rootCmd.AddCommand(hitCmd)
	rootCmd.AddCommand(snapCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(checkCmd)
}

// setupProbe builds the logger, metrics, telemetry, and resolver from the
// persistent flags.
func setupProbe(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		Service: "canvasprobe",
		Output:  cmd.ErrOrStderr(),
		LogDir:  logDir,
	})

	m := layout.DefaultMetrics()
	if metricsPath != "" {
		m, err = layout.LoadMetrics(metricsPath)
		if err != nil {
			logger.Close()
			return fmt.Errorf("load metrics: %w", err)
		}
		logger.Debug("metrics loaded", "path", metricsPath)
	}

	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "canvasprobe"
	cfg.ServiceVersion = Version
	cfg.Writer = cmd.ErrOrStderr()
	if traceExporter != "" {
		cfg.TraceExporter = traceExporter
	}
	if metricExporter != "" {
		cfg.MetricExporter = metricExporter
	}
	shutdown, err := telemetry.Init(cmd.Context(), cfg)
	if err != nil {
		logger.Close()
		return fmt.Errorf("init telemetry: %w", err)
	}

	probe = newApp(cmd.OutOrStdout(), logger, m, jsonOutput)
	probe.shutdown = shutdown
	return nil
}

// closeProbe flushes telemetry and closes the logger. It runs after every
// command, including ones that failed.
func closeProbe(ctx context.Context, stderr io.Writer) error {
	if probe == nil {
		return nil
	}
	var errs []error
	if dumpMetrics {
		errs = append(errs, writeMetrics(stderr, prometheus.DefaultGatherer))
	}
	errs = append(errs, probe.shutdown(ctx))
	errs = append(errs, probe.logger.Close())
	probe = nil
	return errors.Join(errs...)
}
