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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Operation completed with findings
	CLIExitError    = 2 // Operation failed
)

// errFindings marks a command that ran but found problems.
var errFindings = errors.New("findings reported")

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return CLIExitSuccess
	case errors.Is(err, errFindings):
		return CLIExitFindings
	default:
		return CLIExitError
	}
}

// CommandResult wraps command output with metadata.
type CommandResult struct {
	APIVersion string    `json:"api_version"`
	Command    string    `json:"command"`
	Scene      string    `json:"scene"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// OutputJSON writes data as indented JSON.
//
// # Inputs
//
//   - w: Destination.
//   - data: The data to encode. Must be JSON-serializable.
//
// # Outputs
//
//   - error: Non-nil if encoding fails.
func OutputJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// newResult builds a CommandResult for a finished command.
func newResult(command, scene string, started time.Time, data any, err error) CommandResult {
	r := CommandResult{
		APIVersion: "1.0",
		Command:    command,
		Scene:      scene,
		Timestamp:  started,
		DurationMs: time.Since(started).Milliseconds(),
		Success:    err == nil,
		Data:       data,
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// writeMetrics prints every gathered canvas_* family in the Prometheus text
// format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "canvas_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
