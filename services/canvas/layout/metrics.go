// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package layout holds the geometric constants of the canvas and the
// derived positions of ports, groups, and collapsed subflows.
//
// Metrics is passed explicitly to every consumer. There is no package-level
// mutable layout or theme state, so two editors with different metrics can
// share the process and tests can vary any constant.
//
// Thread Safety:
//
//	All exported functions and types are safe for concurrent use.
package layout

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/flowcanvas/services/canvas/model"
)

// MaxConfigFileSize is the largest metrics file LoadMetrics accepts (1MB).
const MaxConfigFileSize = 1024 * 1024

// Sentinel errors for metrics loading.
var (
	// ErrConfigTooLarge is returned when a metrics file exceeds MaxConfigFileSize.
	ErrConfigTooLarge = errors.New("metrics file too large")

	// ErrInvalidMetrics is returned when metrics fail validation.
	ErrInvalidMetrics = errors.New("invalid layout metrics")
)

var metricsLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "canvas_layout_load_errors_total",
	Help: "Total layout metrics load errors",
})

// Metrics are the world-unit dimensions used by hit-testing, snapping, and
// collapsed subflow layout.
type Metrics struct {
	// NodeHeaderHeight is the title band at the top of every node and
	// collapsed subflow. Port slots start below it.
	NodeHeaderHeight float64 `yaml:"node_header_height" validate:"gte=0"`

	// PortSpacing is the vertical distance between port slots.
	PortSpacing float64 `yaml:"port_spacing" validate:"gt=0"`

	// PortRadius is the drawn radius of a port circle.
	PortRadius float64 `yaml:"port_radius" validate:"gt=0"`

	// PortHitPadding is added to PortRadius for the default port hit radius.
	PortHitPadding float64 `yaml:"port_hit_padding" validate:"gte=0"`

	// ResizeHandleSize is the half-extent of a corner resize square.
	ResizeHandleSize float64 `yaml:"resize_handle_size" validate:"gt=0"`

	// ResizeEdgeThreshold is the half-width of an edge resize band.
	ResizeEdgeThreshold float64 `yaml:"resize_edge_threshold" validate:"gt=0"`

	// GroupPadding is added around member nodes to form a group box.
	GroupPadding float64 `yaml:"group_padding" validate:"gte=0"`

	// GroupHeaderHeight is the draggable band at the top of a group box.
	GroupHeaderHeight float64 `yaml:"group_header_height" validate:"gt=0"`

	// CollapsedSubflowWidth is the fixed width of a collapsed subflow box.
	CollapsedSubflowWidth float64 `yaml:"collapsed_subflow_width" validate:"gt=0"`

	// CollapsedSubflowPadding is added below the port slots of a collapsed box.
	CollapsedSubflowPadding float64 `yaml:"collapsed_subflow_padding" validate:"gte=0"`

	// EdgeHitDistance is the default maximum pointer distance to an edge curve.
	EdgeHitDistance float64 `yaml:"edge_hit_distance" validate:"gt=0"`

	// EdgeSamples is the number of uniform parameter steps along an edge curve.
	EdgeSamples int `yaml:"edge_samples" validate:"gte=1,lte=1000"`

	// EdgeMinControlOffset is the minimum horizontal bezier control offset.
	EdgeMinControlOffset float64 `yaml:"edge_min_control_offset" validate:"gte=0"`

	// EdgeRefine enables a local minimisation around the best sample.
	EdgeRefine bool `yaml:"edge_refine"`

	// SnapThreshold is the alignment distance in world units. Not zoom-scaled.
	SnapThreshold float64 `yaml:"snap_threshold" validate:"gte=0"`

	// SnapGuideExtent is the half-length of an emitted guide line.
	SnapGuideExtent float64 `yaml:"snap_guide_extent" validate:"gte=0"`

	// GridSize is the fallback grid for axes without a snap. 0 disables it.
	GridSize float64 `yaml:"grid_size" validate:"gte=0"`
}

// DefaultMetrics returns the standard editor metrics.
func DefaultMetrics() Metrics {
	return Metrics{
		NodeHeaderHeight:        32,
		PortSpacing:             24,
		PortRadius:              6,
		PortHitPadding:          4,
		ResizeHandleSize:        8,
		ResizeEdgeThreshold:     6,
		GroupPadding:            20,
		GroupHeaderHeight:       28,
		CollapsedSubflowWidth:   180,
		CollapsedSubflowPadding: 16,
		EdgeHitDistance:         8,
		EdgeSamples:             20,
		EdgeMinControlOffset:    50,
		SnapThreshold:           8,
		SnapGuideExtent:         1000,
		GridSize:                16,
	}
}

// PortHitRadius is the default radius used by port hit-testing.
func (m Metrics) PortHitRadius() float64 {
	return m.PortRadius + m.PortHitPadding
}

// Validate checks the metrics against their struct tags.
func (m Metrics) Validate() error {
	if err := model.Validator().Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetrics, err)
	}
	return nil
}

// ParseMetrics decodes YAML over DefaultMetrics and validates the result.
//
// Keys absent from data keep their default values.
func ParseMetrics(data []byte) (Metrics, error) {
	m := DefaultMetrics()
	if len(data) > MaxConfigFileSize {
		metricsLoadErrors.Inc()
		return m, fmt.Errorf("%w: %d bytes", ErrConfigTooLarge, len(data))
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		metricsLoadErrors.Inc()
		return DefaultMetrics(), fmt.Errorf("parse metrics: %w", err)
	}
	if err := m.Validate(); err != nil {
		metricsLoadErrors.Inc()
		return DefaultMetrics(), err
	}
	return m, nil
}

// LoadMetrics reads a YAML metrics file.
//
// # Inputs
//
//   - path: File to read. Must be at most MaxConfigFileSize bytes.
//
// # Outputs
//
//   - Metrics: Parsed metrics, or DefaultMetrics on error.
//   - error: Non-nil if the file cannot be read, parsed, or validated.
func LoadMetrics(path string) (Metrics, error) {
	info, err := os.Stat(path)
	if err != nil {
		metricsLoadErrors.Inc()
		return DefaultMetrics(), fmt.Errorf("stat metrics file: %w", err)
	}
	if info.Size() > MaxConfigFileSize {
		metricsLoadErrors.Inc()
		return DefaultMetrics(), fmt.Errorf("%w: %d bytes", ErrConfigTooLarge, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		metricsLoadErrors.Inc()
		return DefaultMetrics(), fmt.Errorf("read metrics file: %w", err)
	}
	return ParseMetrics(data)
}
