// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package interaction

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("flowcanvas.interaction")
	meter  = otel.Meter("flowcanvas.interaction")
)

var (
	resolveLatency metric.Float64Histogram
	frameLatency   metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

var (
	pointerTargets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_pointer_targets_total",
		Help: "Pointer resolutions by target kind",
	}, []string{"kind"})

	frameEdges = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "canvas_frame_edges",
		Help:    "Visible edges per rendered frame",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	dragSnaps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_drag_snaps_total",
		Help: "Drag frames that snapped, by axis",
	}, []string{"axis"})
)

// initMetrics creates the OTel instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		resolveLatency, err = meter.Float64Histogram(
			"canvas_resolve_duration_seconds",
			metric.WithDescription("Duration of pointer target resolution"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		frameLatency, err = meter.Float64Histogram(
			"canvas_frame_duration_seconds",
			metric.WithDescription("Duration of render graph recomputation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordResolve(ctx context.Context, kind Kind, duration time.Duration) {
	pointerTargets.WithLabelValues(kind.String()).Inc()
	if err := initMetrics(); err != nil {
		return
	}
	resolveLatency.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("kind", kind.String())),
	)
}

func recordFrame(ctx context.Context, edges int, duration time.Duration) {
	frameEdges.Observe(float64(edges))
	if err := initMetrics(); err != nil {
		return
	}
	frameLatency.Record(ctx, duration.Seconds())
}

func startResolveSpan(ctx context.Context, scene *Snapshot) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Resolver.Resolve",
		trace.WithAttributes(
			attribute.Int("canvas.node_count", len(scene.Nodes)),
			attribute.Int("canvas.edge_count", len(scene.Edges)),
			attribute.Float64("canvas.zoom", scene.Viewport.Zoom),
		),
	)
}

func setResolveSpanResult(span trace.Span, t Target) {
	span.SetAttributes(
		attribute.String("canvas.target_kind", t.Kind.String()),
		attribute.String("canvas.target_id", t.ID()),
	)
}
