// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_METRICS_EXPORTER", "")

	cfg := DefaultConfig()
	assert.Equal(t, "flowcanvas", cfg.ServiceName)
	assert.Equal(t, ExporterNone, cfg.TraceExporter)
	assert.Equal(t, ExporterNone, cfg.MetricExporter)
}

func TestDefaultConfig_EnvOverride(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")
	t.Setenv("OTEL_METRICS_EXPORTER", "prometheus")

	cfg := DefaultConfig()
	assert.Equal(t, ExporterStdout, cfg.TraceExporter)
	assert.Equal(t, ExporterPrometheus, cfg.MetricExporter)
}

func TestInit_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := Init(nil, DefaultConfig())
	assert.Equal(t, ErrNilContext, err)
}

func TestInit_None(t *testing.T) {
	cfg := Config{TraceExporter: ExporterNone, MetricExporter: ExporterNone}

	shutdown, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), Config{TraceExporter: "otlp", MetricExporter: ExporterNone})
	assert.True(t, errors.Is(err, ErrUnknownExporter))
	assert.Contains(t, err.Error(), "otlp")

	_, err = Init(context.Background(), Config{TraceExporter: ExporterNone, MetricExporter: "influx", Writer: io.Discard})
	assert.True(t, errors.Is(err, ErrUnknownExporter))
}

func TestInit_StdoutTraceWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{
		ServiceName:    "test",
		TraceExporter:  ExporterStdout,
		MetricExporter: ExporterNone,
		Writer:         &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "Resolver.Resolve")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "Resolver.Resolve")
}

func TestInit_PrometheusUsesRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	shutdown, err := Init(context.Background(), Config{
		ServiceName:    "test",
		TraceExporter:  ExporterNone,
		MetricExporter: ExporterPrometheus,
		Registerer:     reg,
	})
	require.NoError(t, err)
	defer shutdown(context.Background())

	counter, err := otel.Meter("test").Int64Counter("canvas_probe", metric.WithDescription("probe"))
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "canvas_probe") {
			found = true
		}
	}
	assert.True(t, found, "otel counter should be gathered from the registry")
}

func TestTraceAttrs(t *testing.T) {
	assert.Nil(t, TraceAttrs(context.Background()))

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	attrs := TraceAttrs(ctx)
	require.Len(t, attrs, 4)
	assert.Equal(t, "trace_id", attrs[0])
	assert.Equal(t, span.SpanContext().TraceID().String(), attrs[1])
	assert.Equal(t, "span_id", attrs[2])
}
