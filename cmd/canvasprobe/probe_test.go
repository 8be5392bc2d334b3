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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/interaction"
	"github.com/AleutianAI/flowcanvas/services/canvas/layout"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoNodeScene = `
nodes:
  - id: n1
    position: {x: 0, y: 0}
    size: {width: 100, height: 80}
    inputs:
      - {id: in, name: In, dataType: number}
    outputs:
      - {id: out, name: Out, dataType: number}
  - id: n2
    position: {x: 300, y: 0}
    size: {width: 100, height: 80}
    inputs:
      - {id: in, name: In, dataType: number}
    outputs:
      - {id: out, name: Out, dataType: number}
edges:
  - {id: e1, source: n1, sourcePort: out, target: n2, targetPort: in}
`

// collapsedScene folds n2 and n3 into s1. Only n2.in is exposed.
const collapsedScene = `
nodes:
  - id: n1
    position: {x: 0, y: 0}
    size: {width: 100, height: 80}
    inputs:
      - {id: in, name: In, dataType: number}
    outputs:
      - {id: out, name: Out, dataType: number}
  - id: n2
    position: {x: 300, y: 0}
    size: {width: 100, height: 80}
    inputs:
      - {id: in, name: In, dataType: number}
    outputs:
      - {id: out, name: Out, dataType: number}
  - id: n3
    position: {x: 300, y: 200}
    size: {width: 100, height: 80}
    inputs:
      - {id: in, name: In, dataType: number}
edges:
  - {id: e1, source: n1, sourcePort: out, target: n2, targetPort: in}
subflows:
  - id: s1
    name: Tail
    nodeIds: [n2, n3]
    collapsed: true
    inputMappings:
      - {exposedPortId: x-in, exposedPortName: In, internalNodeId: n2, internalPortId: in, dataType: number}
`

func writeScene(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testApp(jsonMode bool) (*app, *bytes.Buffer) {
	var out bytes.Buffer
	return newApp(&out, nil, layout.DefaultMetrics(), jsonMode), &out
}

// =============================================================================
// Scene Loading Tests
// =============================================================================

func TestParseScene_Defaults(t *testing.T) {
	scene, err := parseScene([]byte(twoNodeScene))
	require.NoError(t, err)

	assert.Len(t, scene.Nodes, 2)
	assert.Len(t, scene.Edges, 1)
	assert.Equal(t, geom.Size{Width: 1280, Height: 800}, scene.Canvas)
	assert.Equal(t, 1.0, scene.Viewport.Zoom)
	assert.Equal(t, "number", string(scene.Nodes[0].Inputs[0].DataType))
}

func TestParseScene_KeepsExplicitView(t *testing.T) {
	scene, err := parseScene([]byte(`
viewport: {x: 10, y: 20, zoom: 2}
canvas: {width: 640, height: 480}
`))
	require.NoError(t, err)

	assert.Equal(t, geom.Viewport{X: 10, Y: 20, Zoom: 2}, scene.Viewport)
	assert.Equal(t, geom.Size{Width: 640, Height: 480}, scene.Canvas)
}

func TestParseScene_Errors(t *testing.T) {
	_, err := parseScene([]byte("nodes: [unclosed"))
	assert.Error(t, err)

	_, err = parseScene(make([]byte, MaxSceneFileSize+1))
	assert.ErrorIs(t, err, ErrSceneTooLarge)
}

func TestLoadScene(t *testing.T) {
	scene, err := loadScene(writeScene(t, collapsedScene))
	require.NoError(t, err)
	require.Len(t, scene.Subflows, 1)
	assert.True(t, scene.Subflows[0].Collapsed)

	_, err = loadScene(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadScenes_KeepsOrder(t *testing.T) {
	first := writeScene(t, twoNodeScene)
	second := writeScene(t, collapsedScene)

	scenes, err := loadScenes(context.Background(), []string{second, first})
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Len(t, scenes[0].Subflows, 1)
	assert.Empty(t, scenes[1].Subflows)

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	_, err = loadScenes(context.Background(), []string{first, missing})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), missing)
}

func TestLoadScene_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.yaml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxSceneFileSize+1))
	require.NoError(t, f.Close())

	_, err = loadScene(path)
	assert.ErrorIs(t, err, ErrSceneTooLarge)
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    geom.Point
		wantErr bool
	}{
		{"10,20", geom.Point{X: 10, Y: 20}, false},
		{" -1.5 , 2 ", geom.Point{X: -1.5, Y: 2}, false},
		{"10", geom.Point{}, true},
		{"a,2", geom.Point{}, true},
		{"1,b", geom.Point{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePoint(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadPoint)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// Command Logic Tests
// =============================================================================

func TestHit(t *testing.T) {
	a, _ := testApp(false)
	scene, err := parseScene([]byte(twoNodeScene))
	require.NoError(t, err)

	// Canvas centre (640,400) is world origin at zoom 1.
	res := a.hit(context.Background(), scene, geom.Point{X: 690, Y: 440})
	assert.Equal(t, "node", res.Kind)
	assert.Equal(t, "drag", res.Mode)
	assert.Equal(t, "n1", res.ID)
	assert.Equal(t, geom.Point{X: 50, Y: 40}, res.World)

	res = a.hit(context.Background(), scene, geom.Point{X: 10, Y: 10})
	assert.Equal(t, "empty", res.Kind)
	assert.Equal(t, "pan", res.Mode)
	assert.Empty(t, res.ID)
}

func TestHit_CollapsedSubflow(t *testing.T) {
	a, _ := testApp(false)
	scene, err := parseScene([]byte(collapsedScene))
	require.NoError(t, err)

	// n2 is hidden; its box now belongs to the collapsed subflow.
	res := a.hit(context.Background(), scene, geom.Point{X: 640 + 380, Y: 400 + 60})
	assert.Equal(t, "collapsed_subflow", res.Kind)
	assert.Equal(t, "s1", res.ID)
}

func TestDrag_SnapsAndReportsPositions(t *testing.T) {
	a, _ := testApp(false)
	scene, err := parseScene([]byte(twoNodeScene))
	require.NoError(t, err)

	res, err := a.drag(scene, []string{"n1"}, geom.Point{X: 96, Y: 4}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"n1"}, res.Dragged)
	assert.Nil(t, res.Snap.X)
	require.NotNil(t, res.Snap.Y)
	assert.Equal(t, 0.0, *res.Snap.Y)
	assert.Equal(t, geom.Point{X: 96, Y: 0}, res.Anchor)
	assert.Equal(t, geom.Point{X: 96, Y: 0}, res.Positions["n1"])
	assert.NotEmpty(t, res.Snap.Lines)
}

func TestDrag_UnknownID(t *testing.T) {
	a, _ := testApp(false)
	scene, err := parseScene([]byte(twoNodeScene))
	require.NoError(t, err)

	_, err = a.drag(scene, []string{"ghost"}, geom.Point{}, -1)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	a, _ := testApp(false)

	expanded, err := parseScene([]byte(twoNodeScene))
	require.NoError(t, err)
	res := a.render(context.Background(), expanded)
	assert.Equal(t, []string{"n1", "n2"}, res.Nodes)
	require.Len(t, res.Edges, 1)
	assert.Equal(t, renderEdge{ID: "e1", Source: "n1.out", Target: "n2.in"}, res.Edges[0])
	assert.Equal(t, 0, res.HiddenEdges)
	assert.Equal(t, 2, res.InView)
	assert.Empty(t, res.Collapsed)

	collapsed, err := parseScene([]byte(collapsedScene))
	require.NoError(t, err)
	res = a.render(context.Background(), collapsed)
	assert.Equal(t, []string{"n1"}, res.Nodes)
	require.Len(t, res.Edges, 1)
	assert.Equal(t, "s1.x-in", res.Edges[0].Target)
	require.Len(t, res.Collapsed, 1)
	assert.Equal(t, "s1", res.Collapsed[0].ID)
	assert.Equal(t, 300.0, res.Collapsed[0].X)
}

func TestCheck(t *testing.T) {
	a, _ := testApp(false)

	good, err := parseScene([]byte(collapsedScene))
	require.NoError(t, err)
	assert.Empty(t, a.check(good).Findings)

	bad, err := parseScene([]byte(collapsedScene + `
  - id: s2
    name: Overlap
    nodeIds: [n2, ghost]
    collapsed: true
`))
	require.NoError(t, err)
	res := a.check(bad)
	require.Len(t, res.Findings, 2)
	assert.Contains(t, res.Findings[0], "another collapsed subflow")
	assert.Contains(t, res.Findings[1], "ghost")
	assert.Equal(t, 2, res.Subflows)
}

func TestCheck_SingleMemberSubflow(t *testing.T) {
	a, _ := testApp(false)
	scene, err := parseScene([]byte(twoNodeScene + `
subflows:
  - {id: s1, name: Solo, nodeIds: [n2]}
`))
	require.NoError(t, err)

	res := a.check(scene)
	require.Len(t, res.Findings, 1)
	assert.Contains(t, res.Findings[0], `subflow "s1"`)
}

func TestCheck_InvalidGraph(t *testing.T) {
	a, _ := testApp(false)
	scene, err := parseScene([]byte(twoNodeScene + `
  - {id: e2, source: n1, sourcePort: nope, target: n2, targetPort: in}
`))
	require.NoError(t, err)

	res := a.check(scene)
	require.Len(t, res.Findings, 1)
	assert.Contains(t, res.Findings[0], "nope")
}

// =============================================================================
// Output Tests
// =============================================================================

func TestExitCode(t *testing.T) {
	assert.Equal(t, CLIExitSuccess, exitCode(nil))
	assert.Equal(t, CLIExitFindings, exitCode(errFindings))
	assert.Equal(t, CLIExitError, exitCode(errors.New("boom")))
}

func withProbe(t *testing.T, a *app) *cobra.Command {
	t.Helper()
	probe = a
	t.Cleanup(func() { probe = nil })
	cmd := &cobra.Command{Use: "check"}
	cmd.SetContext(context.Background())
	return cmd
}

func TestRunScene_JSONFindings(t *testing.T) {
	a, out := testApp(true)
	cmd := withProbe(t, a)
	path := writeScene(t, twoNodeScene+`
subflows:
  - {id: s1, name: S, nodeIds: [ghost]}
`)

	err := runScene(cmd, path, func(_ context.Context, scene interaction.Snapshot) (any, error) {
		res := probe.check(scene)
		return res, errFindings
	})
	assert.Equal(t, CLIExitFindings, exitCode(err))

	var result CommandResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "check", result.Command)
	assert.Equal(t, path, result.Scene)
	assert.False(t, result.Success)
	assert.Equal(t, errFindings.Error(), result.Error)
	assert.NotNil(t, result.Data)
}

func TestRunScene_PlainOutput(t *testing.T) {
	a, out := testApp(false)
	cmd := withProbe(t, a)
	path := writeScene(t, twoNodeScene)

	err := runScene(cmd, path, func(ctx context.Context, scene interaction.Snapshot) (any, error) {
		return probe.hit(ctx, scene, geom.Point{X: 690, Y: 440}), nil
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Hit node")
	assert.Contains(t, text, "n1")
	assert.NotContains(t, text, "\x1b[")
}

func TestRunScene_LoadError(t *testing.T) {
	a, out := testApp(false)
	cmd := withProbe(t, a)

	err := runScene(cmd, filepath.Join(t.TempDir(), "missing.yaml"), func(context.Context, interaction.Snapshot) (any, error) {
		t.Fatal("must not run without a scene")
		return nil, nil
	})
	assert.Equal(t, CLIExitError, exitCode(err))
	assert.Contains(t, out.String(), "stat scene")
}

func TestWriteMetrics_FiltersCanvasFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	canvas := prometheus.NewCounter(prometheus.CounterOpts{Name: "canvas_probe_test_total", Help: "t"})
	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "other_total", Help: "t"})
	reg.MustRegister(canvas, other)
	canvas.Add(3)
	other.Inc()

	var buf bytes.Buffer
	require.NoError(t, writeMetrics(&buf, reg))

	assert.Contains(t, buf.String(), "canvas_probe_test_total 3")
	assert.NotContains(t, buf.String(), "other_total")
}

// =============================================================================
// Watch Tests
// =============================================================================

func TestSceneChanged(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "scene.yaml")
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: abs, Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: abs, Op: fsnotify.Create}, true},
		{"chmod", fsnotify.Event{Name: abs, Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: abs + ".swp", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sceneChanged(tt.event, abs))
		})
	}
}

func TestWatchScene_CallsOnWrite(t *testing.T) {
	path := writeScene(t, twoNodeScene)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchScene(ctx, path, nil, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Keep writing until the watcher is registered and reports a change.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(3 * sceneDebounce)
	defer tick.Stop()
	for waiting := true; waiting; {
		select {
		case <-changed:
			waiting = false
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(strings.Replace(twoNodeScene, "300", "320", 1)), 0o644))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
