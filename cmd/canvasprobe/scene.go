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
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/interaction"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// MaxSceneFileSize bounds scene fixtures read from disk.
const MaxSceneFileSize = 10 * 1024 * 1024

// Scene fixture defaults for omitted fields.
const (
	defaultCanvasWidth  = 1280
	defaultCanvasHeight = 800
)

var (
	// ErrSceneTooLarge is returned when a fixture exceeds MaxSceneFileSize.
	ErrSceneTooLarge = errors.New("scene file too large")

	// ErrBadPoint is returned when a point flag cannot be parsed.
	ErrBadPoint = errors.New("point must be x,y")
)

// loadScene reads a YAML scene fixture.
//
// # Description
//
// The fixture is the interaction.Snapshot layout. A missing canvas size
// defaults to 1280x800 and a missing zoom to 1. The graph is not
// validated here; `check` reports problems and the query commands
// tolerate them.
//
// # Inputs
//
//   - path: Fixture file. Must be at most MaxSceneFileSize bytes.
//
// # Outputs
//
//   - interaction.Snapshot: The decoded scene.
//   - error: Non-nil if the file cannot be read or decoded.
func loadScene(path string) (interaction.Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return interaction.Snapshot{}, fmt.Errorf("stat scene: %w", err)
	}
	if info.Size() > MaxSceneFileSize {
		return interaction.Snapshot{}, fmt.Errorf("%w: %d bytes", ErrSceneTooLarge, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return interaction.Snapshot{}, fmt.Errorf("read scene: %w", err)
	}
	return parseScene(data)
}

// loadScenes reads several fixtures in parallel. Results are in path order;
// the first failure cancels the rest.
func loadScenes(ctx context.Context, paths []string) ([]interaction.Snapshot, error) {
	scenes := make([]interaction.Snapshot, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scene, err := loadScene(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			scenes[i] = scene
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scenes, nil
}

func parseScene(data []byte) (interaction.Snapshot, error) {
	var scene interaction.Snapshot
	if len(data) > MaxSceneFileSize {
		return scene, fmt.Errorf("%w: %d bytes", ErrSceneTooLarge, len(data))
	}
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return interaction.Snapshot{}, fmt.Errorf("parse scene: %w", err)
	}
	if scene.Canvas.Width == 0 && scene.Canvas.Height == 0 {
		scene.Canvas = geom.Size{Width: defaultCanvasWidth, Height: defaultCanvasHeight}
	}
	if scene.Viewport.Zoom == 0 {
		scene.Viewport.Zoom = 1
	}
	return scene, nil
}

// parsePoint parses "x,y".
func parsePoint(s string) (geom.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geom.Point{}, fmt.Errorf("%w: %q", ErrBadPoint, s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("%w: %q", ErrBadPoint, s)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return geom.Point{}, fmt.Errorf("%w: %q", ErrBadPoint, s)
	}
	return geom.Point{X: x, Y: y}, nil
}
