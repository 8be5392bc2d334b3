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
	"path/filepath"
	"time"

	"github.com/AleutianAI/flowcanvas/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

// sceneDebounce collapses the burst of events one editor save produces.
const sceneDebounce = 100 * time.Millisecond

// watchScene calls onChange after every debounced write to path until ctx
// is cancelled.
//
// # Description
//
// The parent directory is watched rather than the file itself, because
// many editors save by writing a temporary file and renaming it over the
// original, which drops a file-level watch. Events for other files in the
// directory are ignored.
//
// # Inputs
//
//   - ctx: Cancel to stop watching.
//   - path: Scene file.
//   - logger: Receives watcher errors.
//   - onChange: Called from the watch goroutine, never concurrently.
//
// # Outputs
//
//   - error: Nil when ctx is cancelled, otherwise the setup or watcher
//     failure.
func watchScene(ctx context.Context, path string, logger *logging.Logger, onChange func()) error {
	if logger == nil {
		logger = logging.Nop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve scene path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching scene", "path", abs)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if !sceneChanged(event, abs) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(sceneDebounce)
			} else {
				timer.Reset(sceneDebounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			logger.Debug("scene changed", "path", abs)
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// sceneChanged reports whether event rewrote the file at abs.
func sceneChanged(event fsnotify.Event, abs string) bool {
	if filepath.Clean(event.Name) != abs {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
