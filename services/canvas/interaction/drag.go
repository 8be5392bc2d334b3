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
	"errors"
	"fmt"

	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/layout"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
	"github.com/AleutianAI/flowcanvas/services/canvas/snap"
	"github.com/AleutianAI/flowcanvas/services/canvas/subflow"
)

var (
	// ErrNothingToDrag is returned when no requested ID is draggable.
	ErrNothingToDrag = errors.New("nothing to drag")

	// ErrInvalidPoint is returned for a non-finite drag start.
	ErrInvalidPoint = errors.New("drag start is not a finite point")
)

// DragSession tracks one drag gesture.
//
// The dragged set is captured at BeginDrag. Each Update recomputes the
// snap against the snapshot's other visible nodes; nothing carries over
// between frames except the original positions.
type DragSession struct {
	snapper *snap.Engine
	grid    float64
	dragged []model.Node
	others  []model.Node
	start   geom.Point
	origin  geom.Point
}

// DragFrame is the outcome of one pointer move.
type DragFrame struct {
	// Anchor is the final position of the first dragged item.
	Anchor geom.Point
	// Offset is Anchor minus its original position. Apply it to every
	// dragged item.
	Offset geom.Point
	// Snap holds the snapped axes and guide lines.
	Snap snap.Result
}

// BeginDrag starts a drag of the given items from worldStart.
//
// # Description
//
// IDs may name visible nodes or collapsed subflows; a collapsed subflow is
// dragged as its box. Unknown or hidden IDs are skipped. The first
// resolvable ID is the anchor.
//
// # Outputs
//
//   - *DragSession: The session.
//   - error: ErrNothingToDrag or ErrInvalidPoint.
func (r *Resolver) BeginDrag(scene Snapshot, ids []string, worldStart geom.Point) (*DragSession, error) {
	if !worldStart.Finite() {
		return nil, ErrInvalidPoint
	}
	visible := subflow.VisibleNodes(scene.Nodes, scene.Subflows)
	boxes := collapsedNodes(scene.Subflows, scene.Nodes, r.metrics)

	byID := model.IndexNodes(visible)
	for id, n := range boxes {
		byID[id] = n
	}

	s := &DragSession{
		snapper: r.snapper,
		grid:    r.metrics.GridSize,
		start:   worldStart,
	}
	picked := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		n, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := picked[id]; dup {
			continue
		}
		picked[id] = struct{}{}
		s.dragged = append(s.dragged, *n)
	}
	if len(s.dragged) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNothingToDrag, ids)
	}
	s.origin = s.dragged[0].Position

	s.others = make([]model.Node, 0, len(visible)+len(boxes))
	s.others = append(s.others, visible...)
	for i := range scene.Subflows {
		if n, ok := boxes[scene.Subflows[i].ID]; ok {
			s.others = append(s.others, *n)
		}
	}

	r.logger.Debug("drag started", "items", len(s.dragged), "anchor", s.dragged[0].ID)
	return s, nil
}

// collapsedNodes turns every drawable collapsed subflow box into a plain
// node so it can be dragged and snapped against.
func collapsedNodes(subflows []model.Subflow, nodes []model.Node, m layout.Metrics) map[string]*model.Node {
	loc := layout.NewLocator(nodes, subflows, m)
	out := make(map[string]*model.Node)
	for i := range subflows {
		sf := &subflows[i]
		box, ok := loc.CollapsedBox(sf.ID)
		if !ok {
			continue
		}
		out[sf.ID] = &model.Node{
			ID:       sf.ID,
			Position: geom.Point{X: box.X, Y: box.Y},
			Size:     geom.Size{Width: box.Width, Height: box.Height},
		}
	}
	return out
}

// Dragged returns the IDs being dragged, anchor first.
func (s *DragSession) Dragged() []string {
	ids := make([]string, len(s.dragged))
	for i := range s.dragged {
		ids[i] = s.dragged[i].ID
	}
	return ids
}

// SetGrid overrides the grid used for unsnapped axes. Zero disables it.
func (s *DragSession) SetGrid(size float64) {
	s.grid = size
}

// Update computes the frame for a pointer at world.
//
// Axes that snap take the snap position; the others fall back to the
// grid. A non-finite pointer leaves the items where they started.
func (s *DragSession) Update(world geom.Point) DragFrame {
	if !world.Finite() {
		return DragFrame{Anchor: s.origin, Snap: snap.Result{Lines: []snap.Line{}}}
	}
	proposed := s.origin.Add(world.Sub(s.start))
	res := s.snapper.Calculate(s.dragged, s.others, proposed)
	anchor := res.Apply(proposed, s.grid)

	if res.X != nil {
		dragSnaps.WithLabelValues(snap.AxisVertical.String()).Inc()
	}
	if res.Y != nil {
		dragSnaps.WithLabelValues(snap.AxisHorizontal.String()).Inc()
	}
	return DragFrame{Anchor: anchor, Offset: anchor.Sub(s.origin), Snap: res}
}

// Positions returns the new position of every dragged item for f.
func (s *DragSession) Positions(f DragFrame) map[string]geom.Point {
	out := make(map[string]geom.Point, len(s.dragged))
	for i := range s.dragged {
		out[s.dragged[i].ID] = s.dragged[i].Position.Add(f.Offset)
	}
	return out
}
