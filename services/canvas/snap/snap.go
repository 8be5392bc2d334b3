// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snap computes alignment snapping for a set of dragged nodes.
//
// # Description
//
// While nodes are dragged, the edges and centre of the dragged set's
// bounding box are compared with the edges and centre of every other node.
// The closest alignment within SnapThreshold wins independently on each
// axis, and guide lines are emitted for the winners.
//
// The threshold is in world units and does not scale with zoom, so snap
// "feel" changes with the zoom level.
//
// # Thread Safety
//
// Engine is immutable after construction and safe for concurrent use.
package snap

import (
	"math"

	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/layout"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
)

// Axis identifies the orientation of a guide line.
type Axis int

const (
	// AxisVertical lines mark an X alignment.
	AxisVertical Axis = iota
	// AxisHorizontal lines mark a Y alignment.
	AxisHorizontal
)

// String returns "vertical" or "horizontal".
func (a Axis) String() string {
	if a == AxisHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// Line is an alignment guide segment.
//
// A vertical line sits at X = Position and spans Y in [Start, End]; a
// horizontal line sits at Y = Position and spans X in [Start, End].
type Line struct {
	Axis     Axis    `json:"axis"`
	Position float64 `json:"position"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}

// Result is the outcome of a snap calculation. A nil axis means no snap on
// that axis; the caller keeps the raw or grid position.
type Result struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Lines []Line   `json:"lines"`
}

// Snapped reports whether either axis snapped.
func (r Result) Snapped() bool {
	return r.X != nil || r.Y != nil
}

// Apply returns the final anchor position. Snapped axes take the snap
// value; the others are rounded to gridSize, or kept raw when gridSize is
// not positive.
func (r Result) Apply(proposed geom.Point, gridSize float64) geom.Point {
	out := geom.Point{X: ToGrid(proposed.X, gridSize), Y: ToGrid(proposed.Y, gridSize)}
	if r.X != nil {
		out.X = *r.X
	}
	if r.Y != nil {
		out.Y = *r.Y
	}
	return out
}

// ToGrid rounds v to the nearest multiple of grid. A non-positive grid
// returns v unchanged.
func ToGrid(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// Engine computes snaps with a fixed set of layout metrics.
type Engine struct {
	threshold float64
	extent    float64
}

// New creates an Engine from the snap threshold and guide extent.
func New(m layout.Metrics) *Engine {
	return &Engine{threshold: m.SnapThreshold, extent: m.SnapGuideExtent}
}

// candidate is one qualifying alignment on a single axis.
type candidate struct {
	diff  float64
	value float64
	other geom.Bounds
}

// Calculate snaps the dragged set against every other node.
//
// # Description
//
// The dragged set's bounding box is translated by the offset between
// proposed and the anchor's original position, where the anchor is
// dragged[0]. For every other node five X alignments are checked in the
// order left-left, left-right, center-center, right-left, right-right, and
// the symmetric five on Y. A check qualifies when the gap is at most
// SnapThreshold. Per axis the smallest gap wins; exact ties keep the first
// one found.
//
// # Inputs
//
//   - dragged: Nodes being dragged, at their original positions. Not modified.
//   - all: Every node in the graph. Members of dragged are skipped.
//   - proposed: The anchor's proposed position for this frame.
//
// # Outputs
//
//   - Result: Absolute anchor coordinates for the snapped axes and up to
//     two guide lines. Empty when dragged or the candidate set is empty,
//     or when any geometry is non-finite.
func (e *Engine) Calculate(dragged, all []model.Node, proposed geom.Point) Result {
	empty := Result{Lines: []Line{}}
	if len(dragged) == 0 || !proposed.Finite() {
		return empty
	}
	anchor := dragged[0].Position
	delta := proposed.Sub(anchor)

	moved, ok := geom.BoundsOf(dragged, func(n model.Node) geom.Rect {
		return n.Bounds().Translate(delta)
	})
	if !ok {
		return empty
	}

	draggedIDs := make(map[string]struct{}, len(dragged))
	for i := range dragged {
		draggedIDs[dragged[i].ID] = struct{}{}
	}

	var bestX, bestY *candidate
	for i := range all {
		n := &all[i]
		if _, skip := draggedIDs[n.ID]; skip {
			continue
		}
		ob := n.Bounds().Bounds()
		if !ob.Finite() {
			continue
		}
		bestX = e.pick(bestX, ob, moved.MinX, moved.MaxX, ob.MinX, ob.MaxX)
		bestY = e.pick(bestY, ob, moved.MinY, moved.MaxY, ob.MinY, ob.MaxY)
	}

	res := empty
	if bestX != nil {
		x := proposed.X + bestX.diff
		res.X = &x
		res.Lines = append(res.Lines, e.guide(AxisVertical, bestX, moved.Translate(geom.Point{X: bestX.diff})))
	}
	if bestY != nil {
		y := proposed.Y + bestY.diff
		res.Y = &y
		res.Lines = append(res.Lines, e.guide(AxisHorizontal, bestY, moved.Translate(geom.Point{Y: bestY.diff})))
	}
	return res
}

// pick runs the five checks of one axis against one node and returns the
// better of best and the new qualifying candidates.
func (e *Engine) pick(best *candidate, other geom.Bounds, dMin, dMax, oMin, oMax float64) *candidate {
	dMid := (dMin + dMax) / 2
	oMid := (oMin + oMax) / 2
	checks := [5][2]float64{
		{dMin, oMin},
		{dMin, oMax},
		{dMid, oMid},
		{dMax, oMin},
		{dMax, oMax},
	}
	for _, c := range checks {
		diff := c[1] - c[0]
		if math.Abs(diff) > e.threshold {
			continue
		}
		if best == nil || math.Abs(diff) < math.Abs(best.diff) {
			best = &candidate{diff: diff, value: c[1], other: other}
		}
	}
	return best
}

// guide builds the line for a winning candidate. It spans SnapGuideExtent
// either side of the centre of the snapped box and the aligned node.
func (e *Engine) guide(axis Axis, c *candidate, snapped geom.Bounds) Line {
	union := geom.Merge(snapped, c.other)
	centre := union.Center()
	mid := centre.Y
	if axis == AxisHorizontal {
		mid = centre.X
	}
	return Line{Axis: axis, Position: c.value, Start: mid - e.extent, End: mid + e.extent}
}

