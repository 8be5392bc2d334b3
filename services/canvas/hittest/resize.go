// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hittest

import (
	"math"

	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
)

// Handle identifies one of the eight resize handles of a node.
type Handle int

const (
	HandleNone Handle = iota
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
	HandleNW
)

// String returns the compass name of the handle.
func (h Handle) String() string {
	switch h {
	case HandleN:
		return "n"
	case HandleNE:
		return "ne"
	case HandleE:
		return "e"
	case HandleSE:
		return "se"
	case HandleS:
		return "s"
	case HandleSW:
		return "sw"
	case HandleW:
		return "w"
	case HandleNW:
		return "nw"
	default:
		return "none"
	}
}

// ResizeHit is a matched resize handle.
type ResizeHit struct {
	Node   *model.Node
	Handle Handle
}

// ResizeHandle returns the resize handle under p.
//
// Only nodes listed in selectedIDs are considered, topmost first. For each
// node the four corner squares (half-extent ResizeHandleSize) are tested
// before the four edge bands (half-width ResizeEdgeThreshold). Edge bands
// exclude the corner zones, so corners always take priority.
func (e *Engine) ResizeHandle(p geom.Point, nodes []model.Node, selectedIDs []string) *ResizeHit {
	if len(selectedIDs) == 0 {
		return nil
	}
	selected := model.IDSet(selectedIDs)
	for i := len(nodes) - 1; i >= 0; i-- {
		n := &nodes[i]
		if _, ok := selected[n.ID]; !ok {
			continue
		}
		if h := e.handleOf(p, n.Bounds()); h != HandleNone {
			return &ResizeHit{Node: n, Handle: h}
		}
	}
	return nil
}

func (e *Engine) handleOf(p geom.Point, r geom.Rect) Handle {
	hs := e.metrics.ResizeHandleSize
	et := e.metrics.ResizeEdgeThreshold
	left, top := r.X, r.Y
	right, bottom := r.X+r.Width, r.Y+r.Height

	corners := []struct {
		h    Handle
		x, y float64
	}{
		{HandleNW, left, top},
		{HandleNE, right, top},
		{HandleSE, right, bottom},
		{HandleSW, left, bottom},
	}
	for _, c := range corners {
		if math.Abs(p.X-c.x) <= hs && math.Abs(p.Y-c.y) <= hs {
			return c.h
		}
	}

	insideX := p.X > left+hs && p.X < right-hs
	insideY := p.Y > top+hs && p.Y < bottom-hs
	switch {
	case insideX && math.Abs(p.Y-top) <= et:
		return HandleN
	case insideX && math.Abs(p.Y-bottom) <= et:
		return HandleS
	case insideY && math.Abs(p.X-left) <= et:
		return HandleW
	case insideY && math.Abs(p.X-right) <= et:
		return HandleE
	}
	return HandleNone
}
