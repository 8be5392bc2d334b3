// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package geom

import "math"

// Zoom limits applied by ZoomAround.
const (
	MinZoom = 0.1
	MaxZoom = 5.0
)

// Viewport is the world point shown at the canvas centre plus a scale.
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// Valid reports whether the viewport can be used for coordinate mapping.
func (v Viewport) Valid() bool {
	return finite(v.X) && finite(v.Y) && finite(v.Zoom) && v.Zoom > 0
}

// WorldToScreen maps a world point to canvas pixels.
func WorldToScreen(p Point, vp Viewport, canvas Size) Point {
	return Point{
		X: (p.X-vp.X)*vp.Zoom + canvas.Width/2,
		Y: (p.Y-vp.Y)*vp.Zoom + canvas.Height/2,
	}
}

// ScreenToWorld maps canvas pixels to a world point.
//
// It is the algebraic inverse of WorldToScreen for any zoom > 0.
func ScreenToWorld(p Point, vp Viewport, canvas Size) Point {
	return Point{
		X: (p.X-canvas.Width/2)/vp.Zoom + vp.X,
		Y: (p.Y-canvas.Height/2)/vp.Zoom + vp.Y,
	}
}

// ViewportBounds returns the world-space box visible on the canvas.
func ViewportBounds(vp Viewport, canvas Size) Bounds {
	halfW := canvas.Width / 2 / vp.Zoom
	halfH := canvas.Height / 2 / vp.Zoom
	return Bounds{
		MinX: vp.X - halfW,
		MinY: vp.Y - halfH,
		MaxX: vp.X + halfW,
		MaxY: vp.Y + halfH,
	}
}

// Pan moves the viewport so content follows a screen-space drag delta.
func Pan(vp Viewport, screenDelta Point) Viewport {
	if vp.Zoom <= 0 {
		return vp
	}
	vp.X -= screenDelta.X / vp.Zoom
	vp.Y -= screenDelta.Y / vp.Zoom
	return vp
}

// ZoomAround scales the viewport by factor while keeping the world point
// under anchor (screen space) fixed. The new zoom is clamped to
// [MinZoom, MaxZoom]; a non-positive factor leaves vp unchanged.
func ZoomAround(vp Viewport, canvas Size, anchor Point, factor float64) Viewport {
	if !vp.Valid() || factor <= 0 || !finite(factor) {
		return vp
	}
	before := ScreenToWorld(anchor, vp, canvas)
	next := vp
	next.Zoom = math.Max(MinZoom, math.Min(MaxZoom, vp.Zoom*factor))
	after := ScreenToWorld(anchor, next, canvas)
	next.X += before.X - after.X
	next.Y += before.Y - after.Y
	return next
}
