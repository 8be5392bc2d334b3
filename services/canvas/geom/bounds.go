// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package geom provides the 2D primitives shared by the canvas core.
//
// It contains world/screen coordinate mapping for the viewport and
// axis-aligned bounding-box helpers for sets of positioned, sized entities.
//
// # Coordinate Spaces
//
// World coordinates are unbounded and are what node positions and sizes
// are expressed in. Screen coordinates are pixels on the render surface
// before device-pixel-ratio scaling. The viewport centre maps to the centre
// of the canvas.
//
// # Thread Safety
//
// All types are plain values and all functions are pure.
package geom

import "math"

// Point is a 2D point or vector.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool { return finite(p.X) && finite(p.Y) }

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width" yaml:"width" validate:"gte=0"`
	Height float64 `json:"height" yaml:"height" validate:"gte=0"`
}

// Rect is a positioned rectangle with its origin at the top-left corner.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// RectAt builds a Rect from a position and a size.
func RectAt(p Point, s Size) Rect {
	return Rect{X: p.X, Y: p.Y, Width: s.Width, Height: s.Height}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Bounds converts r to min/max form.
func (r Rect) Bounds() Bounds {
	return Bounds{MinX: r.X, MinY: r.Y, MaxX: r.X + r.Width, MaxY: r.Y + r.Height}
}

// Translate returns r shifted by d.
func (r Rect) Translate(d Point) Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}

// Bounds is an axis-aligned bounding box in min/max form.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Width returns MaxX - MinX.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY - MinY.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Rect converts b to origin/size form.
func (b Bounds) Rect() Rect {
	return Rect{X: b.MinX, Y: b.MinY, Width: b.Width(), Height: b.Height()}
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Intersects reports whether b and o overlap or touch.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX &&
		b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Translate returns b shifted by d.
func (b Bounds) Translate(d Point) Bounds {
	return Bounds{MinX: b.MinX + d.X, MinY: b.MinY + d.Y, MaxX: b.MaxX + d.X, MaxY: b.MaxY + d.Y}
}

// Finite reports whether every coordinate of b is a finite number.
func (b Bounds) Finite() bool {
	return finite(b.MinX) && finite(b.MinY) && finite(b.MaxX) && finite(b.MaxY)
}

// Merge returns the smallest box containing both a and b.
func Merge(a, b Bounds) Bounds {
	return Bounds{
		MinX: math.Min(a.MinX, b.MinX),
		MinY: math.Min(a.MinY, b.MinY),
		MaxX: math.Max(a.MaxX, b.MaxX),
		MaxY: math.Max(a.MaxY, b.MaxY),
	}
}

// Pad grows b by padding on every side. Negative padding shrinks it.
func Pad(b Bounds, padding float64) Bounds {
	return Bounds{
		MinX: b.MinX - padding,
		MinY: b.MinY - padding,
		MaxX: b.MaxX + padding,
		MaxY: b.MaxY + padding,
	}
}

// BoundsOf computes the bounding box of items.
//
// # Description
//
// Each item is converted to a Rect through rectOf and the rectangles are
// merged. The result is rejected when items is empty or when any
// coordinate is NaN or infinite, so callers never see NaN geometry.
//
// # Inputs
//
//   - items: Entities to enclose. Not modified.
//   - rectOf: Returns the world rectangle of one item.
//
// # Outputs
//
//   - Bounds: The enclosing box. Zero value when ok is false.
//   - bool: False for an empty set or non-finite geometry.
func BoundsOf[T any](items []T, rectOf func(T) Rect) (Bounds, bool) {
	if len(items) == 0 {
		return Bounds{}, false
	}
	out := rectOf(items[0]).Bounds()
	for _, it := range items[1:] {
		out = Merge(out, rectOf(it).Bounds())
	}
	if !out.Finite() {
		return Bounds{}, false
	}
	return out, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
