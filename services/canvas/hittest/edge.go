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
	"github.com/AleutianAI/flowcanvas/services/canvas/layout"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
	"honnef.co/go/curve"
)

// nearestAccuracy is the parameter tolerance handed to the exact
// nearest-point solver when EdgeRefine is on.
const nearestAccuracy = 1e-9

// EdgeHit is a matched edge.
type EdgeHit struct {
	Edge     *model.Edge
	Distance float64
	T        float64
}

// Curve is the cubic bezier an edge is drawn as.
type Curve struct {
	curve.CubicBez
}

func toCurvePoint(p geom.Point) curve.Point {
	return curve.Point{X: p.X, Y: p.Y}
}

func fromCurvePoint(p curve.Point) geom.Point {
	return geom.Point{X: p.X, Y: p.Y}
}

// EdgeCurve builds the curve between an output port at from and an input
// port at to. Both control points extend horizontally by
// max(minOffset, 0.5·|Δx|).
func EdgeCurve(from, to geom.Point, minOffset float64) Curve {
	offset := math.Max(minOffset, 0.5*math.Abs(to.X-from.X))
	return Curve{curve.CubicBez{
		P0: toCurvePoint(from),
		P1: toCurvePoint(geom.Point{X: from.X + offset, Y: from.Y}),
		P2: toCurvePoint(geom.Point{X: to.X - offset, Y: to.Y}),
		P3: toCurvePoint(to),
	}}
}

// At evaluates the curve at parameter t in [0, 1].
func (c Curve) At(t float64) geom.Point {
	return fromCurvePoint(c.Eval(t))
}

// NearestSample returns the smallest distance from p to the curve sampled
// at t = i/samples for i in 0..samples, and the parameter of that sample.
func (c Curve) NearestSample(p geom.Point, samples int) (float64, float64) {
	if samples < 1 {
		samples = 1
	}
	best, bestT := math.Inf(1), 0.0
	for i := 0; i <= samples; i++ {
		t := float64(i) / float64(samples)
		if d := p.Dist(c.At(t)); d < best {
			best, bestT = d, t
		}
	}
	return best, bestT
}

// Distance returns the approximate distance from p to the curve. With
// refine set, the exact nearest point replaces the best sample when it is
// closer, so refining can only lower the result.
func (c Curve) Distance(p geom.Point, samples int, refine bool) (float64, float64) {
	d, t := c.NearestSample(p, samples)
	if !refine {
		return d, t
	}
	distSq, nt := c.Nearest(toCurvePoint(p), nearestAccuracy)
	if nd := math.Sqrt(distSq); nd < d {
		return nd, nt
	}
	return d, t
}

// Edge returns the first edge whose curve passes within hitDistance of p.
//
// # Description
//
// Endpoints are resolved against nodes only. Use EdgeWith to include
// edges rewritten onto collapsed subflow ports. A non-positive
// hitDistance selects EdgeHitDistance from the metrics.
func (e *Engine) Edge(p geom.Point, edges []model.Edge, nodes []model.Node, hitDistance float64) *EdgeHit {
	return e.EdgeWith(p, edges, layout.NewLocator(nodes, nil, e.metrics), hitDistance)
}

// EdgeWith returns the first edge whose curve passes within hitDistance
// of p, resolving endpoints through loc.
//
// # Description
//
// Each edge is drawn as a cubic bezier from its source output port to its
// target input port. The curve is sampled at EdgeSamples uniform steps and
// the smallest sample distance is compared with hitDistance. This is an
// approximation whose accuracy scales with the sample count; EdgeRefine
// adds a local minimisation on top of it.
//
// Edges are scanned in slice order and the first one within range wins.
// Edges whose endpoints cannot be resolved are skipped.
//
// # Inputs
//
//   - p: World-space pointer position.
//   - edges: Candidate edges. Not modified.
//   - loc: Endpoint resolver for the current snapshot.
//   - hitDistance: Maximum distance; <= 0 selects the default.
//
// # Outputs
//
//   - *EdgeHit: The matched edge, or nil.
func (e *Engine) EdgeWith(p geom.Point, edges []model.Edge, loc layout.PortLocator, hitDistance float64) *EdgeHit {
	if hitDistance <= 0 {
		hitDistance = e.metrics.EdgeHitDistance
	}
	for i := range edges {
		edge := &edges[i]
		from, ok := loc.PortPosition(edge.Source, edge.SourcePort, true)
		if !ok {
			continue
		}
		to, ok := loc.PortPosition(edge.Target, edge.TargetPort, false)
		if !ok {
			continue
		}
		bez := EdgeCurve(from, to, e.metrics.EdgeMinControlOffset)
		d, t := bez.Distance(p, e.metrics.EdgeSamples, e.metrics.EdgeRefine)
		if d <= hitDistance {
			return &EdgeHit{Edge: edge, Distance: d, T: t}
		}
	}
	return nil
}
