// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package interaction composes the canvas query engines into the calls an
// editor makes per pointer event and per frame.
//
// # Description
//
// Resolver answers "what is under the pointer" by consulting the hit-test
// queries in a fixed priority order against the virtualized graph:
//
//	port > subflow port > resize handle > edge > group header >
//	collapsed subflow > node > empty space
//
// Frame recomputes the renderable graph, and DragSession recomputes snap
// guides for every pointer move of a drag.
//
// Nothing is cached between calls. Every call takes a Snapshot and treats
// it as read-only, so a stale or inconsistent snapshot degrades to fewer
// matches instead of errors.
//
// # Thread Safety
//
// Resolver is immutable after construction and safe for concurrent use.
// A DragSession belongs to one drag gesture and is not.
package interaction

import (
	"context"
	"time"

	"github.com/AleutianAI/flowcanvas/pkg/logging"
	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/hittest"
	"github.com/AleutianAI/flowcanvas/services/canvas/layout"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
	"github.com/AleutianAI/flowcanvas/services/canvas/snap"
	"github.com/AleutianAI/flowcanvas/services/canvas/subflow"
	"github.com/AleutianAI/flowcanvas/services/canvas/telemetry"
)

// Snapshot is the editor state one query runs against.
type Snapshot struct {
	Nodes    []model.Node    `json:"nodes" yaml:"nodes"`
	Edges    []model.Edge    `json:"edges" yaml:"edges"`
	Groups   []model.Group   `json:"groups" yaml:"groups"`
	Subflows []model.Subflow `json:"subflows" yaml:"subflows"`

	Viewport geom.Viewport `json:"viewport" yaml:"viewport"`
	Canvas   geom.Size     `json:"canvas" yaml:"canvas"`

	// Selected lists node IDs with visible resize handles.
	Selected []string `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// Resolver runs pointer and frame queries with one set of metrics.
type Resolver struct {
	metrics layout.Metrics
	hits    *hittest.Engine
	snapper *snap.Engine
	logger  *logging.Logger
}

// NewResolver creates a Resolver. A nil logger discards output.
func NewResolver(m layout.Metrics, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Resolver{
		metrics: m,
		hits:    hittest.New(m),
		snapper: snap.New(m),
		logger:  logger.With("component", "interaction"),
	}
}

// Metrics returns the resolver's layout metrics.
func (r *Resolver) Metrics() layout.Metrics {
	return r.metrics
}

// view is the virtualized graph derived from one snapshot.
type view struct {
	nodes    []model.Node
	rendered []subflow.RenderedEdge
	edges    []model.Edge
	locator  *layout.Locator
}

func (r *Resolver) virtualize(scene *Snapshot) view {
	rendered := subflow.VisibleEdges(subflow.ResolveEdgeEndpoints(scene.Edges, scene.Subflows))
	edges := make([]model.Edge, len(rendered))
	for i := range rendered {
		edges[i] = rendered[i].AsEdge()
	}
	return view{
		nodes:    subflow.VisibleNodes(scene.Nodes, scene.Subflows),
		rendered: rendered,
		edges:    edges,
		locator:  layout.NewLocator(scene.Nodes, scene.Subflows, r.metrics),
	}
}

// Resolve returns the entity under a screen-space pointer.
//
// # Description
//
// The pointer is converted to world space and tested against the visible
// graph: members of collapsed subflows are skipped, edges are drawn to
// their rewritten endpoints, and hidden edges are ignored. The first
// query in priority order to match wins.
//
// # Inputs
//
//   - ctx: Carries the trace span. Resolve never blocks on it.
//   - scene: Current editor state. Not modified.
//   - screen: Pointer position in canvas pixels.
//
// # Outputs
//
//   - Target: Kind and the matching hit. KindEmpty when nothing matches,
//     the viewport is invalid, or the pointer is not finite.
func (r *Resolver) Resolve(ctx context.Context, scene Snapshot, screen geom.Point) Target {
	start := time.Now()
	ctx, span := startResolveSpan(ctx, &scene)
	defer span.End()

	t := r.resolve(&scene, screen)

	setResolveSpanResult(span, t)
	recordResolve(ctx, t.Kind, time.Since(start))
	if r.logger.Enabled(logging.LevelDebug) {
		args := []any{"kind", t.Kind.String(), "id", t.ID(), "x", t.World.X, "y", t.World.Y}
		r.logger.Debug("pointer resolved", append(args, telemetry.TraceAttrs(ctx)...)...)
	}
	return t
}

func (r *Resolver) resolve(scene *Snapshot, screen geom.Point) Target {
	if !scene.Viewport.Valid() || !screen.Finite() {
		return Target{Kind: KindEmpty}
	}
	p := geom.ScreenToWorld(screen, scene.Viewport, scene.Canvas)
	v := r.virtualize(scene)

	if hit := r.hits.Port(p, v.nodes, 0); hit != nil {
		return Target{Kind: KindPort, World: p, Port: hit}
	}
	if hit := r.hits.SubflowPort(p, scene.Subflows, scene.Nodes, 0); hit != nil {
		return Target{Kind: KindSubflowPort, World: p, SubflowPort: hit}
	}
	if hit := r.hits.ResizeHandle(p, v.nodes, scene.Selected); hit != nil {
		return Target{Kind: KindResizeHandle, World: p, Resize: hit}
	}
	if hit := r.hits.EdgeWith(p, v.edges, v.locator, 0); hit != nil {
		for i := range v.edges {
			if &v.edges[i] == hit.Edge {
				return Target{Kind: KindEdge, World: p, Edge: &v.rendered[i], EdgeHit: hit}
			}
		}
	}
	if hit := r.hits.GroupHeader(p, scene.Groups, v.nodes); hit != nil {
		return Target{Kind: KindGroupHeader, World: p, Group: hit}
	}
	if sf := r.hits.CollapsedSubflow(p, scene.Subflows, scene.Nodes); sf != nil {
		return Target{Kind: KindCollapsedSubflow, World: p, Subflow: sf}
	}
	if n := r.hits.Node(p, v.nodes); n != nil {
		return Target{Kind: KindNode, World: p, Node: n}
	}
	return Target{Kind: KindEmpty, World: p}
}

// CollapsedBox is a collapsed subflow with its world box.
type CollapsedBox struct {
	Subflow *model.Subflow
	Box     geom.Rect
}

// Frame is the renderable graph for one frame.
type Frame struct {
	// Nodes are the visible nodes, in input order.
	Nodes []model.Node
	// Edges are the visible edges with endpoints rewritten onto collapsed
	// subflow ports where needed.
	Edges []subflow.RenderedEdge
	// Collapsed are the drawable collapsed subflow boxes, in input order.
	Collapsed []CollapsedBox
	// View is the world rectangle currently on screen.
	View geom.Bounds
	// InView counts visible nodes intersecting View.
	InView int
}

// Frame recomputes the renderable graph from scene.
func (r *Resolver) Frame(ctx context.Context, scene Snapshot) Frame {
	start := time.Now()
	v := r.virtualize(&scene)

	f := Frame{Nodes: v.nodes, Edges: v.rendered}
	for i := range scene.Subflows {
		sf := &scene.Subflows[i]
		if !sf.Collapsed {
			continue
		}
		if box, ok := v.locator.CollapsedBox(sf.ID); ok {
			f.Collapsed = append(f.Collapsed, CollapsedBox{Subflow: sf, Box: box})
		}
	}
	if scene.Viewport.Valid() {
		f.View = geom.ViewportBounds(scene.Viewport, scene.Canvas)
		for i := range f.Nodes {
			if f.Nodes[i].Bounds().Bounds().Intersects(f.View) {
				f.InView++
			}
		}
	}

	recordFrame(ctx, len(f.Edges), time.Since(start))
	r.logger.Debug("frame computed",
		"nodes", len(f.Nodes),
		"edges", len(f.Edges),
		"hidden_edges", len(scene.Edges)-len(f.Edges),
		"collapsed", len(f.Collapsed),
	)
	return f
}
