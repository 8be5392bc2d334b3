// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hittest resolves a world-space point to the topmost interactive
// entity of a node graph.
//
// # Description
//
// Node, port, group, and subflow queries walk their candidate slices in
// reverse. The last rendered entity is drawn on top, so it is tested first
// and the first match wins. Every query returns nil when nothing matches;
// none of them return errors.
//
// The queries are independent. The order in which a caller consults them
// (port before resize handle before edge, and so on) is the caller's
// responsibility; see the interaction package.
//
// # Thread Safety
//
// Engine is immutable after construction and safe for concurrent use.
// Results hold pointers into the caller's slices; do not mutate through
// them.
package hittest

import (
	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/layout"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
)

// Engine runs hit-tests with a fixed set of layout metrics.
type Engine struct {
	metrics layout.Metrics
}

// New creates an Engine.
func New(m layout.Metrics) *Engine {
	return &Engine{metrics: m}
}

// Metrics returns the engine's layout metrics.
func (e *Engine) Metrics() layout.Metrics {
	return e.metrics
}

// PortHit is a matched node port.
type PortHit struct {
	Node     *model.Node
	Port     *model.PortDefinition
	Slot     int
	IsOutput bool
	Position geom.Point
}

// GroupHit is a matched group header.
type GroupHit struct {
	Group  *model.Group
	Header geom.Rect
}

// SubflowPortHit is a matched exposed port of a collapsed subflow.
type SubflowPortHit struct {
	Subflow  *model.Subflow
	Mapping  *model.SubflowPortMapping
	Slot     int
	Position geom.Point
}

// Node returns the topmost node whose box contains p.
func (e *Engine) Node(p geom.Point, nodes []model.Node) *model.Node {
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].Bounds().Contains(p) {
			return &nodes[i]
		}
	}
	return nil
}

// Port returns the first port within hitRadius of p.
//
// # Description
//
// Nodes are scanned topmost first. Within a node the inputs (left edge)
// are tested before the outputs (right edge). A non-positive hitRadius
// selects the default of PortRadius plus PortHitPadding.
func (e *Engine) Port(p geom.Point, nodes []model.Node, hitRadius float64) *PortHit {
	if hitRadius <= 0 {
		hitRadius = e.metrics.PortHitRadius()
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		n := &nodes[i]
		if hit := e.portOf(p, n, n.Inputs, false, hitRadius); hit != nil {
			return hit
		}
		if hit := e.portOf(p, n, n.Outputs, true, hitRadius); hit != nil {
			return hit
		}
	}
	return nil
}

func (e *Engine) portOf(p geom.Point, n *model.Node, ports []model.PortDefinition, isOutput bool, r float64) *PortHit {
	for slot := range ports {
		pos := layout.PortPositionAt(n, slot, isOutput, e.metrics)
		if p.Dist(pos) <= r {
			return &PortHit{Node: n, Port: &ports[slot], Slot: slot, IsOutput: isOutput, Position: pos}
		}
	}
	return nil
}

// GroupHeader returns the topmost group whose header band contains p.
func (e *Engine) GroupHeader(p geom.Point, groups []model.Group, nodes []model.Node) *GroupHit {
	idx := model.IndexNodes(nodes)
	for i := len(groups) - 1; i >= 0; i-- {
		if hit := e.groupHeaderOf(p, &groups[i], idx); hit != nil {
			return hit
		}
	}
	return nil
}

// Groups returns every group whose header band contains p, topmost first.
func (e *Engine) Groups(p geom.Point, groups []model.Group, nodes []model.Node) []GroupHit {
	idx := model.IndexNodes(nodes)
	var hits []GroupHit
	for i := len(groups) - 1; i >= 0; i-- {
		if hit := e.groupHeaderOf(p, &groups[i], idx); hit != nil {
			hits = append(hits, *hit)
		}
	}
	return hits
}

func (e *Engine) groupHeaderOf(p geom.Point, g *model.Group, idx map[string]*model.Node) *GroupHit {
	header, ok := layout.GroupHeaderRect(g, idx, e.metrics)
	if !ok || !header.Contains(p) {
		return nil
	}
	return &GroupHit{Group: g, Header: header}
}

// CollapsedSubflow returns the topmost collapsed subflow whose box
// contains p. Expanded subflows are ignored.
func (e *Engine) CollapsedSubflow(p geom.Point, subflows []model.Subflow, nodes []model.Node) *model.Subflow {
	idx := model.IndexNodes(nodes)
	for i := len(subflows) - 1; i >= 0; i-- {
		sf := &subflows[i]
		if !sf.Collapsed {
			continue
		}
		box, ok := layout.CollapsedRect(sf, idx, e.metrics)
		if ok && box.Contains(p) {
			return sf
		}
	}
	return nil
}

// SubflowPort returns the first exposed port of a collapsed subflow within
// hitRadius of p. Inputs are tested before outputs.
func (e *Engine) SubflowPort(p geom.Point, subflows []model.Subflow, nodes []model.Node, hitRadius float64) *SubflowPortHit {
	if hitRadius <= 0 {
		hitRadius = e.metrics.PortHitRadius()
	}
	idx := model.IndexNodes(nodes)
	for i := len(subflows) - 1; i >= 0; i-- {
		sf := &subflows[i]
		if !sf.Collapsed {
			continue
		}
		box, ok := layout.CollapsedRect(sf, idx, e.metrics)
		if !ok {
			continue
		}
		if hit := e.subflowPortOf(p, sf, box, sf.InputMappings, false, hitRadius); hit != nil {
			return hit
		}
		if hit := e.subflowPortOf(p, sf, box, sf.OutputMappings, true, hitRadius); hit != nil {
			return hit
		}
	}
	return nil
}

func (e *Engine) subflowPortOf(p geom.Point, sf *model.Subflow, box geom.Rect, mappings []model.SubflowPortMapping, isOutput bool, r float64) *SubflowPortHit {
	for slot := range mappings {
		pos := layout.SubflowPortPosition(box, slot, isOutput, e.metrics)
		if p.Dist(pos) <= r {
			return &SubflowPortHit{Subflow: sf, Mapping: &mappings[slot], Slot: slot, Position: pos}
		}
	}
	return nil
}
