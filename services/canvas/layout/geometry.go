// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package layout

import (
	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
)

// =============================================================================
// Node Ports
// =============================================================================

// PortSlot returns the visual slot of portID within ports, or -1.
//
// Slot assignment lives only here; every position below goes through it.
// An explicit per-port slot table would replace this lookup without
// touching callers.
func PortSlot(ports []model.PortDefinition, portID string) int {
	for i := range ports {
		if ports[i].ID == portID {
			return i
		}
	}
	return -1
}

// SlotY returns the world Y offset of slot i from the top of a box.
func (m Metrics) SlotY(i int) float64 {
	return m.NodeHeaderHeight + m.PortSpacing*(float64(i)+0.5)
}

// PortPositionAt returns the world centre of the port in slot i.
// Inputs sit on the left edge, outputs on the right.
func PortPositionAt(n *model.Node, slot int, isOutput bool, m Metrics) geom.Point {
	x := n.Position.X
	if isOutput {
		x += n.Size.Width
	}
	return geom.Point{X: x, Y: n.Position.Y + m.SlotY(slot)}
}

// PortPosition returns the world centre of a node port by ID.
func PortPosition(n *model.Node, portID string, isOutput bool, m Metrics) (geom.Point, bool) {
	ports := n.Inputs
	if isOutput {
		ports = n.Outputs
	}
	slot := PortSlot(ports, portID)
	if slot < 0 {
		return geom.Point{}, false
	}
	return PortPositionAt(n, slot, isOutput, m), true
}

// =============================================================================
// Member Bounds and Groups
// =============================================================================

// MemberBounds returns the bounding box of the listed nodes. IDs missing
// from idx are skipped; ok is false when none resolve.
func MemberBounds(ids []string, idx map[string]*model.Node) (geom.Bounds, bool) {
	members := make([]*model.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := idx[id]; ok {
			members = append(members, n)
		}
	}
	return geom.BoundsOf(members, func(n *model.Node) geom.Rect { return n.Bounds() })
}

// GroupBounds returns the padded box drawn around a group's members.
func GroupBounds(g *model.Group, idx map[string]*model.Node, m Metrics) (geom.Bounds, bool) {
	b, ok := MemberBounds(g.NodeIDs, idx)
	if !ok {
		return geom.Bounds{}, false
	}
	return geom.Pad(b, m.GroupPadding), true
}

// GroupHeaderRect returns the header band at the top of a group box.
func GroupHeaderRect(g *model.Group, idx map[string]*model.Node, m Metrics) (geom.Rect, bool) {
	b, ok := GroupBounds(g, idx, m)
	if !ok {
		return geom.Rect{}, false
	}
	r := b.Rect()
	if r.Height > m.GroupHeaderHeight {
		r.Height = m.GroupHeaderHeight
	}
	return r, true
}

// =============================================================================
// Collapsed Subflows
// =============================================================================

// CollapsedSize returns the box size of a collapsed subflow. A stored size
// wins; otherwise the size is derived from the exposed port counts.
func CollapsedSize(sf *model.Subflow, m Metrics) geom.Size {
	if sf.CollapsedSize != nil {
		return *sf.CollapsedSize
	}
	rows := max(len(sf.InputMappings), len(sf.OutputMappings), 1)
	return geom.Size{
		Width:  m.CollapsedSubflowWidth,
		Height: m.NodeHeaderHeight + float64(rows)*m.PortSpacing + m.CollapsedSubflowPadding,
	}
}

// CollapsedOrigin returns the top-left of a collapsed subflow box. Without
// a stored position the members' top-left corner is used.
func CollapsedOrigin(sf *model.Subflow, idx map[string]*model.Node) (geom.Point, bool) {
	if sf.CollapsedPosition != nil {
		p := *sf.CollapsedPosition
		return p, p.Finite()
	}
	b, ok := MemberBounds(sf.NodeIDs, idx)
	if !ok {
		return geom.Point{}, false
	}
	return geom.Point{X: b.MinX, Y: b.MinY}, true
}

// CollapsedRect returns the world box of a collapsed subflow.
func CollapsedRect(sf *model.Subflow, idx map[string]*model.Node, m Metrics) (geom.Rect, bool) {
	origin, ok := CollapsedOrigin(sf, idx)
	if !ok {
		return geom.Rect{}, false
	}
	return geom.RectAt(origin, CollapsedSize(sf, m)), true
}

// SubflowPortPosition returns the world centre of exposed port slot i on a
// collapsed subflow box.
func SubflowPortPosition(box geom.Rect, slot int, isOutput bool, m Metrics) geom.Point {
	x := box.X
	if isOutput {
		x += box.Width
	}
	return geom.Point{X: x, Y: box.Y + m.SlotY(slot)}
}

// MappingSlot returns the slot of an exposed port ID on a subflow, or -1.
func MappingSlot(sf *model.Subflow, exposedPortID string, isOutput bool) int {
	mappings := sf.InputMappings
	if isOutput {
		mappings = sf.OutputMappings
	}
	for i := range mappings {
		if mappings[i].ExposedPortID == exposedPortID {
			return i
		}
	}
	return -1
}
