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

// PortLocator resolves an edge endpoint to a world position.
type PortLocator interface {
	// PortPosition returns the world centre of the port, or false when the
	// node or port cannot be resolved in the current snapshot.
	PortPosition(nodeID, portID string, isOutput bool) (geom.Point, bool)
}

// Locator resolves endpoints against one snapshot of nodes and collapsed
// subflows. Build a new Locator per snapshot; it does not track changes.
//
// A nodeID equal to a collapsed subflow's ID resolves through that
// subflow's exposed port mappings, which lets rewritten edges be
// positioned the same way as plain ones.
type Locator struct {
	metrics  Metrics
	nodes    map[string]*model.Node
	subflows map[string]*model.Subflow
	boxes    map[string]geom.Rect
}

// NewLocator indexes nodes and the collapsed subflows among subflows.
func NewLocator(nodes []model.Node, subflows []model.Subflow, m Metrics) *Locator {
	l := &Locator{
		metrics:  m,
		nodes:    model.IndexNodes(nodes),
		subflows: make(map[string]*model.Subflow),
		boxes:    make(map[string]geom.Rect),
	}
	for i := range subflows {
		sf := &subflows[i]
		if !sf.Collapsed {
			continue
		}
		box, ok := CollapsedRect(sf, l.nodes, m)
		if !ok {
			continue
		}
		l.subflows[sf.ID] = sf
		l.boxes[sf.ID] = box
	}
	return l
}

// Nodes returns the node index. The map must not be modified.
func (l *Locator) Nodes() map[string]*model.Node {
	return l.nodes
}

// CollapsedBox returns the box of a collapsed subflow by ID.
func (l *Locator) CollapsedBox(subflowID string) (geom.Rect, bool) {
	box, ok := l.boxes[subflowID]
	return box, ok
}

// PortPosition implements PortLocator.
func (l *Locator) PortPosition(nodeID, portID string, isOutput bool) (geom.Point, bool) {
	if sf, ok := l.subflows[nodeID]; ok {
		slot := MappingSlot(sf, portID, isOutput)
		if slot < 0 {
			return geom.Point{}, false
		}
		return SubflowPortPosition(l.boxes[nodeID], slot, isOutput, l.metrics), true
	}
	n, ok := l.nodes[nodeID]
	if !ok {
		return geom.Point{}, false
	}
	p, ok := PortPosition(n, portID, isOutput, l.metrics)
	if !ok || !p.Finite() {
		return geom.Point{}, false
	}
	return p, true
}

var _ PortLocator = (*Locator)(nil)
