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
	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/hittest"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
	"github.com/AleutianAI/flowcanvas/services/canvas/subflow"
)

// Kind is the class of entity under the pointer.
type Kind int

const (
	KindEmpty Kind = iota
	KindPort
	KindSubflowPort
	KindResizeHandle
	KindEdge
	KindGroupHeader
	KindCollapsedSubflow
	KindNode
)

var kindNames = [...]string{
	KindEmpty:            "empty",
	KindPort:             "port",
	KindSubflowPort:      "subflow_port",
	KindResizeHandle:     "resize_handle",
	KindEdge:             "edge",
	KindGroupHeader:      "group_header",
	KindCollapsedSubflow: "collapsed_subflow",
	KindNode:             "node",
}

// String returns the snake_case name used in logs and metric labels.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Mode is the pointer-down interaction a target starts.
type Mode int

const (
	ModePan Mode = iota
	ModeConnect
	ModeResize
	ModeSelect
	ModeDragGroup
	ModeDragSubflow
	ModeDrag
)

var modeNames = [...]string{
	ModePan:         "pan",
	ModeConnect:     "connect",
	ModeResize:      "resize",
	ModeSelect:      "select",
	ModeDragGroup:   "drag_group",
	ModeDragSubflow: "drag_subflow",
	ModeDrag:        "drag",
}

// String returns the mode name.
func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Target is the resolved entity under the pointer. Exactly the field
// matching Kind is set; KindEmpty sets none.
type Target struct {
	Kind  Kind
	World geom.Point

	Port        *hittest.PortHit
	SubflowPort *hittest.SubflowPortHit
	Resize      *hittest.ResizeHit
	Edge        *subflow.RenderedEdge
	EdgeHit     *hittest.EdgeHit
	Group       *hittest.GroupHit
	Subflow     *model.Subflow
	Node        *model.Node
}

// Mode maps the target to the interaction a pointer-down starts.
func (t Target) Mode() Mode {
	switch t.Kind {
	case KindPort, KindSubflowPort:
		return ModeConnect
	case KindResizeHandle:
		return ModeResize
	case KindEdge:
		return ModeSelect
	case KindGroupHeader:
		return ModeDragGroup
	case KindCollapsedSubflow:
		return ModeDragSubflow
	case KindNode:
		return ModeDrag
	default:
		return ModePan
	}
}

// ID returns the ID of the hit entity, or "" for empty space.
func (t Target) ID() string {
	switch t.Kind {
	case KindPort:
		return t.Port.Node.ID
	case KindSubflowPort:
		return t.SubflowPort.Subflow.ID
	case KindResizeHandle:
		return t.Resize.Node.ID
	case KindEdge:
		return t.Edge.Edge.ID
	case KindGroupHeader:
		return t.Group.Group.ID
	case KindCollapsedSubflow:
		return t.Subflow.ID
	case KindNode:
		return t.Node.ID
	default:
		return ""
	}
}
