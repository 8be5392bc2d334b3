// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import "github.com/AleutianAI/flowcanvas/services/canvas/geom"

// DataType is the value type carried by a port.
type DataType string

const (
	DataTypeAny     DataType = "any"
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeObject  DataType = "object"
	DataTypeArray   DataType = "array"
	DataTypeImage   DataType = "image"
	DataTypeAudio   DataType = "audio"
	DataTypeVideo   DataType = "video"
	DataTypeFile    DataType = "file"
)

// PortDefinition describes one input or output port of a node.
//
// ID is unique per node and direction. The port's visual slot is its
// position in the owning Inputs/Outputs slice.
type PortDefinition struct {
	ID       string   `json:"id" yaml:"id" validate:"required"`
	Name     string   `json:"name" yaml:"name"`
	DataType DataType `json:"dataType" yaml:"dataType" validate:"required,datatype"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Multi    bool     `json:"multi,omitempty" yaml:"multi,omitempty"`
}

// Node is a positioned, sized graph vertex with ordered ports.
type Node struct {
	ID       string           `json:"id" yaml:"id" validate:"required"`
	Position geom.Point       `json:"position" yaml:"position"`
	Size     geom.Size        `json:"size" yaml:"size"`
	Inputs   []PortDefinition `json:"inputs,omitempty" yaml:"inputs,omitempty" validate:"dive"`
	Outputs  []PortDefinition `json:"outputs,omitempty" yaml:"outputs,omitempty" validate:"dive"`
	Data     map[string]any   `json:"data,omitempty" yaml:"data,omitempty"`
}

// Bounds returns the node's world rectangle.
func (n Node) Bounds() geom.Rect {
	return geom.RectAt(n.Position, n.Size)
}

// Port returns the index and definition of the port with the given ID on
// the requested side. The index is -1 when no such port exists.
func (n *Node) Port(portID string, isOutput bool) (int, *PortDefinition) {
	ports := n.Inputs
	if isOutput {
		ports = n.Outputs
	}
	for i := range ports {
		if ports[i].ID == portID {
			return i, &ports[i]
		}
	}
	return -1, nil
}

// Edge connects an output port of Source to an input port of Target.
type Edge struct {
	ID         string `json:"id" yaml:"id" validate:"required"`
	Source     string `json:"source" yaml:"source" validate:"required"`
	SourcePort string `json:"sourcePort" yaml:"sourcePort" validate:"required"`
	Target     string `json:"target" yaml:"target" validate:"required"`
	TargetPort string `json:"targetPort" yaml:"targetPort" validate:"required"`
}

// Group is a named visual grouping of nodes. Membership only.
type Group struct {
	ID      string   `json:"id" yaml:"id" validate:"required"`
	Name    string   `json:"name" yaml:"name"`
	NodeIDs []string `json:"nodeIds" yaml:"nodeIds"`
}

// SubflowPortMapping binds one exposed subflow port to a port on an
// internal node.
type SubflowPortMapping struct {
	ExposedPortID   string   `json:"exposedPortId" yaml:"exposedPortId" validate:"required"`
	ExposedPortName string   `json:"exposedPortName" yaml:"exposedPortName"`
	InternalNodeID  string   `json:"internalNodeId" yaml:"internalNodeId" validate:"required"`
	InternalPortID  string   `json:"internalPortId" yaml:"internalPortId" validate:"required"`
	DataType        DataType `json:"dataType" yaml:"dataType" validate:"required,datatype"`
	IsOutput        bool     `json:"isOutput" yaml:"isOutput"`
}

// Subflow is a named, collapsible grouping of nodes.
//
// CollapsedPosition and CollapsedSize stay nil until the first collapse
// materializes them.
type Subflow struct {
	ID                string               `json:"id" yaml:"id" validate:"required"`
	Name              string               `json:"name" yaml:"name"`
	NodeIDs           []string             `json:"nodeIds" yaml:"nodeIds" validate:"min=2"`
	InternalEdgeIDs   []string             `json:"internalEdgeIds,omitempty" yaml:"internalEdgeIds,omitempty"`
	InputMappings     []SubflowPortMapping `json:"inputMappings,omitempty" yaml:"inputMappings,omitempty" validate:"dive"`
	OutputMappings    []SubflowPortMapping `json:"outputMappings,omitempty" yaml:"outputMappings,omitempty" validate:"dive"`
	Collapsed         bool                 `json:"collapsed" yaml:"collapsed"`
	CollapsedPosition *geom.Point          `json:"collapsedPosition,omitempty" yaml:"collapsedPosition,omitempty"`
	CollapsedSize     *geom.Size           `json:"collapsedSize,omitempty" yaml:"collapsedSize,omitempty"`
}

// Contains reports whether nodeID is a member of the subflow.
func (s *Subflow) Contains(nodeID string) bool {
	for _, id := range s.NodeIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}

// IndexNodes maps node IDs to pointers into nodes. Later duplicates win.
//
// The pointers alias the snapshot and must not be mutated.
func IndexNodes(nodes []Node) map[string]*Node {
	idx := make(map[string]*Node, len(nodes))
	for i := range nodes {
		idx[nodes[i].ID] = &nodes[i]
	}
	return idx
}

// IDSet builds a set from a list of IDs.
func IDSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
