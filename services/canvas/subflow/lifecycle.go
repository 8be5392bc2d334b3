// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package subflow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/layout"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
)

// State is the display state of a subflow.
type State int

const (
	StateExpanded State = iota
	StateCollapsed
)

// String returns "expanded" or "collapsed".
func (s State) String() string {
	if s == StateCollapsed {
		return "collapsed"
	}
	return "expanded"
}

// StateOf returns the state of sf.
func StateOf(sf model.Subflow) State {
	if sf.Collapsed {
		return StateCollapsed
	}
	return StateExpanded
}

// Collapse returns a collapsed copy of sf.
//
// On the first collapse the box position is taken from the members'
// top-left corner and the box size from the exposed port counts. Stored
// values are kept on later collapses. When no member resolves in nodes the
// position stays unset and the box is not drawn.
func Collapse(sf model.Subflow, nodes []model.Node, m layout.Metrics) model.Subflow {
	sf.Collapsed = true
	if sf.CollapsedPosition == nil {
		if origin, ok := layout.CollapsedOrigin(&sf, model.IndexNodes(nodes)); ok {
			sf.CollapsedPosition = &origin
		}
	}
	if sf.CollapsedSize == nil {
		size := layout.CollapsedSize(&sf, m)
		sf.CollapsedSize = &size
	}
	return sf
}

// Expand returns an expanded copy of sf. The stored box is kept for the
// next collapse.
func Expand(sf model.Subflow) model.Subflow {
	sf.Collapsed = false
	return sf
}

// Toggle collapses an expanded subflow and expands a collapsed one.
func Toggle(sf model.Subflow, nodes []model.Node, m layout.Metrics) model.Subflow {
	if sf.Collapsed {
		return Expand(sf)
	}
	return Collapse(sf, nodes, m)
}

// Create groups existing nodes into a new expanded subflow.
//
// # Description
//
// The subflow gets a random UUID. Edges fully inside the set are recorded
// as internal. Every distinct port receiving an incoming edge becomes an
// exposed input, and every distinct port feeding an outgoing edge becomes
// an exposed output, in edge order.
//
// # Inputs
//
//   - name: Display name.
//   - nodeIDs: Members. Duplicates are ignored; at least two distinct IDs
//     are required and all must exist in nodes.
//   - nodes, edges: The current graph. Not modified.
//
// # Outputs
//
//   - model.Subflow: The new subflow.
//   - error: ErrTooFewNodes or ErrUnknownNode.
func Create(name string, nodeIDs []string, nodes []model.Node, edges []model.Edge) (model.Subflow, error) {
	members := dedupe(nodeIDs)
	if len(members) < 2 {
		return model.Subflow{}, fmt.Errorf("%w: got %d", model.ErrTooFewNodes, len(members))
	}
	idx := model.IndexNodes(nodes)
	for _, id := range members {
		if _, ok := idx[id]; !ok {
			return model.Subflow{}, fmt.Errorf("subflow member %q: %w", id, model.ErrUnknownNode)
		}
	}

	classes := ClassifyEdges(edges, members)
	sf := model.Subflow{
		ID:      uuid.NewString(),
		Name:    name,
		NodeIDs: members,
	}
	for _, e := range classes.Internal {
		sf.InternalEdgeIDs = append(sf.InternalEdgeIDs, e.ID)
	}
	sf.InputMappings = boundaryMappings(classes.Incoming, idx, false)
	sf.OutputMappings = boundaryMappings(classes.Outgoing, idx, true)
	return sf, nil
}

// boundaryMappings exposes the inner end of each boundary edge once.
func boundaryMappings(edges []model.Edge, idx map[string]*model.Node, isOutput bool) []model.SubflowPortMapping {
	seen := make(map[[2]string]struct{})
	var out []model.SubflowPortMapping
	for _, e := range edges {
		nodeID, portID := e.Target, e.TargetPort
		prefix := "in"
		if isOutput {
			nodeID, portID = e.Source, e.SourcePort
			prefix = "out"
		}
		key := [2]string{nodeID, portID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		_, port := idx[nodeID].Port(portID, isOutput)
		if port == nil {
			continue
		}
		name := port.Name
		if name == "" {
			name = port.ID
		}
		dt := port.DataType
		if dt == "" {
			dt = model.DataTypeAny
		}
		out = append(out, model.SubflowPortMapping{
			ExposedPortID:   fmt.Sprintf("%s:%s:%s", prefix, nodeID, portID),
			ExposedPortName: name,
			InternalNodeID:  nodeID,
			InternalPortID:  portID,
			DataType:        dt,
			IsOutput:        isOutput,
		})
	}
	return out
}

// Remove returns subflows without the one with the given ID. Member nodes
// are untouched; only the grouping record goes away.
func Remove(subflows []model.Subflow, id string) ([]model.Subflow, error) {
	out := make([]model.Subflow, 0, len(subflows))
	found := false
	for _, sf := range subflows {
		if sf.ID == id {
			found = true
			continue
		}
		out = append(out, sf)
	}
	if !found {
		return subflows, fmt.Errorf("subflow %q: %w", id, model.ErrSubflowNotFound)
	}
	return out, nil
}

// MoveCollapsed returns a copy of sf with its collapsed box moved to p.
func MoveCollapsed(sf model.Subflow, p geom.Point) model.Subflow {
	sf.CollapsedPosition = &p
	return sf
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
