// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package subflow virtualizes the node graph around collapsed subflows.
//
// # Description
//
// A collapsed subflow is drawn as a single box exposing the ports named by
// its input and output mappings. This package derives the renderable graph
// from the full one: member nodes of collapsed subflows are filtered out,
// edges crossing the box boundary are rewritten onto exposed ports, and
// edges that cannot be drawn are marked hidden. Collapse is a view filter;
// nothing here mutates or drops underlying data.
//
// # Ownership
//
// Node ownership is a flat nodeID -> collapsed subflow index. When a node
// belongs to more than one collapsed subflow, the subflow listed last
// wins. Only one level of containment is therefore supported; Check
// reports overlapping membership.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package subflow

import "github.com/AleutianAI/flowcanvas/services/canvas/model"

// Classification buckets edges relative to a node set.
type Classification struct {
	// Internal edges have both endpoints in the set.
	Internal []model.Edge
	// Incoming edges have only the target in the set.
	Incoming []model.Edge
	// Outgoing edges have only the source in the set.
	Outgoing []model.Edge
}

// ClassifyEdges splits edges by how they touch nodeIDs. Edges with neither
// endpoint in the set appear in no bucket.
func ClassifyEdges(edges []model.Edge, nodeIDs []string) Classification {
	set := model.IDSet(nodeIDs)
	var c Classification
	for _, e := range edges {
		_, src := set[e.Source]
		_, dst := set[e.Target]
		switch {
		case src && dst:
			c.Internal = append(c.Internal, e)
		case dst:
			c.Incoming = append(c.Incoming, e)
		case src:
			c.Outgoing = append(c.Outgoing, e)
		}
	}
	return c
}

// Endpoint is one rendered end of an edge.
type Endpoint struct {
	NodeID        string `json:"nodeId"`
	PortID        string `json:"portId"`
	IsSubflowPort bool   `json:"isSubflowPort"`
}

// RenderedEdge is an edge as it should be drawn in the current view.
type RenderedEdge struct {
	Edge   model.Edge `json:"edge"`
	Source Endpoint   `json:"source"`
	Target Endpoint   `json:"target"`
	Hidden bool       `json:"hidden"`
}

// AsEdge returns the rendered edge with its rewritten endpoints, ready for
// geometry queries such as edge hit-testing.
func (r RenderedEdge) AsEdge() model.Edge {
	return model.Edge{
		ID:         r.Edge.ID,
		Source:     r.Source.NodeID,
		SourcePort: r.Source.PortID,
		Target:     r.Target.NodeID,
		TargetPort: r.Target.PortID,
	}
}

// Owners maps every member of a collapsed subflow to that subflow.
// Expanded subflows are ignored; on overlap the later subflow wins.
func Owners(subflows []model.Subflow) map[string]*model.Subflow {
	owners := make(map[string]*model.Subflow)
	for i := range subflows {
		sf := &subflows[i]
		if !sf.Collapsed {
			continue
		}
		for _, id := range sf.NodeIDs {
			owners[id] = sf
		}
	}
	return owners
}

// ResolveEdgeEndpoints computes how every edge is drawn.
//
// # Description
//
// For each edge:
//
//  1. Both endpoints inside the same collapsed subflow: hidden, endpoints
//     unchanged.
//  2. Otherwise each endpoint inside a collapsed subflow is looked up in
//     that subflow's output mappings (source) or input mappings (target).
//     A match rewrites the endpoint onto the exposed port. No match hides
//     the whole edge and leaves that endpoint raw, so no line is drawn
//     into the interior of a collapsed box.
//  3. An edge is visible only when every endpoint resolved or was never
//     inside a collapsed subflow.
//
// # Inputs
//
//   - edges: All edges of the graph. Not modified.
//   - subflows: All subflows. Only collapsed ones affect the result.
//
// # Outputs
//
//   - []RenderedEdge: One entry per edge, in input order.
func ResolveEdgeEndpoints(edges []model.Edge, subflows []model.Subflow) []RenderedEdge {
	owners := Owners(subflows)
	out := make([]RenderedEdge, 0, len(edges))
	for _, e := range edges {
		r := RenderedEdge{
			Edge:   e,
			Source: Endpoint{NodeID: e.Source, PortID: e.SourcePort},
			Target: Endpoint{NodeID: e.Target, PortID: e.TargetPort},
		}
		srcOwner := owners[e.Source]
		dstOwner := owners[e.Target]

		if srcOwner != nil && dstOwner != nil && srcOwner.ID == dstOwner.ID {
			r.Hidden = true
			out = append(out, r)
			continue
		}
		if srcOwner != nil {
			if ep, ok := exposed(srcOwner, srcOwner.OutputMappings, e.Source, e.SourcePort); ok {
				r.Source = ep
			} else {
				r.Hidden = true
			}
		}
		if dstOwner != nil {
			if ep, ok := exposed(dstOwner, dstOwner.InputMappings, e.Target, e.TargetPort); ok {
				r.Target = ep
			} else {
				r.Hidden = true
			}
		}
		out = append(out, r)
	}
	return out
}

func exposed(sf *model.Subflow, mappings []model.SubflowPortMapping, nodeID, portID string) (Endpoint, bool) {
	for i := range mappings {
		m := &mappings[i]
		if m.InternalNodeID == nodeID && m.InternalPortID == portID {
			return Endpoint{NodeID: sf.ID, PortID: m.ExposedPortID, IsSubflowPort: true}, true
		}
	}
	return Endpoint{}, false
}

// VisibleEdges filters rendered edges down to the ones to draw.
func VisibleEdges(rendered []RenderedEdge) []RenderedEdge {
	out := make([]RenderedEdge, 0, len(rendered))
	for _, r := range rendered {
		if !r.Hidden {
			out = append(out, r)
		}
	}
	return out
}

// VisibleNodes returns nodes minus every member of a collapsed subflow.
func VisibleNodes(nodes []model.Node, subflows []model.Subflow) []model.Node {
	owners := Owners(subflows)
	out := make([]model.Node, 0, len(nodes))
	for _, n := range nodes {
		if _, hidden := owners[n.ID]; !hidden {
			out = append(out, n)
		}
	}
	return out
}
