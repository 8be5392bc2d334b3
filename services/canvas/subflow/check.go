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

	"github.com/AleutianAI/flowcanvas/services/canvas/model"
)

// IssueKind classifies a subflow consistency problem.
type IssueKind string

const (
	// IssueOverlap: a node belongs to more than one collapsed subflow.
	IssueOverlap IssueKind = "overlap"
	// IssueUnknownMember: a member ID is not in the node snapshot.
	IssueUnknownMember IssueKind = "unknown_member"
	// IssueMappingOutside: a mapping names a node outside the subflow.
	IssueMappingOutside IssueKind = "mapping_outside"
	// IssueMappingUnknownPort: a mapping names a port its node lacks.
	IssueMappingUnknownPort IssueKind = "mapping_unknown_port"
	// IssueMappingDirection: a mapping's IsOutput disagrees with the list
	// it is stored in.
	IssueMappingDirection IssueKind = "mapping_direction"
)

// Issue is one consistency problem found by Check.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	SubflowID string    `json:"subflowId"`
	NodeID    string    `json:"nodeId,omitempty"`
	PortID    string    `json:"portId,omitempty"`
}

// String renders the issue for logs and CLI output.
func (i Issue) String() string {
	switch i.Kind {
	case IssueOverlap:
		return fmt.Sprintf("node %q is in collapsed subflow %q and another collapsed subflow", i.NodeID, i.SubflowID)
	case IssueUnknownMember:
		return fmt.Sprintf("subflow %q lists unknown node %q", i.SubflowID, i.NodeID)
	case IssueMappingOutside:
		return fmt.Sprintf("subflow %q maps node %q which is not a member", i.SubflowID, i.NodeID)
	case IssueMappingUnknownPort:
		return fmt.Sprintf("subflow %q maps missing port %q on node %q", i.SubflowID, i.PortID, i.NodeID)
	case IssueMappingDirection:
		return fmt.Sprintf("subflow %q maps port %q on node %q in the wrong direction", i.SubflowID, i.PortID, i.NodeID)
	default:
		return fmt.Sprintf("subflow %q: %s", i.SubflowID, i.Kind)
	}
}

// Check reports subflow states the virtualizer tolerates silently.
//
// # Description
//
// ResolveEdgeEndpoints never fails: a broken mapping just hides the edge,
// and overlapping collapsed membership resolves to the last subflow. Check
// surfaces those conditions so tools and tests can flag them. It is never
// called on the per-frame path.
//
// # Outputs
//
//   - []Issue: Problems in subflow order. Empty when consistent.
func Check(subflows []model.Subflow, nodes []model.Node) []Issue {
	idx := model.IndexNodes(nodes)
	var issues []Issue

	firstOwner := make(map[string]string)
	for i := range subflows {
		sf := &subflows[i]
		for _, id := range sf.NodeIDs {
			if _, ok := idx[id]; !ok {
				issues = append(issues, Issue{Kind: IssueUnknownMember, SubflowID: sf.ID, NodeID: id})
			}
			if !sf.Collapsed {
				continue
			}
			if owner, taken := firstOwner[id]; taken && owner != sf.ID {
				issues = append(issues, Issue{Kind: IssueOverlap, SubflowID: sf.ID, NodeID: id})
				continue
			}
			firstOwner[id] = sf.ID
		}
		issues = append(issues, checkMappings(sf, sf.InputMappings, false, idx)...)
		issues = append(issues, checkMappings(sf, sf.OutputMappings, true, idx)...)
	}
	return issues
}

func checkMappings(sf *model.Subflow, mappings []model.SubflowPortMapping, isOutput bool, idx map[string]*model.Node) []Issue {
	var issues []Issue
	for _, m := range mappings {
		if !sf.Contains(m.InternalNodeID) {
			issues = append(issues, Issue{Kind: IssueMappingOutside, SubflowID: sf.ID, NodeID: m.InternalNodeID})
			continue
		}
		if m.IsOutput != isOutput {
			issues = append(issues, Issue{Kind: IssueMappingDirection, SubflowID: sf.ID, NodeID: m.InternalNodeID, PortID: m.InternalPortID})
		}
		n, ok := idx[m.InternalNodeID]
		if !ok {
			continue
		}
		if slot, _ := n.Port(m.InternalPortID, isOutput); slot < 0 {
			issues = append(issues, Issue{Kind: IssueMappingUnknownPort, SubflowID: sf.ID, NodeID: m.InternalNodeID, PortID: m.InternalPortID})
		}
	}
	return issues
}
