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
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/layout"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
)

// chain builds a -> b -> c -> d with one in and one out port per node.
func chain() ([]model.Node, []model.Edge) {
	in := []model.PortDefinition{{ID: "in", Name: "In", DataType: model.DataTypeNumber}}
	out := []model.PortDefinition{{ID: "out", Name: "Out", DataType: model.DataTypeNumber}}
	mk := func(id string, x float64) model.Node {
		return model.Node{
			ID:       id,
			Position: geom.Point{X: x, Y: 40},
			Size:     geom.Size{Width: 120, Height: 80},
			Inputs:   in,
			Outputs:  out,
		}
	}
	nodes := []model.Node{mk("a", 0), mk("b", 200), mk("c", 400), mk("d", 600)}
	edges := []model.Edge{
		{ID: "e1", Source: "a", SourcePort: "out", Target: "b", TargetPort: "in"},
		{ID: "e2", Source: "b", SourcePort: "out", Target: "c", TargetPort: "in"},
		{ID: "e3", Source: "c", SourcePort: "out", Target: "d", TargetPort: "in"},
	}
	return nodes, edges
}

func middle(collapsed bool) model.Subflow {
	return model.Subflow{
		ID:      "S",
		Name:    "middle",
		NodeIDs: []string{"b", "c"},
		InputMappings: []model.SubflowPortMapping{
			{ExposedPortID: "x-in", InternalNodeID: "b", InternalPortID: "in", DataType: model.DataTypeNumber},
		},
		OutputMappings: []model.SubflowPortMapping{
			{ExposedPortID: "x-out", InternalNodeID: "c", InternalPortID: "out", DataType: model.DataTypeNumber, IsOutput: true},
		},
		Collapsed: collapsed,
	}
}

func edgesOf(rendered []RenderedEdge) []model.Edge {
	edges := make([]model.Edge, 0, len(rendered))
	for _, r := range rendered {
		edges = append(edges, r.Edge)
	}
	return edges
}

func edgeIDs(edges []model.Edge) []string {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}

// =============================================================================
// ClassifyEdges
// =============================================================================

func TestClassifyEdges(t *testing.T) {
	_, edges := chain()
	edges = append(edges, model.Edge{ID: "e4", Source: "a", SourcePort: "out", Target: "d", TargetPort: "in"})

	c := ClassifyEdges(edges, []string{"b", "c"})
	assert.Equal(t, []string{"e2"}, edgeIDs(c.Internal))
	assert.Equal(t, []string{"e1"}, edgeIDs(c.Incoming))
	assert.Equal(t, []string{"e3"}, edgeIDs(c.Outgoing))

	c = ClassifyEdges(edges, nil)
	assert.Empty(t, c.Internal)
	assert.Empty(t, c.Incoming)
	assert.Empty(t, c.Outgoing)
}

// =============================================================================
// ResolveEdgeEndpoints
// =============================================================================

func TestResolveEdgeEndpoints_ExpandedIsIdentity(t *testing.T) {
	_, edges := chain()
	rendered := ResolveEdgeEndpoints(edges, []model.Subflow{middle(false)})

	require.Len(t, rendered, len(edges))
	for i, r := range rendered {
		assert.False(t, r.Hidden, r.Edge.ID)
		assert.Equal(t, edges[i], r.AsEdge())
		assert.False(t, r.Source.IsSubflowPort)
		assert.False(t, r.Target.IsSubflowPort)
	}
}

func TestResolveEdgeEndpoints_CollapsedRewritesBoundary(t *testing.T) {
	_, edges := chain()
	rendered := ResolveEdgeEndpoints(edges, []model.Subflow{middle(true)})
	require.Len(t, rendered, 3)

	in := rendered[0]
	assert.False(t, in.Hidden)
	assert.Equal(t, Endpoint{NodeID: "a", PortID: "out"}, in.Source)
	assert.Equal(t, Endpoint{NodeID: "S", PortID: "x-in", IsSubflowPort: true}, in.Target)

	internal := rendered[1]
	assert.True(t, internal.Hidden)
	assert.Equal(t, Endpoint{NodeID: "b", PortID: "out"}, internal.Source)
	assert.Equal(t, Endpoint{NodeID: "c", PortID: "in"}, internal.Target)

	out := rendered[2]
	assert.False(t, out.Hidden)
	assert.Equal(t, Endpoint{NodeID: "S", PortID: "x-out", IsSubflowPort: true}, out.Source)
	assert.Equal(t, Endpoint{NodeID: "d", PortID: "in"}, out.Target)

	assert.Len(t, VisibleEdges(rendered), 2)
}

func TestResolveEdgeEndpoints_UnmappedBoundaryIsHidden(t *testing.T) {
	_, edges := chain()
	sf := middle(true)
	sf.OutputMappings = nil

	rendered := ResolveEdgeEndpoints(edges, []model.Subflow{sf})
	out := rendered[2]
	assert.True(t, out.Hidden)
	assert.Equal(t, Endpoint{NodeID: "c", PortID: "out"}, out.Source)
	assert.Equal(t, Endpoint{NodeID: "d", PortID: "in"}, out.Target)
}

func TestResolveEdgeEndpoints_BetweenTwoCollapsedSubflows(t *testing.T) {
	_, edges := chain()
	s1 := model.Subflow{
		ID:      "S1",
		NodeIDs: []string{"a", "b"},
		OutputMappings: []model.SubflowPortMapping{
			{ExposedPortID: "o", InternalNodeID: "b", InternalPortID: "out", DataType: model.DataTypeNumber, IsOutput: true},
		},
		Collapsed: true,
	}
	s2 := model.Subflow{
		ID:      "S2",
		NodeIDs: []string{"c", "d"},
		InputMappings: []model.SubflowPortMapping{
			{ExposedPortID: "i", InternalNodeID: "c", InternalPortID: "in", DataType: model.DataTypeNumber},
		},
		Collapsed: true,
	}

	rendered := ResolveEdgeEndpoints(edges, []model.Subflow{s1, s2})
	require.Len(t, rendered, 3)
	assert.True(t, rendered[0].Hidden, "a->b is internal to S1")
	assert.True(t, rendered[2].Hidden, "c->d is internal to S2")

	cross := rendered[1]
	assert.False(t, cross.Hidden)
	assert.Equal(t, Endpoint{NodeID: "S1", PortID: "o", IsSubflowPort: true}, cross.Source)
	assert.Equal(t, Endpoint{NodeID: "S2", PortID: "i", IsSubflowPort: true}, cross.Target)

	visible := VisibleEdges(rendered)
	require.Len(t, visible, 1)
	assert.Equal(t, model.Edge{ID: "e2", Source: "S1", SourcePort: "o", Target: "S2", TargetPort: "i"}, visible[0].AsEdge())
}

func TestResolveEdgeEndpoints_UnmappedTargetIsHidden(t *testing.T) {
	_, edges := chain()
	sf := middle(true)
	sf.InputMappings = nil

	rendered := ResolveEdgeEndpoints(edges, []model.Subflow{sf})
	in := rendered[0]
	assert.True(t, in.Hidden)
	assert.Equal(t, Endpoint{NodeID: "a", PortID: "out"}, in.Source)
	assert.Equal(t, Endpoint{NodeID: "b", PortID: "in"}, in.Target)

	assert.False(t, rendered[2].Hidden, "mapped output edge stays visible")
	assert.Equal(t, []string{"e3"}, edgeIDs(edgesOf(VisibleEdges(rendered))))
}

func TestResolveEdgeEndpoints_DoesNotMutateInputs(t *testing.T) {
	_, edges := chain()
	before := append([]model.Edge(nil), edges...)
	subflows := []model.Subflow{middle(true)}

	ResolveEdgeEndpoints(edges, subflows)
	assert.Equal(t, before, edges)
	assert.Equal(t, middle(true), subflows[0])
}

func TestOwners_LastCollapsedSubflowWins(t *testing.T) {
	first := middle(true)
	second := model.Subflow{ID: "T", NodeIDs: []string{"c", "d"}, Collapsed: true}
	expanded := model.Subflow{ID: "U", NodeIDs: []string{"a"}}

	owners := Owners([]model.Subflow{first, second, expanded})
	assert.Equal(t, "S", owners["b"].ID)
	assert.Equal(t, "T", owners["c"].ID)
	assert.Equal(t, "T", owners["d"].ID)
	assert.NotContains(t, owners, "a")
}

func TestVisibleNodes(t *testing.T) {
	nodes, _ := chain()

	visible := VisibleNodes(nodes, []model.Subflow{middle(true)})
	ids := make([]string, 0, len(visible))
	for _, n := range visible {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"a", "d"}, ids)

	assert.Len(t, VisibleNodes(nodes, []model.Subflow{middle(false)}), 4)
}

func TestVisibleNodes_UnionOfCollapsedSubflows(t *testing.T) {
	nodes, _ := chain()
	extra := nodes[0]
	extra.ID = "e"
	nodes = append(nodes, extra)

	subflows := []model.Subflow{
		{ID: "S1", NodeIDs: []string{"a", "b"}, Collapsed: true},
		{ID: "S2", NodeIDs: []string{"c", "d"}, Collapsed: true},
		{ID: "S3", NodeIDs: []string{"e", "a"}},
	}
	visible := VisibleNodes(nodes, subflows)
	require.Len(t, visible, 1)
	assert.Equal(t, "e", visible[0].ID)
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestCreate(t *testing.T) {
	nodes, edges := chain()
	edges = append(edges, model.Edge{ID: "e4", Source: "a", SourcePort: "out", Target: "b", TargetPort: "in"})

	sf, err := Create("middle", []string{"b", "c", "b"}, nodes, edges)
	require.NoError(t, err)

	_, err = uuid.Parse(sf.ID)
	assert.NoError(t, err)
	assert.Equal(t, "middle", sf.Name)
	assert.Equal(t, []string{"b", "c"}, sf.NodeIDs)
	assert.Equal(t, []string{"e2"}, sf.InternalEdgeIDs)
	assert.False(t, sf.Collapsed)
	assert.Nil(t, sf.CollapsedPosition)

	require.Len(t, sf.InputMappings, 1)
	assert.Equal(t, model.SubflowPortMapping{
		ExposedPortID:   "in:b:in",
		ExposedPortName: "In",
		InternalNodeID:  "b",
		InternalPortID:  "in",
		DataType:        model.DataTypeNumber,
	}, sf.InputMappings[0])

	require.Len(t, sf.OutputMappings, 1)
	assert.Equal(t, "out:c:out", sf.OutputMappings[0].ExposedPortID)
	assert.True(t, sf.OutputMappings[0].IsOutput)

	assert.Empty(t, Check([]model.Subflow{sf}, nodes))
}

func TestCreate_CollapsedRoundTrip(t *testing.T) {
	nodes, edges := chain()
	sf, err := Create("middle", []string{"b", "c"}, nodes, edges)
	require.NoError(t, err)

	collapsed := Collapse(sf, nodes, layout.DefaultMetrics())
	rendered := VisibleEdges(ResolveEdgeEndpoints(edges, []model.Subflow{collapsed}))
	require.Len(t, rendered, 2)
	assert.Equal(t, "e1", rendered[0].Edge.ID)
	assert.Equal(t, "e3", rendered[1].Edge.ID)
}

func TestCreate_Errors(t *testing.T) {
	nodes, edges := chain()

	_, err := Create("x", []string{"b", "b"}, nodes, edges)
	assert.True(t, errors.Is(err, model.ErrTooFewNodes))

	_, err = Create("x", []string{"b", "zz"}, nodes, edges)
	assert.True(t, errors.Is(err, model.ErrUnknownNode))
}

func TestCollapseExpand(t *testing.T) {
	nodes, _ := chain()
	m := layout.DefaultMetrics()
	sf := middle(false)
	assert.Equal(t, StateExpanded, StateOf(sf))

	collapsed := Collapse(sf, nodes, m)
	assert.Equal(t, StateCollapsed, StateOf(collapsed))
	require.NotNil(t, collapsed.CollapsedPosition)
	require.NotNil(t, collapsed.CollapsedSize)
	assert.Equal(t, geom.Point{X: 200, Y: 40}, *collapsed.CollapsedPosition)
	assert.Equal(t, layout.CollapsedSize(&sf, m), *collapsed.CollapsedSize)
	assert.Nil(t, sf.CollapsedPosition, "input must not be mutated")

	moved := MoveCollapsed(collapsed, geom.Point{X: 900, Y: 900})
	expanded := Expand(moved)
	assert.Equal(t, StateExpanded, StateOf(expanded))
	assert.Equal(t, geom.Point{X: 900, Y: 900}, *expanded.CollapsedPosition)

	again := Toggle(expanded, nodes, m)
	assert.True(t, again.Collapsed)
	assert.Equal(t, geom.Point{X: 900, Y: 900}, *again.CollapsedPosition)
	assert.False(t, Toggle(again, nodes, m).Collapsed)
}

func TestCollapse_NoResolvableMembers(t *testing.T) {
	sf := Collapse(middle(false), nil, layout.DefaultMetrics())
	assert.True(t, sf.Collapsed)
	assert.Nil(t, sf.CollapsedPosition)
	assert.NotNil(t, sf.CollapsedSize)
}

func TestRemove(t *testing.T) {
	subflows := []model.Subflow{middle(true), {ID: "T", NodeIDs: []string{"a", "d"}}}

	out, err := Remove(subflows, "S")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "T", out[0].ID)
	assert.Len(t, subflows, 2)

	_, err = Remove(subflows, "nope")
	assert.True(t, errors.Is(err, model.ErrSubflowNotFound))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "expanded", StateExpanded.String())
	assert.Equal(t, "collapsed", StateCollapsed.String())
}

// =============================================================================
// Check
// =============================================================================

func TestCheck(t *testing.T) {
	nodes, _ := chain()
	sf := middle(true)
	sf.NodeIDs = append(sf.NodeIDs, "ghost")
	sf.InputMappings = append(sf.InputMappings,
		model.SubflowPortMapping{ExposedPortID: "bad", InternalNodeID: "a", InternalPortID: "in", DataType: model.DataTypeAny},
		model.SubflowPortMapping{ExposedPortID: "bad2", InternalNodeID: "c", InternalPortID: "missing", DataType: model.DataTypeAny},
	)
	other := model.Subflow{ID: "T", NodeIDs: []string{"c", "d"}, Collapsed: true}

	issues := Check([]model.Subflow{sf, other}, nodes)
	require.Len(t, issues, 4)
	assert.Equal(t, Issue{Kind: IssueUnknownMember, SubflowID: "S", NodeID: "ghost"}, issues[0])
	assert.Equal(t, Issue{Kind: IssueMappingOutside, SubflowID: "S", NodeID: "a"}, issues[1])
	assert.Equal(t, Issue{Kind: IssueMappingUnknownPort, SubflowID: "S", NodeID: "c", PortID: "missing"}, issues[2])
	assert.Equal(t, Issue{Kind: IssueOverlap, SubflowID: "T", NodeID: "c"}, issues[3])
	assert.Contains(t, issues[3].String(), `"c"`)
}

func TestCheck_MappingDirection(t *testing.T) {
	nodes, _ := chain()
	sf := middle(true)
	sf.InputMappings[0].IsOutput = true
	sf.OutputMappings[0].IsOutput = false

	issues := Check([]model.Subflow{sf}, nodes)
	require.Len(t, issues, 2)
	assert.Equal(t, Issue{Kind: IssueMappingDirection, SubflowID: "S", NodeID: "b", PortID: "in"}, issues[0])
	assert.Equal(t, Issue{Kind: IssueMappingDirection, SubflowID: "S", NodeID: "c", PortID: "out"}, issues[1])
	assert.Contains(t, issues[0].String(), "wrong direction")

	assert.Empty(t, Check([]model.Subflow{middle(true)}, nodes))
}

func TestCheck_ExpandedOverlapIsFine(t *testing.T) {
	nodes, _ := chain()
	a := model.Subflow{ID: "A", NodeIDs: []string{"b", "c"}}
	b := model.Subflow{ID: "B", NodeIDs: []string{"c", "d"}, Collapsed: true}
	assert.Empty(t, Check([]model.Subflow{a, b}, nodes))
}
