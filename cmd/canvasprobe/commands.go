// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/flowcanvas/pkg/ux"
	"github.com/AleutianAI/flowcanvas/services/canvas/geom"
	"github.com/AleutianAI/flowcanvas/services/canvas/interaction"
	"github.com/AleutianAI/flowcanvas/services/canvas/model"
	"github.com/AleutianAI/flowcanvas/services/canvas/snap"
	"github.com/AleutianAI/flowcanvas/services/canvas/subflow"
	"github.com/spf13/cobra"
)

// Subcommand flags.
var (
	hitAt    string
	hitWorld bool

	snapIDs  []string
	snapBy   string
	snapGrid float64

	renderWatch bool
)

// =============================================================================
// Commands
// =============================================================================

var hitCmd = &cobra.Command{
	Use:   "hit <scene.yaml>",
	Short: "Resolve the entity under a pointer position",
	Long: `Resolve the entity under a pointer in the same priority order the
editor uses: port, subflow port, resize handle, edge, group header,
collapsed subflow, node, empty space.

The position is in canvas pixels unless --world is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScene(cmd, args[0], func(ctx context.Context, scene interaction.Snapshot) (any, error) {
			p, err := parsePoint(hitAt)
			if err != nil {
				return nil, err
			}
			if hitWorld {
				p = geom.WorldToScreen(p, scene.Viewport, scene.Canvas)
			}
			return probe.hit(ctx, scene, p), nil
		})
	},
}

var snapCmd = &cobra.Command{
	Use:   "snap <scene.yaml>",
	Short: "Drag nodes by an offset and report snap guides",
	Long: `Start a drag of the given nodes or collapsed subflows, move the
pointer by --by in world units, and report where the items land and which
alignment guides are shown. Axes that do not snap fall back to the grid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScene(cmd, args[0], func(_ context.Context, scene interaction.Snapshot) (any, error) {
			by, err := parsePoint(snapBy)
			if err != nil {
				return nil, err
			}
			grid := -1.0
			if cmd.Flags().Changed("grid") {
				grid = snapGrid
			}
			return probe.drag(scene, snapIDs, by, grid)
		})
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <scene.yaml>",
	Short: "Summarize the renderable graph",
	Long: `Compute the graph the editor would draw: visible nodes, edges
rewritten onto collapsed subflow ports, and collapsed subflow boxes.

With --watch the scene file is re-rendered every time it is written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		render := func(ctx context.Context, scene interaction.Snapshot) (any, error) {
			return probe.render(ctx, scene), nil
		}
		if err := runScene(cmd, path, render); err != nil && !renderWatch {
			return err
		}
		if !renderWatch {
			return nil
		}
		return watchScene(cmd.Context(), path, probe.logger, func() {
			if err := runScene(cmd, path, render); err != nil {
				probe.logger.Warn("render failed", "path", path, "error", err)
			}
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <scene.yaml>...",
	Short: "Validate scenes and their subflows",
	Long: `Validate every entity of each scene and report subflow consistency
problems: unknown members, overlapping collapsed membership, and port
mappings that point outside the subflow or at missing ports.

Scenes are loaded in parallel and reported in argument order. Exits 1 when
anything is reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		scenes, err := loadScenes(cmd.Context(), args)
		if err != nil {
			probe.report(cmd.Name(), strings.Join(args, ","), started, nil, err)
			return err
		}
		var failed error
		for i, scene := range scenes {
			res := probe.check(scene)
			var err error
			if len(res.Findings) > 0 {
				err = errFindings
				failed = errFindings
			}
			probe.report(cmd.Name(), args[i], started, res, err)
		}
		return failed
	},
}

func init() {
	hitCmd.Flags().StringVar(&hitAt, "at", "0,0", "Pointer position as x,y")
	hitCmd.Flags().BoolVar(&hitWorld, "world", false, "Treat --at as world coordinates")

	snapCmd.Flags().StringSliceVar(&snapIDs, "drag", nil, "IDs to drag, anchor first")
	snapCmd.Flags().StringVar(&snapBy, "by", "0,0", "Pointer movement as dx,dy in world units")
	snapCmd.Flags().Float64Var(&snapGrid, "grid", 0, "Grid size override; 0 disables the grid")
	_ = snapCmd.MarkFlagRequired("drag")

	renderCmd.Flags().BoolVar(&renderWatch, "watch", false, "Re-render when the scene file changes")
}

// runScene loads the scene at path, runs fn, and prints its result in the
// selected format. An error from fn is returned after printing so findings
// still reach the output.
func runScene(cmd *cobra.Command, path string, fn func(context.Context, interaction.Snapshot) (any, error)) error {
	started := time.Now()
	scene, err := loadScene(path)
	if err != nil {
		probe.report(cmd.Name(), path, started, nil, err)
		return err
	}
	data, err := fn(cmd.Context(), scene)
	if exitCode(err) == CLIExitError {
		data = nil
	}
	probe.report(cmd.Name(), path, started, data, err)
	return err
}

// report prints a command's outcome.
func (a *app) report(command, path string, started time.Time, data any, err error) {
	if a.json {
		if encErr := OutputJSON(a.out, newResult(command, path, started, data, err)); encErr != nil {
			a.logger.Error("encode result", "error", encErr)
		}
		return
	}
	if printable, ok := data.(interface{ print(*ux.Printer) }); ok {
		printable.print(a.printer)
	}
	if err != nil && exitCode(err) == CLIExitError {
		a.printer.Error(err.Error())
	}
}

// =============================================================================
// hit
// =============================================================================

type hitResult struct {
	Screen geom.Point `json:"screen"`
	World  geom.Point `json:"world"`
	Kind   string     `json:"kind"`
	Mode   string     `json:"mode"`
	ID     string     `json:"id,omitempty"`
	Detail string     `json:"detail,omitempty"`
}

func (a *app) hit(ctx context.Context, scene interaction.Snapshot, screen geom.Point) hitResult {
	t := a.resolver.Resolve(ctx, scene, screen)
	return hitResult{
		Screen: screen,
		World:  t.World,
		Kind:   t.Kind.String(),
		Mode:   t.Mode().String(),
		ID:     t.ID(),
		Detail: targetDetail(t),
	}
}

func targetDetail(t interaction.Target) string {
	switch t.Kind {
	case interaction.KindPort:
		side := "input"
		if t.Port.IsOutput {
			side = "output"
		}
		return fmt.Sprintf("%s port %q slot %d", side, t.Port.Port.ID, t.Port.Slot)
	case interaction.KindSubflowPort:
		return fmt.Sprintf("exposed port %q slot %d", t.SubflowPort.Mapping.ExposedPortID, t.SubflowPort.Slot)
	case interaction.KindResizeHandle:
		return "handle " + t.Resize.Handle.String()
	case interaction.KindEdge:
		return fmt.Sprintf("%s -> %s distance %.2f", endpointLabel(t.Edge.Source), endpointLabel(t.Edge.Target), t.EdgeHit.Distance)
	default:
		return ""
	}
}

func endpointLabel(e subflow.Endpoint) string {
	return e.NodeID + "." + e.PortID
}

func (r hitResult) print(p *ux.Printer) {
	p.Title("Hit " + r.Kind)
	p.Field("screen", fmt.Sprintf("%g,%g", r.Screen.X, r.Screen.Y))
	p.Field("world", fmt.Sprintf("%g,%g", r.World.X, r.World.Y))
	p.Field("mode", r.Mode)
	if r.ID != "" {
		p.Field("id", r.ID)
	}
	if r.Detail != "" {
		p.Field("detail", r.Detail)
	}
}

// =============================================================================
// snap
// =============================================================================

type dragResult struct {
	Dragged   []string              `json:"dragged"`
	Anchor    geom.Point            `json:"anchor"`
	Offset    geom.Point            `json:"offset"`
	Snap      snap.Result           `json:"snap"`
	Positions map[string]geom.Point `json:"positions"`
}

// drag runs a one-frame drag of ids by the pointer movement by. A negative
// grid keeps the metrics grid.
func (a *app) drag(scene interaction.Snapshot, ids []string, by geom.Point, grid float64) (dragResult, error) {
	s, err := a.resolver.BeginDrag(scene, ids, geom.Point{})
	if err != nil {
		return dragResult{}, err
	}
	if grid >= 0 {
		s.SetGrid(grid)
	}
	f := s.Update(by)
	return dragResult{
		Dragged:   s.Dragged(),
		Anchor:    f.Anchor,
		Offset:    f.Offset,
		Snap:      f.Snap,
		Positions: s.Positions(f),
	}, nil
}

func (r dragResult) print(p *ux.Printer) {
	p.Title("Drag " + strings.Join(r.Dragged, ", "))
	p.Field("anchor", fmt.Sprintf("%g,%g", r.Anchor.X, r.Anchor.Y))
	p.Field("offset", fmt.Sprintf("%g,%g", r.Offset.X, r.Offset.Y))
	p.Field("snap x", axisValue(r.Snap.X))
	p.Field("snap y", axisValue(r.Snap.Y))
	for _, l := range r.Snap.Lines {
		p.Item(fmt.Sprintf("%s guide at %g from %g to %g", l.Axis, l.Position, l.Start, l.End))
	}
	ids := make([]string, 0, len(r.Positions))
	for id := range r.Positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		pos := r.Positions[id]
		p.Item(fmt.Sprintf("%s %s %g,%g", id, ux.IconArrow, pos.X, pos.Y))
	}
}

func axisValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

// =============================================================================
// render
// =============================================================================

type renderEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type renderBox struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type renderResult struct {
	Nodes       []string     `json:"nodes"`
	Edges       []renderEdge `json:"edges"`
	HiddenEdges int          `json:"hidden_edges"`
	Collapsed   []renderBox  `json:"collapsed"`
	View        geom.Bounds  `json:"view"`
	InView      int          `json:"in_view"`
}

func (a *app) render(ctx context.Context, scene interaction.Snapshot) renderResult {
	f := a.resolver.Frame(ctx, scene)
	r := renderResult{
		Nodes:       make([]string, len(f.Nodes)),
		Edges:       make([]renderEdge, len(f.Edges)),
		Collapsed:   make([]renderBox, len(f.Collapsed)),
		HiddenEdges: len(scene.Edges) - len(f.Edges),
		View:        f.View,
		InView:      f.InView,
	}
	for i := range f.Nodes {
		r.Nodes[i] = f.Nodes[i].ID
	}
	for i := range f.Edges {
		e := &f.Edges[i]
		r.Edges[i] = renderEdge{ID: e.Edge.ID, Source: endpointLabel(e.Source), Target: endpointLabel(e.Target)}
	}
	for i, c := range f.Collapsed {
		r.Collapsed[i] = renderBox{
			ID: c.Subflow.ID, Name: c.Subflow.Name,
			X: c.Box.X, Y: c.Box.Y, Width: c.Box.Width, Height: c.Box.Height,
		}
	}
	return r
}

func (r renderResult) print(p *ux.Printer) {
	p.Title("Frame")
	p.Summary(
		ux.Count{N: len(r.Nodes), Label: "nodes"},
		ux.Count{N: len(r.Edges), Label: "edges"},
		ux.Count{N: len(r.Collapsed), Label: "collapsed"},
		ux.Count{N: r.HiddenEdges, Label: "hidden edges"},
	)
	p.Field("view", fmt.Sprintf("%g,%g to %g,%g", r.View.MinX, r.View.MinY, r.View.MaxX, r.View.MaxY))
	p.Field("in view", r.InView)
	for _, e := range r.Edges {
		p.Item(fmt.Sprintf("%s %s %s %s", e.ID, e.Source, ux.IconArrow, e.Target))
	}
	for _, b := range r.Collapsed {
		p.Item(fmt.Sprintf("%s %q at %g,%g size %gx%g", b.ID, b.Name, b.X, b.Y, b.Width, b.Height))
	}
}

// =============================================================================
// check
// =============================================================================

type checkResult struct {
	Nodes    int      `json:"nodes"`
	Edges    int      `json:"edges"`
	Subflows int      `json:"subflows"`
	Findings []string `json:"findings"`
}

func (a *app) check(scene interaction.Snapshot) checkResult {
	r := checkResult{
		Nodes:    len(scene.Nodes),
		Edges:    len(scene.Edges),
		Subflows: len(scene.Subflows),
		Findings: []string{},
	}
	if err := model.ValidateGraph(scene.Nodes, scene.Edges, scene.Groups, scene.Subflows); err != nil {
		r.Findings = append(r.Findings, err.Error())
	}
	for _, issue := range subflow.Check(scene.Subflows, scene.Nodes) {
		r.Findings = append(r.Findings, issue.String())
	}
	a.logger.Info("scene checked", "nodes", r.Nodes, "findings", len(r.Findings))
	return r
}

func (r checkResult) print(p *ux.Printer) {
	p.Title("Check")
	for _, f := range r.Findings {
		p.Warning(f)
	}
	p.Summary(
		ux.Count{N: len(r.Findings), Label: "findings", Bad: true},
		ux.Count{N: r.Nodes, Label: "nodes"},
		ux.Count{N: r.Edges, Label: "edges"},
		ux.Count{N: r.Subflows, Label: "subflows"},
	)
	if len(r.Findings) == 0 {
		p.Success("scene is consistent")
	}
}
