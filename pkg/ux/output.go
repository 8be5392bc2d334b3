// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides styled terminal output for the canvas tools.
//
// Styling is applied only when the destination is a terminal. Pipes, files,
// and test buffers receive plain text with the same layout.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Colour palette, deep ocean teals.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#2C4A54")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorMuted),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

func (i Icon) style() lipgloss.Style {
	switch i {
	case IconSuccess:
		return Styles.Success
	case IconWarning:
		return Styles.Warning
	case IconError:
		return Styles.Error
	case IconPending:
		return Styles.Muted
	default:
		return lipgloss.NewStyle()
	}
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes human-readable output to one destination.
//
// # Thread Safety
//
// Not safe for concurrent use; lines from concurrent callers may interleave.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter creates a Printer for w. Colour is enabled only when w is a
// terminal and NO_COLOR is unset.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, color: IsTerminal(w) && os.Getenv("NO_COLOR") == ""}
}

// NewPlainPrinter creates a Printer that never styles its output.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Color reports whether the printer styles its output.
func (p *Printer) Color() bool {
	return p.color
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) icon(i Icon) string {
	return p.render(i.style(), string(i))
}

// Title prints a styled title.
func (p *Printer) Title(text string) {
	fmt.Fprintln(p.w, p.render(Styles.Title, text))
}

// Success prints a message with a checkmark.
func (p *Printer) Success(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconSuccess), p.render(Styles.Success, text))
}

// Warning prints a warning message.
func (p *Printer) Warning(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconWarning), p.render(Styles.Warning, text))
}

// Error prints an error message.
func (p *Printer) Error(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.icon(IconError), p.render(Styles.Error, text))
}

// Info prints an informational line.
func (p *Printer) Info(text string) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(Styles.Muted, "│"), text)
}

// Item prints a bulleted list entry.
func (p *Printer) Item(text string) {
	fmt.Fprintf(p.w, "  %s %s\n", p.icon(IconBullet), text)
}

// Field prints an aligned "key: value" line.
func (p *Printer) Field(key string, value any) {
	label := fmt.Sprintf("%-12s", key+":")
	fmt.Fprintf(p.w, "  %s %v\n", p.render(Styles.Muted, label), value)
}

// Box prints content under a title inside a rounded border. Plain output
// drops the border and indents the content instead.
func (p *Printer) Box(title, content string) {
	if !p.color {
		fmt.Fprintln(p.w, title)
		for _, line := range strings.Split(content, "\n") {
			fmt.Fprintf(p.w, "  %s\n", line)
		}
		return
	}
	fmt.Fprintln(p.w, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// Summary prints a count line such as "3 issues  12 nodes".
func (p *Printer) Summary(counts ...Count) {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		style := Styles.Bold
		switch {
		case c.Bad && c.N > 0:
			style = Styles.Error
		case c.Bad:
			style = Styles.Success
		}
		parts = append(parts, p.render(style, fmt.Sprintf("%d", c.N))+" "+p.render(Styles.Muted, c.Label))
	}
	fmt.Fprintln(p.w, strings.Join(parts, "  "))
}

// Count is one entry of a Summary line. Bad counts render red when
// non-zero and green when zero.
type Count struct {
	N     int
	Label string
	Bad   bool
}
