// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant replies and file names into terminal text.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"
)

// Markdown renders markdown for the terminal, falling back to the raw text
// when rendering is disabled or fails.
type Markdown struct {
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer for a glamour standard style ("dark",
// "light" or "notty") wrapping at width. A disabled renderer passes text
// through unchanged.
func NewMarkdown(style string, width int, enabled bool) *Markdown {
	if !enabled {
		return &Markdown{}
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// Plain text fallback
		return &Markdown{}
	}
	return &Markdown{renderer: r}
}

// Enabled reports whether markdown is rendered.
func (m *Markdown) Enabled() bool {
	return m != nil && m.renderer != nil
}

// Render returns content rendered for the terminal, without the blank
// margin lines glamour adds.
func (m *Markdown) Render(content string) string {
	if !m.Enabled() {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// Truncate shortens s to fit width terminal cells, marking the cut with an
// ellipsis. Wide characters count as two cells.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// TruncateLeft keeps the end of s, which is the informative part of a path.
func TruncateLeft(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.TruncateLeft(s, runewidth.StringWidth(s)-width+1, "…")
}
