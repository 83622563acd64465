// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles used by the chat view.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Transcript
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Timestamp      lipgloss.Style
	Body           lipgloss.Style

	// Input and status
	Prompt    lipgloss.Style
	StatusBar lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Pending   lipgloss.Style
	Muted     lipgloss.Style

	// Upload panel
	UploadPanel lipgloss.Style
}

// NewTheme detects the terminal and builds a theme.
func NewTheme() *Theme {
	out := termenv.DefaultOutput()
	return newTheme(out.Profile, out.HasDarkBackground())
}

func newTheme(profile termenv.Profile, dark bool) *Theme {
	return &Theme{
		IsDark:       dark,
		ColorProfile: profile,

		UserLabel:      lipgloss.NewStyle().Foreground(Cyan).Bold(true),
		AssistantLabel: lipgloss.NewStyle().Foreground(Purple).Bold(true),
		Timestamp:      lipgloss.NewStyle().Foreground(TextMuted),
		Body:           lipgloss.NewStyle().Foreground(TextPrimary),

		Prompt: lipgloss.NewStyle().Foreground(Cyan).Bold(true),
		StatusBar: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Background(SurfaceDim).
			Padding(0, 1),
		Error:   lipgloss.NewStyle().Foreground(Rose),
		Success: lipgloss.NewStyle().Foreground(Emerald),
		Pending: lipgloss.NewStyle().Foreground(Amber),
		Muted:   lipgloss.NewStyle().Foreground(TextMuted),

		UploadPanel: lipgloss.NewStyle().
			Foreground(TextSecondary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Overlay),
	}
}

// MarkdownStyle resolves a configured markdown theme name to a glamour
// standard style. "auto" follows the terminal background, and terminals
// without color get "notty".
func (t *Theme) MarkdownStyle(name string) string {
	switch strings.ToLower(name) {
	case "dark", "light", "notty":
		return strings.ToLower(name)
	}
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}
