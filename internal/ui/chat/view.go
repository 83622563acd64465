// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigrun-assist/internal/model"
	"github.com/jeranaias/rigrun-assist/internal/ui/render"
)

// View implements tea.Model.
func (m Model) View() string {
	sections := []string{
		m.viewport.View(),
		m.renderNotice(),
		m.renderUploadPanel(),
		m.renderInput(),
		m.renderStatusBar(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript() string {
	msgs := m.chat.Messages()
	if len(msgs) == 0 {
		return m.theme.Muted.Render("Say hello to start a conversation. Type /help for commands.")
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := m.theme.UserLabel
		if msg.Role == model.RoleAssistant {
			label = m.theme.AssistantLabel
		}
		b.WriteString(label.Render(msg.Role.DisplayName()))
		b.WriteString(" ")
		b.WriteString(m.theme.Timestamp.Render(msg.Timestamp.Format("15:04")))
		b.WriteString("\n")
		b.WriteString(m.renderContent(msg))
	}
	return b.String()
}

// renderContent wraps user text and renders assistant replies as markdown,
// caching the rendered reply by message ID.
func (m Model) renderContent(msg model.Message) string {
	plain := m.theme.Body.Width(m.contentWidth())
	if msg.Role != model.RoleAssistant || !m.markdown.Enabled() {
		return plain.Render(msg.Content)
	}
	if out, ok := m.rendered[msg.ID]; ok {
		return out
	}
	out := m.markdown.Render(msg.Content)
	m.rendered[msg.ID] = out
	return out
}

// =============================================================================
// CHROME
// =============================================================================

func (m Model) renderNotice() string {
	if m.notice != "" {
		style := m.theme.Success
		if m.noticeError {
			style = m.theme.Error
		}
		return style.Render(render.Truncate(m.notice, m.width))
	}
	if f, ok := m.chat.LastFailure(); ok {
		return m.theme.Error.Render(render.Truncate("Send failed: "+f.Message, m.width))
	}
	return ""
}

func (m Model) renderUploadPanel() string {
	task := m.uploads.Task()
	panel := m.theme.UploadPanel.Width(m.width)

	if task.Status == model.UploadEmpty {
		return panel.Render("No file selected. Use /upload <path>.")
	}

	name := "(none)"
	if task.HasFile() {
		name = render.TruncateLeft(task.File.Name(), 30)
	}

	var status string
	switch task.Status {
	case model.UploadUploading:
		status = m.spinner.View() + " " + m.theme.Pending.Render(task.StatusText()) + " " +
			m.progress.ViewAs(task.Fraction())
	case model.UploadSucceeded:
		status = m.theme.Success.Render(task.StatusText())
	case model.UploadFailed:
		status = m.theme.Error.Render(task.StatusText())
	default:
		status = task.StatusText()
	}
	return panel.Render(fmt.Sprintf("%s  %s", name, status))
}

func (m Model) renderInput() string {
	if m.chat.State() == model.StateSending {
		return m.spinner.View() + " " + m.theme.Pending.Render("Waiting for reply...")
	}
	return m.input.View()
}

func (m Model) renderStatusBar() string {
	var help []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	left := fmt.Sprintf("%s · %s · %s",
		m.chat.Identity(),
		stateLabel(m.chat.State()),
		strings.Join(help, " · "),
	)
	return m.theme.StatusBar.Width(m.width).Render(render.Truncate(left, m.width-2))
}

