// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-assist/internal/session"
	"github.com/jeranaias/rigrun-assist/internal/ui/render"
	"github.com/jeranaias/rigrun-assist/internal/upload"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case session.TurnResultMsg:
		if err := m.chat.Complete(msg.Turn, msg.Response, msg.Err); err != nil {
			m.logger.Debug("dropped turn result", zap.Error(err))
		}
		m.refresh()
		return m, nil

	case upload.TransferResultMsg:
		if err := m.uploads.Complete(msg.Transfer, msg.Response, msg.Err); err != nil {
			m.logger.Debug("dropped upload result", zap.Error(err))
		}
		return m, nil

	case exportDoneMsg:
		if msg.Err != nil {
			m.setNotice("Export failed: "+msg.Err.Error(), true)
		} else {
			m.setNotice("Exported to "+msg.Path, false)
		}
		return m, nil

	case ConfigChangedMsg:
		return m.applyConfig(msg), nil

	case ConfigErrorMsg:
		m.setNotice("Config not reloaded: "+msg.Err.Error(), true)
		return m, nil

	case spinner.TickMsg:
		// Keep animating only while something is in flight.
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey routes key presses to scrolling, quitting, submission or the
// input line.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.chat.SetDraft(m.input.Value())
	return m, cmd
}

// submit sends the input line as a message or runs it as a command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text, isCommand := ParseInput(m.input.Value())
	if isCommand {
		m.input.Reset()
		m.chat.SetDraft("")
		return m.runCommand(text)
	}

	turn, err := m.chat.Begin(text)
	switch {
	case errors.Is(err, session.ErrEmptyMessage):
		return m, nil
	case errors.Is(err, session.ErrBusy):
		m.setNotice("Still waiting for the last reply.", true)
		return m, nil
	case err != nil:
		m.setNotice(err.Error(), true)
		return m, nil
	}

	m.input.Reset()
	m.notice = ""
	m.refresh()
	return m, tea.Batch(m.chat.SendCmd(m.ctx, turn), m.spinner.Tick)
}

// applyConfig pushes live-reloadable settings into the view and controllers.
func (m Model) applyConfig(msg ConfigChangedMsg) Model {
	cfg := msg.Config
	if cfg == nil {
		return m
	}
	m.chat.SetIdentity(cfg.Session.UserID)
	m.exportDir = cfg.UI.ExportDir
	if cfg.UI.Markdown != m.markdownOn || cfg.UI.Theme != m.markdownTheme {
		m.markdownOn = cfg.UI.Markdown
		m.markdownTheme = cfg.UI.Theme
		m.rebuildMarkdown()
	}
	m.setNotice("Configuration reloaded.", false)
	m.refresh()
	return m
}

// =============================================================================
// LAYOUT
// =============================================================================

// chromeHeight is the number of lines outside the transcript: notice,
// upload panel, input and status bar.
const chromeHeight = 7

func (m *Model) resize() {
	m.input.Width = m.width - 4
	m.viewport.Width = m.width
	h := m.height - chromeHeight
	if h < 3 {
		h = 3
	}
	m.viewport.Height = h

	pw := m.width - 30
	if pw < 10 {
		pw = 10
	}
	m.progress.Width = pw

	m.rebuildMarkdown()
	m.refresh()
}

func (m *Model) rebuildMarkdown() {
	m.markdown = render.NewMarkdown(m.theme.MarkdownStyle(m.markdownTheme), m.contentWidth(), m.markdownOn)
	m.rendered = make(map[string]string)
}

func (m Model) contentWidth() int {
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	return w
}

// refresh re-renders the transcript into the viewport, following the tail
// when the view was already at the bottom.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom || m.viewport.TotalLineCount() <= m.viewport.Height {
		m.viewport.GotoBottom()
	}
}

func (m *Model) setNotice(text string, isError bool) {
	m.notice = text
	m.noticeError = isError
}
