// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigrun-assist/internal/export"
	"github.com/jeranaias/rigrun-assist/internal/model"
	"github.com/jeranaias/rigrun-assist/internal/session"
	"github.com/jeranaias/rigrun-assist/internal/upload"
	"github.com/jeranaias/rigrun-assist/internal/util"
)

// HelpText lists the slash commands shared by the TUI and the line REPL.
const HelpText = "/upload [path]  /select <path>  /unselect  /retry  /clear  /export [md|json]  /quit  (//text sends /text)"

// ParseInput reports whether line is a slash command. Commands come back
// trimmed. Anything else is message text and comes back unchanged, except
// that a leading "//" loses one slash so messages can start with "/".
func ParseInput(line string) (text string, isCommand bool) {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "//"):
		i := strings.IndexByte(line, '/')
		return line[:i] + line[i+1:], false
	case strings.HasPrefix(trimmed, "/"):
		return trimmed, true
	}
	return line, false
}

// ParseCommand splits "/name arg..." into the lowercased name and the
// remaining argument text.
func ParseCommand(line string) (name, arg string) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	name, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// runCommand executes a slash command.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, arg := ParseCommand(line)

	switch name {
	case "upload":
		if arg != "" {
			if !m.selectPath(arg) {
				return m, nil
			}
		}
		return m.startUpload()

	case "select":
		if arg == "" {
			m.setNotice("Usage: /select <path>", true)
			return m, nil
		}
		if m.selectPath(arg) {
			m.notice = ""
		}
		return m, nil

	case "unselect":
		if err := m.uploads.Clear(); errors.Is(err, upload.ErrBusy) {
			m.setNotice("Wait for the current upload to finish.", true)
			return m, nil
		}
		m.setNotice("File selection cleared.", false)
		return m, nil

	case "retry":
		return m.startUpload()

	case "clear":
		if err := m.chat.Reset(); errors.Is(err, session.ErrBusy) {
			m.setNotice("Cannot clear while a message is being sent.", true)
			return m, nil
		}
		m.rendered = make(map[string]string)
		m.setNotice("Started a new conversation.", false)
		m.refresh()
		return m, nil

	case "export":
		exporter, err := export.ForFormat(arg, nil)
		if err != nil {
			m.setNotice(err.Error(), true)
			return m, nil
		}
		return m, m.exportCmd(exporter)

	case "help", "?":
		m.setNotice(HelpText, false)
		return m, nil

	case "quit", "exit":
		return m, tea.Quit
	}

	m.setNotice("Unknown command /"+name+". "+HelpText, true)
	return m, nil
}

// selectPath opens path and puts it in the upload slot, reporting problems
// as a notice.
func (m *Model) selectPath(path string) bool {
	file, err := model.OpenLocalFile(util.ExpandHome(path))
	if err != nil {
		m.setNotice("Cannot select file: "+err.Error(), true)
		return false
	}
	if err := m.uploads.SelectFile(file); err != nil {
		if errors.Is(err, upload.ErrBusy) {
			m.setNotice("Wait for the current upload to finish.", true)
		} else {
			m.setNotice(err.Error(), true)
		}
		return false
	}
	return true
}

// startUpload begins a transfer of the selected file.
func (m Model) startUpload() (tea.Model, tea.Cmd) {
	tr, err := m.uploads.Begin()
	switch {
	case errors.Is(err, upload.ErrNoFile):
		m.setNotice(upload.MsgSelectPrompt, true)
		return m, nil
	case errors.Is(err, upload.ErrBusy):
		m.setNotice("Wait for the current upload to finish.", true)
		return m, nil
	case err != nil:
		m.setNotice(err.Error(), true)
		return m, nil
	}
	m.notice = ""
	return m, tea.Batch(m.uploads.UploadCmd(m.ctx, tr), m.spinner.Tick)
}

// exportCmd writes the transcript in the background.
func (m Model) exportCmd(exporter export.Exporter) tea.Cmd {
	conv := &export.Conversation{
		SessionID: m.chat.SessionID(),
		UserID:    m.chat.Identity(),
		Messages:  m.chat.Messages(),
	}
	opts := export.DefaultOptions()
	if m.exportDir != "" {
		opts.OutputDir = util.ExpandHome(m.exportDir)
	}
	return func() tea.Msg {
		path, err := export.ExportToFile(conv, exporter, opts)
		return exportDoneMsg{Path: path, Err: err}
	}
}

// stateLabel names the chat state for the status bar.
func stateLabel(s model.RequestState) string {
	if s == model.StateSending {
		return "waiting for reply"
	}
	return "ready"
}
