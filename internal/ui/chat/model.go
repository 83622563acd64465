// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-assist/internal/model"
	"github.com/jeranaias/rigrun-assist/internal/session"
	"github.com/jeranaias/rigrun-assist/internal/ui/render"
	"github.com/jeranaias/rigrun-assist/internal/ui/styles"
	"github.com/jeranaias/rigrun-assist/internal/upload"
)

// Options configures the chat view.
type Options struct {
	Chat    *session.Controller
	Uploads *upload.Controller

	// Markdown renders assistant replies; MarkdownTheme is a config theme
	// name (auto, dark, light, notty).
	Markdown      bool
	MarkdownTheme string

	// ExportDir receives /export files
	ExportDir string

	Theme  *styles.Theme
	Logger *zap.Logger
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx     context.Context
	chat    *session.Controller
	uploads *upload.Controller
	logger  *zap.Logger

	theme         *styles.Theme
	keys          KeyMap
	markdownOn    bool
	markdownTheme string
	markdown      *render.Markdown
	rendered      map[string]string // assistant message ID -> rendered reply
	exportDir     string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	progress progress.Model

	width  int
	height int
	ready  bool

	// notice is a transient line for command feedback
	notice      string
	noticeError bool
}

// New creates the chat view. ctx bounds every network call the view starts.
func New(ctx context.Context, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	input := textinput.New()
	input.Placeholder = "Type a message or /help"
	input.Prompt = "> "
	input.PromptStyle = theme.Prompt
	input.CharLimit = 0
	input.SetValue(opts.Chat.Draft())
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.AssistantLabel

	m := Model{
		ctx:           ctx,
		chat:          opts.Chat,
		uploads:       opts.Uploads,
		logger:        logger.Named("ui"),
		theme:         theme,
		keys:          DefaultKeyMap(),
		markdownOn:    opts.Markdown,
		markdownTheme: opts.MarkdownTheme,
		rendered:      make(map[string]string),
		exportDir:     opts.ExportDir,
		input:         input,
		viewport:      viewport.New(80, 20),
		spinner:       sp,
		progress:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:         80,
		height:        24,
	}
	m.markdown = render.NewMarkdown(theme.MarkdownStyle(m.markdownTheme), m.contentWidth(), m.markdownOn)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// busy reports whether a chat turn or upload is in flight.
func (m Model) busy() bool {
	return m.chat.State() == model.StateSending || m.uploads.Status() == model.UploadUploading
}
