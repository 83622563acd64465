// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-assist/internal/config"
	"github.com/jeranaias/rigrun-assist/internal/export"
	"github.com/jeranaias/rigrun-assist/internal/model"
	"github.com/jeranaias/rigrun-assist/internal/remote"
	"github.com/jeranaias/rigrun-assist/internal/session"
	"github.com/jeranaias/rigrun-assist/internal/ui/chat"
	"github.com/jeranaias/rigrun-assist/internal/ui/render"
	"github.com/jeranaias/rigrun-assist/internal/ui/styles"
	"github.com/jeranaias/rigrun-assist/internal/upload"
	"github.com/jeranaias/rigrun-assist/internal/util"
)

func newChatCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Line-mode chat with input history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags)
		},
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// prompter reads one line of input. *liner.State implements it.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// lineEditor wraps liner with history persisted in the config directory.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{line: line, historyFile: filepath.Join(dir, "chat_history")}

	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return e
}

// Prompt reads a line and records non-empty input in the history.
func (e *lineEditor) Prompt(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (e *lineEditor) Close() {
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = e.line.WriteHistory(f)
			f.Close()
		}
	}
	e.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// repl is the line-mode host: the same controllers and slash commands as
// the TUI, driven with blocking calls.
type repl struct {
	chat      *session.Controller
	uploads   *upload.Controller
	markdown  *render.Markdown
	theme     *styles.Theme
	exportDir string
	out       io.Writer
	logger    *zap.Logger
}

// newREPL wires the controllers to out. Failed sends are reported through
// the session's failure callback.
func newREPL(chatCtl *session.Controller, uploads *upload.Controller, out io.Writer, logger *zap.Logger) *repl {
	r := &repl{
		chat:     chatCtl,
		uploads:  uploads,
		markdown: render.NewMarkdown("notty", 80, false),
		theme:    styles.NewTheme(),
		out:      out,
		logger:   logger,
	}
	chatCtl.SetFailureCallback(func(f session.Failure) {
		r.printError(f.Message)
	})
	return r
}

func runChat(cmd *cobra.Command, flags *globalFlags) error {
	a, err := newApp(flags, false)
	if err != nil {
		return err
	}
	defer a.close()

	chatCtl, uploads := a.controllers()
	r := newREPL(chatCtl, uploads, cmd.OutOrStdout(), a.logger)
	r.markdown = render.NewMarkdown(r.theme.MarkdownStyle(a.cfg.UI.Theme), GetTerminalWidth(), a.cfg.UI.Markdown && IsStdoutTTY())
	r.exportDir = a.cfg.UI.ExportDir

	editor := newLineEditor()
	defer editor.Close()

	fmt.Fprintf(r.out, "Chatting as %s. Type /help for commands, /quit to leave.\n", chatCtl.Identity())
	return r.run(cmd.Context(), editor)
}

// run reads lines until EOF, Ctrl+C, /quit or ctx is done.
func (r *repl) run(ctx context.Context, in prompter) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := in.Prompt(r.theme.Prompt.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if !r.handleLine(ctx, line) {
			return nil
		}
	}
}

// handleLine processes one line of input and reports whether to keep going.
func (r *repl) handleLine(ctx context.Context, line string) bool {
	if strings.TrimSpace(line) == "" {
		return true
	}
	text, isCommand := chat.ParseInput(line)
	if isCommand {
		return r.runCommand(ctx, text)
	}

	err := r.chat.SubmitMessage(ctx, text)
	switch {
	case err == nil:
		if reply, ok := r.chat.LastMessage(); ok {
			fmt.Fprintln(r.out, r.theme.AssistantLabel.Render(reply.Role.DisplayName()+":"))
			fmt.Fprintln(r.out, r.markdown.Render(reply.Content))
		}
	case errors.Is(err, session.ErrEmptyMessage):
	default:
		// Send failures were already printed by the failure callback.
		if f, ok := r.chat.LastFailure(); !ok || !errors.Is(err, f.Err) {
			r.printError(remote.UserMessage(err))
		}
	}
	return true
}

// runCommand executes a slash command and reports whether to keep going.
func (r *repl) runCommand(ctx context.Context, line string) bool {
	name, arg := chat.ParseCommand(line)

	switch name {
	case "upload":
		if arg != "" && !r.selectPath(arg) {
			return true
		}
		r.upload(ctx)

	case "select":
		if arg == "" {
			r.printError("Usage: /select <path>")
			return true
		}
		if r.selectPath(arg) {
			fmt.Fprintln(r.out, r.uploads.Task().StatusText())
		}

	case "unselect":
		if err := r.uploads.Clear(); err != nil {
			r.printError(err.Error())
			return true
		}
		fmt.Fprintln(r.out, "File selection cleared.")

	case "retry":
		r.upload(ctx)

	case "clear":
		if err := r.chat.Reset(); err != nil {
			r.printError(err.Error())
			return true
		}
		fmt.Fprintln(r.out, r.theme.Success.Render("Started a new conversation."))

	case "export":
		r.export(arg)

	case "help", "?":
		fmt.Fprintln(r.out, chat.HelpText)

	case "quit", "exit":
		return false

	default:
		r.printError("Unknown command /" + name + ". " + chat.HelpText)
	}
	return true
}

func (r *repl) selectPath(path string) bool {
	file, err := model.OpenLocalFile(util.ExpandHome(path))
	if err != nil {
		r.printError("Cannot select file: " + err.Error())
		return false
	}
	if err := r.uploads.SelectFile(file); err != nil {
		r.printError(err.Error())
		return false
	}
	return true
}

func (r *repl) upload(ctx context.Context) {
	err := r.uploads.Upload(ctx)
	if errors.Is(err, upload.ErrNoFile) {
		r.printError(upload.MsgSelectPrompt)
		return
	}
	if err != nil {
		r.logger.Debug("upload failed", zap.Error(err))
	}

	task := r.uploads.Task()
	switch task.Status {
	case model.UploadSucceeded:
		fmt.Fprintln(r.out, r.theme.Success.Render(task.StatusText()))
	case model.UploadFailed:
		r.printError(task.StatusText())
	default:
		if err != nil {
			r.printError(err.Error())
		}
	}
}

func (r *repl) export(format string) {
	exporter, err := export.ForFormat(format, nil)
	if err != nil {
		r.printError(err.Error())
		return
	}
	opts := export.DefaultOptions()
	if r.exportDir != "" {
		opts.OutputDir = util.ExpandHome(r.exportDir)
	}
	conv := &export.Conversation{
		SessionID: r.chat.SessionID(),
		UserID:    r.chat.Identity(),
		Messages:  r.chat.Messages(),
	}
	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		r.printError("Export failed: " + err.Error())
		return
	}
	fmt.Fprintln(r.out, r.theme.Success.Render("Exported to "+path))
}

func (r *repl) printError(msg string) {
	fmt.Fprintln(r.out, r.theme.Error.Render("[Error] "+msg))
}
