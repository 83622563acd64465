// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-assist/internal/config"
	"github.com/jeranaias/rigrun-assist/internal/ui/chat"
	"github.com/jeranaias/rigrun-assist/internal/ui/styles"
)

func newTUICommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen chat interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}
}

// runTUI runs the Bubble Tea program. Edits to the config file are pushed
// into the running program.
func runTUI(ctx context.Context, flags *globalFlags) error {
	a, err := newApp(flags, true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chatCtl, uploads := a.controllers()
	model := chat.New(ctx, chat.Options{
		Chat:          chatCtl,
		Uploads:       uploads,
		Markdown:      a.cfg.UI.Markdown,
		MarkdownTheme: a.cfg.UI.Theme,
		ExportDir:     a.cfg.UI.ExportDir,
		Theme:         styles.NewTheme(),
		Logger:        a.logger,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if a.configPath != "" {
		watcher, err := config.Watch(a.configPath,
			func(cfg *config.Config) { program.Send(chat.ConfigChangedMsg{Config: cfg}) },
			func(err error) { program.Send(chat.ConfigErrorMsg{Err: err}) },
		)
		if err != nil {
			a.logger.Warn("config reload disabled", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
