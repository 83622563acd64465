// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-assist/internal/config"
	"github.com/jeranaias/rigrun-assist/internal/logging"
	"github.com/jeranaias/rigrun-assist/internal/remote"
	"github.com/jeranaias/rigrun-assist/internal/session"
	"github.com/jeranaias/rigrun-assist/internal/ui/styles"
	"github.com/jeranaias/rigrun-assist/internal/upload"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
}

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds what every command needs: configuration, logger and the remote
// client both controllers send through.
type app struct {
	cfg        *config.Config
	configPath string // file the config came from, "" for defaults
	logger     *zap.Logger
	client     *remote.Client
}

// newApp loads configuration and builds the logger and client. interactive
// is true for the full-screen TUI, which owns the terminal.
func newApp(flags *globalFlags, interactive bool) (*app, error) {
	path := resolveConfigPath(flags.configPath)

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cfg.Log, interactive)
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(cfg.RemoteConfig(), logger)
	logger.Debug("configuration loaded",
		zap.String("path", path),
		zap.String("chat_url", client.ChatURL()),
		zap.String("upload_url", client.UploadURL()))

	return &app{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		client:     client,
	}, nil
}

// controllers creates a fresh chat session and upload slot bound to the client.
func (a *app) controllers() (*session.Controller, *upload.Controller) {
	chat := session.NewController(a.client, session.Config{
		Identity: a.cfg.Session.UserID,
		Logger:   a.logger,
	})
	uploads := upload.NewController(a.client, upload.Config{Logger: a.logger})
	return chat, uploads
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// resolveConfigPath returns the explicit path, else the first default config
// file that exists, else "".
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, pathFn := range []func() (string, error){config.ConfigPathTOML, config.ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "rigrun-assist",
		Short: "Terminal client for a chat and document upload service",
		Long: `rigrun-assist talks to a chat endpoint and a file upload endpoint.

Run without arguments to start the full-screen interface on a terminal, or
the line-mode REPL when input is piped.`,
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if IsTTY() && IsStdoutTTY() {
				return runTUI(cmd.Context(), flags)
			}
			return runChat(cmd, flags)
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"config file (default ~/.rigrun-assist/config.toml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"enable debug logging")

	root.AddCommand(
		newTUICommand(flags),
		newChatCommand(flags),
		newUploadCommand(flags),
		newConfigCommand(flags),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		theme := styles.NewTheme()
		fmt.Fprintln(os.Stderr, theme.Error.Render("Error:"), err)
		return 1
	}
	return 0
}
