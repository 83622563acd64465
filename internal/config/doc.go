// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for
// rigrun-assist.
//
// Supports both TOML and JSON configuration formats, with defaults that
// match a locally running assistant, environment variable overrides,
// validation, and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - EndpointConfig: Chat and upload endpoint settings
//   - SessionConfig: User identity sent with chat requests
//   - LogConfig: Logger level, format and destination
//   - UIConfig: Terminal UI preferences
//   - Watcher: Reloads the config file when it changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RIGRUN_ASSIST_*)
//   - ~/.rigrun-assist/config.toml
//   - ~/.rigrun-assist/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := remote.NewClient(cfg.RemoteConfig(), logger)
//
// Follow changes to the user id:
//
//	w, err := config.Watch(path, func(c *config.Config) {
//	    ctrl.SetIdentity(c.Session.UserID)
//	}, nil)
//	defer w.Close()
package config
