// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/rigrun-assist/internal/config"

// ConfigChangedMsg delivers a reloaded configuration to the running view.
type ConfigChangedMsg struct {
	Config *config.Config
}

// ConfigErrorMsg reports a config file that failed to reload.
type ConfigErrorMsg struct {
	Err error
}

// exportDoneMsg reports the result of an /export command.
type exportDoneMsg struct {
	Path string
	Err  error
}
