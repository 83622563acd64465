// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigrun-assist command line.
//
// # Commands
//
//	rigrun-assist               TUI on a terminal, line REPL otherwise
//	rigrun-assist tui           Full-screen chat with an upload panel
//	rigrun-assist chat          Line-mode REPL with history
//	rigrun-assist upload <path> Upload one file and print the result
//	rigrun-assist config ...    show | init | get | set | path | keys
//
// Every command loads the configuration (--config or the default location),
// builds a logger and one remote client, and drives the session and upload
// controllers through it.
package cli
