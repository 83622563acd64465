// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to Markdown or JSON files.
//
// Exports are snapshots for reading or sharing. Nothing in the application
// loads them back.
//
// # Key Types
//
//   - Conversation: Transcript plus session metadata
//   - Exporter: Format interface
//   - Options: Output directory and content switches
//
// # Supported Formats
//
//   - Markdown: Human-readable with optional YAML frontmatter
//   - JSON: Machine-readable, complete data
//
// # Usage
//
//	conv := &export.Conversation{
//	    SessionID: ctrl.SessionID(),
//	    UserID:    ctrl.Identity(),
//	    Messages:  ctrl.Messages(),
//	}
//	exporter, err := export.ForFormat("md", nil)
//	...
//	path, err := export.ExportToFile(conv, exporter, export.DefaultOptions())
package export
