// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across rigrun-assist.
//
// # Key Functions
//
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - SingleLine: Collapses newlines for one-line previews
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - ExpandHome: Resolves a leading ~ in user-supplied paths
//
// # Usage
//
//	display := util.TruncateRunes(longText, 50)
//	err := util.AtomicWriteFile(path, data, 0644)
package util
