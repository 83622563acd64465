// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
//
// The view is a host for the session and upload controllers. It owns no
// conversation state of its own: the transcript, draft, request state and
// upload slot are read from the controllers on every render.
//
// Each send maps the controller's two phases onto the Bubble Tea loop:
// Begin runs in Update, the network call runs in a tea.Cmd, and the
// resulting TurnResultMsg is passed to Complete back in Update. Uploads
// work the same way with TransferResultMsg.
//
// # Key Types
//
//   - Model: Bubble Tea model for the chat screen
//   - Options: Controllers and presentation settings
//   - KeyMap: Keyboard bindings
//   - ConfigChangedMsg: Live config update from the watcher
//
// # Commands
//
//	/upload [path]   select a file (optional) and upload it
//	/select <path>   select a file without uploading
//	/unselect        empty the upload slot
//	/retry           upload the selected file again
//	/clear           start a new conversation
//	/export [md|json]  write the transcript to a file
//	/help            list commands
//	/quit            exit
//
// A line starting with "//" is sent as a message with one slash removed,
// so "//etc/hosts" sends "/etc/hosts".
package chat
