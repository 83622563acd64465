// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the session and
// upload controllers.
//
// # Key Types
//
//   - Message: Immutable transcript entry with role, content and timestamp
//   - Transcript: Append-only, chronologically ordered message history
//   - RequestState: Chat request gate (Idle, Sending)
//   - UploadTask: Single-slot upload state with status and progress
//   - FileHandle: Anything the upload endpoint can stream (LocalFile on disk)
//
// # Usage
//
//	t := model.NewTranscript()
//	t.Append(model.NewUserMessage("hello"))
//	t.Append(model.NewAssistantMessage("hi"))
//	for _, m := range t.Messages() {
//	    fmt.Printf("%s: %s\n", m.Role.DisplayName(), m.Content)
//	}
package model
