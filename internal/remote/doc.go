// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package remote provides the HTTP client for the assistant chat endpoint
// and the file upload endpoint.
//
// Both endpoints are opaque collaborators. This package only knows their
// wire contract:
//
//	POST chat_url    {"user_id": "...", "message": "...", "reset": true}
//	                 -> {"reply": "..."}
//	POST upload_url  multipart/form-data, field "file"
//	                 -> {"message": "..."}
//
// # Key Types
//
//   - Client: HTTP client with pacing, response size limits and request logging
//   - ChatRequest / ChatResponse: Chat endpoint payloads
//   - UploadResponse: Upload endpoint payload
//   - Error: Classified failure (network, remote, malformed, validation)
//
// # Usage
//
//	client := remote.NewClient(remote.DefaultConfig(), logger)
//	resp, err := client.Chat(ctx, remote.ChatRequest{
//	    UserID:  "user123",
//	    Message: "hello",
//	    Reset:   true,
//	})
//	if errors.Is(err, remote.ErrNetwork) {
//	    // endpoint unreachable
//	}
//
// # Security
//
// Request and response bodies are never logged; only method, path, status
// and duration.
package remote
