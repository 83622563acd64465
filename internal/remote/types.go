// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// ChatRequest is the body posted to the chat endpoint.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	// Reset tells the server to discard any conversation context it holds
	Reset bool `json:"reset"`
}

// ChatResponse is the chat endpoint reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// UploadResponse is the upload endpoint reply.
type UploadResponse struct {
	Message string `json:"message"`
}

// ProgressFunc receives byte progress of an upload. total is -1 when unknown.
type ProgressFunc func(sent, total int64)

// chatReplyBody distinguishes a missing reply from an empty one.
type chatReplyBody struct {
	Reply *string `json:"reply"`
}

// errorBody covers the error shapes the endpoints return.
type errorBody struct {
	Detail  any    `json:"detail"`
	Message string `json:"message"`
	Error   any    `json:"error"`
}
