// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// RequestState gates chat sends. A session has at most one request in
// flight: a new send is only accepted in StateIdle.
type RequestState int

const (
	StateIdle    RequestState = iota // Ready to send
	StateSending                     // Waiting for the assistant reply
)

// String returns the state name.
func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	default:
		return "unknown"
	}
}
