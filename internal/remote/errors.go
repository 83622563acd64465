// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// Kind classifies a failure for handling at the controller boundary.
type Kind int

const (
	KindUnknown    Kind = iota
	KindNetwork         // Endpoint unreachable or transport failure
	KindRemote          // Non-success status from a reachable endpoint
	KindMalformed       // Success status but unusable body
	KindValidation      // Rejected locally before any network call
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRemote:
		return "remote"
	case KindMalformed:
		return "malformed"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a classified failure from the remote client or a controller.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status for KindRemote
	Message string // Human-readable; server supplied when Detail is true
	Detail  bool   // Message came from the server body
	Cause   error

	sentinel bool
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the kind sentinels, so errors.Is(err, ErrNetwork) holds for
// any network-kind Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || !t.sentinel {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel errors for errors.Is checks by kind.
var (
	ErrNetwork    = &Error{Kind: KindNetwork, Message: "network error", sentinel: true}
	ErrRemote     = &Error{Kind: KindRemote, Message: "remote error", sentinel: true}
	ErrMalformed  = &Error{Kind: KindMalformed, Message: "malformed response", sentinel: true}
	ErrValidation = &Error{Kind: KindValidation, Message: "validation error", sentinel: true}
)

// NewValidationError returns a KindValidation error with the given message.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Generic user-facing messages by kind.
const (
	msgNetwork   = "Could not reach the server. Check your connection and try again."
	msgRemote    = "The server could not handle the request. Please try again."
	msgMalformed = "The server sent an unexpected response."
	msgUnknown   = "Something went wrong. Please try again."
)

// UserMessage returns the text to show the user for err: the server's own
// message when it supplied one, otherwise a generic message for the kind.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return msgUnknown
	}
	if e.Detail || e.Kind == KindValidation {
		return e.Message
	}
	switch e.Kind {
	case KindNetwork:
		return msgNetwork
	case KindRemote:
		return msgRemote
	case KindMalformed:
		return msgMalformed
	default:
		return msgUnknown
	}
}
