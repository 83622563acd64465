// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered message history of one conversation.
//
// Insertion order is chronological and is never changed. The only way to
// shrink a transcript is Clear, which drops every message at once.
//
// Transcript is not safe for concurrent use; its owner serializes access.
type Transcript struct {
	messages []Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: make([]Message, 0, 16)}
}

// Append adds a message to the end of the transcript and returns the new length.
func (t *Transcript) Append(msg Message) int {
	t.messages = append(t.messages, msg)
	return len(t.messages)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// IsEmpty reports whether the transcript holds no messages.
func (t *Transcript) IsEmpty() bool {
	return len(t.messages) == 0
}

// At returns the message at index i.
func (t *Transcript) At(i int) (Message, bool) {
	if i < 0 || i >= len(t.messages) {
		return Message{}, false
	}
	return t.messages[i], true
}

// Last returns the most recent message.
func (t *Transcript) Last() (Message, bool) {
	return t.At(len(t.messages) - 1)
}

// Messages returns a copy of all messages in order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Clear removes every message.
func (t *Transcript) Clear() {
	t.messages = make([]Message, 0, 16)
}
