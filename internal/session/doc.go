// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the chat session controller.
//
// The controller owns the transcript, the draft input buffer and the
// request state for one conversation. Sending is single-flight: while a
// turn is outstanding every further submission is rejected with ErrBusy.
//
// A send is two explicit phases. Begin validates the text, appends the user
// message and returns a Turn carrying the outbound request. Complete
// resolves that turn with the endpoint's reply or error. SubmitMessage runs
// both phases around a blocking ChatSender call.
//
// # Key Types
//
//   - Controller: Transcript and send/receive state machine
//   - Turn: Token for one outstanding request
//   - Failure: Last surfaced send failure
//   - Snapshot: Consistent copy of the observable state
//   - TurnResultMsg: Bubble Tea message carrying a turn result
//
// # Usage
//
//	ctrl := session.NewController(client, session.DefaultConfig())
//	if err := ctrl.SubmitMessage(ctx, "hello"); err != nil {
//	    if f, ok := ctrl.LastFailure(); ok {
//	        fmt.Println(f.Message)
//	    }
//	}
//
// Inside a Bubble Tea Update function:
//
//	turn, err := ctrl.Begin(input)
//	if err == nil {
//	    return m, ctrl.SendCmd(ctx, turn)
//	}
//	...
//	case session.TurnResultMsg:
//	    ctrl.Complete(msg.Turn, msg.Response, msg.Err)
//
// The first message of an empty transcript is sent with reset=true so the
// server discards any context it holds for the identity. Reset clears the
// transcript, so the next message resets the server again.
package session
