// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-assist/internal/model"
	"github.com/jeranaias/rigrun-assist/internal/remote"
)

// DefaultIdentity is the user id sent when none is configured.
const DefaultIdentity = "user123"

// Controller errors.
var (
	// ErrBusy is returned when a turn is already outstanding.
	ErrBusy = errors.New("a message is already being sent")

	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = remote.NewValidationError("message is empty")

	// ErrStaleTurn is returned when completing a turn that is not outstanding.
	ErrStaleTurn = errors.New("turn is not outstanding")

	// ErrNoSender is returned by blocking helpers when no sender is configured.
	ErrNoSender = errors.New("no chat sender configured")
)

// ChatSender delivers one chat request. *remote.Client implements it.
type ChatSender interface {
	Chat(ctx context.Context, req remote.ChatRequest) (*remote.ChatResponse, error)
}

// =============================================================================
// TYPES
// =============================================================================

// Turn is the token for one outstanding request.
type Turn struct {
	ID        string
	Epoch     uint64
	Request   remote.ChatRequest
	StartedAt time.Time
}

// Failure describes the last send that did not produce a reply.
type Failure struct {
	Kind    remote.Kind
	Message string // Text for the user
	Err     error
	At      time.Time
}

// Snapshot is a consistent copy of the controller's observable state.
type Snapshot struct {
	SessionID   string
	Identity    string
	State       model.RequestState
	Messages    []model.Message
	Draft       string
	LastFailure *Failure
	Epoch       uint64
}

// Config holds configuration for the controller.
type Config struct {
	// Identity is the user id sent with every request (default: "user123")
	Identity string

	// Logger receives lifecycle events. Message content is never logged.
	Logger *zap.Logger
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{Identity: DefaultIdentity}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives one chat session. It is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	sessionID  string
	identity   string
	transcript *model.Transcript
	state      model.RequestState
	draft      string
	failure    *Failure
	epoch      uint64
	current    *Turn

	sender ChatSender
	logger *zap.Logger

	// Callbacks
	onChange  func(Snapshot)
	onFailure func(Failure)
}

// NewController creates a controller. sender may be nil when only the
// two-phase API is used.
func NewController(sender ChatSender, cfg Config) *Controller {
	if cfg.Identity == "" {
		cfg.Identity = DefaultIdentity
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := "sess_" + uuid.NewString()
	return &Controller{
		sessionID:  id,
		identity:   cfg.Identity,
		transcript: model.NewTranscript(),
		state:      model.StateIdle,
		sender:     sender,
		logger:     logger.Named("session").With(zap.String("session", id)),
	}
}

// =============================================================================
// SEND CYCLE
// =============================================================================

// Begin starts a turn for text. The user message is appended, the draft is
// cleared and the state becomes Sending. The returned Turn carries the
// request to deliver.
func (c *Controller) Begin(text string) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state != model.StateIdle {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	reset := c.transcript.IsEmpty()
	c.transcript.Append(model.NewUserMessage(text))
	c.draft = ""
	c.state = model.StateSending

	turn := &Turn{
		ID:    "turn_" + uuid.NewString(),
		Epoch: c.epoch,
		Request: remote.ChatRequest{
			UserID:  c.identity,
			Message: text,
			Reset:   reset,
		},
		StartedAt: time.Now(),
	}
	c.current = turn

	snap := c.snapshotLocked()
	onChange := c.onChange
	c.mu.Unlock()

	c.logger.Debug("turn started",
		zap.String("turn", turn.ID),
		zap.Bool("reset", reset),
		zap.Int("length", len(text)))

	if onChange != nil {
		onChange(snap)
	}
	return turn, nil
}

// Complete resolves turn. On success the reply is appended as an assistant
// message; on failure nothing is appended and the failure is recorded. Either
// way the state returns to Idle. The send error itself is not returned.
func (c *Controller) Complete(turn *Turn, resp *remote.ChatResponse, sendErr error) error {
	c.mu.Lock()
	if turn == nil || turn != c.current {
		c.mu.Unlock()
		return ErrStaleTurn
	}

	if sendErr == nil && resp == nil {
		sendErr = &remote.Error{Kind: remote.KindMalformed, Message: "empty chat response"}
	}

	var failure *Failure
	if sendErr == nil {
		c.transcript.Append(model.NewAssistantMessage(resp.Reply))
		c.failure = nil
	} else {
		failure = &Failure{
			Kind:    remote.KindOf(sendErr),
			Message: remote.UserMessage(sendErr),
			Err:     sendErr,
			At:      time.Now(),
		}
		c.failure = failure
	}
	c.state = model.StateIdle
	c.current = nil

	snap := c.snapshotLocked()
	onChange := c.onChange
	onFailure := c.onFailure
	c.mu.Unlock()

	elapsed := time.Since(turn.StartedAt)
	if failure != nil {
		c.logger.Warn("turn failed",
			zap.String("turn", turn.ID),
			zap.Stringer("kind", failure.Kind),
			zap.Duration("elapsed", elapsed),
			zap.Error(sendErr))
	} else {
		c.logger.Debug("turn completed",
			zap.String("turn", turn.ID),
			zap.Duration("elapsed", elapsed))
	}

	// Execute callbacks outside lock
	if failure != nil && onFailure != nil {
		onFailure(*failure)
	}
	if onChange != nil {
		onChange(snap)
	}
	return nil
}

// SubmitMessage sends text and blocks until the turn is resolved. It returns
// the validation or gate error from Begin, or the send error.
func (c *Controller) SubmitMessage(ctx context.Context, text string) error {
	if c.sender == nil {
		return ErrNoSender
	}
	turn, err := c.Begin(text)
	if err != nil {
		return err
	}
	resp, sendErr := c.sender.Chat(ctx, turn.Request)
	if err := c.Complete(turn, resp, sendErr); err != nil {
		return err
	}
	return sendErr
}

// Reset clears the transcript and failure so the next message starts a new
// server-side conversation. It is rejected while a turn is outstanding.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.state != model.StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.transcript.Clear()
	c.failure = nil
	c.epoch++
	epoch := c.epoch
	snap := c.snapshotLocked()
	onChange := c.onChange
	c.mu.Unlock()

	c.logger.Info("session reset", zap.Uint64("epoch", epoch))

	if onChange != nil {
		onChange(snap)
	}
	return nil
}

// =============================================================================
// DRAFT AND IDENTITY
// =============================================================================

// SetDraft replaces the draft input buffer.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Draft returns the draft input buffer.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetIdentity changes the user id used by subsequent turns. An outstanding
// turn keeps the id it was started with. Empty ids are ignored.
func (c *Controller) SetIdentity(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	changed := c.identity != id
	c.identity = id
	c.mu.Unlock()

	if changed {
		c.logger.Info("identity changed")
	}
}

// Identity returns the user id sent with requests.
func (c *Controller) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// SessionID returns the controller's session id.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// State returns the request state.
func (c *Controller) State() model.RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Messages()
}

// Len returns the transcript length.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Len()
}

// Epoch returns the number of explicit resets.
func (c *Controller) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// LastMessage returns the newest transcript entry.
func (c *Controller) LastMessage() (model.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Last()
}

// LastFailure returns the last surfaced failure, if it has not been
// cleared by a later success or Reset.
func (c *Controller) LastFailure() (Failure, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure == nil {
		return Failure{}, false
	}
	return *c.failure, true
}

// Snapshot returns a consistent copy of the observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	var failure *Failure
	if c.failure != nil {
		f := *c.failure
		failure = &f
	}
	return Snapshot{
		SessionID:   c.sessionID,
		Identity:    c.identity,
		State:       c.state,
		Messages:    c.transcript.Messages(),
		Draft:       c.draft,
		LastFailure: failure,
		Epoch:       c.epoch,
	}
}

// =============================================================================
// CALLBACKS
// =============================================================================

// SetChangeCallback sets the function called after every state change.
func (c *Controller) SetChangeCallback(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetFailureCallback sets the function called when a turn fails.
func (c *Controller) SetFailureCallback(fn func(Failure)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFailure = fn
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TurnResultMsg carries the endpoint result for a turn back to Update.
type TurnResultMsg struct {
	Turn     *Turn
	Response *remote.ChatResponse
	Err      error
}

// SendCmd returns a command that delivers turn and reports the result as a
// TurnResultMsg. The caller passes the message to Complete.
func (c *Controller) SendCmd(ctx context.Context, turn *Turn) tea.Cmd {
	sender := c.sender
	return func() tea.Msg {
		if sender == nil {
			return TurnResultMsg{Turn: turn, Err: ErrNoSender}
		}
		resp, err := sender.Chat(ctx, turn.Request)
		return TurnResultMsg{Turn: turn, Response: resp, Err: err}
	}
}
