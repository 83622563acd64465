// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-assist/internal/model"
	"github.com/jeranaias/rigrun-assist/internal/remote"
)

// Status messages.
const (
	// MsgNoFile is recorded when an upload is requested with nothing selected.
	MsgNoFile = "no file selected"

	// MsgFailed is shown for every failed transfer.
	MsgFailed = "Upload failed. Please try again."

	// MsgSelectPrompt is the host's prompt for an empty slot.
	MsgSelectPrompt = "Please select a file to upload."
)

// Controller errors.
var (
	// ErrBusy is returned while a transfer is in flight.
	ErrBusy = errors.New("an upload is already in progress")

	// ErrNoFile is returned when uploading with an empty slot.
	ErrNoFile = remote.NewValidationError(MsgNoFile)

	// ErrNilFile is returned when selecting a nil handle.
	ErrNilFile = remote.NewValidationError("file handle is nil")

	// ErrStaleTransfer is returned when completing a transfer that is not in flight.
	ErrStaleTransfer = errors.New("transfer is not in flight")

	// ErrNoSender is returned by blocking helpers when no sender is configured.
	ErrNoSender = errors.New("no upload sender configured")
)

// UploadSender delivers one file. *remote.Client implements it.
type UploadSender interface {
	Upload(ctx context.Context, file model.FileHandle, progress remote.ProgressFunc) (*remote.UploadResponse, error)
}

// Transfer is the token for one in-flight upload.
type Transfer struct {
	ID        string
	File      model.FileHandle
	StartedAt time.Time
}

// Config holds configuration for the controller.
type Config struct {
	Logger *zap.Logger
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives the upload slot. It is safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	task    model.UploadTask
	current *Transfer

	sender UploadSender
	logger *zap.Logger

	onChange func(model.UploadTask)
}

// NewController creates a controller with an empty slot. sender may be nil
// when only the two-phase API is used.
func NewController(sender UploadSender, cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		task:   model.UploadTask{Status: model.UploadEmpty},
		sender: sender,
		logger: logger.Named("upload"),
	}
}

// SelectFile puts file in the slot, replacing any previous selection.
func (c *Controller) SelectFile(file model.FileHandle) error {
	if file == nil {
		return ErrNilFile
	}

	c.mu.Lock()
	if c.task.Status == model.UploadUploading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.task = model.UploadTask{
		File:   file,
		Status: model.UploadSelected,
		Total:  file.Size(),
	}
	task := c.task
	onChange := c.onChange
	c.mu.Unlock()

	c.logger.Debug("file selected",
		zap.String("name", file.Name()),
		zap.Int64("size", file.Size()))

	if onChange != nil {
		onChange(task)
	}
	return nil
}

// Clear empties the slot.
func (c *Controller) Clear() error {
	c.mu.Lock()
	if c.task.Status == model.UploadUploading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.task = model.UploadTask{Status: model.UploadEmpty}
	task := c.task
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(task)
	}
	return nil
}

// =============================================================================
// TRANSFER CYCLE
// =============================================================================

// Begin starts a transfer of the selected file. With an empty slot the
// status becomes Failed with MsgNoFile and ErrNoFile is returned.
func (c *Controller) Begin() (*Transfer, error) {
	c.mu.Lock()
	if c.task.Status == model.UploadUploading {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	if c.task.File == nil {
		c.task = model.UploadTask{Status: model.UploadFailed, Message: MsgNoFile}
		task := c.task
		onChange := c.onChange
		c.mu.Unlock()

		if onChange != nil {
			onChange(task)
		}
		return nil, ErrNoFile
	}

	tr := &Transfer{
		ID:        "xfer_" + uuid.NewString(),
		File:      c.task.File,
		StartedAt: time.Now(),
	}
	c.current = tr
	c.task.Status = model.UploadUploading
	c.task.Message = ""
	c.task.Sent = 0
	c.task.Total = tr.File.Size()
	task := c.task
	onChange := c.onChange
	c.mu.Unlock()

	c.logger.Info("upload started",
		zap.String("transfer", tr.ID),
		zap.String("name", tr.File.Name()))

	if onChange != nil {
		onChange(task)
	}
	return tr, nil
}

// Progress records byte progress for tr. Reports for other transfers are
// ignored.
func (c *Controller) Progress(tr *Transfer, sent, total int64) {
	c.mu.Lock()
	if tr == nil || tr != c.current {
		c.mu.Unlock()
		return
	}
	if sent > c.task.Sent {
		c.task.Sent = sent
	}
	c.task.Total = total
	task := c.task
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(task)
	}
}

// Complete resolves tr. Success records the server's message; any failure
// records MsgFailed. The file stays selected either way.
func (c *Controller) Complete(tr *Transfer, resp *remote.UploadResponse, sendErr error) error {
	c.mu.Lock()
	if tr == nil || tr != c.current {
		c.mu.Unlock()
		return ErrStaleTransfer
	}
	c.current = nil

	if sendErr == nil && resp == nil {
		sendErr = &remote.Error{Kind: remote.KindMalformed, Message: "empty upload response"}
	}
	if sendErr == nil {
		c.task.Status = model.UploadSucceeded
		c.task.Message = resp.Message
		if c.task.Total > 0 {
			c.task.Sent = c.task.Total
		}
	} else {
		c.task.Status = model.UploadFailed
		c.task.Message = MsgFailed
	}
	task := c.task
	onChange := c.onChange
	c.mu.Unlock()

	elapsed := time.Since(tr.StartedAt)
	if sendErr != nil {
		c.logger.Warn("upload failed",
			zap.String("transfer", tr.ID),
			zap.Stringer("kind", remote.KindOf(sendErr)),
			zap.Duration("elapsed", elapsed),
			zap.Error(sendErr))
	} else {
		c.logger.Info("upload completed",
			zap.String("transfer", tr.ID),
			zap.Duration("elapsed", elapsed))
	}

	if onChange != nil {
		onChange(task)
	}
	return nil
}

// Upload sends the selected file and blocks until the transfer is resolved.
// It returns ErrNoFile or ErrBusy from Begin, or the send error.
func (c *Controller) Upload(ctx context.Context) error {
	if c.sender == nil {
		return ErrNoSender
	}
	tr, err := c.Begin()
	if err != nil {
		return err
	}
	resp, sendErr := c.sender.Upload(ctx, tr.File, func(sent, total int64) {
		c.Progress(tr, sent, total)
	})
	if err := c.Complete(tr, resp, sendErr); err != nil {
		return err
	}
	return sendErr
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// Task returns a copy of the upload slot.
func (c *Controller) Task() model.UploadTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task
}

// Status returns the slot status.
func (c *Controller) Status() model.UploadStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task.Status
}

// SetChangeCallback sets the function called after every slot change,
// including progress updates.
func (c *Controller) SetChangeCallback(fn func(model.UploadTask)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TransferResultMsg carries the endpoint result for a transfer back to Update.
type TransferResultMsg struct {
	Transfer *Transfer
	Response *remote.UploadResponse
	Err      error
}

// UploadCmd returns a command that sends tr, recording progress on the
// controller, and reports the result as a TransferResultMsg.
func (c *Controller) UploadCmd(ctx context.Context, tr *Transfer) tea.Cmd {
	sender := c.sender
	return func() tea.Msg {
		if sender == nil {
			return TransferResultMsg{Transfer: tr, Err: ErrNoSender}
		}
		resp, err := sender.Upload(ctx, tr.File, func(sent, total int64) {
			c.Progress(tr, sent, total)
		})
		return TransferResultMsg{Transfer: tr, Response: resp, Err: err}
	}
}
