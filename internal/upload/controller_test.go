// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/rigrun-assist/internal/model"
	"github.com/jeranaias/rigrun-assist/internal/remote"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSender reads the whole file, reporting progress, then answers with a
// fixed message or error.
type fakeSender struct {
	mu    sync.Mutex
	calls int
	names []string
	msg   string
	err   error
}

func (f *fakeSender) Upload(ctx context.Context, file model.FileHandle, progress remote.ProgressFunc) (*remote.UploadResponse, error) {
	f.mu.Lock()
	f.calls++
	f.names = append(f.names, file.Name())
	msg, err := f.msg, f.err
	f.mu.Unlock()

	rc, openErr := file.Open()
	if openErr != nil {
		return nil, openErr
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if progress != nil {
		half := int64(len(data) / 2)
		progress(half, file.Size())
		progress(int64(len(data)), file.Size())
	}

	if err != nil {
		return nil, err
	}
	return &remote.UploadResponse{Message: msg}, nil
}

func (f *fakeSender) set(msg string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msg, f.err = msg, err
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// =============================================================================
// SELECTION TESTS
// =============================================================================

func TestNewController_Empty(t *testing.T) {
	c := NewController(nil, DefaultConfig())
	task := c.Task()
	if task.Status != model.UploadEmpty {
		t.Errorf("Status = %v, want empty", task.Status)
	}
	require.False(t, task.HasFile())
}

func TestSelectFile(t *testing.T) {
	c := NewController(nil, DefaultConfig())
	a := model.NewMemoryFile("a.txt", []byte("aaaa"))
	b := model.NewMemoryFile("b.txt", []byte("bb"))

	require.NoError(t, c.SelectFile(a))
	require.Equal(t, model.UploadSelected, c.Status())
	require.Equal(t, "Selected a.txt", c.Task().StatusText())

	require.NoError(t, c.SelectFile(b))
	require.Equal(t, "b.txt", c.Task().File.Name(), "selection replaces previous file")
	require.Equal(t, int64(2), c.Task().Total)

	require.ErrorIs(t, c.SelectFile(nil), remote.ErrValidation)
	require.Equal(t, "b.txt", c.Task().File.Name())
}

func TestSelectFile_WhileUploading(t *testing.T) {
	c := NewController(nil, DefaultConfig())
	require.NoError(t, c.SelectFile(model.NewMemoryFile("a.txt", []byte("a"))))

	tr, err := c.Begin()
	require.NoError(t, err)

	require.ErrorIs(t, c.SelectFile(model.NewMemoryFile("b.txt", []byte("b"))), ErrBusy)
	require.ErrorIs(t, c.Clear(), ErrBusy)
	require.Equal(t, "a.txt", c.Task().File.Name())

	require.NoError(t, c.Complete(tr, &remote.UploadResponse{Message: "ok"}, nil))
	require.NoError(t, c.Clear())
	require.Equal(t, model.UploadEmpty, c.Status())
}

// =============================================================================
// UPLOAD TESTS
// =============================================================================

func TestUpload_NoFile(t *testing.T) {
	sender := &fakeSender{msg: "ok"}
	c := NewController(sender, DefaultConfig())

	err := c.Upload(context.Background())
	require.ErrorIs(t, err, ErrNoFile)
	require.ErrorIs(t, err, remote.ErrValidation)

	task := c.Task()
	require.Equal(t, model.UploadFailed, task.Status)
	require.Equal(t, MsgNoFile, task.Message)
	require.Equal(t, 0, sender.callCount(), "no network call without a file")
}

func TestUpload_Success(t *testing.T) {
	sender := &fakeSender{msg: "File report.pdf uploaded"}
	c := NewController(sender, DefaultConfig())
	require.NoError(t, c.SelectFile(model.NewMemoryFile("report.pdf", []byte("0123456789"))))

	require.NoError(t, c.Upload(context.Background()))

	task := c.Task()
	require.Equal(t, model.UploadSucceeded, task.Status)
	require.Equal(t, "File report.pdf uploaded", task.Message)
	require.Equal(t, "Upload successful: File report.pdf uploaded", task.StatusText())
	require.Equal(t, int64(10), task.Sent)
	require.Equal(t, 1.0, task.Fraction())
}

func TestUpload_FailureThenRetry(t *testing.T) {
	sender := &fakeSender{err: &remote.Error{Kind: remote.KindRemote, Status: 500, Message: "boom"}}
	c := NewController(sender, DefaultConfig())
	require.NoError(t, c.SelectFile(model.NewMemoryFile("notes.txt", []byte("notes"))))

	err := c.Upload(context.Background())
	require.ErrorIs(t, err, remote.ErrRemote)

	task := c.Task()
	require.Equal(t, model.UploadFailed, task.Status)
	require.Equal(t, MsgFailed, task.Message)
	require.True(t, task.HasFile(), "file retained after failure")

	sender.set("stored", nil)
	require.NoError(t, c.Upload(context.Background()), "retry without reselecting")
	require.Equal(t, model.UploadSucceeded, c.Status())
	require.Equal(t, 2, sender.callCount())
	require.Equal(t, []string{"notes.txt", "notes.txt"}, sender.names)
}

func TestUpload_StatusSequence(t *testing.T) {
	sender := &fakeSender{msg: "ok"}
	c := NewController(sender, DefaultConfig())

	var statuses []model.UploadStatus
	c.SetChangeCallback(func(task model.UploadTask) {
		// Reading through the controller would deadlock if called under lock.
		require.Equal(t, task.Status, c.Status())
		if n := len(statuses); n == 0 || statuses[n-1] != task.Status {
			statuses = append(statuses, task.Status)
		}
	})

	require.NoError(t, c.SelectFile(model.NewMemoryFile("a.txt", []byte("abcd"))))
	require.NoError(t, c.Upload(context.Background()))

	require.Equal(t, []model.UploadStatus{
		model.UploadSelected,
		model.UploadUploading,
		model.UploadSucceeded,
	}, statuses)
}

func TestUpload_NoSender(t *testing.T) {
	c := NewController(nil, DefaultConfig())
	require.ErrorIs(t, c.Upload(context.Background()), ErrNoSender)
}

func TestBegin_Busy(t *testing.T) {
	c := NewController(nil, DefaultConfig())
	require.NoError(t, c.SelectFile(model.NewMemoryFile("a.txt", []byte("a"))))

	tr, err := c.Begin()
	require.NoError(t, err)
	require.Equal(t, model.UploadUploading, c.Status())
	require.Equal(t, "Uploading...", c.Task().StatusText())

	_, err = c.Begin()
	require.ErrorIs(t, err, ErrBusy)

	require.NoError(t, c.Complete(tr, nil, errors.New("reset by peer")))
	require.Equal(t, model.UploadFailed, c.Status())
}

func TestBegin_ResetsProgress(t *testing.T) {
	c := NewController(nil, DefaultConfig())
	require.NoError(t, c.SelectFile(model.NewMemoryFile("a.txt", []byte("abcdefgh"))))

	tr, _ := c.Begin()
	c.Progress(tr, 4, 8)
	require.Equal(t, 0.5, c.Task().Fraction())
	require.NoError(t, c.Complete(tr, nil, errors.New("cut off")))

	tr2, err := c.Begin()
	require.NoError(t, err)
	require.Equal(t, int64(0), c.Task().Sent)

	// Progress for a finished transfer is ignored.
	c.Progress(tr, 8, 8)
	require.Equal(t, int64(0), c.Task().Sent)
	require.NoError(t, c.Complete(tr2, &remote.UploadResponse{Message: "ok"}, nil))
}

func TestComplete_Stale(t *testing.T) {
	c := NewController(nil, DefaultConfig())
	require.ErrorIs(t, c.Complete(nil, nil, nil), ErrStaleTransfer)

	require.NoError(t, c.SelectFile(model.NewMemoryFile("a.txt", []byte("a"))))
	tr, _ := c.Begin()
	require.NoError(t, c.Complete(tr, &remote.UploadResponse{Message: "ok"}, nil))
	require.ErrorIs(t, c.Complete(tr, nil, errors.New("late")), ErrStaleTransfer)
	require.Equal(t, model.UploadSucceeded, c.Status())
}

func TestBegin_SingleFlightConcurrent(t *testing.T) {
	c := NewController(nil, DefaultConfig())
	require.NoError(t, c.SelectFile(model.NewMemoryFile("a.txt", []byte("a"))))

	var mu sync.Mutex
	accepted := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Begin(); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, accepted)
}

func TestUploadCmd(t *testing.T) {
	sender := &fakeSender{msg: "stored"}
	c := NewController(sender, DefaultConfig())
	require.NoError(t, c.SelectFile(model.NewMemoryFile("a.txt", []byte("abcd"))))

	tr, err := c.Begin()
	require.NoError(t, err)

	msg := c.UploadCmd(context.Background(), tr)()
	result, ok := msg.(TransferResultMsg)
	require.True(t, ok)
	require.Equal(t, int64(4), c.Task().Sent, "progress recorded while sending")

	require.NoError(t, c.Complete(result.Transfer, result.Response, result.Err))
	require.Equal(t, "Upload successful: stored", c.Task().StatusText())
}
