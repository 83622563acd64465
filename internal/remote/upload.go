// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-assist/internal/model"
)

// UploadField is the multipart form field carrying the file.
const UploadField = "file"

// =============================================================================
// UPLOAD
// =============================================================================

// Upload streams file to the upload endpoint as multipart/form-data and
// returns the server's message. progress, when non-nil, is called from the
// streaming goroutine as bytes are written.
func (c *Client) Upload(ctx context.Context, file model.FileHandle, progress ProgressFunc) (*UploadResponse, error) {
	if file == nil {
		return nil, NewValidationError("no file selected")
	}

	src, err := file.Open()
	if err != nil {
		return nil, &Error{Kind: KindValidation, Message: "cannot read selected file", Cause: err}
	}
	defer src.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	total := file.Size()
	if total < 0 {
		total = -1
	}

	done := make(chan error, 1)
	go func() {
		done <- writeMultipart(mw, pw, file.Name(), &countingReader{
			r:        src,
			total:    total,
			progress: progress,
		})
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.UploadURL, pr)
	if err != nil {
		pr.CloseWithError(err)
		<-done
		return nil, &Error{Kind: KindNetwork, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Debug("uploading file",
		zap.String("name", file.Name()),
		zap.Int64("size", total))

	body, err := c.do(ctx, httpReq)

	// Unblock the writer if the server stopped reading early.
	pr.CloseWithError(errUploadFinished)
	writeErr := <-done

	if err != nil {
		return nil, err
	}
	if writeErr != nil && !errors.Is(writeErr, errUploadFinished) {
		return nil, &Error{Kind: KindNetwork, Message: "failed to stream file", Cause: writeErr}
	}

	var parsed UploadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{Kind: KindMalformed, Message: "failed to parse upload response", Cause: err}
	}
	return &parsed, nil
}

var errUploadFinished = errors.New("upload request finished")

// writeMultipart copies src into a single file part and closes the pipe with
// the copy result.
func writeMultipart(mw *multipart.Writer, pw *io.PipeWriter, name string, src io.Reader) error {
	part, err := mw.CreateFormFile(UploadField, name)
	if err == nil {
		_, err = io.Copy(part, src)
	}
	if err == nil {
		err = mw.Close()
	}
	pw.CloseWithError(err)
	return err
}

// countingReader reports bytes read through progress.
type countingReader struct {
	r        io.Reader
	total    int64
	sent     atomic.Int64
	progress ProgressFunc
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		sent := cr.sent.Add(int64(n))
		if cr.progress != nil {
			cr.progress(sent, cr.total)
		}
	}
	return n, err
}
