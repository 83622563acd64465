// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// =============================================================================
// FILE HANDLE
// =============================================================================

// FileHandle is a file the upload endpoint can receive.
type FileHandle interface {
	// Name is the file name sent in the multipart body.
	Name() string
	// Size is the byte length, or -1 when unknown.
	Size() int64
	// Open returns a fresh reader positioned at the start of the file.
	Open() (io.ReadCloser, error)
}

// LocalFile is a FileHandle backed by a path on disk.
type LocalFile struct {
	path string
	size int64
}

// OpenLocalFile stats path and returns a handle for it.
// Directories are rejected; the content itself is not inspected.
func OpenLocalFile(path string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &LocalFile{path: path, size: info.Size()}, nil
}

// Name returns the base name of the file.
func (f *LocalFile) Name() string { return filepath.Base(f.path) }

// Size returns the file size recorded when the handle was created.
func (f *LocalFile) Size() int64 { return f.size }

// Open opens the file for reading.
func (f *LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// MemoryFile is a FileHandle over in-memory content, such as a pasted buffer.
type MemoryFile struct {
	name string
	data []byte
}

// NewMemoryFile returns a handle named name holding data.
func NewMemoryFile(name string, data []byte) *MemoryFile {
	return &MemoryFile{name: name, data: data}
}

func (f *MemoryFile) Name() string { return f.name }
func (f *MemoryFile) Size() int64  { return int64(len(f.data)) }

func (f *MemoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// =============================================================================
// UPLOAD STATUS
// =============================================================================

// UploadStatus is the lifecycle state of the upload slot.
type UploadStatus int

const (
	UploadEmpty     UploadStatus = iota // Nothing selected yet
	UploadSelected                      // File chosen, not yet sent
	UploadUploading                     // Transfer in flight
	UploadSucceeded                     // Server accepted the file
	UploadFailed                        // Last attempt failed
)

// String returns the status name.
func (s UploadStatus) String() string {
	switch s {
	case UploadEmpty:
		return "empty"
	case UploadSelected:
		return "selected"
	case UploadUploading:
		return "uploading"
	case UploadSucceeded:
		return "succeeded"
	case UploadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// =============================================================================
// UPLOAD TASK
// =============================================================================

// UploadTask is the single pending-file slot and its status.
// Message is set for UploadSucceeded (server message) and UploadFailed.
type UploadTask struct {
	File    FileHandle
	Status  UploadStatus
	Message string

	// Byte progress of the current or last transfer
	Sent  int64
	Total int64
}

// HasFile reports whether a file is selected.
func (t UploadTask) HasFile() bool {
	return t.File != nil
}

// Fraction returns transfer progress in [0, 1], or 0 when the total is unknown.
func (t UploadTask) Fraction() float64 {
	if t.Total <= 0 {
		return 0
	}
	f := float64(t.Sent) / float64(t.Total)
	if f > 1 {
		return 1
	}
	return f
}

// StatusText returns the line shown to the user for the current status.
func (t UploadTask) StatusText() string {
	switch t.Status {
	case UploadSelected:
		return "Selected " + t.File.Name()
	case UploadUploading:
		return "Uploading..."
	case UploadSucceeded:
		return "Upload successful: " + t.Message
	case UploadFailed:
		return t.Message
	default:
		return ""
	}
}
