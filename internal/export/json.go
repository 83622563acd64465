// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"time"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports conversations to JSON format. The output always holds
// the complete transcript; Options only affect the other formats.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonDocument struct {
	*Conversation
	ExportedAt time.Time `json:"exported_at"`
	Generator  string    `json:"generator"`
}

// Export converts a conversation to indented JSON.
func (e *JSONExporter) Export(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, errors.New("conversation is nil")
	}
	if len(conv.Messages) == 0 {
		return nil, ErrEmptyConversation
	}
	return json.MarshalIndent(jsonDocument{
		Conversation: conv,
		ExportedAt:   time.Now().UTC(),
		Generator:    "rigrun-assist",
	}, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
