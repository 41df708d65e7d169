// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/librarian-tui/internal/conversation"
)

// JSONExporter exports transcripts to JSON.
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

type jsonTranscript struct {
	Title    string        `json:"title"`
	Model    string        `json:"model"`
	Started  *time.Time    `json:"started,omitempty"`
	Exported time.Time     `json:"exported"`
	Messages []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID        string    `json:"id"`
	Turn      string    `json:"turn_id"`
	Role      string    `json:"role"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Export converts a transcript to indented JSON.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	out := jsonTranscript{
		Title:    t.Title,
		Model:    t.Model,
		Exported: t.Exported,
		Messages: make([]jsonMessage, 0, len(t.Messages)),
	}
	if !t.Started.IsZero() {
		out.Started = &t.Started
	}
	for _, m := range t.Messages {
		out.Messages = append(out.Messages, jsonMessage{
			ID:        m.ID,
			Turn:      string(m.TurnID),
			Role:      string(m.Role),
			Kind:      kindName(m.Kind),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

func kindName(k conversation.Kind) string {
	switch k {
	case conversation.KindTool:
		return "tool"
	case conversation.KindError:
		return "error"
	default:
		return "text"
	}
}
