// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType identifies the kind of a decoded frame.
type EventType string

const (
	// ToolChosen is sent when the backend agent decides to call a tool.
	ToolChosen EventType = "tool_chosen"
	// ToolOutput carries the (opaque) result of a tool call.
	ToolOutput EventType = "tool_output"
	// Emotion carries an avatar expression token.
	Emotion EventType = "emotion"
	// LLMStart opens the reply and may carry the first chunk.
	LLMStart EventType = "llm_start"
	// LLMDelta carries one reply chunk.
	LLMDelta EventType = "llm_delta"
	// LLMEnd closes the reply.
	LLMEnd EventType = "llm_end"
	// Unknown is any type string not listed above.
	Unknown EventType = "unknown"
)

var knownTypes = map[string]EventType{
	string(ToolChosen): ToolChosen,
	string(ToolOutput): ToolOutput,
	string(Emotion):    Emotion,
	string(LLMStart):   LLMStart,
	string(LLMDelta):   LLMDelta,
	string(LLMEnd):     LLMEnd,
}

// ParseEventType maps a raw type line value to an EventType.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseEventType(raw string) EventType {
	if t, ok := knownTypes[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return Unknown
}

// IsLLM reports whether the type belongs to the reply text sequence.
func (t EventType) IsLLM() bool {
	return t == LLMStart || t == LLMDelta || t == LLMEnd
}

// =============================================================================
// PAYLOAD
// =============================================================================

// UsedTool names a tool the backend invoked. Output is only present on
// tool_output events and is left undecoded.
type UsedTool struct {
	Name   string          `json:"name"`
	Output json.RawMessage `json:"output,omitempty"`
}

// Payload is the union of all fields the backend sends in a data line.
// Fields that do not apply to an event type are zero.
type Payload struct {
	ThreadID     string          `json:"thread_id,omitempty"`
	LLMConfig    json.RawMessage `json:"llm_config,omitempty"`
	UsedTools    *UsedTool       `json:"used_tools,omitempty"`
	Emotion      string          `json:"emotion,omitempty"`
	MessageChunk string          `json:"message_chunk,omitempty"`
}

// Event is one decoded frame.
type Event struct {
	Type EventType
	// Name is the type string as it appeared on the wire, after trimming.
	Name    string
	Payload Payload
	// Raw is the undecoded data line, kept for logging.
	Raw json.RawMessage
}

// Chunk returns the reply text fragment carried by llm_start/llm_delta.
func (e Event) Chunk() string {
	return e.Payload.MessageChunk
}

// ToolName returns the tool name for tool_chosen/tool_output, or "".
func (e Event) ToolName() string {
	if e.Payload.UsedTools == nil {
		return ""
	}
	return e.Payload.UsedTools.Name
}

// EmotionToken returns the emotion token verbatim.
func (e Event) EmotionToken() string {
	return e.Payload.Emotion
}
