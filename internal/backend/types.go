// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "github.com/jeranaias/librarian-tui/internal/stream"

// Role values accepted by the backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one OpenAI-style chat message.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant tool"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// LLMConfig selects the model and sampling parameters for one request.
type LLMConfig struct {
	Model       string  `json:"model" validate:"required"`
	Temperature float64 `json:"temperature" validate:"gte=0,lte=1"`
	MaxTokens   int     `json:"max_tokens" validate:"gte=1"`
}

// AgentRequest is the body of both /stream and /run.
type AgentRequest struct {
	Messages  []Message `json:"messages" validate:"required,min=1,dive"`
	LLMConfig LLMConfig `json:"llm_config"`
	ThreadID  string    `json:"thread_id,omitempty"`
}

// AgentResponse is the body returned by /run.
type AgentResponse struct {
	ThreadID  string            `json:"thread_id,omitempty"`
	LLMConfig LLMConfig         `json:"llm_config"`
	Messages  []Message         `json:"messages"`
	UsedTools []stream.UsedTool `json:"used_tools,omitempty"`
	Emotion   string            `json:"emotion,omitempty"`
}

// Content returns the first message's content, or "" if there is none.
func (r *AgentResponse) Content() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].Content
}

// ModelsResponse is the body returned by /models.
type ModelsResponse struct {
	Models []string `json:"models"`
}

// DefaultModels is offered when the backend cannot be asked.
var DefaultModels = []string{
	"openai:gpt-4o-mini",
	"openai:gpt-4o",
	"openai:o4-mini",
	"openai:gpt-4.1",
	"openai:gpt-4.1-mini",
	"openai:gpt-4.1-nano",
	"openai:o3-mini",
	"openai:o1",
}
