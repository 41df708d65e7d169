// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package followup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/librarian-tui/internal/backend"
)

const (
	// DefaultMaxTokens is the token budget for a follow-up request.
	DefaultMaxTokens = 128

	// DefaultThreadID keeps follow-up traffic off the conversation thread.
	DefaultThreadID = "thread-suggestions"

	systemInstruction = "You are an assistant. Only output a JSON array, nothing else."

	userInstruction = `Generate three follow-up questions based on the answer below. ` +
		`The output must be a JSON array, for example: ["Question 1","Question 2","Question 3"].` +
		"\n\nAnswer: "
)

// Runner performs a single non-streaming agent request.
type Runner interface {
	Run(ctx context.Context, req backend.AgentRequest) (*backend.AgentResponse, error)
}

// Requester issues follow-up requests.
type Requester struct {
	runner    Runner
	threadID  string
	maxTokens int
}

// NewRequester creates a requester with the default budget and thread.
func NewRequester(runner Runner) *Requester {
	return &Requester{
		runner:    runner,
		threadID:  DefaultThreadID,
		maxTokens: DefaultMaxTokens,
	}
}

// WithMaxTokens overrides the token budget.
func (r *Requester) WithMaxTokens(n int) *Requester {
	if n > 0 {
		r.maxTokens = n
	}
	return r
}

// WithThreadID overrides the thread id.
func (r *Requester) WithThreadID(id string) *Requester {
	if id != "" {
		r.threadID = id
	}
	return r
}

// BuildRequest returns the two-message request for reply. Model and
// temperature come from llm; max_tokens is always the requester's budget.
func (r *Requester) BuildRequest(reply string, llm backend.LLMConfig) backend.AgentRequest {
	llm.MaxTokens = r.maxTokens
	return backend.AgentRequest{
		Messages: []backend.Message{
			backend.NewSystemMessage(systemInstruction),
			backend.NewUserMessage(userInstruction + reply),
		},
		LLMConfig: llm,
		ThreadID:  r.threadID,
	}
}

// Request asks for follow-up questions about reply. A transport failure
// returns an empty set and the error; parsing never fails.
func (r *Requester) Request(ctx context.Context, reply string, llm backend.LLMConfig) ([]string, error) {
	resp, err := r.runner.Run(ctx, r.BuildRequest(reply, llm))
	if err != nil {
		return []string{}, fmt.Errorf("follow-up request: %w", err)
	}
	questions := Parse(resp.Content())
	log.Debug().Int("questions", len(questions)).Msg("follow-ups parsed")
	return questions, nil
}
