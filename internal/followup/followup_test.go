// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package followup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/librarian-tui/internal/backend"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"strict json array", `["q1","q2","q3"]`, []string{"q1", "q2", "q3"}},
		{"bracketed substring", `Some text [ "a", "b" ] more text`, []string{"a", "b"}},
		{"newline fallback takes three", "a\nb\nc\nd", []string{"a", "b", "c"}},
		{"empty input", "", []string{}},
		{"whitespace only", "  \n , 。 ", []string{}},
		{"json array capped", `["1","2","3","4","5"]`, []string{"1", "2", "3"}},
		{"empty json array", `[]`, []string{}},
		{"items trimmed and blanks dropped", `["  a ", "", "b"]`, []string{"a", "b"}},
		{"non-string items", `[1, {"q":"x"}, null, true]`, []string{"1", `{"q":"x"}`, "true"}},
		{"json object falls back to split", `{"q":"x"}`, []string{`{"q":"x"}`}},
		{"bare null falls back to split", `null`, []string{"null"}},
		{"bare string falls back to split", `"just one"`, []string{`"just one"`}},
		{"fenced code block", "```json\n[\"Where is it?\", \"Who wrote it?\"]\n```", []string{"Where is it?", "Who wrote it?"}},
		{"invalid bracket content falls back", "[not json], second", []string{"[not json]", "second"}},
		{"commas and full stops", "第一個問題。第二個問題, third", []string{"第一個問題", "第二個問題", "third"}},
		{"crlf lines", "a\r\nb", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParse_NeverExceedsMax(t *testing.T) {
	inputs := []string{
		strings.Repeat("q,", 50),
		`prefix ["a","b","c","d"] suffix`,
		strings.Repeat("line\n", 10),
	}
	for _, in := range inputs {
		assert.LessOrEqual(t, len(Parse(in)), MaxQuestions, "input %q", in)
	}
}

type stubRunner struct {
	got  backend.AgentRequest
	resp *backend.AgentResponse
	err  error
}

func (s *stubRunner) Run(ctx context.Context, req backend.AgentRequest) (*backend.AgentResponse, error) {
	s.got = req
	return s.resp, s.err
}

func TestRequester_BuildsFixedBudgetRequest(t *testing.T) {
	runner := &stubRunner{resp: &backend.AgentResponse{
		Messages: []backend.Message{backend.NewAssistantMessage(`["Why?","How?"]`)},
	}}
	r := NewRequester(runner)

	qs, err := r.Request(context.Background(), "The library opens at nine.", backend.LLMConfig{
		Model: "openai:gpt-4o", Temperature: 0.3, MaxTokens: 2048,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Why?", "How?"}, qs)

	req := runner.got
	assert.Equal(t, DefaultThreadID, req.ThreadID)
	assert.Equal(t, DefaultMaxTokens, req.LLMConfig.MaxTokens)
	assert.Equal(t, "openai:gpt-4o", req.LLMConfig.Model)
	assert.InDelta(t, 0.3, req.LLMConfig.Temperature, 1e-9)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, backend.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "JSON array")
	assert.Equal(t, backend.RoleUser, req.Messages[1].Role)
	assert.True(t, strings.HasSuffix(req.Messages[1].Content, "Answer: The library opens at nine."))
}

func TestRequester_TransportFailureYieldsEmptySet(t *testing.T) {
	runner := &stubRunner{err: errors.New("connection refused")}

	qs, err := NewRequester(runner).Request(context.Background(), "reply", backend.LLMConfig{})

	require.Error(t, err)
	assert.NotNil(t, qs)
	assert.Empty(t, qs)
}

func TestRequester_Overrides(t *testing.T) {
	r := NewRequester(&stubRunner{}).WithMaxTokens(64).WithThreadID("custom").WithMaxTokens(0)
	req := r.BuildRequest("x", backend.LLMConfig{MaxTokens: 9})
	assert.Equal(t, 64, req.LLMConfig.MaxTokens)
	assert.Equal(t, "custom", req.ThreadID)
}
