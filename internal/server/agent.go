// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/librarian-tui/internal/backend"
	"github.com/jeranaias/librarian-tui/internal/stream"
	"github.com/jeranaias/librarian-tui/internal/tools"
	"github.com/jeranaias/librarian-tui/internal/util"
)

// Agent produces replies for the stand-in backend.
type Agent interface {
	// Respond returns the event sequence for a streamed turn.
	Respond(ctx context.Context, req backend.AgentRequest) Script
	// Run returns the text of a single non-streamed reply.
	Run(ctx context.Context, req backend.AgentRequest) string
}

// Script is an ordered list of events to stream.
type Script struct {
	Events []ScriptEvent
}

// ScriptEvent is one streamed event.
type ScriptEvent struct {
	Type    string
	Tool    string
	Output  string
	Emotion string
	Chunk   string
}

type eventPayload struct {
	ThreadID     string            `json:"thread_id,omitempty"`
	LLMConfig    backend.LLMConfig `json:"llm_config"`
	UsedTools    *stream.UsedTool  `json:"used_tools,omitempty"`
	Emotion      string            `json:"emotion,omitempty"`
	MessageChunk *string           `json:"message_chunk,omitempty"`
}

// Payload builds the data line for the event.
func (e ScriptEvent) Payload(req backend.AgentRequest) interface{} {
	p := eventPayload{ThreadID: req.ThreadID, LLMConfig: req.LLMConfig}
	switch stream.ParseEventType(e.Type) {
	case stream.ToolChosen, stream.ToolOutput:
		output, _ := json.Marshal(e.Output)
		p.UsedTools = &stream.UsedTool{Name: e.Tool, Output: output}
	case stream.Emotion:
		p.Emotion = e.Emotion
	case stream.LLMStart, stream.LLMDelta, stream.LLMEnd:
		chunk := e.Chunk
		p.MessageChunk = &chunk
	}
	return p
}

// ============================================================================
// SCRIPTED AGENT
// ============================================================================

type keywordRule struct {
	words []string
	value string
}

var toolRules = []keywordRule{
	{[]string{"weather", "rain", "forecast"}, "open_weather_map"},
	{[]string{"date", "time", "today"}, "date_time"},
	{[]string{"video", "youtube"}, "youtube_search"},
	{[]string{"paper", "arxiv", "research"}, "arxiv"},
	{[]string{"news", "current events"}, "duckduckgo_results_json"},
	{[]string{"book", "novel", "library", "read", "material"}, "ncl_search"},
	{[]string{"who is", "what is", "history"}, "wikipedia"},
}

var emotionRules = []keywordRule{
	{[]string{"sad", "down", "lonely", "tired", "bad mood"}, "sad"},
	{[]string{"thank", "great", "love"}, "happy"},
	{[]string{"wow", "really?", "amazing"}, "surprised"},
	{[]string{"relax", "calm", "music"}, "relaxed"},
}

func match(rules []keywordRule, text string) string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, w := range r.words {
			if strings.Contains(lower, w) {
				return r.value
			}
		}
	}
	return ""
}

// ScriptedAgent answers from keyword rules without calling any model.
type ScriptedAgent struct {
	tools *tools.Registry
}

// NewScriptedAgent creates an agent that labels tools from registry.
func NewScriptedAgent(registry *tools.Registry) *ScriptedAgent {
	return &ScriptedAgent{tools: registry}
}

// lastUserMessage returns the most recent user message content.
func lastUserMessage(req backend.AgentRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == backend.RoleUser {
			return strings.TrimSpace(req.Messages[i].Content)
		}
	}
	return ""
}

// Respond implements Agent.
func (a *ScriptedAgent) Respond(ctx context.Context, req backend.AgentRequest) Script {
	question := lastUserMessage(req)
	topic := util.TruncateRunes(question, 60)

	var events []ScriptEvent
	reply := fmt.Sprintf("You asked about %q. ", topic)

	if name := match(toolRules, question); name != "" {
		label := name
		if t := a.tools.Get(name); t != nil {
			label = t.ShortDescription()
		}
		events = append(events,
			ScriptEvent{Type: "tool_chosen", Tool: name},
			ScriptEvent{Type: "tool_output", Tool: name, Output: "results for " + topic},
		)
		reply += fmt.Sprintf("I checked %s (%s) and gathered a few starting points. ", name, strings.TrimSuffix(label, "."))
	}
	reply += "This is the offline stand-in backend, so the answer is a placeholder."

	emotion := match(emotionRules, question)
	if emotion == "" {
		emotion = "neutral"
	}
	events = append(events, ScriptEvent{Type: "emotion", Emotion: emotion})

	for i, chunk := range strings.SplitAfter(reply, " ") {
		if chunk == "" {
			continue
		}
		typ := "llm_delta"
		if i == 0 {
			typ = "llm_start"
		}
		events = append(events, ScriptEvent{Type: typ, Chunk: chunk})
	}
	events = append(events, ScriptEvent{Type: "llm_end"})
	return Script{Events: events}
}

// Run implements Agent. It answers follow-up requests with a JSON array of
// three questions about the quoted answer.
func (a *ScriptedAgent) Run(ctx context.Context, req backend.AgentRequest) string {
	text := lastUserMessage(req)
	if _, answer, ok := strings.Cut(text, "Answer: "); ok {
		text = answer
	}
	topic := util.TruncateRunes(strings.TrimSpace(text), 30)
	questions := []string{
		fmt.Sprintf("Can you tell me more about %s?", topic),
		"Which books would you recommend on this?",
		"Where can I find this in the library?",
	}
	data, _ := json.Marshal(questions)
	return string(data)
}
