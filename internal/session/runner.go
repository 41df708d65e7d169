// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/librarian-tui/internal/backend"
	"github.com/jeranaias/librarian-tui/internal/conversation"
	"github.com/jeranaias/librarian-tui/internal/followup"
	"github.com/jeranaias/librarian-tui/internal/reveal"
	"github.com/jeranaias/librarian-tui/internal/stream"
)

var (
	// ErrEmptyInput is returned when the question is blank after trimming.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoReply is returned when the stream closed before llm_end.
	ErrNoReply = errors.New("stream ended without a reply")
)

// Client is the part of backend.Client a Runner needs.
type Client interface {
	Open(ctx context.Context, req backend.AgentRequest) (io.ReadCloser, error)
	Run(ctx context.Context, req backend.AgentRequest) (*backend.AgentResponse, error)
}

// Settings is the generation config applied to each turn.
type Settings struct {
	SystemPrompt string
	LLM          backend.LLMConfig
	ThreadID     string

	FollowUps         bool
	FollowUpMaxTokens int
	FollowUpThreadID  string

	RevealInterval time.Duration
}

// Hooks observe a turn as it runs. Any field may be nil.
type Hooks struct {
	Tool      func(name string)
	Emotion   func(token string)
	Reveal    func(f reveal.Frame)
	Error     func(err error)
	FollowUps func(questions []string)
}

// Result summarizes a finished turn.
type Result struct {
	Turn      conversation.TurnID
	Reply     string
	Tools     []string
	Emotion   string
	FollowUps []string
	Failed    bool
}

// Runner drives turns against a backend.
type Runner struct {
	mu       sync.Mutex
	client   Client
	store    *conversation.Store
	reveals  *reveal.Scheduler
	settings Settings
	hooks    Hooks
}

// NewRunner creates a runner with an empty conversation.
func NewRunner(client Client, settings Settings) *Runner {
	r := &Runner{
		client:  client,
		reveals: reveal.NewScheduler(),
	}
	r.store = conversation.NewStore(conversation.WithEmotionSink(r.emotion))
	r.SetSettings(settings)
	return r
}

// SetSettings replaces the settings used by subsequent turns.
func (r *Runner) SetSettings(s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
	if s.RevealInterval > 0 {
		r.reveals.SetInterval(s.RevealInterval)
	}
}

// SetHooks installs turn observers.
func (r *Runner) SetHooks(h Hooks) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = h
}

// Messages returns a copy of the conversation log.
func (r *Runner) Messages() []conversation.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Messages()
}

// FollowUps returns the follow-up questions of the last turn.
func (r *Runner) FollowUps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.FollowUps()
}

// Clear empties the conversation.
func (r *Runner) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reveals.CancelAll()
	r.store.Clear()
}

func (r *Runner) emotion(token string) {
	if r.hooks.Emotion != nil {
		r.hooks.Emotion(token)
	}
}

// Ask runs one full turn for text and blocks until the reply is revealed and
// follow-ups are fetched, or the turn fails. Cancelling ctx abandons the turn.
func (r *Runner) Ask(ctx context.Context, text string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	turn, ok := r.store.Submit(text, conversation.TurnOptions{
		SystemPrompt: r.settings.SystemPrompt,
		LLM:          r.settings.LLM,
		ThreadID:     r.settings.ThreadID,
	})
	if !ok {
		return nil, ErrEmptyInput
	}
	id := turn.ID
	res := &Result{Turn: id}
	logger := log.With().Str("turn_id", id.Short()).Logger()

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	body, err := r.client.Open(ctx, turn.Request)
	if err != nil {
		return r.fail(ctx, res, err)
	}
	r.store.Opened(id)

	events := make(chan stream.Event)
	readErr := make(chan error, 1)
	go func() {
		defer body.Close()
		readErr <- stream.Read(ctx, body, func(ev stream.Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	for {
		select {
		case <-ctx.Done():
			r.reveals.Cancel(id)
			r.store.Cancel()
			return res, ctx.Err()

		case ev := <-events:
			out := r.store.Apply(id, ev)
			if !out.Applied {
				continue
			}
			switch ev.Type {
			case stream.ToolChosen:
				res.Tools = append(res.Tools, ev.ToolName())
				if r.hooks.Tool != nil {
					r.hooks.Tool(ev.ToolName())
				}
			case stream.Emotion:
				res.Emotion = ev.EmotionToken()
			}
			if !out.Reveal {
				continue
			}
			res.Reply = out.Text
			err := r.reveals.Run(ctx, id, out.Text, func(f reveal.Frame) {
				r.store.Reveal(id, f.Prefix)
				if r.hooks.Reveal != nil {
					r.hooks.Reveal(f)
				}
			})
			if err != nil {
				r.store.Cancel()
				return res, err
			}
			// The stream is no longer needed once the reply is shown.
			cancel()
			return r.finish(parent, res, id)

		case err := <-readErr:
			readErr = nil
			if err != nil && r.store.State().Loading() {
				return r.fail(ctx, res, err)
			}
			if r.store.StreamClosed(id) {
				res.Failed = true
				return res, ErrNoReply
			}
			if err != nil {
				logger.Debug().Err(err).Msg("stream error after reply ended")
			}
		}
	}
}

func (r *Runner) fail(ctx context.Context, res *Result, err error) (*Result, error) {
	if ctx.Err() != nil {
		r.store.Cancel()
		return res, ctx.Err()
	}
	r.store.Fail(res.Turn, err)
	res.Failed = true
	if r.hooks.Error != nil {
		r.hooks.Error(err)
	}
	return res, err
}

func (r *Runner) finish(ctx context.Context, res *Result, id conversation.TurnID) (*Result, error) {
	reply, want := r.store.RevealDone(id, r.settings.FollowUps)
	res.Reply = reply
	if !want {
		return res, nil
	}

	requester := followup.NewRequester(r.client).
		WithMaxTokens(r.settings.FollowUpMaxTokens).
		WithThreadID(r.settings.FollowUpThreadID)

	questions, err := requester.Request(ctx, reply, r.settings.LLM)
	if err != nil {
		log.Warn().Err(err).Str("turn_id", id.Short()).Msg("follow-up request failed")
	}
	r.store.SetFollowUps(id, questions)
	res.FollowUps = r.store.FollowUps()
	if r.hooks.FollowUps != nil {
		r.hooks.FollowUps(res.FollowUps)
	}
	return res, nil
}
