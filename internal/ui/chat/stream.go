// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/librarian-tui/internal/backend"
	"github.com/jeranaias/librarian-tui/internal/config"
	"github.com/jeranaias/librarian-tui/internal/conversation"
	"github.com/jeranaias/librarian-tui/internal/export"
	"github.com/jeranaias/librarian-tui/internal/followup"
	"github.com/jeranaias/librarian-tui/internal/stream"
)

// Backend is the agent service as seen by the chat view.
// *backend.Client satisfies it.
type Backend interface {
	Open(ctx context.Context, req backend.AgentRequest) (io.ReadCloser, error)
	Run(ctx context.Context, req backend.AgentRequest) (*backend.AgentResponse, error)
	Models(ctx context.Context) ([]string, error)
}

// eventBuffer bounds how far the reader may run ahead of the program.
const eventBuffer = 16

// modelsTimeout bounds the /models lookup.
const modelsTimeout = 10 * time.Second

// openStreamCmd opens the stream for turn and starts a reader goroutine that
// forwards decoded events on the returned channel. The reader stops when ctx
// is cancelled.
func openStreamCmd(ctx context.Context, client Backend, turn conversation.TurnID, req backend.AgentRequest) tea.Cmd {
	return func() tea.Msg {
		body, err := client.Open(ctx, req)
		if err != nil {
			return StreamClosedMsg{Turn: turn, Err: err}
		}

		events := make(chan tea.Msg, eventBuffer)
		go func() {
			defer close(events)
			defer body.Close()

			send := func(msg tea.Msg) bool {
				select {
				case events <- msg:
					return true
				case <-ctx.Done():
					return false
				}
			}

			err := stream.Read(ctx, body, func(ev stream.Event) error {
				if !send(StreamEventMsg{Turn: turn, Event: ev}) {
					return ctx.Err()
				}
				return nil
			}, stream.WithErrorHandler(func(err error) {
				log.Warn().Err(err).Str("turn_id", turn.Short()).Msg("malformed frame")
			}))
			send(StreamClosedMsg{Turn: turn, Err: err})
		}()

		return StreamOpenedMsg{Turn: turn, Events: events}
	}
}

// waitForStream delivers the next message from a reader channel.
func waitForStream(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// followUpCmd asks the backend for follow-up questions about reply.
func followUpCmd(ctx context.Context, client Backend, cfg *config.Config, turn conversation.TurnID, reply string) tea.Cmd {
	requester := followup.NewRequester(client).
		WithMaxTokens(cfg.FollowUp.MaxTokens).
		WithThreadID(cfg.FollowUp.ThreadID)
	llm := cfg.Generation.LLMConfig()

	return func() tea.Msg {
		questions, err := requester.Request(ctx, reply, llm)
		return FollowUpMsg{Turn: turn, Questions: questions, Err: err}
	}
}

// fetchModelsCmd lists the models the backend offers.
func fetchModelsCmd(client Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), modelsTimeout)
		defer cancel()
		models, err := client.Models(ctx)
		return ModelsMsg{Models: models, Err: err}
	}
}

// watchConfigCmd waits for the next reloaded config.
func watchConfigCmd(updates <-chan *config.Config) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-updates
		if !ok {
			return nil
		}
		return ConfigReloadedMsg{Config: cfg}
	}
}

// saveConfigCmd persists cfg to the active config file.
func saveConfigCmd(cfg *config.Config) tea.Cmd {
	cfg = cfg.Clone()
	return func() tea.Msg {
		return ConfigSavedMsg{Err: config.Save(cfg)}
	}
}

// exportCmd writes the transcript to the working directory.
func exportCmd(t *export.Transcript, exporter export.Exporter) tea.Cmd {
	return func() tea.Msg {
		path, err := export.ExportToFile(t, exporter, nil)
		return ExportedMsg{Path: path, Err: err}
	}
}
