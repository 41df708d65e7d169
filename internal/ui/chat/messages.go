// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/librarian-tui/internal/config"
	"github.com/jeranaias/librarian-tui/internal/conversation"
	"github.com/jeranaias/librarian-tui/internal/stream"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamOpenedMsg signals that the backend accepted the request. Events
// delivers the rest of the stream for Turn.
type StreamOpenedMsg struct {
	Turn   conversation.TurnID
	Events <-chan tea.Msg
}

// StreamEventMsg carries one decoded event.
type StreamEventMsg struct {
	Turn  conversation.TurnID
	Event stream.Event
}

// StreamClosedMsg signals the end of the stream body. Err is nil on a clean
// end of stream.
type StreamClosedMsg struct {
	Turn conversation.TurnID
	Err  error
}

// =============================================================================
// FOLLOW-UP MESSAGES
// =============================================================================

// FollowUpMsg delivers the follow-up questions for Turn. Err is set when the
// request failed; the set is then empty.
type FollowUpMsg struct {
	Turn      conversation.TurnID
	Questions []string
	Err       error
}

// =============================================================================
// BACKEND AND CONFIG MESSAGES
// =============================================================================

// ModelsMsg delivers the backend model listing.
type ModelsMsg struct {
	Models []string
	Err    error
}

// ConfigReloadedMsg delivers a config file change.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// ConfigSavedMsg reports the result of persisting settings.
type ConfigSavedMsg struct {
	Err error
}

// ExportedMsg reports the result of /export.
type ExportedMsg struct {
	Path string
	Err  error
}
