// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the interactive librarian client.
//
// The bubbletea program is the only place conversation state changes.
// Stream events, reveal ticks and follow-up results arrive as tea.Msg values
// tagged with the turn that produced them; anything tagged with a turn that
// is no longer current is dropped. Blocking work (opening the stream,
// reading it, the follow-up request) runs inside tea.Cmd functions and never
// touches the model directly.
//
// Layout:
//
//	header      title, model, avatar face
//	viewport    conversation log, starters or follow-ups, notices
//	input       text input with spinner while loading
//	status bar  state, turn, key hints
package chat
