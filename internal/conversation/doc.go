// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package conversation owns the message log and the per-turn state machine
that interprets decoded stream events.

A turn moves through Idle, Sending, Streaming, Revealing and FollowingUp
before returning to Idle. Every entry point takes the TurnID it was issued
for; calls carrying any other id are stale and leave the store untouched.
This is how late events from a superseded stream, stale reveal ticks and
stale follow-up results are discarded.

# Key Components

  - Store: message log, loading state, follow-up set and the active turn
  - Message: one entry in the log (user text, reply, tool notice, error)
  - State: the turn state machine
  - EmotionSink: receives emotion tokens for the avatar collaborator

# Concurrency

The Store is not safe for concurrent use. It is owned by a single
cooperative execution context (the bubbletea Update loop, or the
headless session runner) and never starts goroutines itself.

# Usage

	store := conversation.NewStore(conversation.WithEmotionSink(avatar.Set))
	turn, ok := store.Submit("hello", opts)
	// ... open the stream for turn.Request ...
	store.Opened(turn.ID)
	store.Apply(turn.ID, ev)
*/
package conversation
