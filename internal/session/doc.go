// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs conversation turns without a TUI.
//
// A Runner owns a conversation.Store and drives one turn at a time through
// the whole pipeline: submit, open the stream, interpret events, reveal the
// reply and fetch follow-up questions. The store is only touched from the
// goroutine calling Ask; the stream body is read on a helper goroutine and
// handed over on a channel, so events are applied in arrival order.
//
// # Usage
//
//	r := session.NewRunner(client, session.Settings{LLM: cfg.Generation.LLMConfig()})
//	res, err := r.Ask(ctx, "Recommend a book about tides")
//	fmt.Println(res.Reply, res.FollowUps)
package session
