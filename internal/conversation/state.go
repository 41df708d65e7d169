// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

// State is the position of the active turn in its lifecycle.
type State int

const (
	Idle State = iota
	Sending
	Streaming
	Revealing
	FollowingUp
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	case Revealing:
		return "revealing"
	case FollowingUp:
		return "following-up"
	default:
		return "unknown"
	}
}

// Loading reports whether the reply has not started revealing yet.
func (s State) Loading() bool {
	return s == Sending || s == Streaming
}
