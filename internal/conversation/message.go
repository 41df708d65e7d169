// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Librarian"
	default:
		return string(r)
	}
}

// Kind distinguishes assistant messages that are not model replies.
type Kind int

const (
	// KindText is user input or a model reply.
	KindText Kind = iota
	// KindTool is the "Using tool: ..." notice.
	KindTool
	// KindError is the generic failure notice.
	KindError
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in the conversation log.
type Message struct {
	ID        string
	Role      Role
	Kind      Kind
	Content   string
	Timestamp time.Time

	// TurnID is the turn that produced the message.
	TurnID TurnID

	// Revealing is set on the reply placeholder while its text is still
	// being exposed. At most one message has it set, and it is the last one.
	Revealing bool
	// Final is the full reply text for a revealing placeholder.
	Final string
}

// IsPlaceholder reports whether the message is the in-progress reply.
func (m Message) IsPlaceholder() bool {
	return m.Revealing
}

func newMessage(role Role, kind Kind, content string, turn TurnID, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Kind:      kind,
		Content:   content,
		Timestamp: now,
		TurnID:    turn,
	}
}

// =============================================================================
// TURN ID
// =============================================================================

// TurnID correlates every asynchronous operation with the submission that
// started it.
type TurnID string

// NoTurn is the zero TurnID; no turn is ever issued with it.
const NoTurn TurnID = ""

// NewTurnID returns a fresh random turn id.
func NewTurnID() TurnID {
	return TurnID(uuid.NewString())
}

// Short returns the first 8 characters, for logs and status lines.
func (t TurnID) Short() string {
	if len(t) > 8 {
		return string(t[:8])
	}
	return string(t)
}
