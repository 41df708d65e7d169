// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/librarian-tui/internal/backend"
	"github.com/jeranaias/librarian-tui/internal/stream"
)

// ErrorNotice is the assistant-visible message for any transport failure.
const ErrorNotice = "System error, please try again later."

// toolNoticePrefix precedes the tool name in tool_chosen notices.
const toolNoticePrefix = "Using tool: "

// EmotionSink receives emotion tokens verbatim.
type EmotionSink func(token string)

// TurnOptions is the generation config captured for one request. It is
// copied at Submit time and never changes while the turn is in flight.
type TurnOptions struct {
	SystemPrompt string
	LLM          backend.LLMConfig
	ThreadID     string
}

// Turn is what Submit hands back to the driver.
type Turn struct {
	ID      TurnID
	Request backend.AgentRequest
	// Superseded is the turn that was invalidated by this submission.
	Superseded TurnID
}

// session is the transient per-turn state.
type session struct {
	id      TurnID
	chunks  []string
	emotion string
	ended   bool
}

// =============================================================================
// STORE
// =============================================================================

// Store is the conversation log plus the state machine for the active turn.
type Store struct {
	messages  []Message
	state     State
	active    *session
	followUps []string

	emotion EmotionSink
	newID   func() TurnID
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithEmotionSink routes emotion tokens to fn.
func WithEmotionSink(fn EmotionSink) Option {
	return func(s *Store) {
		s.emotion = fn
	}
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces NewTurnID.
func WithIDGenerator(fn func() TurnID) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// NewStore creates an empty store in the Idle state.
func NewStore(opts ...Option) *Store {
	s := &Store{
		emotion: func(string) {},
		newID:   NewTurnID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEmotionSink replaces the emotion sink.
func (s *Store) SetEmotionSink(fn EmotionSink) {
	if fn == nil {
		fn = func(string) {}
	}
	s.emotion = fn
}

// =============================================================================
// READ-ONLY VIEW
// =============================================================================

// Messages returns a copy of the log in conversation order.
func (s *Store) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	return len(s.messages)
}

// State returns the current state.
func (s *Store) State() State {
	return s.state
}

// Loading reports whether a request is in flight and nothing is revealing yet.
func (s *Store) Loading() bool {
	return s.state.Loading()
}

// Busy reports whether any turn is in progress.
func (s *Store) Busy() bool {
	return s.state != Idle
}

// FollowUps returns the current follow-up questions.
func (s *Store) FollowUps() []string {
	out := make([]string, len(s.followUps))
	copy(out, s.followUps)
	return out
}

// CurrentTurn returns the active turn id, or NoTurn when idle.
func (s *Store) CurrentTurn() TurnID {
	if s.active == nil {
		return NoTurn
	}
	return s.active.id
}

// IsCurrent reports whether id belongs to the active turn.
func (s *Store) IsCurrent(id TurnID) bool {
	return id != NoTurn && s.active != nil && s.active.id == id
}

// LastEmotion returns the most recent emotion token of the active turn.
func (s *Store) LastEmotion() string {
	if s.active == nil {
		return ""
	}
	return s.active.emotion
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit starts a new turn for text. Input is trimmed and NFC-normalized;
// empty input is rejected with no effect. A turn already in progress is
// superseded. The user message is appended before the request is returned.
func (s *Store) Submit(text string, opts TurnOptions) (Turn, bool) {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return Turn{}, false
	}

	superseded := s.supersede()

	id := s.newID()
	s.active = &session{id: id}
	s.state = Sending
	s.followUps = nil
	s.messages = append(s.messages, newMessage(RoleUser, KindText, text, id, s.now()))

	log.Debug().Str("turn_id", id.Short()).Str("superseded", superseded.Short()).Msg("turn submitted")

	return Turn{
		ID:         id,
		Request:    s.buildRequest(opts),
		Superseded: superseded,
	}, true
}

// buildRequest assembles [system prompt] + log for the backend.
func (s *Store) buildRequest(opts TurnOptions) backend.AgentRequest {
	msgs := make([]backend.Message, 0, len(s.messages)+1)
	msgs = append(msgs, backend.NewSystemMessage(opts.SystemPrompt))
	for _, m := range s.messages {
		if m.Content == "" {
			continue
		}
		msgs = append(msgs, backend.Message{Role: m.Role.String(), Content: m.Content})
	}
	return backend.AgentRequest{
		Messages:  msgs,
		LLMConfig: opts.LLM,
		ThreadID:  opts.ThreadID,
	}
}

// supersede invalidates the active turn. A half-revealed placeholder is
// completed with its final text so the log never keeps a partial reply.
func (s *Store) supersede() TurnID {
	if s.active == nil {
		return NoTurn
	}
	old := s.active.id
	s.completePlaceholder()
	s.active = nil
	s.state = Idle
	log.Debug().Str("turn_id", old.Short()).Msg("turn superseded")
	return old
}

// Cancel abandons the active turn, as when the view is torn down.
// It returns the cancelled id, or NoTurn if nothing was in progress.
func (s *Store) Cancel() TurnID {
	return s.supersede()
}

// Clear cancels any active turn and empties the log and follow-ups.
func (s *Store) Clear() TurnID {
	id := s.supersede()
	s.messages = nil
	s.followUps = nil
	return id
}

// =============================================================================
// STREAM INTERPRETATION
// =============================================================================

// Opened records that the backend accepted the request.
func (s *Store) Opened(id TurnID) bool {
	if !s.IsCurrent(id) || s.state != Sending {
		return false
	}
	s.state = Streaming
	return true
}

// Outcome tells the driver what to do after an event was applied.
type Outcome struct {
	// Applied is false when the event was stale or ignored.
	Applied bool
	// Reveal is set when llm_end finalized the reply; Text is the reply.
	Reveal bool
	Text   string
}

// Apply interprets one event for turn id, in arrival order.
func (s *Store) Apply(id TurnID, ev stream.Event) Outcome {
	if !s.IsCurrent(id) {
		log.Debug().Str("turn_id", id.Short()).Str("event", ev.Name).Msg("dropping stale event")
		return Outcome{}
	}
	logger := log.With().Str("turn_id", id.Short()).Str("event", ev.Name).Logger()

	// Emotion is forwarded for as long as its turn is current.
	if ev.Type == stream.Emotion {
		s.active.emotion = ev.EmotionToken()
		s.emotion(ev.EmotionToken())
		return Outcome{Applied: true}
	}

	if s.state == Sending {
		s.state = Streaming
	}
	if s.state != Streaming || s.active.ended {
		logger.Debug().Str("state", s.state.String()).Msg("ignoring event after reply ended")
		return Outcome{}
	}

	switch ev.Type {
	case stream.ToolChosen:
		s.messages = append(s.messages, newMessage(RoleAssistant, KindTool, toolNoticePrefix+ev.ToolName(), id, s.now()))
		return Outcome{Applied: true}

	case stream.ToolOutput:
		logger.Debug().Str("tool", ev.ToolName()).Msg("tool output received")
		return Outcome{Applied: true}

	case stream.LLMStart, stream.LLMDelta:
		s.active.chunks = append(s.active.chunks, ev.Chunk())
		return Outcome{Applied: true}

	case stream.LLMEnd:
		text := strings.Join(s.active.chunks, "")
		s.active.chunks = nil
		s.active.ended = true
		s.state = Revealing
		placeholder := newMessage(RoleAssistant, KindText, "", id, s.now())
		placeholder.Revealing = true
		placeholder.Final = text
		s.messages = append(s.messages, placeholder)
		logger.Debug().Int("chars", len(text)).Msg("reply finalized")
		return Outcome{Applied: true, Reveal: true, Text: text}

	default:
		logger.Info().RawJSON("payload", rawOrEmpty(ev.Raw)).Msg("ignoring unknown event")
		return Outcome{}
	}
}

// Accumulated returns the reply text received so far for the active turn.
func (s *Store) Accumulated() string {
	if s.active == nil {
		return ""
	}
	return strings.Join(s.active.chunks, "")
}

// Fail handles a transport failure for turn id. Before llm_end it appends
// the generic error notice and returns to Idle; afterwards it is ignored.
func (s *Store) Fail(id TurnID, err error) bool {
	if !s.IsCurrent(id) || !s.state.Loading() {
		return false
	}
	log.Error().Err(err).Str("turn_id", id.Short()).Str("state", s.state.String()).Msg("turn failed")
	s.messages = append(s.messages, newMessage(RoleAssistant, KindError, ErrorNotice, id, s.now()))
	s.active = nil
	s.state = Idle
	return true
}

// StreamClosed handles the end of the stream body. A stream that closes
// before llm_end discards its accumulator and returns to Idle.
func (s *Store) StreamClosed(id TurnID) bool {
	if !s.IsCurrent(id) || !s.state.Loading() {
		return false
	}
	log.Warn().Str("turn_id", id.Short()).Int("chunks", len(s.active.chunks)).Msg("stream ended without llm_end")
	s.active = nil
	s.state = Idle
	return true
}

// =============================================================================
// REVEAL
// =============================================================================

// Reveal replaces the placeholder content with prefix.
func (s *Store) Reveal(id TurnID, prefix string) bool {
	if !s.IsCurrent(id) || s.state != Revealing {
		return false
	}
	p := s.placeholder()
	if p == nil {
		return false
	}
	p.Content = prefix
	return true
}

// RevealDone completes the placeholder. It returns the reply text and whether
// a follow-up request should be issued. An empty reply goes straight to Idle.
func (s *Store) RevealDone(id TurnID, followUps bool) (string, bool) {
	if !s.IsCurrent(id) || s.state != Revealing {
		return "", false
	}
	reply := s.completePlaceholder()
	if reply == "" || !followUps {
		s.active = nil
		s.state = Idle
		return reply, false
	}
	s.state = FollowingUp
	return reply, true
}

// SetFollowUps stores the follow-up set for turn id and returns to Idle.
// A nil or empty set is valid (follow-up failure).
func (s *Store) SetFollowUps(id TurnID, questions []string) bool {
	if !s.IsCurrent(id) || s.state != FollowingUp {
		log.Debug().Str("turn_id", id.Short()).Msg("dropping stale follow-ups")
		return false
	}
	s.followUps = append([]string(nil), questions...)
	s.active = nil
	s.state = Idle
	return true
}

func (s *Store) placeholder() *Message {
	if n := len(s.messages); n > 0 && s.messages[n-1].Revealing {
		return &s.messages[n-1]
	}
	return nil
}

func (s *Store) completePlaceholder() string {
	p := s.placeholder()
	if p == nil {
		return ""
	}
	if p.Final == "" {
		s.messages = s.messages[:len(s.messages)-1]
		return ""
	}
	p.Content = p.Final
	p.Revealing = false
	p.Final = ""
	return p.Content
}

func rawOrEmpty(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}
