// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/librarian-tui/internal/config"
	"github.com/jeranaias/librarian-tui/internal/conversation"
	"github.com/jeranaias/librarian-tui/internal/reveal"
)

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.stopTurn()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.store.Busy() {
			m.stopTurn()
			m.setNotice("Stopped.", false)
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.selected = -1
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keyMap.Clear):
		m.clear()
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		m.layout()
		return m, nil

	case key.Matches(msg, m.keyMap.Next):
		m.cycleSuggestion(1)
		return m, nil

	case key.Matches(msg, m.keyMap.Prev):
		m.cycleSuggestion(-1)
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		text := strings.TrimSpace(m.input.Value())
		if strings.HasPrefix(text, "/") {
			return m.handleCommand(text)
		}
		return m.submit(text)

	case key.Matches(msg, m.keyMap.Up, m.keyMap.Down, m.keyMap.PageUp, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if s := m.suggestions(); m.selected >= 0 && (m.selected >= len(s) || s[m.selected] != m.input.Value()) {
		m.selected = -1
		m.refresh()
	}
	return m, cmd
}

// suggestions are the starters for an empty log, otherwise the follow-ups
// of the last turn.
func (m Model) suggestions() []string {
	if m.store.Len() == 0 {
		return m.cfg.UI.Starters
	}
	if m.store.Busy() {
		return nil
	}
	return m.store.FollowUps()
}

// cycleSuggestion moves the selection and copies the suggestion into the
// input, so Enter submits it like typed text.
func (m *Model) cycleSuggestion(delta int) {
	s := m.suggestions()
	if len(s) == 0 {
		return
	}
	switch {
	case m.selected < 0 && delta < 0:
		m.selected = len(s) - 1
	case m.selected < 0:
		m.selected = 0
	default:
		m.selected = (m.selected + delta + len(s)) % len(s)
	}
	m.input.SetValue(s[m.selected])
	m.input.CursorEnd()
	m.refresh()
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

// submit starts a turn. A turn in progress is superseded: its reveal is
// cancelled and its context is cancelled before the new stream opens.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if m.client == nil {
		m.setNotice("No backend configured.", true)
		return m, nil
	}
	turn, ok := m.store.Submit(text, conversation.TurnOptions{
		SystemPrompt: m.cfg.Generation.SystemPrompt,
		LLM:          m.cfg.Generation.LLMConfig(),
		ThreadID:     m.cfg.Backend.ThreadID,
	})
	if !ok {
		return m, nil
	}
	if turn.Superseded != conversation.NoTurn {
		m.reveal.Cancel(turn.Superseded)
	}

	m.turnCtx = m.cancelMgr.begin(m.ctx)
	m.events = nil
	m.selected = -1
	m.notice = ""
	m.input.Reset()
	m.refresh()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		openStreamCmd(m.turnCtx, m.client, turn.ID, turn.Request),
		m.spinner.Tick,
	)
}

// stopTurn abandons the current turn, completing any half-revealed reply.
func (m *Model) stopTurn() {
	if id := m.store.Cancel(); id != conversation.NoTurn {
		m.reveal.Cancel(id)
	}
	m.cancelMgr.stop()
	m.events = nil
	m.idle()
}

func (m *Model) clear() {
	if id := m.store.Clear(); id != conversation.NoTurn {
		m.reveal.Cancel(id)
	}
	m.cancelMgr.stop()
	m.events = nil
	m.avatar.Reset()
	m.selected = -1
	m.notice = ""
	m.idle()
}

// idle runs after every transition that may have returned the store to Idle.
func (m *Model) idle() {
	if !m.store.Busy() {
		m.cancelMgr.stop()
		if m.pending != nil {
			m.applyConfig(m.pending)
			m.pending = nil
		}
	}
	m.refresh()
}

// =============================================================================
// STREAM
// =============================================================================

func (m Model) handleStreamOpened(msg StreamOpenedMsg) (tea.Model, tea.Cmd) {
	if !m.store.IsCurrent(msg.Turn) {
		return m, nil
	}
	m.store.Opened(msg.Turn)
	m.events = msg.Events
	return m, waitForStream(m.events)
}

func (m Model) handleStreamEvent(msg StreamEventMsg) (tea.Model, tea.Cmd) {
	if !m.store.IsCurrent(msg.Turn) {
		return m, nil
	}
	var cmds []tea.Cmd
	out := m.store.Apply(msg.Turn, msg.Event)
	if out.Reveal {
		cmds = append(cmds, m.beginReveal(msg.Turn, out.Text))
	}
	m.refresh()
	cmds = append(cmds, waitForStream(m.events))
	return m, tea.Batch(cmds...)
}

func (m Model) handleStreamClosed(msg StreamClosedMsg) (tea.Model, tea.Cmd) {
	if !m.store.IsCurrent(msg.Turn) {
		return m, nil
	}
	m.events = nil

	switch {
	case msg.Err != nil && errors.Is(msg.Err, context.Canceled):
		m.stopTurn()
		return m, nil
	case msg.Err != nil:
		if !m.store.Fail(msg.Turn, msg.Err) {
			log.Debug().Err(msg.Err).Str("turn_id", msg.Turn.Short()).Msg("transport error after reply ended")
			return m, nil
		}
	default:
		if !m.store.StreamClosed(msg.Turn) {
			return m, nil
		}
	}
	m.idle()
	return m, nil
}

// =============================================================================
// REVEAL AND FOLLOW-UP
// =============================================================================

func (m *Model) beginReveal(turn conversation.TurnID, text string) tea.Cmd {
	if text == "" {
		return m.finishReveal(turn)
	}
	return m.reveal.Start(turn, text)
}

func (m Model) handleRevealTick(msg reveal.TickMsg) (tea.Model, tea.Cmd) {
	frame, live, next := m.reveal.Tick(msg)
	if !live {
		return m, nil
	}
	m.store.Reveal(msg.Turn, frame.Prefix)
	if frame.Done {
		cmd := m.finishReveal(msg.Turn)
		m.refresh()
		return m, cmd
	}
	m.refresh()
	return m, next
}

// finishReveal completes the placeholder and issues the follow-up request
// when one is wanted.
func (m *Model) finishReveal(turn conversation.TurnID) tea.Cmd {
	reply, want := m.store.RevealDone(turn, m.cfg.FollowUp.Enabled)
	if !want {
		m.idle()
		return nil
	}
	return followUpCmd(m.turnCtx, m.client, m.cfg, turn, reply)
}

func (m Model) handleFollowUp(msg FollowUpMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
		log.Warn().Err(msg.Err).Str("turn_id", msg.Turn.Short()).Msg("follow-up request failed")
	}
	if !m.store.SetFollowUps(msg.Turn, msg.Questions) {
		return m, nil
	}
	m.selected = -1
	m.idle()
	return m, nil
}

// =============================================================================
// BACKEND AND CONFIG
// =============================================================================

func (m Model) handleModels(msg ModelsMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		log.Warn().Err(msg.Err).Msg("model listing failed")
		m.setNotice("Could not reach the backend: "+msg.Err.Error(), true)
		return m, nil
	}
	m.models = msg.Models
	m.setNotice(m.renderModelList(), false)
	return m, nil
}

// handleConfigReloaded applies a changed config file. A config that arrives
// mid-turn is held until the store is Idle so one request never sees two
// generation configs.
func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	next := watchConfigCmd(m.updates)
	if msg.Config == nil {
		return m, next
	}
	if m.store.Busy() {
		m.pending = msg.Config
		return m, next
	}
	m.applyConfig(msg.Config)
	m.setNotice("Settings reloaded.", false)
	return m, next
}

// updateConfig applies a settings change made from inside the TUI.
func (m *Model) updateConfig(cfg *config.Config) tea.Cmd {
	if m.store.Busy() {
		m.pending = cfg
	} else {
		m.applyConfig(cfg)
	}
	if m.persist {
		return saveConfigCmd(cfg)
	}
	return nil
}

func (m *Model) applyConfig(cfg *config.Config) {
	m.cfg = cfg
	m.reveal.SetInterval(cfg.Reveal.Interval.Duration)
	config.SetGlobal(cfg)
	log.Info().Str("model", cfg.Generation.Model).Msg("config applied")
}

// effective is the config that will govern the next turn.
func (m Model) effective() *config.Config {
	if m.pending != nil {
		return m.pending
	}
	return m.cfg
}
