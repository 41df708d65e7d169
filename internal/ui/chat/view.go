// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/librarian-tui/internal/conversation"
	"github.com/jeranaias/librarian-tui/internal/ui/styles"
	"github.com/jeranaias/librarian-tui/internal/util"
)

// revealCursor trails a reply that is still being revealed.
const revealCursor = "▌"

func (m Model) renderChat() string {
	if !m.ready {
		return "Starting librarian..."
	}
	parts := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	}
	if m.showHelp {
		parts = append(parts, m.theme.Help.Render(m.help.FullHelpView(m.keyMap.FullHelp())))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	left := m.theme.HeaderTitle.Render("librarian") +
		m.theme.Muted.Render(" | "+m.cfg.Generation.Model)

	var right string
	if m.cfg.UI.ShowAvatar {
		expr := m.avatar.Current()
		right = m.theme.Avatar.Render(expr.Face) + " " + m.theme.AvatarLabel.Render(expr.Label)
	}

	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// CONVERSATION
// =============================================================================

// renderConversation is the viewport content: the log, then starters or
// follow-ups, then the latest notice.
func (m Model) renderConversation() string {
	var blocks []string

	if m.store.Len() == 0 {
		blocks = append(blocks, m.renderEmptyState())
	}
	for _, msg := range m.store.Messages() {
		blocks = append(blocks, m.renderMessage(msg))
	}
	if m.store.Loading() {
		blocks = append(blocks, m.theme.Muted.Render("  "+m.spinner.View()+" The librarian is looking into it..."))
	}
	if s := m.renderSuggestions(); s != "" {
		blocks = append(blocks, s)
	}
	if m.notice != "" {
		if m.noticeErr {
			blocks = append(blocks, styles.RenderError(m.notice))
		} else {
			blocks = append(blocks, m.theme.Muted.Render(m.notice))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderEmptyState() string {
	title := m.theme.HeaderTitle.Render("Welcome to the library.")
	hint := m.theme.Muted.Render("Ask anything, or press Tab to pick a question below.")
	return title + "\n" + hint
}

func (m Model) renderMessage(msg conversation.Message) string {
	switch msg.Kind {
	case conversation.KindTool:
		name := strings.TrimPrefix(msg.Content, "Using tool: ")
		return m.theme.ToolNotice.Render("Using tool: " + m.tools.Label(name))
	case conversation.KindError:
		return m.theme.ErrorNotice.Render(styles.StatusIndicators.Error + " " + msg.Content)
	}

	width := m.theme.BubbleWidth()
	stamp := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	if msg.Role == conversation.RoleUser {
		label := m.theme.UserLabel.Render(msg.Role.DisplayName()) + " " + stamp
		body := m.theme.UserBubble.Width(width).Render(msg.Content)
		return lipgloss.JoinVertical(lipgloss.Right, label, body)
	}

	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName()) + " " + stamp
	var content string
	switch {
	case msg.Revealing:
		content = msg.Content + m.theme.Cursor.Render(revealCursor)
	case m.cfg.UI.Markdown:
		content = m.markdown.Render(msg.ID, msg.Content, width-4)
	default:
		content = msg.Content
	}
	return label + "\n" + m.theme.AssistantBubble.Width(width).Render(content)
}

func (m Model) renderSuggestions() string {
	s := m.suggestions()
	if len(s) == 0 {
		return ""
	}
	title := "You might also ask:"
	if m.store.Len() == 0 {
		title = "Try asking:"
	}

	maxWidth := m.width - 8
	if maxWidth < 20 {
		maxWidth = 20
	}
	lines := []string{m.theme.SuggestionTitle.Render(title)}
	for i, q := range s {
		text := fmt.Sprintf("%d. %s", i+1, util.TruncateWidth(q, maxWidth))
		if i == m.selected {
			lines = append(lines, m.theme.SuggestionSelected.Render(text))
		} else {
			lines = append(lines, m.theme.Suggestion.Render(text))
		}
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.theme.InputContainer.Width(width - 2).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	state := m.store.State().String()
	if turn := m.store.CurrentTurn(); turn != conversation.NoTurn {
		state += " " + turn.Short()
	}
	left := m.theme.StatusState.Render(state)
	right := m.help.ShortHelpView(m.keyMap.ShortHelp())

	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right = util.TruncateWidth(right, width-4-lipgloss.Width(left))
		gap = 1
	}
	return m.theme.StatusBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
