// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/librarian-tui/internal/backend"
	"github.com/jeranaias/librarian-tui/internal/export"
	"github.com/jeranaias/librarian-tui/internal/util"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command.
type CommandHandler func(m *Model, args []string) (tea.Model, tea.Cmd)

// commandHandlers maps command names to their handler functions.
var commandHandlers = map[string]CommandHandler{
	"help": handleHelpCommand,
	"h":    handleHelpCommand,
	"?":    handleHelpCommand,
	"quit": handleQuitCommand,
	"q":    handleQuitCommand,
	"exit": handleQuitCommand,

	"clear": handleClearCommand,
	"c":     handleClearCommand,
	"new":   handleClearCommand,
	"stop":  handleStopCommand,

	"settings": handleSettingsCommand,
	"config":   handleSettingsCommand,
	"set":      handleSetCommand,
	"model":    handleModelCommand,
	"m":        handleModelCommand,
	"models":   handleModelsCommand,

	"tools": handleToolsCommand,
	"t":     handleToolsCommand,

	"export": handleExportCommand,
	"save":   handleExportCommand,
}

// commandHelp is shown by /help, in display order.
var commandHelp = [][2]string{
	{"/help", "show this list"},
	{"/clear", "start a new conversation"},
	{"/stop", "stop the current reply"},
	{"/settings", "show generation settings"},
	{"/set <key> <value>", "change a setting, e.g. /set generation.temperature 0.3"},
	{"/model [name]", "show or switch the model"},
	{"/models", "list models offered by the backend"},
	{"/tools", "list the tools the librarian can use"},
	{"/export [md|json]", "save the conversation to a file"},
	{"/quit", "exit"},
}

// handleCommand processes slash commands using the command registry.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	m.input.Reset()
	m.selected = -1

	parts := strings.Fields(content)
	if len(parts) == 0 {
		return m, nil
	}
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))

	handler, ok := commandHandlers[name]
	if !ok {
		m.setNotice("Unknown command '"+parts[0]+"'. Type /help for available commands.", true)
		return m, nil
	}
	return handler(&m, parts[1:])
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleHelpCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, h := range commandHelp {
		fmt.Fprintf(&b, "  %s  %s\n", util.PadRight(h[0], 20), h[1])
	}
	m.setNotice(strings.TrimRight(b.String(), "\n"), false)
	return *m, nil
}

func handleQuitCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.stopTurn()
	return *m, tea.Quit
}

func handleClearCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.clear()
	return *m, nil
}

func handleStopCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if !m.store.Busy() {
		m.setNotice("Nothing to stop.", false)
		return *m, nil
	}
	m.stopTurn()
	m.setNotice("Stopped.", false)
	return *m, nil
}

func handleSettingsCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	cfg := m.effective()
	g := cfg.Generation
	prompt := g.SystemPrompt
	if prompt == "" {
		prompt = "(none)"
	}
	lines := []string{
		"Generation settings:",
		"  model          " + g.Model,
		fmt.Sprintf("  temperature    %.2f", g.Temperature),
		fmt.Sprintf("  max_tokens     %d", g.MaxTokens),
		"  system_prompt  " + util.TruncateRunes(util.FirstLine(prompt), 60),
		"  reveal         " + cfg.Reveal.Interval.String(),
		fmt.Sprintf("  follow-ups     %t", cfg.FollowUp.Enabled),
	}
	m.setNotice(strings.Join(lines, "\n"), false)
	return *m, nil
}

// handleSetCommand changes one dotted config key, e.g.
// "/set generation.max_tokens 512". The value is the rest of the line.
func handleSetCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) < 2 {
		m.setNotice("Usage: /set <key> <value>", true)
		return *m, nil
	}
	next := m.effective().Clone()
	if err := next.Set(args[0], strings.Join(args[1:], " ")); err != nil {
		m.setNotice(err.Error(), true)
		return *m, nil
	}
	next.Normalize()
	if err := next.Validate(); err != nil {
		m.setNotice(err.Error(), true)
		return *m, nil
	}
	cmd := m.updateConfig(next)
	value, _ := next.Get(args[0])
	m.setNotice(fmt.Sprintf("%s = %v", args[0], value), false)
	return *m, cmd
}

func handleModelCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		m.setNotice("Model: "+m.effective().Generation.Model, false)
		return *m, nil
	}
	return handleSetCommand(m, []string{"generation.model", args[0]})
}

func handleModelsCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.client == nil {
		m.models = backend.DefaultModels
		m.setNotice(m.renderModelList(), false)
		return *m, nil
	}
	m.setNotice("Fetching models...", false)
	return *m, fetchModelsCmd(m.client)
}

func handleToolsCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	var b strings.Builder
	b.WriteString("Tools the librarian can use:\n")
	for _, t := range m.tools.All() {
		fmt.Fprintf(&b, "  %s  %s\n", util.PadRight(t.Name, 24), t.ShortDescription())
	}
	m.setNotice(strings.TrimRight(b.String(), "\n"), false)
	return *m, nil
}

// renderModelList marks the active model in the last fetched listing.
func (m Model) renderModelList() string {
	models := append([]string(nil), m.models...)
	sort.Strings(models)
	current := m.effective().Generation.Model

	var b strings.Builder
	b.WriteString("Models:\n")
	for _, name := range models {
		marker := "  "
		if name == current {
			marker = "* "
		}
		b.WriteString("  " + marker + name + "\n")
	}
	b.WriteString("Switch with /model <name>.")
	return b.String()
}

func handleExportCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	format := ""
	if len(args) > 0 {
		format = args[0]
	}
	exporter, err := export.ForFormat(format, nil)
	if err != nil {
		m.setNotice(err.Error(), true)
		return *m, nil
	}
	if m.store.Len() == 0 {
		m.setNotice("Nothing to export yet.", false)
		return *m, nil
	}
	t := export.NewTranscript(m.store.Messages(), m.cfg.Generation.Model)
	return *m, exportCmd(t, exporter)
}
