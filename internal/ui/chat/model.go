// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/librarian-tui/internal/avatar"
	"github.com/jeranaias/librarian-tui/internal/config"
	"github.com/jeranaias/librarian-tui/internal/conversation"
	"github.com/jeranaias/librarian-tui/internal/reveal"
	"github.com/jeranaias/librarian-tui/internal/tools"
	"github.com/jeranaias/librarian-tui/internal/ui/styles"
)

// Layout heights that surround the viewport. They must match view.go.
const (
	headerHeight    = 2
	inputAreaHeight = 3
	statusBarHeight = 1
)

// Options configures a chat Model.
type Options struct {
	// Config is required.
	Config *config.Config
	// Client is required.
	Client Backend

	Theme  *styles.Theme
	Tools  *tools.Registry
	Avatar *avatar.Avatar

	// ConfigUpdates delivers reloaded configs, usually from config.Watcher.
	ConfigUpdates <-chan *config.Config
	// Persist saves settings changed with /set and /model.
	Persist bool
	// Context is the parent of every turn context. Defaults to Background.
	Context context.Context
}

// Model is the bubbletea model of the interactive client.
type Model struct {
	ctx     context.Context
	cfg     *config.Config
	pending *config.Config
	persist bool

	client    Backend
	store     *conversation.Store
	reveal    *reveal.Scheduler
	avatar    *avatar.Avatar
	tools     *tools.Registry
	cancelMgr *cancelManager

	// Per-turn plumbing for the current turn.
	turnCtx context.Context
	events  <-chan tea.Msg
	updates <-chan *config.Config

	theme    *styles.Theme
	markdown *markdownRenderer
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keyMap   KeyMap

	width    int
	height   int
	ready    bool
	showHelp bool
	selected int
	models   []string

	notice    string
	noticeErr bool
}

// New creates a chat model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(cfg.UI.Theme)
	}
	registry := opts.Tools
	if registry == nil {
		registry = tools.NewRegistry()
	}
	face := opts.Avatar
	if face == nil {
		face = avatar.New()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask the librarian..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 12,
	}
	sp.Style = theme.Spinner

	h := help.New()
	h.ShowAll = true

	return Model{
		ctx:       ctx,
		cfg:       cfg,
		persist:   opts.Persist,
		client:    opts.Client,
		store:     conversation.NewStore(conversation.WithEmotionSink(face.SetEmotion)),
		reveal:    reveal.NewScheduler(reveal.WithInterval(cfg.Reveal.Interval.Duration)),
		avatar:    face,
		tools:     registry,
		cancelMgr: newCancelManager(),
		updates:   opts.ConfigUpdates,
		theme:     theme,
		markdown:  newMarkdownRenderer(theme.IsDark),
		viewport:  vp,
		input:     ti,
		spinner:   sp,
		help:      h,
		keyMap:    DefaultKeyMap(),
		selected:  -1,
	}
}

// Store exposes the conversation store for inspection.
func (m Model) Store() *conversation.Store {
	return m.store
}

// Config returns the config the model is currently using.
func (m Model) Config() *config.Config {
	return m.cfg
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor and the config watcher.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, watchConfigCmd(m.updates))
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamOpenedMsg:
		return m.handleStreamOpened(msg)

	case StreamEventMsg:
		return m.handleStreamEvent(msg)

	case StreamClosedMsg:
		return m.handleStreamClosed(msg)

	case reveal.TickMsg:
		return m.handleRevealTick(msg)

	case FollowUpMsg:
		return m.handleFollowUp(msg)

	case ModelsMsg:
		return m.handleModels(msg)

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case ConfigSavedMsg:
		if msg.Err != nil {
			m.setNotice("Could not save settings: "+msg.Err.Error(), true)
		}
		return m, nil

	case ExportedMsg:
		if msg.Err != nil {
			m.setNotice("Export failed: "+msg.Err.Error(), true)
		} else {
			m.setNotice("Saved to "+msg.Path, false)
		}
		return m, nil

	case spinner.TickMsg:
		if m.store.Loading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.refresh()
			return m, cmd
		}
		return m, nil

	default:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.input.Width = msg.Width - 6
	m.help.Width = msg.Width
	m.layout()
	m.ready = true
	m.refresh()
	return m, nil
}

// layout sizes the viewport to whatever the surrounding chrome leaves.
func (m *Model) layout() {
	h := m.height - headerHeight - inputAreaHeight - statusBarHeight
	if m.showHelp {
		h -= len(m.keyMap.FullHelp()[0]) + 1
	}
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// refresh rebuilds the viewport content, following the bottom when the user
// has not scrolled away from it.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() <= m.viewport.Height
	m.viewport.SetContent(m.renderConversation())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
	m.refresh()
}
