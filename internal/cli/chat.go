// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/librarian-tui/internal/config"
	"github.com/jeranaias/librarian-tui/internal/conversation"
	"github.com/jeranaias/librarian-tui/internal/export"
	"github.com/jeranaias/librarian-tui/internal/reveal"
	"github.com/jeranaias/librarian-tui/internal/session"
	"github.com/jeranaias/librarian-tui/internal/tools"
	"github.com/jeranaias/librarian-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides input history and line editing for the REPL.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(configDir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Read reads one line; non-empty input is added to history.
func (r *lineReader) Read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *lineReader) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start a line-based chat session",
		Long: `Chat with the librarian in a simple REPL with input history.

Type a number to ask one of the suggested follow-up questions.
Ctrl+C stops the current reply; Ctrl+D exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, root)
		},
	}
}

func runChat(cmd *cobra.Command, root *rootOptions) error {
	out := cmd.OutOrStdout()
	s := newChatSession(out, root.cfg)

	input := newLineReader()
	defer input.Close()

	fmt.Fprintln(out, s.p.style(titleStyle, "librarian")+" "+s.p.style(mutedStyle, "("+s.cfg.Generation.Model+")"))
	fmt.Fprintln(out, s.p.style(infoStyle, "Type /help for commands. Try one of these:"))
	s.followUps = append([]string(nil), s.cfg.UI.Starters...)
	printFollowUps(out, s.p, s.followUps)

	for {
		line, err := input.Read(s.p.style(promptStyle, "you> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed stdin all end the session.
			fmt.Fprintln(out)
			return nil
		}
		quit, err := s.handle(cmd.Context(), line)
		if err != nil {
			fmt.Fprintln(out, s.p.style(errorStyle, "[Error]")+" "+err.Error())
		}
		if quit {
			return nil
		}
	}
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession is the REPL state apart from the terminal.
type chatSession struct {
	out       io.Writer
	p         printer
	cfg       *config.Config
	runner    *session.Runner
	registry  *tools.Registry
	followUps []string

	exportOpts *export.Options
}

func newChatSession(out io.Writer, cfg *config.Config) *chatSession {
	cfg = cfg.Clone()
	registry := tools.NewRegistry()
	return &chatSession{
		out:      out,
		p:        newPrinter(out),
		cfg:      cfg,
		runner:   session.NewRunner(newClient(cfg), sessionSettings(cfg)),
		registry: registry,

		exportOpts: export.DefaultOptions(),
	}
}

// handle processes one input line and reports whether the session is over.
func (s *chatSession) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(s.followUps) {
		line = s.followUps[n-1]
		fmt.Fprintln(s.out, s.p.style(mutedStyle, "> "+line))
	}

	if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
		return true, nil
	}
	if strings.HasPrefix(line, "/") {
		return s.command(line)
	}
	return false, s.ask(ctx, line)
}

func (s *chatSession) command(line string) (bool, error) {
	parts := strings.Fields(line)
	switch strings.ToLower(strings.TrimPrefix(parts[0], "/")) {
	case "quit", "q", "exit":
		return true, nil

	case "help", "h", "?":
		for _, h := range [][2]string{
			{"/clear", "start a new conversation"},
			{"/model [name]", "show or switch the model"},
			{"/tools", "list the tools the librarian can use"},
			{"/export [md|json]", "save the conversation to a file"},
			{"1-3", "ask a suggested question"},
			{"/quit", "exit"},
		} {
			fmt.Fprintf(s.out, "  %s  %s\n", util.PadRight(h[0], 18), h[1])
		}

	case "clear", "c", "new":
		s.runner.Clear()
		s.followUps = nil
		fmt.Fprintln(s.out, s.p.style(infoStyle, "Conversation cleared."))

	case "model", "m":
		if len(parts) == 1 {
			fmt.Fprintln(s.out, "Model: "+s.cfg.Generation.Model)
			return false, nil
		}
		s.cfg.Generation.Model = parts[1]
		s.runner.SetSettings(sessionSettings(s.cfg))
		fmt.Fprintln(s.out, s.p.style(infoStyle, "Model set to "+parts[1]))

	case "tools", "t":
		writeToolList(s.out, s.p, s.registry, false)

	case "export", "save":
		format := ""
		if len(parts) > 1 {
			format = parts[1]
		}
		exporter, err := export.ForFormat(format, s.exportOpts)
		if err != nil {
			return false, err
		}
		t := export.NewTranscript(s.runner.Messages(), s.cfg.Generation.Model)
		path, err := export.ExportToFile(t, exporter, s.exportOpts)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, s.p.style(infoStyle, "Saved to "+path))

	default:
		return false, fmt.Errorf("unknown command %q, type /help", parts[0])
	}
	return false, nil
}

// ask runs one turn. Ctrl+C during the turn stops it without leaving the REPL.
func (s *chatSession) ask(ctx context.Context, question string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shown := 0
	s.runner.SetHooks(session.Hooks{
		Tool: func(name string) {
			fmt.Fprintln(s.out, s.p.style(toolStyle, "Using tool: "+s.registry.Label(name)))
		},
		Reveal: func(f reveal.Frame) {
			io.WriteString(s.out, f.Prefix[shown:])
			shown = len(f.Prefix)
		},
	})

	res, err := s.runner.Ask(ctx, question)
	if shown > 0 {
		fmt.Fprintln(s.out)
	}
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(s.out, s.p.style(mutedStyle, "[Stopped]"))
		return nil
	case errors.Is(err, session.ErrNoReply):
		fmt.Fprintln(s.out, s.p.style(mutedStyle, "(no reply)"))
		return nil
	case err != nil && res != nil && res.Failed:
		fmt.Fprintln(s.out, s.p.style(errorStyle, conversation.ErrorNotice))
		return err
	case err != nil:
		return err
	}

	s.followUps = res.FollowUps
	printFollowUps(s.out, s.p, s.followUps)
	return nil
}
