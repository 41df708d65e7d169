// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/librarian-tui/internal/conversation"
	"github.com/jeranaias/librarian-tui/internal/reveal"
	"github.com/jeranaias/librarian-tui/internal/session"
	"github.com/jeranaias/librarian-tui/internal/tools"
)

type askOptions struct {
	json        bool
	raw         bool
	noFollowUps bool
}

// askResult is the --json output.
type askResult struct {
	Question  string   `json:"question"`
	Reply     string   `json:"reply"`
	Tools     []string `json:"tools,omitempty"`
	Emotion   string   `json:"emotion,omitempty"`
	FollowUps []string `json:"follow_ups,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question",
		Long: `Ask one question and print the reply.

On a terminal the finished reply is rendered as markdown. When the output is
piped, or with --raw, the reply is written as it is revealed.`,
		Example: `  librarian ask "Any books on managing blood sugar?"
  librarian ask --json "What's the weather in Taipei?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, root, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "never render markdown")
	cmd.Flags().BoolVar(&opts.noFollowUps, "no-follow-ups", false, "skip follow-up questions")
	return cmd
}

func runAsk(cmd *cobra.Command, root *rootOptions, opts *askOptions, question string) error {
	cfg := root.cfg.Clone()
	if opts.noFollowUps {
		cfg.FollowUp.Enabled = false
	}

	out := cmd.OutOrStdout()
	p := newPrinter(out)
	pretty := isTerminal(out) && cfg.UI.Markdown && !opts.raw && !opts.json

	registry := tools.NewRegistry()

	runner := session.NewRunner(newClient(cfg), sessionSettings(cfg))
	shown := 0
	runner.SetHooks(session.Hooks{
		Tool: func(name string) {
			if !opts.json {
				fmt.Fprintln(out, p.style(toolStyle, "Using tool: "+registry.Label(name)))
			}
		},
		Reveal: func(f reveal.Frame) {
			if pretty || opts.json {
				return
			}
			io.WriteString(out, f.Prefix[shown:])
			shown = len(f.Prefix)
		},
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := runner.Ask(ctx, question)

	if opts.json {
		return writeAskJSON(out, question, res, err)
	}
	if err != nil {
		if errors.Is(err, session.ErrEmptyInput) {
			return fmt.Errorf("question is empty")
		}
		if res != nil && res.Failed && !errors.Is(err, session.ErrNoReply) {
			fmt.Fprintln(out, p.style(errorStyle, conversation.ErrorNotice))
		}
		return err
	}

	switch {
	case pretty:
		fmt.Fprint(out, renderMarkdown(res.Reply, terminalWidth(out)))
	case shown > 0:
		fmt.Fprintln(out)
	}
	printFollowUps(out, p, res.FollowUps)
	return nil
}

func writeAskJSON(out io.Writer, question string, res *session.Result, askErr error) error {
	result := askResult{Question: question}
	if res != nil {
		result.Reply = res.Reply
		result.Tools = res.Tools
		result.Emotion = res.Emotion
		result.FollowUps = res.FollowUps
	}
	if askErr != nil {
		result.Error = askErr.Error()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	return askErr
}

// printFollowUps lists suggested questions, numbered from 1.
func printFollowUps(out io.Writer, p printer, questions []string) {
	if len(questions) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, p.style(infoStyle, "You might also ask:"))
	for i, q := range questions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, p.style(suggestionStyle, q))
	}
}
