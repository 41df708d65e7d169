// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/librarian-tui/internal/backend"
	"github.com/jeranaias/librarian-tui/internal/config"
	"github.com/jeranaias/librarian-tui/internal/logging"
	"github.com/jeranaias/librarian-tui/internal/session"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// logFileName is the default log file inside the config directory.
const logFileName = "librarian.log"

// rootOptions holds the persistent flags and the state loaded from them.
type rootOptions struct {
	configPath string
	backendURL string
	model      string
	logLevel   string

	cfg    *config.Config
	logOut io.Closer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "librarian",
		Short: "A conversational library assistant for the terminal",
		Long: `librarian talks to a library agent service. Replies stream in, are
revealed a character at a time, and are followed by suggested questions.

Run without a subcommand to start the interactive interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.logOut != nil {
				return opts.logOut.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
	root.CompletionOptions.HiddenDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.librarian/config.toml)")
	flags.StringVar(&opts.backendURL, "backend", "", "agent service URL (overrides config)")
	flags.StringVarP(&opts.model, "model", "m", "", "model name (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "trace, debug, info, warn, error or disabled")

	root.AddCommand(
		newAskCmd(opts),
		newChatCmd(opts),
		newModelsCmd(opts),
		newToolsCmd(),
		newConfigCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:")+" "+err.Error())
		os.Exit(1)
	}
}

// load reads .env, the config file and flag overrides, then installs the
// logger. The interactive interface logs to a file; everything else logs to
// stderr.
func (o *rootOptions) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	switch {
	case o.configPath != "" && fileExists(o.configPath):
		config.SetDir(filepath.Dir(o.configPath))
		cfg, err = config.LoadFromPath(o.configPath)
	case o.configPath != "":
		config.SetDir(filepath.Dir(o.configPath))
		cfg = config.Default()
		cfg.ApplyEnvOverrides()
		cfg.Normalize()
	default:
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if o.backendURL != "" {
		cfg.Backend.URL = strings.TrimRight(o.backendURL, "/")
	}
	if o.model != "" {
		cfg.Generation.Model = o.model
	}
	if o.logLevel != "" {
		cfg.Log.Level = strings.ToLower(o.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	config.SetGlobal(cfg)
	o.cfg = cfg

	logOpts := logging.Options{Level: cfg.Log.Level, Path: cfg.Log.Path}
	if cmd.Root() == cmd {
		if logOpts.Path == "" {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			logOpts.Path = filepath.Join(dir, logFileName)
		}
	} else if logOpts.Path == "" {
		logOpts.Console = true
	}
	closer, err := logging.Setup(logOpts)
	if err != nil {
		return err
	}
	o.logOut = closer

	log.Debug().Str("command", cmd.Name()).Str("backend", cfg.Backend.URL).Str("model", cfg.Generation.Model).Msg("config loaded")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// configPathOrDefault is where "config set" writes.
func (o *rootOptions) configPathOrDefault() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ActivePath()
}

// =============================================================================
// SHARED BUILDERS
// =============================================================================

// newClient builds a backend client from the backend section.
func newClient(cfg *config.Config) *backend.Client {
	b := cfg.Backend
	return backend.NewClient(b.URL).
		WithPaths(b.StreamPath, b.RunPath, b.ModelsPath).
		WithTimeout(b.Timeout.Duration).
		WithMaxRetries(b.MaxRetries).
		WithRateLimit(b.RequestsPerSecond)
}

// sessionSettings maps the config onto per-turn runner settings.
func sessionSettings(cfg *config.Config) session.Settings {
	return session.Settings{
		SystemPrompt:      cfg.Generation.SystemPrompt,
		LLM:               cfg.Generation.LLMConfig(),
		ThreadID:          cfg.Backend.ThreadID,
		FollowUps:         cfg.FollowUp.Enabled,
		FollowUpMaxTokens: cfg.FollowUp.MaxTokens,
		FollowUpThreadID:  cfg.FollowUp.ThreadID,
		RevealInterval:    cfg.Reveal.Interval.Duration,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "librarian version %s\n", Version)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Build date: %s\n", BuildDate)
		},
	}
}
