// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/librarian-tui/internal/config"
	"github.com/jeranaias/librarian-tui/internal/ui/chat"
)

// runTUI starts the full-screen interface. The config file is watched and
// edits are picked up between turns.
func runTUI(cmd *cobra.Command, root *rootOptions) error {
	var updates <-chan *config.Config
	if path := root.watchPath(); path != "" {
		w, err := config.NewWatcher(path, config.DefaultDebounce)
		if err == nil {
			err = w.Watch()
		}
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config watcher unavailable")
		} else {
			defer w.Close()
			updates = w.Updates()
		}
	}

	m := chat.New(chat.Options{
		Config:        root.cfg,
		Client:        newClient(root.cfg),
		ConfigUpdates: updates,
		Persist:       root.persistable(),
		Context:       cmd.Context(),
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err := p.Run()
	return err
}

// watchPath is the config file the interface reloads from.
func (o *rootOptions) watchPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	path, err := config.ActivePath()
	if err != nil {
		return ""
	}
	return path
}

// persistable reports whether in-app setting changes may be written back.
// Flag overrides would otherwise end up in the file.
func (o *rootOptions) persistable() bool {
	return o.configPath == "" && o.backendURL == "" && o.model == ""
}
