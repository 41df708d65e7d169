// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/librarian-tui/internal/config"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change librarian settings.

Keys use dotted names such as generation.temperature or reveal.interval.
List values are separated with "|".`,
	}
	cmd.AddCommand(
		newConfigShowCmd(root),
		newConfigGetCmd(root),
		newConfigSetCmd(root),
		newConfigPathCmd(root),
		newConfigKeysCmd(),
	)
	return cmd
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				fmt.Fprintln(out, root.cfg.String())
				return nil
			}
			var b strings.Builder
			if err := toml.NewEncoder(&b).Encode(root.cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			text := b.String()
			if colorsEnabled(out) {
				text = highlight(text, "toml")
			}
			fmt.Fprint(out, text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newConfigGetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := root.cfg.Get(args[0])
			if err != nil {
				return err
			}
			if list, ok := v.([]string); ok {
				v = strings.Join(list, "|")
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newConfigSetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting in the config file",
		Long: `Change one setting and write the config file. Environment variables and
command-line flags are not written back.`,
		Example: `  librarian config set generation.temperature 0.3
  librarian config set ui.starters "Any new sci-fi?|Opening hours?"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := root.configPathOrDefault()
			if err != nil {
				return err
			}

			// Start from the file alone so overrides stay out of it.
			cfg := config.Default()
			if fileExists(path) {
				if strings.HasSuffix(path, ".json") {
					err = config.LoadJSON(cfg, path)
				} else {
					err = config.LoadTOML(cfg, path)
				}
				if err != nil {
					return err
				}
			}

			key, value := args[0], strings.Join(args[1:], " ")
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			cfg.Normalize()
			if err := cfg.Validate(); err != nil {
				return err
			}

			if strings.HasSuffix(path, ".json") {
				err = config.SaveJSON(cfg, path)
			} else {
				err = config.SaveTOML(cfg, path)
			}
			if err != nil {
				return err
			}

			saved, _ := cfg.Get(key)
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, saved)
			return nil
		},
	}
}

func newConfigPathCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := root.configPathOrDefault()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the settable keys",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			keys := config.GetAllKeys()
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
		},
	}
}
