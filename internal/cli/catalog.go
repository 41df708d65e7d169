// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/librarian-tui/internal/backend"
	"github.com/jeranaias/librarian-tui/internal/tools"
	"github.com/jeranaias/librarian-tui/internal/util"
)

// modelsTimeout bounds the model listing request.
const modelsTimeout = 10 * time.Second

func newModelsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the backend offers",
		Long: `List the models offered by the agent service. When the service cannot
be reached, the built-in list is shown instead. The current model is marked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			p := newPrinter(out)

			ctx, cancel := context.WithTimeout(cmd.Context(), modelsTimeout)
			defer cancel()
			models, err := newClient(root.cfg).Models(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("model listing failed, using built-in list")
				fmt.Fprintln(out, p.style(mutedStyle, "Backend unavailable; showing built-in models."))
				models = backend.DefaultModels
			}

			current := root.cfg.Generation.Model
			for _, name := range models {
				marker := "  "
				if name == current {
					marker = "* "
				}
				fmt.Fprintln(out, marker+name)
			}
			return nil
		},
	}
}

func newToolsCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Show the tools the librarian can use",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			registry := tools.NewRegistry()
			out := cmd.OutOrStdout()
			writeToolList(out, newPrinter(out), registry, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show descriptions and arguments")
	return cmd
}

// writeToolList prints the catalog, one tool per line, optionally with its
// full description and argument schema.
func writeToolList(out io.Writer, p printer, registry *tools.Registry, verbose bool) {
	for _, t := range registry.All() {
		fmt.Fprintf(out, "  %s  %s\n", p.style(toolStyle, util.PadRight(t.Name, 24)), t.ShortDescription())
		if !verbose {
			continue
		}
		if t.Description != "" {
			fmt.Fprintf(out, "      %s\n", p.style(mutedStyle, t.Description))
		}
		for _, arg := range t.Schema.Parameters {
			req := ""
			if arg.Required {
				req = ", required"
			}
			fmt.Fprintf(out, "      - %s (%s%s): %s\n", arg.Name, arg.Type, req, arg.Description)
		}
	}
}
