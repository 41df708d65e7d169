// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/librarian-tui/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr  string
		delay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local stand-in agent service",
		Long: `Run a scripted agent service that speaks the same event stream as the
real backend. Useful for trying the client without a model server.`,
		Example: `  librarian serve --addr :8000
  librarian --backend http://localhost:8000 ask "Any new mysteries?"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.NewServer(addr, server.WithChunkDelay(delay))
			cmd.Printf("Serving on %s (backend.url for clients: http://localhost%s)\n", srv.Addr(), portOf(srv.Addr()))
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().DurationVar(&delay, "chunk-delay", server.DefaultChunkDelay, "pause between streamed deltas")
	return cmd
}

// portOf returns the ":port" suffix of a listen address.
func portOf(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return ""
}
