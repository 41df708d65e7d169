// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the librarian command tree.
//
// Running librarian without a subcommand opens the full-screen interface.
// The ask, chat, models, tools, config and serve subcommands cover
// scripting, a line-based REPL, inspection and a local stand-in backend.
package cli
