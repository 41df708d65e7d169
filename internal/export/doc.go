// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the current conversation to a file.
//
// # Supported Formats
//
//   - Markdown: readable transcript with a YAML front matter header
//   - JSON: machine-readable, one object per message
//
// # Usage
//
//	t := export.NewTranscript(store.Messages(), cfg.Generation.Model)
//	path, err := export.ExportToFile(t, export.NewMarkdownExporter(nil), nil)
//
// The in-progress reply is exported with its full text. Nothing is kept
// after the process exits unless the user exports it.
package export
