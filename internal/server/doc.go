// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a stand-in for the librarian agent backend.
//
// It speaks the same wire protocol as the real agent service so the client
// can be developed and demonstrated offline.
//
// Endpoints:
//   - POST /v2/react/stream - Event stream for one turn
//   - POST /v2/react/run    - Single JSON reply (used for follow-ups)
//   - GET  /v2/react/models - Available models
//   - GET  /v2/react/tools  - Tool catalog
//   - GET  /health          - Health check
//
// Replies come from an Agent. The built-in ScriptedAgent picks a tool and an
// emotion from keywords in the question and echoes a short canned answer.
package server
