// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools describes the tools the librarian agent can call.
//
// The agent runs tools on the backend. The client only needs their names,
// descriptions and argument schemas so it can list them and label the
// "Using tool" notices that appear mid-stream.
package tools
