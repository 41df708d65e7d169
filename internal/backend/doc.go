// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the librarian agent service.
//
// The service exposes three endpoints under a common prefix:
//
//   - POST /v2/react/stream - run the agent and stream frames (see package stream)
//   - POST /v2/react/run    - run the agent and return one JSON document
//   - GET  /v2/react/models - list configured models
//
// # Key Types
//
//   - Client: configured endpoint set, rate limiter and retry policy
//   - AgentRequest / AgentResponse: wire bodies shared with the stand-in server
//   - APIError: non-2xx response, unwraps to one of the Err* sentinels
//
// # Usage
//
//	client := backend.NewClient("http://localhost:8000")
//	err := client.Stream(ctx, req, func(ev stream.Event) error {
//	    ...
//	})
package backend
