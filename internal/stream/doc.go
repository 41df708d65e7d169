// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the backend's event-tagged text stream into typed
// event records.
//
// The wire format is a sequence of frames separated by a blank line. Each
// frame carries one "event:" line naming the event type and one "data:" line
// carrying a JSON object. All other lines are ignored.
//
// # Key Types
//
//   - Event: tagged record (Type + Payload) produced for every complete frame
//   - Decoder: incremental framer with a carry-over buffer for partial frames
//   - FrameError: a frame whose payload could not be parsed
//   - StreamError: the underlying reader failed before the stream ended
//
// # Usage
//
//	err := stream.Read(ctx, resp.Body, func(ev stream.Event) error {
//	    fmt.Println(ev.Type, ev.Chunk())
//	    return nil
//	})
//
// The decoder knows nothing about event semantics. Interpreting tool,
// emotion and llm_* events is the conversation package's job.
package stream
