// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
)

// ErrFrameTooLarge is reported when a frame is longer than MaxFrameSize.
// The oversized frame is discarded.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// FrameError describes a single frame that was dropped because its payload
// could not be decoded. It never aborts the stream.
type FrameError struct {
	Type string
	Raw  string
	Err  error
}

// Error implements the error interface.
func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed %q frame: %v", e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *FrameError) Unwrap() error {
	return e.Err
}

// StreamError is returned by Read when the underlying reader fails,
// recording how many events had been delivered before the failure.
type StreamError struct {
	Delivered int
	Err       error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Delivered > 0 {
		return fmt.Sprintf("stream error (after %d events): %v", e.Delivered, e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}
