// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// STREAMING: Incremental framing with carry-over for partial frames

// =============================================================================
// CONSTANTS
// =============================================================================

// MaxFrameSize bounds a single frame (1MB), delimiter excluded. A larger frame
// is dropped and reported once as ErrFrameTooLarge, however it was split.
const MaxFrameSize = 1 << 20

var frameDelimiter = []byte("\n\n")

// ErrorHandler receives non-fatal decoding problems.
type ErrorHandler func(err error)

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns arbitrarily split stream segments into complete events.
// It is not safe for concurrent use; one Decoder belongs to one stream.
type Decoder struct {
	carry    []byte
	skipping bool
	onError  ErrorHandler
}

// NewDecoder creates a decoder. Parse failures go to onError; when onError is
// nil they are logged at warn level.
func NewDecoder(onError ErrorHandler) *Decoder {
	if onError == nil {
		onError = func(err error) {
			log.Warn().Err(err).Msg("dropping stream frame")
		}
	}
	return &Decoder{onError: onError}
}

// Feed appends a segment to the carry-over buffer and returns every event
// completed by it, in order. The trailing partial frame is retained.
func (d *Decoder) Feed(segment []byte) []Event {
	// Carriage returns are stripped byte by byte so that a CRLF split across
	// two segments is handled the same as one that is not.
	for _, b := range segment {
		if b != '\r' {
			d.carry = append(d.carry, b)
		}
	}

	var events []Event
	for {
		idx := bytes.Index(d.carry, frameDelimiter)
		if idx < 0 {
			break
		}
		frame := d.carry[:idx]
		switch {
		case d.skipping:
			d.skipping = false
		case idx > MaxFrameSize:
			d.tooLarge(frame)
		default:
			if ev, ok := d.decodeFrame(frame); ok {
				events = append(events, ev)
			}
		}
		d.carry = d.carry[idx+len(frameDelimiter):]
	}

	// A trailing '\n' may be the first half of a delimiter, so it is kept
	// and never counted toward the frame.
	if len(d.carry) > MaxFrameSize+1 {
		if !d.skipping {
			d.tooLarge(d.carry)
			d.skipping = true
		}
		if d.carry[len(d.carry)-1] == '\n' {
			d.carry = d.carry[len(d.carry)-1:]
		} else {
			d.carry = nil
		}
	}

	// Compact so the backing array does not grow without bound.
	if len(d.carry) == 0 {
		d.carry = nil
	} else {
		d.carry = append([]byte(nil), d.carry...)
	}
	return events
}

// Flush decodes whatever remains in the carry-over buffer as a final frame.
// It is called once the underlying stream has ended.
func (d *Decoder) Flush() []Event {
	rest := d.carry
	skipping := d.skipping
	d.carry = nil
	d.skipping = false
	if skipping || len(bytes.TrimSpace(rest)) == 0 {
		return nil
	}
	if len(bytes.TrimRight(rest, "\n")) > MaxFrameSize {
		d.tooLarge(rest)
		return nil
	}
	if ev, ok := d.decodeFrame(rest); ok {
		return []Event{ev}
	}
	return nil
}

// Pending returns the number of buffered bytes not yet framed.
func (d *Decoder) Pending() int {
	return len(d.carry)
}

func (d *Decoder) tooLarge(frame []byte) {
	d.onError(&FrameError{Raw: truncate(string(frame), 120), Err: ErrFrameTooLarge})
}

// decodeFrame extracts the type and data lines of one frame. Frames missing
// either line are dropped silently.
func (d *Decoder) decodeFrame(frame []byte) (Event, bool) {
	var (
		typeLine, dataLine string
		haveType, haveData bool
	)
	for _, line := range strings.Split(string(frame), "\n") {
		switch {
		case !haveType && strings.HasPrefix(line, "event:"):
			typeLine = strings.TrimSpace(line[len("event:"):])
			haveType = true
		case !haveData && strings.HasPrefix(line, "data:"):
			dataLine = strings.TrimSpace(line[len("data:"):])
			haveData = true
		}
	}
	if !haveType || !haveData {
		log.Debug().Int("bytes", len(frame)).Msg("skipping incomplete frame")
		return Event{}, false
	}

	var payload Payload
	if err := json.Unmarshal([]byte(dataLine), &payload); err != nil {
		d.onError(&FrameError{Type: typeLine, Raw: truncate(dataLine, 120), Err: err})
		return Event{}, false
	}

	return Event{
		Type:    ParseEventType(typeLine),
		Name:    strings.ToLower(typeLine),
		Payload: payload,
		Raw:     json.RawMessage(dataLine),
	}, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
