// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"io"
	"iter"
)

// readSize is the size of each read from the underlying body.
const readSize = 4 * 1024

// Handler is called for each decoded event. Returning an error stops Read.
type Handler func(ev Event) error

// ErrStop may be returned by a Handler to end Read early without error.
var ErrStop = errors.New("stop reading")

// Read pulls segments from r, decodes them and calls fn for every event in
// arrival order. It returns nil when r reaches EOF, ctx.Err() when cancelled,
// and a *StreamError when r fails.
func Read(ctx context.Context, r io.Reader, fn Handler, opts ...Option) error {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	dec := NewDecoder(o.onError)
	buf := make([]byte, readSize)
	delivered := 0

	deliver := func(events []Event) error {
		for _, ev := range events {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ev); err != nil {
				return err
			}
			delivered++
		}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			if derr := deliver(dec.Feed(buf[:n])); derr != nil {
				return stopErr(derr)
			}
		}
		if err == io.EOF {
			return stopErr(deliver(dec.Flush()))
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &StreamError{Delivered: delivered, Err: err}
		}
	}
}

// Events returns a lazy sequence over the events in r. Iteration ends at EOF
// or on the first error, which is yielded with a zero Event.
func Events(ctx context.Context, r io.Reader, opts ...Option) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		err := Read(ctx, r, func(ev Event) error {
			if !yield(ev, nil) {
				return ErrStop
			}
			return nil
		}, opts...)
		if err != nil {
			yield(Event{}, err)
		}
	}
}

func stopErr(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

// Option configures Read.
type Option func(*options)

type options struct {
	onError ErrorHandler
}

// WithErrorHandler routes non-fatal frame errors to fn.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(o *options) {
		o.onError = fn
	}
}
