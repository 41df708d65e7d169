// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal exposes a finalized reply a little at a time, at a fixed
// cadence that is independent of network timing.
//
// Each reveal is a task keyed by the turn that owns it. Cancelling a turn is
// a single lookup: later ticks for that turn find no task and do nothing.
// Text advances one grapheme cluster per tick, so a prefix never splits a
// user-perceived character. A late tick catches up to where the elapsed time
// says the reveal should be instead of falling further behind.
package reveal

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rivo/uniseg"

	"github.com/jeranaias/librarian-tui/internal/conversation"
)

// DefaultInterval is the time between revealed characters.
const DefaultInterval = 30 * time.Millisecond

// Frame is the state of a reveal after one tick.
type Frame struct {
	Prefix string
	Shown  int
	Total  int
	Done   bool
}

// TickMsg is delivered to the bubbletea program for each scheduled tick.
type TickMsg struct {
	Turn conversation.TurnID
	Time time.Time
}

// task is one in-progress reveal.
type task struct {
	text   string
	bounds []int // byte offset after each grapheme cluster
	pos    int
	start  time.Time
}

func newTask(text string, start time.Time) *task {
	var bounds []int
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		_, to := g.Positions()
		bounds = append(bounds, to)
	}
	return &task{text: text, bounds: bounds, start: start}
}

// advance moves at least one cluster forward, or further if the clock says
// ticks were missed.
func (t *task) advance(now time.Time, interval time.Duration) Frame {
	total := len(t.bounds)
	target := t.pos + 1
	if interval > 0 {
		if k := int(now.Sub(t.start) / interval); k > target {
			target = k
		}
	}
	if target > total {
		target = total
	}
	t.pos = target

	prefix := ""
	if t.pos > 0 {
		prefix = t.text[:t.bounds[t.pos-1]]
	}
	return Frame{Prefix: prefix, Shown: t.pos, Total: total, Done: t.pos >= total}
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Scheduler owns the reveal tasks. It is not safe for concurrent use; it
// lives in the same execution context as the conversation store.
type Scheduler struct {
	interval time.Duration
	now      func() time.Time
	tasks    map[conversation.TurnID]*task
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the per-character interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a scheduler with DefaultInterval.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: DefaultInterval,
		now:      time.Now,
		tasks:    make(map[conversation.TurnID]*task),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the per-character interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// SetInterval changes the interval for reveals started afterwards.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Begin registers a reveal of text for turn id, replacing any task the turn
// already had.
func (s *Scheduler) Begin(id conversation.TurnID, text string) {
	s.tasks[id] = newTask(text, s.now())
}

// Step advances the reveal for id. ok is false when id has no task, which is
// the case after Cancel or after the reveal completed. The task is removed
// once a Done frame has been returned, so completion is reported once.
func (s *Scheduler) Step(id conversation.TurnID) (Frame, bool) {
	t, ok := s.tasks[id]
	if !ok {
		return Frame{}, false
	}
	f := t.advance(s.now(), s.interval)
	if f.Done {
		delete(s.tasks, id)
	}
	return f, true
}

// Cancel stops the reveal for id. It reports whether a task was running.
func (s *Scheduler) Cancel(id conversation.TurnID) bool {
	_, ok := s.tasks[id]
	delete(s.tasks, id)
	return ok
}

// CancelAll stops every reveal, as when the view is torn down.
func (s *Scheduler) CancelAll() {
	clear(s.tasks)
}

// Active reports whether id has a running reveal.
func (s *Scheduler) Active(id conversation.TurnID) bool {
	_, ok := s.tasks[id]
	return ok
}

// =============================================================================
// BUBBLETEA DRIVER
// =============================================================================

// Start begins a reveal and returns the command for its first tick.
func (s *Scheduler) Start(id conversation.TurnID, text string) tea.Cmd {
	s.Begin(id, text)
	return s.tickCmd(id)
}

// Tick handles a TickMsg. It returns the new frame, whether the tick was
// live, and the command for the next tick (nil once done or when stale).
func (s *Scheduler) Tick(msg TickMsg) (Frame, bool, tea.Cmd) {
	f, ok := s.Step(msg.Turn)
	if !ok {
		return Frame{}, false, nil
	}
	if f.Done {
		return f, true, nil
	}
	return f, true, s.tickCmd(msg.Turn)
}

func (s *Scheduler) tickCmd(id conversation.TurnID) tea.Cmd {
	return tea.Tick(s.interval, func(t time.Time) tea.Msg {
		return TickMsg{Turn: id, Time: t}
	})
}

// =============================================================================
// BLOCKING DRIVER
// =============================================================================

// Run reveals text for id on the calling goroutine, calling fn for every
// frame. It returns when the reveal is done, ctx is cancelled, or the task
// is cancelled from fn.
func (s *Scheduler) Run(ctx context.Context, id conversation.TurnID, text string, fn func(Frame)) error {
	s.Begin(id, text)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Cancel(id)
			return ctx.Err()
		case <-ticker.C:
		}
		if err := ctx.Err(); err != nil {
			s.Cancel(id)
			return err
		}
		f, ok := s.Step(id)
		if !ok {
			return nil
		}
		fn(f)
		if f.Done {
			return nil
		}
	}
}
