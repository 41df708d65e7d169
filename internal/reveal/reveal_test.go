// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/librarian-tui/internal/conversation"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestScheduler(c *fakeClock) *Scheduler {
	return NewScheduler(WithClock(c.Now))
}

const turnA conversation.TurnID = "turn-a"
const turnB conversation.TurnID = "turn-b"

func TestScheduler_PrefixSequence(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(clock)
	s.Begin(turnA, "Hi there")

	var prefixes []string
	for i := 0; i < 20; i++ {
		clock.Advance(DefaultInterval)
		f, ok := s.Step(turnA)
		require.True(t, ok)
		prefixes = append(prefixes, f.Prefix)
		if f.Done {
			break
		}
	}

	assert.Equal(t, []string{"H", "Hi", "Hi ", "Hi t", "Hi th", "Hi the", "Hi ther", "Hi there"}, prefixes)
}

func TestScheduler_GraphemeClusters(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(clock)
	s.Begin(turnA, "a👋🏽é你")

	var prefixes []string
	for {
		clock.Advance(DefaultInterval)
		f, ok := s.Step(turnA)
		require.True(t, ok)
		prefixes = append(prefixes, f.Prefix)
		if f.Done {
			assert.Equal(t, 4, f.Total)
			break
		}
	}

	assert.Equal(t, []string{"a", "a👋🏽", "a👋🏽é", "a👋🏽é你"}, prefixes)
}

func TestScheduler_CoalescesLateTicks(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(clock)
	s.Begin(turnA, "abcdefghij")

	clock.Advance(DefaultInterval)
	f, _ := s.Step(turnA)
	assert.Equal(t, "a", f.Prefix)

	// The program stalled for five intervals.
	clock.Advance(5 * DefaultInterval)
	f, _ = s.Step(turnA)
	assert.Equal(t, "abcdef", f.Prefix)

	// An early tick still moves forward by one.
	f, _ = s.Step(turnA)
	assert.Equal(t, "abcdefg", f.Prefix)

	clock.Advance(time.Hour)
	f, _ = s.Step(turnA)
	assert.Equal(t, "abcdefghij", f.Prefix)
	assert.True(t, f.Done)
}

func TestScheduler_CompletionReportedOnce(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(clock)
	s.Begin(turnA, "ok")

	clock.Advance(time.Second)
	f, ok := s.Step(turnA)
	require.True(t, ok)
	require.True(t, f.Done)
	assert.False(t, s.Active(turnA))

	_, ok = s.Step(turnA)
	assert.False(t, ok, "no further frames after completion")
}

func TestScheduler_EmptyText(t *testing.T) {
	s := newTestScheduler(newFakeClock())
	s.Begin(turnA, "")

	f, ok := s.Step(turnA)
	require.True(t, ok)
	assert.True(t, f.Done)
	assert.Equal(t, "", f.Prefix)
	assert.Zero(t, f.Total)
}

func TestScheduler_CancelIsPerTurn(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(clock)
	s.Begin(turnA, "first")
	s.Begin(turnB, "second")

	assert.True(t, s.Cancel(turnA))
	assert.False(t, s.Cancel(turnA))

	clock.Advance(DefaultInterval)
	_, ok := s.Step(turnA)
	assert.False(t, ok)

	f, ok := s.Step(turnB)
	require.True(t, ok)
	assert.Equal(t, "s", f.Prefix)

	s.CancelAll()
	assert.False(t, s.Active(turnB))
}

func TestScheduler_TickMessages(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(WithClock(clock.Now), WithInterval(10*time.Millisecond))

	cmd := s.Start(turnA, "ab")
	require.NotNil(t, cmd)

	clock.Advance(10 * time.Millisecond)
	f, live, next := s.Tick(TickMsg{Turn: turnA})
	assert.True(t, live)
	assert.Equal(t, "a", f.Prefix)
	assert.NotNil(t, next)

	clock.Advance(10 * time.Millisecond)
	f, live, next = s.Tick(TickMsg{Turn: turnA})
	assert.True(t, live)
	assert.True(t, f.Done)
	assert.Nil(t, next, "no tick is re-armed after completion")

	_, live, next = s.Tick(TickMsg{Turn: turnA})
	assert.False(t, live)
	assert.Nil(t, next)
}

func TestScheduler_StaleTickAfterCancel(t *testing.T) {
	s := newTestScheduler(newFakeClock())
	s.Start(turnA, "hello")
	s.Cancel(turnA)

	_, live, next := s.Tick(TickMsg{Turn: turnA})
	assert.False(t, live)
	assert.Nil(t, next)
}

func TestScheduler_Run(t *testing.T) {
	s := NewScheduler(WithInterval(time.Millisecond))

	var frames []Frame
	err := s.Run(context.Background(), turnA, "héllo", func(f Frame) {
		frames = append(frames, f)
	})

	require.NoError(t, err)
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	assert.True(t, last.Done)
	assert.Equal(t, "héllo", last.Prefix)
	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].Shown, frames[i-1].Shown, "prefix grows monotonically")
	}
}

func TestScheduler_RunCancelled(t *testing.T) {
	s := NewScheduler(WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Run(ctx, turnA, "a long reply that will not finish", func(f Frame) {
		if f.Shown >= 3 {
			cancel()
		}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Active(turnA))
}
