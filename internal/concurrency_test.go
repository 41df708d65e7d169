// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal contains race detection tests that span packages.
//
// Run with: go test -race -v ./internal/...
package internal

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/librarian-tui/internal/backend"
	"github.com/jeranaias/librarian-tui/internal/config"
	"github.com/jeranaias/librarian-tui/internal/reveal"
	"github.com/jeranaias/librarian-tui/internal/server"
	"github.com/jeranaias/librarian-tui/internal/session"
)

// =============================================================================
// TEST CONFIGURATION
// =============================================================================

const (
	// Number of concurrent goroutines for race tests
	raceConcurrency = 50
	// Number of iterations per goroutine
	raceIterations = 50
	// Timeout for race tests
	raceTimeout = 30 * time.Second
)

// =============================================================================
// CONFIG CONCURRENCY TESTS
// =============================================================================

// TestConcurrency_ConfigGlobalAccess reads the global config while other
// goroutines replace it.
func TestConcurrency_ConfigGlobalAccess(t *testing.T) {
	t.Setenv("LIBRARIAN_HOME", t.TempDir())
	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				if ctx.Err() != nil {
					return
				}
				cfg := config.Global()
				if !assert.NotNil(t, cfg) {
					return
				}
				_ = cfg.Generation.Model
				_ = cfg.Reveal.Interval
				_ = cfg.Backend.URL
			}
		}()
	}

	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < raceIterations/10; j++ {
				if ctx.Err() != nil {
					return
				}
				cfg := config.Default()
				cfg.Generation.Model = fmt.Sprintf("model-%d", idx)
				config.SetGlobal(cfg)
			}
		}(i)
	}

	wg.Wait()
}

// TestConcurrency_ConfigReload reloads from disk while readers run.
func TestConcurrency_ConfigReload(t *testing.T) {
	t.Setenv("LIBRARIAN_HOME", t.TempDir())
	config.ResetGlobalForTesting()
	t.Cleanup(config.ResetGlobalForTesting)
	require.NoError(t, config.Save(config.Default()))

	var wg sync.WaitGroup
	var reloads atomic.Int64

	for i := 0; i < raceConcurrency/2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations/5; j++ {
				if _, err := config.ReloadGlobal(); err == nil {
					reloads.Add(1)
				}
			}
		}()
	}
	for i := 0; i < raceConcurrency/2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				_ = config.Global().Generation.Temperature
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, int64(raceConcurrency/2*(raceIterations/5)), reloads.Load())
}

// =============================================================================
// SESSION CONCURRENCY TESTS
// =============================================================================

func runnerSettings() session.Settings {
	return session.Settings{
		LLM:               backend.LLMConfig{Model: "openai:gpt-4o-mini", Temperature: 0.7, MaxTokens: 1024},
		ThreadID:          "thread-frontend",
		FollowUps:         true,
		FollowUpMaxTokens: 128,
		FollowUpThreadID:  "thread-suggestions",
		RevealInterval:    time.Millisecond,
	}
}

// TestConcurrency_IndependentSessions runs many sessions against one
// backend. Each session sees only its own reply.
func TestConcurrency_IndependentSessions(t *testing.T) {
	ts := httptest.NewServer(server.NewServer("", server.WithChunkDelay(0)).Handler())
	defer ts.Close()

	const sessions = 10
	var wg sync.WaitGroup
	errs := make(chan error, sessions)

	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			r := session.NewRunner(backend.NewClient(ts.URL), runnerSettings())
			question := fmt.Sprintf("question number %d", idx)

			res, err := r.Ask(context.Background(), question)
			if err != nil {
				errs <- err
				return
			}
			if !assert.Contains(t, res.Reply, question) {
				return
			}
			assert.Len(t, res.FollowUps, 3)
			assert.Len(t, r.Messages(), 2)
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("session failed: %v", err)
	}
}

// TestConcurrency_RunnerObservers reads a runner's state while a turn is
// running and replaces its settings mid-turn.
func TestConcurrency_RunnerObservers(t *testing.T) {
	ts := httptest.NewServer(server.NewServer("", server.WithChunkDelay(time.Millisecond)).Handler())
	defer ts.Close()

	r := session.NewRunner(backend.NewClient(ts.URL), runnerSettings())
	var frames atomic.Int64
	r.SetHooks(session.Hooks{Reveal: func(reveal.Frame) { frames.Add(1) }})

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				_ = r.Messages()
				_ = r.FollowUps()
				r.SetSettings(runnerSettings())
			}
		}()
	}

	res, err := r.Ask(ctx, "Tell me about the reading room")
	close(done)
	wg.Wait()

	require.NoError(t, err)
	assert.NotEmpty(t, res.Reply)
	assert.Positive(t, frames.Load())
}
