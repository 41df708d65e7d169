// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/librarian-tui/internal/config"
	"github.com/jeranaias/librarian-tui/internal/server"
)

// runIn executes the command tree against the config file at path.
func runIn(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		config.SetDir("")
		config.ResetGlobalForTesting()
	})

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", path, "--log-level", "disabled"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runIn(t, filepath.Join(t.TempDir(), "config.toml"), args...)
}

func standIn(t *testing.T, opts ...server.Option) string {
	t.Helper()
	opts = append([]server.Option{server.WithChunkDelay(0)}, opts...)
	ts := httptest.NewServer(server.NewServer("", opts...).Handler())
	t.Cleanup(ts.Close)
	t.Setenv("LIBRARIAN_REVEAL_INTERVAL", "1ms")
	return ts.URL
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "librarian version "+Version)
}

func TestTools(t *testing.T) {
	out, err := run(t, "tools")
	require.NoError(t, err)
	for _, name := range []string{"ncl_search", "wikipedia", "open_weather_map"} {
		assert.Contains(t, out, name)
	}

	verbose, err := run(t, "tools", "-v")
	require.NoError(t, err)
	assert.Greater(t, len(verbose), len(out))
}

func TestConfig_Path(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	out, err := runIn(t, path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))
}

func TestConfig_SetThenGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := runIn(t, path, "config", "set", "generation.temperature", "0.3")
	require.NoError(t, err)
	assert.Equal(t, "generation.temperature = 0.3", strings.TrimSpace(out))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "temperature = 0.3")

	out, err = runIn(t, path, "config", "get", "generation.temperature")
	require.NoError(t, err)
	assert.Equal(t, "0.3", strings.TrimSpace(out))
}

func TestConfig_SetJoinsWordsAndClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	_, err := runIn(t, path, "config", "set", "generation.system_prompt", "You", "are", "kind.")
	require.NoError(t, err)
	out, err := runIn(t, path, "config", "get", "generation.system_prompt")
	require.NoError(t, err)
	assert.Equal(t, "You are kind.", strings.TrimSpace(out))

	out, err = runIn(t, path, "config", "set", "generation.temperature", "7")
	require.NoError(t, err)
	assert.Equal(t, "generation.temperature = 1", strings.TrimSpace(out))
}

func TestConfig_SetDoesNotPersistOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("LIBRARIAN_MODEL", "from-env")

	_, err := runIn(t, path, "--model", "from-flag", "config", "set", "generation.temperature", "0.5")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env")
	assert.NotContains(t, string(data), "from-flag")
}

func TestConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"config", "get", "generation.nope"}},
		{"section", []string{"config", "get", "generation"}},
		{"bad value", []string{"config", "set", "generation.max_tokens", "many"}},
		{"invalid theme", []string{"config", "set", "ui.theme", "neon"}},
		{"missing value", []string{"config", "set", "generation.model"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestConfig_ShowJSON(t *testing.T) {
	out, err := run(t, "--model", "llama3", "config", "show", "--json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "llama3", cfg.Generation.Model)
}

func TestConfig_ShowTOML(t *testing.T) {
	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[generation]")
	assert.Contains(t, out, "[reveal]")
}

func TestConfig_Keys(t *testing.T) {
	out, err := run(t, "config", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "generation.temperature\n")
	assert.Contains(t, out, "reveal.interval\n")
}

func TestInvalidLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Cleanup(func() {
		config.SetDir("")
		config.ResetGlobalForTesting()
	})
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "--log-level", "loud", "version"})
	assert.Error(t, cmd.Execute())
}

func TestModels(t *testing.T) {
	url := standIn(t, server.WithModels([]string{"llama3", "gemma2"}))

	out, err := run(t, "--backend", url, "--model", "gemma2", "models")
	require.NoError(t, err)
	assert.Contains(t, out, "  llama3\n")
	assert.Contains(t, out, "* gemma2\n")
}

func TestAsk_Plain(t *testing.T) {
	url := standIn(t)

	out, err := run(t, "--backend", url, "ask", "Any", "new", "mysteries?")
	require.NoError(t, err)
	assert.Contains(t, out, `You asked about "Any new mysteries?".`)
	assert.Contains(t, out, "offline stand-in backend")
	assert.Contains(t, out, "You might also ask:")
	assert.Contains(t, out, "  2. Which books would you recommend on this?")
}

func TestAsk_ToolAndNoFollowUps(t *testing.T) {
	url := standIn(t)

	out, err := run(t, "--backend", url, "ask", "--no-follow-ups", "Find a novel about whales")
	require.NoError(t, err)
	assert.Contains(t, out, "Using tool: ncl_search")
	assert.NotContains(t, out, "You might also ask:")
}

func TestAsk_JSON(t *testing.T) {
	url := standIn(t)

	out, err := run(t, "--backend", url, "ask", "--json", "What is the weather today?")
	require.NoError(t, err)

	var res askResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "What is the weather today?", res.Question)
	assert.Contains(t, res.Reply, "offline stand-in backend")
	assert.Contains(t, res.Tools, "open_weather_map")
	assert.Len(t, res.FollowUps, 3)
	assert.Empty(t, res.Error)
}

func TestAsk_BackendDown(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	path := filepath.Join(t.TempDir(), "config.toml")
	out, err := runIn(t, path, "config", "set", "backend.max_retries", "1")
	require.NoError(t, err, out)

	out, err = runIn(t, path, "--backend", url, "ask", "hello")
	assert.Error(t, err)
	assert.NotContains(t, out, "offline stand-in backend")
}

func TestAsk_RequiresQuestion(t *testing.T) {
	_, err := run(t, "ask")
	assert.Error(t, err)
}

// =============================================================================
// CHAT SESSION
// =============================================================================

func newTestChat(t *testing.T, url string) (*chatSession, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.URL = url
	cfg.Reveal.Interval = config.Duration{Duration: 1}
	var out bytes.Buffer
	return newChatSession(&out, cfg), &out
}

func TestChat_TurnAndNumberedFollowUp(t *testing.T) {
	url := standIn(t)
	s, out := newTestChat(t, url)

	quit, err := s.handle(context.Background(), "Tell me about libraries")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "offline stand-in backend")
	require.Len(t, s.followUps, 3)

	out.Reset()
	_, err = s.handle(context.Background(), "2")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "> Which books would you recommend on this?")
	assert.Contains(t, out.String(), `You asked about "Which books would you recommend`)
	assert.GreaterOrEqual(t, len(s.runner.Messages()), 4)
}

func TestChat_Commands(t *testing.T) {
	s, out := newTestChat(t, "http://127.0.0.1:1")

	quit, err := s.handle(context.Background(), "/model gemma2")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, "gemma2", s.cfg.Generation.Model)

	_, err = s.handle(context.Background(), "/tools")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "wikipedia")

	_, err = s.handle(context.Background(), "/bogus")
	assert.Error(t, err)

	s.followUps = []string{"one"}
	_, err = s.handle(context.Background(), "/clear")
	require.NoError(t, err)
	assert.Empty(t, s.followUps)

	for _, line := range []string{"/quit", "exit", "QUIT", "/q"} {
		quit, err := s.handle(context.Background(), line)
		require.NoError(t, err)
		assert.True(t, quit, line)
	}
}

func TestChat_BlankLineIgnored(t *testing.T) {
	s, out := newTestChat(t, "http://127.0.0.1:1")
	quit, err := s.handle(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Empty(t, out.String())
}

func TestChat_Export(t *testing.T) {
	url := standIn(t)
	s, out := newTestChat(t, url)
	dir := t.TempDir()
	s.exportOpts.OutputDir = dir

	_, err := s.handle(context.Background(), "/export")
	assert.Error(t, err, "nothing to export yet")

	_, err = s.handle(context.Background(), "Any poetry?")
	require.NoError(t, err)
	_, err = s.handle(context.Background(), "/export md")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Saved to "+dir)

	files, err := filepath.Glob(filepath.Join(dir, "librarian_Any_poetry-_*.md"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
