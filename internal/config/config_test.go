// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"LIBRARIAN_BACKEND_URL",
	"LIBRARIAN_MODEL",
	"LIBRARIAN_TEMPERATURE",
	"LIBRARIAN_MAX_TOKENS",
	"LIBRARIAN_SYSTEM_PROMPT",
	"LIBRARIAN_LOG_LEVEL",
	"LIBRARIAN_REVEAL_INTERVAL",
}

// isolate points the config dir at a temp dir and blanks every override.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	SetDir(dir)
	t.Cleanup(func() { SetDir("") })
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "", cfg.Generation.SystemPrompt)
	assert.Equal(t, 0.7, cfg.Generation.Temperature)
	assert.Equal(t, 1024, cfg.Generation.MaxTokens)
	assert.Equal(t, 30*time.Millisecond, cfg.Reveal.Interval.Duration)
	assert.Equal(t, 128, cfg.FollowUp.MaxTokens)
	assert.True(t, cfg.FollowUp.Enabled)
	assert.Len(t, cfg.UI.Starters, 4)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Generation, cfg.Generation)
}

func TestLoad_TOML(t *testing.T) {
	dir := isolate(t)
	content := `
[generation]
system_prompt = "  Be brief.  "
temperature = 0.2
max_tokens = 300

[reveal]
interval = "10ms"

[followup]
enabled = false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", cfg.Generation.SystemPrompt)
	assert.Equal(t, 0.2, cfg.Generation.Temperature)
	assert.Equal(t, 300, cfg.Generation.MaxTokens)
	assert.Equal(t, 10*time.Millisecond, cfg.Reveal.Interval.Duration)
	assert.False(t, cfg.FollowUp.Enabled)
	// Untouched sections keep defaults.
	assert.Equal(t, Default().Backend.URL, cfg.Backend.URL)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	content := `{"generation": {"model": "openai:gpt-4o", "temperature": 0.5}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o", cfg.Generation.Model)
	assert.Equal(t, 0.5, cfg.Generation.Temperature)
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[generation\n"), 0600))

	_, err := Load()
	assert.Error(t, err)
}

func TestNormalize_Clamps(t *testing.T) {
	tests := []struct {
		name      string
		temp      float64
		maxTokens int
		wantTemp  float64
		wantMax   int
	}{
		{"in range", 0.4, 200, 0.4, 200},
		{"temperature too high", 1.8, 200, 1, 200},
		{"temperature negative", -0.3, 200, 0, 200},
		{"zero max tokens", 0.4, 0, 0.4, 1},
		{"negative max tokens", 0.4, -50, 0.4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Generation.Temperature = tt.temp
			cfg.Generation.MaxTokens = tt.maxTokens
			cfg.Normalize()
			assert.Equal(t, tt.wantTemp, cfg.Generation.Temperature)
			assert.Equal(t, tt.wantMax, cfg.Generation.MaxTokens)
		})
	}
}

func TestLoad_ClampsOutOfRangeFile(t *testing.T) {
	dir := isolate(t)
	content := "[generation]\ntemperature = 3.0\nmax_tokens = 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Generation.Temperature)
	assert.Equal(t, 1, cfg.Generation.MaxTokens)
}

func TestValidate_Errors(t *testing.T) {
	cfg := Default()
	cfg.Backend.URL = "not a url"
	cfg.UI.Theme = "neon"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "backend.url")
	assert.Contains(t, fields, "ui.theme")
	assert.Contains(t, fields, "log.level")
}

func TestValidate_RejectsBadPaths(t *testing.T) {
	cfg := Default()
	cfg.Backend.StreamPath = "v2/react/stream"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.stream_path")
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("LIBRARIAN_BACKEND_URL", "http://agent.internal:9000/")
	t.Setenv("LIBRARIAN_TEMPERATURE", "0.1")
	t.Setenv("LIBRARIAN_MAX_TOKENS", "64")
	t.Setenv("LIBRARIAN_REVEAL_INTERVAL", "5ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://agent.internal:9000", cfg.Backend.URL)
	assert.Equal(t, 0.1, cfg.Generation.Temperature)
	assert.Equal(t, 64, cfg.Generation.MaxTokens)
	assert.Equal(t, 5*time.Millisecond, cfg.Reveal.Interval.Duration)
}

func TestApplyEnvOverrides_InvalidIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("LIBRARIAN_MAX_TOKENS", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Generation.MaxTokens)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("LIBRARIAN_MODEL=openai:gpt-4.1\n"), 0600))
	// Unset so godotenv can fill it; t.Setenv restores afterwards.
	t.Setenv("LIBRARIAN_MODEL", "")
	require.NoError(t, os.Unsetenv("LIBRARIAN_MODEL"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "openai:gpt-4.1", os.Getenv("LIBRARIAN_MODEL"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("generation.temperature", "0.25"))
	require.NoError(t, cfg.Set("generation.max_tokens", "512"))
	require.NoError(t, cfg.Set("generation.system_prompt", "You are a librarian."))
	require.NoError(t, cfg.Set("followup.enabled", "false"))
	require.NoError(t, cfg.Set("reveal.interval", "45ms"))
	require.NoError(t, cfg.Set("ui.starters", "one | two"))

	v, err := cfg.Get("generation.temperature")
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)
	assert.Equal(t, 512, cfg.Generation.MaxTokens)
	assert.Equal(t, "You are a librarian.", cfg.Generation.SystemPrompt)
	assert.False(t, cfg.FollowUp.Enabled)
	assert.Equal(t, 45*time.Millisecond, cfg.Reveal.Interval.Duration)
	assert.Equal(t, []string{"one", "two"}, cfg.UI.Starters)
}

func TestGetSet_Errors(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"empty key", "", "x"},
		{"unknown section", "nope.value", "x"},
		{"unknown field", "generation.nope", "x"},
		{"section as value", "generation", "x"},
		{"bad int", "generation.max_tokens", "many"},
		{"bad float", "generation.temperature", "warm"},
		{"bad bool", "followup.enabled", "maybe"},
		{"bad duration", "reveal.interval", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, cfg.Set(tt.key, tt.value))
		})
	}
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	assert.Contains(t, keys, "generation.system_prompt")
	assert.Contains(t, keys, "reveal.interval")
	assert.Contains(t, keys, "backend.url")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestSaveAndReload_TOML(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.Generation.SystemPrompt = "Answer like a reference librarian."
	cfg.Reveal.Interval = Duration{20 * time.Millisecond}

	require.NoError(t, Save(cfg))

	path := filepath.Join(dir, "config.toml")
	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg.Generation, loaded.Generation)
	assert.Equal(t, cfg.Reveal, loaded.Reveal)
	assert.Equal(t, cfg.UI.Starters, loaded.UI.Starters)
}

func TestSave_KeepsJSONFormat(t *testing.T) {
	dir := isolate(t)
	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{}`), 0600))

	cfg := Default()
	cfg.Generation.MaxTokens = 77
	require.NoError(t, Save(cfg))

	loaded, err := LoadFromPath(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 77, loaded.Generation.MaxTokens)
	_, err = os.Stat(filepath.Join(dir, "config.toml"))
	assert.True(t, os.IsNotExist(err))
}

func TestClone_IsDeep(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.UI.Starters[0] = "changed"
	clone.Generation.MaxTokens = 1

	assert.NotEqual(t, "changed", cfg.UI.Starters[0])
	assert.Equal(t, 1024, cfg.Generation.MaxTokens)
}

func TestLLMConfig(t *testing.T) {
	g := GenerationConfig{Model: "openai:gpt-4o-mini", Temperature: 0.3, MaxTokens: 99}
	llm := g.LLMConfig()
	assert.Equal(t, "openai:gpt-4o-mini", llm.Model)
	assert.Equal(t, 0.3, llm.Temperature)
	assert.Equal(t, 99, llm.MaxTokens)
}

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal() can be
// safely called concurrently.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	w, err := NewWatcher(path, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Watch())
	defer w.Close()

	cfg := Default()
	cfg.Generation.MaxTokens = 333
	require.NoError(t, SaveTOML(cfg, path))

	select {
	case got := <-w.Updates():
		require.NotNil(t, got)
		assert.Equal(t, 333, got.Generation.MaxTokens)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload delivered")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	w, err := NewWatcher(path, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Watch())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	select {
	case got := <-w.Updates():
		t.Fatalf("unexpected reload: %+v", got)
	case <-time.After(150 * time.Millisecond):
	}

	require.NoError(t, w.Close())
	_, open := <-w.Updates()
	assert.False(t, open)
}
