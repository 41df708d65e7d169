// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/librarian-tui/internal/backend"
	"github.com/jeranaias/librarian-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete librarian configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend service endpoints and transport policy
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Generation is the persisted generation config sent with every turn
	Generation GenerationConfig `toml:"generation" json:"generation"`

	// Reveal cadence
	Reveal RevealConfig `toml:"reveal" json:"reveal"`

	// Follow-up question generation
	FollowUp FollowUpConfig `toml:"followup" json:"followup"`

	// UI preferences
	UI UIConfig `toml:"ui" json:"ui"`

	// Log output
	Log LogConfig `toml:"log" json:"log"`
}

// BackendConfig locates the agent service.
type BackendConfig struct {
	URL               string   `toml:"url" json:"url" validate:"required,url"`
	StreamPath        string   `toml:"stream_path" json:"stream_path" validate:"required,startswith=/"`
	RunPath           string   `toml:"run_path" json:"run_path" validate:"required,startswith=/"`
	ModelsPath        string   `toml:"models_path" json:"models_path" validate:"required,startswith=/"`
	ThreadID          string   `toml:"thread_id" json:"thread_id" validate:"required"`
	Timeout           Duration `toml:"timeout" json:"timeout"`
	MaxRetries        int      `toml:"max_retries" json:"max_retries" validate:"gte=1,lte=10"`
	RequestsPerSecond float64  `toml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
}

// GenerationConfig holds the user-editable generation settings.
type GenerationConfig struct {
	SystemPrompt string  `toml:"system_prompt" json:"system_prompt"`
	Temperature  float64 `toml:"temperature" json:"temperature" validate:"gte=0,lte=1"`
	MaxTokens    int     `toml:"max_tokens" json:"max_tokens" validate:"gte=1"`
	Model        string  `toml:"model" json:"model" validate:"required"`
}

// LLMConfig returns the wire form of the sampling settings.
func (g GenerationConfig) LLMConfig() backend.LLMConfig {
	return backend.LLMConfig{
		Model:       g.Model,
		Temperature: g.Temperature,
		MaxTokens:   g.MaxTokens,
	}
}

// RevealConfig controls the typing cadence.
type RevealConfig struct {
	Interval Duration `toml:"interval" json:"interval"`
}

// FollowUpConfig controls follow-up question generation.
type FollowUpConfig struct {
	Enabled   bool   `toml:"enabled" json:"enabled"`
	MaxTokens int    `toml:"max_tokens" json:"max_tokens" validate:"gte=1"`
	ThreadID  string `toml:"thread_id" json:"thread_id" validate:"required"`
}

// UIConfig holds display preferences.
type UIConfig struct {
	Theme      string   `toml:"theme" json:"theme" validate:"oneof=auto dark light"`
	Markdown   bool     `toml:"markdown" json:"markdown"`
	ShowAvatar bool     `toml:"show_avatar" json:"show_avatar"`
	Starters   []string `toml:"starters" json:"starters" validate:"dive,required"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level" validate:"oneof=trace debug info warn error disabled"`
	Path  string `toml:"path" json:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// CurrentVersion is written into saved files.
const CurrentVersion = "1"

// DefaultStarters are shown when the conversation is empty.
var DefaultStarters = []string{
	"How can I keep my blood sugar under control? Any diet books you recommend?",
	"Please find me some material on preventing dementia or brain exercises.",
	"What is the weather in Taipei today, and what is the date?",
	"I'm feeling down today. Could you suggest some relaxing music?",
}

// Default returns a Config with all built-in defaults.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Backend: BackendConfig{
			URL:               backend.DefaultURL,
			StreamPath:        backend.DefaultStreamPath,
			RunPath:           backend.DefaultRunPath,
			ModelsPath:        backend.DefaultModelsPath,
			ThreadID:          "thread-frontend",
			Timeout:           Duration{backend.DefaultTimeout},
			MaxRetries:        backend.DefaultMaxRetries,
			RequestsPerSecond: backend.DefaultRequestsPerSecond,
		},
		Generation: GenerationConfig{
			SystemPrompt: "",
			Temperature:  0.7,
			MaxTokens:    1024,
			Model:        backend.DefaultModels[0],
		},
		Reveal: RevealConfig{
			Interval: Duration{30 * time.Millisecond},
		},
		FollowUp: FollowUpConfig{
			Enabled:   true,
			MaxTokens: 128,
			ThreadID:  "thread-suggestions",
		},
		UI: UIConfig{
			Theme:      "auto",
			Markdown:   true,
			ShowAvatar: true,
			Starters:   append([]string(nil), DefaultStarters...),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// dirOverride replaces the home-based config dir (set by --config and tests).
var dirOverride string

// SetDir points ConfigDir at dir. An empty dir restores the default.
func SetDir(dir string) {
	dirOverride = dir
}

// ConfigDir returns the librarian configuration directory path.
func ConfigDir() (string, error) {
	if dirOverride != "" {
		return dirOverride, nil
	}
	if dir := os.Getenv("LIBRARIAN_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".librarian"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ActivePath returns the file Load would read, or the TOML path if neither
// file exists yet.
func ActivePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ActivePath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file, on top of the
// defaults, and validates the result.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// finish applies env overrides, normalization and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the active config file.
func Save(cfg *Config) error {
	path, err := ActivePath()
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# librarian configuration file\n")
	b.WriteString("# Generated by librarian - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, []byte(b.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize clamps user-editable values into range: temperature to [0,1] and
// max_tokens to at least 1. Empty fields get their defaults.
func (c *Config) Normalize() {
	d := Default()

	if math.IsNaN(c.Generation.Temperature) {
		c.Generation.Temperature = 0
	}
	c.Generation.Temperature = math.Min(1, math.Max(0, c.Generation.Temperature))
	if c.Generation.MaxTokens < 1 {
		c.Generation.MaxTokens = 1
	}
	c.Generation.SystemPrompt = strings.TrimSpace(c.Generation.SystemPrompt)
	if c.Generation.Model == "" {
		c.Generation.Model = d.Generation.Model
	}

	c.Backend.URL = strings.TrimRight(strings.TrimSpace(c.Backend.URL), "/")
	if c.Backend.ThreadID == "" {
		c.Backend.ThreadID = d.Backend.ThreadID
	}
	if c.Backend.Timeout.Duration <= 0 {
		c.Backend.Timeout = d.Backend.Timeout
	}
	if c.Backend.MaxRetries == 0 {
		c.Backend.MaxRetries = d.Backend.MaxRetries
	}

	if c.Reveal.Interval.Duration <= 0 {
		c.Reveal.Interval = d.Reveal.Interval
	}
	if c.FollowUp.MaxTokens < 1 {
		c.FollowUp.MaxTokens = d.FollowUp.MaxTokens
	}
	if c.FollowUp.ThreadID == "" {
		c.FollowUp.ThreadID = d.FollowUp.ThreadID
	}

	c.UI.Theme = strings.ToLower(c.UI.Theme)
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Version == "" {
		c.Version = CurrentVersion
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies LIBRARIAN_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	overrides := map[string]string{
		"LIBRARIAN_BACKEND_URL":     "backend.url",
		"LIBRARIAN_MODEL":           "generation.model",
		"LIBRARIAN_TEMPERATURE":     "generation.temperature",
		"LIBRARIAN_MAX_TOKENS":      "generation.max_tokens",
		"LIBRARIAN_SYSTEM_PROMPT":   "generation.system_prompt",
		"LIBRARIAN_LOG_LEVEL":       "log.level",
		"LIBRARIAN_REVEAL_INTERVAL": "reveal.interval",
	}
	for env, key := range overrides {
		value, ok := os.LookupEnv(env)
		if !ok || value == "" {
			continue
		}
		if err := c.Set(key, value); err != nil {
			log.Warn().Err(err).Str("env", env).Msg("ignoring invalid environment override")
		}
	}
}

// =============================================================================
// CLONE
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.UI.Starters = append([]string(nil), c.UI.Starters...)
	return &clone
}

// String returns the configuration as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			log.Warn().Err(err).Msg("using default configuration")
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	SetGlobal(cfg)
	return cfg, nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
