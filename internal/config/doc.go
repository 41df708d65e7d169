// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for librarian.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - GenerationConfig: system prompt, temperature, max tokens and model
//   - Watcher: reloads the config file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (LIBRARIAN_*), including a .env file in the
//     working directory
//   - ~/.librarian/config.toml
//   - ~/.librarian/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := backend.NewClient(cfg.Backend.URL)
//
// Values are read and written with dot notation by the CLI:
//
//	cfg.Set("generation.temperature", "0.3")
//	v, _ := cfg.Get("generation.temperature")
package config
