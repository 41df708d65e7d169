// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the librarian TUI.
//
// Colors are lipgloss AdaptiveColors so they follow the terminal background.
// The "theme" setting can pin the background to dark or light instead of
// detecting it.
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	fmt.Println(theme.UserBubble.Render("Where are the atlases?"))
package styles
