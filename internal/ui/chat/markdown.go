// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
)

// markdownRenderer renders finished replies with glamour. Output is cached
// per message and dropped whenever the wrap width changes.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdownRenderer(dark bool) *markdownRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	return &markdownRenderer{style: style, cache: make(map[string]string)}
}

// Render returns content as styled terminal text, or content unchanged if
// glamour fails.
func (r *markdownRenderer) Render(id, content string, width int) string {
	if width < 20 {
		width = 20
	}
	if width != r.width || r.renderer == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Warn().Err(err).Msg("markdown renderer unavailable")
			return content
		}
		r.renderer = tr
		r.width = width
		r.cache = make(map[string]string)
	}

	if out, ok := r.cache[id]; ok {
		return out
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		log.Warn().Err(err).Msg("markdown render failed")
		return content
	}
	out = strings.Trim(out, "\n")
	r.cache[id] = out
	return out
}
