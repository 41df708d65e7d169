// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package followup asks the backend for follow-up questions about a reply
// and parses whatever shape the answer comes back in.
package followup

import (
	"encoding/json"
	"regexp"
	"strings"
)

// MaxQuestions is the most follow-up questions ever returned.
const MaxQuestions = 3

var (
	// bracketPattern matches from the first '[' to the last ']'.
	bracketPattern = regexp.MustCompile(`\[[\s\S]*\]`)

	// splitPattern separates fallback fragments on newlines, commas and the
	// ideographic full stop.
	splitPattern = regexp.MustCompile(`\n|,|。`)
)

// Parse extracts up to MaxQuestions questions from text. It tries, in order:
// the whole text as a JSON array, the first bracketed substring as a JSON
// array, and finally splitting the raw text into fragments.
func Parse(text string) []string {
	if items, ok := parseArray(text); ok {
		return items
	}
	if match := bracketPattern.FindString(text); match != "" {
		if items, ok := parseArray(match); ok {
			return items
		}
	}
	return splitFragments(text)
}

func parseArray(text string) ([]string, bool) {
	var raw []json.RawMessage
	// A bare null decodes into a nil slice without error.
	if err := json.Unmarshal([]byte(text), &raw); err != nil || raw == nil {
		return nil, false
	}
	out := make([]string, 0, MaxQuestions)
	for _, item := range raw {
		if len(out) == MaxQuestions {
			break
		}
		if s := itemString(item); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// itemString renders one array element. Strings are unquoted; other JSON
// values keep their compact encoding. null becomes "".
func itemString(item json.RawMessage) string {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return strings.TrimSpace(s)
	}
	trimmed := strings.TrimSpace(string(item))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}

func splitFragments(text string) []string {
	out := make([]string, 0, MaxQuestions)
	for _, part := range splitPattern.Split(text, -1) {
		if len(out) == MaxQuestions {
			break
		}
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
