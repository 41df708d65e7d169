// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package avatar maps the backend's emotion tokens to the librarian's face.
package avatar

import (
	"strings"
	"sync"
)

// Expression is one face the avatar can show.
type Expression struct {
	Token  string
	Face   string
	Label  string
	Motion Motion
}

// Motion is the idle or reactive animation group paired with an expression.
type Motion int

const (
	MotionIdle Motion = iota
	MotionReact
)

// Neutral is shown before any emotion arrives and for unknown tokens.
var Neutral = Expression{Token: "neutral", Face: "(・_・)", Label: "listening", Motion: MotionIdle}

var expressions = map[string]Expression{
	"neutral":   Neutral,
	"happy":     {Token: "happy", Face: "(＾▽＾)", Label: "happy", Motion: MotionReact},
	"angry":     {Token: "angry", Face: "(｀Д´)", Label: "annoyed", Motion: MotionReact},
	"anger":     {Token: "anger", Face: "(╬ Ò﹏Ó)", Label: "angry", Motion: MotionReact},
	"sad":       {Token: "sad", Face: "(╥_╥)", Label: "sad", Motion: MotionReact},
	"surprised": {Token: "surprised", Face: "(°o°)", Label: "surprised", Motion: MotionReact},
	"shy":       {Token: "shy", Face: "(⁄ ⁄•⁄ω⁄•⁄ ⁄)", Label: "shy", Motion: MotionReact},
	"relaxed":   {Token: "relaxed", Face: "(￣ー￣)", Label: "relaxed", Motion: MotionIdle},
}

// Lookup returns the expression for token. The second result is false when
// the token is unknown and Neutral was substituted.
func Lookup(token string) (Expression, bool) {
	e, ok := expressions[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return Neutral, false
	}
	return e, true
}

// Tokens returns the recognized emotion tokens.
func Tokens() []string {
	return []string{"neutral", "happy", "angry", "anger", "sad", "surprised", "shy", "relaxed"}
}

// Avatar tracks the current expression. It is safe for concurrent use;
// SetEmotion can be passed as a conversation.EmotionSink.
type Avatar struct {
	mu      sync.RWMutex
	current Expression
	raw     string
}

// New returns an avatar showing Neutral.
func New() *Avatar {
	return &Avatar{current: Neutral}
}

// SetEmotion records a raw emotion token.
func (a *Avatar) SetEmotion(token string) {
	e, _ := Lookup(token)
	a.mu.Lock()
	a.current = e
	a.raw = token
	a.mu.Unlock()
}

// Current returns the expression being shown.
func (a *Avatar) Current() Expression {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Raw returns the last token received, verbatim.
func (a *Avatar) Raw() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.raw
}

// Reset returns to Neutral.
func (a *Avatar) Reset() {
	a.mu.Lock()
	a.current = Neutral
	a.raw = ""
	a.mu.Unlock()
}
