// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error variables for common backend failures.
var (
	// ErrNotConfigured indicates the backend URL is not set.
	ErrNotConfigured = errors.New("backend URL not configured")

	// ErrBadRequest indicates the backend rejected the request body.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound indicates the endpoint or model does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("backend server error")

	// ErrResponseTooLarge indicates a body exceeded MaxResponseSize.
	ErrResponseTooLarge = errors.New("response too large")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	kind    error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// Unwrap returns the sentinel matching the status class.
func (e *APIError) Unwrap() error {
	return e.kind
}

// errorBody covers FastAPI's {"detail": ...} and the common {"error": {...}}.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// handleErrorResponse converts an HTTP error response to an *APIError.
func handleErrorResponse(status int, body []byte) error {
	apiErr := &APIError{Status: status, Message: errorMessage(body)}

	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		apiErr.kind = ErrBadRequest
	case status == http.StatusNotFound:
		apiErr.kind = ErrNotFound
	case status == http.StatusTooManyRequests:
		apiErr.kind = ErrRateLimited
	case status >= 500:
		apiErr.kind = ErrServer
	}
	return apiErr
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Error.Message != "" {
			return eb.Error.Message
		}
		if eb.Message != "" {
			return eb.Message
		}
		if len(eb.Detail) > 0 {
			var s string
			if json.Unmarshal(eb.Detail, &s) == nil {
				return s
			}
			return string(eb.Detail)
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
