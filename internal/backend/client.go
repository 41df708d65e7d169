// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/librarian-tui/internal/stream"
)

// Configuration constants for the backend API.
const (
	// DefaultURL is where the backend listens in a local deployment.
	DefaultURL = "http://localhost:8000"

	// Default endpoint paths.
	DefaultStreamPath = "/v2/react/stream"
	DefaultRunPath    = "/v2/react/run"
	DefaultModelsPath = "/v2/react/models"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of attempts for transient errors.
	DefaultMaxRetries = 3

	// DefaultRequestsPerSecond is the outbound rate limit.
	DefaultRequestsPerSecond = 5

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second

	// MaxResponseSize is the maximum allowed non-streaming response body.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "librarian-tui/0.1.0"
)

var (
	// PERFORMANCE: Connection pooling shared by every client instance.
	sharedTransport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	// sharedStreamingClient has no timeout; streams are bounded by context.
	sharedStreamingClient = &http.Client{Transport: sharedTransport}
)

// Client talks to the agent backend.
type Client struct {
	baseURL    string
	streamPath string
	runPath    string
	modelsPath string

	httpClient   *http.Client
	streamClient *http.Client
	maxRetries   int
	limiter      *rate.Limiter
	backoff      func(attempt int) time.Duration
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		streamPath:   DefaultStreamPath,
		runPath:      DefaultRunPath,
		modelsPath:   DefaultModelsPath,
		httpClient:   &http.Client{Transport: sharedTransport, Timeout: DefaultTimeout},
		streamClient: sharedStreamingClient,
		maxRetries:   DefaultMaxRetries,
		limiter:      rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultRequestsPerSecond),
		backoff:      calculateBackoff,
	}
}

// WithPaths overrides the endpoint paths. Empty values keep the current path.
func (c *Client) WithPaths(streamPath, runPath, modelsPath string) *Client {
	if streamPath != "" {
		c.streamPath = streamPath
	}
	if runPath != "" {
		c.runPath = runPath
	}
	if modelsPath != "" {
		c.modelsPath = modelsPath
	}
	return c
}

// WithTimeout sets the timeout for non-streaming requests.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: timeout}
	}
	return c
}

// WithMaxRetries sets the number of attempts for transient errors.
func (c *Client) WithMaxRetries(n int) *Client {
	if n > 0 {
		c.maxRetries = n
	}
	return c
}

// WithRateLimit sets the outbound request rate. Zero or negative disables it.
func (c *Client) WithRateLimit(perSecond float64) *Client {
	if perSecond <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// WithHTTPClient replaces both underlying HTTP clients (used by tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamClient = hc
	return c
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsConfigured reports whether a backend URL is set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// =============================================================================
// STREAMING
// =============================================================================

// Open posts req to the stream endpoint and returns the response body once the
// backend has accepted it. Only failures that mean the turn never started are
// retried: connection errors, 429 and 503. Other 5xx responses are returned
// as is, since the agent may already have run tools. The caller must close
// the body.
func (c *Client) Open(ctx context.Context, req AgentRequest) (io.ReadCloser, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp *http.Response
	err = c.retryWhen(ctx, isResendable, func() error {
		httpReq, err := c.newRequest(ctx, http.MethodPost, c.streamPath, body)
		if err != nil {
			return err
		}
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Cache-Control", "no-cache")

		r, err := c.streamClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if r.StatusCode != http.StatusOK {
			errBody, _ := io.ReadAll(io.LimitReader(r.Body, 64*1024))
			r.Body.Close()
			return handleErrorResponse(r.StatusCode, errBody)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("thread_id", req.ThreadID).
		Int("messages", len(req.Messages)).
		Str("model", req.LLMConfig.Model).
		Msg("stream opened")
	return resp.Body, nil
}

// Stream opens the stream and delivers every decoded event to fn in arrival
// order. Frame errors are logged and skipped. It is a convenience for
// one-shot callers; code that must observe the moment the backend accepts
// the request calls Open and stream.Read itself.
func (c *Client) Stream(ctx context.Context, req AgentRequest, fn stream.Handler) error {
	body, err := c.Open(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()
	return stream.Read(ctx, body, fn)
}

// =============================================================================
// NON-STREAMING
// =============================================================================

// Run posts req to the run endpoint and decodes the single JSON response.
func (c *Client) Run(ctx context.Context, req AgentRequest) (*AgentResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out AgentResponse
	err = c.retry(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, c.runPath, body, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Models lists the models configured on the backend.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	var out ModelsResponse
	err := c.retry(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, c.modelsPath, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return out.Models, nil
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend request")
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// RETRY LOGIC WITH EXPONENTIAL BACKOFF
// =============================================================================

// retry runs fn up to maxRetries times, waiting on the rate limiter before
// each attempt and backing off between retryable failures.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	return c.retryWhen(ctx, isRetryable, fn)
}

// retryWhen runs fn until it succeeds, returns an error retryable rejects,
// or maxRetries attempts are used.
func (c *Client) retryWhen(ctx context.Context, retryable func(error) bool, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("retrying backend request")
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

// isResendable reports whether a failed stream request can be sent again
// without repeating work on the backend.
func isResendable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && errors.Is(err, ErrServer) {
		return apiErr.Status == http.StatusServiceUnavailable
	}
	return isRetryable(err)
}

// calculateBackoff returns the delay before the given retry attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
