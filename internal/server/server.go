// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/librarian-tui/internal/backend"
	"github.com/jeranaias/librarian-tui/internal/tools"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is where the real backend listens in a local deployment.
	DefaultAddr = ":8000"

	// MaxRequestBodySize is the maximum size for a request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// DefaultChunkDelay spaces llm_delta events.
	DefaultChunkDelay = 40 * time.Millisecond

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the stand-in agent backend.
type Server struct {
	addr   string
	router chi.Router
	server *http.Server

	agent    Agent
	models   []string
	tools    *tools.Registry
	validate *validator.Validate
	delay    time.Duration

	started  time.Time
	requests atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithAgent replaces the ScriptedAgent.
func WithAgent(a Agent) Option {
	return func(s *Server) {
		s.agent = a
	}
}

// WithModels replaces the advertised model list.
func WithModels(models []string) Option {
	return func(s *Server) {
		s.models = append([]string(nil), models...)
	}
}

// WithChunkDelay sets the pause between streamed events. Zero disables it.
func WithChunkDelay(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// NewServer creates a server for addr (DefaultAddr when empty).
func NewServer(addr string, opts ...Option) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	registry := tools.NewRegistry()
	s := &Server{
		addr:     addr,
		agent:    NewScriptedAgent(registry),
		models:   append([]string(nil), backend.DefaultModels...),
		tools:    registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		delay:    DefaultChunkDelay,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware())
	r.Use(s.countRequests)

	r.Get("/health", s.handleHealth)
	r.Route("/v2/react", func(api chi.Router) {
		api.With(middleware.AllowContentType("application/json")).Post("/stream", s.handleStream)
		api.With(middleware.AllowContentType("application/json")).Post("/run", s.handleRun)
		api.Get("/models", s.handleModels)
		api.Get("/tools", s.handleTools)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	s.router = r
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

// ============================================================================
// REQUEST DECODING
// ============================================================================

// decodeRequest reads and validates an AgentRequest. On failure it has
// already written the error response.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (backend.AgentRequest, bool) {
	var req backend.AgentRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return req, false
		}
		log.Debug().Err(err).Msg("invalid request body")
		writeError(w, http.StatusBadRequest, "invalid request format")
		return req, false
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return req, false
	}
	return req, true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Namespace(), fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range (%s %s)", fe.Namespace(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag())
	}
}

// ============================================================================
// HANDLERS
// ============================================================================

// handleStream handles POST /v2/react/stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	sse, err := newEventWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	script := s.agent.Respond(r.Context(), req)
	logger := log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
	logger.Debug().Int("events", len(script.Events)).Msg("streaming reply")

	for i, ev := range script.Events {
		if i > 0 && s.delay > 0 {
			select {
			case <-r.Context().Done():
				logger.Info().Msg("client disconnected")
				return
			case <-time.After(s.delay):
			}
		}
		if err := sse.Send(ev.Type, ev.Payload(req)); err != nil {
			logger.Warn().Err(err).Msg("failed to write event")
			return
		}
	}
}

// handleRun handles POST /v2/react/run.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	reply := s.agent.Run(r.Context(), req)
	writeJSON(w, http.StatusOK, backend.AgentResponse{
		ThreadID:  req.ThreadID,
		LLMConfig: req.LLMConfig,
		Messages:  []backend.Message{backend.NewAssistantMessage(reply)},
	})
}

// handleModels handles GET /v2/react/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, backend.ModelsResponse{Models: s.models})
}

// ToolInfo is one entry of the /v2/react/tools response.
type ToolInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ArgsSchema  []ToolArg `json:"args_schema"`
}

// ToolArg describes one tool argument.
type ToolArg struct {
	Arg         string `json:"arg"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// handleTools handles GET /v2/react/tools.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	all := s.tools.All()
	out := make([]ToolInfo, 0, len(all))
	for _, t := range all {
		info := ToolInfo{Name: t.Name, Description: t.Description, ArgsSchema: []ToolArg{}}
		for _, p := range t.Schema.Parameters {
			info.ArgsSchema = append(info.ArgsSchema, ToolArg{
				Arg: p.Name, Type: p.Type, Description: p.Description, Required: p.Required,
			})
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Requests int64  `json:"requests"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  Version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Requests: s.requests.Load(),
	})
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Str("version", Version).Msg("server starting")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

// writeError writes a JSON error response in the shape the client parses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"code":    status,
		},
	})
}
