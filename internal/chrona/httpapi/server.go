// Package httpapi exposes the command endpoint and the health surface.
//
// There is exactly one write path: POST /agent/command with a bearer token.
// Identity comes from the token's user_id claim; there is no session state.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/chrona-app/chrona/common/trace"
	"github.com/chrona-app/chrona/common/version"
	"github.com/chrona-app/chrona/internal/chrona/agent"
	"github.com/chrona-app/chrona/internal/chrona/store"
)

// maxCommandBytes bounds the request body; commands are single sentences.
const maxCommandBytes = 16 << 10

// commandProcessor is the minimal interface the server needs from the
// dispatcher.
type commandProcessor interface {
	ProcessCommand(ctx context.Context, userID int64, text string) *agent.Response
}

// statusProvider is the minimal interface the status endpoint needs from
// the store.
type statusProvider interface {
	Stats(ctx context.Context) (store.Stats, error)
}

// Config holds options for creating a Server.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// JWTSecret signs and verifies bearer tokens. Required.
	JWTSecret string
}

// Server handles the Chrona HTTP routes.
type Server struct {
	addr      string
	jwtSecret string
	commands  commandProcessor
	stats     statusProvider
	startedAt time.Time
	log       *slog.Logger
	mux       *http.ServeMux
	server    *http.Server
}

// commandRequest is the body of POST /agent/command.
type commandRequest struct {
	Command string `json:"command"`
}

// commandResponse wraps the dispatcher envelope.
type commandResponse struct {
	Response *agent.Response `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

type statusResponse struct {
	Status     string      `json:"status"`
	Version    string      `json:"version"`
	Commit     string      `json:"commit"`
	BuildTime  string      `json:"build_time"`
	StartedAt  time.Time   `json:"started_at"`
	UptimeSecs float64     `json:"uptime_seconds"`
	Stats      store.Stats `json:"stats"`
}

// New creates and configures the server (does not start it).
func New(cfg Config, commands commandProcessor, stats statusProvider, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()
	s := &Server{
		addr:      cfg.Addr,
		jwtSecret: cfg.JWTSecret,
		commands:  commands,
		stats:     stats,
		startedAt: time.Now(),
		log:       log,
		mux:       mux,
	}
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/agent/command", s.handleCommand)
	return s
}

// ServeHTTP implements http.Handler so the server can be tested without a
// live network listener. Every request gets a request ID for log
// correlation.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("X-Request-Id")
	if id == "" {
		id = trace.GenerateID()
	}
	w.Header().Set("X-Request-Id", id)
	s.mux.ServeHTTP(w, r.WithContext(trace.WithRequestID(r.Context(), id)))
}

// Start begins listening in the background. Blocks until the listener is
// established so the caller knows the port is open before returning.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", s.addr, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.log.Info("http server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Warn("http server shutdown error", "error", err)
	}
}

// handleCommand handles POST /agent/command.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(s.log, w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	userID, err := s.authenticate(r)
	if err != nil {
		s.log.Warn("rejected command request",
			"request_id", trace.FromContext(r.Context()), "error", err)
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(s.log, w, http.StatusUnauthorized, errorResponse{Error: "invalid or missing bearer token"})
		return
	}

	var req commandRequest
	body := http.MaxBytesReader(w, r.Body, maxCommandBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(s.log, w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Command == "" {
		writeJSON(s.log, w, http.StatusBadRequest, errorResponse{Error: "command must not be empty"})
		return
	}

	resp := s.commands.ProcessCommand(r.Context(), userID, req.Command)
	s.log.Info("processed command",
		"request_id", trace.FromContext(r.Context()),
		"user_id", userID,
		"command_type", resp.CommandType,
		"success", resp.Success)
	writeJSON(s.log, w, http.StatusOK, commandResponse{Response: resp})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.log, w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.Version,
		Commit:  version.GitCommit,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var stats store.Stats
	if s.stats != nil {
		if got, err := s.stats.Stats(r.Context()); err == nil {
			stats = got
		}
	}

	writeJSON(s.log, w, http.StatusOK, statusResponse{
		Status:     "ok",
		Version:    version.Version,
		Commit:     version.GitCommit,
		BuildTime:  version.BuildTime,
		StartedAt:  s.startedAt,
		UptimeSecs: time.Since(s.startedAt).Seconds(),
		Stats:      stats,
	})
}

// writeJSON serialises v as JSON and writes it with the given status code.
func writeJSON(log *slog.Logger, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to encode JSON response", "error", err)
	}
}
