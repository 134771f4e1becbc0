package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randomizedcoder/go-edge-shell/internal/commands"
	"github.com/randomizedcoder/go-edge-shell/internal/window"
)

const commandPrefix = "/api/v1/commands/"

// Controller is the command surface exposed over HTTP.
type Controller interface {
	StartEdgeRuntime(ctx context.Context) (string, error)
	StopEdgeRuntime(ctx context.Context) error
	Greet(name string) string
	OpenMainWindow() error
	Status() commands.Status
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Addr   string
	Logger *slog.Logger

	// Controller enables the command API when set.
	Controller Controller

	// Gatherer serves /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// Server provides HTTP endpoints for Prometheus metrics, health checks and
// the command API.
type Server struct {
	addr   string
	server *http.Server
	ctrl   Controller
	logger *slog.Logger
}

// NewServer creates a new metrics server.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		addr:   cfg.Addr,
		ctrl:   cfg.Controller,
		logger: logger,
	}

	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Health check endpoint
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/healthz", healthHandler)

	// Ready check (same as health for now)
	mux.HandleFunc("/ready", healthHandler)
	mux.HandleFunc("/readyz", healthHandler)

	if s.ctrl != nil {
		mux.HandleFunc("/api/v1/status", s.handleStatus)
		mux.HandleFunc(commandPrefix+"start_edge_runtime", s.handleStart)
		mux.HandleFunc(commandPrefix+"stop_edge_runtime", s.handleStop)
		mux.HandleFunc(commandPrefix+"greet", s.handleGreet)
		mux.HandleFunc(commandPrefix+"open_main_window", s.handleOpenMainWindow)
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	return s
}

// healthHandler handles health check requests.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// Start listens on the configured address and serves in a goroutine.
// Returns once the listener is bound. Use Shutdown to stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.addr = ln.Addr().String()
	s.logger.Info("metrics_server_starting", "addr", s.addr, "command_api", s.ctrl != nil)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics_server_error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("metrics_server_shutting_down")
	return s.server.Shutdown(ctx)
}

// Addr returns the server address. After Start it is the bound address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// =============================================================================
// Command API
// =============================================================================

type resultBody struct {
	Result string `json:"result"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	result, err := s.ctrl.StartEdgeRuntime(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resultBody{Result: result})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := s.ctrl.StopEdgeRuntime(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resultBody{Result: commands.OK})
}

func (s *Server) handleGreet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	name := r.URL.Query().Get("name")
	s.writeJSON(w, http.StatusOK, resultBody{Result: s.ctrl.Greet(name)})
}

func (s *Server) handleOpenMainWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	if err := s.ctrl.OpenMainWindow(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resultBody{Result: commands.OK})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, method string) {
	w.Header().Set("Allow", method)
	s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{
		Code:    "method_not_allowed",
		Message: fmt.Sprintf("method %s not allowed", method),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("api_write_failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	s.writeJSON(w, status, errorBody{
		Code:    code,
		Message: err.Error(),
		Details: map[string]any{"timestamp": time.Now().UTC()},
	})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return 499, "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, commands.ErrAlreadyRunning):
		return http.StatusConflict, "already_running"
	case errors.Is(err, commands.ErrNotRunning):
		return http.StatusConflict, "not_running"
	case errors.Is(err, commands.ErrResourceResolution):
		return http.StatusUnprocessableEntity, "resource_resolution_failed"
	case errors.Is(err, commands.ErrSpawn):
		return http.StatusBadGateway, "spawn_failed"
	case errors.Is(err, window.ErrUIClosed):
		return http.StatusServiceUnavailable, "ui_closed"
	case errors.Is(err, commands.ErrWindowOperation):
		return http.StatusInternalServerError, "window_operation_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
