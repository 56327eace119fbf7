package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/landywei/agent-co/internal/roster"
	"github.com/landywei/agent-co/internal/store"
	"github.com/landywei/agent-co/internal/trigger"
)

// SessionStatter exposes per-agent gateway dispatch tallies for the status
// view. The trigger engine implements it.
type SessionStatter interface {
	SessionStats() map[string]trigger.SessionStat
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	channels *store.ChannelStore
	tasks    *store.TaskStore
	roster   *roster.Roster
	hub      *Hub
	sessions SessionStatter
	logger   *slog.Logger

	stateDir       string
	staleThreshold time.Duration
	checkInterval  time.Duration
	version        string
	startedAt      time.Time

	methods map[string]rpcHandler
}

// Config holds all dependencies and settings for creating a Server.
type Config struct {
	Channels *store.ChannelStore
	Tasks    *store.TaskStore
	Roster   *roster.Roster
	Hub      *Hub
	Sessions SessionStatter
	Logger   *slog.Logger

	StateDir       string
	StaleThreshold time.Duration
	CheckInterval  time.Duration

	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Version      string
}

// Server is the company core's HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// New creates a server with all routes configured.
func New(cfg Config) *Server {
	h := &Handlers{
		channels:       cfg.Channels,
		tasks:          cfg.Tasks,
		roster:         cfg.Roster,
		hub:            cfg.Hub,
		sessions:       cfg.Sessions,
		logger:         cfg.Logger,
		stateDir:       cfg.StateDir,
		staleThreshold: cfg.StaleThreshold,
		checkInterval:  cfg.CheckInterval,
		version:        cfg.Version,
		startedAt:      time.Now(),
	}
	h.registerMethods()

	mux := http.NewServeMux()

	// The RPC surface: one POST endpoint, dispatch on the method name.
	mux.HandleFunc("POST /rpc", h.handleRPC)

	// Read-only dashboard views.
	mux.HandleFunc("GET /agents-status.json", h.handleAgentsStatus)
	mux.HandleFunc("GET /tasks-data.json", h.handleTasksData)
	mux.HandleFunc("GET /_ls/", h.handleListDir)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Live event stream.
	mux.HandleFunc("GET /ws", cfg.Hub.HandleWS)

	// Whitelisted state files, registered last so API routes win.
	mux.HandleFunc("/", h.handleStatic)

	// Middleware chain (outermost executes first):
	// request ID -> tracing -> logging -> recovery -> handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
