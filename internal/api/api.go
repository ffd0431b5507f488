// Package api provides HTTP handlers and the main API server logic for CareFlow.
//
// It exposes RESTful endpoints for feeding chat responses through the
// navigation orchestrator, inspecting and acting on per-session navigation
// state, and a WebSocket channel that pushes route commands and state
// snapshots to the hosting page.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dhruvj7/careflow/internal/assistant"
	"github.com/dhruvj7/careflow/internal/flow"
	"github.com/dhruvj7/careflow/internal/models"
	"github.com/dhruvj7/careflow/internal/store"
)

// Server configuration defaults
const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Assistant is the classification backend the messages endpoint proxies to.
type Assistant interface {
	Chat(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatResult, error)
}

// Opts holds configuration for the API server.
type Opts struct {
	Addr      string
	Store     store.Store
	Assistant Assistant
}

// Option configures Opts.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithStore sets the persistence backend.
func WithStore(s store.Store) Option {
	return func(o *Opts) { o.Store = s }
}

// WithAssistant sets the classification backend client.
func WithAssistant(a Assistant) Option {
	return func(o *Opts) { o.Assistant = a }
}

// Server hosts the CareFlow HTTP and WebSocket surface. It owns the registry
// of live per-session orchestrators.
type Server struct {
	addr      string
	store     store.Store
	assistant Assistant

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer creates a server based on provided options.
func NewServer(opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Store == nil {
		cfg.Store = store.NewInMemoryStore()
	}
	if cfg.Assistant == nil {
		cfg.Assistant = assistant.NewClient()
	}
	return &Server{
		addr:      cfg.Addr,
		store:     cfg.Store,
		assistant: cfg.Assistant,
		sessions:  make(map[string]*session),
	}
}

// Handler builds the chi router for the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.healthHandler)
	r.Get("/ws/sessions/{sessionID}", s.wsHandler)

	r.Post("/api/v1/sessions", s.sessionCreateHandler)

	r.Route("/api/v1/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/messages", s.messageHandler)
		r.Post("/responses", s.responseHandler)
		r.Get("/navigation", s.navigationStateHandler)
		r.Post("/navigation/{action}", s.navigationActionHandler)
		r.Post("/route-events", s.routeEventHandler)
		r.Put("/automation", s.automationHandler)
		r.Get("/doctors", s.doctorsHandler)
	})

	return r
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully and tears down every live session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: CareFlow API listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server.Run: graceful shutdown failed", "error", err)
	}
	s.teardownSessions()
	return nil
}

func (s *Server) teardownSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.teardown()
		delete(s.sessions, id)
	}
}

// validateSessionID enforces the session id constraints shared by every
// endpoint.
func validateSessionID(id string) error {
	if id == "" {
		return models.ErrEmptySessionID
	}
	if len(id) > models.MaxSessionIDLength {
		return models.ErrSessionIDTooLong
	}
	return nil
}

// getOrCreateSession returns the live session for id, constructing its
// orchestrator on first use.
func (s *Server) getOrCreateSession(id string) (*session, error) {
	if err := validateSessionID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	sess := newSession(id, s.store)
	s.sessions[id] = sess
	slog.Debug("Server.getOrCreateSession: session created", "sessionID", id)
	return sess, nil
}

var _ flow.Settings = store.Store(nil)
