package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stagehand/internal/config"
	"stagehand/internal/frames"
	"stagehand/internal/logging"
	"stagehand/internal/metrics"
	"stagehand/internal/pubsub"
	"stagehand/internal/roster"
	"stagehand/internal/store"
)

// StatusStore reports record store diagnostics for /api/status.
type StatusStore interface {
	CheckHealth(ctx context.Context) (store.DatabaseHealth, error)
	ListEditLocks(ctx context.Context) ([]store.EditLock, error)
}

// CacheStats reports the number of cached snapshots.
type CacheStats interface {
	Len() (int, error)
}

// Deps groups the services the server routes to.
type Deps struct {
	Frames  *frames.Service
	Roster  *roster.Service
	Hub     *pubsub.Hub
	Store   StatusStore
	Cache   CacheStats
	Metrics *metrics.Metrics
}

// Server is the HTTP front end.
type Server struct {
	cfg       *config.Config
	deps      Deps
	logger    *slog.Logger
	startedAt time.Time
	upgrader  websocket.Upgrader
	handler   http.Handler

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener

	closing   chan struct{}
	closeOnce sync.Once
}

// New builds a Server and its routes. logger may be nil.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server requires config")
	}
	if deps.Frames == nil || deps.Roster == nil || deps.Hub == nil {
		return nil, errors.New("server requires frames, roster, and notifier")
	}
	s := &Server{
		cfg:       cfg,
		deps:      deps,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		startedAt: time.Now().UTC(),
		closing:   make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/position-frame", s.handleFrameAt)
	mux.HandleFunc("GET /api/position-frame-ids", s.handleFrameIDs)
	mux.HandleFunc("GET /api/position-frames", s.handleListFrames)
	mux.HandleFunc("POST /api/position-frames", s.handleAddFrame)
	mux.HandleFunc("PATCH /api/position-frames", s.handleEditFrame)
	mux.HandleFunc("DELETE /api/position-frames", s.handleDeleteFrame)
	mux.HandleFunc("GET /api/position-frames/{id}", s.handleFrameDetail)
	mux.HandleFunc("PUT /api/position-frames/{id}/positions", s.handleEditPositions)
	mux.HandleFunc("GET /api/position-map", s.handlePositionMap)

	mux.HandleFunc("GET /api/performers", s.handleListPerformers)
	mux.HandleFunc("GET /api/performers/{name}", s.handleGetPerformer)
	mux.HandleFunc("POST /api/performers", s.handleAddPerformer)
	mux.HandleFunc("DELETE /api/performers", s.handleDeletePerformer)

	mux.HandleFunc("POST /api/parts", s.handleAddPart)
	mux.HandleFunc("PUT /api/parts", s.handleEditPart)
	mux.HandleFunc("DELETE /api/parts", s.handleDeletePart)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/subscriptions/{topic}", s.handleSubscription)

	if s.cfg.Server.MetricsEnabled && s.deps.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	return s.withRequestContext(mux)
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr reports the bound listener address once Start has run.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the listener. Serving runs until Serve returns.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("api server already started")
	}
	listener, err := net.Listen("tcp", s.cfg.Server.APIBind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.APIBind, err)
	}
	s.listener = listener
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: time.Duration(s.cfg.Server.ReadHeaderTimeout) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	return nil
}

// Serve blocks serving requests until ctx ends, then shuts the server down.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	srv, listener := s.srv, s.listener
	s.mu.Unlock()
	if srv == nil {
		return errors.New("api server not started")
	}

	s.logger.Info("api server listening", logging.String("bind", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			logging.ErrorWithContext(s.logger, "api server error", "server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check api_bind and port availability"),
			)
			return fmt.Errorf("serve api: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	return s.shutdown()
}

func (s *Server) shutdown() error {
	s.closeOnce.Do(func() { close(s.closing) })

	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	timeout := time.Duration(s.cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server shutdown incomplete", logging.Error(err))
		return fmt.Errorf("shutdown api: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// Close stops the server immediately, including a listener that never
// served.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.closing) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return nil
	}
	err := s.srv.Close()
	_ = s.listener.Close()
	return err
}
