// Package server implements the HTTP and WebSocket server for the relay.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tyrowin/gochat-relay/internal/config"
	"github.com/Tyrowin/gochat-relay/internal/logger"
	"github.com/Tyrowin/gochat-relay/internal/relay"
)

// Server bundles the relay, its hub and the HTTP server for one process.
type Server struct {
	cfg   config.Config
	log   logger.Logger
	relay *relay.Relay
	hub   *Hub
	http  *http.Server

	stopJanitor context.CancelFunc
}

// New builds the relay and the HTTP stack from cfg.
func New(cfg config.Config, log logger.Logger) *Server {
	gin.SetMode(cfg.GinMode)

	r := relay.New(log,
		relay.WithRetention(cfg.Retention.Window),
		relay.WithEvictionChance(cfg.Retention.EvictionChance),
	)
	hub := NewHub(r, log)
	handlers := NewHandlers(hub, r, cfg, log)

	return &Server{
		cfg:   cfg,
		log:   log,
		relay: r,
		hub:   hub,
		http:  CreateServer(cfg.Port, SetupRoutes(handlers)),
	}
}

// Relay returns the chat core.
func (s *Server) Relay() *relay.Relay {
	return s.relay
}

// Hub returns the connection hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the gin engine serving every route.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start launches the hub and the retention janitor. It does not listen.
func (s *Server) Start() {
	go s.hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	go s.relay.RunJanitor(ctx, s.cfg.Retention.EvictionInterval)

	s.log.Info("Hub started and ready to manage WebSocket connections")
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.log.Info("Server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections, closes every client and waits up to
// the configured timeout.
func (s *Server) Shutdown() error {
	timeout := s.cfg.ShutdownTimeout
	httpErr := ShutdownServer(s.http, timeout, s.log)

	if s.stopJanitor != nil {
		s.stopJanitor()
	}
	hubErr := s.hub.Shutdown(timeout)

	return errors.Join(httpErr, hubErr)
}
