package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/toprank/pkg/logger"
)

// Server serves the ranking API and the run stream
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	httpServer *http.Server
	hub        *Hub
	logger     *logger.Logger
}

// New creates a server listening on addr (":8080")
func New(addr string, router http.Handler, hub *Hub, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			// 온디맨드 랭킹은 시세 조회가 길어질 수 있음
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		hub:    hub,
		logger: log.Module("api"),
	}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving requests; returns nil after Shutdown
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// Shutdown drains HTTP requests then disconnects websocket subscribers
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.WithField("ws_clients", s.hub.Clients()).Info("Shutting down API server")

	err := s.httpServer.Shutdown(ctx)
	s.hub.Close()
	if err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return nil
}
