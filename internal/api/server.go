// Package api serves a small local HTTP API for inspecting and switching
// the emulated devices, plus health and Prometheus endpoints.
//
//	GET  /health
//	GET  /metrics
//	GET  /api/v1/devices
//	GET  /api/v1/devices/{name}/state
//	PUT  /api/v1/devices/{name}/state   {"state": "on"}
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/protocol"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 5 * time.Second
	actionTimeout     = 30 * time.Second
	maxBodyBytes      = 4 << 10
)

// Server is the local control API.
type Server struct {
	handlers []*protocol.Handler
	metrics  http.Handler
	version  string

	httpServer *http.Server
	listener   net.Listener
}

// New creates an API server for the given devices. metrics may be nil.
func New(handlers []*protocol.Handler, metrics http.Handler, version string) *Server {
	s := &Server{
		handlers: handlers,
		metrics:  metrics,
		version:  version,
	}
	s.httpServer = &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Listen binds addr.
func (s *Server) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = l
	logging.Info("API listening", zap.String("address", l.Addr().String()))
	return nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("api: Serve called before Listen")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) lookup(name string) *protocol.Handler {
	for _, h := range s.handlers {
		if strings.EqualFold(h.Name(), name) {
			return h
		}
	}
	return nil
}
