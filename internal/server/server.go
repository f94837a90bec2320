package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"github.com/neuhausf/fauxmo/internal/protocol"
	"go.uber.org/zap"
)

const (
	// DefaultReadTimeout bounds reading one request from a controller.
	DefaultReadTimeout = 10 * time.Second
	// DefaultWriteTimeout bounds writing the response.
	DefaultWriteTimeout = 10 * time.Second
	// DefaultActionTimeout bounds one plugin call made for a request.
	DefaultActionTimeout = 30 * time.Second
	// DefaultMaxBodyBytes caps the request body; SOAP bodies are small.
	DefaultMaxBodyBytes = 64 << 10
)

// Config holds the listener configuration for one device
type Config struct {
	Host string
	Port int // 0 picks a free port

	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	ActionTimeout time.Duration // bound on a single plugin call
	MaxBodyBytes  int64
}

func (c *Config) setDefaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = DefaultActionTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

// Server is the HTTP responder for one emulated device. Every connection
// carries exactly one request and is closed after the response.
type Server struct {
	config   Config
	handler  *protocol.Handler
	listener net.Listener

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
}

// New creates a server for the device behind h.
func New(config Config, h *protocol.Handler) *Server {
	config.setDefaults()
	return &Server{
		config:      config,
		handler:     h,
		activeConns: make(map[string]net.Conn),
	}
}

// Listen binds the device port. When the configured port is 0 the bound
// port is written back to the plugin so discovery advertises it.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s for %q: %w", addr, s.handler.Name(), err)
	}
	s.listener = listener

	port := listener.Addr().(*net.TCPAddr).Port
	if s.config.Port == 0 {
		if ps, ok := s.handler.Plugin().(plugin.PortSetter); ok {
			ps.SetPort(port)
		}
		s.config.Port = port
	}

	logging.Info("Device listening",
		zap.String("device", s.handler.Name()),
		zap.String("addr", listener.Addr().String()),
	)
	return nil
}

// Port returns the bound port, or the configured one before Listen.
func (s *Server) Port() int {
	return s.config.Port
}

// Serve accepts connections until ctx is canceled or the listener closes.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	stop := context.AfterFunc(ctx, func() { _ = s.listener.Close() })
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection",
				zap.String("device", s.handler.Name()),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection reads one request, answers it and closes the connection
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	device := s.handler.Name()

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, device, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, device, "connection_accepted")

	_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	req, err := ReadRequest(conn, s.config.MaxBodyBytes)
	if err != nil {
		logging.Debug("Failed to read HTTP request",
			zap.String("device", device),
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}
	req.RemoteAddr = remoteAddr
	logging.LogHTTPRequest(remoteAddr, device, req.Method, req.Path, req.SOAPAction)

	actionCtx, cancel := context.WithTimeout(ctx, s.config.ActionTimeout)
	defer cancel()

	resp, ok := s.handler.Serve(actionCtx, req)
	if !ok {
		return
	}

	logging.LogRawBytes("Response", resp)
	_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if _, err := conn.Write(resp); err != nil {
		logging.Warn("Failed to write response",
			zap.String("device", device),
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// Shutdown stops accepting connections, closes live ones and waits for
// their handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	device := s.handler.Name()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.String("device", device), zap.Error(err))
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Debug("Closing active connection", zap.String("device", device), zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close", zap.String("device", device))
		return ctx.Err()
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close", zap.String("device", device))
		return nil
	}
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
