package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"github.com/neuhausf/fauxmo/internal/protocol"
	"go.uber.org/zap"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1/devices", func(r chi.Router) {
		r.Get("/", s.handleListDevices)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Get("/state", s.handleGetState)
			r.Put("/state", s.handleSetState)
		})
	})

	return r
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logging.Debug("API request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// DeviceInfo is one device as reported by the API.
type DeviceInfo struct {
	Name   string `json:"name"`
	Serial string `json:"serial"`
	Port   int    `json:"port"`
	Latest string `json:"latest"`
	State  string `json:"state,omitempty"`
}

// StateBody is the body of a state request and response.
type StateBody struct {
	Name  string `json:"name,omitempty"`
	State string `json:"state"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"devices": len(s.handlers),
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := make([]DeviceInfo, 0, len(s.handlers))
	for _, h := range s.handlers {
		devices = append(devices, DeviceInfo{
			Name:   h.Name(),
			Serial: h.Serial(),
			Port:   h.Plugin().Port(),
			Latest: string(h.Plugin().Latest()),
		})
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	h := s.deviceFromPath(w, r)
	if h == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, DeviceInfo{
		Name:   h.Name(),
		Serial: h.Serial(),
		Port:   h.Plugin().Port(),
		Latest: string(h.Plugin().Latest()),
		State:  string(h.Plugin().State(ctx)),
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	h := s.deviceFromPath(w, r)
	if h == nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, StateBody{Name: h.Name(), State: string(h.Plugin().State(ctx))})
}

func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	h := s.deviceFromPath(w, r)
	if h == nil {
		return
	}

	var body StateBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	state := plugin.ParseState(body.State)
	if state == plugin.StateUnknown {
		writeBadRequest(w, `state must be "on" or "off"`)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	if err := h.Switch(ctx, state == plugin.StateOn); err != nil {
		logging.Warn("API switch failed", zap.String("device", h.Name()), zap.Error(err))
		writeError(w, http.StatusBadGateway, ErrCodeDeviceFailed, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StateBody{Name: h.Name(), State: string(state)})
}

func (s *Server) deviceFromPath(w http.ResponseWriter, r *http.Request) *protocol.Handler {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeBadRequest(w, "invalid device name")
		return nil
	}
	h := s.lookup(name)
	if h == nil {
		writeNotFound(w, "no device named "+name)
		return nil
	}
	return h
}
