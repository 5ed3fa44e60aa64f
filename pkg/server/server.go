// Package server implements the linechat server: the session registry,
// the command dispatcher, the per-connection handlers, and the idle
// reaper that together route line-oriented chat traffic between clients.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
)

// Server is the linechat server.
type Server struct {
	cfg          Config
	registry     *Registry
	metrics      *Metrics
	listener     net.Listener
	wsListener   net.Listener
	wsServer     *http.Server
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// New creates a Server for the given configuration.
func New(cfg Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		registry: NewRegistry(),
		metrics:  NewMetrics(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the bound TCP listener address, useful when the config
// asked for an ephemeral port.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// WSAddr returns the bound WebSocket gateway address, or nil when the
// gateway is disabled.
func (s *Server) WSAddr() net.Addr {
	if s.wsListener == nil {
		return nil
	}
	return s.wsListener.Addr()
}
