package server

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Run starts the listeners and blocks until a shutdown signal arrives.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case <-s.ctx.Done():
	}

	s.Shutdown()
	return nil
}

// Start opens the TCP listener and, when configured, the WebSocket gateway
// and metrics endpoint, then launches the idle reaper. A bind failure is
// fatal and leaves no partial server running.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	slog.Info("chat server listening", "addr", ln.Addr())

	if err := s.startWS(); err != nil {
		_ = ln.Close()
		return err
	}

	go s.acceptLoop(ln)
	s.StartMetricsHTTP()
	s.metrics.StartPeriodicLog(time.Minute, s.ctx.Done())
	s.startReaper()
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				slog.Error("accept error", "err", err)
				continue
			}
		}
		go s.handleConn(conn)
	}
}

// Shutdown broadcasts a farewell to every authenticated session, halts
// acceptance, and closes all live connections. In-flight dispatches drain
// as their read loops observe the closed sockets. Safe to invoke more
// than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.broadcastInfo("Server shutting down", 0)
		s.cancel()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		if s.wsServer != nil {
			_ = s.wsServer.Close()
		}
		for _, e := range s.registry.Snapshot() {
			e.Sink.Close()
		}
	})
}
