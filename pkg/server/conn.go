package server

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"strings"

	"github.com/linechat/linechat/pkg/protocol"
)

// maxLineBytes bounds a single protocol line.
const maxLineBytes = 64 * 1024

// handleConn owns one TCP connection: it registers a session, sends the
// greeting, then feeds complete lines to the dispatcher until the socket
// closes. A line spanning several reads is reassembled by the scanner;
// several lines arriving in one read are dispatched one by one in arrival
// order.
func (s *Server) handleConn(conn net.Conn) {
	s.metrics.TotalConnections.Add(1)
	s.metrics.ActiveConnections.Add(1)

	sink := newConnSink(conn)
	sess := s.registry.Register(sink)
	defer s.teardown(sess)

	slog.Debug("client connected", "session", sess.ID(), "remote", conn.RemoteAddr())
	sink.WriteLine(protocol.Info(s.cfg.Greeting))

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.dispatch(sess, protocol.Parse(line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Debug("read error", "session", sess.ID(), "err", err)
	}
}

// teardown is the single deregistration path for every exit trigger: peer
// close, read error, idle eviction, server shutdown. Remove reports
// whether the session was still tracked, so concurrent triggers deregister
// (and announce the departure) at most once.
func (s *Server) teardown(sess *Session) {
	sess.Sink().Close()
	username, tracked := s.registry.Remove(sess.ID())
	if !tracked {
		return
	}
	s.metrics.ActiveConnections.Add(-1)
	s.metrics.TotalDisconnects.Add(1)
	if username == "" {
		slog.Debug("client disconnected", "session", sess.ID())
		return
	}
	slog.Info("user disconnected", "user", username, "session", sess.ID())
	s.broadcastInfo(username+" left", sess.ID())
}
