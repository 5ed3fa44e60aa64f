package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linechat/linechat/pkg/protocol"
)

// The WebSocket gateway exposes the same line protocol to browser clients:
// every websocket connection becomes an ordinary registry session, one
// text frame carries one protocol line in each direction, and the same
// dispatcher, uniqueness rules, and idle reaper apply.

var wsUpgrader = websocket.Upgrader{ //nolint:gochecknoglobals
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway trusts whoever can reach the bind address, exactly like
	// the raw TCP listener.
	CheckOrigin: func(*http.Request) bool { return true },
}

// startWS starts the optional gateway; a no-op when WSAddr is empty.
func (s *Server) startWS() error {
	if s.cfg.WSAddr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.WSAddr)
	if err != nil {
		return fmt.Errorf("server: listen ws %s: %w", s.cfg.WSAddr, err)
	}
	s.wsListener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.wsServer = srv

	go func() {
		slog.Info("websocket gateway listening", "addr", ln.Addr())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("websocket gateway error", "err", err)
		}
	}()
	return nil
}

// handleWS is the websocket counterpart of handleConn: register, greet,
// read frames, dispatch, and tear down exactly once.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	conn.SetReadLimit(maxLineBytes)

	s.metrics.TotalConnections.Add(1)
	s.metrics.ActiveConnections.Add(1)

	sink := newWSSink(conn)
	sess := s.registry.Register(sink)
	defer s.teardown(sess)

	slog.Debug("websocket client connected", "session", sess.ID(), "remote", r.RemoteAddr)
	sink.WriteLine(protocol.Info(s.cfg.Greeting))

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "session", sess.ID(), "err", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		// Usually one frame is one line, but tolerate clients that batch.
		for _, raw := range strings.Split(string(data), "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			s.dispatch(sess, protocol.Parse(line))
		}
	}
}

// wsSink mirrors connSink for websocket transports: a buffered queue, a
// dedicated writer goroutine, and an idempotent close that flushes pending
// lines before sending the close frame.
type wsSink struct {
	conn      *websocket.Conn
	send      chan string
	done      chan struct{}
	closeOnce sync.Once
}

func newWSSink(conn *websocket.Conn) *wsSink {
	ws := &wsSink{
		conn: conn,
		send: make(chan string, outboundBuffer),
		done: make(chan struct{}),
	}
	go ws.writeLoop()
	return ws
}

func (ws *wsSink) WriteLine(line string) bool {
	select {
	case <-ws.done:
		return false
	default:
	}
	select {
	case ws.send <- line:
		return true
	case <-ws.done:
		return false
	default:
		ws.Close()
		return false
	}
}

func (ws *wsSink) Close() {
	ws.closeOnce.Do(func() { close(ws.done) })
}

func (ws *wsSink) writeLoop() {
	for {
		select {
		case line := <-ws.send:
			if err := ws.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				ws.Close()
				_ = ws.conn.Close()
				return
			}
		case <-ws.done:
			ws.drainAndClose()
			return
		}
	}
}

func (ws *wsSink) drainAndClose() {
	deadline := time.Now().Add(time.Second)
	for {
		select {
		case line := <-ws.send:
			_ = ws.conn.SetWriteDeadline(deadline)
			if err := ws.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				_ = ws.conn.Close()
				return
			}
		default:
			_ = ws.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = ws.conn.Close()
			return
		}
	}
}
