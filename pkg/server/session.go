package server

import (
	"net"
	"sync"
	"time"
)

// outboundBuffer is the per-session queue of pending lines. A peer that
// falls further behind than this gets disconnected instead of stalling
// delivery to everyone else.
const outboundBuffer = 64

// Sink delivers protocol lines to one client connection. Writes are fire
// and forget: lines are queued for a per-connection writer goroutine and
// the caller never blocks on a slow peer. A false return means the line
// was dropped because the sink is dead or the peer is too slow.
type Sink interface {
	WriteLine(line string) bool
	Close()
}

// Session is the server-side state for one live connection. The username
// and activity clock are owned by the registry and guarded by its lock;
// id and sink are immutable after creation.
type Session struct {
	id       uint64
	sink     Sink
	username string // empty until LOGIN succeeds, immutable afterwards
	lastSeen time.Time
}

// ID returns the session's registry key.
func (s *Session) ID() uint64 { return s.id }

// Sink returns the session's outbound sink.
func (s *Session) Sink() Sink { return s.sink }

// connSink queues lines onto a buffered channel drained by a dedicated
// writer goroutine, so no dispatcher ever blocks on a peer's socket.
type connSink struct {
	conn      net.Conn
	send      chan string
	done      chan struct{}
	closeOnce sync.Once
}

func newConnSink(conn net.Conn) *connSink {
	cs := &connSink{
		conn: conn,
		send: make(chan string, outboundBuffer),
		done: make(chan struct{}),
	}
	go cs.writeLoop()
	return cs
}

// WriteLine queues one logical line for delivery. If the queue is full the
// peer is considered stalled and the connection is dropped.
func (cs *connSink) WriteLine(line string) bool {
	select {
	case <-cs.done:
		return false
	default:
	}
	select {
	case cs.send <- line:
		return true
	case <-cs.done:
		return false
	default:
		cs.Close()
		return false
	}
}

// Close is idempotent and safe to call from any goroutine. The writer
// goroutine flushes whatever is already queued, then closes the socket,
// which in turn unblocks the owning read loop.
func (cs *connSink) Close() {
	cs.closeOnce.Do(func() { close(cs.done) })
}

func (cs *connSink) writeLoop() {
	for {
		select {
		case line := <-cs.send:
			if !cs.write(line) {
				return
			}
		case <-cs.done:
			cs.drainAndClose()
			return
		}
	}
}

// drainAndClose flushes queued lines (bounded by a short deadline) before
// closing the socket, so eviction and farewell notices reach the peer.
func (cs *connSink) drainAndClose() {
	_ = cs.conn.SetWriteDeadline(time.Now().Add(time.Second))
	for {
		select {
		case line := <-cs.send:
			if _, err := cs.conn.Write([]byte(line + "\n")); err != nil {
				_ = cs.conn.Close()
				return
			}
		default:
			_ = cs.conn.Close()
			return
		}
	}
}

func (cs *connSink) write(line string) bool {
	if _, err := cs.conn.Write([]byte(line + "\n")); err != nil {
		cs.Close()
		cs.drainAndClose()
		return false
	}
	return true
}
