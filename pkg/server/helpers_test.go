package server

import (
	"sync"
	"testing"
	"time"

	"github.com/linechat/linechat/pkg/protocol"
)

// memSink collects lines in memory; the in-process stand-in for a socket.
type memSink struct {
	mu     sync.Mutex
	lines  []string
	closed bool
}

func (m *memSink) WriteLine(line string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.lines = append(m.lines, line)
	return true
}

func (m *memSink) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *memSink) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *memSink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *memSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = nil
}

// fakeClock is a manually advanced clock for registry expiry tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(DefaultConfig())
}

// login registers a fresh session and completes LOGIN, failing the test on
// anything but OK. The sink is reset afterwards so assertions start clean.
func login(t *testing.T, s *Server, name string) (*Session, *memSink) {
	t.Helper()
	sink := &memSink{}
	sess := s.registry.Register(sink)
	s.dispatch(sess, protocol.Parse("LOGIN "+name))
	lines := sink.Lines()
	if len(lines) != 1 || lines[0] != "OK" {
		t.Fatalf("login %q: got %v, want [OK]", name, lines)
	}
	sink.Reset()
	return sess, sink
}
