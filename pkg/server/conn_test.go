package server

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

// testPeer wraps the client side of a pipe with deadline-guarded reads.
type testPeer struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func newTestPeer(t *testing.T, s *Server) *testPeer {
	t.Helper()
	client, srv := net.Pipe()
	go s.handleConn(srv)
	t.Cleanup(func() { _ = client.Close() })
	return &testPeer{t: t, conn: client, r: bufio.NewReader(client)}
}

func (p *testPeer) send(raw string) {
	p.t.Helper()
	_ = p.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := p.conn.Write([]byte(raw)); err != nil {
		p.t.Fatalf("write %q: %v", raw, err)
	}
}

func (p *testPeer) readLine() string {
	p.t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := p.r.ReadString('\n')
	if err != nil {
		p.t.Fatalf("read line: %v", err)
	}
	return strings.TrimRight(line, "\n")
}

func (p *testPeer) expect(want string) {
	p.t.Helper()
	if got := p.readLine(); got != want {
		p.t.Fatalf("read %q, want %q", got, want)
	}
}

func (p *testPeer) expectEOF() {
	p.t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if line, err := p.r.ReadString('\n'); err == nil {
		p.t.Fatalf("expected EOF, read %q", line)
	}
}

func greetingLine(s *Server) string {
	return "INFO " + s.cfg.Greeting
}

func TestConnGreetingAndLogin(t *testing.T) {
	s := newTestServer(t)
	p := newTestPeer(t, s)

	p.expect(greetingLine(s))
	p.send("LOGIN alice\n")
	p.expect("OK")
}

func TestConnLineSpanningReads(t *testing.T) {
	s := newTestServer(t)
	p := newTestPeer(t, s)
	p.expect(greetingLine(s))

	p.send("PI")
	p.send("NG\n")
	p.expect("PONG")
}

func TestConnMultipleLinesPerRead(t *testing.T) {
	s := newTestServer(t)
	p := newTestPeer(t, s)
	p.expect(greetingLine(s))

	p.send("LOGIN alice\nMSG hi\nPING\n")
	p.expect("OK")
	p.expect("MSG alice hi")
	p.expect("PONG")
}

func TestConnBlankLinesIgnored(t *testing.T) {
	s := newTestServer(t)
	p := newTestPeer(t, s)
	p.expect(greetingLine(s))

	p.send("\n   \nPING\n")
	p.expect("PONG")
}

func TestConnBadLinesDoNotDisconnect(t *testing.T) {
	s := newTestServer(t)
	p := newTestPeer(t, s)
	p.expect(greetingLine(s))

	p.send("BOGUS\n")
	p.expect("ERR unknown-command BOGUS")
	p.send("MSG too early\n")
	p.expect("ERR not-logged-in")
	p.send("PING\n")
	p.expect("PONG")
}

func TestConnDisconnectBroadcastsDeparture(t *testing.T) {
	s := newTestServer(t)

	alice := newTestPeer(t, s)
	alice.expect(greetingLine(s))
	alice.send("LOGIN alice\n")
	alice.expect("OK")

	bob := newTestPeer(t, s)
	bob.expect(greetingLine(s))
	bob.send("LOGIN bob\n")
	bob.expect("OK")
	alice.expect("INFO bob joined")

	_ = bob.conn.Close()
	alice.expect("INFO bob left")
}

func TestConnIdleEvictionClosesAndAnnounces(t *testing.T) {
	s := newTestServer(t)
	clock := newFakeClock()
	s.registry = newRegistryWithClock(clock.Now)

	stale := newTestPeer(t, s)
	stale.expect(greetingLine(s))
	stale.send("LOGIN stale\n")
	stale.expect("OK")

	clock.Advance(2 * time.Minute)

	fresh := newTestPeer(t, s)
	fresh.expect(greetingLine(s))
	fresh.send("LOGIN fresh\n")
	fresh.expect("OK")
	stale.expect("INFO fresh joined")

	s.reapIdle(clock.Now())

	stale.expect("INFO Disconnected due to inactivity")
	stale.expectEOF()
	fresh.expect("INFO stale left")
}
