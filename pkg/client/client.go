// Package client implements the thin interactive terminal client: one
// newline-terminated command per input line, one rendered server message
// per output line. All protocol intelligence lives server-side.
package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
)

// Client manages one chat connection.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	out  *renderer
}

// Dial connects to a chat server.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: connect %s: %w", addr, err)
	}
	return &Client{conn: conn, out: newRenderer()}, nil
}

// Send writes one command line to the server.
func (c *Client) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("client: send: %w", err)
	}
	return nil
}

// Close hangs up.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Run pumps input lines to the server and server messages to output until
// either side hangs up. Blank input lines are skipped.
func (c *Client) Run(input io.Reader, output io.Writer) error {
	errCh := make(chan error, 2)

	go func() { // server -> terminal
		scanner := bufio.NewScanner(c.conn)
		for scanner.Scan() {
			c.out.render(output, scanner.Text())
		}
		errCh <- scanner.Err()
	}()

	go func() { // terminal -> server
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if err := c.Send(line); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil // input EOF: hang up
	}()

	err := <-errCh
	_ = c.conn.Close()
	return err
}
