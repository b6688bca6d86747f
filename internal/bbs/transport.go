package bbs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// Transport wraps one connection with line-oriented reads and flushed
// writes, keeping raw socket mechanics out of the session logic. A Transport
// is owned by exactly one session and is not safe for concurrent use.
type Transport struct {
	conn        net.Conn
	r           *bufio.Reader
	w           *bufio.Writer
	idleTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func NewTransport(conn net.Conn, idleTimeout time.Duration) *Transport {
	return &Transport{
		conn:        conn,
		r:           bufio.NewReader(conn),
		w:           bufio.NewWriter(conn),
		idleTimeout: idleTimeout,
	}
}

// ReadLine reads the next line, stripping trailing CR/LF. An empty line is a
// valid result distinct from errors. Returns ErrIdleTimeout when the peer
// stays silent past the idle window and io.EOF when the stream ends.
func (t *Transport) ReadLine() (string, error) {
	if t.idleTimeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.idleTimeout)); err != nil {
			return "", fmt.Errorf("set deadline: %w", err)
		}
	}

	line, err := t.r.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return "", ErrIdleTimeout
	}
	if err == io.EOF && line != "" {
		// last line without newline
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	return "", fmt.Errorf("read: %w", err)
}

// WriteString writes s and flushes before returning.
func (t *Transport) WriteString(s string) error {
	if _, err := t.w.WriteString(s); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Close releases the underlying connection. Safe to call more than once.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
