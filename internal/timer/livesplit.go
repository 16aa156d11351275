package timer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// DefaultLiveSplitAddr is where the LiveSplit Server component listens by
// default.
const DefaultLiveSplitAddr = "localhost:16834"

// Redial backoff bounds after failed dials.
const (
	minRedialBackoff = 250 * time.Millisecond
	maxRedialBackoff = 5 * time.Second
)

var (
	// ErrUnknownPhase is returned for a phase reply the client does not know.
	ErrUnknownPhase = errors.New("livesplit: unknown timer phase")

	// ErrRedialPending is returned without dialing while the client waits
	// out the backoff after a failed dial.
	ErrRedialPending = errors.New("livesplit: server unreachable, redial pending")
)

// LiveSplit drives a LiveSplit Server over its line-based TCP protocol. The
// connection is dialed lazily and dropped on any I/O error, so the next
// command redials. After a failed dial, commands fail fast with
// ErrRedialPending until a backoff (250ms doubling to 5s) has passed.
type LiveSplit struct {
	Addr    string
	Timeout time.Duration

	// Dial opens the connection. If nil, net.DialTimeout is used.
	Dial func(network, addr string, timeout time.Duration) (net.Conn, error)
	// Now is the backoff clock. If nil, time.Now is used.
	Now func() time.Time

	mu      sync.Mutex
	conn    net.Conn
	rd      *bufio.Reader
	backoff time.Duration
	retryAt time.Time
}

// NewLiveSplit returns a client for addr. An empty addr uses
// DefaultLiveSplitAddr.
func NewLiveSplit(addr string, timeout time.Duration) *LiveSplit {
	if addr == "" {
		addr = DefaultLiveSplitAddr
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &LiveSplit{Addr: addr, Timeout: timeout}
}

func (l *LiveSplit) Start() error          { return l.send("starttimer") }
func (l *LiveSplit) Split() error          { return l.send("split") }
func (l *LiveSplit) Reset() error          { return l.send("reset") }
func (l *LiveSplit) PauseGameTime() error  { return l.send("pausegametime") }
func (l *LiveSplit) ResumeGameTime() error { return l.send("unpausegametime") }

// Phase queries the server. A paused real-time timer is still a run in
// progress, so "Paused" reports Running.
func (l *LiveSplit) Phase() (Phase, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writeLocked("getcurrenttimerphase"); err != nil {
		return 0, err
	}
	if err := l.conn.SetReadDeadline(time.Now().Add(l.Timeout)); err != nil {
		l.dropLocked()
		return 0, fmt.Errorf("livesplit: %w", err)
	}
	line, err := l.rd.ReadString('\n')
	if err != nil {
		l.dropLocked()
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, fmt.Errorf("livesplit: read phase: %w", err)
	}
	return ParseLiveSplitPhase(strings.TrimSpace(line))
}

// ParseLiveSplitPhase maps a LiveSplit TimerPhase name to a Phase.
func ParseLiveSplitPhase(s string) (Phase, error) {
	switch s {
	case "NotRunning":
		return NotRunning, nil
	case "Running", "Paused":
		return Running, nil
	case "Ended":
		return Ended, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
}

// Close drops the connection, if any.
func (l *LiveSplit) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn, l.rd = nil, nil
	return err
}

func (l *LiveSplit) send(cmd string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeLocked(cmd)
}

func (l *LiveSplit) writeLocked(cmd string) error {
	if l.conn == nil {
		if err := l.dialLocked(); err != nil {
			return err
		}
	}
	if err := l.conn.SetWriteDeadline(time.Now().Add(l.Timeout)); err != nil {
		l.dropLocked()
		return fmt.Errorf("livesplit: %w", err)
	}
	if _, err := io.WriteString(l.conn, cmd+"\r\n"); err != nil {
		l.dropLocked()
		return fmt.Errorf("livesplit: %s: %w", cmd, err)
	}
	return nil
}

func (l *LiveSplit) dialLocked() error {
	now := l.now()
	if now.Before(l.retryAt) {
		return fmt.Errorf("%w (next attempt in %s)", ErrRedialPending, l.retryAt.Sub(now).Round(time.Millisecond))
	}
	dial := l.Dial
	if dial == nil {
		dial = net.DialTimeout
	}
	conn, err := dial("tcp", l.Addr, l.Timeout)
	if err != nil {
		l.backoff = min(max(2*l.backoff, minRedialBackoff), maxRedialBackoff)
		l.retryAt = l.now().Add(l.backoff)
		return fmt.Errorf("livesplit: dial %s: %w", l.Addr, err)
	}
	l.backoff, l.retryAt = 0, time.Time{}
	l.conn, l.rd = conn, bufio.NewReader(conn)
	return nil
}

func (l *LiveSplit) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *LiveSplit) dropLocked() {
	if l.conn != nil {
		_ = l.conn.Close()
	}
	l.conn, l.rd = nil, nil
}
