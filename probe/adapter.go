package probe

import (
	"context"
	"sync"
	"time"
)

// Conn is a client connection to a backend that can be opened once and
// then pinged.
type Conn interface {
	// Connect opens the connection and verifies it.
	Connect(ctx context.Context, target string) error
	// Ping checks an open connection.
	Ping(ctx context.Context) error
	// Connected reports whether an open connection exists.
	Connected() bool
	// Close drops the connection, if any. Idempotent.
	Close(ctx context.Context) error
}

// ConnectThenPing connects on the first check and pings on later ones.
// A failed ping drops the connection so the next check reconnects.
type ConnectThenPing struct {
	conn    Conn
	timeout time.Duration
	mu      sync.Mutex
}

// NewConnectThenPing wraps conn. timeout <= 0 means DefaultTimeout.
func NewConnectThenPing(conn Conn, timeout time.Duration) *ConnectThenPing {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ConnectThenPing{conn: conn, timeout: timeout}
}

// Check connects or pings within the strategy timeout.
func (s *ConnectThenPing) Check(ctx context.Context, target string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.conn.Connected() {
		if err := s.conn.Connect(ctx, target); err != nil {
			return nil, err
		}
		return true, nil
	}

	if err := s.conn.Ping(ctx); err != nil {
		_ = s.conn.Close(ctx)
		return nil, err
	}
	return true, nil
}

// Cleanup closes the connection.
func (s *ConnectThenPing) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close(ctx)
}

// Pinger checks a target directly, opening a connection lazily if it needs
// one.
type Pinger interface {
	Ping(ctx context.Context, target string) error
	Close(ctx context.Context) error
}

// Ping pings the target on every check.
type Ping struct {
	pinger  Pinger
	timeout time.Duration
	mu      sync.Mutex
}

// NewPing wraps p. timeout <= 0 means DefaultTimeout.
func NewPing(p Pinger, timeout time.Duration) *Ping {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Ping{pinger: p, timeout: timeout}
}

// Check pings target within the strategy timeout.
func (s *Ping) Check(ctx context.Context, target string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pinger.Ping(ctx, target); err != nil {
		return nil, err
	}
	return true, nil
}

// Cleanup closes the pinger's connection.
func (s *Ping) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinger.Close(ctx)
}
