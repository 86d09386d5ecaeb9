package l1

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/ardnew/vf2/internal/obs"
)

// DefaultHost and DefaultPort are the L1 endpoint defaults used when the
// caller passes an empty host or a zero port (spec.md §6.2).
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 30000
)

const (
	connectAttempts = 5
	connectSpacing  = 1 * time.Second
)

// TCP is a Transport backed by a real TCP connection to the FPGA-side
// peer. It follows the teacher's fifo.HostHAL shape: a long-lived
// adapter holding the connection plus fixed internal scratch state, with
// SetReadDeadline used to implement the nonblocking/blocking read split
// the spec calls for.
type TCP struct {
	conn net.Conn
	r    *bufio.Reader
	id   uuid.UUID
}

// DialTCP connects to host:port, retrying up to connectAttempts times,
// connectSpacing apart, before giving up (spec.md §4.2, §6.2). An empty
// host or zero port selects the defaults.
func DialTCP(ctx context.Context, host string, port int) (*TCP, error) {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			id := uuid.NewV4()
			obs.LogInfo(obs.ComponentL1, "connected", "addr", addr, "session", id.String(), "attempt", attempt)
			return &TCP{
				conn: conn,
				r:    bufio.NewReaderSize(conn, 4096),
				id:   id,
			}, nil
		}
		lastErr = err
		obs.LogWarn(obs.ComponentL1, "connect attempt failed", "addr", addr, "attempt", attempt, "error", err)

		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectSpacing):
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrConnectFailed, addr, lastErr)
}

// NewTCP wraps an already-established connection as a Transport. Used by
// NewLoopbackPair to wrap each end of its in-process connection instead
// of dialing one.
func NewTCP(conn net.Conn) *TCP {
	return &TCP{
		conn: conn,
		r:    bufio.NewReaderSize(conn, 4096),
		id:   uuid.NewV4(),
	}
}

// Send writes buf to the peer in full.
func (t *TCP) Send(buf []byte) error {
	if _, err := t.conn.Write(buf); err != nil {
		return fmt.Errorf("l1 send: %w", err)
	}
	return nil
}

// RecvBlocking fills buf completely, blocking until it arrives. The
// peer is obligated to have queued the bytes by the time this is
// called (spec.md §4.4); a real I/O error here is fatal, not transient.
func (t *TCP) RecvBlocking(buf []byte) error {
	t.conn.SetReadDeadline(time.Time{})
	if _, err := readFull(t.r, buf); err != nil {
		return fmt.Errorf("l1 recv: %w", err)
	}
	return nil
}

// RecvNonblocking attempts to fill buf without blocking, using a Peek
// against an immediate read deadline so a short read never consumes
// bytes it can't yet deliver in full.
func (t *TCP) RecvNonblocking(buf []byte) error {
	t.conn.SetReadDeadline(time.Now())
	defer t.conn.SetReadDeadline(time.Time{})

	peeked, err := t.r.Peek(len(buf))
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
			return ErrNotAvailable
		}
		return fmt.Errorf("l1 recv: %w", err)
	}
	copy(buf, peeked)
	_, _ = t.r.Discard(len(buf))
	return nil
}

// Finish closes the connection.
func (t *TCP) Finish() error {
	return t.conn.Close()
}

// SessionID returns the UUID assigned to this connection for log
// correlation.
func (t *TCP) SessionID() string { return t.id.String() }

var _ Transport = (*TCP)(nil)

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
