package l1

import (
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// NewLoopbackPair returns two connected Transports for an in-process
// FPGA-side peer (tests, and vf2demo's "demo" command), so the full
// L1/L2 stack runs without an external process or real socket (spec.md
// §1's "cooperating loopback peer"). Unlike net.Pipe, each direction is
// backed by a growable buffer rather than a synchronous handoff: both
// the host and the simulated peer independently decide when to send
// (spec.md §4.3's maintenance stanza), and a zero-capacity pipe would
// deadlock the instant both sides try to write before either reads.
func NewLoopbackPair() (host Transport, peer Transport) {
	a := newBufPipe()
	b := newBufPipe()
	return NewTCP(&bufConn{in: a, out: b}), NewTCP(&bufConn{in: b, out: a})
}

// bufPipe is a unidirectional, unbounded byte buffer with blocking and
// deadline-aware reads, playing the same role for the loopback transport
// that a kernel-buffered named pipe plays for the real FIFO HAL: writes
// never block on a pending read.
type bufPipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool
}

func newBufPipe() *bufPipe {
	p := &bufPipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *bufPipe) write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.buf = append(p.buf, b...)
	p.cond.Broadcast()
	return len(b), nil
}

// read blocks until at least one byte is available, the pipe is closed,
// or deadline elapses. A zero deadline blocks indefinitely.
func (p *bufPipe) read(b []byte, deadline time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.buf) == 0 && !p.closed {
		if !deadline.IsZero() {
			if !time.Now().Before(deadline) {
				return 0, os.ErrDeadlineExceeded
			}
			timer := time.AfterFunc(time.Until(deadline), p.cond.Broadcast)
			p.cond.Wait()
			timer.Stop()
			continue
		}
		p.cond.Wait()
	}

	if len(p.buf) == 0 && p.closed {
		return 0, io.EOF
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

func (p *bufPipe) close() error {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	return nil
}

// bufConn adapts a pair of bufPipes to net.Conn so it can be wrapped by
// TCP and reuse its Peek/SetReadDeadline-based nonblocking read split
// unchanged.
type bufConn struct {
	in  *bufPipe
	out *bufPipe

	mu           sync.Mutex
	readDeadline time.Time
}

func (c *bufConn) Read(b []byte) (int, error) {
	c.mu.Lock()
	dl := c.readDeadline
	c.mu.Unlock()
	return c.in.read(b, dl)
}

func (c *bufConn) Write(b []byte) (int, error) { return c.out.write(b) }

func (c *bufConn) Close() error { return c.out.close() }

func (c *bufConn) LocalAddr() net.Addr  { return bufAddr{} }
func (c *bufConn) RemoteAddr() net.Addr { return bufAddr{} }

func (c *bufConn) SetDeadline(t time.Time) error {
	return c.SetReadDeadline(t)
}

func (c *bufConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.readDeadline = t
	c.mu.Unlock()
	return nil
}

func (c *bufConn) SetWriteDeadline(time.Time) error { return nil }

type bufAddr struct{}

func (bufAddr) Network() string { return "bufconn" }
func (bufAddr) String() string  { return "bufconn" }

var _ net.Conn = (*bufConn)(nil)
