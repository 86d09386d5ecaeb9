package l2

import (
	"bytes"
	"sync"

	"github.com/ardnew/vf2/l1"
)

// memTransport is an in-memory l1.Transport backed by two byte buffers,
// used to unit-test the sender/receiver stanzas without a real socket or
// net.Pipe goroutine pair.
type memTransport struct {
	mu  sync.Mutex
	out bytes.Buffer // what the code under test has sent
	in  bytes.Buffer // what the code under test will receive
}

func (m *memTransport) Send(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out.Write(buf)
	return nil
}

func (m *memTransport) RecvBlocking(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.in.Read(buf)
	if n < len(buf) {
		return errShortRead
	}
	return err
}

func (m *memTransport) RecvNonblocking(buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.in.Len() < len(buf) {
		return l1.ErrNotAvailable
	}
	m.in.Read(buf)
	return nil
}

func (m *memTransport) Finish() error { return nil }

func (m *memTransport) feed(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.in.Write(b)
}

func (m *memTransport) sent() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.out.Bytes()...)
}

var errShortRead = &shortReadError{}

type shortReadError struct{}

func (*shortReadError) Error() string { return "memTransport: short read" }

var _ l1.Transport = (*memTransport)(nil)
