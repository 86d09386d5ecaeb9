// Package l2 implements the host-side L2 multi-queue transport: per-queue
// ring buffers, credit-based flow control, a background maintenance loop,
// and the concurrent application API (spec.md §§2-5).
package l2

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/vf2/internal/obs"
	"github.com/ardnew/vf2/l1"
)

// idleBackoff bounds how long the maintenance loop sleeps after a round
// in which neither stanza found work, to avoid busy-spinning (spec.md
// §4.5, §9 — the exact backoff is unspecified by the source).
const idleBackoff = 500 * time.Microsecond

// Engine is the L2 multi-queue transport: the queue set, its L1
// transport, and the maintenance loop that drains/fills queues against
// it. The zero value is not usable; construct with NewEngine.
type Engine struct {
	queues *QueueSet
	l1     l1.Transport

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewEngine allocates the queue set described by h2f and f2h (spec.md
// §4.1, §6.4). The engine is not started until Start is called.
func NewEngine(h2f, f2h []Spec) *Engine {
	return &Engine{queues: NewQueueSet(h2f, f2h)}
}

// Start opens the L1 connection (retrying per spec.md §4.2, §6.2) and
// spawns the maintenance loop. An empty host or zero port selects the
// L1 defaults.
func (e *Engine) Start(ctx context.Context, host string, port int) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true // claim the slot before releasing the lock to dial
	e.mu.Unlock()

	conn, err := l1.DialTCP(ctx, host, port)
	if err != nil {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		return err
	}
	return e.startWith(ctx, conn)
}

// StartWithTransport wires the engine to an already-established
// Transport (the demo's loopback/peer-simulation mode, or tests) instead
// of dialing a new TCP connection.
func (e *Engine) StartWithTransport(ctx context.Context, t l1.Transport) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()

	return e.startWith(ctx, t)
}

// startWith finishes Start/StartWithTransport once a Transport is in
// hand: it installs the transport, spawns the maintenance loop, and
// returns. Caller must have already claimed e.running.
func (e *Engine) startWith(ctx context.Context, t l1.Transport) error {
	e.mu.Lock()
	e.l1 = t
	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	group, loopCtx := errgroup.WithContext(loopCtx)
	e.group = group
	e.mu.Unlock()

	group.Go(func() error {
		e.maintain(loopCtx)
		return nil
	})

	obs.LogInfo(obs.ComponentEngine, "started", "h2f_n", len(e.queues.H2F), "f2h_n", len(e.queues.F2H))
	return nil
}

// Finish requests maintenance-loop termination, waits for it to exit,
// and closes L1 (spec.md §4.2, §5). Idempotent behavior on a second
// call is not required, matching the spec.
func (e *Engine) Finish() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return ErrNotRunning
	}
	e.running = false
	cancel := e.cancel
	group := e.group
	conn := e.l1
	e.mu.Unlock()

	cancel()
	_ = group.Wait()

	err := conn.Finish()
	obs.LogInfo(obs.ComponentEngine, "stopped")
	return err
}

// Enqueue validates qid against h2f_n and pushes item onto H2F[qid]
// (spec.md §4.2). Never blocks on L1.
func (e *Engine) Enqueue(qid uint8, item []byte) error {
	e.mu.RLock()
	h2f := e.queues.H2F
	e.mu.RUnlock()

	if int(qid) >= len(h2f) {
		fatalf(obs.ComponentEngine, "enqueue: invalid H2F qid %d (h2f_n=%d)", qid, len(h2f))
		return ErrInvalidQID
	}
	if !h2f[qid].Push(item) {
		return ErrFull
	}
	return nil
}

// Pop validates qid against f2h_n and pops one item from F2H[qid] into
// out (spec.md §4.2). Never blocks on L1.
func (e *Engine) Pop(qid uint8, out []byte) error {
	e.mu.RLock()
	f2h := e.queues.F2H
	e.mu.RUnlock()

	if int(qid) >= len(f2h) {
		fatalf(obs.ComponentEngine, "pop: invalid F2H qid %d (f2h_n=%d)", qid, len(f2h))
		return ErrInvalidQID
	}
	if !f2h[qid].Pop(out) {
		return ErrEmpty
	}
	return nil
}

// maintain runs the dedicated maintenance loop: alternating sender and
// receiver stanzas indefinitely until ctx is cancelled (spec.md §4.5).
func (e *Engine) maintain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		didSend := e.sendH2F()
		didRecv := e.recvF2H()

		if !didSend && !didRecv {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleBackoff):
			}
		}
	}
}
