// Package peer implements a minimal, cooperating FPGA-side simulator of
// the L2 wire protocol (spec.md §6.1), used by integration tests and the
// demo driver's loopback mode. It is not a conformance reference for a
// real FPGA image — it only does enough of the protocol to exercise the
// host engine end to end: it grants the host's declared capacity as
// initial H2F credit, adds the host's F2H credit grants to its own send
// budget, and (in Echo
// mode) reflects whatever it receives on a given H2F queue back out on
// the paired F2H queue, the "cooperating loopback peer" referenced
// throughout spec.md §8.
package peer

import (
	"context"
	"sync"

	"github.com/ardnew/vf2/internal/obs"
	"github.com/ardnew/vf2/l1"
	"github.com/ardnew/vf2/wire"
)

// QueueSpec mirrors l2.Spec without importing l2, so the simulated peer
// has no dependency on the host engine's internals — only the wire
// format they agree on.
type QueueSpec struct {
	WidthBytes uint8
	Capacity   uint32
}

// EchoMap pairs an H2F qid with the F2H qid its items should be
// reflected onto. Queues not listed are drained and discarded.
type EchoMap map[uint8]uint8

// Loop is a cooperating FPGA-side peer. It mirrors the host's own
// sender/receiver stanza split so the same wire codec and credit
// bookkeeping is exercised from both directions.
type Loop struct {
	t l1.Transport

	// h2f/f2h as seen from the peer's side: the peer *consumes* H2F
	// (mirroring the host's F2H bookkeeping) and *produces* F2H
	// (mirroring the host's H2F bookkeeping).
	h2fConsume []*side // consumer side, one per host H2F qid
	f2hProduce []*side // producer side, one per host F2H qid

	echo EchoMap

	mu sync.Mutex
}

// side tracks the minimal counters the peer needs to play its half of
// the credit protocol: the item width, a pending-credit-to-grant
// counter (consumer role) or authorized-to-send counter (producer
// role), and a FIFO of buffered items awaiting forwarding.
type side struct {
	widthBytes uint8
	capacity   uint32
	credits    uint32
	pending    [][]byte
}

// New builds a peer loop that will, once Run starts, grant initial H2F
// credit per the host's declared H2F capacities (host-to-peer direction
// from the peer's perspective is "consume"), and echo items according
// to echo. F2H producer sides start with zero credit and wait for the
// host's grants.
func New(t l1.Transport, hostH2F, hostF2H []QueueSpec, echo EchoMap) *Loop {
	l := &Loop{t: t, echo: echo}
	l.h2fConsume = make([]*side, len(hostH2F))
	for i, s := range hostH2F {
		l.h2fConsume[i] = &side{widthBytes: s.WidthBytes, capacity: s.Capacity, credits: s.Capacity}
	}
	l.f2hProduce = make([]*side, len(hostF2H))
	for i, s := range hostF2H {
		l.f2hProduce[i] = &side{widthBytes: s.WidthBytes, capacity: s.Capacity}
	}
	return l
}

// Run alternates the peer's own send/receive stanzas until ctx is
// cancelled, mirroring l2.Engine's maintenance loop shape. The initial
// H2F authorization (spec.md §3's "reported at the first opportunity")
// falls out of the ordinary sendCredits scan, since New already seeds
// each h2fConsume side's credits at its full declared capacity; no
// separate preamble grant is needed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		didRecv := l.recvOnce()
		didSend := l.sendOnce()
		if !didRecv && !didSend {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}
	}
}

func (l *Loop) sendCredit(qid uint8, n uint16) error {
	buf := make([]byte, wire.HeaderSize)
	wire.EncodeCredit(buf, qid, n)
	return l.t.Send(buf)
}

// recvOnce reads one frame sent by the host: an H2F data batch or an
// F2H credit grant. Frames the peer doesn't recognize as belonging to a
// declared queue are dropped rather than treated as fatal — the peer
// simulator is a test double, not a conformance checker.
func (l *Loop) recvOnce() bool {
	header := make([]byte, wire.HeaderSize)
	if err := l.t.RecvNonblocking(header); err != nil {
		return false
	}
	h := wire.Decode(header)

	switch {
	case h.IsNoop():
		return true
	case h.IsCredit():
		l.applyF2HCredit(h)
		return true
	default:
		l.applyH2FData(h)
		return true
	}
}

func (l *Loop) applyF2HCredit(h wire.Header) {
	qid := int(h.CreditQID())
	l.mu.Lock()
	defer l.mu.Unlock()
	if qid >= len(l.f2hProduce) {
		return
	}
	l.f2hProduce[qid].credits += uint32(h.CreditAmount())
}

func (l *Loop) applyH2FData(h wire.Header) {
	qid := int(h.QID)
	l.mu.Lock()
	s := (*side)(nil)
	if qid < len(l.h2fConsume) {
		s = l.h2fConsume[qid]
	}
	l.mu.Unlock()
	if s == nil {
		return
	}

	n := int(h.DataCount())
	items := make([][]byte, n)
	for i := 0; i < n; i++ {
		item := make([]byte, s.widthBytes)
		if s.widthBytes > 0 {
			if err := l.t.RecvBlocking(item); err != nil {
				obs.LogWarn(obs.ComponentPeer, "peer body read failed", "qid", qid, "error", err)
				return
			}
		}
		items[i] = item
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fqid, ok := l.echo[uint8(qid)]
	if ok && int(fqid) < len(l.f2hProduce) {
		l.f2hProduce[fqid].pending = append(l.f2hProduce[fqid].pending, items...)
	}
	// Every item drained frees one more slot the peer can authorize on
	// this H2F queue again.
	s.credits += uint32(n)
}

// sendOnce is a simplified counterpart of the host's sender: it emits at
// most one F2H data batch, scanning in ascending qid, or, only when no
// batch was sent, at most one H2F credit re-grant.
func (l *Loop) sendOnce() bool {
	if l.sendData() {
		return true
	}
	return l.sendCredits()
}

func (l *Loop) sendData() bool {
	l.mu.Lock()
	var qid = -1
	var batch [][]byte
	for i, s := range l.f2hProduce {
		if len(s.pending) > 0 && s.credits > 0 {
			n := uint32(len(s.pending))
			if s.credits < n {
				n = s.credits
			}
			batch = s.pending[:n]
			s.pending = s.pending[n:]
			s.credits -= n
			qid = i
			break
		}
	}
	l.mu.Unlock()

	if qid < 0 {
		return false
	}

	header := make([]byte, wire.HeaderSize)
	width := uint8(0)
	if len(batch) > 0 {
		width = uint8(len(batch[0]))
	}
	wire.EncodeDataHeader(header, uint8(qid), uint16(len(batch)), width)
	if err := l.t.Send(header); err != nil {
		obs.LogWarn(obs.ComponentPeer, "peer send header failed", "qid", qid, "error", err)
		return true
	}
	for _, item := range batch {
		if len(item) == 0 {
			continue
		}
		if err := l.t.Send(item); err != nil {
			obs.LogWarn(obs.ComponentPeer, "peer send item failed", "qid", qid, "error", err)
			return true
		}
	}
	return true
}

func (l *Loop) sendCredits() bool {
	l.mu.Lock()
	qid := -1
	var amount uint32
	for i, s := range l.h2fConsume {
		if s.credits > 0 {
			amount = s.credits
			s.credits = 0
			qid = i
			break
		}
	}
	l.mu.Unlock()

	if qid < 0 {
		return false
	}
	if err := l.sendCredit(uint8(qid), uint16(amount)); err != nil {
		obs.LogWarn(obs.ComponentPeer, "peer send credit failed", "qid", qid, "error", err)
	}
	return true
}
