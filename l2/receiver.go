package l2

import (
	"github.com/ardnew/vf2/internal/obs"
	"github.com/ardnew/vf2/l1"
	"github.com/ardnew/vf2/wire"
)

// recvF2H attempts to read one framed message non-blockingly and apply
// it, reporting whether any work was done (spec.md §4.4). Called by the
// maintenance loop only — the sole reader of the L1 stream.
func (e *Engine) recvF2H() bool {
	header := make([]byte, wire.HeaderSize)
	if err := e.l1.RecvNonblocking(header); err != nil {
		if err == l1.ErrNotAvailable {
			return false
		}
		fatal(obs.ComponentReceiver, err, "l1 header read failed")
		return true
	}

	h := wire.Decode(header)
	switch {
	case h.IsNoop():
		return true

	case h.IsCredit():
		e.applyCreditGrant(h)
		return true

	default:
		qid := int(h.QID)
		if qid >= len(e.queues.F2H) {
			fatalf(obs.ComponentReceiver, "peer sent data frame for unknown qid %d (f2h_n=%d)", h.QID, len(e.queues.F2H))
			return true
		}
		e.applyDataBatch(e.queues.F2H[qid], h)
		return true
	}
}

// applyCreditGrant applies a CRED frame from the peer to the named H2F
// queue's authorization (spec.md §4.4). A credit header carries no
// qid-range information beyond B1, which must index an existing H2F
// queue.
func (e *Engine) applyCreditGrant(h wire.Header) {
	qid := int(h.CreditQID())
	if qid >= len(e.queues.H2F) {
		fatalf(obs.ComponentReceiver, "peer granted credit for unknown H2F qid %d (h2f_n=%d)", h.CreditQID(), len(e.queues.H2F))
		return
	}
	q := e.queues.H2F[qid]
	amount := h.CreditAmount()

	q.Lock()
	q.AddCreditsLocked(uint32(amount))
	q.Unlock()

	obs.LogDebug(obs.ComponentReceiver, "credit grant applied", "qid", qid, "credits", amount)
}

// applyDataBatch reads the body of a data frame (n * width_B bytes) and
// appends each item to the F2H queue, under that queue's mutex for the
// whole batch (spec.md §4.4). The batch is validated against remaining
// capacity before any item is appended, so a capacity overrun aborts
// without mutating the queue at all.
func (e *Engine) applyDataBatch(q *Queue, h wire.Header) {
	n := uint32(h.DataCount())

	q.Lock()
	defer q.Unlock()

	if q.SizeLocked()+n > q.capacityX() {
		fatalf(obs.ComponentReceiver, "peer overran F2H[%d] capacity (size=%d n=%d cap=%d)", q.ID, q.SizeLocked(), n, q.capacityX())
		return
	}

	item := make([]byte, q.WidthBytes)
	for i := uint32(0); i < n; i++ {
		if q.WidthBytes > 0 {
			if err := e.l1.RecvBlocking(item); err != nil {
				fatal(obs.ComponentReceiver, err, "l1 body read failed", "qid", q.ID)
				return
			}
		}
		q.AppendTailLocked(item)
	}

	obs.LogDebug(obs.ComponentReceiver, "f2h batch applied", "qid", q.ID, "n", n)
}
