package l2

import (
	"github.com/ardnew/vf2/internal/obs"
	"github.com/ardnew/vf2/wire"
)

// sendH2F performs at most one H2F data batch and at most one F2H
// credit grant, in that order, then reports whether either did work
// (spec.md §4.3). It is called by the maintenance loop only — the sole
// writer of the L1 stream.
func (e *Engine) sendH2F() bool {
	didData := e.sendDataBatch()
	didCredit := e.sendCreditGrant()
	return didData || didCredit
}

// sendDataBatch scans H2F queues in ascending qid for the first one
// with size_I > 0 and credits_I > 0, and emits it as a single frame.
func (e *Engine) sendDataBatch() bool {
	for _, q := range e.queues.H2F {
		q.Lock()
		n := min32(q.SizeLocked(), q.CreditsLocked())
		if n == 0 {
			q.Unlock()
			continue
		}

		header := make([]byte, wire.HeaderSize)
		wire.EncodeDataHeader(header, q.ID, uint16(n), q.WidthBytes)
		if err := e.l1.Send(header); err != nil {
			q.Unlock()
			e.fatalL1(err, "h2f send header failed", "qid", q.ID)
			return true
		}

		for i := uint32(0); i < n; i++ {
			if q.WidthBytes > 0 {
				item := q.PeekHeadLocked()
				if err := e.l1.Send(item); err != nil {
					q.Unlock()
					e.fatalL1(err, "h2f send item failed", "qid", q.ID)
					return true
				}
			}
			q.AdvanceHeadLocked()
		}
		q.DeductCreditsLocked(n)
		q.Unlock()

		obs.LogDebug(obs.ComponentSender, "h2f batch sent", "qid", q.ID, "n", n)
		return true
	}
	return false
}

// sendCreditGrant scans F2H queues in ascending qid for the first one
// with an owed credit grant, and emits it as a single CRED frame.
func (e *Engine) sendCreditGrant() bool {
	for _, q := range e.queues.F2H {
		q.Lock()
		owed := q.CreditsLocked()
		if owed == 0 {
			q.Unlock()
			continue
		}
		n := q.FlushCreditsLocked()

		header := make([]byte, wire.HeaderSize)
		wire.EncodeCredit(header, q.ID, uint16(n))
		if err := e.l1.Send(header); err != nil {
			q.Unlock()
			e.fatalL1(err, "credit grant send failed", "qid", q.ID)
			return true
		}
		q.Unlock()

		obs.LogDebug(obs.ComponentSender, "credit grant sent", "qid", q.ID, "credits", n)
		return true
	}
	return false
}

func (e *Engine) fatalL1(err error, msg string, kv ...any) {
	fatal(obs.ComponentSender, err, msg, kv...)
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
