package l2

import (
	"fmt"
	"io"
)

// QueueSnapshot is a diagnostic, point-in-time view of one queue's
// counters, taken under its mutex (spec.md §4.2 show_all_queues).
type QueueSnapshot struct {
	Dir        Direction
	ID         uint8
	WidthBytes uint8
	CapacityTX uint32
	CapacityRX uint32
	Size       uint32
	Head       uint32
	Credits    uint32
}

// Snapshot takes a brief lock on every queue and returns their current
// counters, H2F first then F2H, in ascending qid within each direction.
func (e *Engine) Snapshot() []QueueSnapshot {
	e.mu.RLock()
	qs := e.queues
	e.mu.RUnlock()

	out := make([]QueueSnapshot, 0, len(qs.H2F)+len(qs.F2H))
	for _, q := range qs.H2F {
		out = append(out, snapshotOne(q))
	}
	for _, q := range qs.F2H {
		out = append(out, snapshotOne(q))
	}
	return out
}

func snapshotOne(q *Queue) QueueSnapshot {
	q.Lock()
	defer q.Unlock()
	return QueueSnapshot{
		Dir:        q.Dir,
		ID:         q.ID,
		WidthBytes: q.WidthBytes,
		CapacityTX: q.CapacityTX,
		CapacityRX: q.CapacityRX,
		Size:       q.size,
		Head:       q.hd,
		Credits:    q.credits,
	}
}

// ShowAllQueues writes a plain-text diagnostic snapshot of every queue
// to sink (spec.md §4.2). Formatting with color is left to callers
// (e.g. cmd/vf2demo) that want to decorate a Snapshot themselves.
func (e *Engine) ShowAllQueues(sink io.Writer) error {
	for _, s := range e.Snapshot() {
		_, err := fmt.Fprintf(sink, "%-3s qid=%-3d width=%-3d cap_tx=%-6d cap_rx=%-6d size=%-6d hd=%-6d credits=%-6d\n",
			s.Dir, s.ID, s.WidthBytes, s.CapacityTX, s.CapacityRX, s.Size, s.Head, s.Credits)
		if err != nil {
			return err
		}
	}
	return nil
}
