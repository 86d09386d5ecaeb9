package l2

import "sync"

// Queue is a single-direction bounded ring buffer of fixed-width items
// with associated credit state, guarded by its own mutex. One instance
// exists per (direction, qid) pair in a QueueSet.
//
// credits is overloaded by direction (spec.md §3):
//   - DirH2F: number of items the peer has authorized but not yet sent.
//   - DirF2H: number of freed slots owed to the peer as a credit grant
//     but not yet reported.
type Queue struct {
	Dir        Direction
	ID         uint8
	WidthBytes uint8
	CapacityTX uint32
	CapacityRX uint32

	mu      sync.Mutex
	size    uint32
	hd      uint32
	credits uint32
	storage []byte
}

// newQueue allocates a queue's storage and initializes its counters per
// spec.md §3. F2H queues start with credits == CapacityRX (the full
// capacity is the peer's initial send budget, reported at the first
// sender opportunity); H2F queues start with credits == 0.
func newQueue(dir Direction, id uint8, widthBytes uint8, capTX, capRX uint32) *Queue {
	q := &Queue{
		Dir:        dir,
		ID:         id,
		WidthBytes: widthBytes,
		CapacityTX: capTX,
		CapacityRX: capRX,
		storage:    make([]byte, uint32(widthBytes)*capacityFor(dir, capTX, capRX)),
	}
	if dir == DirF2H {
		q.credits = capRX
	}
	return q
}

func capacityFor(dir Direction, capTX, capRX uint32) uint32 {
	if dir == DirF2H {
		return capRX
	}
	return capTX
}

// capacityX returns capacity_X_I: capacity_rx_I for F2H, capacity_tx_I
// for H2F (spec.md §3).
func (q *Queue) capacityX() uint32 { return capacityFor(q.Dir, q.CapacityTX, q.CapacityRX) }

// Lock acquires the queue's mutex. Callers performing a multi-step
// sender/receiver stanza must hold the lock for its entire duration,
// including any L1 I/O, so that a frame's header and body are never
// interleaved with another stanza on the same queue (spec.md §4.3).
func (q *Queue) Lock() { q.mu.Lock() }

// Unlock releases the queue's mutex.
func (q *Queue) Unlock() { q.mu.Unlock() }

// Push copies width-bytes item into the queue's ring as a producer
// (spec.md §4.2 enqueue). Reports false ("full") if the ring is at
// capacity. Never blocks beyond the mutex.
func (q *Queue) Push(item []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	cap := q.capacityX()
	if q.size == cap {
		return false
	}
	tl := (q.hd + q.size) % cap
	copy(q.storage[uint32(tl)*uint32(q.WidthBytes):], item[:q.WidthBytes])
	q.size++
	return true
}

// Pop copies one item out of the queue's ring as a consumer (spec.md
// §4.2 pop), advances the head, and — per F2H credit semantics — records
// one more freed slot owed to the peer. Reports false ("empty") if the
// ring has no items. Never blocks beyond the mutex.
func (q *Queue) Pop(out []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return false
	}
	cap := q.capacityX()
	copy(out[:q.WidthBytes], q.storage[uint32(q.hd)*uint32(q.WidthBytes):])
	q.hd = (q.hd + 1) % cap
	q.size--
	q.credits++
	return true
}

// --- Locked primitives: caller must hold Lock() across the whole stanza. ---

// SizeLocked returns size_I.
func (q *Queue) SizeLocked() uint32 { return q.size }

// CreditsLocked returns credits_I.
func (q *Queue) CreditsLocked() uint32 { return q.credits }

// PeekHeadLocked returns a slice over the item currently at hd_I, valid
// until the next mutation of the queue. Used by the sender to read the
// next H2F item to transmit without yet advancing the ring.
func (q *Queue) PeekHeadLocked() []byte {
	off := uint32(q.hd) * uint32(q.WidthBytes)
	return q.storage[off : off+uint32(q.WidthBytes)]
}

// AdvanceHeadLocked advances hd_I and decrements size_I by one, for each
// H2F item the sender has just written to L1.
func (q *Queue) AdvanceHeadLocked() {
	q.hd = (q.hd + 1) % q.capacityX()
	q.size--
}

// DeductCreditsLocked subtracts n from credits_I after an H2F send batch.
func (q *Queue) DeductCreditsLocked(n uint32) { q.credits -= n }

// AddCreditsLocked adds cred to credits_I when an H2F credit grant
// arrives from the peer (spec.md §4.4).
func (q *Queue) AddCreditsLocked(cred uint32) { q.credits += cred }

// FlushCreditsLocked returns the currently owed F2H credit count and
// resets it to zero, as the sender does when emitting a CRED frame
// (spec.md §4.3).
func (q *Queue) FlushCreditsLocked() uint32 {
	n := q.credits
	q.credits = 0
	return n
}

// AppendTailLocked writes one received item into the tail slot of an
// F2H queue and increments size_I. Returns false if the queue is
// already at capacity — a protocol violation under I4 (the peer
// overran its authorization).
func (q *Queue) AppendTailLocked(item []byte) bool {
	cap := q.capacityX()
	if q.size == cap {
		return false
	}
	tl := (q.hd + q.size) % cap
	copy(q.storage[uint32(tl)*uint32(q.WidthBytes):], item[:q.WidthBytes])
	q.size++
	return true
}
