package l2

// Spec is the build-time declaration of a single queue: its item width
// and the capacities each side of the link assumes for it (spec.md
// §6.4). Both endpoints must declare identical tables per queue;
// mismatch is undetected at the wire level and is a configuration
// error, not something this package can catch.
type Spec struct {
	WidthBytes uint8
	CapacityTX uint32
	CapacityRX uint32
}

// QueueSet holds the two fixed arrays of queues — host-to-FPGA and
// FPGA-to-host — sized by the application's declaration. The set is
// immutable once built: queues are created in NewQueueSet and never
// resized (spec.md §3 I6, §4.1). There is no explicit release; the set
// lives as long as the Engine that holds it.
type QueueSet struct {
	H2F []*Queue
	F2H []*Queue
}

// NewQueueSet allocates a queue for each declared spec in h2f and f2h,
// preserving declaration order as the qid space (0..len-1 per
// direction).
func NewQueueSet(h2f, f2h []Spec) *QueueSet {
	qs := &QueueSet{
		H2F: make([]*Queue, len(h2f)),
		F2H: make([]*Queue, len(f2h)),
	}
	for i, s := range h2f {
		qs.H2F[i] = newQueue(DirH2F, uint8(i), s.WidthBytes, s.CapacityTX, s.CapacityRX)
	}
	for i, s := range f2h {
		qs.F2H[i] = newQueue(DirF2H, uint8(i), s.WidthBytes, s.CapacityTX, s.CapacityRX)
	}
	return qs
}
