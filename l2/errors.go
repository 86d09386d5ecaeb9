package l2

import "errors"

// L2 engine errors.
var (
	// ErrFull is returned by Enqueue when the H2F queue's ring is at
	// capacity. Non-fatal: the caller should retry (spec.md §4.2, §7).
	ErrFull = errors.New("queue full")

	// ErrEmpty is returned by Pop when the F2H queue's ring has no
	// items. Non-fatal: the caller should retry (spec.md §4.2, §7).
	ErrEmpty = errors.New("queue empty")

	// ErrInvalidQID is returned by Enqueue and Pop when the application
	// addresses a queue outside its direction's declared range
	// (spec.md §4.6, §7). Those calls first abort through fatalf, so
	// under the production abort() the process exits before it is
	// returned; it is returned only when abort() has been replaced by a
	// stand-in that returns.
	ErrInvalidQID = errors.New("invalid queue id")

	// ErrProtocolViolation names the condition of a peer frame with an
	// unrecognized qid (spec.md §4.6, §7). The receiver aborts on that
	// condition through fatalf with a message naming the qid; this value
	// is not passed to it.
	ErrProtocolViolation = errors.New("protocol violation: unrecognized qid")

	// ErrAlreadyRunning indicates Start was called on a running Engine.
	ErrAlreadyRunning = errors.New("engine already running")

	// ErrNotRunning is returned by Finish when the Engine is not running:
	// it was never started, or it has already been finished.
	ErrNotRunning = errors.New("engine not running")
)
