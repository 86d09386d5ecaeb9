// Package l1 implements the reliable, in-order, bidirectional byte pipe
// that the L2 multi-queue transport runs over (spec.md §1). L2 is
// transport-agnostic beyond the Transport contract below; this package
// supplies a real TCP implementation and an in-process loopback pair
// for tests and the demo driver.
package l1

import "errors"

// ErrNotAvailable is returned by RecvNonblocking when fewer bytes than
// requested are currently buffered. No bytes are consumed in this case;
// a later call may succeed once more data has arrived.
var ErrNotAvailable = errors.New("l1: data not available")

// ErrConnectFailed is returned by Dial-style constructors once the
// bounded retry schedule (spec.md §4.2, §6.2) is exhausted.
var ErrConnectFailed = errors.New("l1: connect failed after retries")

// Transport is the contract L2 relies on (spec.md §1): a reliable,
// in-order, bidirectional byte pipe. Implementations must make Send the
// sole writer's call and RecvBlocking/RecvNonblocking the sole reader's
// calls — L2 never issues concurrent reads or concurrent writes against
// the same Transport.
type Transport interface {
	// Send writes buf to the peer in full or returns an error. Never
	// partially writes on success.
	Send(buf []byte) error

	// RecvBlocking fills buf completely, blocking until that much data
	// has arrived or an error occurs.
	RecvBlocking(buf []byte) error

	// RecvNonblocking attempts to fill buf without blocking. If fewer
	// than len(buf) bytes are currently available, it returns
	// ErrNotAvailable and consumes nothing, so a later call can retry.
	RecvNonblocking(buf []byte) error

	// Finish closes the pipe. Safe to call once; behavior on a second
	// call is not guaranteed.
	Finish() error
}
