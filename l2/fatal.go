package l2

import (
	"fmt"
	"os"

	"github.com/ardnew/vf2/internal/obs"
)

// abort terminates the process on an unrecoverable condition (spec.md
// §4.6, §7: L1 I/O error, protocol violation, invalid application qid,
// mutex/allocation failure). It is a package variable so tests can
// substitute a panic-based stand-in instead of exiting the test binary.
var abort = func(code int) { os.Exit(code) }

// fatal logs a structured, component-tagged diagnostic and then aborts
// the process. It never returns under the production abort
// implementation; tests that override abort to panic should treat any
// code after fatal() as unreachable.
func fatal(component obs.Component, err error, msg string, kv ...any) {
	kv = append(kv, "error", err)
	obs.LogError(component, msg, kv...)
	abort(2)
}

// fatalf is fatal with a formatted message and no error value, used for
// diagnostics that name a bad value directly (e.g. an out-of-range qid).
func fatalf(component obs.Component, format string, args ...any) {
	obs.LogError(component, fmt.Sprintf(format, args...))
	abort(2)
}
