// Package trap implements the host-trap signaling mechanism used throughout
// the Ardaku engine. A host trap is an unrecoverable fault raised while
// servicing a guest request; it aborts the guest's run and is reported back
// to the embedder as a crash (see the root package's CrashError).
//
// Host code raises a trap by calling Raise, which panics with an *Error.
// wazero recovers panics escaping Go-defined host functions and surfaces
// them as the error returned from the exported function call, so callers
// one frame up (the engine's Run) never need to recover explicitly -- they
// only need to wrap whatever error comes back from invoking "run".
package trap

import "fmt"

// Error is the value panicked by Raise. Its Reason describes which of the
// host-trap triggers fired.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "ardaku: host trap: " + e.Reason
}

// Raise aborts the current host call with a trap. It never returns.
func Raise(format string, args ...any) {
	panic(&Error{Reason: fmt.Sprintf(format, args...)})
}
