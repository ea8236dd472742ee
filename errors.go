package ardaku

import (
	"errors"
	"fmt"
)

// Engine bring-up errors. Use errors.Is to test for these -- they may be
// wrapped with additional context.
var (
	// ErrInvalidWasm is returned when the guest bytes fail to compile, or
	// when the module declares a Wasm start function (forbidden -- the
	// engine alone decides when the guest runs, via its "run" export).
	ErrInvalidWasm = errors.New("ardaku: invalid wasm module")

	// ErrLinkerFailed is returned when the host's "daku" imports cannot be
	// registered, or the guest cannot be instantiated against them.
	ErrLinkerFailed = errors.New("ardaku: linker failed")

	// ErrMissingMemory is returned when the guest does not export a
	// memory named "memory".
	ErrMissingMemory = errors.New("ardaku: guest does not export memory")

	// ErrMissingRun is returned when the guest does not export a nullary
	// "run" function.
	ErrMissingRun = errors.New("ardaku: guest does not export run")
)

// CrashError reports that the guest trapped -- either because host code
// raised a trap (see the trap package) while servicing a request, or
// because the guest itself faulted. It wraps Cause, so errors.Is/As can
// inspect the underlying trap.
type CrashError struct {
	Cause error
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("ardaku: guest crashed: %v", e.Cause)
}

func (e *CrashError) Unwrap() error {
	return e.Cause
}
