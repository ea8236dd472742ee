// Package system defines the embedder contract: the interface Ardaku's
// engine requires of whatever application links it in order to service a
// guest's portal requests. Concrete portal behavior (how a prompt actually
// reads a line, how logs are formatted and shipped) is entirely up to the
// embedder; this package only fixes the shape of that collaboration.
package system

import "context"

// Memory is the narrow view of guest linear memory the engine hands to a
// System implementation. It is always a fresh view acquired for the
// duration of a single call -- implementations must not retain it.
type Memory interface {
	// Read returns a window of byteCount bytes starting at offset, or
	// ok=false if the range falls outside the guest's memory.
	Read(offset, byteCount uint32) (window []byte, ok bool)
	// Write copies data into guest memory starting at offset, returning
	// false if the range falls outside the guest's memory.
	Write(offset uint32, data []byte) (ok bool)
}

// Level is a log severity, matching the wire encoding of the log portal's
// command payload.
type Level uint8

const (
	LevelFatal Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// String renders the level the way it should appear in embedder-facing
// logs.
func (l Level) String() string {
	switch l {
	case LevelFatal:
		return "fatal"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// System is the embedder contract required by the engine.
type System interface {
	// Sleep blocks until at least one previously registered asynchronous
	// operation completes, appends the ready identifier(s) of every
	// completion to the ready list at readyData (capacity readyCapacity,
	// starting at offset 0), and returns the number of entries written.
	// It may also write into any other guest memory needed to fulfill
	// earlier requests (see ReadLine).
	Sleep(ctx context.Context, mem Memory, readyCapacity, readyData uint32) (count uint32)

	// Log records a single message at the given severity with the given
	// target (subsystem) name.
	Log(ctx context.Context, text string, level Level, target string)

	// ReadLine begins an interactive read. It must remember
	// (ready, textRef, capacityRef) for deferred completion inside a
	// later Sleep call and must return promptly -- the actual blocking
	// happens inside Sleep, never here.
	ReadLine(ctx context.Context, mem Memory, ready, textRef, capacityRef uint32)
}

// Capability is an optional extension a System may implement to back the
// portals beyond Log and Prompt (Account, User, System, Host, Hardware,
// Platform, Spawn, SpawnBlocking, Channel, Admin). Those portals reserve a
// wire ID but fix no behavior of their own, so the engine forwards any
// command addressed to one of them through Capability.Dispatch when the
// embedder provides it, and otherwise traps.
type Capability interface {
	// Dispatch handles a single command addressed to portal. It returns
	// true if the operation completed synchronously (no ready-list entry
	// pending), matching the Dispatch contract used for Log and Prompt.
	Dispatch(ctx context.Context, portal uint32, mem Memory, ready, size, data uint32) (completedSynchronously bool)
}
