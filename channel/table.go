// Package channel implements the per-guest channel table: allocation and
// lookup of the u32 handles a guest uses to address a specific portal
// binding.
package channel

import (
	"context"

	"github.com/ardaku/ardaku/system"
	"github.com/ardaku/ardaku/trap"
)

// Dispatch handles a single command addressed to a bound channel. It
// returns true exactly when the command completed synchronously -- i.e. no
// asynchronous continuation was registered for it.
type Dispatch func(ctx context.Context, mem system.Memory, ready, size, data uint32) (completedSynchronously bool)

// Entry is a channel's binding: the portal it was opened for, and the
// callback that services commands on it.
type Entry struct {
	Portal   uint32
	Dispatch Dispatch
}

// Table is a per-guest mapping from channel ID to Entry. Channel 0 is
// reserved for the connector and is never stored here. IDs are allocated
// from a free-list first, falling back to a monotonically increasing
// counter starting at 1.
type Table struct {
	entries []Entry // index 0 is unused; entries[id] for id >= 1
	free    []uint32
	next    uint32
}

// New returns an empty Table with the next-channel counter starting at 1.
func New() *Table {
	return &Table{next: 1}
}

// Allocate returns a fresh channel ID, preferring a recycled one from the
// free-list over the monotonic counter.
func (t *Table) Allocate() uint32 {
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		return id
	}
	id := t.next
	t.next++
	return id
}

// Bind associates id with portal and dispatch, resizing the table if
// necessary. id must be non-zero.
func (t *Table) Bind(id uint32, portal uint32, dispatch Dispatch) {
	if id == 0 {
		trap.Raise("channel: cannot bind the reserved connector channel 0")
	}
	if need := int(id) + 1; len(t.entries) < need {
		grown := make([]Entry, need)
		copy(grown, t.entries)
		t.entries = grown
	}
	t.entries[id] = Entry{Portal: portal, Dispatch: dispatch}
}

// Lookup returns the binding for id. It traps if id is zero, out of range,
// or was never bound (or was released and not yet rebound).
func (t *Table) Lookup(id uint32) Entry {
	if id == 0 || int(id) >= len(t.entries) || t.entries[id].Dispatch == nil {
		trap.Raise("channel: use of unbound channel %d", id)
	}
	return t.entries[id]
}

// Release returns id to the free-list for future reuse. No wire command
// currently drives this; it exists so a future close operation has
// somewhere to recycle IDs.
func (t *Table) Release(id uint32) {
	if id == 0 || int(id) >= len(t.entries) {
		trap.Raise("channel: cannot release unbound channel %d", id)
	}
	t.entries[id] = Entry{}
	t.free = append(t.free, id)
}
