package ardaku

import (
	"context"

	"github.com/ardaku/ardaku/buffer"
	"github.com/ardaku/ardaku/system"
	"github.com/ardaku/ardaku/trap"
)

// commandSize is the size in bytes of a single command record: four
// little-endian u32 fields (size, data, channel, ready).
const commandSize = 16

// handleAR is the core loop behind the "ar" import, factored out from the
// wazero calling convention so it can be exercised directly with a fake
// Memory in tests.
func (st *guestState) handleAR(ctx context.Context, mem system.Memory, size, data uint32) uint32 {
	noneWaiting := true

	for i := uint32(0); i < size; i++ {
		offset := data + commandSize*i
		raw, ok := mem.Read(offset, commandSize)
		if !ok {
			trap.Raise("ar: command %d at offset %d out of bounds", i, offset)
		}

		cur := buffer.New(raw)
		cmdSize := cur.ReadU32()
		cmdData := cur.ReadU32()
		channel := cur.ReadU32()
		ready := cur.ReadU32()

		st.metrics.commandsDispatched.Inc()
		completed := st.execute(ctx, mem, channel, ready, cmdSize, cmdData)
		noneWaiting = noneWaiting && completed
	}

	capacity, readyData := st.readyCapacity, st.readyData

	if !noneWaiting {
		st.metrics.sleeps.Inc()
		return st.sys.Sleep(ctx, mem, capacity, readyData)
	}

	fillSentinel(mem, capacity, readyData)
	return 0
}

// execute routes a single command to the connector (channel 0) or to the
// portal callback bound to its channel.
func (st *guestState) execute(ctx context.Context, mem system.Memory, chID, ready, size, data uint32) bool {
	if chID == 0 {
		return st.connect(ctx, mem, ready, size, data)
	}

	entry := st.table.Lookup(chID) // traps on unbound/out-of-range channel
	on, err := st.enabled.GetBit(uint64(entry.Portal))
	if err != nil || !on {
		trap.Raise("ar: channel %d addresses disabled portal %d", chID, entry.Portal)
	}
	return entry.Dispatch(ctx, mem, ready, size, data)
}

// fillSentinel overwrites the first capacity slots of the ready list with
// the "no completion" sentinel.
func fillSentinel(mem system.Memory, capacity, readyData uint32) {
	for i := uint32(0); i < capacity; i++ {
		offset := readyData + 4*i
		window, ok := mem.Read(offset, 4)
		if !ok {
			trap.Raise("ar: failed writing ready-list sentinel at offset %d", offset)
		}
		buffer.New(window).WriteU32(readySentinel)
	}
}

// handleDebug implements the "dbg" trace import.
func (st *guestState) handleDebug(ctx context.Context, mem system.Memory, size, textPtr uint32) {
	raw, ok := mem.Read(textPtr, size)
	if !ok {
		trap.Raise("dbg: text out of bounds")
	}
	cur := buffer.New(raw)
	text := cur.ReadString(int(size))

	st.sys.Log(ctx, text, system.LevelTrace, "dbg")
}
