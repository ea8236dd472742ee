package ardaku

import (
	"context"

	"github.com/ardaku/ardaku/buffer"
	"github.com/ardaku/ardaku/channel"
	"github.com/ardaku/ardaku/system"
	"github.com/ardaku/ardaku/trap"
)

// connectSize is the size in bytes of a Connect message: four little-endian
// u32 fields (portals_size, portals_data, ready_capacity, ready_data).
const connectSize = 16

// portalEntrySize is the size of one entry in the Connect message's portals
// array: a single little-endian u32 portal ID, rewritten in place with the
// allocated channel ID.
const portalEntrySize = 4

// connect implements the channel-0 connector command. It installs the
// guest's ready-list location and opens one channel per requested portal,
// rewriting each portal array entry with the channel ID the host allocated
// for it. It always completes synchronously.
func (st *guestState) connect(ctx context.Context, mem system.Memory, ready, size, data uint32) bool {
	if size != connectSize {
		trap.Raise("connect: payload size %d != %d", size, connectSize)
	}

	payload, ok := mem.Read(data, connectSize)
	if !ok {
		trap.Raise("connect: payload out of bounds at %d", data)
	}

	cur := buffer.New(payload)
	portalsSize := cur.ReadU32()
	portalsData := cur.ReadU32()
	readyCapacity := cur.ReadU32()
	readyData := cur.ReadU32()

	st.readyCapacity = readyCapacity
	st.readyData = readyData

	for i := uint32(0); i < portalsSize; i++ {
		offset := portalsData + portalEntrySize*i

		entry, ok := mem.Read(offset, portalEntrySize)
		if !ok {
			trap.Raise("connect: portal entry %d out of bounds at %d", i, offset)
		}
		id := buffer.New(entry).ReadU32()

		name, ok := portalName(id)
		if !ok {
			trap.Raise("connect: unknown portal id %d requested at entry %d", id, i)
		}

		if err := st.enabled.SetBit(uint64(id)); err != nil {
			trap.Raise("connect: recording portal %d as enabled: %v", id, err)
		}
		chID := st.table.Allocate()
		st.table.Bind(chID, id, st.dispatchFor(id, name))

		buffer.New(entry).WriteU32(chID)
	}

	return true
}

// dispatchFor returns the channel.Dispatch bound to a newly opened portal
// channel. Log and Prompt are fully implemented by the core protocol; every
// other portal is a reserved wire ID with no behavior fixed by the core
// engine, so it is forwarded to the embedder's optional Capability
// extension if one is installed.
func (st *guestState) dispatchFor(id uint32, name string) channel.Dispatch {
	switch id {
	case PortalLog:
		return st.logDispatch
	case PortalPrompt:
		return st.promptDispatch
	default:
		return st.capabilityDispatch(id, name)
	}
}

// capabilityDispatch forwards commands on future-API portals (Account,
// User, System, Host, Hardware, Platform, Spawn, SpawnBlocking, Channel,
// Admin) to the embedder's system.Capability implementation, if any.
func (st *guestState) capabilityDispatch(id uint32, name string) channel.Dispatch {
	return func(ctx context.Context, mem system.Memory, ready, size, data uint32) bool {
		backend, ok := st.sys.(system.Capability)
		if !ok {
			trap.Raise("portal %q (id %d) was connected but the embedder implements no Capability handler for it", name, id)
		}
		return backend.Dispatch(ctx, id, mem, ready, size, data)
	}
}
