package channel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardaku/ardaku/channel"
	"github.com/ardaku/ardaku/system"
)

func noop(context.Context, system.Memory, uint32, uint32, uint32) bool { return true }

func TestAllocateIsMonotonicAndDistinct(t *testing.T) {
	tbl := channel.New()

	a := tbl.Allocate()
	b := tbl.Allocate()
	c := tbl.Allocate()

	assert.Equal(t, uint32(1), a)
	assert.Equal(t, uint32(2), b)
	assert.Equal(t, uint32(3), c)
}

func TestBindThenLookupRoundTrips(t *testing.T) {
	tbl := channel.New()
	id := tbl.Allocate()
	tbl.Bind(id, 0, noop)

	entry := tbl.Lookup(id)
	assert.Equal(t, uint32(0), entry.Portal)
	require.NotNil(t, entry.Dispatch)
}

func TestReleaseRecyclesID(t *testing.T) {
	tbl := channel.New()
	id := tbl.Allocate()
	tbl.Bind(id, 1, noop)
	tbl.Release(id)

	next := tbl.Allocate()
	assert.Equal(t, id, next, "released IDs should be recycled before the monotonic counter advances")
}

func TestLookupUnboundChannelTraps(t *testing.T) {
	tbl := channel.New()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap looking up an unbound channel")
		}
	}()
	tbl.Lookup(42)
}

func TestLookupChannelZeroTraps(t *testing.T) {
	tbl := channel.New()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap looking up channel 0")
		}
	}()
	tbl.Lookup(0)
}
