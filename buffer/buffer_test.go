package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ardaku/ardaku/buffer"
)

func TestRoundTrip(t *testing.T) {
	window := make([]byte, 32)

	w := buffer.New(window)
	w.WriteU8(0xAB)
	w.WriteU16(0x1234)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(0x0102030405060708)
	w.WriteString("ardaku")

	r := buffer.New(window)
	assert.Equal(t, uint8(0xAB), r.ReadU8())
	assert.Equal(t, uint16(0x1234), r.ReadU16())
	assert.Equal(t, uint32(0xDEADBEEF), r.ReadU32())
	assert.Equal(t, uint64(0x0102030405060708), r.ReadU64())
	assert.Equal(t, "ardaku", r.ReadString(len("ardaku")))
}

func TestReadOutOfBoundsTraps(t *testing.T) {
	window := make([]byte, 2)
	r := buffer.New(window)

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected a panic from an out-of-bounds read")
		}
	}()
	r.ReadU32()
}

func TestInvalidUTF8Traps(t *testing.T) {
	window := []byte{0xFF, 0xFE, 0xFD}

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic from invalid utf-8")
		}
	}()
	buffer.New(window).ReadString(len(window))
}

func TestWriteOutOfBoundsTraps(t *testing.T) {
	window := make([]byte, 1)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic from an out-of-bounds write")
		}
	}()
	buffer.New(window).WriteU64(1)
}
