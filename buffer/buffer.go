// Package buffer implements the little-endian, cursor-style codec used to
// read and write structured messages inside a borrowed window of guest
// linear memory. A Cursor owns no allocation of its own: it is a view over
// a byte slice that the caller obtained fresh from the Wasm engine, and it
// advances past each field as it is read or written so sequential field
// access composes naturally.
//
// Every operation checks the remaining window before touching it and raises
// a host trap (see the trap package) rather than ever reading or writing
// out of bounds.
package buffer

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/ardaku/ardaku/trap"
)

// Cursor reads and writes sequential fields from a borrowed byte window.
type Cursor struct {
	window []byte
	offset int
}

// New wraps window in a Cursor positioned at its start. window is not
// copied; writes through the Cursor mutate it directly.
func New(window []byte) *Cursor {
	return &Cursor{window: window}
}

// Len returns the number of bytes remaining in the window.
func (c *Cursor) Len() int {
	return len(c.window) - c.offset
}

func (c *Cursor) require(n int) {
	if c.Len() < n {
		trap.Raise("buffer: out of bounds access (need %d bytes, have %d)", n, c.Len())
	}
}

// ReadU8 reads and advances past a single byte.
func (c *Cursor) ReadU8() uint8 {
	c.require(1)
	v := c.window[c.offset]
	c.offset++
	return v
}

// ReadU16 reads a little-endian u16.
func (c *Cursor) ReadU16() uint16 {
	c.require(2)
	v := binary.LittleEndian.Uint16(c.window[c.offset:])
	c.offset += 2
	return v
}

// ReadU32 reads a little-endian u32.
func (c *Cursor) ReadU32() uint32 {
	c.require(4)
	v := binary.LittleEndian.Uint32(c.window[c.offset:])
	c.offset += 4
	return v
}

// ReadU64 reads a little-endian u64.
func (c *Cursor) ReadU64() uint64 {
	c.require(8)
	v := binary.LittleEndian.Uint64(c.window[c.offset:])
	c.offset += 8
	return v
}

// ReadString reads n bytes and validates them as UTF-8, trapping on invalid
// encoding.
func (c *Cursor) ReadString(n int) string {
	c.require(n)
	b := c.window[c.offset : c.offset+n]
	if !utf8.Valid(b) {
		trap.Raise("buffer: invalid utf-8 in %d-byte string field", n)
	}
	c.offset += n
	return string(b)
}

// ReadBytes reads and returns n raw bytes without UTF-8 validation.
func (c *Cursor) ReadBytes(n int) []byte {
	c.require(n)
	b := c.window[c.offset : c.offset+n]
	c.offset += n
	return b
}

// WriteU8 writes a single byte.
func (c *Cursor) WriteU8(v uint8) {
	c.require(1)
	c.window[c.offset] = v
	c.offset++
}

// WriteU16 writes a little-endian u16.
func (c *Cursor) WriteU16(v uint16) {
	c.require(2)
	binary.LittleEndian.PutUint16(c.window[c.offset:], v)
	c.offset += 2
}

// WriteU32 writes a little-endian u32.
func (c *Cursor) WriteU32(v uint32) {
	c.require(4)
	binary.LittleEndian.PutUint32(c.window[c.offset:], v)
	c.offset += 4
}

// WriteU64 writes a little-endian u64.
func (c *Cursor) WriteU64(v uint64) {
	c.require(8)
	binary.LittleEndian.PutUint64(c.window[c.offset:], v)
	c.offset += 8
}

// WriteBytes copies b into the window.
func (c *Cursor) WriteBytes(b []byte) {
	c.require(len(b))
	copy(c.window[c.offset:], b)
	c.offset += len(b)
}

// WriteString writes the UTF-8 bytes of s into the window.
func (c *Cursor) WriteString(s string) {
	c.WriteBytes([]byte(s))
}
