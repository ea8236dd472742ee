package ardaku

import (
	"context"

	"github.com/ardaku/ardaku/buffer"
	"github.com/ardaku/ardaku/system"
	"github.com/ardaku/ardaku/trap"
)

// logCommandSize is the size in bytes of the log portal's command payload:
// target_size u16, level u16, target_data u32, message_size u32,
// message_data u32.
const logCommandSize = 16

// maxTargetLen is the longest target name the host will read, regardless of
// the target_size the guest claims: targets of 256 bytes or more are
// truncated to 255.
const maxTargetLen = 255

// logDispatch implements the Log portal. It decodes the log header,
// validates both strings as UTF-8, and forwards the message to the embedder
// at the mapped severity. Level 0 (Fatal) forwards at Error severity and
// then traps. Log always completes synchronously.
func (st *guestState) logDispatch(ctx context.Context, mem system.Memory, ready, size, data uint32) bool {
	if size != logCommandSize {
		trap.Raise("log: payload size %d != %d", size, logCommandSize)
	}

	payload, ok := mem.Read(data, logCommandSize)
	if !ok {
		trap.Raise("log: payload out of bounds at %d", data)
	}

	cur := buffer.New(payload)
	targetSize := cur.ReadU16()
	level := cur.ReadU16()
	targetData := cur.ReadU32()
	messageSize := cur.ReadU32()
	messageData := cur.ReadU32()

	targetLen := uint32(targetSize)
	if targetLen > maxTargetLen {
		targetLen = maxTargetLen
	}

	targetBytes, ok := mem.Read(targetData, targetLen)
	if !ok {
		trap.Raise("log: target out of bounds at %d (len %d)", targetData, targetLen)
	}
	target := buffer.New(targetBytes).ReadString(int(targetLen))

	messageBytes, ok := mem.Read(messageData, messageSize)
	if !ok {
		trap.Raise("log: message out of bounds at %d (len %d)", messageData, messageSize)
	}
	message := buffer.New(messageBytes).ReadString(int(messageSize))

	lvl, fatal, ok := decodeLevel(level)
	if !ok {
		trap.Raise("log: invalid level %d", level)
	}

	st.metrics.logsByLevel.WithLabelValues(lvl.String()).Inc()
	st.sys.Log(ctx, message, lvl, target)

	if fatal {
		trap.Raise("log: fatal: %s", message)
	}

	return true
}

// decodeLevel maps the log portal's wire level to a system.Level and
// whether it represents the fatal case, which logs at Error severity and
// then traps.
func decodeLevel(wire uint16) (level system.Level, fatal bool, ok bool) {
	switch wire {
	case 0:
		return system.LevelError, true, true
	case 1:
		return system.LevelError, false, true
	case 2:
		return system.LevelWarn, false, true
	case 3:
		return system.LevelInfo, false, true
	case 4:
		return system.LevelDebug, false, true
	case 5:
		return system.LevelTrace, false, true
	default:
		return 0, false, false
	}
}
