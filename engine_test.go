package ardaku

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/Workiva/go-datastructures/bitarray"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardaku/ardaku/channel"
	"github.com/ardaku/ardaku/system"
)

// fakeMemory is an in-process stand-in for a guest's linear memory, used to
// exercise the dispatcher and portal logic without compiling and running a
// real Wasm module.
type fakeMemory struct {
	data []byte
}

func newFakeMemory(size int) *fakeMemory {
	return &fakeMemory{data: make([]byte, size)}
}

func (m *fakeMemory) Read(offset, n uint32) ([]byte, bool) {
	if uint64(offset)+uint64(n) > uint64(len(m.data)) {
		return nil, false
	}
	return m.data[offset : offset+n], true
}

func (m *fakeMemory) Write(offset uint32, data []byte) bool {
	if uint64(offset)+uint64(len(data)) > uint64(len(m.data)) {
		return false
	}
	copy(m.data[offset:], data)
	return true
}

func (m *fakeMemory) putU32(offset uint32, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	m.Write(offset, b[:])
}

func (m *fakeMemory) putU16(offset uint32, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	m.Write(offset, b[:])
}

// command writes a 16-byte command record at offset.
func (m *fakeMemory) command(offset, size, data, channel, ready uint32) {
	m.putU32(offset, size)
	m.putU32(offset+4, data)
	m.putU32(offset+8, channel)
	m.putU32(offset+12, ready)
}

type logCall struct {
	text   string
	level  system.Level
	target string
}

type readLineCall struct {
	ready, textRef, capacityRef uint32
}

type fakeSystem struct {
	logs      []logCall
	readLines []readLineCall
	sleepFn   func(mem system.Memory, capacity, readyData uint32) uint32
}

func (s *fakeSystem) Log(_ context.Context, text string, level system.Level, target string) {
	s.logs = append(s.logs, logCall{text, level, target})
}

func (s *fakeSystem) ReadLine(_ context.Context, _ system.Memory, ready, textRef, capacityRef uint32) {
	s.readLines = append(s.readLines, readLineCall{ready, textRef, capacityRef})
}

func (s *fakeSystem) Sleep(_ context.Context, mem system.Memory, capacity, readyData uint32) uint32 {
	if s.sleepFn != nil {
		return s.sleepFn(mem, capacity, readyData)
	}
	return 0
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Warnf(string, ...any)  {}

func newTestState(sys system.System) *guestState {
	return &guestState{
		ctx:     context.Background(),
		sys:     sys,
		table:   channel.New(),
		enabled: bitarray.NewBitArray(uint64(portalCount)),
		metrics: newMetrics(prometheus.NewRegistry()),
		logger:  noopLogger{},
	}
}

// TestConnectAndLog connects a guest requesting the Log portal, checks that
// it receives a channel ID back in its portals array, and then logs a
// message over that channel.
func TestConnectAndLog(t *testing.T) {
	sys := &fakeSystem{}
	st := newTestState(sys)
	mem := newFakeMemory(256)

	// Layout:
	//   0   : command array (1 record) for the connect call
	//   16  : connect payload
	//   48  : portals array (1 entry)
	//   64  : ready list (capacity 4)
	const (
		cmdArray    = 0
		connectData = 16
		portals     = 48
		readyList   = 64
	)

	mem.command(cmdArray, connectSize, connectData, 0 /* connector */, 0xAAAAAAAA)
	mem.putU32(connectData+0, 1)         // portals_size
	mem.putU32(connectData+4, portals)   // portals_data
	mem.putU32(connectData+8, 4)         // ready_capacity
	mem.putU32(connectData+12, readyList) // ready_data
	mem.putU32(portals, PortalLog)

	n := st.handleAR(context.Background(), mem, 1, cmdArray)
	require.Equal(t, uint32(0), n, "connect completes synchronously")

	chID, ok := mem.Read(portals, 4)
	require.True(t, ok)
	channelID := binary.LittleEndian.Uint32(chID)
	assert.GreaterOrEqual(t, channelID, uint32(1))

	for i := uint32(0); i < 4; i++ {
		slot, ok := mem.Read(readyList+4*i, 4)
		require.True(t, ok)
		assert.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(slot))
	}

	// Log a message over the channel we just opened.
	const (
		logCmdArray = 80
		logPayload  = 96
		targetData  = 112
		messageData = 128
	)

	copy(mem.data[targetData:], "ardaku")
	copy(mem.data[messageData:], "hello")

	mem.putU16(logPayload+0, 6)    // target_size
	mem.putU16(logPayload+2, 3)    // level = Info
	mem.putU32(logPayload+4, targetData)
	mem.putU32(logPayload+8, 5) // message_size
	mem.putU32(logPayload+12, messageData)

	mem.command(logCmdArray, logCommandSize, logPayload, channelID, 1)

	n = st.handleAR(context.Background(), mem, 1, logCmdArray)
	assert.Equal(t, uint32(0), n)

	require.Len(t, sys.logs, 1)
	assert.Equal(t, "hello", sys.logs[0].text)
	assert.Equal(t, system.LevelInfo, sys.logs[0].level)
	assert.Equal(t, "ardaku", sys.logs[0].target)
}

// TestPromptDeferredThenSleep checks that a prompt command registers async
// work, so ar must call Sleep, and whatever Sleep returns becomes ar's own
// return value.
func TestPromptDeferredThenSleep(t *testing.T) {
	sys := &fakeSystem{
		sleepFn: func(mem system.Memory, capacity, readyData uint32) uint32 {
			window, ok := mem.Read(readyData, 4)
			require.True(t, ok)
			binary.LittleEndian.PutUint32(window, 7) // the ready id from the prompt command below
			return 1
		},
	}
	st := newTestState(sys)
	mem := newFakeMemory(128)

	const (
		cmdArray  = 0
		connectData = 16
		portals   = 48
		readyList = 64
		promptCmd = 80
		promptPayload = 96
	)

	mem.command(cmdArray, connectSize, connectData, 0, 0)
	mem.putU32(connectData+0, 1)
	mem.putU32(connectData+4, portals)
	mem.putU32(connectData+8, 4)
	mem.putU32(connectData+12, readyList)
	mem.putU32(portals, PortalPrompt)
	st.handleAR(context.Background(), mem, 1, cmdArray)

	chID, _ := mem.Read(portals, 4)
	channelID := binary.LittleEndian.Uint32(chID)

	mem.putU32(promptPayload+0, 200) // capacity_ref (unused by this fake)
	mem.putU32(promptPayload+4, 208) // text_ref (unused by this fake)
	mem.command(promptCmd, promptCommandSize, promptPayload, channelID, 7)

	n := st.handleAR(context.Background(), mem, 1, promptCmd)
	assert.Equal(t, uint32(1), n)

	require.Len(t, sys.readLines, 1)
	assert.Equal(t, uint32(7), sys.readLines[0].ready)
}

// TestConnectUnknownPortalTraps checks that connecting an unrecognized
// portal ID traps.
func TestConnectUnknownPortalTraps(t *testing.T) {
	sys := &fakeSystem{}
	st := newTestState(sys)
	mem := newFakeMemory(128)

	const (
		cmdArray    = 0
		connectData = 16
		portals     = 48
		readyList   = 64
	)
	mem.command(cmdArray, connectSize, connectData, 0, 0)
	mem.putU32(connectData+0, 1)
	mem.putU32(connectData+4, portals)
	mem.putU32(connectData+8, 4)
	mem.putU32(connectData+12, readyList)
	mem.putU32(portals, 99) // invalid portal id

	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap for an unknown portal id")
		}
	}()
	st.handleAR(context.Background(), mem, 1, cmdArray)
}

// TestLogFatalForwardsThenTraps checks that a fatal-level log message is
// still forwarded to the embedder before the host traps.
func TestLogFatalForwardsThenTraps(t *testing.T) {
	sys := &fakeSystem{}
	st := newTestState(sys)
	require.NoError(t, st.enabled.SetBit(uint64(PortalLog)))
	chID := st.table.Allocate()
	st.table.Bind(chID, PortalLog, st.logDispatch)

	mem := newFakeMemory(128)
	const (
		cmdArray    = 0
		logPayload  = 16
		messageData = 48
	)
	copy(mem.data[messageData:], "boom")
	mem.putU16(logPayload+0, 0) // target_size
	mem.putU16(logPayload+2, 0) // level = Fatal
	mem.putU32(logPayload+4, messageData)
	mem.putU32(logPayload+8, 4) // message_size
	mem.putU32(logPayload+12, messageData)
	mem.command(cmdArray, logCommandSize, logPayload, chID, 1)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a trap after forwarding a fatal log message")
		}
		require.Len(t, sys.logs, 1)
		assert.Equal(t, "boom", sys.logs[0].text)
		assert.Equal(t, system.LevelError, sys.logs[0].level)
	}()
	st.handleAR(context.Background(), mem, 1, cmdArray)
}

func TestHasStartSection(t *testing.T) {
	header := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	withoutStart := append(append([]byte{}, header...), 0x01, 0x00) // type section, empty
	assert.False(t, hasStartSection(withoutStart))

	withStart := append(append([]byte{}, header...), 0x08, 0x00) // start section, empty
	assert.True(t, hasStartSection(withStart))
}
