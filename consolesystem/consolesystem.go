// Package consolesystem is a reference system.System implementation backed
// by a terminal: it forwards the log portal to a *logrus.Logger and
// services the prompt portal by reading lines from an io.Reader (typically
// os.Stdin). It exists to give the engine something real to run against
// from the command line (see cmd/ardaku) and as a worked example for
// embedders writing their own System.
package consolesystem

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ardaku/ardaku/system"
)

// pendingPrompt is a queued read-line request awaiting completion in Sleep.
type pendingPrompt struct {
	ready, textRef, capacityRef uint32
}

// System is a console-backed system.System.
type System struct {
	logger *logrus.Logger
	reader *bufio.Reader

	queue []*pendingPrompt

	// retainedLine holds a line that didn't fit a previous request's
	// buffer, waiting to be offered to the next request in its place —
	// the guest is expected to retry the same logical read with a bigger
	// buffer, which arrives here as a brand new pendingPrompt.
	retainedLine *string
}

// New returns a System that logs through logger and reads prompt lines
// from in.
func New(logger *logrus.Logger, in io.Reader) *System {
	return &System{
		logger: logger,
		reader: bufio.NewReader(in),
	}
}

var _ system.System = (*System)(nil)

// Log implements system.System.
func (s *System) Log(_ context.Context, text string, level system.Level, target string) {
	entry := s.logger.WithField("target", target)
	switch level {
	case system.LevelFatal, system.LevelError:
		entry.Error(text)
	case system.LevelWarn:
		entry.Warn(text)
	case system.LevelInfo:
		entry.Info(text)
	case system.LevelDebug:
		entry.Debug(text)
	case system.LevelTrace:
		entry.Trace(text)
	default:
		entry.Info(text)
	}
}

// ReadLine implements system.System. It must return promptly, so it only
// enqueues the request; the actual (possibly blocking) read happens inside
// the next Sleep call.
func (s *System) ReadLine(_ context.Context, _ system.Memory, ready, textRef, capacityRef uint32) {
	s.queue = append(s.queue, &pendingPrompt{ready: ready, textRef: textRef, capacityRef: capacityRef})
}

// Sleep implements system.System. It drains queued prompt requests in
// order, blocking on the underlying reader as needed. Each request is
// popped and resolved exactly once: if its buffer is too small, fulfill
// reports the required capacity and retains the line for whatever request
// arrives next, but the current request still completes (with ready
// written exactly once) rather than being retried within this call.
func (s *System) Sleep(_ context.Context, mem system.Memory, capacity, readyData uint32) uint32 {
	var written uint32

	for len(s.queue) > 0 && written < capacity {
		req := s.queue[0]
		s.queue = s.queue[1:]

		line, ok := s.captureLine()
		if !ok {
			// The reader is exhausted (EOF); there is nothing left to
			// complete this request with, so it is dropped silently.
			continue
		}

		s.fulfill(mem, req, line)
		writeReadyID(mem, readyData, written, req.ready)
		written++
	}

	return written
}

// captureLine returns the line to offer the next request: one retained
// from a prior capacity-too-small completion, or a freshly read one.
func (s *System) captureLine() (string, bool) {
	if s.retainedLine != nil {
		line := *s.retainedLine
		s.retainedLine = nil
		return line, true
	}

	raw, err := s.reader.ReadString('\n')
	if raw == "" && err != nil {
		return "", false
	}
	return strings.TrimRight(raw, "\r\n"), true
}

// fulfill applies the prompt portal's capacity contract: if the line fits,
// it's copied into the guest's buffer; otherwise the guest's capacity cell
// is updated with the required size and the line is retained on s so the
// next request to reach Sleep (the guest's resized retry) can reuse it
// instead of blocking on a fresh read.
func (s *System) fulfill(mem system.Memory, req *pendingPrompt, line string) {
	n := uint32(len(line))

	capacityWindow, ok := mem.Read(req.capacityRef, 4)
	if !ok {
		return
	}
	capacity := binary.LittleEndian.Uint32(capacityWindow)

	textRefWindow, ok := mem.Read(req.textRef, 8)
	if !ok {
		return
	}
	bufPtr := binary.LittleEndian.Uint32(textRefWindow[4:8])

	if n <= capacity {
		binary.LittleEndian.PutUint32(textRefWindow[0:4], n)
		mem.Write(bufPtr, []byte(line))
		return
	}

	binary.LittleEndian.PutUint32(capacityWindow, n)
	s.retainedLine = &line
}

func writeReadyID(mem system.Memory, readyData, slot, id uint32) {
	window, ok := mem.Read(readyData+4*slot, 4)
	if !ok {
		return
	}
	binary.LittleEndian.PutUint32(window, id)
}
