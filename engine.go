// Package ardaku is the host–guest asynchronous request engine: it
// instantiates a single untrusted Wasm guest, exposes the "ar" and "dbg"
// imports under module name "daku", and multiplexes the guest's requests
// onto the portals an embedder's System implements.
package ardaku

import (
	"context"

	"github.com/Workiva/go-datastructures/bitarray"
	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/ardaku/ardaku/channel"
	"github.com/ardaku/ardaku/system"
)

const (
	importModule = "daku"
	exportMemory = "memory"
	exportRun    = "run"

	i32 = api.ValueTypeI32
)

// readySentinel is written into unused ready-list slots when ar returns 0.
const readySentinel uint32 = 0xFFFFFFFF

// guestState is the per-guest state the engine keeps for the lifetime of a
// single Run: the channel table, the portal enable set, the ready list
// location, and the embedder handle. It is created at engine start and
// discarded when the guest exits -- there is no persistence across runs.
type guestState struct {
	ctx context.Context

	sys     system.System
	table   *channel.Table
	enabled bitarray.BitArray // one bit per portal ID, set once connect binds it

	readyCapacity uint32
	readyData     uint32

	metrics *metrics
	logger  logger
}

// logger is the narrow slice of *logrus.Logger the engine needs for its own
// diagnostics, kept small so it's trivial to fake in tests.
type logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// Run instantiates wasmBytes as the single guest module, wires the "daku"
// imports, invokes its "run" export, and blocks until the guest exits or
// traps. sys services the guest's portal requests for the lifetime of the
// call.
func Run(ctx context.Context, wasmBytes []byte, sys system.System, opts ...Option) error {
	cfg := newConfig(opts)

	if hasStartSection(wasmBytes) {
		return errors.Wrap(ErrInvalidWasm, "guest declares a wasm start function, which ardaku forbids")
	}

	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return errors.Wrap(ErrInvalidWasm, err.Error())
	}
	defer compiled.Close(ctx)

	st := &guestState{
		ctx:     ctx,
		sys:     sys,
		table:   channel.New(),
		enabled: bitarray.NewBitArray(uint64(portalCount)),
		metrics: newMetrics(cfg.registerer),
		logger:  cfg.logger,
	}

	hostBuilder := runtime.NewHostModuleBuilder(importModule)
	hostBuilder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(st.arImport), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		WithParameterNames("size", "data").
		Export("ar")
	hostBuilder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(st.dbgImport), []api.ValueType{i32, i32}, []api.ValueType{}).
		WithParameterNames("size", "text").
		Export("dbg")
	if _, err := hostBuilder.Instantiate(ctx); err != nil {
		return errors.Wrap(ErrLinkerFailed, err.Error())
	}

	modConfig := wazero.NewModuleConfig().WithName("guest")
	if cfg.stdout != nil {
		modConfig = modConfig.WithStdout(cfg.stdout)
	}
	if cfg.stderr != nil {
		modConfig = modConfig.WithStderr(cfg.stderr)
	}

	guest, err := runtime.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		return errors.Wrap(ErrLinkerFailed, err.Error())
	}
	defer guest.Close(ctx)

	if guest.ExportedMemory(exportMemory) == nil {
		return ErrMissingMemory
	}

	runFn := guest.ExportedFunction(exportRun)
	if runFn == nil {
		return ErrMissingRun
	}
	if def := runFn.Definition(); len(def.ParamTypes()) != 0 || len(def.ResultTypes()) != 0 {
		return errors.Wrapf(ErrMissingRun, "exported run has signature %s -> %s, want () -> ()",
			def.ParamTypes(), def.ResultTypes())
	}

	if _, err := runFn.Call(ctx); err != nil {
		st.metrics.traps.Inc()
		st.logger.Warnf("guest crashed: %v", err)
		return &CrashError{Cause: err}
	}
	st.logger.Debugf("guest exited cleanly")
	return nil
}

// arImport adapts the wazero Go-module-function calling convention to
// handleAR.
func (st *guestState) arImport(ctx context.Context, mod api.Module, stack []uint64) {
	size := api.DecodeU32(stack[0])
	data := api.DecodeU32(stack[1])

	mem := wazeroMemory{mod.Memory()}
	n := st.handleAR(ctx, mem, size, data)
	stack[0] = uint64(n)
}

// dbgImport adapts the wazero Go-module-function calling convention to
// handleDebug.
func (st *guestState) dbgImport(ctx context.Context, mod api.Module, stack []uint64) {
	size := api.DecodeU32(stack[0])
	text := api.DecodeU32(stack[1])

	mem := wazeroMemory{mod.Memory()}
	st.handleDebug(ctx, mem, size, text)
}

// wazeroMemory adapts api.Memory to system.Memory so the rest of the engine
// -- and the system package it hands windows to -- never needs to import
// wazero directly.
type wazeroMemory struct {
	mem api.Memory
}

func (w wazeroMemory) Read(offset, byteCount uint32) ([]byte, bool) {
	return w.mem.Read(offset, byteCount)
}

func (w wazeroMemory) Write(offset uint32, data []byte) bool {
	return w.mem.Write(offset, data)
}

// hasStartSection reports whether the Wasm binary declares a start
// section (id 8), which ardaku forbids a guest from using -- the engine
// alone decides when the guest runs, by calling its "run" export.
//
// wazero always executes a module's start section during instantiation (as
// required by the core Wasm spec), with no option to suppress it, so this
// must be checked before compilation.
func hasStartSection(wasmBytes []byte) bool {
	const (
		magic       = "\x00asm"
		headerLen   = 8 // 4-byte magic + 4-byte version
		startSecID  = 8
	)

	if len(wasmBytes) < headerLen || string(wasmBytes[:4]) != magic {
		return false // let CompileModule report the real error
	}

	b := wasmBytes[headerLen:]
	for len(b) > 0 {
		id := b[0]
		b = b[1:]

		size, n := readVarUint32(b)
		if n == 0 || uint64(n)+uint64(size) > uint64(len(b)) {
			return false // malformed; let CompileModule report the real error
		}
		b = b[n:]

		if id == startSecID {
			return true
		}
		b = b[size:]
	}
	return false
}

// readVarUint32 decodes a LEB128-encoded u32 from the head of b, returning
// the value and the number of bytes consumed (0 on malformed input).
func readVarUint32(b []byte) (value uint32, n int) {
	var shift uint
	for i, c := range b {
		if i >= 5 {
			return 0, 0
		}
		value |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return value, i + 1
		}
		shift += 7
	}
	return 0, 0
}
