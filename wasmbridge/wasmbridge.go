// Package wasmbridge adapts a WASM module to Superscript's Bridge
// interface, for hosts that want device/computed property resolution to
// run inside a sandboxed guest (e.g. a shared mobile/web runtime module)
// rather than as native Go closures.
//
// Guest ABI: the module must export
//
//	alloc(size: u32) -> ptr: u32
//	dealloc(ptr: u32, size: u32)
//	device_property(name_ptr, name_len, args_ptr, args_len: u32) -> packed: u64
//	computed_property(name_ptr, name_len, args_ptr, args_len: u32) -> packed: u64
//
// name_ptr/name_len address the raw UTF-8 property name. args_ptr/args_len
// address a JSON array of wire-encoded Values (see Value.MarshalJSON),
// written by the host into guest memory ahead of the call. The packed u64
// return unpacks (via unpackPtrLen) into a pointer/length pair addressing
// either a single wire-encoded Value (success) or a UTF-8 error message,
// discriminated by the high bit of the returned length: a set high bit
// means "this is an error string, not a Value". The caller deallocs both
// the argument buffer it wrote and the result buffer the guest returned.
//
// This mirrors the teacher's pointer/length packing and pooled-instance
// approach (evaluator.go, wasm.go) retargeted from the five-export
// flag-evaluation ABI to this two-export property-resolution ABI.
package wasmbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	superscript "github.com/superwallkit/superscript"
)

// errorLenBit marks a packed result length as an error message rather than
// a Value payload.
const errorLenBit = uint32(1) << 31

// Option configures a Bridge, following the same functional-options shape
// used throughout the rest of the module (options.go's Option).
type Option func(*config)

type config struct {
	poolSize int
}

// WithPoolSize sets the number of concurrent guest instances. Defaults to
// runtime.NumCPU(), matching the teacher's FlagEvaluator default.
func WithPoolSize(n int) Option {
	return func(c *config) { c.poolSize = n }
}

// wasmInstance holds one guest module instance and its exported functions.
// Unlike the teacher's wasmInstance, no buffers are pre-allocated: argument
// payloads are small and call-shaped rather than streamed, so each call
// allocates exactly what it needs and frees it immediately after.
type wasmInstance struct {
	module           api.Module
	allocFn          api.Function
	deallocFn        api.Function
	devicePropertyFn api.Function
	computedPropFn   api.Function
}

// Bridge evaluates device/computed property calls inside a pool of WASM
// guest instances. It implements superscript.Bridge and is safe for
// concurrent use.
type Bridge struct {
	ctx      context.Context
	rt       wazero.Runtime
	compiled wazero.CompiledModule
	pool     chan *wasmInstance
	poolSize int
}

// New compiles wasmBytes and instantiates a pool of guest instances
// implementing the ABI documented above. Call Close when done.
func New(wasmBytes []byte, opts ...Option) (*Bridge, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.poolSize <= 0 {
		cfg.poolSize = runtime.NumCPU()
	}

	ctx := context.Background()
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig())

	if err := registerHostFunctions(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wasmbridge: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wasmbridge: failed to compile module: %w", err)
	}

	b := &Bridge{
		ctx:      ctx,
		rt:       rt,
		compiled: compiled,
		pool:     make(chan *wasmInstance, cfg.poolSize),
		poolSize: cfg.poolSize,
	}

	for i := 0; i < cfg.poolSize; i++ {
		inst, err := b.newInstance(i)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("wasmbridge: failed to create instance %d: %w", i, err)
		}
		b.pool <- inst
	}

	return b, nil
}

func (b *Bridge) newInstance(id int) (*wasmInstance, error) {
	name := fmt.Sprintf("superscript_bridge_%d", id)
	mod, err := b.rt.InstantiateModule(b.ctx, b.compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module %q: %w", name, err)
	}

	allocFn := mod.ExportedFunction("alloc")
	deallocFn := mod.ExportedFunction("dealloc")
	deviceFn := mod.ExportedFunction("device_property")
	computedFn := mod.ExportedFunction("computed_property")

	if allocFn == nil || deallocFn == nil || deviceFn == nil || computedFn == nil {
		mod.Close(b.ctx)
		return nil, fmt.Errorf("guest module missing one of alloc/dealloc/device_property/computed_property")
	}

	return &wasmInstance{
		module:           mod,
		allocFn:          allocFn,
		deallocFn:        deallocFn,
		devicePropertyFn: deviceFn,
		computedPropFn:   computedFn,
	}, nil
}

// Close releases the runtime and every pooled instance.
func (b *Bridge) Close() error {
	for i := 0; i < b.poolSize; i++ {
		select {
		case inst := <-b.pool:
			inst.module.Close(b.ctx)
		default:
		}
	}
	return b.rt.Close(b.ctx)
}

// DeviceProperty implements superscript.Bridge.
func (b *Bridge) DeviceProperty(name string, args []superscript.Value) (superscript.Value, error) {
	return b.call(name, args, func(inst *wasmInstance) api.Function { return inst.devicePropertyFn })
}

// ComputedProperty implements superscript.Bridge.
func (b *Bridge) ComputedProperty(name string, args []superscript.Value) (superscript.Value, error) {
	return b.call(name, args, func(inst *wasmInstance) api.Function { return inst.computedPropFn })
}

func (b *Bridge) call(name string, args []superscript.Value, pick func(*wasmInstance) api.Function) (superscript.Value, error) {
	argsJSON, err := marshalArgs(args)
	if err != nil {
		return superscript.Null, fmt.Errorf("wasmbridge: encoding args for %q: %w", name, err)
	}

	inst := <-b.pool
	defer func() { b.pool <- inst }()

	namePtr, nameLen, err := writeToWasm(b.ctx, inst.module, inst.allocFn, []byte(name))
	if err != nil {
		return superscript.Null, fmt.Errorf("wasmbridge: writing name for %q: %w", name, err)
	}
	defer inst.deallocFn.Call(b.ctx, uint64(namePtr), uint64(nameLen))

	argsPtr, argsLen, err := writeToWasm(b.ctx, inst.module, inst.allocFn, argsJSON)
	if err != nil {
		return superscript.Null, fmt.Errorf("wasmbridge: writing args for %q: %w", name, err)
	}
	defer inst.deallocFn.Call(b.ctx, uint64(argsPtr), uint64(argsLen))

	fn := pick(inst)
	results, err := fn.Call(b.ctx, uint64(namePtr), uint64(nameLen), uint64(argsPtr), uint64(argsLen))
	if err != nil {
		return superscript.Null, fmt.Errorf("wasmbridge: call %q failed: %w", name, err)
	}

	rawPtr, rawLen := unpackPtrLen(results[0])
	isError := rawLen&errorLenBit != 0
	resultLen := rawLen &^ errorLenBit

	payload, err := readFromWasm(inst.module, rawPtr, resultLen)
	if err != nil {
		return superscript.Null, fmt.Errorf("wasmbridge: reading result of %q: %w", name, err)
	}
	defer inst.deallocFn.Call(b.ctx, uint64(rawPtr), uint64(resultLen))

	if isError {
		return superscript.Null, fmt.Errorf("wasmbridge: guest rejected %q: %s", name, string(payload))
	}

	var v superscript.Value
	if err := json.Unmarshal(payload, &v); err != nil {
		return superscript.Null, fmt.Errorf("wasmbridge: decoding result of %q: %w", name, err)
	}
	return v, nil
}

func marshalArgs(args []superscript.Value) ([]byte, error) {
	wire := make([]json.RawMessage, len(args))
	for i, a := range args {
		raw, err := a.MarshalJSON()
		if err != nil {
			return nil, err
		}
		wire[i] = raw
	}
	return json.Marshal(wire)
}
