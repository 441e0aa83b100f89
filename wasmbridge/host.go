package wasmbridge

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// registerHostFunctions instantiates the "host" module a device/computed
// guest may import. Unlike the flagd-evaluator WASM blob, a Superscript
// bridge guest is not produced by wasm-bindgen, so none of the
// __wbindgen_* shims apply here — only the two capabilities a property
// resolver plausibly needs from outside its own linear memory: wall-clock
// time and entropy.
func registerHostFunctions(ctx context.Context, r wazero.Runtime) error {
	_, err := r.NewHostModuleBuilder("host").
		NewFunctionBuilder().
		WithFunc(func() int64 {
			return time.Now().Unix()
		}).
		Export("get_current_time_unix_seconds").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, bufferPtr, length uint32) {
			buf := make([]byte, length)
			_, _ = rand.Read(buf)
			mod.Memory().Write(bufferPtr, buf)
		}).
		Export("fill_random").
		Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("wasmbridge: failed to instantiate host module: %w", err)
	}
	return nil
}
