package wasmbridge

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// maxArgSize bounds a single name/args payload written into guest memory for
// one call. Device/computed calls carry a function name and a handful of
// Value arguments, nowhere near flag-evaluation context sizes, so this is
// far smaller than the teacher's maxContextSize.
const maxArgSize = 64 * 1024

// unpackPtrLen unpacks a u64 return value into pointer (upper 32 bits) and
// length (lower 32 bits), matching the packing convention the guest module
// is expected to use for its two exports (see ABI doc in wasmbridge.go).
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)
	length = uint32(packed & 0xFFFFFFFF)
	return
}

// writeToWasm allocates guest memory via allocFn and writes data into it.
// The caller must dealloc the returned pointer once done.
func writeToWasm(ctx context.Context, mod api.Module, allocFn api.Function, data []byte) (uint32, uint32, error) {
	if len(data) > maxArgSize {
		return 0, 0, fmt.Errorf("payload of %d bytes exceeds limit of %d", len(data), maxArgSize)
	}
	dataLen := uint32(len(data))
	results, err := allocFn.Call(ctx, uint64(dataLen))
	if err != nil {
		return 0, 0, fmt.Errorf("alloc failed: %w", err)
	}
	ptr := uint32(results[0])

	if dataLen > 0 && !mod.Memory().Write(ptr, data) {
		return 0, 0, fmt.Errorf("memory write failed at ptr=%d len=%d", ptr, dataLen)
	}
	return ptr, dataLen, nil
}

// readFromWasm copies length bytes out of guest linear memory starting at
// ptr. A copy is made because wazero's Memory.Read view may be invalidated
// by a subsequent call into the module (e.g. dealloc).
func readFromWasm(mod api.Module, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	view, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("memory read failed at ptr=%d len=%d", ptr, length)
	}
	data := make([]byte, length)
	copy(data, view)
	return data, nil
}
