package native

import (
	"context"

	"github.com/wippyai/bindgen"
)

// Entry points every library provides in addition to its declared functions.
const (
	DropString = "__bindgen_drop_string" // (ptr, len) frees a returned string
	FreeBuffer = "__bindgen_free_buffer" // (ptr, len) frees a returned buffer
	Describe   = "__bindgen_describe"    // () -> (ptr, len) CBOR declarations
	DropPrefix = "__bindgen_drop__"
)

// PageSize is the unit of linear memory growth.
const PageSize = 65536

// DropName returns the disposal entry point of a handle type.
func DropName(typeName string) string {
	return DropPrefix + typeName
}

// Func is a native entry point. Parameters and results are flat slots: one
// per scalar, enum or handle, two (pointer, length) per string or buffer.
type Func func(ctx context.Context, params []uint64) ([]uint64, error)

// Library is a loaded native core: its entry points plus the memory and
// allocator its buffers live in.
type Library interface {
	Memory() bindgen.Memory
	Allocator() bindgen.Allocator
	Func(name string) (Func, bool)
	Close(ctx context.Context) error
}
