package bindgen

import "context"

// Memory is the native core's linear memory as seen by the caller. Values
// cross it only as whole encoded buffers.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
}

// MemorySizer provides the current size of linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates in native linear memory. Buffers handed to the native
// core and buffers the native core hands back are always released through
// the allocator that produced them.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// ContextAllocator is implemented by allocators that run native code.
// WithContext returns a view of the allocator whose native calls observe ctx.
type ContextAllocator interface {
	Allocator
	WithContext(ctx context.Context) Allocator
}

// AllocatorContext binds a to ctx if a runs native code and returns it
// unchanged otherwise.
func AllocatorContext(ctx context.Context, a Allocator) Allocator {
	if ca, ok := a.(ContextAllocator); ok {
		return ca.WithContext(ctx)
	}
	return a
}
