package transcoder

import (
	"sync"

	"github.com/wippyai/bindgen"
	"github.com/wippyai/bindgen/errors"
)

type Memory = bindgen.Memory
type Allocator = bindgen.Allocator

type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// AllocationList records native buffers borrowed for one call so they can be
// freed through the same allocator once the call returns.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 8)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns to pool. Must call after Free(); list invalid after Release.
func (al *AllocationList) Release() {
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

func (al *AllocationList) FreeAndRelease(allocator Allocator) {
	al.Free(allocator)
	al.Release()
}

func (al *AllocationList) Add(ptr, size, align uint32) {
	al.allocations = append(al.allocations, Allocation{
		Ptr:   ptr,
		Size:  size,
		Align: align,
	})
}

func (al *AllocationList) Free(allocator Allocator) {
	if allocator == nil {
		return
	}
	for _, a := range al.allocations {
		if a.Ptr != 0 {
			allocator.Free(a.Ptr, a.Size, a.Align)
		}
	}
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}

// WriteBuffer copies data into a fresh native allocation and records it in
// list. Empty data is passed as a null pointer without allocating.
func WriteBuffer(mem Memory, alloc Allocator, data []byte, list *AllocationList) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if len(data) > MaxAlloc {
		return 0, errors.AllocationFailed(errors.PhaseEncode, uint32(min(len(data), 1<<32-1)), 1, nil)
	}
	size := uint32(len(data))
	ptr, err := alloc.Alloc(size, 1)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, 1, err)
	}
	if list != nil {
		list.Add(ptr, size, 1)
	}
	if err := mem.Write(ptr, data); err != nil {
		return 0, errors.New(errors.PhaseEncode, errors.KindAllocation).Cause(err).
			Detail("write %d bytes at %#x", size, ptr).Build()
	}
	return ptr, nil
}

// ReadBuffer copies length bytes at ptr out of native memory. The result
// never aliases native memory.
func ReadBuffer(mem Memory, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if length > MaxAlloc {
		return nil, errors.InvalidEncoding(errors.PhaseDecode, nil, "buffer length exceeds maximum allocation")
	}
	b, err := mem.Read(ptr, length)
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindTruncatedInput).Cause(err).
			Detail("read %d bytes at %#x", length, ptr).Build()
	}
	return append([]byte(nil), b...), nil
}
