package native

import (
	"fmt"

	"github.com/wippyai/bindgen"
)

// Heap is a fixed-size linear memory backed by a Go byte slice. It never
// grows, so slices returned by Read stay valid for the life of the heap.
type Heap struct {
	data []byte
}

func NewHeap(pages uint32) *Heap {
	return &Heap{data: make([]byte, int(pages)*PageSize)}
}

func (h *Heap) inBounds(offset uint32, length uint64) bool {
	return uint64(offset)+length <= uint64(len(h.data))
}

func (h *Heap) Read(offset uint32, length uint32) ([]byte, error) {
	if !h.inBounds(offset, uint64(length)) {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return h.data[offset : offset+length], nil
}

func (h *Heap) Write(offset uint32, data []byte) error {
	if !h.inBounds(offset, uint64(len(data))) {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	copy(h.data[offset:], data)
	return nil
}

func (h *Heap) Size() uint32 {
	return uint32(len(h.data))
}

var _ bindgen.Memory = (*Heap)(nil)
var _ bindgen.MemorySizer = (*Heap)(nil)
