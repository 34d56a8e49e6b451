package native

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/bindgen"
)

type span struct {
	ptr  uint32
	size uint32
}

// Arena is a first-fit allocator over a range of linear memory. It only
// keeps bookkeeping; the bytes live in whatever memory the range belongs to.
// Arena is safe for concurrent use.
type Arena struct {
	live  map[uint32]uint32
	grow  func(need uint32) (uint32, bool)
	free  []span
	mu    sync.Mutex
	limit uint32
}

// NewArena manages [base, limit). Base must be non-zero so that no
// allocation is ever the null pointer.
func NewArena(base, limit uint32) *Arena {
	if base == 0 {
		base = 8
	}
	a := &Arena{live: make(map[uint32]uint32), limit: limit}
	if limit > base {
		a.free = []span{{ptr: base, size: limit - base}}
	}
	return a
}

// SetGrow installs a callback that extends the managed range when no free
// span fits. It returns the new limit.
func (a *Arena) SetGrow(fn func(need uint32) (uint32, bool)) {
	a.mu.Lock()
	a.grow = fn
	a.mu.Unlock()
}

func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, fmt.Errorf("alignment %d is not a power of two", align)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if ptr, ok := a.fit(size, align); ok {
		return ptr, nil
	}
	if a.grow != nil {
		if limit, ok := a.grow(size + align); ok && limit > a.limit {
			a.insert(span{ptr: a.limit, size: limit - a.limit})
			a.limit = limit
			if ptr, ok := a.fit(size, align); ok {
				return ptr, nil
			}
		}
	}
	return 0, fmt.Errorf("arena exhausted: %d bytes (align %d)", size, align)
}

func (a *Arena) fit(size, align uint32) (uint32, bool) {
	for i, s := range a.free {
		start := (s.ptr + align - 1) &^ (align - 1)
		if start < s.ptr {
			continue
		}
		end := uint64(s.ptr) + uint64(s.size)
		if uint64(start)+uint64(size) > end {
			continue
		}
		var rest []span
		if start > s.ptr {
			rest = append(rest, span{ptr: s.ptr, size: start - s.ptr})
		}
		if tail := uint32(end - uint64(start) - uint64(size)); tail > 0 {
			rest = append(rest, span{ptr: start + size, size: tail})
		}
		a.free = append(a.free[:i], append(rest, a.free[i+1:]...)...)
		a.live[start] = size
		return start, true
	}
	return 0, false
}

// Free releases an allocation. Unknown pointers are logged and ignored.
func (a *Arena) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.live[ptr]
	if !ok {
		Logger().Warn("arena free of unknown pointer",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size))
		return
	}
	delete(a.live, ptr)
	a.insert(span{ptr: ptr, size: n})
}

// insert adds s to the sorted free list, merging with adjacent spans.
func (a *Arena) insert(s span) {
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].ptr > s.ptr })
	if i > 0 && a.free[i-1].ptr+a.free[i-1].size == s.ptr {
		a.free[i-1].size += s.size
		if i < len(a.free) && s.ptr+s.size == a.free[i].ptr {
			a.free[i-1].size += a.free[i].size
			a.free = append(a.free[:i], a.free[i+1:]...)
		}
		return
	}
	if i < len(a.free) && s.ptr+s.size == a.free[i].ptr {
		a.free[i].ptr = s.ptr
		a.free[i].size += s.size
		return
	}
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s
}

// Live returns the number of outstanding allocations.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// LiveBytes returns the number of bytes in outstanding allocations.
func (a *Arena) LiveBytes() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n uint64
	for _, size := range a.live {
		n += uint64(size)
	}
	return n
}

var _ bindgen.Allocator = (*Arena)(nil)
