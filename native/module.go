package native

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/bindgen"
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/resource"
	"github.com/wippyai/bindgen/schema"
)

const (
	defaultPages = 16
	maxPages     = 65535
)

type config struct {
	pages uint32
}

// Option configures a Module.
type Option func(*config)

// WithMemoryPages sets the size of the module heap in 64KiB pages.
func WithMemoryPages(n uint32) Option {
	return func(c *config) {
		if n > 0 && n <= maxPages {
			c.pages = n
		}
	}
}

// Module is a native core implemented in Go. Entry points are Go functions
// over a private heap; handle types keep their objects in an Objects table.
// The heap arena serialises all allocation.
type Module struct {
	heap    *Heap
	arena   *Arena
	objects *resource.Objects
	funcs   map[string]Func
	Buffers
	mu     sync.RWMutex
	closed bool
}

func NewModule(opts ...Option) *Module {
	cfg := config{pages: defaultPages}
	for _, opt := range opts {
		opt(&cfg)
	}
	heap := NewHeap(cfg.pages)
	arena := NewArena(8, heap.Size())
	m := &Module{
		heap:    heap,
		arena:   arena,
		objects: resource.NewObjects(),
		funcs:   make(map[string]Func),
		Buffers: NewBuffers(heap, arena),
	}
	m.funcs[DropString] = m.releaseFunc()
	m.funcs[FreeBuffer] = m.releaseFunc()
	return m
}

// Export installs fn as the entry point name, replacing any previous one.
func (m *Module) Export(name string, fn Func) {
	m.mu.Lock()
	m.funcs[name] = fn
	m.mu.Unlock()
}

// ExportHandle installs the disposal entry point of a handle type. Dropping
// an identity that is not live is an error.
func (m *Module) ExportHandle(typeName string) {
	m.Export(DropName(typeName), func(_ context.Context, params []uint64) ([]uint64, error) {
		if len(params) != 1 {
			return nil, errors.InvalidInput(errors.PhaseRelease, "drop takes one identity")
		}
		if _, ok := m.objects.Drop(params[0], typeName); !ok {
			return nil, errors.NotFound(errors.PhaseRelease, typeName, "#"+strconv.FormatUint(params[0], 10))
		}
		return nil, nil
	})
}

// ExportDescribe installs the describe entry point for c and a disposal
// entry point for each of its handle types.
func (m *Module) ExportDescribe(c *schema.Catalog) error {
	blob, err := c.MarshalDescribe()
	if err != nil {
		return err
	}
	for _, name := range c.Handles() {
		m.ExportHandle(name)
	}
	m.Export(Describe, func(context.Context, []uint64) ([]uint64, error) {
		return m.ReturnBytes(blob)
	})
	return nil
}

// NewObject stores v as a live object of a handle type and returns its
// native identity.
func (m *Module) NewObject(typeName string, v any) (uint64, error) {
	return m.objects.Insert(typeName, v)
}

// Objects returns the table holding the objects behind handles.
func (m *Module) Objects() *resource.Objects {
	return m.objects
}

// Arena returns the heap allocator, mainly so tests can check for leaks.
func (m *Module) Arena() *Arena {
	return m.arena
}

func (m *Module) Memory() bindgen.Memory {
	return m.heap
}

func (m *Module) Allocator() bindgen.Allocator {
	return m.arena
}

func (m *Module) Func(name string) (Func, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false
	}
	fn, ok := m.funcs[name]
	return fn, ok
}

// Close drops every remaining object. Entry points are unavailable
// afterwards.
func (m *Module) Close(_ context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if n := m.objects.Len(); n > 0 {
		Logger().Debug("dropping live objects on close", zap.Int("count", n))
	}
	return m.objects.Close()
}

var _ Library = (*Module)(nil)
