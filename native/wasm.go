package native

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/bindgen"
	"github.com/wippyai/bindgen/errors"
)

// WasmConfig holds configuration for loading a WebAssembly native core.
type WasmConfig struct {
	// Name is the module instance name. Empty means anonymous.
	Name string

	// MemoryLimitPages sets the maximum memory in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// WasmLibrary is a native core compiled to WebAssembly and run by wazero.
//
// Allocation uses the module's cabi_realloc export when it has one.
// Otherwise the library manages the memory above the module's initial size
// itself, growing it on demand; such modules must not grow their own memory.
// Guest execution is serialised: exports and cabi_realloc never run
// concurrently.
type WasmLibrary struct {
	runtime wazero.Runtime
	module  api.Module
	memory  *WazeroMemory
	alloc   bindgen.Allocator
	funcs   map[string]Func
	Buffers
	guest  sync.Mutex
	mu     sync.RWMutex
	closed bool
}

// LoadWasm compiles and instantiates a core WebAssembly module. The module
// must define a memory.
func LoadWasm(ctx context.Context, wasmBytes []byte, cfg *WasmConfig) (*WasmLibrary, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	moduleCfg := wazero.NewModuleConfig()
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		moduleCfg = moduleCfg.WithName(cfg.Name)
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, errors.Load("compile failed", err)
	}
	module, err := runtime.InstantiateModule(ctx, compiled, moduleCfg)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, errors.Load("instantiate failed", err)
	}
	if module.Memory() == nil {
		_ = runtime.Close(ctx)
		return nil, errors.Load("module defines no memory", nil)
	}

	l := &WasmLibrary{
		runtime: runtime,
		module:  module,
		memory:  &WazeroMemory{mem: module.Memory()},
		funcs:   make(map[string]Func),
	}
	if fn := module.ExportedFunction("cabi_realloc"); fn != nil {
		l.alloc = &wazeroAllocator{fn: fn, guest: &l.guest, stackBuf: make([]uint64, 4)}
	} else {
		l.alloc = l.memoryArena()
	}
	l.Buffers = NewBuffers(l.memory, l.alloc)

	// Release entry points fall back to the allocator when the module does
	// not export its own.
	for _, name := range []string{DropString, FreeBuffer} {
		if module.ExportedFunction(name) == nil {
			l.funcs[name] = l.releaseFunc()
		}
	}

	Logger().Debug("wasm library loaded",
		zap.String("name", module.Name()),
		zap.Uint32("memory", l.memory.Size()),
		zap.Bool("cabi_realloc", module.ExportedFunction("cabi_realloc") != nil))
	return l, nil
}

func (l *WasmLibrary) memoryArena() *Arena {
	mem := l.module.Memory()
	base := (mem.Size() + 7) &^ 7
	arena := NewArena(base, base)
	arena.SetGrow(func(need uint32) (uint32, bool) {
		delta := (need + PageSize - 1) / PageSize
		prev, ok := mem.Grow(delta)
		if !ok || uint64(prev)+uint64(delta) > maxPages {
			return 0, false
		}
		return (prev + delta) * PageSize, true
	})
	return arena
}

// Export installs a Go-implemented entry point that works over the module's
// memory, shadowing any export of the same name.
func (l *WasmLibrary) Export(name string, fn Func) {
	l.mu.Lock()
	l.funcs[name] = fn
	l.mu.Unlock()
}

func (l *WasmLibrary) Memory() bindgen.Memory {
	return l.memory
}

func (l *WasmLibrary) Allocator() bindgen.Allocator {
	return l.alloc
}

func (l *WasmLibrary) Func(name string) (Func, bool) {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		return nil, false
	}
	fn, ok := l.funcs[name]
	l.mu.RUnlock()
	if ok {
		return fn, true
	}

	export := l.module.ExportedFunction(name)
	if export == nil {
		return nil, false
	}
	nparams := len(export.Definition().ParamTypes())
	fn = func(ctx context.Context, params []uint64) ([]uint64, error) {
		if len(params) != nparams {
			return nil, errors.InvalidInput(errors.PhaseCall,
				fmt.Sprintf("%s takes %d slots, got %d", name, nparams, len(params)))
		}
		l.guest.Lock()
		defer l.guest.Unlock()
		return export.Call(ctx, params...)
	}

	l.mu.Lock()
	l.funcs[name] = fn
	l.mu.Unlock()
	return fn, true
}

func (l *WasmLibrary) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.funcs = nil
	l.mu.Unlock()
	return l.runtime.Close(ctx)
}

// wazeroAllocator implements bindgen.Allocator over cabi_realloc. Views
// made by WithContext share the guest lock and stack buffer.
type wazeroAllocator struct {
	ctx      context.Context
	fn       api.Function
	guest    *sync.Mutex
	stackBuf []uint64
}

func (a *wazeroAllocator) WithContext(ctx context.Context) bindgen.Allocator {
	b := *a
	b.ctx = ctx
	return &b
}

func (a *wazeroAllocator) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *wazeroAllocator) Alloc(size, align uint32) (uint32, error) {
	a.guest.Lock()
	defer a.guest.Unlock()

	a.stackBuf[0] = 0
	a.stackBuf[1] = 0
	a.stackBuf[2] = uint64(align)
	a.stackBuf[3] = uint64(size)
	if err := a.fn.CallWithStack(a.context(), a.stackBuf[:4]); err != nil {
		return 0, err
	}
	ptr := uint32(a.stackBuf[0])
	if ptr == 0 {
		return 0, fmt.Errorf("cabi_realloc returned null for %d bytes", size)
	}
	return ptr, nil
}

func (a *wazeroAllocator) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	a.guest.Lock()
	defer a.guest.Unlock()

	a.stackBuf[0] = uint64(ptr)
	a.stackBuf[1] = uint64(size)
	a.stackBuf[2] = uint64(align)
	a.stackBuf[3] = 0
	if err := a.fn.CallWithStack(a.context(), a.stackBuf[:4]); err != nil {
		Logger().Warn("Free: failed to call cabi_realloc for deallocation",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

// WazeroMemory wraps wazero memory to implement bindgen.Memory
type WazeroMemory struct {
	mem api.Memory
}

func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	ok := m.mem.Write(offset, data)
	if !ok {
		return fmt.Errorf("write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *WazeroMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// Compile-time checks
var _ bindgen.Memory = (*WazeroMemory)(nil)
var _ bindgen.MemorySizer = (*WazeroMemory)(nil)
var _ bindgen.ContextAllocator = (*wazeroAllocator)(nil)
var _ Library = (*WasmLibrary)(nil)
