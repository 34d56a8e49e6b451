package native

import (
	"context"
	"strings"
	"testing"

	"github.com/wippyai/bindgen"
)

var (
	// (module (memory (export "memory") 1))
	memoryOnlyWasm = []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x07, 0x0a, 0x01, 0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	}

	// (module
	//   (memory (export "memory") 1)
	//   (func (export "add") (param i32 i32) (result i32)
	//     local.get 0 local.get 1 i32.add))
	addWasm = []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
		0x03, 0x02, 0x01, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x07, 0x10, 0x02,
		0x03, 'a', 'd', 'd', 0x00, 0x00,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b,
	}

	// (module
	//   (memory (export "memory") 1)
	//   (func (export "cabi_realloc") (param i32 i32 i32 i32) (result i32)
	//     i32.const 16))
	reallocWasm = []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x09, 0x01, 0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
		0x03, 0x02, 0x01, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x07, 0x19, 0x02,
		0x0c, 'c', 'a', 'b', 'i', '_', 'r', 'e', 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, 0x10, 0x0b,
	}

	noMemoryWasm = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
)

func TestLoadWasm_Export(t *testing.T) {
	ctx := context.Background()
	lib, err := LoadWasm(ctx, addWasm, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close(ctx)

	add, ok := lib.Func("add")
	if !ok {
		t.Fatal("add not found")
	}
	res, err := add(ctx, []uint64{2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0] != 5 {
		t.Errorf("add(2, 3) = %v, want [5]", res)
	}
	if _, err := add(ctx, []uint64{1}); err == nil {
		t.Error("wrong slot count should fail")
	}
	if _, ok := lib.Func("missing"); ok {
		t.Error("missing export reported as found")
	}
}

func TestLoadWasm_GoExportsOverGuestMemory(t *testing.T) {
	ctx := context.Background()
	lib, err := LoadWasm(ctx, memoryOnlyWasm, &WasmConfig{Name: "core", MemoryLimitPages: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close(ctx)

	if size := lib.memory.Size(); size != PageSize {
		t.Fatalf("memory size = %d, want %d", size, PageSize)
	}

	lib.Export("shout", func(_ context.Context, params []uint64) ([]uint64, error) {
		s, err := lib.ReadString(params[0], params[1])
		if err != nil {
			return nil, err
		}
		return lib.ReturnString(strings.ToUpper(s))
	})

	arg, err := lib.ReturnString("hello")
	if err != nil {
		t.Fatal(err)
	}
	if arg[0] < PageSize {
		t.Errorf("allocation at %#x overlaps the module's own memory", arg[0])
	}

	shout, _ := lib.Func("shout")
	res, err := shout(ctx, arg)
	if err != nil {
		t.Fatal(err)
	}
	got, err := lib.ReadString(res[0], res[1])
	if err != nil {
		t.Fatal(err)
	}
	if got != "HELLO" {
		t.Errorf("shout = %q, want HELLO", got)
	}

	drop, ok := lib.Func(DropString)
	if !ok {
		t.Fatal("drop_string fallback missing")
	}
	for _, slots := range [][]uint64{arg, res} {
		if _, err := drop(ctx, slots); err != nil {
			t.Fatal(err)
		}
	}
	if arena, ok := lib.Allocator().(*Arena); !ok || arena.Live() != 0 {
		t.Errorf("allocator %T not empty after drops", lib.Allocator())
	}
}

type callKey struct{}

func TestWazeroAllocator_CallContext(t *testing.T) {
	ctx := context.Background()
	lib, err := LoadWasm(ctx, reallocWasm, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer lib.Close(ctx)

	guest, ok := lib.Allocator().(*wazeroAllocator)
	if !ok {
		t.Fatalf("allocator = %T, want cabi_realloc allocator", lib.Allocator())
	}
	callCtx := context.WithValue(ctx, callKey{}, "call")
	bound := bindgen.AllocatorContext(callCtx, guest)
	view, ok := bound.(*wazeroAllocator)
	if !ok || view == guest {
		t.Fatalf("AllocatorContext = %T, want a bound view", bound)
	}
	if view.context().Value(callKey{}) != "call" {
		t.Error("bound allocator lost the call context")
	}
	if guest.ctx != nil {
		t.Error("binding a context mutated the shared allocator")
	}

	ptr, err := bound.Alloc(8, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ptr != 16 {
		t.Errorf("Alloc = %d, want 16", ptr)
	}
	bound.Free(ptr, 8, 1)
}

func TestAllocatorContext_PlainAllocator(t *testing.T) {
	arena := NewArena(8, 1024)
	if got := bindgen.AllocatorContext(context.Background(), arena); got != bindgen.Allocator(arena) {
		t.Errorf("AllocatorContext wrapped %T", got)
	}
}

func TestLoadWasm_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := LoadWasm(ctx, []byte("not wasm"), nil); err == nil {
		t.Error("expected compile error")
	}
	if _, err := LoadWasm(ctx, noMemoryWasm, nil); err == nil {
		t.Error("expected error for module without memory")
	}
}

func TestWasmLibrary_Close(t *testing.T) {
	ctx := context.Background()
	lib, err := LoadWasm(ctx, addWasm, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := lib.Close(ctx); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, ok := lib.Func("add"); ok {
		t.Error("Func after Close should fail")
	}
}
