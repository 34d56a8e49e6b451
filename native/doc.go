// Package native provides the native cores the runtime calls into.
//
// A Library exposes named entry points taking and returning flat uint64
// slots, plus the linear memory and allocator that argument and result
// buffers live in. Besides its declared functions every library provides:
//
//	__bindgen_drop_string(ptr, len)   release a returned string
//	__bindgen_free_buffer(ptr, len)   release a returned buffer
//	__bindgen_drop__<Type>(id)        destroy the resource behind a handle
//	__bindgen_describe() -> (ptr,len) optional CBOR declarations
//
// Two implementations are provided:
//
//	Module       - entry points written in Go over a private Heap
//	WasmLibrary  - a WebAssembly module run by wazero
//
// Go-implemented entry points use Buffers to read argument buffers and to
// hand owned result buffers back to the caller.
package native
