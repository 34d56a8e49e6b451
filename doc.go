// Package bindgen marshals rich values between Go and a native core library.
//
// A native core exports named entry points over its own linear memory and
// allocator. This module lets Go call those entry points with primitives,
// strings, structs, discriminant enums, tagged-union enums, opaque resource
// handles and lists of any of these, and get the results back without
// corrupting native memory or leaking native resources.
//
// # Architecture Overview
//
//	bindgen/          Root package with the Memory and Allocator interfaces
//	├── schema/       Value descriptors, signatures, catalogs, declaration files
//	├── value/        Dynamic caller-side values and Go mapping
//	├── transcoder/   Packed wire codec and flat slot lowering
//	├── resource/     Handle registry: lifecycle, borrows, identity
//	├── native/       Native core backends: in-process module and wazero
//	├── runtime/      Marshaling runtime: calls, ownership transfer, handles
//	├── errors/       Structured error types
//	└── cmd/bindgen/  Command line tool
//
// # Quick Start
//
//	lib := fixture.New()
//	rt, err := runtime.New(ctx, lib) // catalog from the describe entry
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	greeting, err := rt.Call(ctx, "greet-a-number", 42)
//	fmt.Println(value.Format(greeting)) // "Hello, #42!"
//
//	person, err := rt.New(ctx, "PersonInfo", "new", "Ada", 36)
//	defer person.Close(ctx)
//	name, err := rt.CallMethod(ctx, person, "name")
//
// # Ownership
//
// Arguments are borrowed by the native core for the duration of a call.
// Strings and lists returned by the native core are copied into Go memory and
// the native buffer is released through the library's own deallocation entry
// points. Handles stay owned by the native core; the caller holds a proxy and
// releases it exactly once.
//
// # Thread Safety
//
// Runtime and the handle registry are safe for concurrent use. Calls are
// synchronous; a handle cannot be destroyed while a call that borrowed it is
// still running.
package bindgen
