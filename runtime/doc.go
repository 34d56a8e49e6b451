// Package runtime marshals calls between Go and a native library.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx, lib)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	greeting, err := rt.Call(ctx, "greet-a-number", 42)
//	fmt.Println(value.Format(greeting)) // "Hello, #42!"
//
// # Calls
//
// A call goes through four steps:
//
//  1. Lower: scalars and enums become slots, strings and compound values
//     are copied into native buffers, handles are borrowed from the registry
//  2. Invoke the native entry point
//  3. Lift: results are copied out of native memory and the native buffer
//     is released through __bindgen_drop_string or __bindgen_free_buffer;
//     returned handles are registered
//  4. Free the argument buffers and return the borrows
//
// Any codec failure fails the whole call. Handles registered while decoding
// a result that then fails to decode are released again.
//
// # Handles
//
// Constructors return a *Handle proxy:
//
//	person, err := rt.New(ctx, "PersonInfo", "new", "Ada", 36)
//	defer person.Close(ctx)
//	name, err := person.Call(ctx, "name")
//
// Using scopes a handle to a function:
//
//	err := runtime.Using(ctx, person, func(p *runtime.Handle) error {
//	    _, err := p.Call(ctx, "set-age", 37)
//	    return err
//	})
//
// Releasing a handle while another goroutine's call still uses it is
// allowed; the native resource is destroyed when that call returns.
package runtime
