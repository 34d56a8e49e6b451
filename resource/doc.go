// Package resource manages the lifecycle of opaque native resource handles.
//
// # Registry
//
// The caller side holds a Registry. Each handle returned by the native core
// is bound to an ID and moves through exactly one transition:
//
//	Valid ──Release──▶ Released
//
// Releasing twice fails with a double-release error and any use after
// release fails with a use-after-release error; the registry never hands out
// the native identity of a released handle.
//
//	reg := resource.NewRegistry(dropFunc)
//	id, _, err := reg.Bind("PersonInfo", native)
//
//	native, err := reg.Acquire(id, "PersonInfo") // borrow for a call
//	defer reg.Return(ctx, id)
//
//	err = reg.Release(ctx, id) // second call: errors.ErrDoubleRelease
//
// IDs carry a slot generation, so a slot reused by a later handle never
// aliases a released one. Binding a native identity that is already bound
// and valid yields the same ID, which makes handle equality an identity
// comparison.
//
// A call in flight holds a borrow on each handle argument. Releasing a
// borrowed handle marks it released at once but defers the native drop
// until the last borrow returns.
//
// # Objects
//
// The native side keeps the values behind handles in an Objects table,
// which assigns the uint64 identities the caller binds.
//
// # Observers
//
// Subscribe observers to follow lifecycle events; LogObserver writes them to
// a zap logger:
//
//	unsubscribe := reg.Subscribe(resource.NewLogObserver(logger))
//	defer unsubscribe()
package resource
