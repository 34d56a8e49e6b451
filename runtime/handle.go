package runtime

import (
	"context"
	stderrors "errors"

	"github.com/wippyai/bindgen/resource"
	"github.com/wippyai/bindgen/value"
)

// Handle is the caller-side proxy for a native resource. Proxies are cheap
// views over the runtime's registry: two proxies for the same handle are
// Equal, and closing either releases the resource.
type Handle struct {
	rt *Runtime
	h  value.Handle
}

// Handle wraps a handle value returned by a call.
func (rt *Runtime) Handle(h value.Handle) *Handle {
	return &Handle{rt: rt, h: h}
}

// Release disposes of the resource behind h. A second release of the same
// handle fails with a double-release error.
func (rt *Runtime) Release(ctx context.Context, h value.Handle) error {
	return rt.registry.Release(ctx, resource.ID(h.ID))
}

// Type returns the resource type name.
func (h *Handle) Type() string {
	return h.h.Type
}

// ID returns the registry identity.
func (h *Handle) ID() uint64 {
	return h.h.ID
}

// HandleValue lets a proxy be passed wherever a handle argument is expected.
func (h *Handle) HandleValue() value.Handle {
	return h.h
}

// Valid reports whether the handle has not been released.
func (h *Handle) Valid() bool {
	return h.rt.registry.State(resource.ID(h.h.ID)) == resource.StateValid
}

// Equal reports whether h and o refer to the same native resource.
func (h *Handle) Equal(o *Handle) bool {
	if h == nil || o == nil {
		return h == o
	}
	return h.rt == o.rt && h.h == o.h
}

// Call invokes a method of the handle's type on it.
func (h *Handle) Call(ctx context.Context, name string, args ...any) (value.Value, error) {
	return h.rt.CallMethod(ctx, h, name, args...)
}

// Close releases the handle. The native resource is destroyed now, or when
// the last in-flight call using it returns.
func (h *Handle) Close(ctx context.Context) error {
	return h.rt.Release(ctx, h.h)
}

func (h *Handle) String() string {
	return value.Format(h.h)
}

// Using runs fn with h and releases h afterwards, whatever fn returns.
func Using(ctx context.Context, h *Handle, fn func(*Handle) error) error {
	err := fn(h)
	return stderrors.Join(err, h.Close(ctx))
}
