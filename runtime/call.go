package runtime

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/wippyai/bindgen"
	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/native"
	"github.com/wippyai/bindgen/resource"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/transcoder"
	"github.com/wippyai/bindgen/value"
)

// Call invokes a free function. Arguments may be value.Values or Go values
// convertible by value.Of. The result is nil for functions returning nothing.
func (rt *Runtime) Call(ctx context.Context, name string, args ...any) (value.Value, error) {
	f, err := rt.lookup(name, "", schema.ReceiverNone)
	if err != nil {
		return nil, err
	}
	return rt.Invoke(ctx, f, nil, args...)
}

// CallStatic invokes an associated function of a handle type, such as a
// constructor.
func (rt *Runtime) CallStatic(ctx context.Context, owner, name string, args ...any) (value.Value, error) {
	f, err := rt.lookup(name, owner, schema.ReceiverStatic)
	if err != nil {
		return nil, err
	}
	return rt.Invoke(ctx, f, nil, args...)
}

// CallMethod invokes a method on a live handle. The handle is borrowed for
// the duration of the call.
func (rt *Runtime) CallMethod(ctx context.Context, h *Handle, name string, args ...any) (value.Value, error) {
	if h == nil {
		return nil, errors.InvalidInput(errors.PhaseCall, "nil handle")
	}
	f, err := rt.lookup(name, h.Type(), schema.ReceiverHandle)
	if err != nil {
		return nil, err
	}
	return rt.Invoke(ctx, f, h, args...)
}

// New calls a static constructor that returns a handle of its owner type
// and wraps the result in a proxy.
func (rt *Runtime) New(ctx context.Context, owner, name string, args ...any) (*Handle, error) {
	f, err := rt.lookup(name, owner, schema.ReceiverStatic)
	if err != nil {
		return nil, err
	}
	if f.Result == nil || f.Result.Kind != schema.KindHandle || f.Result.Name != owner {
		return nil, errors.InvalidInput(errors.PhaseCall,
			fmt.Sprintf("%s does not return handle<%s>", f.Symbol(), owner))
	}
	v, err := rt.Invoke(ctx, f, nil, args...)
	if err != nil {
		return nil, err
	}
	return rt.Handle(v.(value.Handle)), nil
}

// CallInto invokes a free function and stores the result in dst. dst may be
// a **Handle or *[]*Handle for handle results, or anything value.Assign
// accepts.
func (rt *Runtime) CallInto(ctx context.Context, name string, dst any, args ...any) error {
	f, err := rt.lookup(name, "", schema.ReceiverNone)
	if err != nil {
		return err
	}
	v, err := rt.Invoke(ctx, f, nil, args...)
	if err != nil {
		return err
	}
	if f.Result == nil {
		return errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("%s returns nothing", name))
	}
	return rt.assign(f.Result, v, dst)
}

func (rt *Runtime) assign(t *schema.Type, v value.Value, dst any) error {
	switch d := dst.(type) {
	case **Handle:
		h, ok := v.(value.Handle)
		if !ok {
			return errors.TypeMismatch(errors.PhaseDecode, nil, "*runtime.Handle", t.String())
		}
		*d = rt.Handle(h)
		return nil
	case *[]*Handle:
		l, ok := v.(value.List)
		if !ok || t.Elem.Kind != schema.KindHandle {
			return errors.TypeMismatch(errors.PhaseDecode, nil, "[]*runtime.Handle", t.String())
		}
		hs := make([]*Handle, len(l.Elems))
		for i, e := range l.Elems {
			hs[i] = rt.Handle(e.(value.Handle))
		}
		*d = hs
		return nil
	}
	return value.Assign(t, v, dst)
}

func (rt *Runtime) lookup(name, owner string, recv schema.Receiver) (*schema.Func, error) {
	var (
		f  *schema.Func
		ok bool
	)
	if owner == "" {
		f, ok = rt.catalog.Func(name)
	} else {
		f, ok = rt.catalog.Method(owner, name)
	}
	if !ok {
		what := name
		if owner != "" {
			what = owner + "." + name
		}
		return nil, errors.NotFound(errors.PhaseCall, "function", what)
	}
	if f.Receiver != recv {
		return nil, errors.InvalidInput(errors.PhaseCall,
			fmt.Sprintf("%s is a %s function, called as %s", f.Symbol(), f.Receiver, recv))
	}
	return f, nil
}

// Invoke runs one call of f. recv must be set exactly for methods.
//
// Arguments are lowered first; strings and compound values are copied into
// buffers allocated in native memory and freed once the call returns. Handle
// arguments, including handles nested in compound values, are borrowed
// until then. The result is copied out of native memory and the native
// buffer released before Invoke returns.
func (rt *Runtime) Invoke(ctx context.Context, f *schema.Func, recv *Handle, args ...any) (value.Value, error) {
	if rt.closed.Load() {
		return nil, errors.Closed(errors.PhaseCall, "runtime")
	}
	symbol := f.Symbol()
	if len(args) != len(f.Params) {
		return nil, errors.InvalidInput(errors.PhaseCall,
			fmt.Sprintf("%s takes %d arguments, got %d", symbol, len(f.Params), len(args)))
	}
	if (f.Receiver == schema.ReceiverHandle) != (recv != nil) {
		return nil, errors.InvalidInput(errors.PhaseCall,
			fmt.Sprintf("%s: receiver does not match %s binding", symbol, f.Receiver))
	}
	fn, ok := rt.lib.Func(symbol)
	if !ok {
		return nil, errors.NotFound(errors.PhaseCall, "entry point", symbol)
	}

	c := newFrame(ctx, rt)
	defer c.finish(ctx)

	if recv != nil {
		if recv.rt != rt {
			return nil, errors.InvalidInput(errors.PhaseCall, "handle belongs to another runtime")
		}
		slot, err := c.ResolveHandle(schema.Handle(f.Owner), recv.h)
		if err != nil {
			return nil, at(err, "self")
		}
		*c.slots = append(*c.slots, slot)
	}
	for i, p := range f.Params {
		name := p.Name
		if name == "" {
			name = "arg[" + strconv.Itoa(i) + "]"
		}
		v, err := value.Of(p.Type, args[i])
		if err != nil {
			return nil, at(err, name)
		}
		if err := c.lower(p.Type, v); err != nil {
			return nil, at(err, name)
		}
	}

	start := time.Now()
	res, err := fn(ctx, *c.slots)
	if err != nil {
		rt.log.Debug("native call failed", zap.String("func", symbol), zap.Error(err))
		return nil, errors.Native(symbol, err)
	}

	v, err := c.lift(ctx, f.Result, res)
	if err != nil {
		c.unbind(ctx)
		return nil, at(err, "result")
	}
	rt.log.Debug("call",
		zap.String("func", symbol),
		zap.Int("params", len(*c.slots)),
		zap.Int("results", len(res)),
		zap.Duration("elapsed", time.Since(start)))
	return v, nil
}

// frame holds the native resources a single call has borrowed.
type frame struct {
	rt      *Runtime
	alloc   bindgen.Allocator
	allocs  *transcoder.AllocationList
	slots   *[]uint64
	borrows []resource.ID
	bound   []resource.ID
}

func newFrame(ctx context.Context, rt *Runtime) *frame {
	return &frame{
		rt:     rt,
		alloc:  bindgen.AllocatorContext(ctx, rt.lib.Allocator()),
		allocs: transcoder.NewAllocationList(),
		slots:  transcoder.GetSlots(),
	}
}

func (c *frame) finish(ctx context.Context) {
	c.allocs.FreeAndRelease(c.alloc)
	transcoder.PutSlots(c.slots)
	for _, id := range c.borrows {
		if err := c.rt.registry.Return(ctx, id); err != nil {
			c.rt.log.Warn("deferred handle drop failed", zap.Stringer("id", id), zap.Error(err))
		}
	}
}

// ResolveHandle borrows h for the rest of the call.
func (c *frame) ResolveHandle(t *schema.Type, h value.Handle) (uint64, error) {
	id := resource.ID(h.ID)
	native, err := c.rt.registry.Acquire(id, t.Name)
	if err != nil {
		return 0, err
	}
	c.borrows = append(c.borrows, id)
	return native, nil
}

// BindHandle registers a handle returned by the native core.
func (c *frame) BindHandle(t *schema.Type, native uint64) (value.Handle, error) {
	id, created, err := c.rt.registry.Bind(t.Name, native)
	if err != nil {
		return value.Handle{}, err
	}
	if created {
		c.bound = append(c.bound, id)
	}
	return value.Handle{Type: t.Name, ID: uint64(id)}, nil
}

// unbind releases handles created while lifting a result that then failed.
func (c *frame) unbind(ctx context.Context) {
	for _, id := range c.bound {
		if err := c.rt.registry.Release(ctx, id); err != nil {
			c.rt.log.Warn("releasing partially decoded handle", zap.Stringer("id", id), zap.Error(err))
		}
	}
	c.bound = nil
}

func (c *frame) lower(t *schema.Type, v value.Value) error {
	switch t.Kind {
	case schema.KindHandle:
		slot, err := c.ResolveHandle(t, v.(value.Handle))
		if err != nil {
			return err
		}
		*c.slots = append(*c.slots, slot)
		return nil
	case schema.KindString:
		s := string(v.(value.String))
		if !utf8.ValidString(s) {
			return errors.InvalidUTF8(errors.PhaseEncode, nil, []byte(s))
		}
		return c.buffer([]byte(s))
	case schema.KindStruct, schema.KindDataEnum, schema.KindList:
		enc := transcoder.AcquireEncoder()
		defer transcoder.ReleaseEncoder(enc)
		enc.SetHandles(c)
		if err := enc.Encode(t, v); err != nil {
			return err
		}
		return c.buffer(enc.Bytes())
	}
	slot, err := transcoder.Lower(t, v)
	if err != nil {
		return err
	}
	*c.slots = append(*c.slots, slot)
	return nil
}

// buffer copies data into native memory for the duration of the call.
func (c *frame) buffer(data []byte) error {
	ptr, err := transcoder.WriteBuffer(c.rt.lib.Memory(), c.alloc, data, c.allocs)
	if err != nil {
		return err
	}
	*c.slots = append(*c.slots, uint64(ptr), uint64(len(data)))
	return nil
}

func (c *frame) lift(ctx context.Context, t *schema.Type, res []uint64) (value.Value, error) {
	if t == nil {
		if len(res) != 0 {
			return nil, errors.InvalidEncoding(errors.PhaseDecode, nil,
				fmt.Sprintf("%d result slots from a function returning nothing", len(res)))
		}
		return nil, nil
	}

	switch t.Kind {
	case schema.KindString:
		data, err := c.take(ctx, res, native.DropString)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(data) {
			return nil, errors.InvalidUTF8(errors.PhaseDecode, nil, data)
		}
		return value.String(data), nil
	case schema.KindStruct, schema.KindDataEnum, schema.KindList:
		data, err := c.take(ctx, res, native.FreeBuffer)
		if err != nil {
			return nil, err
		}
		dec := transcoder.NewDecoder()
		dec.SetHandles(c)
		return dec.Decode(t, data)
	}

	if len(res) != 1 {
		return nil, errors.InvalidEncoding(errors.PhaseDecode, nil,
			fmt.Sprintf("%d result slots, want 1", len(res)))
	}
	if t.Kind == schema.KindHandle {
		return c.BindHandle(t, res[0])
	}
	return transcoder.Lift(t, res[0])
}

// take copies a returned buffer into Go memory and releases the native copy
// through entry.
func (c *frame) take(ctx context.Context, res []uint64, entry string) ([]byte, error) {
	ptr, n, err := bufferSlots(res)
	if err != nil {
		return nil, err
	}
	data, err := transcoder.ReadBuffer(c.rt.lib.Memory(), ptr, n)
	release(ctx, c.rt.lib, entry, ptr, n, c.rt.log)
	return data, err
}

// at prefixes the path of a structured error with elem.
func at(err error, elem string) error {
	if e, ok := errors.AsError(err); ok {
		e.Path = append([]string{elem}, e.Path...)
	}
	return err
}
