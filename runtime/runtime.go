package runtime

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/native"
	"github.com/wippyai/bindgen/resource"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/transcoder"
)

// Runtime marshals calls between Go and one native library. It owns the
// handle registry for the library's resources. A Runtime is safe for
// concurrent use.
type Runtime struct {
	lib      native.Library
	catalog  *schema.Catalog
	registry *resource.Registry
	log      *zap.Logger
	closed   atomic.Bool
}

// New binds a runtime to lib. Without WithCatalog the declarations come from
// the library's describe entry point. Every declared function and the
// disposal entry point of every handle type must exist.
func New(ctx context.Context, lib native.Library, opts ...Option) (*Runtime, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}

	catalog := o.catalog
	if catalog == nil {
		var err error
		catalog, err = Describe(ctx, lib)
		if err != nil {
			return nil, err
		}
	}
	if err := verify(lib, catalog); err != nil {
		return nil, err
	}

	rt := &Runtime{
		lib:     lib,
		catalog: catalog,
		log:     o.logger,
	}
	rt.registry = resource.NewRegistry(rt.dropNative)
	rt.registry.Subscribe(resource.NewLogObserver(o.logger))
	for _, obs := range o.observers {
		rt.registry.Subscribe(obs)
	}

	rt.log.Debug("runtime ready",
		zap.Int("types", len(catalog.Types())),
		zap.Int("funcs", len(catalog.Funcs())))
	return rt, nil
}

func verify(lib native.Library, c *schema.Catalog) error {
	need := []string{native.DropString, native.FreeBuffer}
	for _, f := range c.Funcs() {
		need = append(need, f.Symbol())
	}
	for _, h := range c.Handles() {
		need = append(need, native.DropName(h))
	}
	for _, name := range need {
		if _, ok := lib.Func(name); !ok {
			return errors.NotFound(errors.PhaseLoad, "entry point", name)
		}
	}
	return nil
}

// Describe asks lib for its declarations through the describe entry point.
func Describe(ctx context.Context, lib native.Library) (*schema.Catalog, error) {
	fn, ok := lib.Func(native.Describe)
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "entry point", native.Describe)
	}
	res, err := fn(ctx, nil)
	if err != nil {
		return nil, errors.Native(native.Describe, err)
	}
	ptr, n, err := bufferSlots(res)
	if err != nil {
		return nil, err
	}
	data, err := transcoder.ReadBuffer(lib.Memory(), ptr, n)
	release(ctx, lib, native.FreeBuffer, ptr, n, Logger())
	if err != nil {
		return nil, err
	}
	return schema.UnmarshalDescribe(data)
}

// Catalog returns the declarations the runtime dispatches on.
func (rt *Runtime) Catalog() *schema.Catalog {
	return rt.catalog
}

// Registry returns the handle registry.
func (rt *Runtime) Registry() *resource.Registry {
	return rt.registry
}

// Library returns the native library.
func (rt *Runtime) Library() native.Library {
	return rt.lib
}

// Close releases every live handle and then closes the library.
func (rt *Runtime) Close(ctx context.Context) error {
	if !rt.closed.CompareAndSwap(false, true) {
		return nil
	}
	regErr := rt.registry.Close(ctx)
	if err := rt.lib.Close(ctx); err != nil {
		return err
	}
	return regErr
}

func (rt *Runtime) dropNative(ctx context.Context, typeName string, id uint64) error {
	fn, ok := rt.lib.Func(native.DropName(typeName))
	if !ok {
		return errors.NotFound(errors.PhaseRelease, "entry point", native.DropName(typeName))
	}
	_, err := fn(ctx, []uint64{id})
	return err
}

// release hands a returned buffer back through the library's release entry
// point. Failures leak native memory but do not affect the caller's copy.
func release(ctx context.Context, lib native.Library, entry string, ptr, n uint32, log *zap.Logger) {
	if ptr == 0 {
		return
	}
	fn, ok := lib.Func(entry)
	if !ok {
		log.Warn("release entry point missing", zap.String("entry", entry))
		return
	}
	if _, err := fn(ctx, []uint64{uint64(ptr), uint64(n)}); err != nil {
		log.Warn("native release failed",
			zap.String("entry", entry),
			zap.Uint32("ptr", ptr),
			zap.Uint32("len", n),
			zap.Error(err))
	}
}

func bufferSlots(res []uint64) (uint32, uint32, error) {
	if len(res) != 2 {
		return 0, 0, errors.New(errors.PhaseDecode, errors.KindInvalidEncoding).
			Detail("%d result slots, want (ptr, len)", len(res)).Build()
	}
	if res[0] > 1<<32-1 || res[1] > 1<<32-1 {
		return 0, 0, errors.New(errors.PhaseDecode, errors.KindInvalidEncoding).
			Detail("buffer slots (%#x, %#x) out of range", res[0], res[1]).Build()
	}
	return uint32(res[0]), uint32(res[1]), nil
}
