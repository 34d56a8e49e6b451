package native

import (
	"context"
	"fmt"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/transcoder"
	"github.com/wippyai/bindgen/value"
)

// Impl is a Go implementation of a declared function working on values.
// Methods receive their handle as args[0]. Handle values carry native
// identities.
type Impl func(ctx context.Context, args []value.Value) (value.Value, error)

// Implement adapts impl to the flat calling convention of f.
func (b Buffers) Implement(f *schema.Func, impl Impl) Func {
	symbol := f.Symbol()
	nslots := f.FlatParams()
	return func(ctx context.Context, params []uint64) ([]uint64, error) {
		if len(params) != nslots {
			return nil, errors.InvalidInput(errors.PhaseCall,
				fmt.Sprintf("%s takes %d slots, got %d", symbol, nslots, len(params)))
		}
		args := make([]value.Value, 0, len(f.Params)+1)
		if f.Receiver == schema.ReceiverHandle {
			args = append(args, value.Handle{Type: f.Owner, ID: params[0]})
			params = params[1:]
		}
		for _, p := range f.Params {
			n := p.Type.FlatCount()
			v, err := b.lift(p.Type, params[:n])
			if err != nil {
				return nil, err
			}
			args = append(args, v)
			params = params[n:]
		}

		result, err := impl(ctx, args)
		if err != nil {
			return nil, err
		}
		if f.Result == nil {
			return nil, nil
		}
		if result == nil {
			return nil, errors.InvalidInput(errors.PhaseEncode, symbol+" returned no value")
		}
		return b.lower(f.Result, result)
	}
}

func (b Buffers) lift(t *schema.Type, slots []uint64) (value.Value, error) {
	switch t.Kind {
	case schema.KindHandle:
		return value.Handle{Type: t.Name, ID: slots[0]}, nil
	case schema.KindString:
		s, err := b.ReadString(slots[0], slots[1])
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case schema.KindStruct, schema.KindDataEnum, schema.KindList:
		return b.ReadValue(t, slots[0], slots[1])
	}
	return transcoder.Lift(t, slots[0])
}

func (b Buffers) lower(t *schema.Type, v value.Value) ([]uint64, error) {
	switch t.Kind {
	case schema.KindHandle:
		h, ok := v.(value.Handle)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, nil, fmt.Sprintf("%T", v), t.String())
		}
		return []uint64{h.ID}, nil
	case schema.KindString:
		s, ok := v.(value.String)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseEncode, nil, fmt.Sprintf("%T", v), t.String())
		}
		return b.ReturnString(string(s))
	case schema.KindStruct, schema.KindDataEnum, schema.KindList:
		return b.ReturnValue(t, v)
	}
	slot, err := transcoder.Lower(t, v)
	if err != nil {
		return nil, err
	}
	return []uint64{slot}, nil
}

// ExportFunc implements the declared function f with impl.
func (m *Module) ExportFunc(f *schema.Func, impl Impl) {
	m.Export(f.Symbol(), m.Implement(f, impl))
}
