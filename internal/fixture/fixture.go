// Package fixture is a demo native library implemented in Go. It backs the
// runtime tests, the CLI demo commands and the package examples.
package fixture

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/native"
	"github.com/wippyai/bindgen/resource"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/value"
)

//go:embed decl.yaml
var declYAML []byte

// Declarations returns the raw YAML declaration file of the library.
func Declarations() []byte {
	return declYAML
}

var loadCatalog = sync.OnceValues(func() (*schema.Catalog, error) {
	return schema.LoadYAML(bytes.NewReader(declYAML))
})

// Catalog returns the library's declarations. Each call returns the same
// catalog.
func Catalog() *schema.Catalog {
	c, err := loadCatalog()
	if err != nil {
		panic(fmt.Sprintf("fixture: invalid declarations: %v", err))
	}
	return c
}

// Person is the object behind a PersonInfo handle.
type Person struct {
	Name    string
	Address Address
	mu      sync.Mutex
	Age     int32
}

// Address is the object behind an Address handle.
type Address struct {
	Street       string
	StreetNumber uint32
}

// Item is the object behind a HandleStruct handle.
type Item struct {
	Bar int32
}

// New returns a fresh instance of the library with its describe entry
// point installed.
func New(opts ...native.Option) *native.Module {
	cat := Catalog()
	m := native.NewModule(opts...)
	if err := m.ExportDescribe(cat); err != nil {
		panic(fmt.Sprintf("fixture: describe: %v", err))
	}
	impls := implementations(m)
	for _, f := range cat.Funcs() {
		impl, ok := impls[f.Symbol()]
		if !ok {
			panic("fixture: no implementation for " + f.Symbol())
		}
		m.ExportFunc(f, impl)
	}
	return m
}

func identity(_ context.Context, args []value.Value) (value.Value, error) {
	return args[0], nil
}

func unit(context.Context, []value.Value) (value.Value, error) {
	return nil, nil
}

func constant(v value.Value) native.Impl {
	return func(context.Context, []value.Value) (value.Value, error) {
		return v, nil
	}
}

func list(elems ...value.Value) value.List {
	return value.List{Elems: elems}
}

func object[T any](m *native.Module, v value.Value) (T, error) {
	h := v.(value.Handle)
	obj, ok := resource.Lookup[T](m.Objects(), h.ID, h.Type)
	if !ok {
		return obj, errors.NotFound(errors.PhaseCall, h.Type, fmt.Sprintf("#%d", h.ID))
	}
	return obj, nil
}

func newHandle(m *native.Module, typeName string, obj any) (value.Value, error) {
	id, err := m.NewObject(typeName, obj)
	if err != nil {
		return nil, err
	}
	return value.Handle{Type: typeName, ID: id}, nil
}

func implementations(m *native.Module) map[string]native.Impl {
	person := func(fn func(p *Person) (value.Value, error)) native.Impl {
		return func(_ context.Context, args []value.Value) (value.Value, error) {
			p, err := object[*Person](m, args[0])
			if err != nil {
				return nil, err
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			return fn(p)
		}
	}
	address := func(fn func(a *Address) value.Value) native.Impl {
		return func(_ context.Context, args []value.Value) (value.Value, error) {
			a, err := object[*Address](m, args[0])
			if err != nil {
				return nil, err
			}
			return fn(a), nil
		}
	}

	return map[string]native.Impl{
		"greet-a-number": func(_ context.Context, args []value.Value) (value.Value, error) {
			return value.String(fmt.Sprintf("Hello, #%d!", args[0].(value.S32))), nil
		},
		"return-a-number": constant(value.S32(7)),
		"string-arg": func(_ context.Context, args []value.Value) (value.Value, error) {
			return value.String(fmt.Sprintf("Hello, %s!", args[0].(value.String))), nil
		},
		"is-seven": func(_ context.Context, args []value.Value) (value.Value, error) {
			return value.Bool(args[0].(value.S32) == 7), nil
		},
		"void-return":    unit,
		"arg-name-test":  unit,
		"roundtrip-char": identity,
		"roundtrip-f64":  identity,

		"roundtrip-simple-enum":                    identity,
		"roundtrip-simple-enum-with-discriminants": identity,
		"roundtrip-data-enum":                      identity,
		"roundtrip-test-enum":                      identity,
		"generate-data-enum": constant(value.Variant{Case: "Baz", Fields: []value.Value{
			value.String("Randal"), value.S32(11),
		}}),

		"roundtrip-simple-tile":         identity,
		"roundtrip-basic-struct":        identity,
		"roundtrip-wrapper-type":        identity,
		"roundtrip-newtype-struct":      identity,
		"roundtrip-tuple-struct":        identity,
		"round-trip-copy-tuple-struct":  identity,
		"round-trip-copy-newtype-struct": identity,

		"return-vec-s8":  constant(list(value.S8(1), value.S8(2), value.S8(3), value.S8(4))),
		"return-vec-u8":  constant(list(value.U8(1), value.U8(2), value.U8(3), value.U8(4))),
		"return-vec-s16": constant(list(value.S16(1), value.S16(2), value.S16(3), value.S16(4))),
		"return-vec-u16": constant(list(value.U16(1), value.U16(2), value.U16(3), value.U16(4))),
		"return-vec-s32": constant(list(value.S32(1), value.S32(2), value.S32(3), value.S32(4))),
		"return-vec-u32": constant(list(value.U32(1), value.U32(2), value.U32(3), value.U32(4))),
		"return-vec-s64": constant(list(value.S64(1), value.S64(2), value.S64(3), value.S64(4))),
		"return-vec-u64": constant(list(value.U64(1), value.U64(2), value.U64(3), value.U64(4))),
		"return-vec-f32": constant(list(value.F32(1.0), value.F32(2.1), value.F32(3.123), value.F32(4.00000004))),
		"return-vec-f64": constant(list(value.F64(1.0), value.F64(2.1), value.F64(3.123), value.F64(4.00000004))),
		"return-vec-bool": constant(list(value.Bool(true), value.Bool(false), value.Bool(true), value.Bool(true))),
		"roundtrip-vec-s32":    identity,
		"roundtrip-vec-string": identity,
		"return-struct-vec": constant(list(
			value.Struct{Fields: []value.Value{value.S32(33)}},
			value.Struct{Fields: []value.Value{value.S32(12345)}},
		)),
		"return-simple-enum-vec": constant(list(
			value.Enum{Case: "Foo"}, value.Enum{Case: "Bar"}, value.Enum{Case: "Baz"},
		)),
		"return-handle-vec": func(context.Context, []value.Value) (value.Value, error) {
			var out value.List
			for _, bar := range []int32{33, 12345} {
				h, err := newHandle(m, "HandleStruct", &Item{Bar: bar})
				if err != nil {
					return nil, err
				}
				out.Elems = append(out.Elems, h)
			}
			return out, nil
		},
		"sum-handle-vec": func(_ context.Context, args []value.Value) (value.Value, error) {
			var sum int32
			for _, h := range args[0].(value.List).Elems {
				it, err := object[*Item](m, h)
				if err != nil {
					return nil, err
				}
				sum += it.Bar
			}
			return value.S32(sum), nil
		},
		"HandleStruct__bar": func(_ context.Context, args []value.Value) (value.Value, error) {
			it, err := object[*Item](m, args[0])
			if err != nil {
				return nil, err
			}
			return value.S32(it.Bar), nil
		},

		"PersonInfo__new": func(_ context.Context, args []value.Value) (value.Value, error) {
			return newHandle(m, "PersonInfo", &Person{
				Name: string(args[0].(value.String)),
				Age:  int32(args[1].(value.S32)),
				Address: Address{
					StreetNumber: 123,
					Street:       "Cool Kids Lane",
				},
			})
		},
		"PersonInfo__static-function": constant(value.S32(7)),
		"PersonInfo__arg-name-test":   unit,
		"PersonInfo__name": person(func(p *Person) (value.Value, error) {
			return value.String(p.Name), nil
		}),
		"PersonInfo__age": person(func(p *Person) (value.Value, error) {
			return value.S32(p.Age), nil
		}),
		"PersonInfo__set-age": func(_ context.Context, args []value.Value) (value.Value, error) {
			p, err := object[*Person](m, args[0])
			if err != nil {
				return nil, err
			}
			p.mu.Lock()
			p.Age = int32(args[1].(value.S32))
			p.mu.Unlock()
			return nil, nil
		},
		"PersonInfo__address": person(func(p *Person) (value.Value, error) {
			a := p.Address
			return newHandle(m, "Address", &a)
		}),
		"PersonInfo__is-minor": person(func(p *Person) (value.Value, error) {
			return value.Bool(p.Age < 21), nil
		}),

		"Address__street-number": address(func(a *Address) value.Value {
			return value.U32(a.StreetNumber)
		}),
		"Address__street-name": address(func(a *Address) value.Value {
			return value.String(a.Street)
		}),
	}
}
