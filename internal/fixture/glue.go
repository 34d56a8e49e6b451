package fixture

import (
	"fmt"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/value"
)

// SimpleCEnum mirrors the SimpleCEnum declaration.
type SimpleCEnum int32

const (
	SimpleCEnumFoo SimpleCEnum = iota
	SimpleCEnumBar
	SimpleCEnumBaz
)

var simpleCEnumNames = [...]string{"Foo", "Bar", "Baz"}

func (e SimpleCEnum) String() string {
	if e < 0 || int(e) >= len(simpleCEnumNames) {
		return fmt.Sprintf("SimpleCEnum(%d)", int32(e))
	}
	return simpleCEnumNames[e]
}

func (e SimpleCEnum) ToValue() (value.Value, error) {
	if e < 0 || int(e) >= len(simpleCEnumNames) {
		return nil, errors.UnknownDiscriminant(errors.PhaseEncode, nil, int64(e), "SimpleCEnum")
	}
	return value.Enum{Case: simpleCEnumNames[e], Discriminant: int64(e)}, nil
}

func (e *SimpleCEnum) FromValue(v value.Value) error {
	x, ok := v.(value.Enum)
	if !ok {
		return errors.TypeMismatch(errors.PhaseDecode, nil, "fixture.SimpleCEnum", kindOf(v))
	}
	for i, name := range simpleCEnumNames {
		if name == x.Case {
			*e = SimpleCEnum(i)
			return nil
		}
	}
	return errors.UnknownDiscriminant(errors.PhaseDecode, nil, x.Discriminant, "SimpleCEnum")
}

// InnerStruct mirrors the InnerStruct declaration.
type InnerStruct struct {
	Value int32
}

// InnerEnum mirrors InnerEnum: every case carries one SimpleCEnum.
type InnerEnum struct {
	Case  string // Cool, Cooler or Coolest
	Value SimpleCEnum
}

func (e InnerEnum) ToValue() (value.Value, error) {
	switch e.Case {
	case "Cool", "Cooler", "Coolest":
	default:
		return nil, errors.New(errors.PhaseEncode, errors.KindUnknownVariant).
			Type("InnerEnum").
			Detail("no case %q", e.Case).
			Build()
	}
	inner, err := e.Value.ToValue()
	if err != nil {
		return nil, err
	}
	return value.Variant{Case: e.Case, Fields: []value.Value{inner}}, nil
}

func (e *InnerEnum) FromValue(v value.Value) error {
	x, ok := v.(value.Variant)
	if !ok || len(x.Fields) != 1 {
		return errors.TypeMismatch(errors.PhaseDecode, nil, "fixture.InnerEnum", kindOf(v))
	}
	e.Case = x.Case
	return e.Value.FromValue(x.Fields[0])
}

// DataEnum is the Go form of the DataEnum tagged union. Its implementations
// are the DataEnum* variant types below; a type switch over them is
// exhaustive.
type DataEnum interface {
	value.Valuer
	isDataEnum()
}

type DataEnumFoo struct{}

type DataEnumBar string

type DataEnumBaz struct {
	Name  string
	Value int32
}

type DataEnumCoolness InnerEnum

type DataEnumNestedStruct InnerStruct

func (DataEnumFoo) isDataEnum()          {}
func (DataEnumBar) isDataEnum()          {}
func (DataEnumBaz) isDataEnum()          {}
func (DataEnumCoolness) isDataEnum()     {}
func (DataEnumNestedStruct) isDataEnum() {}

func (DataEnumFoo) ToValue() (value.Value, error) {
	return value.Variant{Case: "Foo"}, nil
}

func (d DataEnumBar) ToValue() (value.Value, error) {
	return value.Variant{Case: "Bar", Fields: []value.Value{value.String(d)}}, nil
}

func (d DataEnumBaz) ToValue() (value.Value, error) {
	return value.Variant{Case: "Baz", Fields: []value.Value{value.String(d.Name), value.S32(d.Value)}}, nil
}

func (d DataEnumCoolness) ToValue() (value.Value, error) {
	inner, err := InnerEnum(d).ToValue()
	if err != nil {
		return nil, err
	}
	return value.Variant{Case: "Coolness", Fields: []value.Value{inner}}, nil
}

func (d DataEnumNestedStruct) ToValue() (value.Value, error) {
	nested := value.Struct{Fields: []value.Value{value.S32(d.Value)}}
	return value.Variant{Case: "NestedStruct", Fields: []value.Value{nested}}, nil
}

// DataEnumOf converts a decoded DataEnum value into its Go variant.
func DataEnumOf(v value.Value) (DataEnum, error) {
	x, ok := v.(value.Variant)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseDecode, nil, "fixture.DataEnum", kindOf(v))
	}
	bad := func() error {
		return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			GoType("fixture.DataEnum").
			Type("DataEnum").
			Detail("malformed payload for case %s", x.Case).
			Build()
	}
	switch x.Case {
	case "Foo":
		return DataEnumFoo{}, nil
	case "Bar":
		if len(x.Fields) != 1 {
			return nil, bad()
		}
		s, ok := x.Fields[0].(value.String)
		if !ok {
			return nil, bad()
		}
		return DataEnumBar(s), nil
	case "Baz":
		if len(x.Fields) != 2 {
			return nil, bad()
		}
		name, ok1 := x.Fields[0].(value.String)
		n, ok2 := x.Fields[1].(value.S32)
		if !ok1 || !ok2 {
			return nil, bad()
		}
		return DataEnumBaz{Name: string(name), Value: int32(n)}, nil
	case "Coolness":
		if len(x.Fields) != 1 {
			return nil, bad()
		}
		var inner InnerEnum
		if err := inner.FromValue(x.Fields[0]); err != nil {
			return nil, err
		}
		return DataEnumCoolness(inner), nil
	case "NestedStruct":
		if len(x.Fields) != 1 {
			return nil, bad()
		}
		s, ok := x.Fields[0].(value.Struct)
		if !ok || len(s.Fields) != 1 {
			return nil, bad()
		}
		n, ok := s.Fields[0].(value.S32)
		if !ok {
			return nil, bad()
		}
		return DataEnumNestedStruct{Value: int32(n)}, nil
	}
	return nil, errors.New(errors.PhaseDecode, errors.KindUnknownVariant).
		Type("DataEnum").
		Detail("no case %q", x.Case).
		Build()
}

// DataEnumVar is a decoding destination for DataEnum results:
//
//	var out fixture.DataEnumVar
//	err := rt.CallInto(ctx, "generate-data-enum", &out)
type DataEnumVar struct {
	DataEnum
}

func (d *DataEnumVar) FromValue(v value.Value) error {
	e, err := DataEnumOf(v)
	if err != nil {
		return err
	}
	d.DataEnum = e
	return nil
}

func kindOf(v value.Value) string {
	if v == nil {
		return "unit"
	}
	return v.Kind().String()
}
