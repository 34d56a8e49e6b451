package schema

import (
	"fmt"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/bindgen/errors"
)

// FromWIT converts a WIT type into a descriptor. Records, tuples, enums,
// variants, lists and own/borrow handles are supported; option, result and
// flags have no wire shape here and are rejected.
func FromWIT(t wit.Type) (*Type, error) {
	c := witConverter{defs: make(map[*wit.TypeDef]*Type)}
	return c.convert(t)
}

type witConverter struct {
	defs map[*wit.TypeDef]*Type
}

func (c *witConverter) convert(t wit.Type) (*Type, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return Bool, nil
	case wit.U8:
		return U8, nil
	case wit.S8:
		return S8, nil
	case wit.U16:
		return U16, nil
	case wit.S16:
		return S16, nil
	case wit.U32:
		return U32, nil
	case wit.S32:
		return S32, nil
	case wit.U64:
		return U64, nil
	case wit.S64:
		return S64, nil
	case wit.F32:
		return F32, nil
	case wit.F64:
		return F64, nil
	case wit.Char:
		return Char, nil
	case wit.String:
		return String, nil
	case *wit.TypeDef:
		return c.convertDef(typ)
	default:
		return nil, errors.InvalidDefinition("", fmt.Sprintf("unsupported WIT type %T", t))
	}
}

func (c *witConverter) convertDef(td *wit.TypeDef) (*Type, error) {
	if cached, ok := c.defs[td]; ok {
		return cached, nil
	}
	name := ""
	if td.Name != nil {
		name = *td.Name
	}

	var out *Type
	switch kind := td.Kind.(type) {
	case *wit.Record:
		out = &Type{Kind: KindStruct, Name: name, Shape: ShapeNamed}
		c.defs[td] = out
		fields, err := c.fields(kind.Fields)
		if err != nil {
			return nil, err
		}
		out.Fields = fields
	case *wit.Tuple:
		out = &Type{Kind: KindStruct, Name: name, Shape: ShapeTuple}
		if len(kind.Types) == 1 {
			out.Shape = ShapeNewtype
		}
		c.defs[td] = out
		for _, et := range kind.Types {
			ft, err := c.convert(et)
			if err != nil {
				return nil, err
			}
			out.Fields = append(out.Fields, Field{Type: ft})
		}
	case *wit.Enum:
		cases := make([]EnumCase, len(kind.Cases))
		for i, ec := range kind.Cases {
			cases[i] = Case(ec.Name)
		}
		out = Enum(name, cases...)
		if len(kind.Cases) <= 1<<8 {
			out.Repr = KindU8
		} else if len(kind.Cases) <= 1<<16 {
			out.Repr = KindU16
		} else {
			out.Repr = KindU32
		}
	case *wit.Variant:
		out = &Type{Kind: KindDataEnum, Name: name}
		c.defs[td] = out
		for _, vc := range kind.Cases {
			v, err := c.variant(vc)
			if err != nil {
				return nil, err
			}
			out.Variants = append(out.Variants, v)
		}
	case *wit.List:
		elem, err := c.convert(kind.Type)
		if err != nil {
			return nil, err
		}
		out = List(elem)
	case *wit.Own:
		out = Handle(resourceName(name, kind.Type))
	case *wit.Borrow:
		out = Handle(resourceName(name, kind.Type))
	case *wit.Resource:
		out = Handle(name)
	case wit.Type:
		// type alias
		return c.convert(kind)
	default:
		return nil, errors.InvalidDefinition(name, fmt.Sprintf("unsupported WIT type kind %T", td.Kind))
	}
	c.defs[td] = out
	return out, nil
}

func (c *witConverter) fields(fs []wit.Field) ([]Field, error) {
	out := make([]Field, len(fs))
	for i, f := range fs {
		ft, err := c.convert(f.Type)
		if err != nil {
			return nil, err
		}
		out[i] = Field{Name: f.Name, Type: ft}
	}
	return out, nil
}

// variant maps a WIT case to a data-enum variant. An anonymous record payload
// becomes a struct variant, an anonymous tuple a tuple variant, anything else
// a single positional field.
func (c *witConverter) variant(vc wit.Case) (Variant, error) {
	if vc.Type == nil {
		return Unit(vc.Name), nil
	}
	if td, ok := vc.Type.(*wit.TypeDef); ok && td.Name == nil {
		switch k := td.Kind.(type) {
		case *wit.Record:
			fields, err := c.fields(k.Fields)
			if err != nil {
				return Variant{}, err
			}
			return StructVariant(vc.Name, fields...), nil
		case *wit.Tuple:
			elems := make([]*Type, len(k.Types))
			for i, et := range k.Types {
				ft, err := c.convert(et)
				if err != nil {
					return Variant{}, err
				}
				elems[i] = ft
			}
			return TupleVariant(vc.Name, elems...), nil
		}
	}
	ft, err := c.convert(vc.Type)
	if err != nil {
		return Variant{}, err
	}
	return TupleVariant(vc.Name, ft), nil
}

func resourceName(alias string, res *wit.TypeDef) string {
	if res != nil && res.Name != nil {
		return *res.Name
	}
	return alias
}

// WIT converts a descriptor into the equivalent WIT type. Explicit enum
// discriminants have no WIT form; cases keep only their order.
func (t *Type) WIT() wit.Type {
	return toWIT(t, make(map[*Type]*wit.TypeDef))
}

func toWIT(t *Type, defs map[*Type]*wit.TypeDef) wit.Type {
	switch t.Kind {
	case KindBool:
		return wit.Bool{}
	case KindU8:
		return wit.U8{}
	case KindS8:
		return wit.S8{}
	case KindU16:
		return wit.U16{}
	case KindS16:
		return wit.S16{}
	case KindU32:
		return wit.U32{}
	case KindS32:
		return wit.S32{}
	case KindU64:
		return wit.U64{}
	case KindS64:
		return wit.S64{}
	case KindF32:
		return wit.F32{}
	case KindF64:
		return wit.F64{}
	case KindChar:
		return wit.Char{}
	case KindString:
		return wit.String{}
	}

	if td, ok := defs[t]; ok {
		return td
	}
	td := &wit.TypeDef{}
	if t.Name != "" {
		name := t.Name
		td.Name = &name
	}
	defs[t] = td

	switch t.Kind {
	case KindStruct:
		if t.Shape == ShapeNamed || t.Shape == ShapeUnit {
			td.Kind = &wit.Record{Fields: witFields(t.Fields, defs)}
		} else {
			td.Kind = &wit.Tuple{Types: witTypes(t.Fields, defs)}
		}
	case KindEnum:
		cases := make([]wit.EnumCase, len(t.Cases))
		for i, c := range t.Cases {
			cases[i] = wit.EnumCase{Name: c.Name}
		}
		td.Kind = &wit.Enum{Cases: cases}
	case KindDataEnum:
		cases := make([]wit.Case, len(t.Variants))
		for i, v := range t.Variants {
			cases[i] = wit.Case{Name: v.Name, Type: witPayload(v, defs)}
		}
		td.Kind = &wit.Variant{Cases: cases}
	case KindList:
		td.Kind = &wit.List{Type: toWIT(t.Elem, defs)}
	case KindHandle:
		name := t.Name
		td.Name = nil
		td.Kind = &wit.Own{Type: &wit.TypeDef{Name: &name, Kind: &wit.Resource{}}}
	}
	return td
}

func witPayload(v Variant, defs map[*Type]*wit.TypeDef) wit.Type {
	switch {
	case v.Shape == ShapeUnit || len(v.Fields) == 0:
		return nil
	case v.Shape == ShapeNamed:
		return &wit.TypeDef{Kind: &wit.Record{Fields: witFields(v.Fields, defs)}}
	case len(v.Fields) == 1:
		return toWIT(v.Fields[0].Type, defs)
	default:
		return &wit.TypeDef{Kind: &wit.Tuple{Types: witTypes(v.Fields, defs)}}
	}
}

func witFields(fs []Field, defs map[*Type]*wit.TypeDef) []wit.Field {
	out := make([]wit.Field, len(fs))
	for i, f := range fs {
		out[i] = wit.Field{Name: f.Name, Type: toWIT(f.Type, defs)}
	}
	return out
}

func witTypes(fs []Field, defs map[*Type]*wit.TypeDef) []wit.Type {
	out := make([]wit.Type, len(fs))
	for i, f := range fs {
		out[i] = toWIT(f.Type, defs)
	}
	return out
}
