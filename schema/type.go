package schema

import (
	"fmt"
	"strings"
)

// Shape describes how the fields of a struct or data-enum variant are addressed.
// The wire encoding is the same for every shape.
type Shape uint8

const (
	ShapeUnit    Shape = iota // no fields
	ShapeNamed                // named fields
	ShapeTuple                // positional fields
	ShapeNewtype              // exactly one positional field
)

var shapeNames = [...]string{
	ShapeUnit:    "unit",
	ShapeNamed:   "struct",
	ShapeTuple:   "tuple",
	ShapeNewtype: "newtype",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "unknown"
}

// Field is a struct or variant field. Positional fields have an empty Name.
type Field struct {
	Type *Type
	Name string
}

// EnumCase is one case of a discriminant enum.
type EnumCase struct {
	Name     string
	Value    int64
	Explicit bool
}

// Variant is one case of a data enum.
type Variant struct {
	Name   string
	Fields []Field
	Shape  Shape
}

// Type describes a value crossing the boundary. Primitive descriptors are
// shared package-level values; compound descriptors are built with the
// constructors below and registered in a Catalog.
type Type struct {
	Elem     *Type
	Name     string
	Fields   []Field
	Cases    []EnumCase
	Variants []Variant
	Kind     Kind
	Shape    Shape
	Repr     Kind
}

var (
	Bool   = &Type{Kind: KindBool}
	U8     = &Type{Kind: KindU8}
	S8     = &Type{Kind: KindS8}
	U16    = &Type{Kind: KindU16}
	S16    = &Type{Kind: KindS16}
	U32    = &Type{Kind: KindU32}
	S32    = &Type{Kind: KindS32}
	U64    = &Type{Kind: KindU64}
	S64    = &Type{Kind: KindS64}
	F32    = &Type{Kind: KindF32}
	F64    = &Type{Kind: KindF64}
	Char   = &Type{Kind: KindChar}
	String = &Type{Kind: KindString}
)

var primitives = map[string]*Type{
	"bool":   Bool,
	"u8":     U8,
	"s8":     S8,
	"u16":    U16,
	"s16":    S16,
	"u32":    U32,
	"s32":    S32,
	"u64":    U64,
	"s64":    S64,
	"f32":    F32,
	"f64":    F64,
	"char":   Char,
	"string": String,
}

// Primitive returns the shared descriptor for a builtin type name.
func Primitive(name string) (*Type, bool) {
	t, ok := primitives[name]
	return t, ok
}

// F declares a named field.
func F(name string, t *Type) Field {
	return Field{Name: name, Type: t}
}

// Struct declares a struct with named fields.
func Struct(name string, fields ...Field) *Type {
	return &Type{Kind: KindStruct, Name: name, Shape: ShapeNamed, Fields: fields}
}

// Tuple declares a struct with positional fields.
func Tuple(name string, elems ...*Type) *Type {
	return &Type{Kind: KindStruct, Name: name, Shape: ShapeTuple, Fields: positional(elems)}
}

// Newtype declares a single-field positional struct.
func Newtype(name string, inner *Type) *Type {
	return &Type{Kind: KindStruct, Name: name, Shape: ShapeNewtype, Fields: []Field{{Type: inner}}}
}

// Case declares an enum case with an implicit discriminant.
func Case(name string) EnumCase {
	return EnumCase{Name: name}
}

// CaseValue declares an enum case with an explicit discriminant.
func CaseValue(name string, v int64) EnumCase {
	return EnumCase{Name: name, Value: v, Explicit: true}
}

// Enum declares a discriminant enum represented as s32. Implicit
// discriminants continue from the previous case, starting at zero.
func Enum(name string, cases ...EnumCase) *Type {
	resolved := make([]EnumCase, len(cases))
	var next int64
	for i, c := range cases {
		if !c.Explicit {
			c.Value = next
		}
		resolved[i] = c
		next = c.Value + 1
	}
	return &Type{Kind: KindEnum, Name: name, Cases: resolved, Repr: KindS32}
}

// WithRepr returns t with its enum discriminant representation set to k.
func (t *Type) WithRepr(k Kind) *Type {
	t.Repr = k
	return t
}

// Unit declares a data-enum variant without payload.
func Unit(name string) Variant {
	return Variant{Name: name, Shape: ShapeUnit}
}

// TupleVariant declares a data-enum variant with a positional payload.
func TupleVariant(name string, elems ...*Type) Variant {
	return Variant{Name: name, Shape: ShapeTuple, Fields: positional(elems)}
}

// StructVariant declares a data-enum variant with named payload fields.
func StructVariant(name string, fields ...Field) Variant {
	return Variant{Name: name, Shape: ShapeNamed, Fields: fields}
}

// DataEnum declares a tagged union.
func DataEnum(name string, variants ...Variant) *Type {
	return &Type{Kind: KindDataEnum, Name: name, Variants: variants}
}

// List declares a length-prefixed sequence of elem.
func List(elem *Type) *Type {
	return &Type{Kind: KindList, Elem: elem}
}

// Handle declares an opaque reference to a native-owned resource type.
func Handle(name string) *Type {
	return &Type{Kind: KindHandle, Name: name}
}

func positional(elems []*Type) []Field {
	fields := make([]Field, len(elems))
	for i, e := range elems {
		fields[i] = Field{Type: e}
	}
	return fields
}

// FieldName returns the accessor name of field i: the declared name for named
// fields and Element<i> for positional ones.
func FieldName(f Field, i int) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("Element%d", i)
}

// CaseByName returns the index of the enum case with the given name.
func (t *Type) CaseByName(name string) (int, bool) {
	for i, c := range t.Cases {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// CaseByValue returns the index of the enum case with discriminant v.
func (t *Type) CaseByValue(v int64) (int, bool) {
	for i, c := range t.Cases {
		if c.Value == v {
			return i, true
		}
	}
	return -1, false
}

// VariantByName returns the tag of the data-enum variant with the given name.
func (t *Type) VariantByName(name string) (int, bool) {
	for i, v := range t.Variants {
		if v.Name == name {
			return i, true
		}
	}
	return -1, false
}

// String renders t as a type expression. Named types render as their name.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindList:
		return "list<" + t.Elem.String() + ">"
	case KindHandle:
		return "handle<" + t.Name + ">"
	case KindStruct, KindEnum, KindDataEnum:
		if t.Name != "" {
			return t.Name
		}
		return t.Kind.String()
	default:
		return t.Kind.String()
	}
}

// Describe renders the full definition of a named type.
func (t *Type) Describe() string {
	var b strings.Builder
	switch t.Kind {
	case KindStruct:
		b.WriteString(t.Shape.String())
		b.WriteByte(' ')
		b.WriteString(t.Name)
		writeFields(&b, t.Shape, t.Fields)
	case KindEnum:
		fmt.Fprintf(&b, "enum %s: %s {", t.Name, t.Repr)
		for i, c := range t.Cases {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, " %s = %d", c.Name, c.Value)
		}
		b.WriteString(" }")
	case KindDataEnum:
		fmt.Fprintf(&b, "data-enum %s {", t.Name)
		for i, v := range t.Variants {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte(' ')
			b.WriteString(v.Name)
			writeFields(&b, v.Shape, v.Fields)
		}
		b.WriteString(" }")
	case KindHandle:
		b.WriteString("resource ")
		b.WriteString(t.Name)
	default:
		b.WriteString(t.String())
	}
	return b.String()
}

func writeFields(b *strings.Builder, shape Shape, fields []Field) {
	switch shape {
	case ShapeUnit:
		return
	case ShapeNamed:
		b.WriteString(" {")
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(b, " %s: %s", f.Name, f.Type)
		}
		b.WriteString(" }")
	default:
		b.WriteByte('(')
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Type.String())
		}
		b.WriteByte(')')
	}
}
