package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/bindgen/schema"
)

// Value is a dynamic value of some schema.Type. The set of implementations is
// closed; a type switch over the types below is exhaustive.
type Value interface {
	isValue()
	Kind() schema.Kind
}

type (
	Bool   bool
	U8     uint8
	S8     int8
	U16    uint16
	S16    int16
	U32    uint32
	S32    int32
	U64    uint64
	S64    int64
	F32    float32
	F64    float64
	Char   rune
	String string
)

func (Bool) isValue()   {}
func (U8) isValue()     {}
func (S8) isValue()     {}
func (U16) isValue()    {}
func (S16) isValue()    {}
func (U32) isValue()    {}
func (S32) isValue()    {}
func (U64) isValue()    {}
func (S64) isValue()    {}
func (F32) isValue()    {}
func (F64) isValue()    {}
func (Char) isValue()   {}
func (String) isValue() {}

func (Bool) Kind() schema.Kind   { return schema.KindBool }
func (U8) Kind() schema.Kind     { return schema.KindU8 }
func (S8) Kind() schema.Kind     { return schema.KindS8 }
func (U16) Kind() schema.Kind    { return schema.KindU16 }
func (S16) Kind() schema.Kind    { return schema.KindS16 }
func (U32) Kind() schema.Kind    { return schema.KindU32 }
func (S32) Kind() schema.Kind    { return schema.KindS32 }
func (U64) Kind() schema.Kind    { return schema.KindU64 }
func (S64) Kind() schema.Kind    { return schema.KindS64 }
func (F32) Kind() schema.Kind    { return schema.KindF32 }
func (F64) Kind() schema.Kind    { return schema.KindF64 }
func (Char) Kind() schema.Kind   { return schema.KindChar }
func (String) Kind() schema.Kind { return schema.KindString }

// Struct holds field values in declared order, for every struct shape.
type Struct struct {
	Fields []Value
}

func (Struct) isValue()          {}
func (Struct) Kind() schema.Kind { return schema.KindStruct }

// Enum is a discriminant enum value. Case identifies the variant; the
// decoder also fills Discriminant.
type Enum struct {
	Case         string
	Discriminant int64
}

func (Enum) isValue()          {}
func (Enum) Kind() schema.Kind { return schema.KindEnum }

// Variant is a data-enum value: the active case and its payload fields.
// Payloads of other cases do not exist.
type Variant struct {
	Case   string
	Fields []Value
}

func (Variant) isValue()          {}
func (Variant) Kind() schema.Kind { return schema.KindDataEnum }

type List struct {
	Elems []Value
}

func (List) isValue()          {}
func (List) Kind() schema.Kind { return schema.KindList }

// Handle identifies a registered native resource on the caller side.
type Handle struct {
	Type string
	ID   uint64
}

func (Handle) isValue()          {}
func (Handle) Kind() schema.Kind { return schema.KindHandle }

// Equal reports whether a and b are equal under each kind's own rule:
// bit-exact for integers, bools, chars and strings, IEEE-754 == for floats,
// case and payload for enums, identity for handles.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Struct:
		y, ok := b.(Struct)
		return ok && equalSlices(x.Fields, y.Fields)
	case Enum:
		y, ok := b.(Enum)
		return ok && x.Case == y.Case
	case Variant:
		y, ok := b.(Variant)
		return ok && x.Case == y.Case && equalSlices(x.Fields, y.Fields)
	case List:
		y, ok := b.(List)
		return ok && equalSlices(x.Elems, y.Elems)
	case nil:
		return b == nil
	default:
		// Scalars and handles compare with ==, which is IEEE equality for
		// the float kinds.
		return a == b
	}
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Format renders v in a compact literal form used by logs and the CLI.
func Format(v Value) string {
	var b strings.Builder
	format(&b, v)
	return b.String()
}

func format(b *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil:
		b.WriteString("()")
	case Bool:
		b.WriteString(strconv.FormatBool(bool(x)))
	case F32:
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case F64:
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 64))
	case Char:
		b.WriteString(strconv.QuoteRune(rune(x)))
	case String:
		b.WriteString(strconv.Quote(string(x)))
	case Struct:
		b.WriteByte('{')
		writeList(b, x.Fields)
		b.WriteByte('}')
	case Enum:
		b.WriteString(x.Case)
	case Variant:
		b.WriteString(x.Case)
		if len(x.Fields) > 0 {
			b.WriteByte('(')
			writeList(b, x.Fields)
			b.WriteByte(')')
		}
	case List:
		b.WriteByte('[')
		writeList(b, x.Elems)
		b.WriteByte(']')
	case Handle:
		fmt.Fprintf(b, "%s#%x", x.Type, x.ID)
	default:
		fmt.Fprintf(b, "%v", x)
	}
}

func writeList(b *strings.Builder, vs []Value) {
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		format(b, v)
	}
}
