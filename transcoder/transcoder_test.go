package transcoder

import (
	"bytes"
	"errors"
	"math"
	"slices"
	"testing"

	bgerrors "github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/value"
)

var (
	simpleCEnum = schema.Enum("SimpleCEnum",
		schema.Case("Foo"), schema.Case("Bar"), schema.Case("Baz"),
	).WithRepr(schema.KindU8)

	innerEnum = schema.DataEnum("InnerEnum",
		schema.Unit("Cool"),
		schema.TupleVariant("Coolest", simpleCEnum),
	)

	dataEnum = schema.DataEnum("DataEnum",
		schema.Unit("Foo"),
		schema.TupleVariant("Bar", schema.String),
		schema.StructVariant("Baz",
			schema.F("name", schema.String),
			schema.F("value", schema.S32),
		),
		schema.TupleVariant("Coolness", innerEnum),
	)

	withDiscriminants = schema.Enum("EnumWithDiscriminants",
		schema.Case("Hello"),
		schema.CaseValue("There", 5),
		schema.Case("How"),
		schema.Case("Are"),
		schema.CaseValue("You", -12),
	)

	newtypeStruct = schema.Newtype("NewtypeStruct", schema.U32)

	address = schema.Struct("Address",
		schema.F("street", schema.String),
		schema.F("city", schema.String),
		schema.F("zip", schema.U16),
	)
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		typ  *schema.Type
		val  value.Value
		name string
	}{
		{schema.Bool, value.Bool(true), "bool"},
		{schema.U8, value.U8(255), "u8"},
		{schema.S8, value.S8(-128), "s8"},
		{schema.U16, value.U16(65535), "u16"},
		{schema.S16, value.S16(-1), "s16"},
		{schema.U32, value.U32(0xdeadbeef), "u32"},
		{schema.S32, value.S32(math.MinInt32), "s32"},
		{schema.U64, value.U64(math.MaxUint64), "u64"},
		{schema.S64, value.S64(math.MinInt64), "s64"},
		{schema.F32, value.F32(3.5), "f32"},
		{schema.F64, value.F64(-0.25), "f64"},
		{schema.Char, value.Char('🦀'), "char"},
		{schema.String, value.String("Hello, 世界"), "string"},
		{schema.String, value.String(""), "empty string"},
		{newtypeStruct, value.Struct{Fields: []value.Value{value.U32(123)}}, "newtype"},
		{address, value.Struct{Fields: []value.Value{
			value.String("1 Main St"), value.String("Springfield"), value.U16(12345),
		}}, "struct"},
		{withDiscriminants, value.Enum{Case: "You"}, "negative discriminant"},
		{withDiscriminants, value.Enum{Case: "There"}, "explicit discriminant"},
		{simpleCEnum, value.Enum{Case: "Baz"}, "u8 repr"},
		{dataEnum, value.Variant{Case: "Foo"}, "unit variant"},
		{dataEnum, value.Variant{Case: "Bar", Fields: []value.Value{value.String("Cool string")}}, "tuple variant"},
		{dataEnum, value.Variant{Case: "Baz", Fields: []value.Value{value.String("n"), value.S32(-3)}}, "struct variant"},
		{dataEnum, value.Variant{Case: "Coolness", Fields: []value.Value{
			value.Variant{Case: "Coolest", Fields: []value.Value{value.Enum{Case: "Bar"}}},
		}}, "nested variant"},
		{schema.List(schema.S32), value.List{Elems: []value.Value{
			value.S32(1), value.S32(2), value.S32(3), value.S32(4),
		}}, "list"},
		{schema.List(schema.String), value.List{}, "empty list"},
		{schema.List(schema.List(schema.U8)), value.List{Elems: []value.Value{
			value.List{Elems: []value.Value{value.U8(1)}},
			value.List{},
		}}, "nested list"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.typ, tt.val)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, err := Decode(tt.typ, data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !value.Equal(got, tt.val) {
				t.Errorf("round trip = %s, want %s", value.Format(got), value.Format(tt.val))
			}
		})
	}
}

func TestEncode_Bytes(t *testing.T) {
	tests := []struct {
		typ  *schema.Type
		val  value.Value
		name string
		want []byte
	}{
		{schema.Bool, value.Bool(true), "bool", []byte{1}},
		{schema.U16, value.U16(0x0102), "u16 little endian", []byte{0x02, 0x01}},
		{schema.S32, value.S32(-2), "s32", []byte{0xfe, 0xff, 0xff, 0xff}},
		{schema.String, value.String("hi"), "string", []byte{2, 0, 0, 0, 'h', 'i'}},
		{withDiscriminants, value.Enum{Case: "You"}, "enum s32", []byte{0xf4, 0xff, 0xff, 0xff}},
		{simpleCEnum, value.Enum{Case: "Bar"}, "enum u8", []byte{1}},
		{dataEnum, value.Variant{Case: "Bar", Fields: []value.Value{value.String("x")}}, "variant",
			[]byte{1, 1, 0, 0, 0, 'x'}},
		{schema.List(schema.U8), value.List{Elems: []value.Value{value.U8(7), value.U8(9)}}, "list",
			[]byte{2, 0, 0, 0, 7, 9}},
		{newtypeStruct, value.Struct{Fields: []value.Value{value.U32(123)}}, "newtype", []byte{123, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.typ, tt.val)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestEncode_EnumByDiscriminant(t *testing.T) {
	data, err := Encode(withDiscriminants, value.Enum{Discriminant: 6})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(withDiscriminants, data)
	if err != nil {
		t.Fatal(err)
	}
	if e := got.(value.Enum); e.Case != "How" || e.Discriminant != 6 {
		t.Errorf("got %+v, want How/6", e)
	}
}

func TestFloatBitsPreserved(t *testing.T) {
	nan32 := math.Float32frombits(0x7fc00123)
	data, err := Encode(schema.F32, value.F32(nan32))
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(schema.F32, data)
	if err != nil {
		t.Fatal(err)
	}
	if bits := math.Float32bits(float32(got.(value.F32))); bits != 0x7fc00123 {
		t.Errorf("f32 bits = %#x, want 0x7fc00123", bits)
	}

	negZero := math.Copysign(0, -1)
	data, err = Encode(schema.F64, value.F64(negZero))
	if err != nil {
		t.Fatal(err)
	}
	got, err = Decode(schema.F64, data)
	if err != nil {
		t.Fatal(err)
	}
	if !math.Signbit(float64(got.(value.F64))) {
		t.Error("negative zero lost its sign")
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		typ      *schema.Type
		sentinel error
		name     string
		data     []byte
		path     []string
	}{
		{schema.Bool, bgerrors.ErrInvalidEncoding, "bool byte 2", []byte{2}, nil},
		{schema.Char, bgerrors.ErrInvalidEncoding, "surrogate char", []byte{0x00, 0xd8, 0, 0}, nil},
		{schema.Char, bgerrors.ErrInvalidEncoding, "char above max", []byte{0, 0, 0x11, 0}, nil},
		{schema.String, bgerrors.ErrInvalidEncoding, "invalid utf8", []byte{2, 0, 0, 0, 0xff, 0xfe}, nil},
		{schema.String, bgerrors.ErrTruncatedInput, "short string", []byte{5, 0, 0, 0, 'a'}, nil},
		{schema.U32, bgerrors.ErrTruncatedInput, "short u32", []byte{1, 2}, nil},
		{schema.U8, bgerrors.ErrInvalidEncoding, "trailing bytes", []byte{1, 2}, nil},
		{simpleCEnum, bgerrors.ErrUnknownDiscriminant, "unknown discriminant", []byte{3}, nil},
		{withDiscriminants, bgerrors.ErrUnknownDiscriminant, "gap discriminant", []byte{1, 0, 0, 0}, nil},
		{dataEnum, bgerrors.ErrUnknownVariant, "unknown tag", []byte{4}, nil},
		{dataEnum, bgerrors.ErrUnknownDiscriminant, "nested unknown discriminant",
			[]byte{3, 1, 9}, []string{"Coolness", "Element0", "Coolest", "Element0"}},
		{schema.List(schema.U32), bgerrors.ErrTruncatedInput, "list count exceeds input",
			[]byte{0xff, 0xff, 0xff, 0x00, 1, 2, 3, 4}, nil},
		{schema.List(schema.Struct("Unit")), bgerrors.ErrTruncatedInput, "zero-size elements past input",
			[]byte{0x00, 0x00, 0x00, 0x08}, nil},
		{schema.List(schema.Bool), bgerrors.ErrInvalidEncoding, "bad element",
			[]byte{2, 0, 0, 0, 1, 7}, []string{"[1]"}},
		{address, bgerrors.ErrTruncatedInput, "struct field path",
			[]byte{1, 0, 0, 0, 'a', 9, 0, 0, 0, 'b'}, []string{"city"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.typ, tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("error = %v, want %v", err, tt.sentinel)
			}
			if tt.path != nil {
				var e *bgerrors.Error
				if !errors.As(err, &e) || !slices.Equal(e.Path, tt.path) {
					t.Errorf("path = %v, want %v", e.Path, tt.path)
				}
			}
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		typ      *schema.Type
		val      value.Value
		sentinel error
		name     string
	}{
		{schema.U8, value.U16(1), bgerrors.ErrTypeMismatch, "wrong integer width"},
		{schema.String, value.Bool(true), bgerrors.ErrTypeMismatch, "bool for string"},
		{schema.Char, value.Char(0xd800), bgerrors.ErrInvalidEncoding, "surrogate"},
		{schema.String, value.String("\xff"), bgerrors.ErrInvalidEncoding, "invalid utf8"},
		{simpleCEnum, value.Enum{Case: "Nope"}, bgerrors.ErrUnknownDiscriminant, "unknown case"},
		{simpleCEnum, value.Enum{Discriminant: 42}, bgerrors.ErrUnknownDiscriminant, "unknown discriminant"},
		{dataEnum, value.Variant{Case: "Qux"}, bgerrors.ErrUnknownVariant, "unknown variant"},
		{dataEnum, value.Variant{Case: "Bar"}, bgerrors.ErrTypeMismatch, "missing payload"},
		{address, value.Struct{Fields: []value.Value{value.String("a")}}, bgerrors.ErrTypeMismatch, "field count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.typ, tt.val)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestDecodePrefix(t *testing.T) {
	data := []byte{3, 0, 0, 0, 'a', 'b', 'c', 0xaa}
	v, n, err := NewDecoder().DecodePrefix(schema.String, data)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 || v != value.String("abc") {
		t.Errorf("DecodePrefix = %v, %d; want abc, 7", v, n)
	}
}

type fakeHandles struct {
	natives map[uint64]uint64
	bound   []uint64
}

func (f *fakeHandles) ResolveHandle(_ *schema.Type, h value.Handle) (uint64, error) {
	n, ok := f.natives[h.ID]
	if !ok {
		return 0, bgerrors.UseAfterRelease(bgerrors.PhaseEncode, h.Type, h.ID)
	}
	return n, nil
}

func (f *fakeHandles) BindHandle(t *schema.Type, native uint64) (value.Handle, error) {
	f.bound = append(f.bound, native)
	return value.Handle{Type: t.Name, ID: native + 0x1000}, nil
}

func TestHandles(t *testing.T) {
	person := schema.Handle("PersonInfo")
	typ := schema.List(person)
	fh := &fakeHandles{natives: map[uint64]uint64{1: 0x10, 2: 0x20}}

	enc := NewEncoder()
	enc.SetHandles(fh)
	err := enc.Encode(typ, value.List{Elems: []value.Value{
		value.Handle{Type: "PersonInfo", ID: 1},
		value.Handle{Type: "PersonInfo", ID: 2},
	}})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{2, 0, 0, 0, 0x10, 0, 0, 0, 0, 0, 0, 0, 0x20, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(enc.Bytes(), want) {
		t.Errorf("encoded % x, want % x", enc.Bytes(), want)
	}

	dec := NewDecoder()
	dec.SetHandles(fh)
	got, err := dec.Decode(typ, enc.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	elems := got.(value.List).Elems
	if len(elems) != 2 || elems[0] != (value.Handle{Type: "PersonInfo", ID: 0x1010}) {
		t.Errorf("decoded %s", value.Format(got))
	}
	if !slices.Equal(fh.bound, []uint64{0x10, 0x20}) {
		t.Errorf("bound %v", fh.bound)
	}

	enc.Reset()
	enc.SetHandles(fh)
	err = enc.Encode(person, value.Handle{Type: "PersonInfo", ID: 9})
	if !errors.Is(err, bgerrors.ErrUseAfterRelease) {
		t.Errorf("stale handle error = %v", err)
	}

	if _, err := Encode(person, value.Handle{Type: "PersonInfo", ID: 1}); err == nil {
		t.Error("encoding a handle without a resolver should fail")
	}
	if _, err := Decode(person, make([]byte, 8)); err == nil {
		t.Error("decoding a handle without a binder should fail")
	}
}
