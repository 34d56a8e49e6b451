package main

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/internal/fixture"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/value"
)

func mustType(t *testing.T, name string) *schema.Type {
	t.Helper()
	typ, err := schema.ParseType(name, fixture.Catalog().Lookup())
	if err != nil {
		t.Fatalf("ParseType(%q): %v", name, err)
	}
	return typ
}

func TestParseArg(t *testing.T) {
	tests := []struct {
		want value.Value
		typ  string
		text string
	}{
		{typ: "s32", text: "42", want: value.S32(42)},
		{typ: "s32", text: "-7", want: value.S32(-7)},
		{typ: "u8", text: "255", want: value.U8(255)},
		{typ: "bool", text: "true", want: value.Bool(true)},
		{typ: "f64", text: "2", want: value.F64(2)},
		{typ: "f32", text: "1.5", want: value.F32(1.5)},
		{typ: "char", text: "ß", want: value.Char('ß')},
		{typ: "string", text: "[not, yaml]", want: value.String("[not, yaml]")},
		{typ: "list<s32>", text: "[1, 2, 3, 4]", want: value.List{Elems: []value.Value{
			value.S32(1), value.S32(2), value.S32(3), value.S32(4),
		}}},
		{typ: "list<string>", text: "[a, 7]", want: value.List{Elems: []value.Value{
			value.String("a"), value.String("7"),
		}}},
		{typ: "SimpleCEnum", text: "Bar", want: value.Enum{Case: "Bar", Discriminant: 1}},
		{typ: "EnumWithDiscriminants", text: "-12", want: value.Enum{Case: "You", Discriminant: -12}},
		{typ: "BasicStruct", text: "{foo: 1, bar: hi, baz: true}", want: value.Struct{Fields: []value.Value{
			value.S32(1), value.String("hi"), value.Bool(true),
		}}},
		{typ: "TupleStruct", text: "[a, b]", want: value.Struct{Fields: []value.Value{
			value.String("a"), value.String("b"),
		}}},
		{typ: "NewtypeStruct", text: "123", want: value.Struct{Fields: []value.Value{value.U32(123)}}},
		{typ: "DataEnum", text: "Foo", want: value.Variant{Case: "Foo"}},
		{typ: "DataEnum", text: "{Bar: Cool string}", want: value.Variant{Case: "Bar", Fields: []value.Value{
			value.String("Cool string"),
		}}},
		{typ: "DataEnum", text: "{Baz: {name: Randal, value: 11}}", want: value.Variant{Case: "Baz", Fields: []value.Value{
			value.String("Randal"), value.S32(11),
		}}},
		{typ: "DataEnum", text: "{Coolness: {Cooler: Baz}}", want: value.Variant{Case: "Coolness", Fields: []value.Value{
			value.Variant{Case: "Cooler", Fields: []value.Value{value.Enum{Case: "Baz", Discriminant: 2}}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.typ+" "+tt.text, func(t *testing.T) {
			got, err := parseArg(mustType(t, tt.typ), tt.text)
			if err != nil {
				t.Fatalf("parseArg: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseArg_Errors(t *testing.T) {
	tests := []struct {
		typ  string
		text string
		kind errors.Kind
	}{
		{typ: "u8", text: "256", kind: errors.KindOverflow},
		{typ: "s32", text: "abc", kind: errors.KindTypeMismatch},
		{typ: "char", text: "ab", kind: errors.KindInvalidInput},
		{typ: "SimpleCEnum", text: "Qux", kind: errors.KindUnknownDiscriminant},
		{typ: "DataEnum", text: "Qux", kind: errors.KindUnknownVariant},
		{typ: "DataEnum", text: "{Foo: 1, Bar: x}", kind: errors.KindInvalidInput},
		{typ: "BasicStruct", text: "{foo: 1}", kind: errors.KindInvalidInput},
		{typ: "BasicStruct", text: "{foo: 1, bar: x, nope: true}", kind: errors.KindNotFound},
		{typ: "PersonInfo", text: "1", kind: errors.KindInvalidInput},
		{typ: "list<s32>", text: "[1, x]", kind: errors.KindTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.typ+" "+tt.text, func(t *testing.T) {
			_, err := parseArg(mustType(t, tt.typ), tt.text)
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("expected structured error, got %v", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("kind = %q, want %q (%v)", e.Kind, tt.kind, err)
			}
		})
	}
}
