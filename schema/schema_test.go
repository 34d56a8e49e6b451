package schema

import (
	"errors"
	"strings"
	"testing"

	bgerrors "github.com/wippyai/bindgen/errors"
)

func TestEnumDiscriminants(t *testing.T) {
	e := Enum("EnumWithDiscriminants",
		Case("Hello"),
		CaseValue("There", 5),
		Case("How"),
		Case("Are"),
		CaseValue("You", -12),
	)

	want := map[string]int64{"Hello": 0, "There": 5, "How": 6, "Are": 7, "You": -12}
	for _, c := range e.Cases {
		if c.Value != want[c.Name] {
			t.Errorf("%s = %d, want %d", c.Name, c.Value, want[c.Name])
		}
	}
	if err := Validate(e); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if i, ok := e.CaseByValue(6); !ok || e.Cases[i].Name != "How" {
		t.Errorf("CaseByValue(6) = %d, %v", i, ok)
	}
	if _, ok := e.CaseByValue(1); ok {
		t.Error("CaseByValue(1) should not match")
	}
}

func TestValidate(t *testing.T) {
	simple := Enum("Simple", Case("A"))
	tests := []struct {
		typ     *Type
		name    string
		wantErr bool
	}{
		{name: "struct", typ: Struct("BasicStruct", F("foo", S32), F("bar", String), F("baz", Bool))},
		{name: "newtype", typ: Newtype("NewtypeStruct", U32)},
		{name: "tuple", typ: Tuple("TupleStruct", String, String)},
		{name: "unit struct", typ: Struct("Empty")},
		{name: "list of handles", typ: List(Handle("HandleStruct"))},
		{name: "nested data enum", typ: DataEnum("Outer", TupleVariant("In", DataEnum("Inner", TupleVariant("S", simple))))},
		{name: "duplicate discriminant", typ: Enum("Dup", CaseValue("A", 1), CaseValue("B", 1)), wantErr: true},
		{name: "implicit collides with explicit", typ: Enum("Dup2", CaseValue("A", 1), CaseValue("B", 0), Case("C")), wantErr: true},
		{name: "duplicate case name", typ: Enum("DupName", Case("A"), Case("A")), wantErr: true},
		{name: "discriminant overflows repr", typ: Enum("Small", CaseValue("Big", 300)).WithRepr(KindU8), wantErr: true},
		{name: "negative in unsigned repr", typ: Enum("Unsigned", CaseValue("Neg", -1)).WithRepr(KindU16), wantErr: true},
		{name: "float repr", typ: Enum("Float", Case("A")).WithRepr(KindF32), wantErr: true},
		{name: "empty enum", typ: Enum("Empty"), wantErr: true},
		{name: "empty data enum", typ: DataEnum("Empty"), wantErr: true},
		{name: "handle in struct", typ: Struct("Holder", F("h", Handle("Res"))), wantErr: true},
		{name: "handle list in variant", typ: DataEnum("Holder", TupleVariant("H", List(Handle("Res")))), wantErr: true},
		{name: "newtype arity", typ: &Type{Kind: KindStruct, Name: "Bad", Shape: ShapeNewtype}, wantErr: true},
		{name: "duplicate field", typ: Struct("Dup", F("a", U8), F("a", U8)), wantErr: true},
		{name: "unnamed struct", typ: Struct("", F("a", U8)), wantErr: true},
		{name: "shadows builtin", typ: Struct("string"), wantErr: true},
		{name: "duplicate variant", typ: DataEnum("Dup", Unit("A"), Unit("A")), wantErr: true},
		{name: "list without elem", typ: &Type{Kind: KindList}, wantErr: true},
		{name: "list of unit structs", typ: List(Struct("Unit")), wantErr: true},
		{name: "list of nested unit structs", typ: List(Tuple("Wrap", Struct("Inner"))), wantErr: true},
		{name: "list of lists of unit structs", typ: List(List(Struct("Unit"))), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var e *bgerrors.Error
				if !errors.As(err, &e) || e.Kind != bgerrors.KindInvalidDefinition {
					t.Errorf("error %v is not an invalid definition", err)
				}
			}
		})
	}
}

func TestCrossEnumDiscriminantsAllowed(t *testing.T) {
	cat := NewCatalog()
	if err := cat.Define(Enum("A", CaseValue("X", 5))); err != nil {
		t.Fatal(err)
	}
	if err := cat.Define(Enum("B", CaseValue("Y", 5))); err != nil {
		t.Fatalf("discriminant shared across enums rejected: %v", err)
	}
}

func TestValidateRecursive(t *testing.T) {
	tree := &Type{Kind: KindDataEnum, Name: "Tree"}
	tree.Variants = []Variant{
		Unit("Leaf"),
		TupleVariant("Node", List(tree)),
	}
	if err := Validate(tree); err != nil {
		t.Fatalf("Validate(recursive) = %v", err)
	}
	if got := tree.MinSize(); got != 1 {
		t.Errorf("MinSize = %d, want 1", got)
	}
}

func TestLayout(t *testing.T) {
	simple := Enum("SimpleCEnum", Case("Foo"), Case("Bar"), Case("Baz")).WithRepr(KindU8)
	tests := []struct {
		typ     *Type
		name    string
		minSize int
		size    int
		fixed   bool
	}{
		{name: "bool", typ: Bool, minSize: 1, size: 1, fixed: true},
		{name: "f64", typ: F64, minSize: 8, size: 8, fixed: true},
		{name: "string", typ: String, minSize: 4},
		{name: "list", typ: List(U64), minSize: 4},
		{name: "handle", typ: Handle("H"), minSize: 8, size: 8, fixed: true},
		{name: "u8 enum", typ: simple, minSize: 1, size: 1, fixed: true},
		{name: "copy tuple", typ: Tuple("CopyTupleStruct", S32, S32), minSize: 8, size: 8, fixed: true},
		{name: "basic struct", typ: Struct("BasicStruct", F("foo", S32), F("bar", String), F("baz", Bool)), minSize: 9},
		{
			name:    "data enum",
			typ:     DataEnum("D", Unit("Foo"), TupleVariant("Bar", String), StructVariant("Baz", F("name", String), F("value", S32))),
			minSize: 1,
		},
		{
			name:    "fixed data enum",
			typ:     DataEnum("F", TupleVariant("A", U32), TupleVariant("B", F32)),
			minSize: 5, size: 5, fixed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewCalculator().Calculate(tt.typ)
			if info.MinSize != tt.minSize {
				t.Errorf("MinSize = %d, want %d", info.MinSize, tt.minSize)
			}
			if info.Fixed != tt.fixed || info.Size != tt.size {
				t.Errorf("Size = %d fixed=%v, want %d fixed=%v", info.Size, info.Fixed, tt.size, tt.fixed)
			}
		})
	}
}

func TestTagSize(t *testing.T) {
	tests := []struct{ n, want int }{
		{1, 1}, {256, 1}, {257, 2}, {65536, 2}, {65537, 4},
	}
	for _, tt := range tests {
		if got := TagSize(tt.n); got != tt.want {
			t.Errorf("TagSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestFlatCount(t *testing.T) {
	tests := []struct {
		typ  *Type
		want int
	}{
		{S32, 1},
		{F64, 1},
		{Char, 1},
		{Enum("E", Case("A")), 1},
		{Handle("H"), 1},
		{String, 2},
		{List(U8), 2},
		{Newtype("N", U32), 2},
		{DataEnum("D", Unit("A")), 2},
	}
	for _, tt := range tests {
		if got := tt.typ.FlatCount(); got != tt.want {
			t.Errorf("%s FlatCount = %d, want %d", tt.typ, got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		typ  *Type
		want string
	}{
		{Struct("BasicStruct", F("foo", S32), F("bar", String)), "struct BasicStruct { foo: s32, bar: string }"},
		{Tuple("TupleStruct", String, String), "tuple TupleStruct(string, string)"},
		{Enum("E", Case("A"), CaseValue("B", 5)), "enum E: s32 { A = 0, B = 5 }"},
		{DataEnum("D", Unit("Foo"), TupleVariant("Bar", String)), "data-enum D { Foo, Bar(string) }"},
		{Handle("PersonInfo"), "resource PersonInfo"},
		{List(List(U8)), "list<list<u8>>"},
	}
	for _, tt := range tests {
		if got := tt.typ.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
	}
}

func TestFieldName(t *testing.T) {
	tup := Tuple("T", String, String)
	if got := FieldName(tup.Fields[1], 1); got != "Element1" {
		t.Errorf("FieldName = %q, want Element1", got)
	}
	st := Struct("S", F("value", U8))
	if got := FieldName(st.Fields[0], 0); got != "value" {
		t.Errorf("FieldName = %q, want value", got)
	}
}

func TestKindString(t *testing.T) {
	if KindDataEnum.String() != "data-enum" {
		t.Errorf("KindDataEnum.String() = %q", KindDataEnum.String())
	}
	if Kind(200).String() != "unknown" {
		t.Errorf("Kind(200).String() = %q", Kind(200).String())
	}
	if !strings.Contains(ShapeNewtype.String(), "newtype") {
		t.Errorf("ShapeNewtype.String() = %q", ShapeNewtype.String())
	}
}
