package fixture

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/native"
	"github.com/wippyai/bindgen/value"
)

func TestNew_ExportsEverything(t *testing.T) {
	m := New()
	defer m.Close(context.Background())

	for _, f := range Catalog().Funcs() {
		if _, ok := m.Func(f.Symbol()); !ok {
			t.Errorf("%s not exported", f.Symbol())
		}
	}
	for _, h := range Catalog().Handles() {
		if _, ok := m.Func(native.DropName(h)); !ok {
			t.Errorf("drop entry for %s not exported", h)
		}
	}
	if _, ok := m.Func(native.Describe); !ok {
		t.Error("describe not exported")
	}
}

func TestCatalog_Shapes(t *testing.T) {
	c := Catalog()

	tests := []struct {
		name    string
		minSize int
	}{
		{name: "SimpleCEnum", minSize: 4},
		{name: "Suit", minSize: 1},
		{name: "SimpleTile", minSize: 2},
		{name: "DataEnum", minSize: 1},
		{name: "BasicStruct", minSize: 9},
		{name: "NewtypeStruct", minSize: 4},
		{name: "PersonInfo", minSize: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, ok := c.Type(tt.name)
			if !ok {
				t.Fatalf("%s not declared", tt.name)
			}
			if got := typ.MinSize(); got != tt.minSize {
				t.Errorf("MinSize = %d, want %d", got, tt.minSize)
			}
		})
	}

	e, _ := c.Type("EnumWithDiscriminants")
	var got []int64
	for _, cs := range e.Cases {
		got = append(got, cs.Value)
	}
	if diff := cmp.Diff([]int64{0, 5, 6, 7, -12}, got); diff != "" {
		t.Errorf("discriminants mismatch (-want +got):\n%s", diff)
	}
}

func TestDataEnumOf(t *testing.T) {
	tests := []struct {
		want DataEnum
		in   value.Value
		name string
	}{
		{name: "unit", in: value.Variant{Case: "Foo"}, want: DataEnumFoo{}},
		{name: "tuple", in: value.Variant{Case: "Bar", Fields: []value.Value{value.String("Cool string")}}, want: DataEnumBar("Cool string")},
		{
			name: "nested enum",
			in: value.Variant{Case: "Coolness", Fields: []value.Value{
				value.Variant{Case: "Cool", Fields: []value.Value{value.Enum{Case: "Bar"}}},
			}},
			want: DataEnumCoolness{Case: "Cool", Value: SimpleCEnumBar},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DataEnumOf(tt.in)
			if err != nil {
				t.Fatalf("DataEnumOf: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			back, err := got.ToValue()
			if err != nil {
				t.Fatalf("ToValue: %v", err)
			}
			if !value.Equal(back, tt.in) {
				t.Errorf("ToValue = %s, want %s", value.Format(back), value.Format(tt.in))
			}
		})
	}

	errCases := []struct {
		in   value.Value
		name string
		kind errors.Kind
	}{
		{name: "not a variant", in: value.S32(1), kind: errors.KindTypeMismatch},
		{name: "unknown case", in: value.Variant{Case: "Qux"}, kind: errors.KindUnknownVariant},
		{name: "bad payload", in: value.Variant{Case: "Bar", Fields: []value.Value{value.S32(1)}}, kind: errors.KindTypeMismatch},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DataEnumOf(tt.in)
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != tt.kind {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestSimpleCEnum(t *testing.T) {
	if SimpleCEnumBaz.String() != "Baz" {
		t.Errorf("String = %q", SimpleCEnumBaz.String())
	}
	if _, err := SimpleCEnum(3).ToValue(); !stderrors.Is(err, errors.ErrUnknownDiscriminant) {
		t.Errorf("out of range enum converted: %v", err)
	}

	var e SimpleCEnum
	if err := e.FromValue(value.Enum{Case: "Bar", Discriminant: 1}); err != nil || e != SimpleCEnumBar {
		t.Errorf("FromValue = %v, %v", e, err)
	}
	if err := e.FromValue(value.Enum{Case: "Nope"}); !stderrors.Is(err, errors.ErrUnknownDiscriminant) {
		t.Errorf("unknown case accepted: %v", err)
	}
}
