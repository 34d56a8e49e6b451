package transcoder

import (
	"errors"
	"math"
	"testing"

	bgerrors "github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/value"
)

func TestLowerLift(t *testing.T) {
	tests := []struct {
		typ  *schema.Type
		val  value.Value
		name string
		slot uint64
	}{
		{schema.Bool, value.Bool(true), "bool", 1},
		{schema.U8, value.U8(200), "u8", 200},
		{schema.S8, value.S8(-1), "s8", math.MaxUint64},
		{schema.S32, value.S32(-42), "s32", uint64(math.MaxUint64 - 41)},
		{schema.U64, value.U64(math.MaxUint64), "u64", math.MaxUint64},
		{schema.F32, value.F32(1.5), "f32", uint64(math.Float32bits(1.5))},
		{schema.F64, value.F64(2.25), "f64", math.Float64bits(2.25)},
		{schema.Char, value.Char('x'), "char", 'x'},
		{withDiscriminants, value.Enum{Case: "There"}, "enum", 5},
		{withDiscriminants, value.Enum{Case: "You"}, "negative enum", uint64(math.MaxUint64 - 11)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := Lower(tt.typ, tt.val)
			if err != nil {
				t.Fatalf("Lower: %v", err)
			}
			if slot != tt.slot {
				t.Errorf("Lower = %#x, want %#x", slot, tt.slot)
			}
			got, err := Lift(tt.typ, slot)
			if err != nil {
				t.Fatalf("Lift: %v", err)
			}
			if !value.Equal(got, tt.val) {
				t.Errorf("Lift = %s, want %s", value.Format(got), value.Format(tt.val))
			}
		})
	}
}

func TestLift_ZeroExtendedSigned(t *testing.T) {
	got, err := Lift(schema.S32, 0xffffffd6)
	if err != nil {
		t.Fatal(err)
	}
	if got != value.S32(-42) {
		t.Errorf("Lift = %v, want -42", got)
	}

	got, err = Lift(withDiscriminants, 0xfffffff4)
	if err != nil {
		t.Fatal(err)
	}
	if e := got.(value.Enum); e.Case != "You" {
		t.Errorf("Lift = %+v, want You", e)
	}
}

func TestLift_Errors(t *testing.T) {
	tests := []struct {
		typ      *schema.Type
		sentinel error
		name     string
		slot     uint64
	}{
		{schema.Bool, bgerrors.ErrInvalidEncoding, "bool 2", 2},
		{schema.U8, bgerrors.ErrInvalidEncoding, "u8 overflow", 256},
		{schema.S8, bgerrors.ErrInvalidEncoding, "s8 overflow", 200},
		{schema.U32, bgerrors.ErrInvalidEncoding, "u32 upper bits", 1 << 32},
		{schema.F32, bgerrors.ErrInvalidEncoding, "f32 upper bits", 1 << 40},
		{schema.Char, bgerrors.ErrInvalidEncoding, "surrogate", 0xdfff},
		{simpleCEnum, bgerrors.ErrUnknownDiscriminant, "unknown case", 3},
		{simpleCEnum, bgerrors.ErrInvalidEncoding, "repr overflow", 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lift(tt.typ, tt.slot)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("Lift(%#x) error = %v, want %v", tt.slot, err, tt.sentinel)
			}
		})
	}
}

func TestLower_Errors(t *testing.T) {
	if _, err := Lower(schema.String, value.String("x")); err == nil {
		t.Error("strings do not travel in one slot")
	}
	if _, err := Lower(schema.U8, value.S8(1)); !errors.Is(err, bgerrors.ErrTypeMismatch) {
		t.Errorf("error = %v, want type mismatch", err)
	}
	if _, err := Lower(simpleCEnum, value.Enum{Case: "Qux"}); !errors.Is(err, bgerrors.ErrUnknownDiscriminant) {
		t.Errorf("error = %v, want unknown discriminant", err)
	}
}
