package transcoder

import (
	"fmt"
	"math"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/transcoder/internal/abi"
	"github.com/wippyai/bindgen/value"
)

// Lower converts a scalar or discriminant enum value into its call slot.
// Signed integers and enum discriminants are sign-extended; floats travel as
// their IEEE-754 bits.
func Lower(t *schema.Type, v value.Value) (uint64, error) {
	switch t.Kind {
	case schema.KindBool:
		x, ok := v.(value.Bool)
		if !ok {
			return 0, stackMismatch(v, t)
		}
		if x {
			return 1, nil
		}
		return 0, nil
	case schema.KindU8, schema.KindU16, schema.KindU32, schema.KindU64:
		bits, ok := intBits(t.Kind, v)
		if !ok {
			return 0, stackMismatch(v, t)
		}
		return bits, nil
	case schema.KindS8, schema.KindS16, schema.KindS32, schema.KindS64:
		bits, ok := intBits(t.Kind, v)
		if !ok {
			return 0, stackMismatch(v, t)
		}
		return uint64(abi.SignExtend(bits, t.Kind.Width())), nil
	case schema.KindF32:
		x, ok := v.(value.F32)
		if !ok {
			return 0, stackMismatch(v, t)
		}
		return uint64(math.Float32bits(float32(x))), nil
	case schema.KindF64:
		x, ok := v.(value.F64)
		if !ok {
			return 0, stackMismatch(v, t)
		}
		return math.Float64bits(float64(x)), nil
	case schema.KindChar:
		x, ok := v.(value.Char)
		if !ok {
			return 0, stackMismatch(v, t)
		}
		if !abi.ValidateChar(rune(x)) {
			return 0, errors.InvalidEncoding(errors.PhaseEncode, nil, fmt.Sprintf("invalid char %#x", int32(x)))
		}
		return uint64(x), nil
	case schema.KindEnum:
		x, ok := v.(value.Enum)
		if !ok {
			return 0, stackMismatch(v, t)
		}
		var i int
		if x.Case != "" {
			i, ok = t.CaseByName(x.Case)
		} else {
			i, ok = t.CaseByValue(x.Discriminant)
		}
		if !ok {
			return 0, errors.UnknownDiscriminant(errors.PhaseEncode, nil, x.Discriminant, t.Name)
		}
		return uint64(t.Cases[i].Value), nil
	}
	return 0, errors.InvalidInput(errors.PhaseEncode, fmt.Sprintf("%s does not travel in a single slot", t))
}

// Lift converts a call slot back into a value, rejecting slots outside the
// range of the declared kind.
func Lift(t *schema.Type, slot uint64) (value.Value, error) {
	switch t.Kind {
	case schema.KindBool:
		switch slot {
		case 0:
			return value.Bool(false), nil
		case 1:
			return value.Bool(true), nil
		}
		return nil, errors.InvalidEncoding(errors.PhaseDecode, nil, fmt.Sprintf("bool slot %#x", slot))
	case schema.KindU8, schema.KindU16, schema.KindU32, schema.KindU64:
		if _, hi := t.Kind.IntRange(); slot > hi {
			return nil, slotRange(slot, t)
		}
		return intValue(t.Kind, slot), nil
	case schema.KindS8, schema.KindS16, schema.KindS32, schema.KindS64:
		lo, hi := t.Kind.IntRange()
		bits := widen(slot, t.Kind)
		if s := int64(bits); s < lo || (s > 0 && uint64(s) > hi) {
			return nil, slotRange(slot, t)
		}
		return intValue(t.Kind, bits), nil
	case schema.KindF32:
		if slot>>32 != 0 {
			return nil, slotRange(slot, t)
		}
		return value.F32(math.Float32frombits(uint32(slot))), nil
	case schema.KindF64:
		return value.F64(math.Float64frombits(slot)), nil
	case schema.KindChar:
		if slot > math.MaxInt32 || !abi.ValidateChar(rune(slot)) {
			return nil, errors.InvalidEncoding(errors.PhaseDecode, nil, fmt.Sprintf("invalid char %#x", slot))
		}
		return value.Char(rune(slot)), nil
	case schema.KindEnum:
		disc := int64(slot)
		if t.Repr.IsSigned() {
			disc = int64(widen(slot, t.Repr))
		}
		lo, hi := t.Repr.IntRange()
		if disc < lo || (disc > 0 && uint64(disc) > hi) {
			return nil, slotRange(slot, t)
		}
		i, ok := t.CaseByValue(disc)
		if !ok {
			return nil, errors.UnknownDiscriminant(errors.PhaseDecode, nil, disc, t.Name)
		}
		return value.Enum{Case: t.Cases[i].Name, Discriminant: disc}, nil
	}
	return nil, errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("%s does not travel in a single slot", t))
}

// widen sign-extends a narrow signed slot that arrived as a zero-extended
// 32-bit core value.
func widen(slot uint64, kind schema.Kind) uint64 {
	if kind.Width() <= 4 && slot>>32 == 0 {
		return uint64(abi.SignExtend(slot, 4))
	}
	return slot
}

func stackMismatch(v value.Value, t *schema.Type) *errors.Error {
	return errors.TypeMismatch(errors.PhaseEncode, nil, abi.TypeName(v), t.String())
}

func slotRange(slot uint64, t *schema.Type) *errors.Error {
	return errors.InvalidEncoding(errors.PhaseDecode, nil, fmt.Sprintf("slot %#x out of range for %s", slot, t))
}
