package transcoder

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/transcoder/internal/abi"
	"github.com/wippyai/bindgen/value"
)

// Safety limits to prevent memory exhaustion from hostile lengths.
const (
	MaxStringSize = abi.MaxStringSize
	MaxListLength = abi.MaxListLength
	MaxAlloc      = abi.MaxAlloc
)

// HandleResolver maps a caller-side handle to the native identity written
// on the wire. The runtime borrows the handle for the duration of the call.
type HandleResolver interface {
	ResolveHandle(t *schema.Type, h value.Handle) (uint64, error)
}

// Encoder writes values in the packed wire format. An Encoder appends to an
// internal buffer and is not safe for concurrent use; reuse it via
// AcquireEncoder and ReleaseEncoder.
type Encoder struct {
	handles HandleResolver
	buf     []byte
}

func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// SetHandles sets the resolver used for handle values. Without one, encoding
// a handle fails.
func (e *Encoder) SetHandles(r HandleResolver) {
	e.handles = r
}

// Reset clears the buffer and resolver.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
	e.handles = nil
}

// Bytes returns the encoded bytes. The slice is valid until the next Reset.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Encode appends the encoding of v, a value of type t.
func (e *Encoder) Encode(t *schema.Type, v value.Value) error {
	return e.encode(t, v, nil)
}

// Encode returns the wire encoding of v in a fresh slice.
func Encode(t *schema.Type, v value.Value) ([]byte, error) {
	enc := AcquireEncoder()
	defer ReleaseEncoder(enc)
	if err := enc.Encode(t, v); err != nil {
		return nil, err
	}
	return append([]byte(nil), enc.Bytes()...), nil
}

func (e *Encoder) encode(t *schema.Type, v value.Value, path []string) error {
	switch t.Kind {
	case schema.KindBool:
		x, ok := v.(value.Bool)
		if !ok {
			return encMismatch(path, v, t)
		}
		if x {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
	case schema.KindU8, schema.KindS8, schema.KindU16, schema.KindS16,
		schema.KindU32, schema.KindS32, schema.KindU64, schema.KindS64:
		bits, ok := intBits(t.Kind, v)
		if !ok {
			return encMismatch(path, v, t)
		}
		e.buf = abi.PutUint(e.buf, t.Kind.Width(), bits)
	case schema.KindF32:
		x, ok := v.(value.F32)
		if !ok {
			return encMismatch(path, v, t)
		}
		e.buf = abi.PutUint(e.buf, 4, uint64(math.Float32bits(float32(x))))
	case schema.KindF64:
		x, ok := v.(value.F64)
		if !ok {
			return encMismatch(path, v, t)
		}
		e.buf = abi.PutUint(e.buf, 8, math.Float64bits(float64(x)))
	case schema.KindChar:
		x, ok := v.(value.Char)
		if !ok {
			return encMismatch(path, v, t)
		}
		if !abi.ValidateChar(rune(x)) {
			return errors.InvalidEncoding(errors.PhaseEncode, path, fmt.Sprintf("invalid char %#x", int32(x)))
		}
		e.buf = abi.PutUint(e.buf, 4, uint64(x))
	case schema.KindString:
		x, ok := v.(value.String)
		if !ok {
			return encMismatch(path, v, t)
		}
		return e.encodeString(string(x), path)
	case schema.KindStruct:
		x, ok := v.(value.Struct)
		if !ok {
			return encMismatch(path, v, t)
		}
		return e.encodeFields(t.Name, t.Fields, x.Fields, path)
	case schema.KindEnum:
		x, ok := v.(value.Enum)
		if !ok {
			return encMismatch(path, v, t)
		}
		return e.encodeEnum(t, x, path)
	case schema.KindDataEnum:
		x, ok := v.(value.Variant)
		if !ok {
			return encMismatch(path, v, t)
		}
		return e.encodeVariant(t, x, path)
	case schema.KindList:
		x, ok := v.(value.List)
		if !ok {
			return encMismatch(path, v, t)
		}
		return e.encodeList(t, x, path)
	case schema.KindHandle:
		x, ok := v.(value.Handle)
		if !ok {
			return encMismatch(path, v, t)
		}
		if e.handles == nil {
			return errors.InvalidInput(errors.PhaseEncode, "handle value without a handle resolver")
		}
		native, err := e.handles.ResolveHandle(t, x)
		if err != nil {
			if he, ok := errors.AsError(err); ok && len(he.Path) == 0 {
				he.Path = path
			}
			return err
		}
		e.buf = abi.PutUint(e.buf, 8, native)
	default:
		return errors.InvalidInput(errors.PhaseEncode, fmt.Sprintf("unsupported kind %s", t.Kind))
	}
	return nil
}

func (e *Encoder) encodeString(s string, path []string) error {
	if !utf8.ValidString(s) {
		return errors.InvalidUTF8(errors.PhaseEncode, path, []byte(s))
	}
	if len(s) > MaxStringSize {
		return errors.New(errors.PhaseEncode, errors.KindOverflow).Path(path...).
			Detail("string length %d exceeds maximum %d", len(s), MaxStringSize).Build()
	}
	e.buf = abi.PutUint(e.buf, 4, uint64(len(s)))
	e.buf = append(e.buf, s...)
	return nil
}

func (e *Encoder) encodeFields(owner string, decl []schema.Field, fields []value.Value, path []string) error {
	if len(fields) != len(decl) {
		return errors.New(errors.PhaseEncode, errors.KindTypeMismatch).Path(path...).Type(owner).
			Detail("%d fields, want %d", len(fields), len(decl)).Build()
	}
	for i, f := range decl {
		if err := e.encode(f.Type, fields[i], errors.Prefix(path, schema.FieldName(f, i))); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeEnum(t *schema.Type, x value.Enum, path []string) error {
	var c schema.EnumCase
	if x.Case != "" {
		i, ok := t.CaseByName(x.Case)
		if !ok {
			return errors.New(errors.PhaseEncode, errors.KindUnknownDiscriminant).
				Path(path...).Type(t.Name).Value(x.Case).
				Detail("no case named %q", x.Case).Build()
		}
		c = t.Cases[i]
	} else {
		i, ok := t.CaseByValue(x.Discriminant)
		if !ok {
			return errors.UnknownDiscriminant(errors.PhaseEncode, path, x.Discriminant, t.Name)
		}
		c = t.Cases[i]
	}
	e.buf = abi.PutUint(e.buf, t.Repr.Width(), uint64(c.Value))
	return nil
}

func (e *Encoder) encodeVariant(t *schema.Type, x value.Variant, path []string) error {
	tag, ok := t.VariantByName(x.Case)
	if !ok {
		return errors.New(errors.PhaseEncode, errors.KindUnknownVariant).
			Path(path...).Type(t.Name).Value(x.Case).
			Detail("no variant named %q", x.Case).Build()
	}
	e.buf = abi.PutUint(e.buf, schema.TagSize(len(t.Variants)), uint64(tag))
	vr := t.Variants[tag]
	return e.encodeFields(t.Name+"::"+vr.Name, vr.Fields, x.Fields, errors.Prefix(path, vr.Name))
}

func (e *Encoder) encodeList(t *schema.Type, x value.List, path []string) error {
	if len(x.Elems) > MaxListLength {
		return errors.New(errors.PhaseEncode, errors.KindOverflow).Path(path...).
			Detail("list length %d exceeds maximum %d", len(x.Elems), MaxListLength).Build()
	}
	e.buf = abi.PutUint(e.buf, 4, uint64(len(x.Elems)))
	for i, el := range x.Elems {
		if err := e.encode(t.Elem, el, errors.Prefix(path, "["+strconv.Itoa(i)+"]")); err != nil {
			return err
		}
	}
	return nil
}

// intBits returns the two's complement bits of an integer value whose Go type
// matches kind exactly.
func intBits(kind schema.Kind, v value.Value) (uint64, bool) {
	switch x := v.(type) {
	case value.U8:
		return uint64(x), kind == schema.KindU8
	case value.S8:
		return uint64(int64(x)), kind == schema.KindS8
	case value.U16:
		return uint64(x), kind == schema.KindU16
	case value.S16:
		return uint64(int64(x)), kind == schema.KindS16
	case value.U32:
		return uint64(x), kind == schema.KindU32
	case value.S32:
		return uint64(int64(x)), kind == schema.KindS32
	case value.U64:
		return uint64(x), kind == schema.KindU64
	case value.S64:
		return uint64(x), kind == schema.KindS64
	}
	return 0, false
}

func encMismatch(path []string, v value.Value, t *schema.Type) *errors.Error {
	return errors.TypeMismatch(errors.PhaseEncode, path, abi.TypeName(v), t.String())
}
