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

// HandleBinder registers a native identity read from the wire and returns
// the caller-side handle for it.
type HandleBinder interface {
	BindHandle(t *schema.Type, native uint64) (value.Handle, error)
}

// Decoder reads values in the packed wire format. Decoding never reads past
// the input and never produces a value for a tag or discriminant outside the
// declared set. A Decoder is safe for concurrent use if its binder is.
type Decoder struct {
	handles HandleBinder
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// SetHandles sets the binder used for handle values. Without one, decoding a
// handle fails.
func (d *Decoder) SetHandles(b HandleBinder) {
	d.handles = b
}

// Decode decodes a value of type t that must occupy all of data.
func (d *Decoder) Decode(t *schema.Type, data []byte) (value.Value, error) {
	v, n, err := d.DecodePrefix(t, data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, errors.InvalidEncoding(errors.PhaseDecode, nil,
			fmt.Sprintf("%d trailing bytes after %s", len(data)-n, t))
	}
	return v, nil
}

// DecodePrefix decodes a value of type t from the start of data and reports
// how many bytes it used.
func (d *Decoder) DecodePrefix(t *schema.Type, data []byte) (value.Value, int, error) {
	r := reader{data: data}
	v, err := d.decode(&r, t, nil)
	if err != nil {
		return nil, 0, err
	}
	return v, r.off, nil
}

// Decode decodes a handle-free value of type t from data.
func Decode(t *schema.Type, data []byte) (value.Value, error) {
	return NewDecoder().Decode(t, data)
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) take(n int, path []string) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, errors.Truncated(errors.PhaseDecode, path, n, r.remaining())
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint(width int, path []string) (uint64, error) {
	b, err := r.take(width, path)
	if err != nil {
		return 0, err
	}
	return abi.Uint(b), nil
}

func (d *Decoder) decode(r *reader, t *schema.Type, path []string) (value.Value, error) {
	switch t.Kind {
	case schema.KindBool:
		b, err := r.uint(1, path)
		if err != nil {
			return nil, err
		}
		switch b {
		case 0:
			return value.Bool(false), nil
		case 1:
			return value.Bool(true), nil
		}
		return nil, errors.InvalidEncoding(errors.PhaseDecode, path, fmt.Sprintf("bool byte %#x", b))
	case schema.KindU8, schema.KindS8, schema.KindU16, schema.KindS16,
		schema.KindU32, schema.KindS32, schema.KindU64, schema.KindS64:
		bits, err := r.uint(t.Kind.Width(), path)
		if err != nil {
			return nil, err
		}
		return intValue(t.Kind, bits), nil
	case schema.KindF32:
		bits, err := r.uint(4, path)
		if err != nil {
			return nil, err
		}
		return value.F32(math.Float32frombits(uint32(bits))), nil
	case schema.KindF64:
		bits, err := r.uint(8, path)
		if err != nil {
			return nil, err
		}
		return value.F64(math.Float64frombits(bits)), nil
	case schema.KindChar:
		bits, err := r.uint(4, path)
		if err != nil {
			return nil, err
		}
		if bits > math.MaxInt32 || !abi.ValidateChar(rune(bits)) {
			return nil, errors.InvalidEncoding(errors.PhaseDecode, path, fmt.Sprintf("invalid char %#x", bits))
		}
		return value.Char(rune(bits)), nil
	case schema.KindString:
		return d.decodeString(r, path)
	case schema.KindStruct:
		fields, err := d.decodeFields(r, t.Fields, path)
		if err != nil {
			return nil, err
		}
		return value.Struct{Fields: fields}, nil
	case schema.KindEnum:
		return d.decodeEnum(r, t, path)
	case schema.KindDataEnum:
		return d.decodeVariant(r, t, path)
	case schema.KindList:
		return d.decodeList(r, t, path)
	case schema.KindHandle:
		native, err := r.uint(8, path)
		if err != nil {
			return nil, err
		}
		if d.handles == nil {
			return nil, errors.InvalidInput(errors.PhaseDecode, "handle value without a handle binder")
		}
		return d.handles.BindHandle(t, native)
	}
	return nil, errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("unsupported kind %s", t.Kind))
}

func (d *Decoder) decodeString(r *reader, path []string) (value.Value, error) {
	n, err := r.uint(4, path)
	if err != nil {
		return nil, err
	}
	if n > MaxStringSize {
		return nil, errors.InvalidEncoding(errors.PhaseDecode, path,
			fmt.Sprintf("string length %d exceeds maximum %d", n, MaxStringSize))
	}
	b, err := r.take(int(n), path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, errors.InvalidUTF8(errors.PhaseDecode, path, b)
	}
	return value.String(b), nil
}

func (d *Decoder) decodeFields(r *reader, decl []schema.Field, path []string) ([]value.Value, error) {
	if len(decl) == 0 {
		return nil, nil
	}
	fields := make([]value.Value, len(decl))
	for i, f := range decl {
		v, err := d.decode(r, f.Type, errors.Prefix(path, schema.FieldName(f, i)))
		if err != nil {
			return nil, err
		}
		fields[i] = v
	}
	return fields, nil
}

func (d *Decoder) decodeEnum(r *reader, t *schema.Type, path []string) (value.Value, error) {
	width := t.Repr.Width()
	bits, err := r.uint(width, path)
	if err != nil {
		return nil, err
	}
	disc := int64(bits)
	if t.Repr.IsSigned() {
		disc = abi.SignExtend(bits, width)
	}
	i, ok := t.CaseByValue(disc)
	if !ok {
		return nil, errors.UnknownDiscriminant(errors.PhaseDecode, path, disc, t.Name)
	}
	return value.Enum{Case: t.Cases[i].Name, Discriminant: disc}, nil
}

func (d *Decoder) decodeVariant(r *reader, t *schema.Type, path []string) (value.Value, error) {
	tag, err := r.uint(schema.TagSize(len(t.Variants)), path)
	if err != nil {
		return nil, err
	}
	if tag >= uint64(len(t.Variants)) {
		return nil, errors.UnknownVariant(errors.PhaseDecode, path, uint32(tag), len(t.Variants), t.Name)
	}
	vr := t.Variants[tag]
	fields, err := d.decodeFields(r, vr.Fields, errors.Prefix(path, vr.Name))
	if err != nil {
		return nil, err
	}
	return value.Variant{Case: vr.Name, Fields: fields}, nil
}

func (d *Decoder) decodeList(r *reader, t *schema.Type, path []string) (value.Value, error) {
	count, err := r.uint(4, path)
	if err != nil {
		return nil, err
	}
	if count > MaxListLength {
		return nil, errors.InvalidEncoding(errors.PhaseDecode, path,
			fmt.Sprintf("list length %d exceeds maximum %d", count, MaxListLength))
	}
	// The declared count must fit the remaining input before anything is
	// allocated for it. Zero-size elements are charged one byte each.
	elemSize := max(t.Elem.MinSize(), 1)
	need, ok := abi.SafeMulU32(uint32(count), uint32(elemSize))
	if !ok || int64(need) > int64(r.remaining()) {
		return nil, errors.New(errors.PhaseDecode, errors.KindTruncatedInput).Path(path...).
			Detail("%d elements need at least %d bytes, %d available", count, uint64(count)*uint64(elemSize), r.remaining()).
			Build()
	}

	elems := make([]value.Value, count)
	for i := range elems {
		v, err := d.decode(r, t.Elem, errors.Prefix(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return value.List{Elems: elems}, nil
}

func intValue(kind schema.Kind, bits uint64) value.Value {
	switch kind {
	case schema.KindU8:
		return value.U8(bits)
	case schema.KindS8:
		return value.S8(bits)
	case schema.KindU16:
		return value.U16(bits)
	case schema.KindS16:
		return value.S16(bits)
	case schema.KindU32:
		return value.U32(bits)
	case schema.KindS32:
		return value.S32(bits)
	case schema.KindU64:
		return value.U64(bits)
	default:
		return value.S64(bits)
	}
}
