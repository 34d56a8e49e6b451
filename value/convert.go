package value

import (
	"fmt"
	"reflect"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/schema"
)

// Valuer is implemented by Go types that convert themselves into a Value.
// Typed data-enum glue implements it on every variant struct.
type Valuer interface {
	ToValue() (Value, error)
}

// Scanner is implemented by pointer types that fill themselves from a Value.
type Scanner interface {
	FromValue(Value) error
}

// HandleValuer is implemented by caller-side handle proxies.
type HandleValuer interface {
	HandleValue() Handle
}

var (
	valueType   = reflect.TypeOf((*Value)(nil)).Elem()
	scannerType = reflect.TypeOf((*Scanner)(nil)).Elem()
	handleType  = reflect.TypeOf(Handle{})
)

// Of converts a Go value into a Value of type t. It accepts Values as-is,
// Valuers, HandleValuers, and plain Go scalars, strings, structs (exported
// fields in order), slices and arrays. Enums accept a case name or a
// discriminant.
func Of(t *schema.Type, x any) (Value, error) {
	return of(t, reflect.ValueOf(x), nil)
}

func of(t *schema.Type, rv reflect.Value, path []string) (Value, error) {
	if !rv.IsValid() {
		return nil, mismatch(errors.PhaseEncode, path, "nil", t)
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, mismatch(errors.PhaseEncode, path, "nil", t)
		}
		rv = rv.Elem()
	}
	// Nil pointers never reach Valuer methods.
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, mismatch(errors.PhaseEncode, path, rv.Type().String(), t)
	}

	if rv.CanInterface() {
		switch x := rv.Interface().(type) {
		case Value:
			if x.Kind() != t.Kind {
				return nil, mismatch(errors.PhaseEncode, path, fmt.Sprintf("value.%s", x.Kind()), t)
			}
			return x, nil
		case Valuer:
			v, err := x.ToValue()
			if err != nil {
				return nil, err
			}
			if v.Kind() != t.Kind {
				return nil, mismatch(errors.PhaseEncode, path, rv.Type().String(), t)
			}
			return v, nil
		case HandleValuer:
			if t.Kind != schema.KindHandle {
				return nil, mismatch(errors.PhaseEncode, path, rv.Type().String(), t)
			}
			return x.HandleValue(), nil
		}
	}

	if rv.Kind() == reflect.Pointer {
		return of(t, rv.Elem(), path)
	}

	switch t.Kind {
	case schema.KindBool:
		if rv.Kind() == reflect.Bool {
			return Bool(rv.Bool()), nil
		}
	case schema.KindU8, schema.KindS8, schema.KindU16, schema.KindS16,
		schema.KindU32, schema.KindS32, schema.KindU64, schema.KindS64:
		if v, ok, err := intOf(t.Kind, rv, path); ok {
			return v, err
		}
	case schema.KindF32:
		if isFloat(rv) {
			return F32(float32(rv.Float())), nil
		}
	case schema.KindF64:
		if isFloat(rv) {
			return F64(rv.Float()), nil
		}
	case schema.KindChar:
		if rv.Kind() == reflect.Int32 {
			return Char(rune(rv.Int())), nil
		}
	case schema.KindString:
		if rv.Kind() == reflect.String {
			return String(rv.String()), nil
		}
	case schema.KindEnum:
		return enumOf(t, rv, path)
	case schema.KindStruct:
		if rv.Kind() == reflect.Struct {
			return structOf(t, rv, path)
		}
	case schema.KindList:
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			elems := make([]Value, rv.Len())
			for i := range elems {
				e, err := of(t.Elem, rv.Index(i), errors.Prefix(path, fmt.Sprintf("[%d]", i)))
				if err != nil {
					return nil, err
				}
				elems[i] = e
			}
			return List{Elems: elems}, nil
		}
	}
	return nil, mismatch(errors.PhaseEncode, path, rv.Type().String(), t)
}

func intOf(k schema.Kind, rv reflect.Value, path []string) (Value, bool, error) {
	lo, hi := k.IntRange()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < lo || (i > 0 && uint64(i) > hi) {
			return nil, true, errors.Overflow(errors.PhaseEncode, path, i, k.String())
		}
		return makeInt(k, uint64(i)), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > hi {
			return nil, true, errors.Overflow(errors.PhaseEncode, path, u, k.String())
		}
		return makeInt(k, u), true, nil
	}
	return nil, false, nil
}

// makeInt truncates bits to the width of k; callers check the range first.
func makeInt(k schema.Kind, bits uint64) Value {
	switch k {
	case schema.KindU8:
		return U8(bits)
	case schema.KindS8:
		return S8(bits)
	case schema.KindU16:
		return U16(bits)
	case schema.KindS16:
		return S16(bits)
	case schema.KindU32:
		return U32(bits)
	case schema.KindS32:
		return S32(bits)
	case schema.KindU64:
		return U64(bits)
	default:
		return S64(bits)
	}
}

func isFloat(rv reflect.Value) bool {
	return rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64
}

func enumOf(t *schema.Type, rv reflect.Value, path []string) (Value, error) {
	switch rv.Kind() {
	case reflect.String:
		i, ok := t.CaseByName(rv.String())
		if !ok {
			return nil, errors.New(errors.PhaseEncode, errors.KindUnknownDiscriminant).
				Path(path...).Type(t.Name).Value(rv.String()).
				Detail("no case named %q", rv.String()).Build()
		}
		c := t.Cases[i]
		return Enum{Case: c.Name, Discriminant: c.Value}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return enumByValue(t, rv.Int(), path)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return enumByValue(t, int64(rv.Uint()), path)
	}
	return nil, mismatch(errors.PhaseEncode, path, rv.Type().String(), t)
}

func enumByValue(t *schema.Type, d int64, path []string) (Value, error) {
	i, ok := t.CaseByValue(d)
	if !ok {
		return nil, errors.UnknownDiscriminant(errors.PhaseEncode, path, d, t.Name)
	}
	return Enum{Case: t.Cases[i].Name, Discriminant: d}, nil
}

func structOf(t *schema.Type, rv reflect.Value, path []string) (Value, error) {
	idx := exportedFields(rv.Type())
	if len(idx) != len(t.Fields) {
		return nil, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			Path(path...).GoType(rv.Type().String()).Type(t.Name).
			Detail("has %d fields, want %d", len(idx), len(t.Fields)).Build()
	}
	fields := make([]Value, len(idx))
	for i, fi := range idx {
		f, err := of(t.Fields[i].Type, rv.Field(fi), errors.Prefix(path, schema.FieldName(t.Fields[i], i)))
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return Struct{Fields: fields}, nil
}

// exportedFields lists the exported fields of a struct type in declaration
// order, skipping those tagged `bindgen:"-"`.
func exportedFields(rt reflect.Type) []int {
	var idx []int
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() || f.Tag.Get("bindgen") == "-" {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

// Assign stores v, a value of type t, into the Go variable dst points to.
// It is the inverse of Of: dst may be a *Value, a Scanner, or a pointer to a
// Go scalar, string, struct or slice of matching shape.
func Assign(t *schema.Type, v Value, dst any) error {
	if s, ok := dst.(Scanner); ok {
		return s.FromValue(v)
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("destination must be a non-nil pointer, got %T", dst))
	}
	return assign(t, v, rv.Elem(), nil)
}

func assign(t *schema.Type, v Value, rv reflect.Value, path []string) error {
	if rv.CanAddr() && rv.Addr().Type().Implements(scannerType) {
		return rv.Addr().Interface().(Scanner).FromValue(v)
	}
	if rv.Type() == valueType || (rv.Kind() == reflect.Interface && rv.NumMethod() == 0) {
		rv.Set(reflect.ValueOf(v))
		return nil
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return assign(t, v, rv.Elem(), path)
	}

	switch x := v.(type) {
	case Bool:
		if rv.Kind() == reflect.Bool {
			rv.SetBool(bool(x))
			return nil
		}
	case U8, U16, U32, U64:
		if ok, err := setUint(rv, uintOf(x), path); ok {
			return err
		}
	case S8, S16, S32, S64:
		if ok, err := setInt(rv, intOfValue(x), path); ok {
			return err
		}
	case F32:
		if isFloat(rv) {
			rv.SetFloat(float64(x))
			return nil
		}
	case F64:
		if isFloat(rv) {
			if rv.OverflowFloat(float64(x)) {
				return errors.Overflow(errors.PhaseDecode, path, float64(x), rv.Type().String())
			}
			rv.SetFloat(float64(x))
			return nil
		}
	case Char:
		if rv.Kind() == reflect.Int32 {
			rv.SetInt(int64(x))
			return nil
		}
	case String:
		if rv.Kind() == reflect.String {
			rv.SetString(string(x))
			return nil
		}
	case Enum:
		if rv.Kind() == reflect.String {
			rv.SetString(x.Case)
			return nil
		}
		if ok, err := setInt(rv, enumDiscriminant(t, x), path); ok {
			return err
		}
	case Struct:
		if rv.Kind() == reflect.Struct {
			return assignStruct(t, x, rv, path)
		}
	case List:
		return assignList(t, x, rv, path)
	case Handle:
		if rv.Type() == handleType {
			rv.Set(reflect.ValueOf(x))
			return nil
		}
	}
	return mismatch(errors.PhaseDecode, path, rv.Type().String(), t)
}

func enumDiscriminant(t *schema.Type, e Enum) int64 {
	if t != nil && t.Kind == schema.KindEnum {
		if i, ok := t.CaseByName(e.Case); ok {
			return t.Cases[i].Value
		}
	}
	return e.Discriminant
}

func uintOf(v Value) uint64 {
	switch x := v.(type) {
	case U8:
		return uint64(x)
	case U16:
		return uint64(x)
	case U32:
		return uint64(x)
	case U64:
		return uint64(x)
	}
	return 0
}

func intOfValue(v Value) int64 {
	switch x := v.(type) {
	case S8:
		return int64(x)
	case S16:
		return int64(x)
	case S32:
		return int64(x)
	case S64:
		return int64(x)
	}
	return 0
}

func setUint(rv reflect.Value, u uint64, path []string) (bool, error) {
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if rv.OverflowUint(u) {
			return true, errors.Overflow(errors.PhaseDecode, path, u, rv.Type().String())
		}
		rv.SetUint(u)
		return true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if u > 1<<63-1 || rv.OverflowInt(int64(u)) {
			return true, errors.Overflow(errors.PhaseDecode, path, u, rv.Type().String())
		}
		rv.SetInt(int64(u))
		return true, nil
	}
	return false, nil
}

func setInt(rv reflect.Value, i int64, path []string) (bool, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.OverflowInt(i) {
			return true, errors.Overflow(errors.PhaseDecode, path, i, rv.Type().String())
		}
		rv.SetInt(i)
		return true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if i < 0 || rv.OverflowUint(uint64(i)) {
			return true, errors.Overflow(errors.PhaseDecode, path, i, rv.Type().String())
		}
		rv.SetUint(uint64(i))
		return true, nil
	}
	return false, nil
}

func assignStruct(t *schema.Type, s Struct, rv reflect.Value, path []string) error {
	idx := exportedFields(rv.Type())
	if len(idx) != len(s.Fields) {
		return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Path(path...).GoType(rv.Type().String()).Type(t.String()).
			Detail("has %d fields, value has %d", len(idx), len(s.Fields)).Build()
	}
	for i, fi := range idx {
		var ft *schema.Type
		name := fmt.Sprintf("Element%d", i)
		if t != nil && i < len(t.Fields) {
			ft = t.Fields[i].Type
			name = schema.FieldName(t.Fields[i], i)
		}
		if err := assign(ft, s.Fields[i], rv.Field(fi), errors.Prefix(path, name)); err != nil {
			return err
		}
	}
	return nil
}

func assignList(t *schema.Type, l List, rv reflect.Value, path []string) error {
	var elem *schema.Type
	if t != nil {
		elem = t.Elem
	}
	switch rv.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(rv.Type(), len(l.Elems), len(l.Elems))
		for i, e := range l.Elems {
			if err := assign(elem, e, out.Index(i), errors.Prefix(path, fmt.Sprintf("[%d]", i))); err != nil {
				return err
			}
		}
		rv.Set(out)
		return nil
	case reflect.Array:
		if rv.Len() != len(l.Elems) {
			return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path(path...).GoType(rv.Type().String()).
				Detail("array length %d, list has %d elements", rv.Len(), len(l.Elems)).Build()
		}
		for i, e := range l.Elems {
			if err := assign(elem, e, rv.Index(i), errors.Prefix(path, fmt.Sprintf("[%d]", i))); err != nil {
				return err
			}
		}
		return nil
	}
	return mismatch(errors.PhaseDecode, path, rv.Type().String(), t)
}

func mismatch(phase errors.Phase, path []string, goType string, t *schema.Type) *errors.Error {
	return errors.TypeMismatch(phase, path, goType, t.String())
}
