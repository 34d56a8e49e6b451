package main

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/bindgen/errors"
	"github.com/wippyai/bindgen/schema"
	"github.com/wippyai/bindgen/value"
)

// parseArg converts the textual form of an argument into a value of t.
// Strings and chars are taken literally. Everything else is read as YAML
// flow syntax:
//
//	42                          s32
//	[1, 2, 3]                   list<s32>
//	{foo: 1, bar: x, baz: true} struct
//	Foo                         enum case or unit variant
//	{Baz: {name: x, value: 3}}  data-enum variant with payload
func parseArg(t *schema.Type, s string) (value.Value, error) {
	switch t.Kind {
	case schema.KindString:
		return value.String(s), nil
	case schema.KindChar:
		return parseChar(s, nil)
	}
	var node any
	if err := yaml.Unmarshal([]byte(s), &node); err != nil {
		return nil, errors.ParseFailed("argument", err)
	}
	return fromNode(t, node, nil)
}

func parseChar(s string, path []string) (value.Value, error) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Path(path...).Type("char").
			Detail("%q is not a single character", s).
			Build()
	}
	return value.Char(r), nil
}

func fromNode(t *schema.Type, node any, path []string) (value.Value, error) {
	switch t.Kind {
	case schema.KindString:
		if s, ok := scalarText(node); ok {
			return value.String(s), nil
		}
	case schema.KindChar:
		if s, ok := node.(string); ok {
			return parseChar(s, path)
		}
	case schema.KindF32, schema.KindF64:
		if i, ok := node.(int); ok {
			node = float64(i)
		}
		return value.Of(t, node)
	case schema.KindHandle:
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Path(path...).Type(t.String()).
			Detail("handles cannot be written as text").
			Build()
	case schema.KindStruct:
		return structNode(t.Name, t.Shape, t.Fields, node, path)
	case schema.KindDataEnum:
		return variantNode(t, node, path)
	case schema.KindList:
		items, ok := node.([]any)
		if !ok {
			break
		}
		out := value.List{Elems: make([]value.Value, len(items))}
		for i, item := range items {
			v, err := fromNode(t.Elem, item, errors.Prefix(path, "["+strconv.Itoa(i)+"]"))
			if err != nil {
				return nil, err
			}
			out.Elems[i] = v
		}
		return out, nil
	default:
		v, err := value.Of(t, node)
		if err != nil {
			if e, ok := errors.AsError(err); ok && len(e.Path) == 0 {
				e.Path = path
			}
			return nil, err
		}
		return v, nil
	}
	return nil, errors.TypeMismatch(errors.PhaseParse, path, fmt.Sprintf("%T", node), t.String())
}

// scalarText accepts YAML scalars that were meant as strings, such as 42 in
// a string field.
func scalarText(node any) (string, bool) {
	switch x := node.(type) {
	case string:
		return x, true
	case int, float64, bool:
		return fmt.Sprint(x), true
	}
	return "", false
}

func structNode(owner string, shape schema.Shape, fields []schema.Field, node any, path []string) (value.Value, error) {
	out := value.Struct{Fields: make([]value.Value, len(fields))}
	switch x := node.(type) {
	case map[string]any:
		if len(x) != len(fields) {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
				Path(path...).Type(owner).
				Detail("%d fields given, %d declared", len(x), len(fields)).
				Build()
		}
		for i, f := range fields {
			name := schema.FieldName(f, i)
			fn, ok := x[name]
			if !ok {
				return nil, errors.NotFound(errors.PhaseParse, owner+" field", name)
			}
			v, err := fromNode(f.Type, fn, errors.Prefix(path, name))
			if err != nil {
				return nil, err
			}
			out.Fields[i] = v
		}
		return out, nil
	case []any:
		if len(x) != len(fields) {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
				Path(path...).Type(owner).
				Detail("%d elements given, %d declared", len(x), len(fields)).
				Build()
		}
		for i, f := range fields {
			v, err := fromNode(f.Type, x[i], errors.Prefix(path, schema.FieldName(f, i)))
			if err != nil {
				return nil, err
			}
			out.Fields[i] = v
		}
		return out, nil
	}
	if len(fields) == 1 && shape != schema.ShapeNamed {
		v, err := fromNode(fields[0].Type, node, path)
		if err != nil {
			return nil, err
		}
		out.Fields[0] = v
		return out, nil
	}
	return nil, errors.TypeMismatch(errors.PhaseParse, path, fmt.Sprintf("%T", node), owner)
}

func variantNode(t *schema.Type, node any, path []string) (value.Value, error) {
	var (
		name    string
		payload any
	)
	switch x := node.(type) {
	case string:
		name = x
	case map[string]any:
		if len(x) != 1 {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
				Path(path...).Type(t.Name).
				Detail("a variant is written as {Case: payload}").
				Build()
		}
		for k, v := range x {
			name, payload = k, v
		}
	default:
		return nil, errors.TypeMismatch(errors.PhaseParse, path, fmt.Sprintf("%T", node), t.Name)
	}

	i, ok := t.VariantByName(name)
	if !ok {
		return nil, errors.New(errors.PhaseParse, errors.KindUnknownVariant).
			Path(path...).Type(t.Name).
			Detail("no case %q", name).
			Build()
	}
	vr := t.Variants[i]
	if len(vr.Fields) == 0 {
		if payload != nil {
			return nil, errors.InvalidInput(errors.PhaseParse, fmt.Sprintf("%s::%s carries no payload", t.Name, name))
		}
		return value.Variant{Case: name}, nil
	}
	s, err := structNode(t.Name+"::"+name, vr.Shape, vr.Fields, payload, errors.Prefix(path, name))
	if err != nil {
		return nil, err
	}
	return value.Variant{Case: name, Fields: s.(value.Struct).Fields}, nil
}
