package schema

import (
	"fmt"

	"github.com/wippyai/bindgen/errors"
)

// Validate checks t and every descriptor reachable from it. It rejects
// duplicate names and discriminants within one type, discriminants that do
// not fit the enum representation, handles inside struct or variant
// payloads, and lists whose elements encode to zero bytes. Discriminants of
// different enums may coincide.
func Validate(t *Type) error {
	v := validator{seen: make(map[*Type]bool)}
	return v.check(t, false)
}

type validator struct {
	seen map[*Type]bool
}

func (v *validator) check(t *Type, inPayload bool) error {
	if t == nil {
		return errors.InvalidDefinition("", "nil type")
	}
	if t.Kind == KindHandle {
		if t.Name == "" {
			return errors.InvalidDefinition("", "handle without resource name")
		}
		if inPayload {
			return errors.InvalidDefinition(t.Name, "handle inside struct or variant payload")
		}
		return nil
	}
	if t.Kind.IsPrimitive() || t.Kind == KindString {
		return nil
	}
	if t.Kind == KindList {
		if t.Elem == nil {
			return errors.InvalidDefinition("", "list without element type")
		}
		if err := v.check(t.Elem, inPayload); err != nil {
			return err
		}
		if t.Elem.MinSize() == 0 {
			return errors.InvalidDefinition(t.Elem.Name, "list of zero-size elements")
		}
		return nil
	}

	// Named compound types may be reached more than once, including through
	// recursion; each is checked once per payload context.
	if v.seen[t] {
		return nil
	}
	v.seen[t] = true

	if t.Name == "" {
		return errors.InvalidDefinition("", fmt.Sprintf("%s without name", t.Kind))
	}
	if _, builtin := primitives[t.Name]; builtin {
		return errors.InvalidDefinition(t.Name, "name shadows builtin type")
	}

	switch t.Kind {
	case KindStruct:
		return v.checkFields(t.Name, t.Shape, t.Fields)
	case KindEnum:
		return checkEnum(t)
	case KindDataEnum:
		if len(t.Variants) == 0 {
			return errors.InvalidDefinition(t.Name, "data enum without variants")
		}
		names := make(map[string]bool, len(t.Variants))
		for _, vr := range t.Variants {
			if vr.Name == "" {
				return errors.InvalidDefinition(t.Name, "variant without name")
			}
			if names[vr.Name] {
				return errors.InvalidDefinition(t.Name, fmt.Sprintf("duplicate variant %q", vr.Name))
			}
			names[vr.Name] = true
			if vr.Shape == ShapeUnit && len(vr.Fields) > 0 {
				return errors.InvalidDefinition(t.Name, fmt.Sprintf("unit variant %q has fields", vr.Name))
			}
			if err := v.checkFields(t.Name+"::"+vr.Name, vr.Shape, vr.Fields); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.InvalidDefinition(t.Name, fmt.Sprintf("unsupported kind %s", t.Kind))
}

func (v *validator) checkFields(owner string, shape Shape, fields []Field) error {
	if shape == ShapeNewtype && len(fields) != 1 {
		return errors.InvalidDefinition(owner, fmt.Sprintf("newtype needs exactly one field, has %d", len(fields)))
	}
	names := make(map[string]bool, len(fields))
	for i, f := range fields {
		switch shape {
		case ShapeNamed:
			if f.Name == "" {
				return errors.InvalidDefinition(owner, fmt.Sprintf("field %d without name", i))
			}
			if names[f.Name] {
				return errors.InvalidDefinition(owner, fmt.Sprintf("duplicate field %q", f.Name))
			}
			names[f.Name] = true
		case ShapeTuple, ShapeNewtype:
			if f.Name != "" {
				return errors.InvalidDefinition(owner, fmt.Sprintf("positional field %d is named %q", i, f.Name))
			}
		}
		if err := v.check(f.Type, true); err != nil {
			return err
		}
	}
	return nil
}

func checkEnum(t *Type) error {
	if len(t.Cases) == 0 {
		return errors.InvalidDefinition(t.Name, "enum without cases")
	}
	if !t.Repr.IsInteger() {
		return errors.InvalidDefinition(t.Name, fmt.Sprintf("enum representation %s is not an integer kind", t.Repr))
	}
	lo, hi := t.Repr.IntRange()
	names := make(map[string]bool, len(t.Cases))
	values := make(map[int64]string, len(t.Cases))
	for _, c := range t.Cases {
		if c.Name == "" {
			return errors.InvalidDefinition(t.Name, "case without name")
		}
		if names[c.Name] {
			return errors.InvalidDefinition(t.Name, fmt.Sprintf("duplicate case %q", c.Name))
		}
		names[c.Name] = true
		if prev, dup := values[c.Value]; dup {
			return errors.InvalidDefinition(t.Name,
				fmt.Sprintf("cases %q and %q share discriminant %d", prev, c.Name, c.Value))
		}
		values[c.Value] = c.Name
		if c.Value < lo || (c.Value > 0 && uint64(c.Value) > hi) {
			return errors.InvalidDefinition(t.Name,
				fmt.Sprintf("discriminant %d of %q does not fit %s", c.Value, c.Name, t.Repr))
		}
	}
	return nil
}
