package schema

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/bindgen/errors"
)

// Document is the serialized form of a Catalog. It is read from YAML
// declaration files and exchanged as CBOR by the describe entry point.
type Document struct {
	Types     []TypeDecl `yaml:"types,omitempty" cbor:"types,omitempty"`
	Functions []FuncDecl `yaml:"functions,omitempty" cbor:"functions,omitempty"`
}

// TypeDecl declares one named type. Kind is one of struct, tuple, newtype,
// enum, data-enum or handle.
type TypeDecl struct {
	Name     string        `yaml:"name" cbor:"name"`
	Kind     string        `yaml:"kind" cbor:"kind"`
	Repr     string        `yaml:"repr,omitempty" cbor:"repr,omitempty"`
	Fields   []FieldDecl   `yaml:"fields,omitempty" cbor:"fields,omitempty"`
	Cases    []CaseDecl    `yaml:"cases,omitempty" cbor:"cases,omitempty"`
	Variants []VariantDecl `yaml:"variants,omitempty" cbor:"variants,omitempty"`
}

// FieldDecl is a field or parameter. Type is a type expression.
type FieldDecl struct {
	Name string `yaml:"name,omitempty" cbor:"name,omitempty"`
	Type string `yaml:"type" cbor:"type"`
}

// CaseDecl is a discriminant enum case; a nil Value continues the sequence.
type CaseDecl struct {
	Value *int64 `yaml:"value,omitempty" cbor:"value,omitempty"`
	Name  string `yaml:"name" cbor:"name"`
}

// VariantDecl is a data-enum variant. Shape is unit, tuple or struct.
type VariantDecl struct {
	Name   string      `yaml:"name" cbor:"name"`
	Shape  string      `yaml:"shape,omitempty" cbor:"shape,omitempty"`
	Fields []FieldDecl `yaml:"fields,omitempty" cbor:"fields,omitempty"`
}

// FuncDecl declares a function either structurally or through Sig, a
// signature line in the form accepted by ParseFunc.
type FuncDecl struct {
	Name     string      `yaml:"name,omitempty" cbor:"name,omitempty"`
	Owner    string      `yaml:"owner,omitempty" cbor:"owner,omitempty"`
	Receiver string      `yaml:"receiver,omitempty" cbor:"receiver,omitempty"`
	Sig      string      `yaml:"sig,omitempty" cbor:"sig,omitempty"`
	Result   string      `yaml:"result,omitempty" cbor:"result,omitempty"`
	Params   []FieldDecl `yaml:"params,omitempty" cbor:"params,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding: a catalog always describes to the same bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("schema: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 16,
		MaxMapPairs:      1 << 16,
	}.DecMode()
	if err != nil {
		panic("schema: CBOR decoder initialization failed: " + err.Error())
	}
}

// LoadYAML reads a declaration document and builds its catalog.
func LoadYAML(r io.Reader) (*Catalog, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, errors.ParseFailed("declaration file", err)
	}
	return doc.Catalog()
}

// WriteYAML writes the catalog as a declaration document.
func (c *Catalog) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.Document()); err != nil {
		return err
	}
	return enc.Close()
}

// MarshalDescribe encodes the catalog in the describe wire format.
func (c *Catalog) MarshalDescribe() ([]byte, error) {
	return encMode.Marshal(c.Document())
}

// UnmarshalDescribe builds a catalog from a describe blob.
func UnmarshalDescribe(data []byte) (*Catalog, error) {
	var doc Document
	if err := decMode.Unmarshal(data, &doc); err != nil {
		return nil, errors.ParseFailed("describe blob", err)
	}
	return doc.Catalog()
}

// Catalog resolves the document into a catalog. Types may reference each
// other in any order.
func (d *Document) Catalog() (*Catalog, error) {
	named := make(map[string]*Type, len(d.Types))
	for _, td := range d.Types {
		if _, dup := named[td.Name]; dup {
			return nil, errors.InvalidDefinition(td.Name, "declared twice")
		}
		kind, err := declKind(td)
		if err != nil {
			return nil, err
		}
		named[td.Name] = &Type{Kind: kind, Name: td.Name}
	}

	lookup := func(name string) (*Type, bool) {
		t, ok := named[name]
		return t, ok
	}
	for _, td := range d.Types {
		if err := fillType(named[td.Name], td, lookup); err != nil {
			return nil, err
		}
	}

	cat := NewCatalog()
	for _, td := range d.Types {
		if err := cat.Define(named[td.Name]); err != nil {
			return nil, err
		}
	}
	for _, fd := range d.Functions {
		f, err := fd.resolve(lookup)
		if err != nil {
			return nil, err
		}
		if err := cat.Declare(f); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func declKind(td TypeDecl) (Kind, error) {
	switch td.Kind {
	case "struct", "tuple", "newtype":
		return KindStruct, nil
	case "enum":
		return KindEnum, nil
	case "data-enum":
		return KindDataEnum, nil
	case "handle", "resource":
		return KindHandle, nil
	}
	return 0, errors.InvalidDefinition(td.Name, fmt.Sprintf("unknown kind %q", td.Kind))
}

func fillType(t *Type, td TypeDecl, lookup Lookup) error {
	switch td.Kind {
	case "struct", "tuple", "newtype":
		t.Shape = map[string]Shape{"struct": ShapeNamed, "tuple": ShapeTuple, "newtype": ShapeNewtype}[td.Kind]
		fields, err := declFields(td.Fields, lookup)
		if err != nil {
			return err
		}
		t.Fields = fields
	case "enum":
		cases := make([]EnumCase, len(td.Cases))
		for i, cd := range td.Cases {
			if cd.Value != nil {
				cases[i] = CaseValue(cd.Name, *cd.Value)
			} else {
				cases[i] = Case(cd.Name)
			}
		}
		t.Cases = Enum(t.Name, cases...).Cases
		t.Repr = KindS32
		if td.Repr != "" {
			r, ok := primitives[td.Repr]
			if !ok || !r.Kind.IsInteger() {
				return errors.InvalidDefinition(t.Name, fmt.Sprintf("invalid repr %q", td.Repr))
			}
			t.Repr = r.Kind
		}
	case "data-enum":
		for _, vd := range td.Variants {
			fields, err := declFields(vd.Fields, lookup)
			if err != nil {
				return err
			}
			v := Variant{Name: vd.Name, Fields: fields}
			switch vd.Shape {
			case "", "unit":
				v.Shape = ShapeUnit
				if len(fields) > 0 {
					v.Shape = ShapeTuple
				}
			case "tuple":
				v.Shape = ShapeTuple
			case "struct":
				v.Shape = ShapeNamed
			default:
				return errors.InvalidDefinition(t.Name, fmt.Sprintf("variant %q has unknown shape %q", vd.Name, vd.Shape))
			}
			t.Variants = append(t.Variants, v)
		}
	}
	return nil
}

func declFields(fds []FieldDecl, lookup Lookup) ([]Field, error) {
	if len(fds) == 0 {
		return nil, nil
	}
	out := make([]Field, len(fds))
	for i, fd := range fds {
		t, err := ParseType(fd.Type, lookup)
		if err != nil {
			return nil, err
		}
		out[i] = Field{Name: fd.Name, Type: t}
	}
	return out, nil
}

func (fd FuncDecl) resolve(lookup Lookup) (*Func, error) {
	var f *Func
	if fd.Sig != "" {
		parsed, err := ParseFunc(fd.Sig, lookup)
		if err != nil {
			return nil, err
		}
		f = parsed
	} else {
		recv, err := ParseReceiver(fd.Receiver)
		if err != nil {
			return nil, err
		}
		f = &Func{Name: fd.Name, Receiver: recv}
		for _, p := range fd.Params {
			t, err := ParseType(p.Type, lookup)
			if err != nil {
				return nil, err
			}
			f.Params = append(f.Params, Param{Name: p.Name, Type: t})
		}
		if fd.Result != "" {
			t, err := ParseType(fd.Result, lookup)
			if err != nil {
				return nil, err
			}
			f.Result = t
		}
	}
	f.Owner = fd.Owner
	if f.Owner != "" && f.Receiver == ReceiverNone {
		f.Receiver = ReceiverStatic
	}
	return f, nil
}

// Document converts the catalog into its serialized form.
func (c *Catalog) Document() *Document {
	doc := &Document{}
	for _, t := range c.Types() {
		doc.Types = append(doc.Types, typeDecl(t))
	}
	for _, f := range c.Funcs() {
		fd := FuncDecl{Name: f.Name, Owner: f.Owner}
		if f.Receiver != ReceiverNone {
			fd.Receiver = f.Receiver.String()
		}
		for _, p := range f.Params {
			fd.Params = append(fd.Params, FieldDecl{Name: p.Name, Type: p.Type.String()})
		}
		if f.Result != nil {
			fd.Result = f.Result.String()
		}
		doc.Functions = append(doc.Functions, fd)
	}
	return doc
}

func typeDecl(t *Type) TypeDecl {
	td := TypeDecl{Name: t.Name}
	switch t.Kind {
	case KindStruct:
		switch t.Shape {
		case ShapeTuple:
			td.Kind = "tuple"
		case ShapeNewtype:
			td.Kind = "newtype"
		default:
			td.Kind = "struct"
		}
		td.Fields = fieldDecls(t.Fields)
	case KindEnum:
		td.Kind = "enum"
		if t.Repr != KindS32 {
			td.Repr = t.Repr.String()
		}
		for _, c := range t.Cases {
			v := c.Value
			td.Cases = append(td.Cases, CaseDecl{Name: c.Name, Value: &v})
		}
	case KindDataEnum:
		td.Kind = "data-enum"
		for _, v := range t.Variants {
			vd := VariantDecl{Name: v.Name, Fields: fieldDecls(v.Fields)}
			switch v.Shape {
			case ShapeNamed:
				vd.Shape = "struct"
			case ShapeTuple, ShapeNewtype:
				vd.Shape = "tuple"
			}
			td.Variants = append(td.Variants, vd)
		}
	case KindHandle:
		td.Kind = "handle"
	}
	return td
}

func fieldDecls(fs []Field) []FieldDecl {
	var out []FieldDecl
	for _, f := range fs {
		out = append(out, FieldDecl{Name: f.Name, Type: f.Type.String()})
	}
	return out
}
