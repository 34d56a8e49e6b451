// Package schema describes the values that cross the native boundary.
//
// A *Type is a value descriptor: a primitive kind, string, struct (named,
// tuple or newtype shape), discriminant enum, data enum (tagged union), list
// or handle. Primitive descriptors are shared package variables; compound
// descriptors are built with constructors:
//
//	address := schema.Handle("Address")
//	simple := schema.Enum("SimpleCEnum", schema.Case("Foo"), schema.Case("Bar"))
//	inner := schema.DataEnum("InnerEnum",
//		schema.Unit("Cool"),
//		schema.TupleVariant("Coolest", simple),
//	)
//
// Descriptors and function signatures are collected in a Catalog, which both
// the caller and the native library are built from. Catalogs load from YAML
// declaration files (LoadYAML) and travel between the two sides as a
// deterministic CBOR blob (MarshalDescribe, UnmarshalDescribe). FromWIT and
// Type.WIT convert to and from WIT types.
//
// Validate runs when a type is defined. Within one enum, discriminants and
// case names must be unique and discriminants must fit the representation.
// Handles may not appear inside struct or variant payloads.
package schema
